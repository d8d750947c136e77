package mocks

import (
	"context"
	"sync"

	"github.com/dakshkumar96/Reclaim/internal/advisor"
)

// MockAdviceProvider is a simple mock for the advice provider
type MockAdviceProvider struct {
	CompleteFunc func(ctx context.Context, messages []advisor.Message) (string, error)

	mu    sync.Mutex
	Calls [][]advisor.Message
}

func (m *MockAdviceProvider) Complete(ctx context.Context, messages []advisor.Message) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, append([]advisor.Message(nil), messages...))
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages)
	}
	return "Keep it up!", nil
}

// LastCall returns the messages of the most recent call.
func (m *MockAdviceProvider) LastCall() []advisor.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Calls) == 0 {
		return nil
	}
	return m.Calls[len(m.Calls)-1]
}
