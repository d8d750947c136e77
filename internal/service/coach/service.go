// Package coach builds habit-coaching conversations on top of the advice provider.
package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dakshkumar96/Reclaim/internal/advisor"
	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/cache"
	"github.com/dakshkumar96/Reclaim/internal/clock"
	"github.com/dakshkumar96/Reclaim/internal/metrics"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/service/progress"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// MaxMessageLength bounds a single user message, in runes.
const MaxMessageLength = 2000

// SystemPrompt frames every conversation.
const SystemPrompt = `You are a friendly and motivating AI habit coach for the Reclaim app.
Your role is to help users build better habits, stay consistent, and achieve their goals.

Guidelines:
- Be encouraging and supportive
- Provide practical, actionable advice
- Use a conversational, friendly tone
- Reference habit-building principles (consistency, small wins, etc.)
- Help users overcome common obstacles
- Celebrate their progress
- Keep responses concise but helpful (2-4 sentences typically)

The user is working on building habits through daily challenges. They can check in daily, earn XP, and track streaks.
Be their supportive coach and guide them on their habit-building journey.`

// AdviceProvider produces a reply for a conversation.
type AdviceProvider interface {
	Complete(ctx context.Context, messages []advisor.Message) (string, error)
}

// HistoryStore keeps the bounded per-user conversation.
type HistoryStore interface {
	PushBounded(ctx context.Context, key string, value any, limit int, ttl time.Duration) error
	Range(ctx context.Context, key string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
}

// UserRepository loads the user's level and XP.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// ProgressReader lists the user's active challenges.
type ProgressReader interface {
	ActiveChallenges(ctx context.Context, userID uint) ([]progress.ActiveChallenge, error)
}

// Reply is the coach's answer.
type Reply struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Options configures history retention.
type Options struct {
	HistorySize int
	HistoryTTL  time.Duration
	Clock       clock.Clock
}

// Service answers coaching questions.
type Service struct {
	provider    AdviceProvider
	history     HistoryStore
	users       UserRepository
	progress    ProgressReader
	historySize int
	historyTTL  time.Duration
	clock       clock.Clock
	log         *logger.Logger
}

// NewService creates a coach. A nil provider makes every request fail with
// ErrAdviceUnavailable; a nil history store keeps no conversation.
func NewService(provider AdviceProvider, history HistoryStore, users UserRepository, reader ProgressReader, opts Options, log *logger.Logger) *Service {
	if opts.HistorySize <= 0 {
		opts.HistorySize = 10
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Service{
		provider:    provider,
		history:     history,
		users:       users,
		progress:    reader,
		historySize: opts.HistorySize,
		historyTTL:  opts.HistoryTTL,
		clock:       opts.Clock,
		log:         log,
	}
}

// Chat sends the user's message with their current stats and recent history.
func (s *Service) Chat(ctx context.Context, userID uint, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", apperrors.ErrValidation, MaxMessageLength)
	}
	if s.provider == nil {
		metrics.RecordCoachRequest("disabled")
		return nil, fmt.Errorf("%w: coach is disabled", apperrors.ErrAdviceUnavailable)
	}

	messages := []advisor.Message{{Role: advisor.RoleSystem, Content: SystemPrompt}}
	messages = append(messages, s.History(ctx, userID)...)
	messages = append(messages, advisor.Message{
		Role:    advisor.RoleUser,
		Content: message + s.userContext(ctx, userID),
	})

	start := time.Now()
	answer, err := s.provider.Complete(ctx, messages)
	metrics.ObserveCoachLatency(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordCoachRequest(outcome(err))
		s.log.Error().Err(err).Uint("user_id", userID).Msg("Advice request failed")
		return nil, err
	}
	metrics.RecordCoachRequest("success")

	s.remember(ctx, userID,
		advisor.Message{Role: advisor.RoleUser, Content: message},
		advisor.Message{Role: advisor.RoleAssistant, Content: answer},
	)

	return &Reply{Message: answer, Timestamp: s.clock.Now().UTC()}, nil
}

// History returns the stored conversation, oldest first.
func (s *Service) History(ctx context.Context, userID uint) []advisor.Message {
	if s.history == nil {
		return nil
	}

	raw, err := s.history.Range(ctx, historyKey(userID))
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to load chat history")
		return nil
	}

	messages := make([]advisor.Message, 0, len(raw))
	for _, item := range raw {
		var msg advisor.Message
		if err := json.Unmarshal(item, &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// ClearHistory forgets the user's conversation.
func (s *Service) ClearHistory(ctx context.Context, userID uint) error {
	if s.history == nil {
		return nil
	}
	return s.history.Del(ctx, historyKey(userID))
}

func (s *Service) remember(ctx context.Context, userID uint, turns ...advisor.Message) {
	if s.history == nil {
		return
	}
	for _, turn := range turns {
		if err := s.history.PushBounded(ctx, historyKey(userID), turn, s.historySize, s.historyTTL); err != nil {
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to store chat history")
			return
		}
	}
}

// userContext renders the stats appended to the user's message. Zero values are omitted.
func (s *Service) userContext(ctx context.Context, userID uint) string {
	var parts []string

	if user, err := s.users.GetByID(ctx, userID); err == nil {
		if user.Level > 0 {
			parts = append(parts, fmt.Sprintf("Level %d", user.Level))
		}
		if user.XP > 0 {
			parts = append(parts, fmt.Sprintf("%d XP", user.XP))
		}
	}

	if active, err := s.progress.ActiveChallenges(ctx, userID); err == nil {
		if len(active) > 0 {
			parts = append(parts, fmt.Sprintf("%d active challenges", len(active)))
		}
		best := 0
		for _, a := range active {
			if a.Streak.Current > best {
				best = a.Streak.Current
			}
		}
		if best > 0 {
			parts = append(parts, fmt.Sprintf("%d day streak", best))
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return "\n\nUser context: " + strings.Join(parts, ", ")
}

func historyKey(userID uint) string {
	return fmt.Sprintf("%s%d", cache.PrefixChat, userID)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrAdviceQuota):
		return "quota"
	case errors.Is(err, apperrors.ErrAdviceAuth):
		return "auth"
	default:
		return "unavailable"
	}
}
