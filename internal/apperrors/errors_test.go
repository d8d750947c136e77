package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"wrapped not found", fmt.Errorf("challenge 9: %w", ErrNotFound), "not_found", http.StatusNotFound},
		{"duplicate check-in", ErrDuplicateCheckIn, "duplicate_checkin", http.StatusConflict},
		{"already completed", fmt.Errorf("complete: %w", ErrAlreadyCompleted), "already_completed", http.StatusConflict},
		{"store conflict", ErrStoreConflict, "store_conflict", http.StatusServiceUnavailable},
		{"quota", ErrAdviceQuota, "advice_quota_exceeded", http.StatusTooManyRequests},
		{"auth", ErrAdviceAuth, "advice_auth_failed", http.StatusBadGateway},
		{"unknown", errors.New("boom"), "internal_error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := Classify(tt.err)
			assert.Equal(t, tt.wantCode, k.Code)
			assert.Equal(t, tt.wantStatus, k.Status)
		})
	}
}

func TestDuplicateAndNotFoundAreDistinguishable(t *testing.T) {
	dup := Classify(ErrDuplicateCheckIn)
	missing := Classify(ErrNotFound)
	invalid := Classify(ErrValidation)

	assert.NotEqual(t, dup.Status, missing.Status)
	assert.NotEqual(t, dup.Status, invalid.Status)
	assert.NotEqual(t, missing.Status, invalid.Status)
}

func TestIsConflictAndRetryable(t *testing.T) {
	assert.True(t, IsConflict(fmt.Errorf("x: %w", ErrAlreadyEnrolled)))
	assert.False(t, IsConflict(ErrNotFound))
	assert.True(t, IsRetryable(fmt.Errorf("tx: %w", ErrStoreConflict)))
	assert.False(t, IsRetryable(ErrStoreUnavailable))
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown(fmt.Errorf("insert: %w", ErrStoreUnavailable)))
	assert.False(t, IsKnown(errors.New("driver: bad connection")))
}
