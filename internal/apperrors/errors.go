// Package apperrors defines the error kinds shared by the progress engine, the store
// and the HTTP layer. Callers match kinds with errors.Is; wrapping with %w keeps context.
package apperrors

import (
	"errors"
	"net/http"
)

// Business-rule violations. These are recoverable by the caller.
var (
	ErrAlreadyEnrolled  = errors.New("already enrolled in challenge")
	ErrNotEnrolled      = errors.New("not enrolled in challenge")
	ErrDuplicateCheckIn = errors.New("already checked in today")
	ErrNotActive        = errors.New("enrollment is not active")
	ErrAlreadyCompleted = errors.New("challenge already completed")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
)

// Store failures.
var (
	// ErrStoreConflict is transient: lock contention, serialization failure, deadlock.
	ErrStoreConflict = errors.New("store conflict")
	// ErrStoreUnavailable is fatal to the request and never retried.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Advice provider failures, kept distinct so clients can tell the user what happened.
var (
	ErrAdviceQuota       = errors.New("advice provider quota exceeded")
	ErrAdviceAuth        = errors.New("advice provider rejected credentials")
	ErrAdviceUnavailable = errors.New("advice provider unavailable")
)

// Kind pairs a sentinel with its wire code and HTTP status.
type Kind struct {
	Err    error
	Code   string
	Status int
}

var kinds = []Kind{
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrValidation, "validation_error", http.StatusBadRequest},
	{ErrAlreadyEnrolled, "already_enrolled", http.StatusConflict},
	{ErrNotEnrolled, "not_enrolled", http.StatusConflict},
	{ErrDuplicateCheckIn, "duplicate_checkin", http.StatusConflict},
	{ErrNotActive, "not_active", http.StatusConflict},
	{ErrAlreadyCompleted, "already_completed", http.StatusConflict},
	{ErrStoreConflict, "store_conflict", http.StatusServiceUnavailable},
	{ErrStoreUnavailable, "store_unavailable", http.StatusServiceUnavailable},
	{ErrAdviceQuota, "advice_quota_exceeded", http.StatusTooManyRequests},
	{ErrAdviceAuth, "advice_auth_failed", http.StatusBadGateway},
	{ErrAdviceUnavailable, "advice_unavailable", http.StatusBadGateway},
}

// Classify returns the kind matching err. Unknown errors map to an internal error.
func Classify(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.Err) {
			return k
		}
	}
	return Kind{Err: err, Code: "internal_error", Status: http.StatusInternalServerError}
}

// IsKnown reports whether err carries one of the kinds above.
func IsKnown(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k.Err) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err is a business-rule conflict (already done, wrong state).
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyEnrolled) ||
		errors.Is(err, ErrNotEnrolled) ||
		errors.Is(err, ErrDuplicateCheckIn) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrAlreadyCompleted)
}

// IsRetryable reports whether the operation may succeed if attempted again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreConflict)
}
