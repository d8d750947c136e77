package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
)

// PostgreSQL SQLSTATE codes treated as transient contention.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// classifyError maps driver errors onto store kinds. Errors that already carry a
// kind (business-rule sentinels raised inside a transaction) are returned as is.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsKnown(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	}
	if isConflict(err) {
		return fmt.Errorf("%w: %w", apperrors.ErrStoreConflict, err)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
}

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return true
		}
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}
