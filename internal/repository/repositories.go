package repository

import (
	"context"
)

// Repositories bundles the repositories bound to one connection or transaction.
type Repositories struct {
	Users       *UserRepository
	Challenges  *ChallengeRepository
	Enrollments *EnrollmentRepository
	CheckIns    *CheckInRepository
	Badges      *BadgeRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Challenges:  NewChallengeRepository(db),
		Enrollments: NewEnrollmentRepository(db),
		CheckIns:    NewCheckInRepository(db),
		Badges:      NewBadgeRepository(db),
	}
}

// InTx runs fn with repositories bound to a single transaction.
// fn must not touch repositories bound to the outer connection.
func (db *DB) InTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return db.Transaction(ctx, func(tx *DB) error {
		return fn(NewRepositories(tx))
	})
}
