package models

import (
	"time"
)

// Difficulty values accepted for a challenge.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// IsDifficulty reports whether d is a known difficulty.
func IsDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Enrollment statuses. The only transition is active -> completed.
const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
)

// Challenge is a catalog entry a user can enroll in.
type Challenge struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Slug         string    `gorm:"uniqueIndex;not null;size:150" json:"slug"`
	Title        string    `gorm:"not null;size:200" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Difficulty   string    `gorm:"size:20;not null;default:medium" json:"difficulty"`
	XPReward     int64     `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	Category     string    `gorm:"size:50;index" json:"category"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for Challenge model.
func (Challenge) TableName() string {
	return "challenges"
}

// Enrollment tracks one user's participation in one challenge.
// A (user, challenge) pair has at most one enrollment, ever.
type Enrollment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_challenge,priority:1" json:"user_id"`
	User         User       `gorm:"foreignKey:UserID" json:"-"`
	ChallengeID  uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_challenge,priority:2;index" json:"challenge_id"`
	Challenge    Challenge  `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	Status       string     `gorm:"size:20;not null;index" json:"status"`
	ProgressDays int        `gorm:"not null;default:0" json:"progress_days"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// TableName specifies the table name for Enrollment model.
func (Enrollment) TableName() string {
	return "enrollments"
}

// IsActive reports whether the enrollment can still accept check-ins.
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive
}

// DailyLog records that a user checked in on a calendar day.
type DailyLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_daily_log_user_challenge_day,priority:1" json:"user_id"`
	ChallengeID uint      `gorm:"not null;uniqueIndex:idx_daily_log_user_challenge_day,priority:2" json:"challenge_id"`
	Day         string    `gorm:"size:10;not null;uniqueIndex:idx_daily_log_user_challenge_day,priority:3" json:"day"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for DailyLog model.
func (DailyLog) TableName() string {
	return "daily_logs"
}

// Streak holds the consecutive-day run for a (user, challenge) pair.
type Streak struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_streak_user_challenge,priority:1" json:"user_id"`
	ChallengeID   uint      `gorm:"not null;uniqueIndex:idx_streak_user_challenge,priority:2" json:"challenge_id"`
	CurrentStreak int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak int       `gorm:"not null;default:0" json:"longest_streak"`
	LastActiveDay string    `gorm:"size:10;not null" json:"last_active_day"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Streak model.
func (Streak) TableName() string {
	return "streaks"
}
