package models

import (
	"time"
)

// Badge categories. The four habit categories unlock on repeated completions.
const (
	BadgeCategoryXP           = "xp"
	BadgeCategoryStreak       = "streak"
	BadgeCategoryChallenge    = "challenge"
	BadgeCategoryHealth       = "health"
	BadgeCategoryProductivity = "productivity"
	BadgeCategoryMindfulness  = "mindfulness"
	BadgeCategoryEducation    = "education"
)

// Badge represents a badge that can be earned by users.
type Badge struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	Icon              string    `gorm:"size:50" json:"icon"`
	Category          string    `gorm:"size:50;index" json:"category"`
	XPRequirement     int64     `gorm:"column:xp_requirement;not null;default:0" json:"xp_requirement"`
	StreakRequirement int       `gorm:"not null;default:0" json:"streak_requirement"`
	IsActive          bool      `gorm:"not null" json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// UserBadge is a permanent award. (user, badge) is unique.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BadgeID  uint      `gorm:"not null;uniqueIndex:idx_user_badge,priority:2;index" json:"badge_id"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}
