// Package models defines the persisted entities of the progress and rewards engine.
package models

import (
	"time"
)

// User is a participant. XP only grows; Level never decreases.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"index;not null;size:255" json:"username"`
	XP        int64     `gorm:"column:xp;not null;default:0" json:"xp"`
	Level     int       `gorm:"not null;default:1" json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}
