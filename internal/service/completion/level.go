package completion

import (
	"context"

	"github.com/dakshkumar96/Reclaim/internal/repository"
)

// DefaultXPPerLevel is used when no positive value is configured.
const DefaultXPPerLevel = 100

// LevelPolicy is a step function: every XPPerLevel points is one level, starting at 1.
type LevelPolicy struct {
	XPPerLevel int64
}

// NewLevelPolicy returns a policy; non-positive values fall back to DefaultXPPerLevel.
func NewLevelPolicy(xpPerLevel int64) LevelPolicy {
	if xpPerLevel <= 0 {
		xpPerLevel = DefaultXPPerLevel
	}
	return LevelPolicy{XPPerLevel: xpPerLevel}
}

// LevelForXP returns the level reached with xp points.
func (p LevelPolicy) LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/p.XPPerLevel) + 1
}

// Next returns the level after reaching xp from current. Levels never go down.
func (p LevelPolicy) Next(current int, xp int64) int {
	if computed := p.LevelForXP(xp); computed > current {
		return computed
	}
	return current
}

// Progress returns the XP earned inside the current level and the span of a level.
func (p LevelPolicy) Progress(xp int64) (into, span int64) {
	return xp % p.XPPerLevel, p.XPPerLevel
}

// XPChange describes a grant.
type XPChange struct {
	Delta     int64 `json:"xp_delta"`
	NewXP     int64 `json:"new_xp"`
	OldLevel  int   `json:"old_level"`
	NewLevel  int   `json:"new_level"`
	LeveledUp bool  `json:"leveled_up"`
}

// Grant adds delta XP to the user and raises the level as needed. users must be
// bound to the caller's transaction; the user row is locked until it ends.
func (p LevelPolicy) Grant(ctx context.Context, users *repository.UserRepository, userID uint, delta int64) (*XPChange, error) {
	user, err := users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	newXP := user.XP + delta
	newLevel := p.Next(user.Level, newXP)
	if err := users.AddXP(ctx, userID, delta, newLevel); err != nil {
		return nil, err
	}

	return &XPChange{
		Delta:     delta,
		NewXP:     newXP,
		OldLevel:  user.Level,
		NewLevel:  newLevel,
		LeveledUp: newLevel > user.Level,
	}, nil
}
