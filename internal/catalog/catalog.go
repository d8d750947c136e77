// Package catalog loads the challenge and badge catalog from YAML and seeds the store.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/dakshkumar96/Reclaim/internal/apperrors"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/internal/repository"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// File is the on-disk catalog.
type File struct {
	Challenges []Challenge `yaml:"challenges"`
	Badges     []Badge     `yaml:"badges"`
}

// Challenge is a catalog challenge. An empty slug is derived from the title.
type Challenge struct {
	Slug         string `yaml:"slug"`
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Difficulty   string `yaml:"difficulty"`
	XPReward     int64  `yaml:"xp_reward"`
	DurationDays int    `yaml:"duration_days"`
	Category     string `yaml:"category"`
	Active       *bool  `yaml:"active"`
}

// Badge is a catalog badge, keyed by name.
type Badge struct {
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Icon              string `yaml:"icon"`
	Category          string `yaml:"category"`
	XPRequirement     int64  `yaml:"xp_requirement"`
	StreakRequirement int    `yaml:"streak_requirement"`
	Active            *bool  `yaml:"active"`
}

// Result counts the seeded rows.
type Result struct {
	Challenges int
	Badges     int
}

// Load reads and validates the catalog at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a catalog, rejecting unknown fields, and validates it.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse catalog: %w", apperrors.ErrValidation, err)
	}

	for i := range file.Challenges {
		if file.Challenges[i].Slug == "" {
			file.Challenges[i].Slug = slug.Make(file.Challenges[i].Title)
		}
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// Validate checks every entry.
func (f *File) Validate() error {
	slugs := make(map[string]bool, len(f.Challenges))
	for i, c := range f.Challenges {
		switch {
		case c.Title == "":
			return invalid("challenge %d: title is required", i)
		case !slug.IsSlug(c.Slug):
			return invalid("challenge %q: invalid slug %q", c.Title, c.Slug)
		case slugs[c.Slug]:
			return invalid("challenge %q: duplicate slug %q", c.Title, c.Slug)
		case !models.IsDifficulty(c.Difficulty):
			return invalid("challenge %q: unknown difficulty %q", c.Slug, c.Difficulty)
		case c.DurationDays <= 0:
			return invalid("challenge %q: duration_days must be positive", c.Slug)
		case c.XPReward < 0:
			return invalid("challenge %q: xp_reward must not be negative", c.Slug)
		case c.Category == "":
			return invalid("challenge %q: category is required", c.Slug)
		}
		slugs[c.Slug] = true
	}

	names := make(map[string]bool, len(f.Badges))
	for i, b := range f.Badges {
		switch {
		case b.Name == "":
			return invalid("badge %d: name is required", i)
		case names[b.Name]:
			return invalid("badge %q: duplicate name", b.Name)
		case b.Category == "":
			return invalid("badge %q: category is required", b.Name)
		case b.XPRequirement < 0 || b.StreakRequirement < 0:
			return invalid("badge %q: requirements must not be negative", b.Name)
		}
		names[b.Name] = true
	}
	return nil
}

// Seed upserts every challenge by slug and every badge by name in one transaction.
// Existing rows keep their IDs, so enrollments and awards survive a reseed.
func Seed(ctx context.Context, db *repository.DB, file *File, log *logger.Logger) (Result, error) {
	var result Result

	err := db.InTx(ctx, func(repos *repository.Repositories) error {
		for _, c := range file.Challenges {
			challenge := &models.Challenge{
				Slug:         c.Slug,
				Title:        c.Title,
				Description:  c.Description,
				Difficulty:   c.Difficulty,
				XPReward:     c.XPReward,
				DurationDays: c.DurationDays,
				Category:     c.Category,
				IsActive:     active(c.Active),
			}
			if err := repos.Challenges.UpsertBySlug(ctx, challenge); err != nil {
				return err
			}
			result.Challenges++
		}

		for _, b := range file.Badges {
			badge := &models.Badge{
				Name:              b.Name,
				Description:       b.Description,
				Icon:              b.Icon,
				Category:          b.Category,
				XPRequirement:     b.XPRequirement,
				StreakRequirement: b.StreakRequirement,
				IsActive:          active(b.Active),
			}
			if err := repos.Badges.UpsertByName(ctx, badge); err != nil {
				return err
			}
			result.Badges++
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to seed catalog: %w", err)
	}

	log.Info().
		Int("challenges", result.Challenges).
		Int("badges", result.Badges).
		Msg("Catalog seeded")

	return result, nil
}

func active(flag *bool) bool {
	return flag == nil || *flag
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, fmt.Sprintf(format, args...))
}
