// ===========================================
// Package repository - Data Access Layer
// ===========================================
// Storage backends live in subpackages (postgres, sqlite) and share the
// sentinel errors below so services can test them with errors.Is.
// ===========================================

package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/shortlinks/internal/models"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
)

// PrepareLink fills the fields a new link row must carry before insert.
func PrepareLink(link *models.Link, now time.Time) {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = link.CreatedAt
	}
}

// FillDays expands sparse per-day counts into one entry per day from
// `from` (inclusive, truncated to midnight UTC) for `days` days.
func FillDays(from time.Time, days int, counts map[string]int64) []models.DailyCount {
	start := models.DayStart(from)
	series := make([]models.DailyCount, 0, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(models.DateLayout)
		series = append(series, models.DailyCount{Date: key, Clicks: counts[key]})
	}
	return series
}
