package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/user/shortlinks/internal/models"
	"gorm.io/gorm"
)

var breakdownColumns = map[models.Dimension]string{
	models.DimensionDevice:  "device",
	models.DimensionBrowser: "browser",
	models.DimensionCountry: "country",
}

// ClickRepository stores and aggregates click events.
type ClickRepository struct {
	*BaseRepository
}

func NewClickRepository(db *gorm.DB) *ClickRepository {
	return &ClickRepository{&BaseRepository{db: db}}
}

func (r *ClickRepository) InsertClickEvent(ctx context.Context, event *models.ClickEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = event.CreatedAt.UTC()
	if err := r.GetDB(ctx).Create(event).Error; err != nil {
		return errors.Wrapf(err, "failed to insert click event for %s", event.LinkID)
	}
	return nil
}

func (r *ClickRepository) CountClicks(ctx context.Context, linkID uuid.UUID) (int64, error) {
	var n int64
	if err := r.GetDB(ctx).Model(&models.ClickEvent{}).Where("link_id = ?", linkID).Count(&n).Error; err != nil {
		return 0, errors.Wrapf(err, "failed to count clicks of %s", linkID)
	}
	return n, nil
}

func (r *ClickRepository) CountUniqueIPs(ctx context.Context, linkID uuid.UUID) (int64, error) {
	var n int64
	err := r.GetDB(ctx).Model(&models.ClickEvent{}).
		Where("link_id = ? AND ip IS NOT NULL", linkID).
		Distinct("ip").
		Count(&n).Error
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count unique IPs of %s", linkID)
	}
	return n, nil
}

func (r *ClickRepository) Breakdown(ctx context.Context, linkID uuid.UUID, dim models.Dimension) ([]models.BreakdownItem, error) {
	column, ok := breakdownColumns[dim]
	if !ok {
		return nil, errors.Errorf("unknown breakdown dimension %q", dim)
	}

	items := []models.BreakdownItem{}
	err := r.GetDB(ctx).Model(&models.ClickEvent{}).
		Select(fmt.Sprintf("%s AS label, COUNT(*) AS count", column)).
		Where(fmt.Sprintf("link_id = ? AND %s IS NOT NULL", column), linkID).
		Group(column).
		Order(fmt.Sprintf("count DESC, %s ASC", column)).
		Scan(&items).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to break down %s by %s", linkID, column)
	}
	return items, nil
}

// DailyEventCounts buckets event timestamps by UTC day in Go; SQLite's date
// functions do not parse the driver's timestamp layout reliably.
func (r *ClickRepository) DailyEventCounts(ctx context.Context, linkID uuid.UUID, since time.Time) ([]models.DailyCount, error) {
	var stamps []time.Time
	err := r.GetDB(ctx).Model(&models.ClickEvent{}).
		Where("link_id = ? AND created_at >= ?", linkID, since.UTC()).
		Order("created_at").
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count daily events of %s", linkID)
	}

	counts := []models.DailyCount{}
	for _, ts := range stamps {
		day := ts.UTC().Format(models.DateLayout)
		if n := len(counts); n > 0 && counts[n-1].Date == day {
			counts[n-1].Clicks++
			continue
		}
		counts = append(counts, models.DailyCount{Date: day, Clicks: 1})
	}
	return counts, nil
}
