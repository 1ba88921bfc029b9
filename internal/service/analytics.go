package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/repository"
)

// historyDays is the length of every daily series.
const historyDays = 30

// Analytics summarizes the click events of a link. It only reads.
type Analytics struct {
	clicks ClickRepository
	now    func() time.Time
}

// NewAnalytics creates a new aggregator.
func NewAnalytics(clicks ClickRepository) *Analytics {
	return &Analytics{clicks: clicks, now: time.Now}
}

// Summarize aggregates every event of linkID. A link without events
// yields zero counts, empty breakdowns and a zero-filled series.
func (a *Analytics) Summarize(ctx context.Context, linkID uuid.UUID) (*models.AnalyticsSummary, error) {
	total, err := a.clicks.CountClicks(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to count clicks: %w", err)
	}

	unique, err := a.clicks.CountUniqueIPs(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unique visitors: %w", err)
	}

	summary := &models.AnalyticsSummary{
		TotalClicks:  total,
		UniqueClicks: unique,
	}

	breakdowns := []struct {
		dim  models.Dimension
		dest *[]models.BreakdownItem
	}{
		{models.DimensionDevice, &summary.DeviceBreakdown},
		{models.DimensionBrowser, &summary.BrowserBreakdown},
		{models.DimensionCountry, &summary.CountryBreakdown},
	}
	for _, b := range breakdowns {
		items, err := a.clicks.Breakdown(ctx, linkID, b.dim)
		if err != nil {
			return nil, fmt.Errorf("failed to break down by %s: %w", b.dim, err)
		}
		if items == nil {
			items = []models.BreakdownItem{}
		}
		*b.dest = items
	}

	from := models.DayStart(a.now()).AddDate(0, 0, -(historyDays - 1))
	daily, err := a.clicks.DailyEventCounts(ctx, linkID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to count daily clicks: %w", err)
	}
	summary.DailySeries = repository.FillDays(from, historyDays, countsByDate(daily))

	return summary, nil
}

func countsByDate(rows []models.DailyCount) map[string]int64 {
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Date] += row.Clicks
	}
	return counts
}
