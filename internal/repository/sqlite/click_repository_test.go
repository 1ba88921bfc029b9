package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/models"
)

func strPtr(s string) *string { return &s }

func TestClickRepository_Aggregates(t *testing.T) {
	db, err := database.NewSQLite(database.MemorySQLiteDSN(uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseSQLite(db) })

	ctx := context.Background()
	links := NewLinkRepository(db)
	clicks := NewClickRepository(db)

	link := &models.Link{ShortCode: "stats", OriginalURL: "https://example.com", IsActive: true}
	require.NoError(t, links.Create(ctx, link))

	today := models.DayStart(time.Now())
	yesterday := today.AddDate(0, 0, -1)
	events := []models.ClickEvent{
		{IP: strPtr("1.1.1.1"), Device: models.DeviceMobile, Browser: models.BrowserSafari, Country: strPtr("US"), CreatedAt: yesterday.Add(time.Hour)},
		{IP: strPtr("1.1.1.1"), Device: models.DeviceMobile, Browser: models.BrowserChrome, Country: strPtr("US"), CreatedAt: today.Add(time.Hour)},
		{IP: strPtr("2.2.2.2"), Device: models.DeviceDesktop, Browser: models.BrowserChrome, Country: strPtr("DE"), CreatedAt: today.Add(2 * time.Hour)},
		{Device: models.DeviceTablet, Browser: models.BrowserChrome, CreatedAt: today.Add(3 * time.Hour)},
	}
	for i := range events {
		events[i].LinkID = link.ID
		require.NoError(t, clicks.InsertClickEvent(ctx, &events[i]))
	}

	total, err := clicks.CountClicks(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	unique, err := clicks.CountUniqueIPs(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unique, "null IPs are not counted")

	browsers, err := clicks.Breakdown(ctx, link.ID, models.DimensionBrowser)
	require.NoError(t, err)
	assert.Equal(t, []models.BreakdownItem{{Label: "Chrome", Count: 3}, {Label: "Safari", Count: 1}}, browsers)

	devices, err := clicks.Breakdown(ctx, link.ID, models.DimensionDevice)
	require.NoError(t, err)
	assert.Equal(t, []models.BreakdownItem{
		{Label: "Mobile", Count: 2},
		{Label: "Desktop", Count: 1},
		{Label: "Tablet", Count: 1},
	}, devices, "ties are ordered by label")

	countries, err := clicks.Breakdown(ctx, link.ID, models.DimensionCountry)
	require.NoError(t, err)
	assert.Equal(t, []models.BreakdownItem{{Label: "US", Count: 2}, {Label: "DE", Count: 1}}, countries)

	_, err = clicks.Breakdown(ctx, link.ID, models.Dimension("referrer"))
	assert.Error(t, err)

	daily, err := clicks.DailyEventCounts(ctx, link.ID, yesterday)
	require.NoError(t, err)
	assert.Equal(t, []models.DailyCount{
		{Date: yesterday.Format(models.DateLayout), Clicks: 1},
		{Date: today.Format(models.DateLayout), Clicks: 3},
	}, daily)
}

func TestClickRepository_EmptyLink(t *testing.T) {
	db, err := database.NewSQLite(database.MemorySQLiteDSN(uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseSQLite(db) })

	ctx := context.Background()
	clicks := NewClickRepository(db)
	id := uuid.New()

	total, err := clicks.CountClicks(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, total)

	items, err := clicks.Breakdown(ctx, id, models.DimensionDevice)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	daily, err := clicks.DailyEventCounts(ctx, id, time.Now().AddDate(0, 0, -29))
	require.NoError(t, err)
	assert.Empty(t, daily)
}
