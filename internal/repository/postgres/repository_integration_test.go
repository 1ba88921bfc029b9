//go:build integration

package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/user/shortlinks/internal/config"
	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/database/migrations"
	"github.com/user/shortlinks/internal/logging"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/repository"
)

func setupPostgres(t *testing.T) *database.PostgresDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shortlinks"),
		tcpostgres.WithUsername("shortlinks"),
		tcpostgres.WithPassword("shortlinks"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrations.New(dsn, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := database.NewPostgresDB(ctx, config.DatabaseConfig{URL: dsn, MaxOpenConns: 20})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestPostgresRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	links := NewLinkRepository(db)
	clicks := NewClickRepository(db)

	t.Run("create and lookup", func(t *testing.T) {
		link := &models.Link{ShortCode: "pg-basic", OriginalURL: "https://example.com", IsActive: true}
		require.NoError(t, links.Create(ctx, link))

		got, err := links.GetByShortCode(ctx, "pg-basic")
		require.NoError(t, err)
		assert.Equal(t, link.ID, got.ID)

		err = links.Create(ctx, &models.Link{ShortCode: "pg-basic", OriginalURL: "https://x.test", IsActive: true})
		assert.ErrorIs(t, err, repository.ErrAlreadyExists)

		_, err = links.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("quota holds under concurrency", func(t *testing.T) {
		limit := 5
		link := &models.Link{ShortCode: "pg-quota", OriginalURL: "https://example.com", IsActive: true, MaxClicks: &limit}
		require.NoError(t, links.Create(ctx, link))

		var accepted atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := links.ConsumeClick(ctx, link.ID, time.Now().UTC(), false)
				if assert.NoError(t, err) && res.Accepted {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(limit), accepted.Load())
		got, err := links.GetByID(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(limit), got.Clicks)

		history, err := links.DailyClicks(ctx, link.ID, time.Now(), time.Now())
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, int64(limit), history[0].Clicks)
	})

	t.Run("one-time delete cascades", func(t *testing.T) {
		link := &models.Link{ShortCode: "pg-once", OriginalURL: "https://example.com", IsActive: true, IsOneTime: true}
		require.NoError(t, links.Create(ctx, link))
		require.NoError(t, clicks.InsertClickEvent(ctx, &models.ClickEvent{
			LinkID: link.ID, Device: models.DeviceDesktop, Browser: models.BrowserOther, CreatedAt: time.Now().UTC(),
		}))

		res, err := links.ConsumeClick(ctx, link.ID, time.Now().UTC(), true)
		require.NoError(t, err)
		assert.True(t, res.Deleted)

		n, err := clicks.CountClicks(ctx, link.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("aggregates", func(t *testing.T) {
		link := &models.Link{ShortCode: "pg-stats", OriginalURL: "https://example.com", IsActive: true}
		require.NoError(t, links.Create(ctx, link))
		ip := "8.8.8.8"
		for _, browser := range []string{models.BrowserFirefox, models.BrowserFirefox, models.BrowserEdge} {
			require.NoError(t, clicks.InsertClickEvent(ctx, &models.ClickEvent{
				LinkID: link.ID, IP: &ip, Device: models.DeviceDesktop, Browser: browser, CreatedAt: time.Now().UTC(),
			}))
		}

		items, err := clicks.Breakdown(ctx, link.ID, models.DimensionBrowser)
		require.NoError(t, err)
		assert.Equal(t, []models.BreakdownItem{{Label: "Firefox", Count: 2}, {Label: "Edge", Count: 1}}, items)

		unique, err := clicks.CountUniqueIPs(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), unique)

		daily, err := clicks.DailyEventCounts(ctx, link.ID, models.DayStart(time.Now()))
		require.NoError(t, err)
		require.Len(t, daily, 1)
		assert.Equal(t, int64(3), daily[0].Clicks)
	})

	t.Run("sweep", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Hour)
		link := &models.Link{ShortCode: "pg-old", OriginalURL: "https://example.com", IsActive: true, ExpiresAt: &past}
		require.NoError(t, links.Create(ctx, link))

		n, err := links.DeleteExpired(ctx, time.Now().UTC())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
