package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/user/shortlinks/internal/config"
	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/logging"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/repository/sqlite"
)

type testStore struct {
	links  *sqlite.LinkRepository
	clicks *sqlite.ClickRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := database.NewSQLite(database.MemorySQLiteDSN(uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseSQLite(db) })

	return &testStore{
		links:  sqlite.NewLinkRepository(db),
		clicks: sqlite.NewClickRepository(db),
	}
}

func testShortenerConfig() config.ShortenerConfig {
	cfg := config.Load().Shortener
	cfg.BaseURL = "https://sho.rt"
	cfg.ExpiryPolicy = config.PolicyDeactivate
	return cfg
}

// memCache is an in-process LinkCache that counts invalidations.
type memCache struct {
	mu            sync.Mutex
	items         map[string]models.Link
	invalidations map[string]int
}

func newMemCache() *memCache {
	return &memCache{items: map[string]models.Link{}, invalidations: map[string]int{}}
}

func (c *memCache) Get(_ context.Context, code string) (*models.Link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link, ok := c.items[code]
	if !ok {
		return nil, nil
	}
	return &link, nil
}

func (c *memCache) Set(_ context.Context, link *models.Link) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[link.ShortCode] = *link
	return nil
}

func (c *memCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, code)
	c.invalidations[code]++
	return nil
}

func (c *memCache) invalidated(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations[code]
}

// captureRecorder collects Record calls synchronously.
type captureRecorder struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (r *captureRecorder) Record(linkID uuid.UUID, _ models.RequestContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, linkID)
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type stubQR struct{ err error }

func (q stubQR) PNG(content string) ([]byte, error) {
	if q.err != nil {
		return nil, q.err
	}
	return []byte("png:" + content), nil
}

func (q stubQR) DataURL(content string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	return "data:image/png;base64," + content, nil
}

var discardLog = logging.Discard()
