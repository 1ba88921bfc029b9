package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/user/shortlinks/internal/models"
)

// LinkRepository is the persistent store of links. Implementations return
// repository.ErrNotFound and repository.ErrAlreadyExists.
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Link, error)
	Exists(ctx context.Context, shortCode string) (bool, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Link, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// ConsumeClick atomically counts one resolution if the link is still
	// active, unexpired at `at` and under quota.
	ConsumeClick(ctx context.Context, id uuid.UUID, at time.Time, deleteOneTime bool) (*models.ConsumeResult, error)
	DailyClicks(ctx context.Context, id uuid.UUID, from, to time.Time) ([]models.DailyCount, error)
}

// ClickRepository stores click events and answers aggregate queries.
type ClickRepository interface {
	InsertClickEvent(ctx context.Context, event *models.ClickEvent) error
	CountClicks(ctx context.Context, linkID uuid.UUID) (int64, error)
	CountUniqueIPs(ctx context.Context, linkID uuid.UUID) (int64, error)
	Breakdown(ctx context.Context, linkID uuid.UUID, dim models.Dimension) ([]models.BreakdownItem, error)
	DailyEventCounts(ctx context.Context, linkID uuid.UUID, since time.Time) ([]models.DailyCount, error)
}

// LinkCache holds link snapshots keyed by short code. A miss is nil, nil.
type LinkCache interface {
	Get(ctx context.Context, shortCode string) (*models.Link, error)
	Set(ctx context.Context, link *models.Link) error
	Invalidate(ctx context.Context, shortCode string) error
}

// GeoLocator resolves an IP to a location. A nil location means unknown.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) (*models.GeoLocation, error)
}

// QREncoder renders QR images for short URLs.
type QREncoder interface {
	PNG(content string) ([]byte, error)
	DataURL(content string) (string, error)
}

// ClickRecorder accepts clicks for asynchronous recording. Record must
// not block.
type ClickRecorder interface {
	Record(linkID uuid.UUID, rc models.RequestContext)
}
