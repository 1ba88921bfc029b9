package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/models"
)

// breakdownColumns whitelists the columns a breakdown may group by.
var breakdownColumns = map[models.Dimension]string{
	models.DimensionDevice:  "device",
	models.DimensionBrowser: "browser",
	models.DimensionCountry: "country",
}

// ClickRepository stores and aggregates click events.
type ClickRepository struct {
	db *database.PostgresDB
}

// NewClickRepository creates a new click repository.
func NewClickRepository(db *database.PostgresDB) *ClickRepository {
	return &ClickRepository{db: db}
}

// InsertClickEvent appends one event.
func (r *ClickRepository) InsertClickEvent(ctx context.Context, event *models.ClickEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO click_events (id, link_id, ip, user_agent, referrer, country, city, device, browser, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		event.ID,
		event.LinkID,
		event.IP,
		event.UserAgent,
		event.Referrer,
		event.Country,
		event.City,
		event.Device,
		event.Browser,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}
	return nil
}

// CountClicks returns the number of events of a link.
func (r *ClickRepository) CountClicks(ctx context.Context, linkID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM click_events WHERE link_id = $1`, linkID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return n, nil
}

// CountUniqueIPs returns the number of distinct non-null IPs of a link.
func (r *ClickRepository) CountUniqueIPs(ctx context.Context, linkID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT ip) FROM click_events WHERE link_id = $1 AND ip IS NOT NULL`, linkID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unique IPs: %w", err)
	}
	return n, nil
}

// Breakdown groups a link's events by dim, largest bucket first. Events
// with no value for dim are left out.
func (r *ClickRepository) Breakdown(ctx context.Context, linkID uuid.UUID, dim models.Dimension) ([]models.BreakdownItem, error) {
	column, ok := breakdownColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unknown breakdown dimension %q", dim)
	}

	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n FROM click_events
		 WHERE link_id = $1 AND %[1]s IS NOT NULL
		 GROUP BY %[1]s
		 ORDER BY n DESC, %[1]s ASC
	`, column)

	rows, err := r.db.Pool.Query(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to break down by %s: %w", column, err)
	}
	defer rows.Close()

	items := []models.BreakdownItem{}
	for rows.Next() {
		var item models.BreakdownItem
		if err := rows.Scan(&item.Label, &item.Count); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to break down by %s: %w", column, err)
	}
	return items, nil
}

// DailyEventCounts counts a link's events per UTC day since `since`,
// oldest first. Days without events are absent.
func (r *ClickRepository) DailyEventCounts(ctx context.Context, linkID uuid.UUID, since time.Time) ([]models.DailyCount, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT (created_at AT TIME ZONE 'UTC')::date AS day, COUNT(*)
		  FROM click_events
		 WHERE link_id = $1 AND created_at >= $2
		 GROUP BY day
		 ORDER BY day
	`, linkID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count daily events: %w", err)
	}
	defer rows.Close()

	counts := []models.DailyCount{}
	for rows.Next() {
		var day time.Time
		var n int64
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan daily events: %w", err)
		}
		counts = append(counts, models.DailyCount{Date: day.Format(models.DateLayout), Clicks: n})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count daily events: %w", err)
	}
	return counts, nil
}
