// Package postgres implements the repositories on top of a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/repository"
)

const linkColumns = `id, short_code, original_url, is_active, expires_at, max_clicks,
	is_one_time, clicks, user_id, qr_code, created_at, updated_at, last_access_at`

// LinkRepository handles all link database operations.
type LinkRepository struct {
	db *database.PostgresDB
}

// NewLinkRepository creates a new link repository.
func NewLinkRepository(db *database.PostgresDB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a new link. Returns repository.ErrAlreadyExists if the
// short code is taken.
func (r *LinkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	repository.PrepareLink(link, time.Now().UTC())

	_, err := r.db.Pool.Exec(ctx, query,
		link.ID,
		link.ShortCode,
		link.OriginalURL,
		link.IsActive,
		link.ExpiresAt,
		link.MaxClicks,
		link.IsOneTime,
		link.Clicks,
		link.UserID,
		link.QRCode,
		link.CreatedAt,
		link.UpdatedAt,
		link.LastAccessAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetByShortCode retrieves a link by its short code.
func (r *LinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1`
	return r.getOne(ctx, query, shortCode)
}

// GetByID retrieves a link by its ID.
func (r *LinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *LinkRepository) getOne(ctx context.Context, query string, arg any) (*models.Link, error) {
	link, err := scanLink(r.db.Pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

// Exists checks if a short code is already taken.
func (r *LinkRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM links WHERE short_code = $1)`, shortCode,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// ListByOwner returns the owner's links, newest first.
func (r *LinkRepository) ListByOwner(ctx context.Context, userID string) ([]models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// Deactivate clears is_active. It is a no-op for already inactive links
// and returns repository.ErrNotFound only when the row is gone.
func (r *LinkRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE links SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.ensureExists(ctx, id)
	}
	return nil
}

// Delete removes a link. Click events and history cascade.
func (r *LinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteExpired removes every link whose expiry is before now and returns
// how many were removed.
func (r *LinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM links WHERE expires_at IS NOT NULL AND expires_at < $1`, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired links: %w", err)
	}
	return result.RowsAffected(), nil
}

// ConsumeClick performs the click accounting of one resolution in a
// single transaction:
//  1. increment the counter, guarded by every liveness condition
//  2. bump the daily aggregate
//  3. delete a consumed one-time link when deleteOneTime is set
//
// A guard that matches no row yields Accepted=false and changes nothing.
func (r *LinkRepository) ConsumeClick(ctx context.Context, id uuid.UUID, at time.Time, deleteOneTime bool) (*models.ConsumeResult, error) {
	result := &models.ConsumeResult{}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var oneTime bool
		err := tx.QueryRow(ctx, `
			UPDATE links
			   SET clicks = clicks + 1,
			       last_access_at = $2,
			       updated_at = $2,
			       is_active = CASE WHEN is_one_time THEN FALSE ELSE is_active END
			 WHERE id = $1
			   AND is_active
			   AND (expires_at IS NULL OR expires_at > $2)
			   AND (max_clicks IS NULL OR clicks < max_clicks)
			RETURNING clicks, is_one_time
		`, id, at).Scan(&result.Clicks, &oneTime)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("increment clicks: %w", err)
		}
		result.Accepted = true

		_, err = tx.Exec(ctx, `
			INSERT INTO click_history (link_id, day, clicks)
			VALUES ($1, $2, 1)
			ON CONFLICT (link_id, day) DO UPDATE SET clicks = click_history.clicks + 1
		`, id, models.DayStart(at))
		if err != nil {
			return fmt.Errorf("upsert click history: %w", err)
		}

		if !oneTime {
			return nil
		}
		if deleteOneTime {
			if _, err := tx.Exec(ctx, `DELETE FROM links WHERE id = $1`, id); err != nil {
				return fmt.Errorf("delete one-time link: %w", err)
			}
			result.Deleted = true
			return nil
		}
		result.Deactivated = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to consume click: %w", err)
	}
	return result, nil
}

// DailyClicks returns the stored daily aggregates in [from, to], oldest first.
func (r *LinkRepository) DailyClicks(ctx context.Context, id uuid.UUID, from, to time.Time) ([]models.DailyCount, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT day, clicks FROM click_history
		 WHERE link_id = $1 AND day >= $2 AND day <= $3
		 ORDER BY day
	`, id, models.DayStart(from), models.DayStart(to))
	if err != nil {
		return nil, fmt.Errorf("failed to read click history: %w", err)
	}
	defer rows.Close()

	counts := []models.DailyCount{}
	for rows.Next() {
		var day time.Time
		var clicks int64
		if err := rows.Scan(&day, &clicks); err != nil {
			return nil, fmt.Errorf("failed to scan click history: %w", err)
		}
		counts = append(counts, models.DailyCount{Date: day.Format(models.DateLayout), Clicks: clicks})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read click history: %w", err)
	}
	return counts, nil
}

func (r *LinkRepository) ensureExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return nil
}

func scanLink(row pgx.Row) (*models.Link, error) {
	link := &models.Link{}
	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.IsActive,
		&link.ExpiresAt,
		&link.MaxClicks,
		&link.IsOneTime,
		&link.Clicks,
		&link.UserID,
		&link.QRCode,
		&link.CreatedAt,
		&link.UpdatedAt,
		&link.LastAccessAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
