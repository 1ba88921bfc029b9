// Package sqlite implements the repositories with gorm on SQLite. It backs
// single-node deployments (DB_DRIVER=sqlite) and the service tests.
package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BaseRepository struct {
	db *gorm.DB
}

func (r *BaseRepository) GetDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// LinkRepository handles all link database operations.
type LinkRepository struct {
	*BaseRepository
}

func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{&BaseRepository{db: db}}
}

func (r *LinkRepository) Create(ctx context.Context, link *models.Link) error {
	repository.PrepareLink(link, time.Now().UTC())

	if err := r.GetDB(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrAlreadyExists
		}
		return errors.Wrapf(err, "failed to create link %s", link.ShortCode)
	}
	return nil
}

func (r *LinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	var link models.Link
	if err := r.GetDB(ctx).Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		return nil, notFound(err, "failed to get link by short code %s", shortCode)
	}
	return &link, nil
}

func (r *LinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	var link models.Link
	if err := r.GetDB(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		return nil, notFound(err, "failed to get link %s", id)
	}
	return &link, nil
}

func (r *LinkRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	var n int64
	if err := r.GetDB(ctx).Model(&models.Link{}).Where("short_code = ?", shortCode).Count(&n).Error; err != nil {
		return false, errors.Wrapf(err, "failed to check short code %s", shortCode)
	}
	return n > 0, nil
}

func (r *LinkRepository) ListByOwner(ctx context.Context, userID string) ([]models.Link, error) {
	links := []models.Link{}
	err := r.GetDB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list links of %s", userID)
	}
	return links, nil
}

// Deactivate clears is_active; already inactive links are left untouched.
func (r *LinkRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res := r.GetDB(ctx).Model(&models.Link{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to deactivate link %s", id)
	}
	if res.RowsAffected == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

// Delete removes a link together with its events and history.
func (r *LinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var affected int64
	err := r.GetDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChildren(tx, "link_id = ?", id); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Link{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return errors.Wrapf(err, "failed to delete link %s", id)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *LinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var affected int64
	err := r.GetDB(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.Link{}).Select("id").
			Where("expires_at IS NOT NULL AND expires_at < ?", now.UTC())
		if err := deleteChildren(tx, "link_id IN (?)", expired); err != nil {
			return err
		}
		res := tx.Where("expires_at IS NOT NULL AND expires_at < ?", now.UTC()).Delete(&models.Link{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired links")
	}
	return affected, nil
}

// ConsumeClick runs the guarded increment, the daily upsert and the
// one-time deletion in one transaction. See the postgres implementation
// for the contract.
func (r *LinkRepository) ConsumeClick(ctx context.Context, id uuid.UUID, at time.Time, deleteOneTime bool) (*models.ConsumeResult, error) {
	at = at.UTC()
	result := &models.ConsumeResult{}

	err := r.GetDB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Link{}).
			Where("id = ? AND is_active = ?", id, true).
			Where("(expires_at IS NULL OR expires_at > ?)", at).
			Where("(max_clicks IS NULL OR clicks < max_clicks)").
			Updates(map[string]any{
				"clicks":         gorm.Expr("clicks + 1"),
				"last_access_at": at,
				"updated_at":     at,
				"is_active":      gorm.Expr("CASE WHEN is_one_time THEN ? ELSE is_active END", false),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "increment clicks")
		}
		if res.RowsAffected == 0 {
			return nil
		}
		result.Accepted = true

		var after models.Link
		if err := tx.Select("clicks", "is_one_time").Where("id = ?", id).First(&after).Error; err != nil {
			return errors.Wrap(err, "read counter")
		}
		result.Clicks = after.Clicks

		history := models.DailyClicks{LinkID: id, Day: models.DayStart(at), Clicks: 1}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "link_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{"clicks": gorm.Expr("clicks + 1")}),
		}).Create(&history).Error
		if err != nil {
			return errors.Wrap(err, "upsert click history")
		}

		if !after.IsOneTime {
			return nil
		}
		if deleteOneTime {
			if err := deleteChildren(tx, "link_id = ?", id); err != nil {
				return err
			}
			if err := tx.Where("id = ?", id).Delete(&models.Link{}).Error; err != nil {
				return errors.Wrap(err, "delete one-time link")
			}
			result.Deleted = true
			return nil
		}
		result.Deactivated = true
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to consume click on %s", id)
	}
	return result, nil
}

func (r *LinkRepository) DailyClicks(ctx context.Context, id uuid.UUID, from, to time.Time) ([]models.DailyCount, error) {
	var rows []models.DailyClicks
	err := r.GetDB(ctx).
		Where("link_id = ? AND day >= ? AND day <= ?", id, models.DayStart(from), models.DayStart(to)).
		Order("day").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read click history of %s", id)
	}

	counts := make([]models.DailyCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, models.DailyCount{Date: row.Day.UTC().Format(models.DateLayout), Clicks: row.Clicks})
	}
	return counts, nil
}

// deleteChildren removes events and history matching cond. SQLite does not
// enforce the cascade unless foreign keys are switched on per connection.
func deleteChildren(tx *gorm.DB, cond string, arg any) error {
	if err := tx.Where(cond, arg).Delete(&models.ClickEvent{}).Error; err != nil {
		return errors.Wrap(err, "delete click events")
	}
	if err := tx.Where(cond, arg).Delete(&models.DailyClicks{}).Error; err != nil {
		return errors.Wrap(err, "delete click history")
	}
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return errors.Wrapf(err, format, args...)
}
