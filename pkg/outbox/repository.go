package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, intent models.SyncIntent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&intent).Error
}

// FetchPendingForPush returns unpushed intents oldest-first, skipping rows
// already past the attempt budget.
func (r *Repository) FetchPendingForPush(tx *gorm.DB, limit, maxAttempts int) ([]models.SyncIntent, error) {
	if tx == nil {
		tx = r.db
	}
	var rows []models.SyncIntent
	err := tx.Where("published_at IS NULL AND attempt_count < ?", maxAttempts).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CountPending reports how many intents still wait for the sync worker.
func (r *Repository) CountPending() (int64, error) {
	var count int64
	err := r.db.Model(&models.SyncIntent{}).
		Where("published_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *Repository) MarkPushedTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.SyncIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now(),
		}).Error
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.SyncIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    err.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// MarkTerminalTx removes the intent from the pending set for good; the DLQ
// row carries the detail. published_at is stamped so neither the pending
// fetch nor CountPending ever sees the row again, whatever the attempt
// budget is later configured to.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.SyncIntent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_error":    err.Error(),
			"attempt_count": terminalAttempts,
			"published_at":  time.Now(),
		}).Error
}
