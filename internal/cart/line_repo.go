package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
)

// LineRepository manages the persistent cart lines in the local store.
type LineRepository struct {
	db *gorm.DB
}

// NewLineRepository binds the repository to the provided DB handle.
func NewLineRepository(db *gorm.DB) Repository {
	return &LineRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *LineRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &LineRepository{db: tx}
}

// LoadAll returns every persisted cart line, oldest first.
func (r *LineRepository) LoadAll(ctx context.Context) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("product_id ASC").
		Find(&lines).Error
	return lines, err
}

// ReplaceAll deletes existing lines and inserts the provided ones. Passing an
// empty slice clears the table.
func (r *LineRepository) ReplaceAll(ctx context.Context, lines []models.CartLine) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("1 = 1").Delete(&models.CartLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return tx.Create(&lines).Error
}
