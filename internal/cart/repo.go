package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
)

// Repository defines the local persistence surface required by the cart
// service. The store only supports whole-cart overwrites.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LoadAll(ctx context.Context) ([]models.CartLine, error)
	ReplaceAll(ctx context.Context, lines []models.CartLine) error
}
