package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine persists one cart line item; at most one row per product.
type CartLine struct {
	ProductID int64           `gorm:"column:product_id;primaryKey"`
	Title     string          `gorm:"column:title;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:NUMERIC;not null"`
	Image     string          `gorm:"column:image"`
	Quantity  int             `gorm:"column:quantity;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}
