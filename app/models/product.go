package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Product is a catalog entity. SKU keeps the casing of the last write that
// touched it; NormalizedSKU is the case-insensitive identity used for
// matching and carries the unique index.
type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SKU           string    `gorm:"type:varchar(255);not null" json:"sku" validate:"required,max=255"`
	NormalizedSKU string    `gorm:"uniqueIndex:ux_products_normalized_sku;type:varchar(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin;not null" json:"-"`
	Name          string    `gorm:"type:varchar(500);not null" json:"name" validate:"required,max=500"`
	Description   *string   `gorm:"type:text" json:"description"`
	Active        bool      `gorm:"type:tinyint(1);default:1;not null" json:"active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

func (p *Product) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// NormalizeSKU folds a raw SKU into its canonical comparable form: trimmed
// and lowercased byte-wise, so two runs over the same input always agree
// regardless of locale.
func NormalizeSKU(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
