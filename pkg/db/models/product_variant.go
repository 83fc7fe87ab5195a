package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// ProductVariant is the read-only price/quantity source the cart core
// consumes. Catalog management lives outside this service.
type ProductVariant struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       string      `gorm:"column:sku;not null;uniqueIndex"`
	Title     string      `gorm:"column:title;not null"`
	Price     money.Money `gorm:"column:price;type:numeric(12,2);not null"`
	Inventory int         `gorm:"column:inventory;not null;default:0"`
	IsActive  bool        `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
