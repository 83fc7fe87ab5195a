package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/pkg/enums"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// Order is a frozen snapshot created once at checkout. Totals are never
// recomputed afterward, even if catalog prices change.
// Invariant: Total = Subtotal - DiscountTotal + ShippingTotal, and the
// sum of item amounts equals Subtotal - DiscountTotal exactly.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string            `gorm:"column:code;not null;uniqueIndex"`
	AccessKey     string            `gorm:"column:access_key;not null;uniqueIndex"`
	UserID        *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	PromoCodeID   *uuid.UUID        `gorm:"column:promo_code_id;type:uuid"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'created';index"`
	Currency      enums.Currency    `gorm:"column:currency;not null;default:'RUB'"`
	Subtotal      money.Money       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal money.Money       `gorm:"column:discount_total;type:numeric(12,2);not null"`
	ShippingTotal money.Money       `gorm:"column:shipping_total;type:numeric(12,2);not null"`
	Total         money.Money       `gorm:"column:total;type:numeric(12,2);not null"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is immutable once created. Amount is the authoritative line
// total produced by the allocator; Price is derived from it as
// round(amount / quantity, 2) and is informational only.
type OrderItem struct {
	ID        uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID   `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID uuid.UUID   `gorm:"column:variant_id;type:uuid;not null"`
	Price     money.Money `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity  int         `gorm:"column:quantity;not null"`
	Amount    money.Money `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
}
