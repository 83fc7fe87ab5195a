package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the persistent per-user cart. The promo reference may point at
// a promo that is no longer applicable; totals re-check it lazily.
type Cart struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	PromoCodeID *uuid.UUID `gorm:"column:promo_code_id;type:uuid"`
	PromoCode   *PromoCode `gorm:"foreignKey:PromoCodeID"`
	Items       []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem holds one variant's quantity within a cart. One row per
// (cart, variant); quantity is mutated in place, never duplicated, and a
// row with quantity 0 must not exist.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:uniq_cart_variant"`
	VariantID uuid.UUID       `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:uniq_cart_variant"`
	Variant   *ProductVariant `gorm:"foreignKey:VariantID"`
	Quantity  int             `gorm:"column:quantity;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
