package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/pkg/enums"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
)

// PromoCode is the promo policy record. Applicability is never cached:
// carts re-evaluate it against their current subtotal on every total
// computation. used_count only moves at successful checkout.
type PromoCode struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType  enums.DiscountType `gorm:"column:discount_type;not null;default:'percent'"`
	Amount        money.Money        `gorm:"column:amount;type:numeric(12,2);not null"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	StartsAt      *time.Time         `gorm:"column:starts_at"`
	EndsAt        *time.Time         `gorm:"column:ends_at"`
	UsageLimit    *int               `gorm:"column:usage_limit"`
	UsedCount     int                `gorm:"column:used_count;not null;default:0"`
	PerUserLimit  *int               `gorm:"column:per_user_limit"`
	MinOrderTotal *money.Money       `gorm:"column:min_order_total;type:numeric(12,2)"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
