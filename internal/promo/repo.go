package promo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
)

// ErrUsageExhausted signals a guarded increment that found no headroom
// left under usage_limit.
var ErrUsageExhausted = errors.New("promo usage limit exhausted")

// Repository defines persistence operations for promo codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	CountOrdersByUserAndPromo(ctx context.Context, userID, promoID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promo repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByCode looks up a promo case-insensitively, trimming surrounding
// whitespace the way customers type codes.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = LOWER(?)", strings.TrimSpace(code)).
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// IncrementUsage bumps used_count while re-checking the global limit, so
// two concurrent checkouts cannot both consume the last slot.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ?", id).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUsageExhausted
	}
	return nil
}

// CountOrdersByUserAndPromo reports how many orders the user already
// placed with the promo; feeds the per-user limit check.
func (r *repository) CountOrdersByUserAndPromo(ctx context.Context, userID, promoID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ? AND promo_code_id = ?", userID, promoID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
