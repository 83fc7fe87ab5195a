package orders

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/pagination"
)

// Page is one slice of a user's order history. NextCursor is empty on
// the last page.
type Page struct {
	Orders     []models.Order
	NextCursor string
}

// Service exposes order retrieval. Orders are created by checkout only.
type Service interface {
	GetByCode(ctx context.Context, code, accessKey string, userID *uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
}

type service struct {
	repo Repository
}

// NewService builds an orders service backed by the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// GetByCode returns the order when the caller presents its access key or
// is the owning user. Guests keep the key from the checkout response.
func (s *service) GetByCode(ctx context.Context, code, accessKey string, userID *uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, fmt.Errorf("loading order: %w", err)
	}

	if accessKey != "" && subtle.ConstantTimeCompare([]byte(accessKey), []byte(order.AccessKey)) == 1 {
		return order, nil
	}
	if userID != nil && order.UserID != nil && *order.UserID == *userID {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order access denied")
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page := &Page{Orders: rows}
	if len(rows) > limit {
		page.Orders = rows[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}
