package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/api/middleware"
	"github.com/lightbikeshop/storefront-backend/api/responses"
	checkoutsvc "github.com/lightbikeshop/storefront-backend/internal/checkout"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
)

// OrderItemDTO is one immutable order line with its allocated amount.
type OrderItemDTO struct {
	VariantID uuid.UUID `json:"variant_id"`
	Price     string    `json:"price"`
	Quantity  int       `json:"quantity"`
	Amount    string    `json:"amount"`
}

// OrderDTO is the client view of a placed order. The access key is
// returned once at checkout so guests can retrieve the order later.
type OrderDTO struct {
	Code          string         `json:"code"`
	AccessKey     string         `json:"access_key,omitempty"`
	Status        string         `json:"status"`
	Currency      string         `json:"currency"`
	Subtotal      string         `json:"subtotal"`
	DiscountTotal string         `json:"discount_total"`
	ShippingTotal string         `json:"shipping_total"`
	Total         string         `json:"total"`
	Items         []OrderItemDTO `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newOrderDTO(o *models.Order, includeAccessKey bool) OrderDTO {
	dto := OrderDTO{
		Code:          o.Code,
		Status:        string(o.Status),
		Currency:      string(o.Currency),
		Subtotal:      o.Subtotal.String(),
		DiscountTotal: o.DiscountTotal.String(),
		ShippingTotal: o.ShippingTotal.String(),
		Total:         o.Total.String(),
		Items:         make([]OrderItemDTO, len(o.Items)),
		CreatedAt:     o.CreatedAt,
	}
	if includeAccessKey {
		dto.AccessKey = o.AccessKey
	}
	for i, item := range o.Items {
		dto.Items[i] = OrderItemDTO{
			VariantID: item.VariantID,
			Price:     item.Price.String(),
			Quantity:  item.Quantity,
			Amount:    item.Amount.String(),
		}
	}
	return dto
}

// Checkout converts the request's cart into an order.
func Checkout(svc checkoutsvc.Service, resolver *CartResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		c, source, err := resolver.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), c, checkoutsvc.Input{
			UserID: middleware.UserIDFromContext(r.Context()),
			Source: source,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderDTO(order, true))
	}
}
