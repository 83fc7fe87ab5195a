package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbikeshop/storefront-backend/api/middleware"
	internalorders "github.com/lightbikeshop/storefront-backend/internal/orders"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
	"github.com/lightbikeshop/storefront-backend/pkg/pagination"
	"github.com/lightbikeshop/storefront-backend/pkg/types"
)

type ordersServiceStub struct {
	order   *models.Order
	err     error
	listErr error
	list    []models.Order
}

func (s *ordersServiceStub) GetByCode(_ context.Context, _, _ string, _ *uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *ordersServiceStub) ListForUser(_ context.Context, _ uuid.UUID, _ pagination.Params) (*internalorders.Page, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &internalorders.Page{Orders: s.list}, nil
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		Code:          "A2B3C4D5E6",
		AccessKey:     "secret-key",
		Status:        enums.OrderStatusCreated,
		Currency:      enums.CurrencyRUB,
		Subtotal:      money.MustFromString("63.33"),
		DiscountTotal: money.MustFromString("6.33"),
		ShippingTotal: money.MustFromString("0.00"),
		Total:         money.MustFromString("57.00"),
		Items: []models.OrderItem{
			{VariantID: uuid.New(), Price: money.MustFromString("19.00"), Quantity: 3, Amount: money.MustFromString("57.00")},
		},
	}
}

func orderDetailRequest(code string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+code+"?key=secret-key", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("code", code)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestOrderDetailHidesAccessKey(t *testing.T) {
	stub := &ordersServiceStub{order: sampleOrder()}

	w := httptest.NewRecorder()
	OrderDetail(stub, nil)(w, orderDetailRequest("A2B3C4D5E6"))

	require.Equal(t, http.StatusOK, w.Code)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	data := envelope.Data.(map[string]any)
	assert.Equal(t, "A2B3C4D5E6", data["code"])
	assert.Equal(t, "57.00", data["total"])

	// the access key is write-once at checkout, never echoed on reads
	_, present := data["access_key"]
	assert.False(t, present)
}

func TestOrderDetailForbidden(t *testing.T) {
	stub := &ordersServiceStub{err: pkgerrors.New(pkgerrors.CodeForbidden, "access denied")}

	w := httptest.NewRecorder()
	OrderDetail(stub, nil)(w, orderDetailRequest("A2B3C4D5E6"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrdersListRequiresUser(t *testing.T) {
	stub := &ordersServiceStub{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	w := httptest.NewRecorder()
	OrdersList(stub, nil)(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrdersListForUser(t *testing.T) {
	stub := &ordersServiceStub{list: []models.Order{*sampleOrder()}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	userID := uuid.New()
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	OrdersList(stub, nil)(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	data := envelope.Data.(map[string]any)
	orders := data["orders"].([]any)
	assert.Len(t, orders, 1)
}
