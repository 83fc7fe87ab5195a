package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lightbikeshop/storefront-backend/api/middleware"
	"github.com/lightbikeshop/storefront-backend/api/responses"
	"github.com/lightbikeshop/storefront-backend/api/validators"
	internalorders "github.com/lightbikeshop/storefront-backend/internal/orders"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
	"github.com/lightbikeshop/storefront-backend/pkg/pagination"
)

// OrderDetail fetches one order by code. Access requires either the
// access key issued at checkout or ownership by the signed-in user; the
// access key is never echoed back on reads.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order code required"))
			return
		}
		accessKey := strings.TrimSpace(r.URL.Query().Get("key"))

		order, err := svc.GetByCode(r.Context(), code, accessKey, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderDTO(order, false))
	}
}

// OrdersList returns the signed-in user's orders, newest first.
func OrdersList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.ListForUser(r.Context(), *userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]OrderDTO, len(page.Orders))
		for i := range page.Orders {
			out[i] = newOrderDTO(&page.Orders[i], false)
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":      out,
			"next_cursor": page.NextCursor,
		})
	}
}
