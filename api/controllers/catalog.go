package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/api/responses"
	"github.com/lightbikeshop/storefront-backend/internal/catalog"
	pkgerrors "github.com/lightbikeshop/storefront-backend/pkg/errors"
	"github.com/lightbikeshop/storefront-backend/pkg/db/models"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
)

// VariantDTO is the storefront view of a purchasable variant.
type VariantDTO struct {
	ID        uuid.UUID `json:"id"`
	SKU       string    `json:"sku"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Inventory int       `json:"inventory"`
}

func newVariantDTO(v models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:        v.ID,
		SKU:       v.SKU,
		Title:     v.Title,
		Price:     v.Price.String(),
		Inventory: v.Inventory,
	}
}

// CatalogList returns the active variants in display order.
func CatalogList(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		variants, err := repo.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list variants"))
			return
		}

		out := make([]VariantDTO, len(variants))
		for i, v := range variants {
			out[i] = newVariantDTO(v)
		}
		responses.WriteSuccess(w, map[string]any{"variants": out})
	}
}
