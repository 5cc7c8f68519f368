package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

// CatalogService is the product read path.
type CatalogService interface {
	ListProducts(ctx context.Context, p pagination.Params) (pagination.Page[domain.Product], error)
	Product(ctx context.Context, id string) (domain.Product, error)
}

var _ CatalogService = (*catalog.Service)(nil)

// CatalogHandler handles HTTP requests for product endpoints.
type CatalogHandler struct {
	catalog CatalogService
	cart    *cart.Store
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc CatalogService, store *cart.Store, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: svc, cart: store, logger: logger}
}

// AddToCartRequest picks the variant and quantity of a product to add.
type AddToCartRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

// ListProducts handles GET /api/v1/products?first=&after=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalog.ListProducts(r.Context(), pagination.FromRequest(r))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// AddToCart handles POST /api/v1/products/{id}/cart. The price comes from
// the backend, never from the request.
func (h *CatalogHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	c, err := catalog.Candidate(p, req.VariantID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if _, err := h.cart.AddItem(c, req.Quantity); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.cart.Snapshot())
}
