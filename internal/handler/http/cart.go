package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	store  *cart.Store
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(store *cart.Store, logger *slog.Logger) *CartHandler {
	return &CartHandler{store: store, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON body for adding a line. A quantity below 1
// adds one unit.
type AddItemRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	VariantID   string `json:"variant_id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug"`
	Price       int64  `json:"price" validate:"gte=0"`
	Currency    string `json:"currency" validate:"required,iso4217"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	VariantName string `json:"variant_name,omitempty"`
	Quantity    int    `json:"quantity"`
}

func (r AddItemRequest) candidate() domain.Candidate {
	return domain.Candidate{
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		Name:        r.Name,
		Slug:        r.Slug,
		Price:       r.Price,
		Currency:    r.Currency,
		Thumbnail:   r.Thumbnail,
		VariantName: r.VariantName,
	}
}

// UpdateQuantityRequest is the JSON body for setting a line's quantity.
// Zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}

// AddItem handles POST /api/v1/cart/items. Currency codes are accepted in
// any case.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, r, fmt.Errorf("decode request body: %w", err))
		return
	}
	req.Currency = strings.ToUpper(req.Currency)
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if _, err := h.store.AddItem(req.candidate(), req.Quantity); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	h.store.UpdateQuantity(chi.URLParam(r, "id"), *req.Quantity)
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.store.RemoveItem(chi.URLParam(r, "id"))
	httputil.WriteData(w, http.StatusOK, h.store.Snapshot())
}
