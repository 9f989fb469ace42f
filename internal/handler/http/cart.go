package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bookstore/internal/coerce"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/httputil"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	sessions Sessions
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(sessions Sessions, logger *slog.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a book to the cart.
// The backend hands out numeric ids, so book_id may be a number or a string.
type AddItemRequest struct {
	BookID json.RawMessage `json:"book_id"`
}

// UpdateQuantityRequest is the JSON request body for setting a quantity.
// Quantity may be a number or the raw text typed into the quantity field.
type UpdateQuantityRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

// VisibilityRequest opens or closes the cart drawer.
type VisibilityRequest struct {
	Open *bool `json:"open"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sf, _, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sf.Cart())
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var warnings coerce.Warnings
	bookID := strings.TrimSpace(coerce.String(req.BookID, "book_id", &warnings))
	if bookID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("book_id is required"), h.logger)
		return
	}

	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	view, err := sf.AddBook(ctx, bookID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, view)
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{bookId}
//
// Input that is not a whole number leaves the cart as it was; a quantity
// below 1 removes the line.
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	raw, ok := quantityText(req.Quantity)
	if !ok {
		httputil.WriteError(w, r, apperrors.InvalidInput("quantity is required"), h.logger)
		return
	}

	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sf.SetQuantityText(ctx, chi.URLParam(r, "bookId"), raw))
}

// quantityText returns the quantity as text, whether it arrived as a JSON
// string or a JSON number.
func quantityText(raw json.RawMessage) (string, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", false
	}
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", false
		}
		return text, true
	}
	return s, true
}

// RemoveItem handles DELETE /api/v1/cart/items/{bookId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sf.RemoveItem(ctx, chi.URLParam(r, "bookId")))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sf.Clear(ctx))
}

// ToggleCart handles POST /api/v1/cart/toggle
func (h *CartHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	sf, _, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sf.ToggleCart())
}

// SetVisibility handles PUT /api/v1/cart/visibility
func (h *CartHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if req.Open == nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("open is required"), h.logger)
		return
	}

	sf, _, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, sf.SetCartOpen(*req.Open))
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	receipt, err := sf.Checkout(ctx)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, receipt)
}
