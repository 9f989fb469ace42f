package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bookstore/internal/domain"
	"github.com/utafrali/bookstore/pkg/httputil"
)

// SellerHandler serves the seller directory.
type SellerHandler struct {
	catalog CatalogReader
	logger  *slog.Logger
}

// NewSellerHandler creates a new seller HTTP handler.
func NewSellerHandler(c CatalogReader, logger *slog.Logger) *SellerHandler {
	return &SellerHandler{catalog: c, logger: logger}
}

// ListSellers handles GET /api/v1/sellers
func (h *SellerHandler) ListSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.catalog.ListSellers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if sellers == nil {
		sellers = []domain.Seller{}
	}

	writeData(w, http.StatusOK, sellers)
}

// GetSeller handles GET /api/v1/sellers/{id}
func (h *SellerHandler) GetSeller(w http.ResponseWriter, r *http.Request) {
	seller, err := h.catalog.GetSeller(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, seller)
}
