package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/bookstore/internal/catalog"
	"github.com/utafrali/bookstore/internal/domain"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/httputil"
	"github.com/utafrali/bookstore/pkg/pagination"
)

// CatalogReader is the read side of the book backend.
type CatalogReader interface {
	ListBooks(ctx context.Context, p catalog.ListParams) ([]domain.Book, error)
	SearchBooks(ctx context.Context, p catalog.SearchParams) ([]domain.Book, error)
	FeaturedBooks(ctx context.Context, limit int) ([]domain.Book, error)
	GetBook(ctx context.Context, id string) (domain.Book, error)
	ListSellers(ctx context.Context) ([]domain.Seller, error)
	GetSeller(ctx context.Context, id string) (domain.Seller, error)
}

// BookHandler serves catalog reads directly and routes seller writes
// through the caller's storefront.
type BookHandler struct {
	catalog  CatalogReader
	sessions Sessions
	logger   *slog.Logger
}

// NewBookHandler creates a new book HTTP handler.
func NewBookHandler(c CatalogReader, sessions Sessions, logger *slog.Logger) *BookHandler {
	return &BookHandler{catalog: c, sessions: sessions, logger: logger}
}

// ListBooks handles GET /api/v1/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r, catalog.DefaultLimit)

	books, err := h.catalog.ListBooks(r.Context(), catalog.ListParams{
		Page:   p.Page,
		Limit:  p.Limit,
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, httputil.NewPage(books, p.Page, p.Limit))
}

// FeaturedBooks handles GET /api/v1/books/featured
func (h *BookHandler) FeaturedBooks(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if limit < 1 || limit > pagination.MaxLimit {
		limit = catalog.DefaultFeaturedLimit
	}

	books, err := h.catalog.FeaturedBooks(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, httputil.NewPage(books, 1, limit))
}

// SearchBooks handles GET /api/v1/books/search
func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	params, err := searchParams(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	books, err := h.catalog.SearchBooks(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, httputil.NewPage(books, params.Page, params.Limit))
}

func searchParams(r *http.Request) (catalog.SearchParams, error) {
	q := r.URL.Query()
	page := pagination.FromRequest(r, catalog.DefaultLimit)
	p := catalog.SearchParams{
		Query:     q.Get("q"),
		Author:    q.Get("author"),
		Genre:     q.Get("genre"),
		Condition: q.Get("condition"),
		Status:    q.Get("status"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Page:      page.Page,
		Limit:     page.Limit,
	}

	var err error
	if p.MinPrice, err = queryDecimal(q, "min_price"); err != nil {
		return p, err
	}
	if p.MaxPrice, err = queryDecimal(q, "max_price"); err != nil {
		return p, err
	}
	if p.MinPrice.Valid && p.MaxPrice.Valid && p.MinPrice.Decimal.GreaterThan(p.MaxPrice.Decimal) {
		return p, apperrors.InvalidInput("min_price must not exceed max_price")
	}
	if p.MinYear, err = queryInt(q, "min_year"); err != nil {
		return p, err
	}
	if p.MaxYear, err = queryInt(q, "max_year"); err != nil {
		return p, err
	}
	if o := strings.ToLower(p.SortOrder); o != "" && o != "asc" && o != "desc" {
		return p, apperrors.InvalidInput("sort_order must be asc or desc")
	}
	return p, nil
}

// queryInt returns 0 when key is absent.
func queryInt(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be a whole number", key))
	}
	return n, nil
}

func queryDecimal(q url.Values, key string) (decimal.NullDecimal, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, apperrors.InvalidInput(fmt.Sprintf("%s must be a non-negative number", key))
	}
	return decimal.NewNullDecimal(d), nil
}

// GetBook handles GET /api/v1/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.catalog.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, book.Detail())
}

// CreateBook handles POST /api/v1/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var listing catalog.Listing
	if err := decodeJSON(w, r, &listing); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	book, err := sf.CreateListing(ctx, listing)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusCreated, book)
}

// UpdateBook handles PUT /api/v1/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	var listing catalog.Listing
	if err := decodeJSON(w, r, &listing); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	book, err := sf.UpdateListing(ctx, chi.URLParam(r, "id"), listing)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /api/v1/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	sf, ctx, err := openStorefront(r, h.sessions)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := sf.DeleteListing(ctx, chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
