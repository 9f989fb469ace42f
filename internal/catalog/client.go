// Package catalog reads and writes books through the book backend and
// derives sellers from the listings.
package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/bookstore/internal/coerce"
	"github.com/utafrali/bookstore/internal/domain"
	"github.com/utafrali/bookstore/internal/upstream"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/validator"
)

// Defaults applied by the book backend when paging is not given.
const (
	DefaultPage          = 1
	DefaultLimit         = 10
	DefaultFeaturedLimit = 6
)

// ListParams selects a page of the catalog.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		v.Set("search", s)
	}
	return v
}

// SearchParams are the advanced search filters.
type SearchParams struct {
	Query     string
	Author    string
	Genre     string
	Condition string
	Status    string
	MinPrice  decimal.NullDecimal
	MaxPrice  decimal.NullDecimal
	MinYear   int
	MaxYear   int
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s = strings.TrimSpace(s); s != "" {
			v.Set(k, s)
		}
	}
	setInt := func(k string, n int) {
		if n > 0 {
			v.Set(k, strconv.Itoa(n))
		}
	}
	set("q", p.Query)
	set("author", p.Author)
	set("genre", p.Genre)
	set("condition", p.Condition)
	set("status", p.Status)
	if p.MinPrice.Valid {
		v.Set("min_price", p.MinPrice.Decimal.String())
	}
	if p.MaxPrice.Valid {
		v.Set("max_price", p.MaxPrice.Decimal.String())
	}
	setInt("min_year", p.MinYear)
	setInt("max_year", p.MaxYear)
	set("sort_by", p.SortBy)
	set("sort_order", p.SortOrder)
	setInt("page", p.Page)
	setInt("limit", p.Limit)
	return v
}

// Client is the book backend client.
type Client struct {
	caller *upstream.Caller
	logger *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(caller *upstream.Caller, logger *slog.Logger) *Client {
	return &Client{caller: caller, logger: logger}
}

// ListBooks returns one page of the catalog.
func (c *Client) ListBooks(ctx context.Context, p ListParams) ([]domain.Book, error) {
	return c.list(ctx, "/books", p.values())
}

// SearchBooks runs an advanced search.
func (c *Client) SearchBooks(ctx context.Context, p SearchParams) ([]domain.Book, error) {
	return c.list(ctx, "/books/search", p.values())
}

// FeaturedBooks returns the featured selection.
func (c *Client) FeaturedBooks(ctx context.Context, limit int) ([]domain.Book, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return c.list(ctx, "/books/featured", v)
}

func (c *Client) list(ctx context.Context, path string, query url.Values) ([]domain.Book, error) {
	body, err := c.caller.Do(ctx, upstream.Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	books, warnings := decodeBooks(body)
	c.warn(ctx, path, warnings)
	return books, nil
}

// GetBook returns one book.
func (c *Client) GetBook(ctx context.Context, id string) (domain.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Book{}, apperrors.InvalidInput("book id is required")
	}

	path := "/book/" + url.PathEscape(id)
	body, err := c.caller.Do(ctx, upstream.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return domain.Book{}, err
	}
	book, warnings, ok := decodeSingle(body)
	c.warn(ctx, path, warnings)
	if !ok {
		return domain.Book{}, apperrors.DataShape(c.caller.Name(), "book record has no id")
	}
	return book, nil
}

// CreateBook lists a new book for sellerID.
func (c *Client) CreateBook(ctx context.Context, token, sellerID string, l Listing) (domain.Book, error) {
	l.Normalize()
	if err := validator.Validate(l); err != nil {
		return domain.Book{}, err
	}

	body, err := c.caller.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/books",
		Body:   l.payload(sellerID),
		Bearer: token,
	})
	if err != nil {
		return domain.Book{}, err
	}
	return c.writtenBook(ctx, "/books", body, l, "", sellerID), nil
}

// UpdateBook replaces the listing with the given id. The backend only
// addresses books by number.
func (c *Client) UpdateBook(ctx context.Context, token, id, sellerID string, l Listing) (domain.Book, error) {
	num, err := numericID(id)
	if err != nil {
		return domain.Book{}, err
	}
	l.Normalize()
	if err := validator.Validate(l); err != nil {
		return domain.Book{}, err
	}

	path := "/book/" + num
	body, err := c.caller.Do(ctx, upstream.Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   l.payload(sellerID),
		Bearer: token,
	})
	if err != nil {
		return domain.Book{}, err
	}
	return c.writtenBook(ctx, path, body, l, num, sellerID), nil
}

// DeleteBook removes a listing. The review-preserving endpoint is tried
// first; if it fails for any reason the standard endpoint is used.
func (c *Client) DeleteBook(ctx context.Context, token, id string) error {
	num, err := numericID(id)
	if err != nil {
		return err
	}

	_, err = c.caller.Do(ctx, upstream.Request{
		Method: http.MethodDelete,
		Path:   "/api/books/" + num + "/delete-preserve-reviews",
		Bearer: token,
	})
	if err == nil {
		return nil
	}
	c.logger.WarnContext(ctx, "review-preserving delete failed, falling back",
		slog.String("book_id", num),
		slog.String("error", err.Error()),
	)

	_, err = c.caller.Do(ctx, upstream.Request{
		Method: http.MethodDelete,
		Path:   "/book/" + num,
		Bearer: token,
	})
	return err
}

// writtenBook decodes the record echoed by a write, falling back to the
// submitted listing when the echo is unusable.
func (c *Client) writtenBook(ctx context.Context, path string, body []byte, l Listing, id, sellerID string) domain.Book {
	book, warnings, ok := decodeSingle(body)
	c.warn(ctx, path, warnings)
	if !ok {
		return l.book(id, sellerID)
	}
	return book
}

func (c *Client) warn(ctx context.Context, path string, warnings coerce.Warnings) {
	if len(warnings) == 0 {
		return
	}
	shape := apperrors.DataShape(c.caller.Name(), strings.Join(warnings, "; "))
	c.logger.WarnContext(ctx, "book response normalized",
		slog.String("path", path),
		slog.Int("warnings", len(warnings)),
		slog.String("error", shape.Error()),
	)
}

func numericID(id string) (string, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return "", apperrors.InvalidInput("book id must be a positive number")
	}
	return strconv.FormatInt(n, 10), nil
}
