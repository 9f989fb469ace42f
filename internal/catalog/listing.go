package catalog

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/bookstore/internal/domain"
)

// Listing is the sell form for a new or edited book.
type Listing struct {
	Title       string          `json:"title" validate:"required,min=2,max=255"`
	Author      string          `json:"author" validate:"required,min=2,max=255"`
	Price       decimal.Decimal `json:"price" validate:"required,gt=0,lte=1000"`
	Description string          `json:"description" validate:"required,min=10,max=2000"`
	Condition   string          `json:"condition" validate:"required,oneof=New 'Like New' 'Very Good' Good Fair Poor"`
	Format      string          `json:"format" validate:"required,oneof=Hardcover Paperback 'Mass Market Paperback' E-book Audiobook Other"`
	ISBN        string          `json:"isbn,omitempty" validate:"omitempty,isbndigits"`
	Publisher   string          `json:"publisher,omitempty" validate:"omitempty,max=255"`
	Year        int             `json:"year,omitempty" validate:"omitempty,gte=1000,notfuture"`
	Pages       int             `json:"pages,omitempty" validate:"omitempty,gte=1,lte=10000"`
	Language    string          `json:"language,omitempty" validate:"omitempty,max=50"`
	ImageURL    string          `json:"image_url,omitempty" validate:"omitempty,max=2048,http_url"`
}

// Normalize trims free-text fields and fills the default language.
func (l *Listing) Normalize() {
	l.Title = strings.TrimSpace(l.Title)
	l.Author = strings.TrimSpace(l.Author)
	l.Description = strings.TrimSpace(l.Description)
	l.ISBN = strings.TrimSpace(l.ISBN)
	l.Publisher = strings.TrimSpace(l.Publisher)
	l.ImageURL = strings.TrimSpace(l.ImageURL)
	if l.Language == "" {
		l.Language = "English"
	}
}

// listingPayload is the body the book backend accepts. Prices go out as
// JSON numbers.
type listingPayload struct {
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Price       json.Number `json:"price"`
	Description string      `json:"description"`
	Condition   string      `json:"condition"`
	Format      string      `json:"format"`
	ISBN        string      `json:"isbn,omitempty"`
	Publisher   string      `json:"publisher,omitempty"`
	Year        int         `json:"year,omitempty"`
	Pages       int         `json:"pages,omitempty"`
	Language    string      `json:"language,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
	SellerID    string      `json:"seller_id,omitempty"`
}

func (l Listing) payload(sellerID string) listingPayload {
	return listingPayload{
		Title:       l.Title,
		Author:      l.Author,
		Price:       json.Number(l.Price.String()),
		Description: l.Description,
		Condition:   l.Condition,
		Format:      l.Format,
		ISBN:        l.ISBN,
		Publisher:   l.Publisher,
		Year:        l.Year,
		Pages:       l.Pages,
		Language:    l.Language,
		ImageURL:    l.ImageURL,
		SellerID:    sellerID,
	}
}

// book is the listing as the storefront would show it, used when the
// backend acknowledges a write without echoing the record.
func (l Listing) book(id, sellerID string) domain.Book {
	return domain.Book{
		ID:          id,
		Title:       l.Title,
		Author:      l.Author,
		Price:       l.Price,
		Description: l.Description,
		Condition:   domain.ParseCondition(l.Condition),
		Format:      domain.ParseFormat(l.Format),
		ImageURL:    l.ImageURL,
		ISBN:        l.ISBN,
		Publisher:   l.Publisher,
		Year:        l.Year,
		Pages:       l.Pages,
		Language:    l.Language,
		SellerID:    sellerID,
	}
}
