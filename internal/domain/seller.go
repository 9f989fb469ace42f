package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Seller is a user with at least one listing. The book backend has no seller
// resource, so sellers are derived from the books they list.
type Seller struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	BookCount int        `json:"book_count"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	Books     []Book     `json:"books,omitempty"`
}

// CheckoutReceipt confirms a checkout. No payment is taken.
type CheckoutReceipt struct {
	Message      string          `json:"message"`
	ItemCount    int             `json:"item_count"`
	Total        decimal.Decimal `json:"total"`
	CheckedOutAt time.Time       `json:"checked_out_at"`
}
