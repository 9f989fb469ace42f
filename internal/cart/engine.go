// Package cart implements the cart engine: an ordered set of line items,
// the four mutators, and the aggregates derived from them.
package cart

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/bookstore/internal/domain"
)

// Saver persists a cart snapshot. Implementations must not fail loudly; the
// engine does not look at the outcome.
type Saver interface {
	Save(ctx context.Context, cart domain.Cart)
}

// Engine owns one session's cart. Operations never fail: inputs that cannot
// apply leave the cart unchanged. Every change is written through the Saver
// before the operation returns.
//
// Engine is not safe for concurrent use; callers serialize access.
type Engine struct {
	cart    domain.Cart
	visible bool
	saver   Saver
}

// NewEngine creates an engine seeded with initial, usually the cart loaded
// from the store.
func NewEngine(initial domain.Cart, saver Saver) *Engine {
	return &Engine{cart: initial.Clone(), saver: saver}
}

// Snapshot returns a copy of the current cart.
func (e *Engine) Snapshot() domain.Cart {
	return e.cart.Clone()
}

// AddItem adds one copy of book. An existing line for the same id gets its
// quantity incremented; otherwise a new line is appended with the book's
// current title, price, and image. A book without an id is ignored.
func (e *Engine) AddItem(ctx context.Context, book domain.Book) domain.Cart {
	if book.ID == "" {
		return e.Snapshot()
	}
	if i := e.cart.FindItemIndex(book.ID); i >= 0 {
		e.cart.Items[i].Quantity++
	} else {
		e.cart.Items = append(e.cart.Items, domain.NewLineItem(book))
	}
	return e.commit(ctx)
}

// RemoveItem drops the line for id. Removing an absent id is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, id string) domain.Cart {
	i := e.cart.FindItemIndex(id)
	if i < 0 {
		return e.Snapshot()
	}
	e.cart.Items = append(e.cart.Items[:i], e.cart.Items[i+1:]...)
	return e.commit(ctx)
}

// SetQuantity sets the quantity for id. A quantity below 1 removes the line.
// An absent id is a no-op.
func (e *Engine) SetQuantity(ctx context.Context, id string, quantity int) domain.Cart {
	if quantity < 1 {
		return e.RemoveItem(ctx, id)
	}
	i := e.cart.FindItemIndex(id)
	if i < 0 {
		return e.Snapshot()
	}
	if e.cart.Items[i].Quantity == quantity {
		return e.Snapshot()
	}
	e.cart.Items[i].Quantity = quantity
	return e.commit(ctx)
}

// SetQuantityText applies SetQuantity to user-typed input. Only a whole
// number is accepted; anything else, fractions included, is ignored.
func (e *Engine) SetQuantityText(ctx context.Context, id, raw string) domain.Cart {
	n, ok := ParseQuantity(raw)
	if !ok {
		return e.Snapshot()
	}
	return e.SetQuantity(ctx, id, n)
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context) domain.Cart {
	e.cart.Items = nil
	return e.commit(ctx)
}

// Rebind replaces the saver and writes the current cart through it.
func (e *Engine) Rebind(ctx context.Context, saver Saver) {
	e.saver = saver
	e.commit(ctx)
}

// TotalItemCount returns the sum of quantities.
func (e *Engine) TotalItemCount() int {
	return e.cart.ItemCount()
}

// TotalPrice returns the sum of price times quantity.
func (e *Engine) TotalPrice() decimal.Decimal {
	return e.cart.TotalPrice()
}

// ToggleVisibility flips the cart drawer flag and returns the new value.
func (e *Engine) ToggleVisibility() bool {
	e.visible = !e.visible
	return e.visible
}

// SetVisible sets the cart drawer flag.
func (e *Engine) SetVisible(open bool) {
	e.visible = open
}

// Visible reports whether the cart drawer is open.
func (e *Engine) Visible() bool {
	return e.visible
}

// View returns the cart with its aggregates and drawer flag.
func (e *Engine) View() domain.CartView {
	return e.Snapshot().View(e.visible)
}

func (e *Engine) commit(ctx context.Context) domain.Cart {
	snap := e.Snapshot()
	if e.saver != nil {
		e.saver.Save(ctx, snap)
	}
	return snap
}

// ParseQuantity parses a whole-number quantity from user input. Surrounding
// whitespace is allowed; fractions, exponents, and words are not.
func ParseQuantity(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}
