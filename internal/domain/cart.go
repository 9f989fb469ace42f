package domain

import "github.com/shopspring/decimal"

// LineItem is one book in the cart. Title, price, and image are copied from
// the book when it is first added and do not follow later catalog changes.
// Quantity is always at least 1.
type LineItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
	Quantity int             `json:"quantity"`
}

// Subtotal returns price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// NewLineItem snapshots b into a line item with quantity 1. A negative
// price is stored as zero.
func NewLineItem(b Book) LineItem {
	price := b.Price
	if price.IsNegative() {
		price = decimal.Zero
	}
	return LineItem{
		ID:       b.ID,
		Title:    b.Title,
		Price:    price,
		ImageURL: b.ImageURL,
		Quantity: 1,
	}
}

// Cart is an ordered cart snapshot. Items keep insertion order and hold at
// most one entry per book id.
type Cart struct {
	Items []LineItem `json:"items"`
}

// ItemCount returns the sum of all quantities.
func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// TotalPrice sums price times quantity over all items.
func (c Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// FindItemIndex returns the index of the item with the given id, or -1.
func (c Cart) FindItemIndex(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

// CartView is the JSON shape returned to the browser: the snapshot plus its
// aggregates and the drawer flag.
type CartView struct {
	Items      []LineItem      `json:"items"`
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Open       bool            `json:"open"`
}

// View builds a CartView from c.
func (c Cart) View(open bool) CartView {
	items := c.Items
	if items == nil {
		items = []LineItem{}
	}
	return CartView{
		Items:      items,
		ItemCount:  c.ItemCount(),
		TotalPrice: c.TotalPrice(),
		Open:       open,
	}
}
