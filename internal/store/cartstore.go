package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/bookstore/internal/domain"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
)

// CartStore loads and saves one session's cart. Neither operation fails:
// the in-memory cart is authoritative for the life of the session and the
// store is a best-effort copy.
type CartStore struct {
	kv     KV
	scope  string
	logger *slog.Logger
}

// NewCartStore binds a cart store to a session scope.
func NewCartStore(kv KV, scope string, logger *slog.Logger) *CartStore {
	return &CartStore{kv: kv, scope: scope, logger: logger}
}

// Load reads the stored cart. Absent or undecodable data yields an empty
// cart, and so does a backend failure, which is logged. Entries without an
// id, with quantity below 1, or with a negative price are dropped, and
// repeated ids are merged into the first occurrence.
func (s *CartStore) Load(ctx context.Context) domain.Cart {
	cart, err := s.Fetch(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "cart load failed, starting empty",
			slog.String("error", err.Error()),
		)
	}
	return cart
}

// Fetch is Load for callers that must not mistake an unreachable backend
// for an empty cart: only a backend failure is returned as an error.
// Absent and corrupt data still yield an empty cart.
func (s *CartStore) Fetch(ctx context.Context) (domain.Cart, error) {
	data, err := s.kv.Get(ctx, s.scope, KeyCart)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.WarnContext(ctx, "stored cart is corrupt, starting empty",
			slog.String("error", err.Error()),
		)
		return domain.Cart{}, nil
	}

	cart := domain.Cart{Items: make([]domain.LineItem, 0, len(raw))}
	dropped := 0
	for _, r := range raw {
		var item domain.LineItem
		if err := json.Unmarshal(r, &item); err != nil || item.ID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			dropped++
			continue
		}
		if i := cart.FindItemIndex(item.ID); i >= 0 {
			cart.Items[i].Quantity += item.Quantity
			continue
		}
		cart.Items = append(cart.Items, item)
	}
	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped invalid stored cart entries", slog.Int("dropped", dropped))
	}
	return cart, nil
}

// Save writes the cart. Failures are logged and swallowed.
func (s *CartStore) Save(ctx context.Context, cart domain.Cart) {
	items := cart.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err == nil {
		err = s.kv.Set(ctx, s.scope, KeyCart, data)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "cart save failed",
			slog.String("error", err.Error()),
			slog.Int("items", len(items)),
		)
	}
}
