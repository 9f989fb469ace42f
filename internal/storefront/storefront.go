// Package storefront holds the per-browser-session state: the cart engine
// and the session gate, behind one lock so that a session's operations run
// strictly one at a time.
package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/bookstore/internal/cart"
	"github.com/utafrali/bookstore/internal/catalog"
	"github.com/utafrali/bookstore/internal/domain"
	"github.com/utafrali/bookstore/internal/session"
	"github.com/utafrali/bookstore/internal/store"
	apperrors "github.com/utafrali/bookstore/pkg/errors"
	"github.com/utafrali/bookstore/pkg/logger"
)

// Catalog is the part of the book backend a storefront uses.
type Catalog interface {
	GetBook(ctx context.Context, id string) (domain.Book, error)
	CreateBook(ctx context.Context, token, sellerID string, l catalog.Listing) (domain.Book, error)
	UpdateBook(ctx context.Context, token, id, sellerID string, l catalog.Listing) (domain.Book, error)
	DeleteBook(ctx context.Context, token, id string) error
}

// Events publishes cart events.
type Events interface {
	PublishCartUpdated(ctx context.Context, sessionID, userID string, cart domain.Cart) error
	PublishCartCleared(ctx context.Context, sessionID, userID string) error
	PublishCartCheckedOut(ctx context.Context, sessionID, userID string, cart domain.Cart) error
}

// Deps are the collaborators shared by every storefront.
type Deps struct {
	KV               store.KV
	Auth             session.Authenticator
	Catalog          Catalog
	Events           Events
	Logger           *slog.Logger
	RehydrateTimeout time.Duration
	LoadTimeout      time.Duration
}

const (
	checkoutMessage    = "Thank you for your order! This is a demo store, so no payment was taken."
	defaultLoadTimeout = 5 * time.Second
)

// detached derives a context for store IO that outlives the request.
func (d Deps) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := d.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// Storefront is one browser session.
type Storefront struct {
	kv      store.KV
	catalog Catalog
	events  Events
	base    *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	id     string
	logger *slog.Logger
	engine *cart.Engine
	gate   *session.Gate
}

// New builds the storefront for sessionID, loading its cart and starting
// rehydration of its stored credential. It fails only when the store cannot
// be read, so that a stored cart is never replaced by an empty one.
func New(ctx context.Context, sessionID string, d Deps) (*Storefront, error) {
	s, err := open(ctx, sessionID, d)
	if err != nil {
		return nil, err
	}
	s.gate.Rehydrate(ctx)
	return s, nil
}

// open builds the storefront without starting rehydration. The cart is read
// detached from ctx, since the caller going away must not turn into an
// empty cart.
func open(ctx context.Context, sessionID string, d Deps) (*Storefront, error) {
	l := d.Logger.With(slog.String("session_id", sessionID))

	loadCtx, cancel := d.detached(ctx)
	defer cancel()

	carts := store.NewCartStore(d.KV, sessionID, l)
	initial, err := carts.Fetch(loadCtx)
	if err != nil {
		return nil, apperrors.Network("session store", err)
	}

	var opts []session.Option
	if d.RehydrateTimeout > 0 {
		opts = append(opts, session.WithRehydrateTimeout(d.RehydrateTimeout))
	}

	return &Storefront{
		kv:      d.KV,
		catalog: d.Catalog,
		events:  d.Events,
		base:    d.Logger,
		now:     time.Now,
		id:      sessionID,
		logger:  l,
		engine:  cart.NewEngine(initial, carts),
		gate:    session.NewGate(d.Auth, store.NewTokenStore(d.KV, sessionID), l, opts...),
	}, nil
}

// ID returns the session id.
func (s *Storefront) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// rebind moves the storefront's stored cart and credential to newID and
// returns the id it had before.
func (s *Storefront) rebind(ctx context.Context, newID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldID := s.id
	s.id = newID
	s.logger = s.base.With(slog.String("session_id", newID))

	s.engine.Rebind(ctx, store.NewCartStore(s.kv, newID, s.logger))
	s.gate.Rebind(ctx, store.NewTokenStore(s.kv, newID))
	if err := s.kv.Delete(ctx, oldID, store.KeyCart); err != nil {
		s.logger.WarnContext(ctx, "old cart delete failed", slog.String("error", err.Error()))
	}
	return oldID
}

// Cart returns the cart as shown to the shopper.
func (s *Storefront) Cart() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.View()
}

// AddBook looks the book up in the catalog and adds one copy to the cart.
func (s *Storefront) AddBook(ctx context.Context, bookID string) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return s.engine.View(), err
	}
	s.mutate(ctx, "add", func() { s.engine.AddItem(ctx, book) })
	return s.engine.View(), nil
}

// RemoveItem drops a line item.
func (s *Storefront) RemoveItem(ctx context.Context, bookID string) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutate(ctx, "remove", func() { s.engine.RemoveItem(ctx, bookID) })
	return s.engine.View()
}

// SetQuantity sets a line item's quantity. Below 1 removes it.
func (s *Storefront) SetQuantity(ctx context.Context, bookID string, quantity int) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutate(ctx, "set_quantity", func() { s.engine.SetQuantity(ctx, bookID, quantity) })
	return s.engine.View()
}

// SetQuantityText applies a quantity typed by the shopper. Input that is
// not a whole number is ignored.
func (s *Storefront) SetQuantityText(ctx context.Context, bookID, raw string) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutate(ctx, "set_quantity", func() { s.engine.SetQuantityText(ctx, bookID, raw) })
	return s.engine.View()
}

// Clear empties the cart.
func (s *Storefront) Clear(ctx context.Context) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutate(ctx, "clear", func() { s.engine.Clear(ctx) })
	return s.engine.View()
}

// ToggleCart flips the cart panel between open and closed.
func (s *Storefront) ToggleCart() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.ToggleVisibility()
	return s.engine.View()
}

// SetCartOpen opens or closes the cart panel.
func (s *Storefront) SetCartOpen(open bool) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetVisible(open)
	return s.engine.View()
}

// mutate runs op and publishes the resulting cart if it changed. Must be
// called with s.mu held.
func (s *Storefront) mutate(ctx context.Context, operation string, op func()) {
	before := s.engine.Snapshot()
	op()
	after := s.engine.Snapshot()
	cartOperations.WithLabelValues(operation).Inc()

	if sameCart(before, after) {
		return
	}

	userID := s.userID()
	var err error
	if after.IsEmpty() {
		err = s.events.PublishCartCleared(ctx, s.id, userID)
	} else {
		err = s.events.PublishCartUpdated(ctx, s.id, userID, after)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "cart event not published", slog.String("error", err.Error()))
	}
}

func sameCart(a, b domain.Cart) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].ID != b.Items[i].ID || a.Items[i].Quantity != b.Items[i].Quantity {
			return false
		}
	}
	return true
}

func (s *Storefront) userID() string {
	if cur := s.gate.Current(); cur.Authenticated() {
		return cur.Identity.ID
	}
	return ""
}

// Checkout completes the purchase of the cart. It needs a signed-in shopper
// and a non-empty cart. No payment is taken; the cart is emptied and a
// receipt returned.
func (s *Storefront) Checkout(ctx context.Context) (domain.CheckoutReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.requireSession(ctx)
	if err != nil {
		return domain.CheckoutReceipt{}, err
	}

	snapshot := s.engine.Snapshot()
	if snapshot.IsEmpty() {
		return domain.CheckoutReceipt{}, apperrors.InvalidInput("your cart is empty")
	}

	if err := s.events.PublishCartCheckedOut(ctx, s.id, sess.Identity.ID, snapshot); err != nil {
		s.logger.WarnContext(ctx, "checkout event not published", slog.String("error", err.Error()))
	}
	s.engine.Clear(ctx)
	checkouts.Inc()

	receipt := domain.CheckoutReceipt{
		Message:      checkoutMessage,
		ItemCount:    snapshot.ItemCount(),
		Total:        snapshot.TotalPrice(),
		CheckedOutAt: s.now().UTC(),
	}
	logger.WithContext(ctx, s.logger).InfoContext(ctx, "checkout completed",
		slog.String("user_id", sess.Identity.ID),
		slog.Int("item_count", receipt.ItemCount),
		slog.String("total", receipt.Total.StringFixed(2)),
	)
	return receipt, nil
}

// requireSession waits for a pending rehydration and returns the session if
// it is signed in. Must be called with s.mu held.
func (s *Storefront) requireSession(ctx context.Context) (domain.Session, error) {
	if err := s.gate.Wait(ctx); err != nil {
		return domain.Session{}, apperrors.Network("session", err)
	}
	return s.gate.Require()
}

// Session returns the current session without waiting.
func (s *Storefront) Session() domain.Session {
	return s.gate.Current()
}

// WaitSession returns the session once any pending rehydration has settled.
func (s *Storefront) WaitSession(ctx context.Context) (domain.Session, error) {
	if err := s.gate.Wait(ctx); err != nil {
		return s.gate.Current(), err
	}
	return s.gate.Current(), nil
}

// Login signs the shopper in. The cart is untouched either way.
func (s *Storefront) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Login(ctx, creds)
}

// Register creates an account and signs it in.
func (s *Storefront) Register(ctx context.Context, p domain.Profile) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Register(ctx, p)
}

// Logout signs the shopper out. The cart is kept.
func (s *Storefront) Logout(ctx context.Context) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate.Logout(ctx)
	return s.gate.Current()
}

// Refresh renews the session credential.
func (s *Storefront) Refresh(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate.Wait(ctx); err != nil {
		return s.gate.Current(), apperrors.Network("session", err)
	}
	return s.gate.Refresh(ctx)
}

// CreateListing lists a book for sale as the signed-in shopper.
func (s *Storefront) CreateListing(ctx context.Context, l catalog.Listing) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.requireSession(ctx)
	if err != nil {
		return domain.Book{}, err
	}
	book, err := s.catalog.CreateBook(ctx, sess.Token, sess.Identity.ID, l)
	return book, s.gate.Authorize(ctx, err)
}

// UpdateListing edits one of the shopper's listings.
func (s *Storefront) UpdateListing(ctx context.Context, id string, l catalog.Listing) (domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.requireSession(ctx)
	if err != nil {
		return domain.Book{}, err
	}
	book, err := s.catalog.UpdateBook(ctx, sess.Token, id, sess.Identity.ID, l)
	return book, s.gate.Authorize(ctx, err)
}

// DeleteListing removes one of the shopper's listings.
func (s *Storefront) DeleteListing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.requireSession(ctx)
	if err != nil {
		return err
	}
	return s.gate.Authorize(ctx, s.catalog.DeleteBook(ctx, sess.Token, id))
}
