package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/bookstore/internal/domain"
	pkgkafka "github.com/utafrali/bookstore/pkg/kafka"
	"github.com/utafrali/bookstore/pkg/logger"
)

// Kafka topics for cart events.
const (
	TopicCartUpdated    = "storefront.cart.updated"
	TopicCartCleared    = "storefront.cart.cleared"
	TopicCartCheckedOut = "storefront.cart.checked_out"
)

// AggregateTypeCart is the aggregate type of every cart event. The
// aggregate id is the browser session id.
const AggregateTypeCart = "cart"

// SourceStorefront identifies events published by this service.
const SourceStorefront = "storefront"

// CartData is the payload of cart.updated and cart.checked_out.
type CartData struct {
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id,omitempty"`
	Items     []ItemData      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// ItemData is one line of a cart payload.
type ItemData struct {
	BookID   string          `json:"book_id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// CartClearedData is the payload of cart.cleared.
type CartClearedData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

// Producer publishes cart events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a cart event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func cartData(sessionID, userID string, cart domain.Cart) CartData {
	items := make([]ItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = ItemData{
			BookID:   item.ID,
			Title:    item.Title,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
	}
	return CartData{
		SessionID: sessionID,
		UserID:    userID,
		Items:     items,
		ItemCount: cart.ItemCount(),
		Total:     cart.TotalPrice(),
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID, userID string, cart domain.Cart) error {
	return p.publish(ctx, TopicCartUpdated, sessionID, userID, cartData(sessionID, userID, cart))
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID, userID string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, userID, CartClearedData{SessionID: sessionID, UserID: userID})
}

// PublishCartCheckedOut publishes a cart.checked_out event carrying the cart
// as it was at checkout.
func (p *Producer) PublishCartCheckedOut(ctx context.Context, sessionID, userID string, cart domain.Cart) error {
	return p.publish(ctx, TopicCartCheckedOut, sessionID, userID, cartData(sessionID, userID, cart))
}

func (p *Producer) publish(ctx context.Context, topic, sessionID, userID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, pkgkafka.Aggregate{ID: sessionID, Type: AggregateTypeCart}, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithMetadata("user_id", userID)

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published cart event",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
	)
	return nil
}
