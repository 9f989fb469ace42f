package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/utafrali/bookstore/pkg/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// --- Event ---

func TestNewEvent_Fields(t *testing.T) {
	type cartData struct {
		ItemCount int `json:"item_count"`
	}

	event, err := NewEvent("cart.updated", Aggregate{ID: "sess-1", Type: "cart"}, "storefront", cartData{ItemCount: 3})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "cart.updated", event.EventType)
	assert.Equal(t, Aggregate{ID: "sess-1", Type: "cart"}, event.Aggregate)
	assert.Equal(t, SchemaVersion, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got cartData
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, 3, got.ItemCount)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("cart.updated", Aggregate{ID: "sess-1", Type: "cart"}, "storefront", make(chan int))
	require.Error(t, err)
}

func TestEvent_MetadataSkipsEmpty(t *testing.T) {
	event, err := NewEvent("cart.cleared", Aggregate{ID: "sess-1", Type: "cart"}, "storefront", nil)
	require.NoError(t, err)

	event.WithMetadata("user_id", "").WithMetadata("session_id", "sess-1")

	assert.Equal(t, map[string]string{"session_id": "sess-1"}, event.Metadata)
}

func TestDecodeEvent_RoundTripsMessage(t *testing.T) {
	original, err := NewEvent("cart.checked_out", Aggregate{ID: "sess-2", Type: "cart"}, "storefront", map[string]int{"items": 1})
	require.NoError(t, err)
	original.WithCorrelationID("corr-1")

	msg, err := original.message("storefront.cart.checked_out")
	require.NoError(t, err)

	restored, err := DecodeEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "corr-1", restored.CorrelationID)
	assert.Equal(t, "sess-2", restored.Aggregate.ID)
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent([]byte("{"))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"event_id":"e-1","version":99}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

// --- Producer ---

func TestProducer_PublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, []string{"localhost:9092"}, logger.Discard())

	event, err := NewEvent("cart.updated", Aggregate{ID: "sess-1", Type: "cart"}, "storefront", nil)
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	require.NoError(t, p.Publish(context.Background(), "storefront.cart.updated", event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "storefront.cart.updated", msg.Topic)
	assert.Equal(t, "sess-1", string(msg.Key))

	carrier := NewHeaderCarrier(&msg)
	assert.Equal(t, "cart.updated", carrier.Get("event_type"))
	assert.Equal(t, "storefront", carrier.Get("source"))
	assert.Equal(t, "corr-1", carrier.Get("correlation_id"))
}

func TestProducer_PublishPropagatesTrace(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, logger.Discard())
	event, err := NewEvent("cart.updated", Aggregate{ID: "sess-1", Type: "cart"}, "storefront", nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, "t", event))

	assert.NotEmpty(t, NewHeaderCarrier(&w.msgs[0]).Get("traceparent"))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, logger.Discard())

	event, err := NewEvent("cart.updated", Aggregate{ID: "sess-1", Type: "cart"}, "storefront", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "storefront.cart.updated", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil, logger.Discard())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoneConfigured(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "t", &Event{}))
}

// --- HeaderCarrier ---

func TestHeaderCarrier_SetGetKeys(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "a", Value: []byte("1")}}}
	c := NewHeaderCarrier(&msg)

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Empty(t, c.Get("missing"))
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
}
