package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) received() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func testEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New())
	return &e
}

func TestInMemoryEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers events to subscribed handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"invoice_created"}}
		bus.Subscribe(handler)

		err := bus.Publish(ctx, testEvent("invoice_created"))
		require.NoError(t, err)
		assert.Equal(t, 1, handler.received())
	})

	t.Run("ignores events of other types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"invoice_created"}}
		bus.Subscribe(handler)

		err := bus.Publish(ctx, testEvent("reduction_of_credit"))
		require.NoError(t, err)
		assert.Equal(t, 0, handler.received())
	})

	t.Run("wildcard handler receives all events", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		err := bus.Publish(ctx, testEvent("invoice_created"), testEvent("reduction_of_credit"))
		require.NoError(t, err)
		assert.Equal(t, 2, handler.received())
	})

	t.Run("handler error does not stop other handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"invoice_created"}, err: errors.New("boom")}
		ok := &recordingHandler{types: []string{"invoice_created"}}
		bus.Subscribe(failing)
		bus.Subscribe(ok)

		err := bus.Publish(ctx, testEvent("invoice_created"))
		require.NoError(t, err)
		assert.Equal(t, 1, ok.received())
	})

	t.Run("handler panic is recovered", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := &recordingHandler{types: []string{"invoice_created"}, panics: true}
		ok := &recordingHandler{types: []string{"invoice_created"}}
		bus.Subscribe(panicking)
		bus.Subscribe(ok)

		require.NotPanics(t, func() {
			_ = bus.Publish(ctx, testEvent("invoice_created"))
		})
		assert.Equal(t, 1, ok.received())
	})

	t.Run("unsubscribed handler no longer receives events", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"invoice_created"}}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		err := bus.Publish(ctx, testEvent("invoice_created"))
		require.NoError(t, err)
		assert.Equal(t, 0, handler.received())
	})
}
