package event

import (
	"context"

	"github.com/cloudbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler decorates an EventHandler with duplicate-event
// suppression keyed on the event ID.
type IdempotentHandler struct {
	inner  shared.EventHandler
	store  shared.IdempotencyStore
	config shared.IdempotencyConfig
	logger *zap.Logger
}

// NewIdempotentHandler wraps a handler with the default idempotency window
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
) *IdempotentHandler {
	return &IdempotentHandler{
		inner:  handler,
		store:  store,
		config: shared.DefaultIdempotencyConfig(),
		logger: logger,
	}
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

// Handle skips events already marked in the store. A store failure is
// treated as a miss: duplicate processing beats dropping events.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.inner.Handle(ctx, event)
	}

	eventID := event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, eventID, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("idempotency check failed, processing anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	case !isNew:
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.inner.Handle(ctx, event); err != nil {
		h.logger.Error("event handler failed",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		// The mark stays in place; the TTL acts as a retry cooldown.
		return err
	}

	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
