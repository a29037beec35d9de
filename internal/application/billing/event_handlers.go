package billing

import (
	"context"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Notifier delivers invoice notifications to customer owners. The
// default implementation only logs; mail or webhook delivery plugs in
// behind this interface.
type Notifier interface {
	NotifyInvoice(ctx context.Context, customerID string, year, month int, total string) error
}

// LogNotifier writes notifications to the log instead of delivering them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyInvoice logs the notification
func (n *LogNotifier) NotifyInvoice(_ context.Context, customerID string, year, month int, total string) error {
	n.logger.Info("invoice notification",
		zap.String("customer_id", customerID),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.String("total", total))
	return nil
}

// InvoiceNotificationHandler reacts to invoice lifecycle events by
// delivering notifications through the configured Notifier.
type InvoiceNotificationHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewInvoiceNotificationHandler creates a new InvoiceNotificationHandler
func NewInvoiceNotificationHandler(notifier Notifier, logger *zap.Logger) *InvoiceNotificationHandler {
	return &InvoiceNotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceNotificationHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceNotificationRequested,
	}
}

// Handle delivers the notification for an invoice event
func (h *InvoiceNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*billing.InvoiceNotificationEvent)
	if !ok {
		h.logger.Warn("unexpected event payload",
			zap.String("event_type", event.EventType()))
		return nil
	}
	return h.notifier.NotifyInvoice(ctx, e.CustomerID.String(), e.Year, e.Month, e.Total.String())
}

// AuditLogHandler records every billing event for the audit trail
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns an empty slice: the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("billing event",
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()))
	return nil
}
