package billing

import (
	"context"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BillingTasks holds the periodic entrypoints driven by the scheduler.
// All of them are safe to run concurrently with live event processing and
// isolate per-customer failures: one broken customer never stops a batch.
type BillingTasks struct {
	invoices     *InvoiceService
	credits      *CreditService
	invoiceRepo  billing.InvoiceRepository
	profileRepo  billing.PaymentProfileRepository
	resourceRepo billing.ResourceRepository
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewBillingTasks creates the periodic task entrypoints
func NewBillingTasks(
	invoices *InvoiceService,
	credits *CreditService,
	invoiceRepo billing.InvoiceRepository,
	profileRepo billing.PaymentProfileRepository,
	resourceRepo billing.ResourceRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *BillingTasks {
	return &BillingTasks{
		invoices:     invoices,
		credits:      credits,
		invoiceRepo:  invoiceRepo,
		profileRepo:  profileRepo,
		resourceRepo: resourceRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// CreateMonthlyInvoices runs at month start: it closes every pending
// invoice of previous periods, applying credit compensation and freezing
// totals, then opens the current month's invoice for every customer that
// owns resources.
func (t *BillingTasks) CreateMonthlyInvoices(ctx context.Context, now time.Time) error {
	pending, err := t.invoiceRepo.ListPendingBefore(ctx, now.Year(), int(now.Month()))
	if err != nil {
		return err
	}
	for _, invoice := range pending {
		if err := t.invoices.SetCreated(ctx, invoice.ID, now); err != nil {
			t.logger.Error("failed to close pending invoice",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("customer_id", invoice.CustomerID.String()),
				zap.Error(err))
		}
	}

	customerIDs, err := t.resourceRepo.ListCustomerIDs(ctx)
	if err != nil {
		return err
	}
	monthStart := billing.MonthStart(now)
	for _, customerID := range customerIDs {
		if _, _, err := t.invoices.GetOrCreateInvoice(ctx, customerID, monthStart); err != nil {
			t.logger.Error("failed to open monthly invoice",
				zap.String("customer_id", customerID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// SweepOverdueCredits drains expired credits. Runs daily.
func (t *BillingTasks) SweepOverdueCredits(ctx context.Context, now time.Time) error {
	swept, err := t.credits.SweepOverdueCredits(ctx, now)
	if err != nil {
		return err
	}
	if swept > 0 {
		t.logger.Info("drained overdue credits", zap.Int("count", swept))
	}
	return nil
}

// NotifyNewInvoices emits a notification request for every invoice of the
// previous period that reached the created state at rollover. Customers
// on a fixed-price contract are skipped: their invoices are settled by
// contract, not by payment.
func (t *BillingTasks) NotifyNewInvoices(ctx context.Context, now time.Time) error {
	prev := billing.MonthStart(now).AddDate(0, -1, 0)
	year, month := prev.Year(), int(prev.Month())
	state := billing.InvoiceStateCreated
	invoices, err := t.invoiceRepo.List(ctx, billing.InvoiceFilter{
		Year:  &year,
		Month: &month,
		State: &state,
	})
	if err != nil {
		return err
	}

	for _, invoice := range invoices {
		profile, err := t.profileRepo.GetActiveByCustomer(ctx, invoice.CustomerID)
		if err != nil && !isNotFound(err) {
			t.logger.Error("failed to load payment profile",
				zap.String("customer_id", invoice.CustomerID.String()),
				zap.Error(err))
			continue
		}
		if err == nil && profile.PaymentType == billing.PaymentTypeFixedPrice {
			continue
		}
		if err := t.publisher.Publish(ctx, billing.NewInvoiceNotificationEvent(invoice)); err != nil {
			t.logger.Error("failed to request invoice notification",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}
