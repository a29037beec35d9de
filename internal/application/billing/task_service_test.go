package billing

import (
	"context"
	"testing"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBillingTasks(
	invoiceRepo *MockInvoiceRepository,
	profileRepo *MockPaymentProfileRepository,
	resourceRepo *MockResourceRepository,
	creditRepo *MockCreditRepository,
) (*BillingTasks, *MockEventPublisher) {
	invoices, _ := newInvoiceService(invoiceRepo, profileRepo)
	credits, _ := newCreditService(creditRepo)
	publisher := &MockEventPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	tasks := NewBillingTasks(invoices, credits, invoiceRepo, profileRepo, resourceRepo, publisher, zap.NewNop())
	return tasks, publisher
}

func TestCreateMonthlyInvoices(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 0, 5, 0, 0, time.UTC)

	t.Run("closes pending invoices and opens the new month", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		profileRepo := new(MockPaymentProfileRepository)
		resourceRepo := new(MockResourceRepository)
		tasks, _ := newBillingTasks(invoiceRepo, profileRepo, resourceRepo, new(MockCreditRepository))

		customerID := uuid.New()
		pending := pendingInvoice(t, customerID, 100)
		current, err := billing.NewInvoice(customerID, 2024, 4)
		require.NoError(t, err)

		invoiceRepo.On("ListPendingBefore", ctx, 2024, 4).Return([]*billing.Invoice{pending}, nil)
		invoiceRepo.OnLockedInvoice(pending)
		invoiceRepo.On("GetByID", ctx, pending.ID).Return(pending, nil)
		profileRepo.On("GetActiveByCustomer", ctx, customerID).Return(nil, shared.ErrNotFound)
		resourceRepo.On("ListCustomerIDs", ctx).Return([]uuid.UUID{customerID}, nil)
		invoiceRepo.On("GetOrCreate", ctx, customerID, 2024, 4).Return(current, false, nil)

		require.NoError(t, tasks.CreateMonthlyInvoices(ctx, now))

		assert.Equal(t, billing.InvoiceStateCreated, pending.State)
		invoiceRepo.AssertCalled(t, "GetOrCreate", ctx, customerID, 2024, 4)
	})

	t.Run("one broken customer does not stop the batch", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		profileRepo := new(MockPaymentProfileRepository)
		resourceRepo := new(MockResourceRepository)
		tasks, _ := newBillingTasks(invoiceRepo, profileRepo, resourceRepo, new(MockCreditRepository))

		brokenCustomer := uuid.New()
		healthyCustomer := uuid.New()
		healthy, err := billing.NewInvoice(healthyCustomer, 2024, 4)
		require.NoError(t, err)

		invoiceRepo.On("ListPendingBefore", ctx, 2024, 4).Return([]*billing.Invoice{}, nil)
		resourceRepo.On("ListCustomerIDs", ctx).Return([]uuid.UUID{brokenCustomer, healthyCustomer}, nil)
		invoiceRepo.On("GetOrCreate", ctx, brokenCustomer, 2024, 4).
			Return(nil, false, shared.ErrConcurrencyConflict)
		invoiceRepo.On("GetOrCreate", ctx, healthyCustomer, 2024, 4).Return(healthy, false, nil)

		require.NoError(t, tasks.CreateMonthlyInvoices(ctx, now))
		invoiceRepo.AssertCalled(t, "GetOrCreate", ctx, healthyCustomer, 2024, 4)
	})
}

func TestNotifyNewInvoices(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

	invoiceRepo := new(MockInvoiceRepository)
	profileRepo := new(MockPaymentProfileRepository)
	tasks, publisher := newBillingTasks(invoiceRepo, profileRepo, new(MockResourceRepository), new(MockCreditRepository))

	payingCustomer := uuid.New()
	contractCustomer := uuid.New()

	paying := pendingInvoice(t, payingCustomer, 100)
	require.NoError(t, paying.MarkCreated(now, false))
	contract := pendingInvoice(t, contractCustomer, 100)
	require.NoError(t, contract.MarkCreated(now, false))

	fixedProfile, err := billing.NewPaymentProfile(contractCustomer, "contract", billing.PaymentTypeFixedPrice)
	require.NoError(t, err)

	invoiceRepo.On("List", ctx, mock.MatchedBy(func(f billing.InvoiceFilter) bool {
		return f.Year != nil && *f.Year == 2024 && f.Month != nil && *f.Month == 3
	})).Return([]*billing.Invoice{paying, contract}, nil)
	profileRepo.On("GetActiveByCustomer", ctx, payingCustomer).Return(nil, shared.ErrNotFound)
	profileRepo.On("GetActiveByCustomer", ctx, contractCustomer).Return(fixedProfile, nil)

	require.NoError(t, tasks.NotifyNewInvoices(ctx, now))

	require.Len(t, publisher.Events, 1, "fixed-price customer skipped")
	event := publisher.Events[0].(*billing.InvoiceNotificationEvent)
	assert.Equal(t, payingCustomer, event.CustomerID)
}
