package billing

import (
	"context"
	"testing"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testIssuer = billing.IssuerDetails{Name: "Cloudbill OU", Email: "billing@cloudbill.example"}

type stubCompensator struct {
	called int
	err    error
}

func (c *stubCompensator) CompensateInvoice(ctx context.Context, inv *billing.Invoice) error {
	c.called++
	return c.err
}

type stubSourceRegistrar struct {
	called int
	date   time.Time
}

func (r *stubSourceRegistrar) RegisterSources(ctx context.Context, inv *billing.Invoice, date time.Time) error {
	r.called++
	r.date = date
	return nil
}

func newInvoiceService(invoiceRepo *MockInvoiceRepository, profileRepo *MockPaymentProfileRepository) (*InvoiceService, *MockEventPublisher) {
	svc := NewInvoiceService(invoiceRepo, profileRepo, testIssuer, zap.NewNop())
	publisher := &MockEventPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	svc.SetEventPublisher(publisher)
	return svc, publisher
}

func TestGetOrCreateInvoice(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("existing invoice is returned as is", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		svc, _ := newInvoiceService(invoiceRepo, new(MockPaymentProfileRepository))
		registrar := &stubSourceRegistrar{}
		svc.SetSourceRegistrar(registrar)

		existing := pendingInvoice(t, customerID, 10)
		invoiceRepo.On("GetOrCreate", ctx, customerID, 2024, 3).Return(existing, false, nil)

		inv, created, err := svc.GetOrCreateInvoice(ctx, customerID, date)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, inv.ID)
		assert.Equal(t, 0, registrar.called, "sources registered only on creation")
	})

	t.Run("new invoice gets the customer's sources registered", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		svc, _ := newInvoiceService(invoiceRepo, new(MockPaymentProfileRepository))
		registrar := &stubSourceRegistrar{}
		svc.SetSourceRegistrar(registrar)

		fresh := pendingInvoice(t, customerID, 0)
		invoiceRepo.On("GetOrCreate", ctx, customerID, 2024, 3).Return(fresh, true, nil)
		invoiceRepo.OnLockedInvoice(fresh)
		invoiceRepo.On("GetByID", ctx, fresh.ID).Return(fresh, nil)

		_, created, err := svc.GetOrCreateInvoice(ctx, customerID, date)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 1, registrar.called)
		assert.Equal(t, date, registrar.date, "sources open at the triggering date")
	})
}

func TestSetCreated(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()
	now := time.Date(2024, 4, 1, 0, 10, 0, 0, time.UTC)

	t.Run("pending invoice is compensated, frozen and announced", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		profileRepo := new(MockPaymentProfileRepository)
		svc, publisher := newInvoiceService(invoiceRepo, profileRepo)
		compensator := &stubCompensator{}
		svc.SetCompensator(compensator)

		inv := pendingInvoice(t, customerID, 100)
		invoiceRepo.OnLockedInvoice(inv)
		invoiceRepo.On("GetByID", ctx, inv.ID).Return(inv, nil)
		profileRepo.On("GetActiveByCustomer", ctx, customerID).Return(nil, shared.ErrNotFound)

		require.NoError(t, svc.SetCreated(ctx, inv.ID, now))

		assert.Equal(t, 1, compensator.called)
		assert.Equal(t, billing.InvoiceStateCreated, inv.State)
		assert.True(t, inv.Total.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, []string{billing.EventTypeInvoiceCreated}, publisher.EventTypes())
	})

	t.Run("fixed price contract lands in paid", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		profileRepo := new(MockPaymentProfileRepository)
		svc, _ := newInvoiceService(invoiceRepo, profileRepo)

		profile, err := billing.NewPaymentProfile(customerID, "contract", billing.PaymentTypeFixedPrice)
		require.NoError(t, err)

		inv := pendingInvoice(t, customerID, 100)
		invoiceRepo.OnLockedInvoice(inv)
		invoiceRepo.On("GetByID", ctx, inv.ID).Return(inv, nil)
		profileRepo.On("GetActiveByCustomer", ctx, customerID).Return(profile, nil)

		require.NoError(t, svc.SetCreated(ctx, inv.ID, now))
		assert.Equal(t, billing.InvoiceStatePaid, inv.State)
	})

	t.Run("repeat call is a no-op", func(t *testing.T) {
		invoiceRepo := new(MockInvoiceRepository)
		profileRepo := new(MockPaymentProfileRepository)
		svc, publisher := newInvoiceService(invoiceRepo, profileRepo)
		compensator := &stubCompensator{}
		svc.SetCompensator(compensator)

		inv := pendingInvoice(t, customerID, 100)
		invoiceRepo.OnLockedInvoice(inv)
		invoiceRepo.On("GetByID", ctx, inv.ID).Return(inv, nil)
		profileRepo.On("GetActiveByCustomer", ctx, customerID).Return(nil, shared.ErrNotFound)

		require.NoError(t, svc.SetCreated(ctx, inv.ID, now))
		require.NoError(t, svc.SetCreated(ctx, inv.ID, now))

		assert.Equal(t, 1, compensator.called, "compensation runs once")
		assert.Len(t, publisher.EventTypes(), 1, "one invoice_created event")
		assert.True(t, inv.Total.Equal(decimal.NewFromInt(100)), "total unchanged")
	})
}

func TestRecomputeCurrentCost(t *testing.T) {
	ctx := context.Background()
	invoiceRepo := new(MockInvoiceRepository)
	svc, _ := newInvoiceService(invoiceRepo, new(MockPaymentProfileRepository))

	inv := pendingInvoice(t, uuid.New(), 42)
	inv.CurrentCost = decimal.Zero // stale cache
	invoiceRepo.OnLockedInvoice(inv)

	require.NoError(t, svc.RecomputeCurrentCost(ctx, inv.ID))
	assert.True(t, inv.CurrentCost.Equal(decimal.NewFromInt(42)))
}
