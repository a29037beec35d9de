package billing

import (
	"context"
	"errors"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceCompensator applies credit compensation to an invoice that is
// leaving the pending state. Called inside the invoice transaction.
type InvoiceCompensator interface {
	CompensateInvoice(ctx context.Context, invoice *billing.Invoice) error
}

// SourceRegistrar registers the existing billable sources of a customer
// into a freshly created invoice. Items open at the triggering date, not
// at the start of the invoice period.
type SourceRegistrar interface {
	RegisterSources(ctx context.Context, invoice *billing.Invoice, date time.Time) error
}

// InvoiceService owns the invoice lifecycle: the lazy per-month upsert,
// the pending to created transition with compensation, and cost
// recomputation.
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	profileRepo billing.PaymentProfileRepository
	compensator InvoiceCompensator
	sources     SourceRegistrar
	publisher   shared.EventPublisher
	issuer      billing.IssuerDetails
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	profileRepo billing.PaymentProfileRepository,
	issuer billing.IssuerDetails,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		profileRepo: profileRepo,
		issuer:      issuer,
		logger:      logger,
	}
}

// SetCompensator sets the credit compensator run at SetCreated
func (s *InvoiceService) SetCompensator(c InvoiceCompensator) {
	s.compensator = c
}

// SetSourceRegistrar sets the registrar that fills new invoices with the
// customer's existing sources.
func (s *InvoiceService) SetSourceRegistrar(r SourceRegistrar) {
	s.sources = r
}

// SetEventPublisher sets the event publisher for domain events
func (s *InvoiceService) SetEventPublisher(p shared.EventPublisher) {
	s.publisher = p
}

// GetOrCreateInvoice returns the customer's invoice for the month of
// date, creating a pending one when none exists. On creation the
// customer's existing billable sources are registered into it, so a
// usage report or credit event arriving first still produces a complete
// invoice.
func (s *InvoiceService) GetOrCreateInvoice(ctx context.Context, customerID uuid.UUID, date time.Time) (*billing.Invoice, bool, error) {
	invoice, created, err := s.invoiceRepo.GetOrCreate(ctx, customerID, date.Year(), int(date.Month()))
	if err != nil {
		return nil, false, err
	}
	if !created || s.sources == nil {
		return invoice, created, nil
	}

	err = s.invoiceRepo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
		if err := s.sources.RegisterSources(ctx, inv, date); err != nil {
			return err
		}
		inv.RecomputeCurrentCost()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	invoice, err = s.invoiceRepo.GetByID(ctx, invoice.ID)
	if err != nil {
		return nil, false, err
	}
	return invoice, true, nil
}

// GetInvoice returns an invoice with its items
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

// ListInvoices returns invoices matching the filter
func (s *InvoiceService) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	return s.invoiceRepo.List(ctx, filter)
}

// SetCreated moves a pending invoice to created: credit compensation
// runs, the total freezes, and an invoice_created event is emitted.
// Customers whose active payment profile is a fixed-price contract go
// straight to paid. Repeating the call on a non-pending invoice is a
// no-op.
func (s *InvoiceService) SetCreated(ctx context.Context, invoiceID uuid.UUID, now time.Time) error {
	fixedPrice := false
	transitioned := false

	err := s.invoiceRepo.UpdateWithLock(ctx, invoiceID, func(inv *billing.Invoice) error {
		if inv.State != billing.InvoiceStatePending {
			return nil
		}
		if s.compensator != nil {
			if err := s.compensator.CompensateInvoice(ctx, inv); err != nil {
				return err
			}
		}

		profile, err := s.profileRepo.GetActiveByCustomer(ctx, inv.CustomerID)
		if err != nil && !isNotFound(err) {
			return err
		}
		fixedPrice = err == nil && profile.PaymentType == billing.PaymentTypeFixedPrice

		if err := inv.MarkCreated(now, fixedPrice); err != nil {
			if errors.Is(err, shared.ErrInvalidState) {
				return nil
			}
			return err
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	s.publish(ctx, billing.NewInvoiceCreatedEvent(invoice, s.issuer))
	return nil
}

// RecomputeCurrentCost refreshes the cached invoice cost from its items
func (s *InvoiceService) RecomputeCurrentCost(ctx context.Context, invoiceID uuid.UUID) error {
	return s.invoiceRepo.UpdateWithLock(ctx, invoiceID, func(inv *billing.Invoice) error {
		inv.RecomputeCurrentCost()
		return nil
	})
}

// MarkPaid records external payment of a created invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, invoiceID uuid.UUID) error {
	return s.invoiceRepo.UpdateWithLock(ctx, invoiceID, func(inv *billing.Invoice) error {
		return inv.MarkPaid()
	})
}

// MarkCanceled cancels an invoice administratively
func (s *InvoiceService) MarkCanceled(ctx context.Context, invoiceID uuid.UUID) error {
	return s.invoiceRepo.UpdateWithLock(ctx, invoiceID, func(inv *billing.Invoice) error {
		return inv.MarkCanceled()
	})
}

// publish sends events, logging failures without propagating them
func (s *InvoiceService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish billing events", zap.Error(err))
	}
}
