package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegistrationService routes lifecycle transitions of billable scopes to
// the registrator of their kind, serializing all invoice mutation through
// the invoice row lock.
type RegistrationService struct {
	registry     *RegistratorRegistry
	invoices     *InvoiceService
	invoiceRepo  billing.InvoiceRepository
	resourceRepo billing.ResourceRepository
	logger       *zap.Logger
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	registry *RegistratorRegistry,
	invoices *InvoiceService,
	invoiceRepo billing.InvoiceRepository,
	resourceRepo billing.ResourceRepository,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		registry:     registry,
		invoices:     invoices,
		invoiceRepo:  invoiceRepo,
		resourceRepo: resourceRepo,
		logger:       logger,
	}
}

// RegisterResource creates the open invoice items for a scope on the
// current month's invoice of its customer.
func (s *RegistrationService) RegisterResource(ctx context.Context, scope billing.Scope, now time.Time, reason RegistrationReason) error {
	registrator, ok := s.registry.Get(scope.Kind)
	if !ok {
		return fmt.Errorf("no registrator for scope kind %q", scope.Kind)
	}
	customerID, err := registrator.GetCustomer(ctx, scope)
	if err != nil {
		return fmt.Errorf("resolve customer of %s: %w", scope, err)
	}
	invoice, _, err := s.invoices.GetOrCreateInvoice(ctx, customerID, now)
	if err != nil {
		return err
	}
	return s.invoiceRepo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
		if invoiceFrozen(inv, s.logger, "resource registration") {
			return nil
		}
		if err := registrator.Register(ctx, inv, scope, now, reason); err != nil {
			return err
		}
		inv.RecomputeCurrentCost()
		return nil
	})
}

// TerminateResource closes the scope's open items on the current month's
// invoice. Terminating a scope with no open items is a no-op.
func (s *RegistrationService) TerminateResource(ctx context.Context, scope billing.Scope, now time.Time) error {
	registrator, ok := s.registry.Get(scope.Kind)
	if !ok {
		return fmt.Errorf("no registrator for scope kind %q", scope.Kind)
	}
	customerID, err := registrator.GetCustomer(ctx, scope)
	if err != nil {
		return fmt.Errorf("resolve customer of %s: %w", scope, err)
	}
	invoice, _, err := s.invoices.GetOrCreateInvoice(ctx, customerID, now)
	if err != nil {
		return err
	}
	return s.invoiceRepo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
		if invoiceFrozen(inv, s.logger, "resource termination") {
			return nil
		}
		if err := registrator.Terminate(ctx, inv, scope, now); err != nil {
			return err
		}
		inv.RecomputeCurrentCost()
		return nil
	})
}

// SwitchPlan closes the scope's open items and plan period, points the
// resource at the new plan and registers it again, billing plan-switch
// components along the way.
func (s *RegistrationService) SwitchPlan(ctx context.Context, scope billing.Scope, newPlanID uuid.UUID, now time.Time) error {
	resource, err := s.resourceRepo.GetByID(ctx, scope.ID)
	if err != nil {
		return err
	}
	if err := s.TerminateResource(ctx, scope, now); err != nil {
		return err
	}
	resource.PlanID = &newPlanID
	if err := s.resourceRepo.Update(ctx, resource); err != nil {
		return err
	}
	return s.RegisterResource(ctx, scope, now, ReasonPlanSwitch)
}

// DetachResource orphans the scope's invoice items after the underlying
// resource was deleted: items keep their denormalized details but drop
// the scope reference.
func (s *RegistrationService) DetachResource(ctx context.Context, scope billing.Scope, customerID uuid.UUID, now time.Time) error {
	invoice, _, err := s.invoices.GetOrCreateInvoice(ctx, customerID, now)
	if err != nil {
		return err
	}
	return s.invoiceRepo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
		if invoiceFrozen(inv, s.logger, "resource detach") {
			return nil
		}
		for _, item := range inv.OpenItemsForScope(scope) {
			item.Terminate(now)
		}
		for _, item := range inv.Items {
			if item.Scope == scope {
				item.Detach()
			}
		}
		inv.RecomputeCurrentCost()
		return nil
	})
}

// RegisterSources registers every billable resource of the invoice's
// customer into the invoice. Used when an invoice is first created, so
// the month starts complete regardless of which event opened it. Items
// open at date: a mid-month first event bills its sources from that
// event, while the month-rollover task passes the period start.
// Per-resource failures are logged and skipped.
func (s *RegistrationService) RegisterSources(ctx context.Context, invoice *billing.Invoice, date time.Time) error {
	resources, err := s.resourceRepo.ListByCustomer(ctx, invoice.CustomerID)
	if err != nil {
		return err
	}
	for _, resource := range resources {
		if !resource.State.IsBillable() {
			continue
		}
		registrator, ok := s.registry.Get(resource.Kind)
		if !ok {
			continue
		}
		if err := registrator.Register(ctx, invoice, resource.Scope(), date, ReasonPeriodic); err != nil {
			s.logger.Error("failed to register source into new invoice",
				zap.String("scope", resource.Scope().String()),
				zap.Error(err))
		}
	}
	return nil
}
