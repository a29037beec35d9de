package billing

import (
	"context"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransferService moves the open billing state of a project when it
// changes customer mid-month. Prior-month invoices are never touched:
// historical cost stays attributed to the previous owner.
type TransferService struct {
	invoices     *InvoiceService
	invoiceRepo  billing.InvoiceRepository
	resourceRepo billing.ResourceRepository
	creditRepo   billing.CreditRepository
	logger       *zap.Logger
}

// NewTransferService creates a new TransferService
func NewTransferService(
	invoices *InvoiceService,
	invoiceRepo billing.InvoiceRepository,
	resourceRepo billing.ResourceRepository,
	creditRepo billing.CreditRepository,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		invoices:     invoices,
		invoiceRepo:  invoiceRepo,
		resourceRepo: resourceRepo,
		creditRepo:   creditRepo,
		logger:       logger,
	}
}

// TransferProject removes the project's open items from the old
// customer's current invoice and recreates them on the new customer's
// invoice, accruing from now on. Resource ownership and the project
// credit follow the project.
func (s *TransferService) TransferProject(ctx context.Context, projectID, oldCustomerID, newCustomerID uuid.UUID, now time.Time) error {
	oldInvoice, _, err := s.invoices.GetOrCreateInvoice(ctx, oldCustomerID, now)
	if err != nil {
		return err
	}

	var moved []*billing.InvoiceItem
	err = s.invoiceRepo.UpdateWithLock(ctx, oldInvoice.ID, func(inv *billing.Invoice) error {
		if invoiceFrozen(inv, s.logger, "project transfer") {
			return nil
		}
		moved = moved[:0]
		monthEnd := inv.PeriodEnd()
		for _, item := range inv.ItemsForProject(projectID) {
			if item.IsOpenAt(monthEnd) {
				moved = append(moved, item)
			}
		}
		for _, item := range moved {
			inv.RemoveItem(item.ID)
		}
		inv.RecomputeCurrentCost()
		return nil
	})
	if err != nil {
		return err
	}

	newInvoice, _, err := s.invoices.GetOrCreateInvoice(ctx, newCustomerID, now)
	if err != nil {
		return err
	}
	err = s.invoiceRepo.UpdateWithLock(ctx, newInvoice.ID, func(inv *billing.Invoice) error {
		if invoiceFrozen(inv, s.logger, "project transfer") {
			return nil
		}
		end := inv.PeriodEnd()
		for _, old := range moved {
			quantity := old.Quantity
			if old.Unit.IsTimeBased() {
				quantity = billing.QuantityFor(old.Unit, now, end)
			}
			item, err := billing.NewInvoiceItem(
				inv.ID, old.Scope, old.Name, old.Unit, old.UnitPrice, quantity, now, end)
			if err != nil {
				return err
			}
			item.WithProject(projectID).WithDetails(old.Details)
			if old.PlanPeriodID != nil && old.ComponentID != nil {
				item.WithComponent(*old.PlanPeriodID, *old.ComponentID)
			}
			item.MeasuredUnit = old.MeasuredUnit
			inv.AddItem(item)
		}
		inv.RecomputeCurrentCost()
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.reownResources(ctx, projectID, newCustomerID); err != nil {
		return err
	}
	return s.reownProjectCredit(ctx, projectID, newCustomerID)
}

// reownResources points the project's resources at the new customer
func (s *TransferService) reownResources(ctx context.Context, projectID, newCustomerID uuid.UUID) error {
	resources, err := s.resourceRepo.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, resource := range resources {
		resource.CustomerID = newCustomerID
		if err := s.resourceRepo.Update(ctx, resource); err != nil {
			return err
		}
	}
	return nil
}

// reownProjectCredit moves the project credit to the new customer
func (s *TransferService) reownProjectCredit(ctx context.Context, projectID, newCustomerID uuid.UUID) error {
	credit, err := s.creditRepo.GetProjectCreditByProject(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	credit.CustomerID = newCustomerID
	return s.creditRepo.UpdateProjectCredit(ctx, credit)
}
