package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportUsageInput is one usage report from a metering collaborator
type ReportUsageInput struct {
	ResourceID   uuid.UUID
	ComponentID  uuid.UUID
	Date         time.Time
	Amount       decimal.Decimal
	PlanPeriodID *uuid.UUID // resolved from the resource's open period when nil
}

// UsageService aggregates reported component usage into invoice items.
// Re-delivery of a report for the same resource, component and billing
// period updates in place; the newest amount and component price win.
type UsageService struct {
	usageRepo    billing.ComponentUsageRepository
	invoiceRepo  billing.InvoiceRepository
	resourceRepo billing.ResourceRepository
	planRepo     billing.PlanRepository
	invoices     *InvoiceService
	logger       *zap.Logger
}

// NewUsageService creates a new UsageService
func NewUsageService(
	usageRepo billing.ComponentUsageRepository,
	invoiceRepo billing.InvoiceRepository,
	resourceRepo billing.ResourceRepository,
	planRepo billing.PlanRepository,
	invoices *InvoiceService,
	logger *zap.Logger,
) *UsageService {
	return &UsageService{
		usageRepo:    usageRepo,
		invoiceRepo:  invoiceRepo,
		resourceRepo: resourceRepo,
		planRepo:     planRepo,
		invoices:     invoices,
		logger:       logger,
	}
}

// ReportUsage stores the usage sample and creates or updates the invoice
// item it bills into.
func (s *UsageService) ReportUsage(ctx context.Context, input ReportUsageInput) error {
	resource, err := s.resourceRepo.GetByID(ctx, input.ResourceID)
	if err != nil {
		return fmt.Errorf("load resource %s: %w", input.ResourceID, err)
	}
	if resource.PlanID == nil {
		s.logger.Warn("usage reported for resource without a billing plan, skipping",
			zap.String("resource_id", input.ResourceID.String()),
			zap.String("resource_name", resource.Name))
		return nil
	}

	period, err := s.resolvePlanPeriod(ctx, input)
	if err != nil {
		return err
	}
	plan, err := s.planRepo.GetPlan(ctx, period.PlanID)
	if err != nil {
		return err
	}
	component := plan.ComponentByID(input.ComponentID)
	if component == nil {
		s.logger.Warn("usage reported for unknown plan component, skipping",
			zap.String("resource_id", input.ResourceID.String()),
			zap.String("component_id", input.ComponentID.String()))
		return nil
	}

	usage, err := billing.NewComponentUsage(
		input.ResourceID, input.ComponentID, input.Date, input.Amount, period.ID)
	if err != nil {
		return err
	}
	if err := s.usageRepo.Upsert(ctx, usage); err != nil {
		return err
	}

	invoice, _, err := s.invoices.GetOrCreateInvoice(ctx, resource.CustomerID, input.Date)
	if err != nil {
		return err
	}
	return s.invoiceRepo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
		if invoiceFrozen(inv, s.logger, "usage report") {
			return nil
		}
		if err := s.applyUsage(inv, resource, period, component, input); err != nil {
			return err
		}
		inv.RecomputeCurrentCost()
		return nil
	})
}

// ListUsage returns the usage samples of a resource in a billing period
func (s *UsageService) ListUsage(ctx context.Context, resourceID uuid.UUID, year, month int) ([]*billing.ComponentUsage, error) {
	return s.usageRepo.ListByResourcePeriod(ctx, resourceID, year, month)
}

// applyUsage creates or updates the usage item on the locked invoice
func (s *UsageService) applyUsage(
	inv *billing.Invoice,
	resource *billing.Resource,
	period *billing.ResourcePlanPeriod,
	component *billing.PlanComponent,
	input ReportUsageInput,
) error {
	scope := resource.Scope()
	start, end := period.ItemWindow(input.Date)

	item := inv.FindUsageItem(scope, period.ID, component.ComponentID)
	if item == nil {
		item, err := billing.NewInvoiceItem(
			inv.ID, scope, itemName(resource, *component),
			billing.UnitQuantity, component.Price, input.Amount, start, end)
		if err != nil {
			return err
		}
		item.WithProject(resource.ProjectID).
			WithComponent(period.ID, component.ComponentID).
			WithDetails(resource.Details())
		item.MeasuredUnit = component.MeasuredUnit
		inv.AddItem(item)
		return nil
	}

	item.Quantity = input.Amount
	item.UnitPrice = component.Price
	item.Start = start
	item.End = end
	return nil
}

// resolvePlanPeriod returns the plan period a report bills against
func (s *UsageService) resolvePlanPeriod(ctx context.Context, input ReportUsageInput) (*billing.ResourcePlanPeriod, error) {
	if input.PlanPeriodID != nil {
		return s.planRepo.GetPlanPeriod(ctx, *input.PlanPeriodID)
	}
	period, err := s.planRepo.GetOpenPlanPeriod(ctx, input.ResourceID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.ErrResourceNotBillable
		}
		return nil, err
	}
	return period, nil
}
