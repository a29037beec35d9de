package billing

import (
	"context"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubscriptionRegistrator bills plan components of subscription resources:
// fixed components accrue for the resource's lifetime, one-time components
// are billed at creation, plan-switch components on every plan change.
type SubscriptionRegistrator struct {
	kind         billing.ScopeKind
	resourceRepo billing.ResourceRepository
	planRepo     billing.PlanRepository
	logger       *zap.Logger
}

// NewSubscriptionRegistrator creates a subscription registrator for one
// scope kind.
func NewSubscriptionRegistrator(
	kind billing.ScopeKind,
	resourceRepo billing.ResourceRepository,
	planRepo billing.PlanRepository,
	logger *zap.Logger,
) *SubscriptionRegistrator {
	return &SubscriptionRegistrator{
		kind:         kind,
		resourceRepo: resourceRepo,
		planRepo:     planRepo,
		logger:       logger,
	}
}

// Kind returns the scope kind this registrator serves
func (r *SubscriptionRegistrator) Kind() billing.ScopeKind {
	return r.kind
}

// GetCustomer resolves the paying customer of a scope
func (r *SubscriptionRegistrator) GetCustomer(ctx context.Context, scope billing.Scope) (uuid.UUID, error) {
	resource, err := r.resourceRepo.GetByID(ctx, scope.ID)
	if err != nil {
		return uuid.Nil, err
	}
	return resource.CustomerID, nil
}

// Register creates open items for the resource's plan components. A
// resource without a plan is skipped with a warning.
func (r *SubscriptionRegistrator) Register(
	ctx context.Context,
	invoice *billing.Invoice,
	scope billing.Scope,
	now time.Time,
	reason RegistrationReason,
) error {
	resource, err := r.resourceRepo.GetByID(ctx, scope.ID)
	if err != nil {
		return err
	}
	if resource.PlanID == nil {
		r.logger.Warn("resource has no billing plan, skipping registration",
			zap.String("scope", scope.String()),
			zap.String("resource_name", resource.Name))
		return nil
	}
	if len(invoice.OpenItemsForScope(scope)) > 0 {
		return nil
	}

	period, err := r.ensurePlanPeriod(ctx, resource, now)
	if err != nil {
		return err
	}
	plan, err := r.planRepo.GetPlan(ctx, *resource.PlanID)
	if err != nil {
		return err
	}

	end := invoice.PeriodEnd()
	for _, component := range plan.Components {
		if !r.billsNow(component.BillingType, reason) {
			continue
		}

		unit := plan.Unit
		quantity := billing.QuantityFor(unit, now, end)
		if component.BillingType != billing.BillingTypeFixed {
			// one-time and plan-switch charges are not prorated
			unit = billing.UnitQuantity
			quantity = component.Amount
			if quantity.IsZero() {
				quantity = decimal.NewFromInt(1)
			}
		}

		item, err := billing.NewInvoiceItem(
			invoice.ID, scope, itemName(resource, component),
			unit, component.FixedPrice(), quantity, now, end)
		if err != nil {
			return err
		}
		item.WithProject(resource.ProjectID).
			WithComponent(period.ID, component.ComponentID).
			WithDetails(resource.Details())
		item.MeasuredUnit = component.MeasuredUnit
		invoice.AddItem(item)
	}
	return nil
}

// Terminate closes the open items of the scope at the given time
func (r *SubscriptionRegistrator) Terminate(
	ctx context.Context,
	invoice *billing.Invoice,
	scope billing.Scope,
	now time.Time,
) error {
	for _, item := range invoice.OpenItemsForScope(scope) {
		item.Terminate(now)
	}
	period, err := r.planRepo.GetOpenPlanPeriod(ctx, scope.ID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	period.Close(now)
	return r.planRepo.UpdatePlanPeriod(ctx, period)
}

// billsNow reports whether a component billing type applies to the reason
func (r *SubscriptionRegistrator) billsNow(bt billing.BillingType, reason RegistrationReason) bool {
	switch bt {
	case billing.BillingTypeFixed:
		return true
	case billing.BillingTypeOneTime:
		return reason == ReasonCreation
	case billing.BillingTypeOnPlanSwitch:
		return reason == ReasonPlanSwitch
	}
	return false
}

// ensurePlanPeriod returns the resource's open plan period, opening one
// when the resource has none yet.
func (r *SubscriptionRegistrator) ensurePlanPeriod(
	ctx context.Context,
	resource *billing.Resource,
	now time.Time,
) (*billing.ResourcePlanPeriod, error) {
	period, err := r.planRepo.GetOpenPlanPeriod(ctx, resource.ID)
	if err == nil {
		return period, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	period = &billing.ResourcePlanPeriod{
		BaseEntity: shared.NewBaseEntity(),
		ResourceID: resource.ID,
		PlanID:     *resource.PlanID,
		Start:      now,
	}
	if err := r.planRepo.CreatePlanPeriod(ctx, period); err != nil {
		return nil, err
	}
	return period, nil
}
