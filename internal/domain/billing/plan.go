package billing

import (
	"time"

	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingType determines when a plan component produces invoice items
type BillingType string

const (
	// BillingTypeFixed components accrue for every billing period the
	// resource exists, prorated by the plan unit.
	BillingTypeFixed BillingType = "fixed"
	// BillingTypeUsage components are billed from reported usage only
	BillingTypeUsage BillingType = "usage"
	// BillingTypeOneTime components are billed once, at resource creation
	BillingTypeOneTime BillingType = "one_time"
	// BillingTypeOnPlanSwitch components are billed on every plan change
	BillingTypeOnPlanSwitch BillingType = "on_plan_switch"
)

// IsValid checks if the billing type is known
func (t BillingType) IsValid() bool {
	switch t {
	case BillingTypeFixed, BillingTypeUsage, BillingTypeOneTime, BillingTypeOnPlanSwitch:
		return true
	}
	return false
}

// Plan is a priced billing plan of an offering
type Plan struct {
	shared.BaseEntity
	Name         string
	OfferingName string
	Unit         Unit // billing unit of the plan's fixed components
	Components   []PlanComponent
}

// PlanComponent is one priced unit (cpu, ram, node, ...) within a plan
type PlanComponent struct {
	ID            uuid.UUID
	PlanID        uuid.UUID
	ComponentID   uuid.UUID // stable component identity across plans
	ComponentName string
	ComponentType string
	BillingType   BillingType
	MeasuredUnit  string
	Price         decimal.Decimal
	Amount        decimal.Decimal // multiplier for fixed components
}

// FixedPrice returns the effective unit price of a fixed component
func (c PlanComponent) FixedPrice() decimal.Decimal {
	if c.Amount.IsZero() {
		return c.Price
	}
	return c.Price.Mul(c.Amount)
}

// ComponentByID returns the plan component with the given component identity
func (p *Plan) ComponentByID(componentID uuid.UUID) *PlanComponent {
	for n := range p.Components {
		if p.Components[n].ComponentID == componentID {
			return &p.Components[n]
		}
	}
	return nil
}

// ResourcePlanPeriod is the validity window of a plan assignment to a
// resource. A nil end means the assignment is open-ended.
type ResourcePlanPeriod struct {
	shared.BaseEntity
	ResourceID uuid.UUID
	PlanID     uuid.UUID
	Start      time.Time
	End        *time.Time
}

// Contains reports whether the period covers the given instant
func (p *ResourcePlanPeriod) Contains(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	return p.End == nil || !t.After(*p.End)
}

// Close ends an open-ended period
func (p *ResourcePlanPeriod) Close(end time.Time) {
	p.End = &end
}

// ItemWindow clamps the period to the month containing monthRef, yielding
// the billable window of an invoice item tied to this plan period.
func (p *ResourcePlanPeriod) ItemWindow(monthRef time.Time) (time.Time, time.Time) {
	start := MonthStart(monthRef)
	end := MonthEnd(monthRef)
	if p.Start.After(start) {
		start = p.Start
	}
	if p.End != nil && p.End.Before(end) {
		end = *p.End
	}
	return start, end
}
