package billing

import (
	"time"

	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceState represents the lifecycle state of an invoice
type InvoiceState string

const (
	InvoiceStatePending  InvoiceState = "pending"
	InvoiceStateCreated  InvoiceState = "created"
	InvoiceStatePaid     InvoiceState = "paid"
	InvoiceStateCanceled InvoiceState = "canceled"
)

// IsValid checks if the state is a known invoice state
func (s InvoiceState) IsValid() bool {
	switch s {
	case InvoiceStatePending, InvoiceStateCreated, InvoiceStatePaid, InvoiceStateCanceled:
		return true
	}
	return false
}

// String returns the string representation of the state
func (s InvoiceState) String() string {
	return string(s)
}

// invoiceTransitions is the exhaustive state transition table. An invoice
// is mutable only while pending; paid and canceled are terminal.
var invoiceTransitions = map[InvoiceState][]InvoiceState{
	InvoiceStatePending:  {InvoiceStateCreated, InvoiceStatePaid, InvoiceStateCanceled},
	InvoiceStateCreated:  {InvoiceStatePaid, InvoiceStateCanceled},
	InvoiceStatePaid:     {},
	InvoiceStateCanceled: {},
}

// CanTransitionTo reports whether the transition is legal
func (s InvoiceState) CanTransitionTo(target InvoiceState) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Invoice is the monthly billing aggregate for one customer. Exactly one
// invoice exists per (customer, year, month).
//
// CurrentCost is a cached aggregate that is always re-derivable by summing
// the items; Total is frozen when the invoice leaves the pending state.
type Invoice struct {
	shared.BaseEntity
	CustomerID  uuid.UUID
	Year        int
	Month       int
	State       InvoiceState
	CurrentCost decimal.Decimal
	Total       decimal.Decimal
	InvoiceDate *time.Time // date of the pending -> created transition
	Items       []*InvoiceItem
}

// NewInvoice creates a new pending invoice for a billing period
func NewInvoice(customerID uuid.UUID, year, month int) (*Invoice, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Month must be between 1 and 12")
	}
	if year < 1 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Year must be positive")
	}

	return &Invoice{
		BaseEntity:  shared.NewBaseEntity(),
		CustomerID:  customerID,
		Year:        year,
		Month:       month,
		State:       InvoiceStatePending,
		CurrentCost: decimal.Zero,
		Total:       decimal.Zero,
		Items:       make([]*InvoiceItem, 0),
	}, nil
}

// PeriodStart returns the first instant of the billing period
func (inv *Invoice) PeriodStart() time.Time {
	return time.Date(inv.Year, time.Month(inv.Month), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodEnd returns the last instant of the billing period
func (inv *Invoice) PeriodEnd() time.Time {
	return MonthEnd(inv.PeriodStart())
}

// Price returns the invoice total derived from its items. This is the sole
// source of truth for the invoice cost; no running counter is maintained.
func (inv *Invoice) Price() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range inv.Items {
		sum = sum.Add(item.Price())
	}
	return QuantizePrice(sum)
}

// PriceCurrent returns the live estimate: time-based item quantities are
// recomputed against min(item end, now).
func (inv *Invoice) PriceCurrent(now time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range inv.Items {
		sum = sum.Add(item.PriceAt(now))
	}
	return QuantizePrice(sum)
}

// RecomputeCurrentCost refreshes the cached aggregate from the items
func (inv *Invoice) RecomputeCurrentCost() {
	inv.CurrentCost = inv.Price()
}

// transition moves the invoice to a new state, enforcing the table
func (inv *Invoice) transition(target InvoiceState) error {
	if !inv.State.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			"Invoice cannot move from "+inv.State.String()+" to "+target.String())
	}
	inv.State = target
	inv.Touch()
	return nil
}

// MarkCreated freezes the invoice total and leaves the pending state.
// Customers on a fixed-price contract go straight to paid. Returns
// ErrInvalidState when the invoice is not pending; callers treat a repeat
// call as an idempotent no-op.
func (inv *Invoice) MarkCreated(now time.Time, fixedPrice bool) error {
	if inv.State != InvoiceStatePending {
		return shared.ErrInvalidState
	}
	target := InvoiceStateCreated
	if fixedPrice {
		target = InvoiceStatePaid
	}
	if err := inv.transition(target); err != nil {
		return err
	}
	inv.RecomputeCurrentCost()
	inv.Total = inv.CurrentCost
	date := now
	inv.InvoiceDate = &date
	return nil
}

// MarkPaid records external payment of a created invoice
func (inv *Invoice) MarkPaid() error {
	return inv.transition(InvoiceStatePaid)
}

// MarkCanceled cancels the invoice administratively
func (inv *Invoice) MarkCanceled() error {
	return inv.transition(InvoiceStateCanceled)
}

// AddItem appends an item to the invoice
func (inv *Invoice) AddItem(item *InvoiceItem) {
	inv.Items = append(inv.Items, item)
}

// RemoveItem deletes an item by ID and reports whether it was present
func (inv *Invoice) RemoveItem(id uuid.UUID) bool {
	for n, item := range inv.Items {
		if item.ID == id {
			inv.Items = append(inv.Items[:n], inv.Items[n+1:]...)
			return true
		}
	}
	return false
}

// OpenItemsForScope returns the items for a scope that are still accruing
func (inv *Invoice) OpenItemsForScope(scope Scope) []*InvoiceItem {
	monthEnd := inv.PeriodEnd()
	var open []*InvoiceItem
	for _, item := range inv.Items {
		if item.Scope == scope && item.IsOpenAt(monthEnd) {
			open = append(open, item)
		}
	}
	return open
}

// FindUsageItem locates the item keyed by (scope, plan period, component)
func (inv *Invoice) FindUsageItem(scope Scope, planPeriodID, componentID uuid.UUID) *InvoiceItem {
	for _, item := range inv.Items {
		if item.Scope == scope &&
			item.PlanPeriodID != nil && *item.PlanPeriodID == planPeriodID &&
			item.ComponentID != nil && *item.ComponentID == componentID {
			return item
		}
	}
	return nil
}

// ItemsForProject returns the non-compensation items owned by a project
func (inv *Invoice) ItemsForProject(projectID uuid.UUID) []*InvoiceItem {
	var items []*InvoiceItem
	for _, item := range inv.Items {
		if item.ProjectID != nil && *item.ProjectID == projectID && !item.IsCompensation() {
			items = append(items, item)
		}
	}
	return items
}
