package billing

import (
	"time"

	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unit is the billing unit of an invoice item
type Unit string

const (
	UnitQuantity     Unit = "quantity"
	UnitPerHour      Unit = "hour"
	UnitPerDay       Unit = "day"
	UnitPerHalfMonth Unit = "half_month"
	UnitPerMonth     Unit = "month"
)

// IsValid checks if the unit is a known billing unit
func (u Unit) IsValid() bool {
	switch u {
	case UnitQuantity, UnitPerHour, UnitPerDay, UnitPerHalfMonth, UnitPerMonth:
		return true
	}
	return false
}

// String returns the string representation of the unit
func (u Unit) String() string {
	return string(u)
}

// IsTimeBased reports whether the item quantity is derived from its window
func (u Unit) IsTimeBased() bool {
	return u == UnitPerHour || u == UnitPerDay || u == UnitPerHalfMonth || u == UnitPerMonth
}

// ItemDetails stores denormalized data about the billed scope: resource,
// plan, offering and component names survive deletion of their sources.
type ItemDetails map[string]any

// InvoiceItem is one billable line within an invoice.
//
// For time-based units the quantity is derived from the item window and
// updated when the item is terminated. For usage-based components the
// quantity is the amount reported during the billing period.
type InvoiceItem struct {
	shared.BaseEntity
	InvoiceID    uuid.UUID
	Scope        Scope // zero when the source has been deleted
	ProjectID    *uuid.UUID
	PlanPeriodID *uuid.UUID
	ComponentID  *uuid.UUID
	Name         string
	MeasuredUnit string
	Unit         Unit
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	Start        time.Time
	End          time.Time
	Details      ItemDetails
	CreditID     *uuid.UUID // set only for credit compensation items
}

// NewInvoiceItem creates a new invoice item with validation
func NewInvoiceItem(
	invoiceID uuid.UUID,
	scope Scope,
	name string,
	unit Unit,
	unitPrice decimal.Decimal,
	quantity decimal.Decimal,
	start time.Time,
	end time.Time,
) (*InvoiceItem, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !unit.IsValid() {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unknown billing unit")
	}
	if end.Before(start) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Item end cannot be before item start")
	}

	return &InvoiceItem{
		BaseEntity: shared.NewBaseEntity(),
		InvoiceID:  invoiceID,
		Scope:      scope,
		Name:       name,
		Unit:       unit,
		UnitPrice:  unitPrice,
		Quantity:   quantity,
		Start:      start,
		End:        end,
		Details:    make(ItemDetails),
	}, nil
}

// WithProject sets the owning project
func (i *InvoiceItem) WithProject(projectID uuid.UUID) *InvoiceItem {
	i.ProjectID = &projectID
	return i
}

// WithComponent links the item to a plan period and component
func (i *InvoiceItem) WithComponent(planPeriodID, componentID uuid.UUID) *InvoiceItem {
	i.PlanPeriodID = &planPeriodID
	i.ComponentID = &componentID
	return i
}

// WithDetails merges denormalized scope data into the item
func (i *InvoiceItem) WithDetails(details ItemDetails) *InvoiceItem {
	if i.Details == nil {
		i.Details = make(ItemDetails)
	}
	for k, v := range details {
		i.Details[k] = v
	}
	return i
}

// Price returns the item total: unit price times quantity, quantized
func (i *InvoiceItem) Price() decimal.Decimal {
	return QuantizePrice(i.UnitPrice.Mul(i.Quantity))
}

// PriceAt returns the live estimate of the item total: for hour and day
// based items the quantity is recomputed against min(end, now).
func (i *InvoiceItem) PriceAt(now time.Time) decimal.Decimal {
	quantity := i.Quantity
	end := i.End
	if now.Before(end) {
		end = now
	}
	switch i.Unit {
	case UnitPerHour:
		quantity = decimal.NewFromInt(int64(FullHours(i.Start, end)))
	case UnitPerDay:
		quantity = decimal.NewFromInt(int64(FullDays(i.Start, end)))
	}
	return QuantizePrice(i.UnitPrice.Mul(quantity))
}

// Terminate closes the item window at the given time and, for time-based
// units, recomputes the quantity for the closed window.
func (i *InvoiceItem) Terminate(end time.Time) {
	if end.Before(i.Start) {
		end = i.Start
	}
	i.End = end
	if i.Unit.IsTimeBased() {
		i.Quantity = QuantityFor(i.Unit, i.Start, i.End)
	}
}

// Detach removes the scope reference while keeping the denormalized
// details, so billed history survives deletion of the source.
func (i *InvoiceItem) Detach() {
	i.Scope = Scope{}
}

// IsDetached reports whether the source of the item has been deleted
func (i *InvoiceItem) IsDetached() bool {
	return i.Scope.IsZero()
}

// IsCompensation reports whether the item is a credit compensation line
func (i *InvoiceItem) IsCompensation() bool {
	return i.CreditID != nil
}

// IsOpenAt reports whether the item is still accruing at the end of its
// invoice period: a non-compensation item whose window ends at month end.
func (i *InvoiceItem) IsOpenAt(monthEnd time.Time) bool {
	return !i.IsCompensation() && !i.End.Before(monthEnd)
}

// ClampWindow restricts the item window to the month containing monthRef
func (i *InvoiceItem) ClampWindow(monthRef time.Time) {
	ms := MonthStart(monthRef)
	me := MonthEnd(monthRef)
	if i.Start.Before(ms) {
		i.Start = ms
	}
	if i.End.After(me) {
		i.End = me
	}
}
