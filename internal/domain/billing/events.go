package billing

import (
	"time"

	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types emitted by the billing engine and consumed by audit and
// notification collaborators.
const (
	EventTypeInvoiceCreated               = "invoice_created"
	EventTypeCreditReduction              = "reduction_of_credit"
	EventTypeCreditMinimalConsumption     = "reduction_of_credit_due_to_minimal_consumption"
	EventTypeCreditSetToZeroOverdue       = "set_to_zero_overdue_credit"
	EventTypeCreditCreatedByStaff         = "create_of_credit_by_staff"
	EventTypeCreditUpdatedByStaff         = "update_of_credit_by_staff"
	EventTypeInvoiceNotificationRequested = "invoice_notification_requested"
)

// IssuerDetails identifies the invoicing organization on emitted invoices
type IssuerDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// InvoiceCreatedEvent is emitted when an invoice leaves the pending state
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Total      decimal.Decimal `json:"total"`
	Issuer     IssuerDetails   `json:"issuer_details"`
}

// NewInvoiceCreatedEvent creates an invoice created event
func NewInvoiceCreatedEvent(invoice *Invoice, issuer IssuerDetails) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, "Invoice", invoice.ID),
		CustomerID:      invoice.CustomerID,
		Year:            invoice.Year,
		Month:           invoice.Month,
		Total:           invoice.Total,
		Issuer:          issuer,
	}
}

// CreditReductionEvent is emitted for every credit compensation applied
// to an invoice at month rollover.
type CreditReductionEvent struct {
	shared.BaseDomainEvent
	CustomerID  uuid.UUID       `json:"customer_id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Consumption decimal.Decimal `json:"consumption"`
	ItemName    string          `json:"invoice_item"`
}

// NewCreditReductionEvent creates a credit reduction event. Emitted for
// customer and project credits alike.
func NewCreditReductionEvent(creditID, customerID, invoiceID uuid.UUID, consumption decimal.Decimal, itemName string) *CreditReductionEvent {
	return &CreditReductionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditReduction, "Credit", creditID),
		CustomerID:      customerID,
		InvoiceID:       invoiceID,
		Consumption:     consumption,
		ItemName:        itemName,
	}
}

// CreditMinimalConsumptionEvent is emitted when the minimal consumption
// floor, not the invoice cost, determined the credit reduction.
type CreditMinimalConsumptionEvent struct {
	shared.BaseDomainEvent
	CustomerID         uuid.UUID       `json:"customer_id"`
	Consumption        decimal.Decimal `json:"consumption"`
	MinimalConsumption decimal.Decimal `json:"minimal_consumption"`
}

// NewCreditMinimalConsumptionEvent creates a minimal consumption event
func NewCreditMinimalConsumptionEvent(credit *CustomerCredit, consumption decimal.Decimal) *CreditMinimalConsumptionEvent {
	return &CreditMinimalConsumptionEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeCreditMinimalConsumption, "CustomerCredit", credit.ID),
		CustomerID:         credit.CustomerID,
		Consumption:        consumption,
		MinimalConsumption: credit.MinimalConsumption,
	}
}

// CreditSetToZeroEvent is emitted exactly once when an overdue credit is
// drained by the daily sweep.
type CreditSetToZeroEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	OldValue   decimal.Decimal `json:"old_value"`
	EndDate    *time.Time      `json:"end_date"`
}

// NewCreditSetToZeroEvent creates an overdue credit sweep event
func NewCreditSetToZeroEvent(credit *CustomerCredit, oldValue decimal.Decimal) *CreditSetToZeroEvent {
	return &CreditSetToZeroEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditSetToZeroOverdue, "CustomerCredit", credit.ID),
		CustomerID:      credit.CustomerID,
		OldValue:        oldValue,
		EndDate:         credit.EndDate,
	}
}

// CreditStaffChangeEvent records administrative credit edits for audit
type CreditStaffChangeEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	Value      decimal.Decimal `json:"value"`
}

// NewCreditCreatedByStaffEvent creates an audit event for credit creation
func NewCreditCreatedByStaffEvent(creditID, customerID uuid.UUID, value decimal.Decimal) *CreditStaffChangeEvent {
	return &CreditStaffChangeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditCreatedByStaff, "Credit", creditID),
		CustomerID:      customerID,
		Value:           value,
	}
}

// NewCreditUpdatedByStaffEvent creates an audit event for a credit edit
func NewCreditUpdatedByStaffEvent(creditID, customerID uuid.UUID, value decimal.Decimal) *CreditStaffChangeEvent {
	return &CreditStaffChangeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditUpdatedByStaff, "Credit", creditID),
		CustomerID:      customerID,
		Value:           value,
	}
}

// InvoiceNotificationEvent asks the notification collaborators to deliver
// an invoice to the customer owners after month rollover.
type InvoiceNotificationEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Total      decimal.Decimal `json:"total"`
}

// NewInvoiceNotificationEvent creates an invoice notification request
func NewInvoiceNotificationEvent(invoice *Invoice) *InvoiceNotificationEvent {
	return &InvoiceNotificationEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceNotificationRequested, "Invoice", invoice.ID),
		CustomerID:      invoice.CustomerID,
		Year:            invoice.Year,
		Month:           invoice.Month,
		Total:           invoice.Total,
	}
}
