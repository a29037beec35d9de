package billing

import (
	"time"

	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerCredit is a prepaid balance that offsets the customer's monthly
// invoices. At most one credit exists per customer.
//
// MinimalConsumption is a floor: compensation may not reduce the invoice
// total below it. A credit past its end date is swept to zero by the daily
// overdue sweep.
type CustomerCredit struct {
	shared.BaseEntity
	CustomerID         uuid.UUID
	Value              decimal.Decimal
	MinimalConsumption decimal.Decimal
	EndDate            *time.Time
}

// NewCustomerCredit creates a customer credit with validation
func NewCustomerCredit(customerID uuid.UUID, value decimal.Decimal) (*CustomerCredit, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if value.IsNegative() {
		return nil, shared.NewDomainError("INVALID_CREDIT", "Credit value cannot be negative")
	}

	return &CustomerCredit{
		BaseEntity:         shared.NewBaseEntity(),
		CustomerID:         customerID,
		Value:              value,
		MinimalConsumption: decimal.Zero,
	}, nil
}

// WithMinimalConsumption sets the monthly consumption floor
func (c *CustomerCredit) WithMinimalConsumption(value decimal.Decimal) *CustomerCredit {
	c.MinimalConsumption = value
	return c
}

// WithEndDate sets the credit expiration date
func (c *CustomerCredit) WithEndDate(end time.Time) *CustomerCredit {
	c.EndDate = &end
	return c
}

// IsOverdue reports whether the credit has passed its end date
func (c *CustomerCredit) IsOverdue(now time.Time) bool {
	return c.EndDate != nil && c.EndDate.Before(now)
}

// Consume reduces the balance by at most amount and returns what was taken
func (c *CustomerCredit) Consume(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() || c.Value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	taken := decimal.Min(amount, c.Value)
	c.Value = c.Value.Sub(taken)
	c.Touch()
	return taken
}

// SetToZero drains an overdue credit and reports whether anything changed
func (c *CustomerCredit) SetToZero() bool {
	if c.Value.LessThanOrEqual(decimal.Zero) {
		return false
	}
	c.Value = decimal.Zero
	c.Touch()
	return true
}

// ProjectCredit is the part of a customer credit allocated to one project.
// Project credits are consumed before the customer credit; when
// UseOrganisationCredit is set, an exhausted project credit cascades the
// remainder into the customer credit for that project's items.
type ProjectCredit struct {
	shared.BaseEntity
	ProjectID             uuid.UUID
	CustomerID            uuid.UUID
	Value                 decimal.Decimal
	UseOrganisationCredit bool
}

// NewProjectCredit creates a project credit with validation
func NewProjectCredit(projectID, customerID uuid.UUID, value decimal.Decimal) (*ProjectCredit, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if value.IsNegative() {
		return nil, shared.NewDomainError("INVALID_CREDIT", "Credit value cannot be negative")
	}

	return &ProjectCredit{
		BaseEntity:            shared.NewBaseEntity(),
		ProjectID:             projectID,
		CustomerID:            customerID,
		Value:                 value,
		UseOrganisationCredit: true,
	}, nil
}

// Consume reduces the balance by at most amount and returns what was taken
func (c *ProjectCredit) Consume(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() || c.Value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	taken := decimal.Min(amount, c.Value)
	c.Value = c.Value.Sub(taken)
	c.Touch()
	return taken
}
