package billing

import (
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCustomerCreditInput is the administrative credit creation request
type CreateCustomerCreditInput struct {
	CustomerID         uuid.UUID
	Value              decimal.Decimal
	MinimalConsumption *decimal.Decimal
	EndDate            *time.Time
}

// UpdateCustomerCreditInput is the administrative credit edit request.
// Nil fields are left unchanged.
type UpdateCustomerCreditInput struct {
	Value              *decimal.Decimal
	MinimalConsumption *decimal.Decimal
	EndDate            *time.Time
}

// CreateProjectCreditInput allocates part of a customer credit to a project
type CreateProjectCreditInput struct {
	ProjectID             uuid.UUID
	CustomerID            uuid.UUID
	Value                 decimal.Decimal
	UseOrganisationCredit *bool
}

// CreatePaymentProfileInput creates a payment profile for a customer
type CreatePaymentProfileInput struct {
	CustomerID  uuid.UUID
	Name        string
	PaymentType billing.PaymentType
}
