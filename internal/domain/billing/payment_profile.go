package billing

import (
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentType describes how a customer settles invoices
type PaymentType string

const (
	// PaymentTypeFixedPrice marks a fixed-price contract: invoices are
	// considered settled on creation and no notifications are sent.
	PaymentTypeFixedPrice PaymentType = "fixed_price"
	// PaymentTypeMonthlyInvoices is the default invoice-then-pay flow
	PaymentTypeMonthlyInvoices PaymentType = "invoices"
	// PaymentTypeGatewayMonthly settles through an external gateway
	PaymentTypeGatewayMonthly PaymentType = "payment_gw_monthly"
)

// IsValid checks if the payment type is known
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeFixedPrice, PaymentTypeMonthlyInvoices, PaymentTypeGatewayMonthly:
		return true
	}
	return false
}

// PaymentProfile binds a customer to a payment type. A customer has at
// most one active profile; activating one deactivates the rest.
type PaymentProfile struct {
	shared.BaseEntity
	CustomerID  uuid.UUID
	Name        string
	PaymentType PaymentType
	IsActive    bool
}

// NewPaymentProfile creates a payment profile with validation
func NewPaymentProfile(customerID uuid.UUID, name string, paymentType PaymentType) (*PaymentProfile, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Unknown payment type")
	}

	return &PaymentProfile{
		BaseEntity:  shared.NewBaseEntity(),
		CustomerID:  customerID,
		Name:        name,
		PaymentType: paymentType,
		IsActive:    true,
	}, nil
}
