package billing

import (
	"time"

	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComponentUsage is a reported usage sample for one resource component in
// one billing period. Exactly one row exists per (resource, component,
// billing period); re-delivery overwrites the amount.
type ComponentUsage struct {
	shared.BaseEntity
	ResourceID   uuid.UUID
	ComponentID  uuid.UUID
	Date         time.Time // when the usage was measured
	BillingYear  int
	BillingMonth int
	Usage        decimal.Decimal
	PlanPeriodID uuid.UUID
}

// NewComponentUsage creates a usage sample with validation
func NewComponentUsage(
	resourceID, componentID uuid.UUID,
	date time.Time,
	usage decimal.Decimal,
	planPeriodID uuid.UUID,
) (*ComponentUsage, error) {
	if resourceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RESOURCE", "Resource ID cannot be empty")
	}
	if componentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPONENT", "Component ID cannot be empty")
	}
	if usage.IsNegative() {
		return nil, shared.NewDomainError("INVALID_USAGE", "Usage cannot be negative")
	}

	return &ComponentUsage{
		BaseEntity:   shared.NewBaseEntity(),
		ResourceID:   resourceID,
		ComponentID:  componentID,
		Date:         date,
		BillingYear:  date.Year(),
		BillingMonth: int(date.Month()),
		Usage:        usage,
		PlanPeriodID: planPeriodID,
	}, nil
}
