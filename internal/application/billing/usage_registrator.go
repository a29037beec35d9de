package billing

import (
	"context"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UsageRegistrator serves scope kinds billed purely from reported usage.
// Registration creates nothing: items appear when usage is reported.
// Termination closes whatever usage items the reports produced.
type UsageRegistrator struct {
	kind         billing.ScopeKind
	resourceRepo billing.ResourceRepository
	logger       *zap.Logger
}

// NewUsageRegistrator creates a usage registrator for one scope kind
func NewUsageRegistrator(
	kind billing.ScopeKind,
	resourceRepo billing.ResourceRepository,
	logger *zap.Logger,
) *UsageRegistrator {
	return &UsageRegistrator{
		kind:         kind,
		resourceRepo: resourceRepo,
		logger:       logger,
	}
}

// Kind returns the scope kind this registrator serves
func (r *UsageRegistrator) Kind() billing.ScopeKind {
	return r.kind
}

// GetCustomer resolves the paying customer of a scope
func (r *UsageRegistrator) GetCustomer(ctx context.Context, scope billing.Scope) (uuid.UUID, error) {
	resource, err := r.resourceRepo.GetByID(ctx, scope.ID)
	if err != nil {
		return uuid.Nil, err
	}
	return resource.CustomerID, nil
}

// Register is a no-op for usage-billed scopes
func (r *UsageRegistrator) Register(
	ctx context.Context,
	invoice *billing.Invoice,
	scope billing.Scope,
	now time.Time,
	reason RegistrationReason,
) error {
	return nil
}

// Terminate closes the open usage items of the scope
func (r *UsageRegistrator) Terminate(
	ctx context.Context,
	invoice *billing.Invoice,
	scope billing.Scope,
	now time.Time,
) error {
	for _, item := range invoice.OpenItemsForScope(scope) {
		item.Terminate(now)
	}
	return nil
}
