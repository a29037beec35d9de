package billing

import (
	"context"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// RegistrationReason tells a registrator why a resource is being
// registered, so one-time and plan-switch components are billed only on
// the lifecycle transitions that warrant them.
type RegistrationReason string

const (
	// ReasonCreation is the first registration of a resource
	ReasonCreation RegistrationReason = "creation"
	// ReasonPlanSwitch follows a plan change
	ReasonPlanSwitch RegistrationReason = "plan_switch"
	// ReasonPeriodic re-registers existing resources into a new monthly
	// invoice at rollover.
	ReasonPeriodic RegistrationReason = "periodic"
)

// Registrator turns lifecycle transitions of one scope kind into invoice
// items. Implementations mutate the invoice passed to them; the caller
// owns transaction and locking concerns.
type Registrator interface {
	// Kind returns the scope kind this registrator serves
	Kind() billing.ScopeKind
	// GetCustomer resolves the paying customer of a scope
	GetCustomer(ctx context.Context, scope billing.Scope) (uuid.UUID, error)
	// Register creates the open invoice items for the scope. Creating
	// nothing is a valid outcome: a scope without billing configuration
	// is skipped with a logged warning, never an error.
	Register(ctx context.Context, invoice *billing.Invoice, scope billing.Scope, now time.Time, reason RegistrationReason) error
	// Terminate closes the open items of the scope at the given time
	Terminate(ctx context.Context, invoice *billing.Invoice, scope billing.Scope, now time.Time) error
}

// RegistratorRegistry is an immutable kind-to-registrator map built at
// process start.
type RegistratorRegistry struct {
	byKind map[billing.ScopeKind]Registrator
}

// NewRegistratorRegistry builds an immutable registrator registry
func NewRegistratorRegistry(registrators ...Registrator) *RegistratorRegistry {
	byKind := make(map[billing.ScopeKind]Registrator, len(registrators))
	for _, r := range registrators {
		byKind[r.Kind()] = r
	}
	return &RegistratorRegistry{byKind: byKind}
}

// Get returns the registrator for a scope kind
func (r *RegistratorRegistry) Get(kind billing.ScopeKind) (Registrator, bool) {
	reg, ok := r.byKind[kind]
	return reg, ok
}

// Kinds returns the registered scope kinds
func (r *RegistratorRegistry) Kinds() []billing.ScopeKind {
	kinds := make([]billing.ScopeKind, 0, len(r.byKind))
	for kind := range r.byKind {
		kinds = append(kinds, kind)
	}
	return kinds
}
