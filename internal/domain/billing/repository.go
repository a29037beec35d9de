package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceRepository persists invoices together with their line items
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	Update(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// GetByPeriod returns the customer's invoice for the given billing
	// month, or shared.ErrNotFound.
	GetByPeriod(ctx context.Context, customerID uuid.UUID, year, month int) (*Invoice, error)
	// GetOrCreate returns the customer's invoice for the period,
	// inserting an empty pending invoice when none exists. The boolean
	// reports whether the invoice was created by this call. Concurrent
	// callers for the same (customer, year, month) converge on a single
	// row.
	GetOrCreate(ctx context.Context, customerID uuid.UUID, year, month int) (*Invoice, bool, error)
	// UpdateWithLock loads the invoice and its items under a row lock,
	// applies fn and persists the result in one transaction.
	UpdateWithLock(ctx context.Context, id uuid.UUID, fn func(invoice *Invoice) error) error
	List(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)
	// ListPendingBefore returns pending invoices whose period started
	// before the given month.
	ListPendingBefore(ctx context.Context, year, month int) ([]*Invoice, error)
}

// InvoiceFilter narrows invoice listings. Nil fields match everything.
type InvoiceFilter struct {
	CustomerID *uuid.UUID
	Year       *int
	Month      *int
	State      *InvoiceState
}

// CreditRepository persists customer and project credits
type CreditRepository interface {
	CreateCustomerCredit(ctx context.Context, credit *CustomerCredit) error
	UpdateCustomerCredit(ctx context.Context, credit *CustomerCredit) error
	GetCustomerCredit(ctx context.Context, id uuid.UUID) (*CustomerCredit, error)
	GetCustomerCreditByCustomer(ctx context.Context, customerID uuid.UUID) (*CustomerCredit, error)
	ListCustomerCredits(ctx context.Context) ([]*CustomerCredit, error)
	// ListOverdueCredits returns positive credits whose end date has
	// passed as of now.
	ListOverdueCredits(ctx context.Context, now time.Time) ([]*CustomerCredit, error)
	DeleteCustomerCredit(ctx context.Context, id uuid.UUID) error

	CreateProjectCredit(ctx context.Context, credit *ProjectCredit) error
	UpdateProjectCredit(ctx context.Context, credit *ProjectCredit) error
	GetProjectCredit(ctx context.Context, id uuid.UUID) (*ProjectCredit, error)
	GetProjectCreditByProject(ctx context.Context, projectID uuid.UUID) (*ProjectCredit, error)
	ListProjectCreditsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*ProjectCredit, error)
	DeleteProjectCredit(ctx context.Context, id uuid.UUID) error
}

// ComponentUsageRepository persists reported component usages
type ComponentUsageRepository interface {
	// Upsert stores the usage, replacing any previous report for the
	// same (resource, component, billing period, plan period).
	Upsert(ctx context.Context, usage *ComponentUsage) error
	GetByID(ctx context.Context, id uuid.UUID) (*ComponentUsage, error)
	ListByResourcePeriod(ctx context.Context, resourceID uuid.UUID, year, month int) ([]*ComponentUsage, error)
}

// PlanRepository reads plans, components and resource plan periods
type PlanRepository interface {
	// GetPlan returns the plan together with its components
	GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error)
	CreatePlan(ctx context.Context, plan *Plan) error

	CreatePlanPeriod(ctx context.Context, period *ResourcePlanPeriod) error
	UpdatePlanPeriod(ctx context.Context, period *ResourcePlanPeriod) error
	GetPlanPeriod(ctx context.Context, id uuid.UUID) (*ResourcePlanPeriod, error)
	// GetOpenPlanPeriod returns the resource's plan period without an
	// end date, or shared.ErrNotFound.
	GetOpenPlanPeriod(ctx context.Context, resourceID uuid.UUID) (*ResourcePlanPeriod, error)
	// ListPlanPeriodsOverlapping returns the resource's plan periods
	// that overlap the given billing month.
	ListPlanPeriodsOverlapping(ctx context.Context, resourceID uuid.UUID, year, month int) ([]*ResourcePlanPeriod, error)
}

// ResourceRepository reads the billing projection of provisioned resources
type ResourceRepository interface {
	Create(ctx context.Context, resource *Resource) error
	Update(ctx context.Context, resource *Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*Resource, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Resource, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Resource, error)
	// ListCustomerIDs returns the distinct customers that own resources
	ListCustomerIDs(ctx context.Context) ([]uuid.UUID, error)
}

// PaymentProfileRepository persists customer payment profiles
type PaymentProfileRepository interface {
	Create(ctx context.Context, profile *PaymentProfile) error
	Update(ctx context.Context, profile *PaymentProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*PaymentProfile, error)
	// GetActiveByCustomer returns the customer's active profile, or
	// shared.ErrNotFound.
	GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*PaymentProfile, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*PaymentProfile, error)
	// Activate enables the profile and deactivates the customer's other
	// profiles in one transaction.
	Activate(ctx context.Context, id uuid.UUID) error
}
