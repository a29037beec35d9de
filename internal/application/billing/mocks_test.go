package billing

import (
	"context"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetByPeriod(ctx context.Context, customerID uuid.UUID, year, month int) (*billing.Invoice, error) {
	args := m.Called(ctx, customerID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetOrCreate(ctx context.Context, customerID uuid.UUID, year, month int) (*billing.Invoice, bool, error) {
	args := m.Called(ctx, customerID, year, month)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*billing.Invoice), args.Bool(1), args.Error(2)
}

// UpdateWithLock runs fn against the invoice configured with OnLockedInvoice
func (m *MockInvoiceRepository) UpdateWithLock(ctx context.Context, id uuid.UUID, fn func(invoice *billing.Invoice) error) error {
	args := m.Called(ctx, id)
	if inv, ok := args.Get(0).(*billing.Invoice); ok && inv != nil {
		if err := fn(inv); err != nil {
			return err
		}
	}
	return args.Error(1)
}

// OnLockedInvoice expects an UpdateWithLock call and hands fn the invoice
func (m *MockInvoiceRepository) OnLockedInvoice(inv *billing.Invoice) *mock.Call {
	return m.On("UpdateWithLock", mock.Anything, inv.ID).Return(inv, nil)
}

func (m *MockInvoiceRepository) List(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListPendingBefore(ctx context.Context, year, month int) ([]*billing.Invoice, error) {
	args := m.Called(ctx, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

// MockCreditRepository is a mock implementation of billing.CreditRepository
type MockCreditRepository struct {
	mock.Mock
}

func (m *MockCreditRepository) CreateCustomerCredit(ctx context.Context, credit *billing.CustomerCredit) error {
	args := m.Called(ctx, credit)
	return args.Error(0)
}

func (m *MockCreditRepository) UpdateCustomerCredit(ctx context.Context, credit *billing.CustomerCredit) error {
	args := m.Called(ctx, credit)
	return args.Error(0)
}

func (m *MockCreditRepository) GetCustomerCredit(ctx context.Context, id uuid.UUID) (*billing.CustomerCredit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CustomerCredit), args.Error(1)
}

func (m *MockCreditRepository) GetCustomerCreditByCustomer(ctx context.Context, customerID uuid.UUID) (*billing.CustomerCredit, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CustomerCredit), args.Error(1)
}

func (m *MockCreditRepository) ListCustomerCredits(ctx context.Context) ([]*billing.CustomerCredit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.CustomerCredit), args.Error(1)
}

func (m *MockCreditRepository) ListOverdueCredits(ctx context.Context, now time.Time) ([]*billing.CustomerCredit, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.CustomerCredit), args.Error(1)
}

func (m *MockCreditRepository) DeleteCustomerCredit(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCreditRepository) CreateProjectCredit(ctx context.Context, credit *billing.ProjectCredit) error {
	args := m.Called(ctx, credit)
	return args.Error(0)
}

func (m *MockCreditRepository) UpdateProjectCredit(ctx context.Context, credit *billing.ProjectCredit) error {
	args := m.Called(ctx, credit)
	return args.Error(0)
}

func (m *MockCreditRepository) GetProjectCredit(ctx context.Context, id uuid.UUID) (*billing.ProjectCredit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProjectCredit), args.Error(1)
}

func (m *MockCreditRepository) GetProjectCreditByProject(ctx context.Context, projectID uuid.UUID) (*billing.ProjectCredit, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProjectCredit), args.Error(1)
}

func (m *MockCreditRepository) ListProjectCreditsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.ProjectCredit, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ProjectCredit), args.Error(1)
}

func (m *MockCreditRepository) DeleteProjectCredit(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockComponentUsageRepository is a mock implementation of billing.ComponentUsageRepository
type MockComponentUsageRepository struct {
	mock.Mock
}

func (m *MockComponentUsageRepository) Upsert(ctx context.Context, usage *billing.ComponentUsage) error {
	args := m.Called(ctx, usage)
	return args.Error(0)
}

func (m *MockComponentUsageRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.ComponentUsage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ComponentUsage), args.Error(1)
}

func (m *MockComponentUsageRepository) ListByResourcePeriod(ctx context.Context, resourceID uuid.UUID, year, month int) ([]*billing.ComponentUsage, error) {
	args := m.Called(ctx, resourceID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ComponentUsage), args.Error(1)
}

// MockPlanRepository is a mock implementation of billing.PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetPlan(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *MockPlanRepository) CreatePlan(ctx context.Context, plan *billing.Plan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) CreatePlanPeriod(ctx context.Context, period *billing.ResourcePlanPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPlanRepository) UpdatePlanPeriod(ctx context.Context, period *billing.ResourcePlanPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPlanRepository) GetPlanPeriod(ctx context.Context, id uuid.UUID) (*billing.ResourcePlanPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ResourcePlanPeriod), args.Error(1)
}

func (m *MockPlanRepository) GetOpenPlanPeriod(ctx context.Context, resourceID uuid.UUID) (*billing.ResourcePlanPeriod, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ResourcePlanPeriod), args.Error(1)
}

func (m *MockPlanRepository) ListPlanPeriodsOverlapping(ctx context.Context, resourceID uuid.UUID, year, month int) ([]*billing.ResourcePlanPeriod, error) {
	args := m.Called(ctx, resourceID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.ResourcePlanPeriod), args.Error(1)
}

// MockResourceRepository is a mock implementation of billing.ResourceRepository
type MockResourceRepository struct {
	mock.Mock
}

func (m *MockResourceRepository) Create(ctx context.Context, resource *billing.Resource) error {
	args := m.Called(ctx, resource)
	return args.Error(0)
}

func (m *MockResourceRepository) Update(ctx context.Context, resource *billing.Resource) error {
	args := m.Called(ctx, resource)
	return args.Error(0)
}

func (m *MockResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Resource), args.Error(1)
}

func (m *MockResourceRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.Resource, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Resource), args.Error(1)
}

func (m *MockResourceRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*billing.Resource, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Resource), args.Error(1)
}

func (m *MockResourceRepository) ListCustomerIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockPaymentProfileRepository is a mock implementation of billing.PaymentProfileRepository
type MockPaymentProfileRepository struct {
	mock.Mock
}

func (m *MockPaymentProfileRepository) Create(ctx context.Context, profile *billing.PaymentProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockPaymentProfileRepository) Update(ctx context.Context, profile *billing.PaymentProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockPaymentProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.PaymentProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentProfile), args.Error(1)
}

func (m *MockPaymentProfileRepository) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*billing.PaymentProfile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentProfile), args.Error(1)
}

func (m *MockPaymentProfileRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.PaymentProfile, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.PaymentProfile), args.Error(1)
}

func (m *MockPaymentProfileRepository) Activate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventPublisher records published events for assertions
type MockEventPublisher struct {
	mock.Mock
	Events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	m.Events = append(m.Events, events...)
	return args.Error(0)
}

// EventTypes returns the types of all recorded events in order
func (m *MockEventPublisher) EventTypes() []string {
	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.EventType())
	}
	return types
}
