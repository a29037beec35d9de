package billing

import (
	"context"
	"sort"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditService keeps the customer and project credit ledgers. It applies
// monthly compensation when an invoice is created, sweeps overdue credits
// and serves the administrative credit surface.
type CreditService struct {
	creditRepo billing.CreditRepository
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewCreditService creates a new CreditService
func NewCreditService(creditRepo billing.CreditRepository, logger *zap.Logger) *CreditService {
	return &CreditService{
		creditRepo: creditRepo,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for audit events
func (s *CreditService) SetEventPublisher(p shared.EventPublisher) {
	s.publisher = p
}

// CompensateInvoice applies the customer's credits to a pending invoice,
// appending negative compensation items. Project credits apply before the
// customer credit, in creation order; an exhausted project credit with
// the organisation cascade enabled passes its shortfall to the customer
// credit. The customer credit never reduces the invoice total below its
// minimal consumption floor.
func (s *CreditService) CompensateInvoice(ctx context.Context, inv *billing.Invoice) error {
	customerCredit, err := s.creditRepo.GetCustomerCreditByCustomer(ctx, inv.CustomerID)
	if err != nil && !isNotFound(err) {
		return err
	}
	if isNotFound(err) {
		customerCredit = nil
	}
	projectCredits, err := s.creditRepo.ListProjectCreditsByCustomer(ctx, inv.CustomerID)
	if err != nil {
		return err
	}

	now := time.Now()
	eligible := s.eligibleByProject(inv)
	remainingTotal := inv.Price()

	sort.Slice(projectCredits, func(a, b int) bool {
		return projectCredits[a].CreatedAt.Before(projectCredits[b].CreatedAt)
	})

	// portion of the invoice not covered by any project credit, plus the
	// shortfalls cascaded from exhausted project credits
	customerEligible := decimal.Zero
	covered := make(map[uuid.UUID]bool, len(projectCredits))

	for _, credit := range projectCredits {
		covered[credit.ProjectID] = true
		portion := eligible[credit.ProjectID]
		if !portion.IsPositive() {
			continue
		}
		applied := credit.Consume(portion)
		if applied.IsPositive() {
			if err := s.appendCompensation(inv, credit.ID, &credit.ProjectID, applied); err != nil {
				return err
			}
			if err := s.creditRepo.UpdateProjectCredit(ctx, credit); err != nil {
				return err
			}
			remainingTotal = remainingTotal.Sub(applied)
			s.publish(ctx, billing.NewCreditReductionEvent(
				credit.ID, inv.CustomerID, inv.ID, applied, compensationItemName))
		}
		if shortfall := portion.Sub(applied); shortfall.IsPositive() && credit.UseOrganisationCredit {
			customerEligible = customerEligible.Add(shortfall)
		}
	}

	if customerCredit == nil || customerCredit.IsOverdue(now) {
		return nil
	}

	for projectID, portion := range eligible {
		if !covered[projectID] {
			customerEligible = customerEligible.Add(portion)
		}
	}

	wanted := decimal.Min(customerCredit.Value, customerEligible)
	if !wanted.IsPositive() {
		return nil
	}
	headroom := remainingTotal.Sub(customerCredit.MinimalConsumption)
	if !headroom.IsPositive() {
		s.publish(ctx, billing.NewCreditMinimalConsumptionEvent(customerCredit, remainingTotal))
		return nil
	}

	applied := customerCredit.Consume(decimal.Min(wanted, headroom))
	if !applied.IsPositive() {
		return nil
	}
	if err := s.appendCompensation(inv, customerCredit.ID, nil, applied); err != nil {
		return err
	}
	if err := s.creditRepo.UpdateCustomerCredit(ctx, customerCredit); err != nil {
		return err
	}
	s.publish(ctx, billing.NewCreditReductionEvent(
		customerCredit.ID, inv.CustomerID, inv.ID, applied, compensationItemName))
	return nil
}

// SweepOverdueCredits zeroes every positive credit whose end date has
// passed, emitting one event per drained credit. Re-running the sweep on
// already-zeroed credits does nothing. Returns the number of credits
// drained; per-credit failures are logged and do not stop the sweep.
func (s *CreditService) SweepOverdueCredits(ctx context.Context, now time.Time) (int, error) {
	credits, err := s.creditRepo.ListOverdueCredits(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, credit := range credits {
		oldValue := credit.Value
		if !credit.SetToZero() {
			continue
		}
		if err := s.creditRepo.UpdateCustomerCredit(ctx, credit); err != nil {
			s.logger.Error("failed to zero overdue credit",
				zap.String("credit_id", credit.ID.String()),
				zap.Error(err))
			continue
		}
		swept++
		s.publish(ctx, billing.NewCreditSetToZeroEvent(credit, oldValue))
	}
	return swept, nil
}

// CreateCustomerCredit creates a customer credit administratively
func (s *CreditService) CreateCustomerCredit(ctx context.Context, input CreateCustomerCreditInput) (*billing.CustomerCredit, error) {
	existing, err := s.creditRepo.GetCustomerCreditByCustomer(ctx, input.CustomerID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.ErrAlreadyExists
	}

	credit, err := billing.NewCustomerCredit(input.CustomerID, input.Value)
	if err != nil {
		return nil, err
	}
	if input.MinimalConsumption != nil {
		credit.WithMinimalConsumption(*input.MinimalConsumption)
	}
	if input.EndDate != nil {
		credit.WithEndDate(*input.EndDate)
	}
	if err := s.creditRepo.CreateCustomerCredit(ctx, credit); err != nil {
		return nil, err
	}
	s.publish(ctx, billing.NewCreditCreatedByStaffEvent(credit.ID, credit.CustomerID, credit.Value))
	return credit, nil
}

// UpdateCustomerCredit edits a customer credit administratively. The
// value may not drop below the sum of the customer's project credits.
func (s *CreditService) UpdateCustomerCredit(ctx context.Context, id uuid.UUID, input UpdateCustomerCreditInput) (*billing.CustomerCredit, error) {
	credit, err := s.creditRepo.GetCustomerCredit(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Value != nil {
		if input.Value.IsNegative() {
			return nil, shared.NewDomainError("INVALID_CREDIT", "Credit value cannot be negative")
		}
		allocated, err := s.projectCreditSum(ctx, credit.CustomerID)
		if err != nil {
			return nil, err
		}
		if input.Value.LessThan(allocated) {
			return nil, shared.NewDomainError("INVALID_CREDIT",
				"Credit value cannot be lower than the sum of its project credits")
		}
		credit.Value = *input.Value
	}
	if input.MinimalConsumption != nil {
		credit.WithMinimalConsumption(*input.MinimalConsumption)
	}
	if input.EndDate != nil {
		credit.WithEndDate(*input.EndDate)
	}

	if err := s.creditRepo.UpdateCustomerCredit(ctx, credit); err != nil {
		return nil, err
	}
	s.publish(ctx, billing.NewCreditUpdatedByStaffEvent(credit.ID, credit.CustomerID, credit.Value))
	return credit, nil
}

// CreateProjectCredit allocates part of a customer credit to a project.
// The sum of a customer's project credits may not exceed the customer
// credit value.
func (s *CreditService) CreateProjectCredit(ctx context.Context, input CreateProjectCreditInput) (*billing.ProjectCredit, error) {
	customerCredit, err := s.creditRepo.GetCustomerCreditByCustomer(ctx, input.CustomerID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewDomainError("INVALID_CREDIT",
				"Customer has no credit to allocate from")
		}
		return nil, err
	}

	allocated, err := s.projectCreditSum(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if allocated.Add(input.Value).GreaterThan(customerCredit.Value) {
		return nil, shared.NewDomainError("INVALID_CREDIT",
			"Project credits cannot exceed the customer credit")
	}

	credit, err := billing.NewProjectCredit(input.ProjectID, input.CustomerID, input.Value)
	if err != nil {
		return nil, err
	}
	if input.UseOrganisationCredit != nil {
		credit.UseOrganisationCredit = *input.UseOrganisationCredit
	}
	if err := s.creditRepo.CreateProjectCredit(ctx, credit); err != nil {
		return nil, err
	}
	s.publish(ctx, billing.NewCreditCreatedByStaffEvent(credit.ID, credit.CustomerID, credit.Value))
	return credit, nil
}

// GetCustomerCredit returns a customer credit by ID
func (s *CreditService) GetCustomerCredit(ctx context.Context, id uuid.UUID) (*billing.CustomerCredit, error) {
	return s.creditRepo.GetCustomerCredit(ctx, id)
}

// ListCustomerCredits returns all customer credits
func (s *CreditService) ListCustomerCredits(ctx context.Context) ([]*billing.CustomerCredit, error) {
	return s.creditRepo.ListCustomerCredits(ctx)
}

// ListProjectCredits returns the project credits of a customer
func (s *CreditService) ListProjectCredits(ctx context.Context, customerID uuid.UUID) ([]*billing.ProjectCredit, error) {
	return s.creditRepo.ListProjectCreditsByCustomer(ctx, customerID)
}

// DeleteCustomerCredit removes a customer credit administratively
func (s *CreditService) DeleteCustomerCredit(ctx context.Context, id uuid.UUID) error {
	return s.creditRepo.DeleteCustomerCredit(ctx, id)
}

// compensationItemName labels synthetic credit compensation items
const compensationItemName = "Credit compensation"

// appendCompensation adds a negative compensation item to the invoice
func (s *CreditService) appendCompensation(inv *billing.Invoice, creditID uuid.UUID, projectID *uuid.UUID, applied decimal.Decimal) error {
	item, err := billing.NewInvoiceItem(
		inv.ID, billing.Scope{}, compensationItemName,
		billing.UnitQuantity, applied.Neg(), decimal.NewFromInt(1),
		inv.PeriodStart(), inv.PeriodEnd())
	if err != nil {
		return err
	}
	item.CreditID = &creditID
	if projectID != nil {
		item.WithProject(*projectID)
	}
	inv.AddItem(item)
	return nil
}

// eligibleByProject sums the positive non-compensation item prices of the
// invoice per owning project. Items without a project are keyed by the
// nil UUID.
func (s *CreditService) eligibleByProject(inv *billing.Invoice) map[uuid.UUID]decimal.Decimal {
	eligible := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range inv.Items {
		if item.IsCompensation() {
			continue
		}
		price := item.Price()
		if !price.IsPositive() {
			continue
		}
		projectID := uuid.Nil
		if item.ProjectID != nil {
			projectID = *item.ProjectID
		}
		eligible[projectID] = eligible[projectID].Add(price)
	}
	return eligible
}

// projectCreditSum returns the total value allocated to the customer's
// project credits.
func (s *CreditService) projectCreditSum(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	credits, err := s.creditRepo.ListProjectCreditsByCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, credit := range credits {
		sum = sum.Add(credit.Value)
	}
	return sum, nil
}

// publish sends events, logging failures without propagating them
func (s *CreditService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish credit events", zap.Error(err))
	}
}
