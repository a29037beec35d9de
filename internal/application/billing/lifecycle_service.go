package billing

import (
	"context"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleService is the intake for resource lifecycle events from
// provisioning collaborators. Billing failures are logged and swallowed:
// a missing plan or a broken invoice must never block the lifecycle
// operation that produced the event.
type LifecycleService struct {
	registration *RegistrationService
	usage        *UsageService
	transfer     *TransferService
	resourceRepo billing.ResourceRepository
	logger       *zap.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	registration *RegistrationService,
	usage *UsageService,
	transfer *TransferService,
	resourceRepo billing.ResourceRepository,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		registration: registration,
		usage:        usage,
		transfer:     transfer,
		resourceRepo: resourceRepo,
		logger:       logger,
	}
}

// ResourceCreated stores the billing projection of a newly provisioned
// resource. A billable initial state is registered right away.
func (s *LifecycleService) ResourceCreated(ctx context.Context, resource *billing.Resource, ts time.Time) {
	if err := s.resourceRepo.Create(ctx, resource); err != nil {
		s.logger.Error("failed to store resource projection",
			zap.String("scope", resource.Scope().String()), zap.Error(err))
		return
	}
	if resource.State.IsBillable() {
		if err := s.registration.RegisterResource(ctx, resource.Scope(), ts, ReasonCreation); err != nil {
			s.logger.Error("registration failed",
				zap.String("scope", resource.Scope().String()), zap.Error(err))
		}
	}
}

// ResourceStateChanged records a state transition of a billable resource.
// Entering a billable state registers it; leaving one terminates its open
// items.
func (s *LifecycleService) ResourceStateChanged(ctx context.Context, scope billing.Scope, newState billing.ResourceState, ts time.Time) {
	resource, err := s.resourceRepo.GetByID(ctx, scope.ID)
	if err != nil {
		s.logger.Error("state change for unknown resource",
			zap.String("scope", scope.String()), zap.Error(err))
		return
	}
	wasBillable := resource.State.IsBillable()
	resource.State = newState
	if err := s.resourceRepo.Update(ctx, resource); err != nil {
		s.logger.Error("failed to update resource state",
			zap.String("scope", scope.String()), zap.Error(err))
		return
	}

	switch {
	case !wasBillable && newState.IsBillable():
		if err := s.registration.RegisterResource(ctx, scope, ts, ReasonCreation); err != nil {
			s.logger.Error("registration failed",
				zap.String("scope", scope.String()), zap.Error(err))
		}
	case wasBillable && newState == billing.ResourceStateTerminated:
		if err := s.registration.TerminateResource(ctx, scope, ts); err != nil {
			s.logger.Error("termination failed",
				zap.String("scope", scope.String()), zap.Error(err))
		}
	}
}

// ResourceDeleted terminates and orphans the resource's billing state.
// Invoice items keep their denormalized details.
func (s *LifecycleService) ResourceDeleted(ctx context.Context, scope billing.Scope, ts time.Time) {
	resource, err := s.resourceRepo.GetByID(ctx, scope.ID)
	if err != nil {
		s.logger.Error("deletion of unknown resource",
			zap.String("scope", scope.String()), zap.Error(err))
		return
	}
	if err := s.registration.TerminateResource(ctx, scope, ts); err != nil {
		s.logger.Error("termination on deletion failed",
			zap.String("scope", scope.String()), zap.Error(err))
	}
	if err := s.registration.DetachResource(ctx, scope, resource.CustomerID, ts); err != nil {
		s.logger.Error("detach on deletion failed",
			zap.String("scope", scope.String()), zap.Error(err))
	}
	resource.State = billing.ResourceStateTerminated
	if err := s.resourceRepo.Update(ctx, resource); err != nil {
		s.logger.Error("failed to mark resource terminated",
			zap.String("scope", scope.String()), zap.Error(err))
	}
}

// ComponentUsageReported forwards a usage report to the aggregator
func (s *LifecycleService) ComponentUsageReported(ctx context.Context, input ReportUsageInput) {
	if err := s.usage.ReportUsage(ctx, input); err != nil {
		s.logger.Error("usage report failed",
			zap.String("resource_id", input.ResourceID.String()),
			zap.String("component_id", input.ComponentID.String()),
			zap.Error(err))
	}
}

// PlanSwitched moves the resource onto its new plan
func (s *LifecycleService) PlanSwitched(ctx context.Context, scope billing.Scope, newPlanID uuid.UUID, ts time.Time) {
	if err := s.registration.SwitchPlan(ctx, scope, newPlanID, ts); err != nil {
		s.logger.Error("plan switch failed",
			zap.String("scope", scope.String()), zap.Error(err))
	}
}

// ProjectCustomerChanged moves the project's open billing state to the
// new customer.
func (s *LifecycleService) ProjectCustomerChanged(ctx context.Context, projectID, oldCustomerID, newCustomerID uuid.UUID, ts time.Time) {
	if err := s.transfer.TransferProject(ctx, projectID, oldCustomerID, newCustomerID, ts); err != nil {
		s.logger.Error("project transfer failed",
			zap.String("project_id", projectID.String()), zap.Error(err))
	}
}
