package billing

import (
	"context"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentProfileService manages customer payment profiles. A customer has
// at most one active profile; activation deactivates the rest atomically.
type PaymentProfileService struct {
	profileRepo billing.PaymentProfileRepository
	logger      *zap.Logger
}

// NewPaymentProfileService creates a new PaymentProfileService
func NewPaymentProfileService(profileRepo billing.PaymentProfileRepository, logger *zap.Logger) *PaymentProfileService {
	return &PaymentProfileService{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// CreateProfile creates a payment profile and makes it the customer's
// active one.
func (s *PaymentProfileService) CreateProfile(ctx context.Context, input CreatePaymentProfileInput) (*billing.PaymentProfile, error) {
	profile, err := billing.NewPaymentProfile(input.CustomerID, input.Name, input.PaymentType)
	if err != nil {
		return nil, err
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.profileRepo.Activate(ctx, profile.ID); err != nil {
		return nil, err
	}
	return profile, nil
}

// ActivateProfile enables a profile and deactivates the customer's others
func (s *PaymentProfileService) ActivateProfile(ctx context.Context, id uuid.UUID) error {
	return s.profileRepo.Activate(ctx, id)
}

// GetProfile returns a payment profile by ID
func (s *PaymentProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*billing.PaymentProfile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

// ListProfiles returns the customer's payment profiles
func (s *PaymentProfileService) ListProfiles(ctx context.Context, customerID uuid.UUID) ([]*billing.PaymentProfile, error) {
	return s.profileRepo.ListByCustomer(ctx, customerID)
}
