package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentProfileModel is the GORM model for payment profiles
type PaymentProfileModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(255)"`
	PaymentType string    `gorm:"type:varchar(30);not null"`
	IsActive    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (PaymentProfileModel) TableName() string {
	return "payment_profiles"
}

// ToEntity converts the model to a domain entity
func (m *PaymentProfileModel) ToEntity() *billing.PaymentProfile {
	return &billing.PaymentProfile{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CustomerID:  m.CustomerID,
		Name:        m.Name,
		PaymentType: billing.PaymentType(m.PaymentType),
		IsActive:    m.IsActive,
	}
}

// PaymentProfileModelFromEntity creates a model from a domain entity
func PaymentProfileModelFromEntity(e *billing.PaymentProfile) *PaymentProfileModel {
	return &PaymentProfileModel{
		ID:          e.ID,
		CustomerID:  e.CustomerID,
		Name:        e.Name,
		PaymentType: string(e.PaymentType),
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// PaymentProfileRepository implements the billing.PaymentProfileRepository interface
type PaymentProfileRepository struct {
	db *gorm.DB
}

// NewPaymentProfileRepository creates a new payment profile repository
func NewPaymentProfileRepository(db *gorm.DB) *PaymentProfileRepository {
	return &PaymentProfileRepository{db: db}
}

// Create persists a new payment profile
func (r *PaymentProfileRepository) Create(ctx context.Context, profile *billing.PaymentProfile) error {
	model := PaymentProfileModelFromEntity(profile)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes to a payment profile
func (r *PaymentProfileRepository) Update(ctx context.Context, profile *billing.PaymentProfile) error {
	model := PaymentProfileModelFromEntity(profile)
	return r.db.WithContext(ctx).Save(model).Error
}

// GetByID returns a payment profile by ID
func (r *PaymentProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.PaymentProfile, error) {
	var model PaymentProfileModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// GetActiveByCustomer returns the customer's active profile
func (r *PaymentProfileRepository) GetActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*billing.PaymentProfile, error) {
	var model PaymentProfileModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND is_active = ?", customerID, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ListByCustomer returns the customer's payment profiles
func (r *PaymentProfileRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.PaymentProfile, error) {
	var models []PaymentProfileModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	profiles := make([]*billing.PaymentProfile, 0, len(models))
	for n := range models {
		profiles = append(profiles, models[n].ToEntity())
	}
	return profiles, nil
}

// Activate enables the profile and deactivates the customer's other
// profiles in one transaction.
func (r *PaymentProfileRepository) Activate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model PaymentProfileModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		err := tx.Model(&PaymentProfileModel{}).
			Where("customer_id = ? AND id <> ?", model.CustomerID, id).
			Update("is_active", false).Error
		if err != nil {
			return err
		}

		return tx.Model(&PaymentProfileModel{}).
			Where("id = ?", id).
			Update("is_active", true).Error
	})
}

var _ billing.PaymentProfileRepository = (*PaymentProfileRepository)(nil)
