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

// CustomerCreditModel is the GORM model for customer credits
type CustomerCreditModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Value              string    `gorm:"type:decimal(22,7);not null;default:'0'"`
	MinimalConsumption string    `gorm:"type:decimal(22,7);not null;default:'0'"`
	EndDate            *time.Time
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (CustomerCreditModel) TableName() string {
	return "customer_credits"
}

// ToEntity converts the model to a domain entity
func (m *CustomerCreditModel) ToEntity() *billing.CustomerCredit {
	return &billing.CustomerCredit{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CustomerID:         m.CustomerID,
		Value:              mustDecimal(m.Value),
		MinimalConsumption: mustDecimal(m.MinimalConsumption),
		EndDate:            m.EndDate,
	}
}

// CustomerCreditModelFromEntity creates a model from a domain entity
func CustomerCreditModelFromEntity(e *billing.CustomerCredit) *CustomerCreditModel {
	return &CustomerCreditModel{
		ID:                 e.ID,
		CustomerID:         e.CustomerID,
		Value:              e.Value.String(),
		MinimalConsumption: e.MinimalConsumption.String(),
		EndDate:            e.EndDate,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// ProjectCreditModel is the GORM model for project credits
type ProjectCreditModel struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CustomerID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Value                 string    `gorm:"type:decimal(22,7);not null;default:'0'"`
	UseOrganisationCredit bool      `gorm:"not null;default:true"`
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ProjectCreditModel) TableName() string {
	return "project_credits"
}

// ToEntity converts the model to a domain entity
func (m *ProjectCreditModel) ToEntity() *billing.ProjectCredit {
	return &billing.ProjectCredit{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ProjectID:             m.ProjectID,
		CustomerID:            m.CustomerID,
		Value:                 mustDecimal(m.Value),
		UseOrganisationCredit: m.UseOrganisationCredit,
	}
}

// ProjectCreditModelFromEntity creates a model from a domain entity
func ProjectCreditModelFromEntity(e *billing.ProjectCredit) *ProjectCreditModel {
	return &ProjectCreditModel{
		ID:                    e.ID,
		ProjectID:             e.ProjectID,
		CustomerID:            e.CustomerID,
		Value:                 e.Value.String(),
		UseOrganisationCredit: e.UseOrganisationCredit,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

// CreditRepository implements the billing.CreditRepository interface
type CreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository creates a new credit repository
func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// CreateCustomerCredit persists a new customer credit
func (r *CreditRepository) CreateCustomerCredit(ctx context.Context, credit *billing.CustomerCredit) error {
	model := CustomerCreditModelFromEntity(credit)
	return r.db.WithContext(ctx).Create(model).Error
}

// UpdateCustomerCredit persists changes to a customer credit
func (r *CreditRepository) UpdateCustomerCredit(ctx context.Context, credit *billing.CustomerCredit) error {
	model := CustomerCreditModelFromEntity(credit)
	return r.db.WithContext(ctx).Save(model).Error
}

// GetCustomerCredit returns a customer credit by ID
func (r *CreditRepository) GetCustomerCredit(ctx context.Context, id uuid.UUID) (*billing.CustomerCredit, error) {
	var model CustomerCreditModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// GetCustomerCreditByCustomer returns the credit of a customer
func (r *CreditRepository) GetCustomerCreditByCustomer(ctx context.Context, customerID uuid.UUID) (*billing.CustomerCredit, error) {
	var model CustomerCreditModel
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ListCustomerCredits returns all customer credits
func (r *CreditRepository) ListCustomerCredits(ctx context.Context) ([]*billing.CustomerCredit, error) {
	var models []CustomerCreditModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	credits := make([]*billing.CustomerCredit, 0, len(models))
	for n := range models {
		credits = append(credits, models[n].ToEntity())
	}
	return credits, nil
}

// ListOverdueCredits returns positive credits whose end date has passed
func (r *CreditRepository) ListOverdueCredits(ctx context.Context, now time.Time) ([]*billing.CustomerCredit, error) {
	var models []CustomerCreditModel
	err := r.db.WithContext(ctx).
		Where("end_date IS NOT NULL AND end_date < ?", now).
		Where("value > 0").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	credits := make([]*billing.CustomerCredit, 0, len(models))
	for n := range models {
		credits = append(credits, models[n].ToEntity())
	}
	return credits, nil
}

// DeleteCustomerCredit removes a customer credit
func (r *CreditRepository) DeleteCustomerCredit(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&CustomerCreditModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateProjectCredit persists a new project credit
func (r *CreditRepository) CreateProjectCredit(ctx context.Context, credit *billing.ProjectCredit) error {
	model := ProjectCreditModelFromEntity(credit)
	return r.db.WithContext(ctx).Create(model).Error
}

// UpdateProjectCredit persists changes to a project credit
func (r *CreditRepository) UpdateProjectCredit(ctx context.Context, credit *billing.ProjectCredit) error {
	model := ProjectCreditModelFromEntity(credit)
	return r.db.WithContext(ctx).Save(model).Error
}

// GetProjectCredit returns a project credit by ID
func (r *CreditRepository) GetProjectCredit(ctx context.Context, id uuid.UUID) (*billing.ProjectCredit, error) {
	var model ProjectCreditModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// GetProjectCreditByProject returns the credit allocated to a project
func (r *CreditRepository) GetProjectCreditByProject(ctx context.Context, projectID uuid.UUID) (*billing.ProjectCredit, error) {
	var model ProjectCreditModel
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ListProjectCreditsByCustomer returns the customer's project credits in
// creation order
func (r *CreditRepository) ListProjectCreditsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.ProjectCredit, error) {
	var models []ProjectCreditModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	credits := make([]*billing.ProjectCredit, 0, len(models))
	for n := range models {
		credits = append(credits, models[n].ToEntity())
	}
	return credits, nil
}

// DeleteProjectCredit removes a project credit
func (r *CreditRepository) DeleteProjectCredit(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ProjectCreditModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ billing.CreditRepository = (*CreditRepository)(nil)
