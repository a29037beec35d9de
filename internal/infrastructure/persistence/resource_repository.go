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

// ResourceModel is the GORM model for the billing projection of resources
type ResourceModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind         string    `gorm:"type:varchar(50);not null"`
	Name         string    `gorm:"type:varchar(255);not null"`
	CustomerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ProjectID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ProjectName  string    `gorm:"type:varchar(255)"`
	OfferingName string    `gorm:"type:varchar(255)"`
	PlanID       *uuid.UUID `gorm:"type:uuid"`
	State        string    `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ResourceModel) TableName() string {
	return "billing_resources"
}

// ToEntity converts the model to a domain entity
func (m *ResourceModel) ToEntity() *billing.Resource {
	return &billing.Resource{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Kind:         billing.ScopeKind(m.Kind),
		Name:         m.Name,
		CustomerID:   m.CustomerID,
		ProjectID:    m.ProjectID,
		ProjectName:  m.ProjectName,
		OfferingName: m.OfferingName,
		PlanID:       m.PlanID,
		State:        billing.ResourceState(m.State),
	}
}

// ResourceModelFromEntity creates a model from a domain entity
func ResourceModelFromEntity(e *billing.Resource) *ResourceModel {
	return &ResourceModel{
		ID:           e.ID,
		Kind:         string(e.Kind),
		Name:         e.Name,
		CustomerID:   e.CustomerID,
		ProjectID:    e.ProjectID,
		ProjectName:  e.ProjectName,
		OfferingName: e.OfferingName,
		PlanID:       e.PlanID,
		State:        string(e.State),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// ResourceRepository implements the billing.ResourceRepository interface
type ResourceRepository struct {
	db *gorm.DB
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Create persists a new resource projection
func (r *ResourceRepository) Create(ctx context.Context, resource *billing.Resource) error {
	model := ResourceModelFromEntity(resource)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes to a resource projection
func (r *ResourceRepository) Update(ctx context.Context, resource *billing.Resource) error {
	model := ResourceModelFromEntity(resource)
	return r.db.WithContext(ctx).Save(model).Error
}

// GetByID returns a resource by ID
func (r *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Resource, error) {
	var model ResourceModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ListByCustomer returns the resources owned by a customer
func (r *ResourceRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*billing.Resource, error) {
	return r.list(ctx, "customer_id = ?", customerID)
}

// ListByProject returns the resources of a project
func (r *ResourceRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*billing.Resource, error) {
	return r.list(ctx, "project_id = ?", projectID)
}

func (r *ResourceRepository) list(ctx context.Context, query string, args ...any) ([]*billing.Resource, error) {
	var models []ResourceModel
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	resources := make([]*billing.Resource, 0, len(models))
	for n := range models {
		resources = append(resources, models[n].ToEntity())
	}
	return resources, nil
}

// ListCustomerIDs returns the distinct customers that own resources
func (r *ResourceRepository) ListCustomerIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&ResourceModel{}).
		Distinct("customer_id").
		Pluck("customer_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

var _ billing.ResourceRepository = (*ResourceRepository)(nil)
