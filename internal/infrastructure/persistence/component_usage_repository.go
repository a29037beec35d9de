package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComponentUsageModel is the GORM model for reported component usages
type ComponentUsageModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ResourceID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_period"`
	ComponentID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_period"`
	BillingYear  int       `gorm:"not null;uniqueIndex:idx_usage_period"`
	BillingMonth int       `gorm:"not null;uniqueIndex:idx_usage_period"`
	PlanPeriodID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_period"`
	Date         time.Time `gorm:"not null"`
	Usage        string    `gorm:"type:decimal(22,7);not null;default:'0'"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ComponentUsageModel) TableName() string {
	return "component_usages"
}

// ToEntity converts the model to a domain entity
func (m *ComponentUsageModel) ToEntity() *billing.ComponentUsage {
	return &billing.ComponentUsage{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ResourceID:   m.ResourceID,
		ComponentID:  m.ComponentID,
		Date:         m.Date,
		BillingYear:  m.BillingYear,
		BillingMonth: m.BillingMonth,
		Usage:        mustDecimal(m.Usage),
		PlanPeriodID: m.PlanPeriodID,
	}
}

// ComponentUsageModelFromEntity creates a model from a domain entity
func ComponentUsageModelFromEntity(e *billing.ComponentUsage) *ComponentUsageModel {
	return &ComponentUsageModel{
		ID:           e.ID,
		ResourceID:   e.ResourceID,
		ComponentID:  e.ComponentID,
		BillingYear:  e.BillingYear,
		BillingMonth: e.BillingMonth,
		PlanPeriodID: e.PlanPeriodID,
		Date:         e.Date,
		Usage:        e.Usage.String(),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// ComponentUsageRepository implements the billing.ComponentUsageRepository interface
type ComponentUsageRepository struct {
	db *gorm.DB
}

// NewComponentUsageRepository creates a new component usage repository
func NewComponentUsageRepository(db *gorm.DB) *ComponentUsageRepository {
	return &ComponentUsageRepository{db: db}
}

// Upsert stores the usage, replacing any previous report for the same
// (resource, component, billing period, plan period). Last write wins.
func (r *ComponentUsageRepository) Upsert(ctx context.Context, usage *billing.ComponentUsage) error {
	model := ComponentUsageModelFromEntity(usage)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "resource_id"}, {Name: "component_id"},
			{Name: "billing_year"}, {Name: "billing_month"},
			{Name: "plan_period_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"usage", "date", "updated_at"}),
	}).Create(model).Error
}

// GetByID returns a usage report by ID
func (r *ComponentUsageRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.ComponentUsage, error) {
	var model ComponentUsageModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ListByResourcePeriod returns the resource's usage reports for a billing month
func (r *ComponentUsageRepository) ListByResourcePeriod(ctx context.Context, resourceID uuid.UUID, year, month int) ([]*billing.ComponentUsage, error) {
	var models []ComponentUsageModel
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND billing_year = ? AND billing_month = ?", resourceID, year, month).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	usages := make([]*billing.ComponentUsage, 0, len(models))
	for n := range models {
		usages = append(usages, models[n].ToEntity())
	}
	return usages, nil
}

var _ billing.ComponentUsageRepository = (*ComponentUsageRepository)(nil)
