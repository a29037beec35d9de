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

// PlanModel is the GORM model for billing plans
type PlanModel struct {
	ID           uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Name         string               `gorm:"type:varchar(255);not null"`
	OfferingName string               `gorm:"type:varchar(255)"`
	Unit         string               `gorm:"type:varchar(20);not null"`
	Components   []PlanComponentModel `gorm:"foreignKey:PlanID"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (PlanModel) TableName() string {
	return "plans"
}

// PlanComponentModel is the GORM model for plan components
type PlanComponentModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PlanID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ComponentID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ComponentName string    `gorm:"type:varchar(255);not null"`
	ComponentType string    `gorm:"type:varchar(100)"`
	BillingType   string    `gorm:"type:varchar(20);not null"`
	MeasuredUnit  string    `gorm:"type:varchar(50)"`
	Price         string    `gorm:"type:decimal(22,7);not null;default:'0'"`
	Amount        string    `gorm:"type:decimal(22,7);not null;default:'0'"`
}

// TableName returns the table name for the model
func (PlanComponentModel) TableName() string {
	return "plan_components"
}

// ResourcePlanPeriodModel is the GORM model for resource plan periods
type ResourcePlanPeriodModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ResourceID uuid.UUID `gorm:"type:uuid;not null;index"`
	PlanID     uuid.UUID `gorm:"type:uuid;not null"`
	StartTime  time.Time `gorm:"not null"`
	EndTime    *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (ResourcePlanPeriodModel) TableName() string {
	return "resource_plan_periods"
}

// ToEntity converts the model to a domain entity
func (m *PlanModel) ToEntity() *billing.Plan {
	components := make([]billing.PlanComponent, 0, len(m.Components))
	for n := range m.Components {
		components = append(components, m.Components[n].ToEntity())
	}

	return &billing.Plan{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Name:         m.Name,
		OfferingName: m.OfferingName,
		Unit:         billing.Unit(m.Unit),
		Components:   components,
	}
}

// ToEntity converts the model to a domain value
func (m *PlanComponentModel) ToEntity() billing.PlanComponent {
	return billing.PlanComponent{
		ID:            m.ID,
		PlanID:        m.PlanID,
		ComponentID:   m.ComponentID,
		ComponentName: m.ComponentName,
		ComponentType: m.ComponentType,
		BillingType:   billing.BillingType(m.BillingType),
		MeasuredUnit:  m.MeasuredUnit,
		Price:         mustDecimal(m.Price),
		Amount:        mustDecimal(m.Amount),
	}
}

// PlanModelFromEntity creates a model from a domain entity
func PlanModelFromEntity(e *billing.Plan) *PlanModel {
	components := make([]PlanComponentModel, 0, len(e.Components))
	for _, c := range e.Components {
		components = append(components, PlanComponentModel{
			ID:            c.ID,
			PlanID:        c.PlanID,
			ComponentID:   c.ComponentID,
			ComponentName: c.ComponentName,
			ComponentType: c.ComponentType,
			BillingType:   string(c.BillingType),
			MeasuredUnit:  c.MeasuredUnit,
			Price:         c.Price.String(),
			Amount:        c.Amount.String(),
		})
	}

	return &PlanModel{
		ID:           e.ID,
		Name:         e.Name,
		OfferingName: e.OfferingName,
		Unit:         e.Unit.String(),
		Components:   components,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// ToEntity converts the model to a domain entity
func (m *ResourcePlanPeriodModel) ToEntity() *billing.ResourcePlanPeriod {
	return &billing.ResourcePlanPeriod{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ResourceID: m.ResourceID,
		PlanID:     m.PlanID,
		Start:      m.StartTime,
		End:        m.EndTime,
	}
}

// ResourcePlanPeriodModelFromEntity creates a model from a domain entity
func ResourcePlanPeriodModelFromEntity(e *billing.ResourcePlanPeriod) *ResourcePlanPeriodModel {
	return &ResourcePlanPeriodModel{
		ID:         e.ID,
		ResourceID: e.ResourceID,
		PlanID:     e.PlanID,
		StartTime:  e.Start,
		EndTime:    e.End,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// PlanRepository implements the billing.PlanRepository interface
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetPlan returns the plan together with its components
func (r *PlanRepository) GetPlan(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	var model PlanModel
	err := r.db.WithContext(ctx).Preload("Components").Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// CreatePlan persists a new plan together with its components
func (r *PlanRepository) CreatePlan(ctx context.Context, plan *billing.Plan) error {
	model := PlanModelFromEntity(plan)
	return r.db.WithContext(ctx).Create(model).Error
}

// CreatePlanPeriod persists a new resource plan period
func (r *PlanRepository) CreatePlanPeriod(ctx context.Context, period *billing.ResourcePlanPeriod) error {
	model := ResourcePlanPeriodModelFromEntity(period)
	return r.db.WithContext(ctx).Create(model).Error
}

// UpdatePlanPeriod persists changes to a resource plan period
func (r *PlanRepository) UpdatePlanPeriod(ctx context.Context, period *billing.ResourcePlanPeriod) error {
	model := ResourcePlanPeriodModelFromEntity(period)
	return r.db.WithContext(ctx).Save(model).Error
}

// GetPlanPeriod returns a plan period by ID
func (r *PlanRepository) GetPlanPeriod(ctx context.Context, id uuid.UUID) (*billing.ResourcePlanPeriod, error) {
	var model ResourcePlanPeriodModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// GetOpenPlanPeriod returns the resource's plan period without an end date
func (r *PlanRepository) GetOpenPlanPeriod(ctx context.Context, resourceID uuid.UUID) (*billing.ResourcePlanPeriod, error) {
	var model ResourcePlanPeriodModel
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND end_time IS NULL", resourceID).
		Order("start_time DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// ListPlanPeriodsOverlapping returns the resource's plan periods that
// overlap the given billing month.
func (r *PlanRepository) ListPlanPeriodsOverlapping(ctx context.Context, resourceID uuid.UUID, year, month int) ([]*billing.ResourcePlanPeriod, error) {
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := billing.MonthEnd(monthStart)

	var models []ResourcePlanPeriodModel
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Where("start_time <= ?", monthEnd).
		Where("end_time IS NULL OR end_time >= ?", monthStart).
		Order("start_time ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	periods := make([]*billing.ResourcePlanPeriod, 0, len(models))
	for n := range models {
		periods = append(periods, models[n].ToEntity())
	}
	return periods, nil
}

var _ billing.PlanRepository = (*PlanRepository)(nil)
