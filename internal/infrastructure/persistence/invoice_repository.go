package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceModel is the GORM model for invoices
type InvoiceModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_period"`
	Year        int        `gorm:"not null;uniqueIndex:idx_invoice_period"`
	Month       int        `gorm:"not null;uniqueIndex:idx_invoice_period"`
	State       string     `gorm:"type:varchar(20);not null;index"`
	CurrentCost string     `gorm:"type:decimal(22,7);not null;default:'0'"`
	Total       string     `gorm:"type:decimal(22,7);not null;default:'0'"`
	InvoiceDate *time.Time
	Items       []InvoiceItemModel `gorm:"foreignKey:InvoiceID"`
	CreatedAt   time.Time          `gorm:"autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel is the GORM model for invoice line items
type InvoiceItemModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	InvoiceID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ScopeKind    string     `gorm:"type:varchar(50)"`
	ScopeID      *uuid.UUID `gorm:"type:uuid;index"`
	ProjectID    *uuid.UUID `gorm:"type:uuid;index"`
	PlanPeriodID *uuid.UUID `gorm:"type:uuid"`
	ComponentID  *uuid.UUID `gorm:"type:uuid"`
	Name         string     `gorm:"type:varchar(255);not null"`
	MeasuredUnit string     `gorm:"type:varchar(50)"`
	Unit         string     `gorm:"type:varchar(20);not null"`
	UnitPrice    string     `gorm:"type:decimal(22,7);not null;default:'0'"`
	Quantity     string     `gorm:"type:decimal(22,7);not null;default:'0'"`
	StartTime    time.Time  `gorm:"not null"`
	EndTime      time.Time  `gorm:"not null"`
	Details      []byte     `gorm:"type:jsonb"`
	CreditID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToEntity converts the model to a domain entity
func (m *InvoiceModel) ToEntity() *billing.Invoice {
	items := make([]*billing.InvoiceItem, 0, len(m.Items))
	for n := range m.Items {
		items = append(items, m.Items[n].ToEntity())
	}

	return &billing.Invoice{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CustomerID:  m.CustomerID,
		Year:        m.Year,
		Month:       m.Month,
		State:       billing.InvoiceState(m.State),
		CurrentCost: mustDecimal(m.CurrentCost),
		Total:       mustDecimal(m.Total),
		InvoiceDate: m.InvoiceDate,
		Items:       items,
	}
}

// InvoiceModelFromEntity creates a model from a domain entity
func InvoiceModelFromEntity(e *billing.Invoice) *InvoiceModel {
	items := make([]InvoiceItemModel, 0, len(e.Items))
	for _, item := range e.Items {
		items = append(items, *InvoiceItemModelFromEntity(item))
	}

	return &InvoiceModel{
		ID:          e.ID,
		CustomerID:  e.CustomerID,
		Year:        e.Year,
		Month:       e.Month,
		State:       e.State.String(),
		CurrentCost: e.CurrentCost.String(),
		Total:       e.Total.String(),
		InvoiceDate: e.InvoiceDate,
		Items:       items,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ToEntity converts the model to a domain entity
func (m *InvoiceItemModel) ToEntity() *billing.InvoiceItem {
	var details billing.ItemDetails
	if len(m.Details) > 0 {
		_ = json.Unmarshal(m.Details, &details)
	}
	if details == nil {
		details = make(billing.ItemDetails)
	}

	var scope billing.Scope
	if m.ScopeID != nil {
		scope = billing.Scope{Kind: billing.ScopeKind(m.ScopeKind), ID: *m.ScopeID}
	}

	return &billing.InvoiceItem{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		InvoiceID:    m.InvoiceID,
		Scope:        scope,
		ProjectID:    m.ProjectID,
		PlanPeriodID: m.PlanPeriodID,
		ComponentID:  m.ComponentID,
		Name:         m.Name,
		MeasuredUnit: m.MeasuredUnit,
		Unit:         billing.Unit(m.Unit),
		UnitPrice:    mustDecimal(m.UnitPrice),
		Quantity:     mustDecimal(m.Quantity),
		Start:        m.StartTime,
		End:          m.EndTime,
		Details:      details,
		CreditID:     m.CreditID,
	}
}

// InvoiceItemModelFromEntity creates a model from a domain entity
func InvoiceItemModelFromEntity(e *billing.InvoiceItem) *InvoiceItemModel {
	var detailsBytes []byte
	if e.Details != nil {
		detailsBytes, _ = json.Marshal(e.Details)
	} else {
		detailsBytes = []byte("{}")
	}

	var scopeKind string
	var scopeID *uuid.UUID
	if !e.Scope.IsZero() {
		scopeKind = string(e.Scope.Kind)
		id := e.Scope.ID
		scopeID = &id
	}

	return &InvoiceItemModel{
		ID:           e.ID,
		InvoiceID:    e.InvoiceID,
		ScopeKind:    scopeKind,
		ScopeID:      scopeID,
		ProjectID:    e.ProjectID,
		PlanPeriodID: e.PlanPeriodID,
		ComponentID:  e.ComponentID,
		Name:         e.Name,
		MeasuredUnit: e.MeasuredUnit,
		Unit:         e.Unit.String(),
		UnitPrice:    e.UnitPrice.String(),
		Quantity:     e.Quantity.String(),
		StartTime:    e.Start,
		EndTime:      e.End,
		Details:      detailsBytes,
		CreditID:     e.CreditID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func mustDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// InvoiceRepository implements the billing.InvoiceRepository interface
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create persists a new invoice together with its items
func (r *InvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	model := InvoiceModelFromEntity(invoice)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists the invoice and replaces its items
func (r *InvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveInvoice(tx, invoice)
	})
}

// saveInvoice writes the invoice row and reconciles the item rows with the
// in-memory aggregate.
func saveInvoice(tx *gorm.DB, invoice *billing.Invoice) error {
	model := InvoiceModelFromEntity(invoice)
	items := model.Items
	model.Items = nil

	if err := tx.Save(model).Error; err != nil {
		return err
	}

	keep := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		keep = append(keep, item.ID)
	}

	del := tx.Where("invoice_id = ?", invoice.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&InvoiceItemModel{}).Error; err != nil {
		return err
	}

	for n := range items {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&items[n]).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns the invoice with its items
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return getInvoice(r.db.WithContext(ctx), "id = ?", id)
}

// GetByPeriod returns the customer's invoice for the billing month
func (r *InvoiceRepository) GetByPeriod(ctx context.Context, customerID uuid.UUID, year, month int) (*billing.Invoice, error) {
	return getInvoice(r.db.WithContext(ctx), "customer_id = ? AND year = ? AND month = ?", customerID, year, month)
}

func getInvoice(db *gorm.DB, query string, args ...any) (*billing.Invoice, error) {
	var model InvoiceModel
	err := db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Where(query, args...).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// GetOrCreate returns the customer's invoice for the period, inserting an
// empty pending invoice when none exists. Concurrent callers converge on a
// single row via the unique (customer, year, month) index.
func (r *InvoiceRepository) GetOrCreate(ctx context.Context, customerID uuid.UUID, year, month int) (*billing.Invoice, bool, error) {
	invoice, err := r.GetByPeriod(ctx, customerID, year, month)
	if err == nil {
		return invoice, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	fresh, err := billing.NewInvoice(customerID, year, month)
	if err != nil {
		return nil, false, err
	}

	model := InvoiceModelFromEntity(fresh)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "year"}, {Name: "month"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		return nil, false, result.Error
	}

	if result.RowsAffected == 0 {
		// Lost the race; another caller inserted the row
		invoice, err := r.GetByPeriod(ctx, customerID, year, month)
		return invoice, false, err
	}

	return fresh, true, nil
}

// UpdateWithLock loads the invoice and its items under a row lock, applies
// fn and persists the result in one transaction.
func (r *InvoiceRepository) UpdateWithLock(ctx context.Context, id uuid.UUID, fn func(invoice *billing.Invoice) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		// SQLite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		invoice, err := getInvoice(query, "id = ?", id)
		if err != nil {
			return err
		}

		if err := fn(invoice); err != nil {
			return err
		}

		return saveInvoice(tx, invoice)
	})
}

// List returns invoices matching the filter, newest period first
func (r *InvoiceRepository) List(ctx context.Context, filter billing.InvoiceFilter) ([]*billing.Invoice, error) {
	query := r.db.WithContext(ctx).Model(&InvoiceModel{})

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}
	if filter.Month != nil {
		query = query.Where("month = ?", *filter.Month)
	}
	if filter.State != nil {
		query = query.Where("state = ?", filter.State.String())
	}

	var models []InvoiceModel
	err := query.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).Order("year DESC, month DESC").Find(&models).Error
	if err != nil {
		return nil, err
	}

	invoices := make([]*billing.Invoice, 0, len(models))
	for n := range models {
		invoices = append(invoices, models[n].ToEntity())
	}
	return invoices, nil
}

// ListPendingBefore returns pending invoices whose period started before
// the given billing month.
func (r *InvoiceRepository) ListPendingBefore(ctx context.Context, year, month int) ([]*billing.Invoice, error) {
	var models []InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("state = ?", billing.InvoiceStatePending.String()).
		Where("year < ? OR (year = ? AND month < ?)", year, year, month).
		Order("year ASC, month ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	invoices := make([]*billing.Invoice, 0, len(models))
	for n := range models {
		invoices = append(invoices, models[n].ToEntity())
	}
	return invoices, nil
}

var _ billing.InvoiceRepository = (*InvoiceRepository)(nil)
