package billing

import (
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ResourceState mirrors the lifecycle of a billable resource as reported
// by the provisioning collaborators. Billing only distinguishes states
// that start or stop accrual.
type ResourceState string

const (
	ResourceStateCreating    ResourceState = "creating"
	ResourceStateOK          ResourceState = "ok"
	ResourceStateErred       ResourceState = "erred"
	ResourceStateTerminating ResourceState = "terminating"
	ResourceStateTerminated  ResourceState = "terminated"
)

// IsBillable reports whether the resource accrues cost in this state
func (s ResourceState) IsBillable() bool {
	return s == ResourceStateOK || s == ResourceStateErred || s == ResourceStateTerminating
}

// Resource is the billing projection of a provisioned cloud resource.
// Provisioning itself is owned by external collaborators; billing keeps
// only what registration and proration need.
type Resource struct {
	shared.BaseEntity
	Kind         ScopeKind
	Name         string
	CustomerID   uuid.UUID
	ProjectID    uuid.UUID
	ProjectName  string
	OfferingName string
	PlanID       *uuid.UUID // nil when billing is not configured
	State        ResourceState
}

// Scope returns the scope reference of the resource
func (r *Resource) Scope() Scope {
	return Scope{Kind: r.Kind, ID: r.ID}
}

// Details returns the denormalized data stored on invoice items so the
// billed history survives resource deletion.
func (r *Resource) Details() ItemDetails {
	return ItemDetails{
		"resource_name": r.Name,
		"resource_uuid": r.ID.String(),
		"offering_name": r.OfferingName,
		"project_uuid":  r.ProjectID.String(),
		"project_name":  r.ProjectName,
	}
}
