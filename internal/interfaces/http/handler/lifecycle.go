package handler

import (
	"net/http"
	"time"

	billingapp "github.com/cloudbill/backend/internal/application/billing"
	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LifecycleHandler is the webhook intake for resource lifecycle events
// from provisioning collaborators. Events are accepted once the payload
// parses; billing failures are logged downstream and never surface here,
// so the producer is free to fire and forget.
type LifecycleHandler struct {
	BaseHandler
	lifecycle *billingapp.LifecycleService
}

// NewLifecycleHandler creates a new LifecycleHandler
func NewLifecycleHandler(lifecycle *billingapp.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{
		lifecycle: lifecycle,
	}
}

// ScopeRef references a billable object in event payloads
type ScopeRef struct {
	Kind string `json:"kind" binding:"required,min=1,max=100"`
	ID   string `json:"id" binding:"required,uuid"`
}

func (r ScopeRef) toScope() (billing.Scope, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return billing.Scope{}, err
	}
	return billing.Scope{Kind: billing.ScopeKind(r.Kind), ID: id}, nil
}

// ResourceCreatedRequest announces a newly provisioned resource
type ResourceCreatedRequest struct {
	ID           string  `json:"id" binding:"required,uuid"`
	Kind         string  `json:"kind" binding:"required,min=1,max=100"`
	Name         string  `json:"name" binding:"required,min=1,max=255"`
	CustomerID   string  `json:"customer_id" binding:"required,uuid"`
	ProjectID    string  `json:"project_id" binding:"required,uuid"`
	ProjectName  string  `json:"project_name"`
	OfferingName string  `json:"offering_name"`
	PlanID       *string `json:"plan_id" binding:"omitempty,uuid"`
	State        string  `json:"state" binding:"required,oneof=creating ok erred terminating terminated"`
	Timestamp    *string `json:"timestamp" binding:"omitempty"`
}

// ResourceStateRequest announces a resource state transition
type ResourceStateRequest struct {
	Scope     ScopeRef `json:"scope" binding:"required"`
	State     string   `json:"state" binding:"required,oneof=creating ok erred terminating terminated"`
	Timestamp *string  `json:"timestamp"`
}

// ResourceDeletedRequest announces a resource deletion
type ResourceDeletedRequest struct {
	Scope     ScopeRef `json:"scope" binding:"required"`
	Timestamp *string  `json:"timestamp"`
}

// PlanSwitchedRequest announces a plan switch on a resource
type PlanSwitchedRequest struct {
	Scope     ScopeRef `json:"scope" binding:"required"`
	PlanID    string   `json:"plan_id" binding:"required,uuid"`
	Timestamp *string  `json:"timestamp"`
}

// ProjectTransferredRequest announces a project moving between customers
type ProjectTransferredRequest struct {
	ProjectID     string  `json:"project_id" binding:"required,uuid"`
	OldCustomerID string  `json:"old_customer_id" binding:"required,uuid"`
	NewCustomerID string  `json:"new_customer_id" binding:"required,uuid"`
	Timestamp     *string `json:"timestamp"`
}

// parseTimestamp parses an optional RFC 3339 timestamp, defaulting to now
func parseTimestamp(raw *string) (time.Time, error) {
	if raw == nil || *raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, *raw)
}

// ResourceCreated handles the resource creation event
func (h *LifecycleHandler) ResourceCreated(c *gin.Context) {
	var req ResourceCreatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		h.BadRequest(c, "Invalid timestamp format, expected RFC 3339")
		return
	}

	resource := &billing.Resource{
		BaseEntity:   shared.NewBaseEntity(),
		Kind:         billing.ScopeKind(req.Kind),
		Name:         req.Name,
		ProjectName:  req.ProjectName,
		OfferingName: req.OfferingName,
		State:        billing.ResourceState(req.State),
	}
	resource.ID = uuid.MustParse(req.ID)
	resource.CustomerID = uuid.MustParse(req.CustomerID)
	resource.ProjectID = uuid.MustParse(req.ProjectID)
	if req.PlanID != nil {
		planID := uuid.MustParse(*req.PlanID)
		resource.PlanID = &planID
	}

	h.lifecycle.ResourceCreated(c.Request.Context(), resource, ts)
	c.Status(http.StatusAccepted)
}

// ResourceStateChanged handles the resource state transition event
func (h *LifecycleHandler) ResourceStateChanged(c *gin.Context) {
	var req ResourceStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	scope, err := req.Scope.toScope()
	if err != nil {
		h.BadRequest(c, "Invalid scope ID format")
		return
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		h.BadRequest(c, "Invalid timestamp format, expected RFC 3339")
		return
	}

	h.lifecycle.ResourceStateChanged(c.Request.Context(), scope, billing.ResourceState(req.State), ts)
	c.Status(http.StatusAccepted)
}

// ResourceDeleted handles the resource deletion event
func (h *LifecycleHandler) ResourceDeleted(c *gin.Context) {
	var req ResourceDeletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	scope, err := req.Scope.toScope()
	if err != nil {
		h.BadRequest(c, "Invalid scope ID format")
		return
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		h.BadRequest(c, "Invalid timestamp format, expected RFC 3339")
		return
	}

	h.lifecycle.ResourceDeleted(c.Request.Context(), scope, ts)
	c.Status(http.StatusAccepted)
}

// PlanSwitched handles the plan switch event
func (h *LifecycleHandler) PlanSwitched(c *gin.Context) {
	var req PlanSwitchedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	scope, err := req.Scope.toScope()
	if err != nil {
		h.BadRequest(c, "Invalid scope ID format")
		return
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		h.BadRequest(c, "Invalid timestamp format, expected RFC 3339")
		return
	}

	h.lifecycle.PlanSwitched(c.Request.Context(), scope, uuid.MustParse(req.PlanID), ts)
	c.Status(http.StatusAccepted)
}

// ProjectTransferred handles the project ownership transfer event
func (h *LifecycleHandler) ProjectTransferred(c *gin.Context) {
	var req ProjectTransferredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		h.BadRequest(c, "Invalid timestamp format, expected RFC 3339")
		return
	}

	h.lifecycle.ProjectCustomerChanged(
		c.Request.Context(),
		uuid.MustParse(req.ProjectID),
		uuid.MustParse(req.OldCustomerID),
		uuid.MustParse(req.NewCustomerID),
		ts,
	)
	c.Status(http.StatusAccepted)
}

// RegisterRoutes registers lifecycle event intake routes
func (h *LifecycleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	lifecycle := rg.Group("/lifecycle")
	{
		lifecycle.POST("/resource-created", h.ResourceCreated)
		lifecycle.POST("/resource-state", h.ResourceStateChanged)
		lifecycle.POST("/resource-deleted", h.ResourceDeleted)
		lifecycle.POST("/plan-switched", h.PlanSwitched)
		lifecycle.POST("/project-transferred", h.ProjectTransferred)
	}
}
