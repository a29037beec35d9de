package handler

import (
	"time"

	billingapp "github.com/cloudbill/backend/internal/application/billing"
	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageHandler handles component usage reporting API endpoints
type UsageHandler struct {
	BaseHandler
	usageService *billingapp.UsageService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(usageService *billingapp.UsageService) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
	}
}

// ReportUsageRequest represents a usage report for a resource component
type ReportUsageRequest struct {
	ResourceID   string  `json:"resource_id" binding:"required,uuid"`
	ComponentID  string  `json:"component_id" binding:"required,uuid"`
	Date         string  `json:"date" binding:"required"`
	Amount       float64 `json:"amount" binding:"gte=0"`
	PlanPeriodID *string `json:"plan_period_id" binding:"omitempty,uuid"`
}

// ComponentUsageResponse represents a stored usage report in API responses
type ComponentUsageResponse struct {
	ID          string `json:"id"`
	ResourceID  string `json:"resource_id"`
	ComponentID string `json:"component_id"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Date        string `json:"date"`
	Usage       string `json:"usage"`
}

func toComponentUsageResponse(usage *billing.ComponentUsage) ComponentUsageResponse {
	return ComponentUsageResponse{
		ID:          usage.ID.String(),
		ResourceID:  usage.ResourceID.String(),
		ComponentID: usage.ComponentID.String(),
		Year:        usage.BillingYear,
		Month:       usage.BillingMonth,
		Date:        usage.Date.UTC().Format(time.RFC3339),
		Usage:       usage.Usage.String(),
	}
}

// Report stores a usage report and updates the matching invoice item.
// Re-delivery for the same resource, component and billing period
// overwrites the previous amount.
func (h *UsageHandler) Report(c *gin.Context) {
	var req ReportUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		h.BadRequest(c, "Invalid resource ID format")
		return
	}
	componentID, err := uuid.Parse(req.ComponentID)
	if err != nil {
		h.BadRequest(c, "Invalid component ID format")
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date format, expected RFC 3339")
		return
	}

	input := billingapp.ReportUsageInput{
		ResourceID:  resourceID,
		ComponentID: componentID,
		Date:        date,
		Amount:      decimal.NewFromFloat(req.Amount),
	}
	if req.PlanPeriodID != nil {
		periodID, err := uuid.Parse(*req.PlanPeriodID)
		if err != nil {
			h.BadRequest(c, "Invalid plan period ID format")
			return
		}
		input.PlanPeriodID = &periodID
	}

	if err := h.usageService.ReportUsage(c.Request.Context(), input); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// List returns the usage reports of a resource for a billing period
func (h *UsageHandler) List(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Query("resource_id"))
	if err != nil {
		h.BadRequest(c, "Invalid resource ID format")
		return
	}
	year, err := parseIntQuery(c, "year")
	if err != nil || year == nil {
		h.BadRequest(c, "Invalid year")
		return
	}
	month, err := parseIntQuery(c, "month")
	if err != nil || month == nil || *month < 1 || *month > 12 {
		h.BadRequest(c, "Invalid month")
		return
	}

	usages, err := h.usageService.ListUsage(c.Request.Context(), resourceID, *year, *month)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]ComponentUsageResponse, 0, len(usages))
	for _, usage := range usages {
		resp = append(resp, toComponentUsageResponse(usage))
	}
	h.Success(c, resp)
}

// RegisterRoutes registers usage routes
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	usage := rg.Group("/usage")
	{
		usage.POST("", h.Report)
		usage.GET("", h.List)
	}
}
