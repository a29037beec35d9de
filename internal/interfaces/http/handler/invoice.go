package handler

import (
	"strconv"

	billingapp "github.com/cloudbill/backend/internal/application/billing"
	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// InvoiceItemResponse represents an invoice item in API responses
type InvoiceItemResponse struct {
	ID           string  `json:"id"`
	ScopeKind    string  `json:"scope_kind,omitempty"`
	ScopeID      *string `json:"scope_id,omitempty"`
	ProjectID    *string `json:"project_id,omitempty"`
	Name         string  `json:"name"`
	MeasuredUnit string  `json:"measured_unit,omitempty"`
	Unit         string  `json:"unit"`
	UnitPrice    string  `json:"unit_price"`
	Quantity     string  `json:"quantity"`
	Total        string  `json:"total"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	CreditID     *string `json:"credit_id,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID          string                `json:"id"`
	CustomerID  string                `json:"customer_id"`
	Year        int                   `json:"year"`
	Month       int                   `json:"month"`
	State       string                `json:"state"`
	CurrentCost string                `json:"current_cost"`
	Total       string                `json:"total"`
	InvoiceDate *string               `json:"invoice_date,omitempty"`
	Items       []InvoiceItemResponse `json:"items"`
}

// ListInvoicesRequest represents invoice list query parameters
type ListInvoicesRequest struct {
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Year       *int   `form:"year" binding:"omitempty,gte=1"`
	Month      *int   `form:"month" binding:"omitempty,gte=1,lte=12"`
	State      string `form:"state" binding:"omitempty,oneof=pending created paid canceled"`
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:          inv.ID.String(),
		CustomerID:  inv.CustomerID.String(),
		Year:        inv.Year,
		Month:       inv.Month,
		State:       inv.State.String(),
		CurrentCost: inv.CurrentCost.String(),
		Total:       inv.Total.String(),
		Items:       make([]InvoiceItemResponse, 0, len(inv.Items)),
	}
	if inv.InvoiceDate != nil {
		d := inv.InvoiceDate.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.InvoiceDate = &d
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, toInvoiceItemResponse(item))
	}
	return resp
}

func toInvoiceItemResponse(item *billing.InvoiceItem) InvoiceItemResponse {
	resp := InvoiceItemResponse{
		ID:           item.ID.String(),
		Name:         item.Name,
		MeasuredUnit: item.MeasuredUnit,
		Unit:         string(item.Unit),
		UnitPrice:    item.UnitPrice.String(),
		Quantity:     item.Quantity.String(),
		Total:        item.Price().String(),
		Start:        item.Start.UTC().Format("2006-01-02T15:04:05Z07:00"),
		End:          item.End.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if !item.Scope.IsZero() {
		resp.ScopeKind = string(item.Scope.Kind)
		id := item.Scope.ID.String()
		resp.ScopeID = &id
	}
	if item.ProjectID != nil {
		id := item.ProjectID.String()
		resp.ProjectID = &id
	}
	if item.CreditID != nil {
		id := item.CreditID.String()
		resp.CreditID = &id
	}
	return resp
}

// List returns invoices matching the query filters
func (h *InvoiceHandler) List(c *gin.Context) {
	var req ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var filter billing.InvoiceFilter
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		filter.CustomerID = &id
	}
	filter.Year = req.Year
	filter.Month = req.Month
	if req.State != "" {
		state := billing.InvoiceState(req.State)
		filter.State = &state
	}

	invoices, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, toInvoiceResponse(inv))
	}
	h.Success(c, resp)
}

// Get returns a single invoice with its items
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(inv))
}

// MarkPaid transitions an invoice to the paid state
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.MarkPaid(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Cancel transitions an invoice to the canceled state
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.MarkCanceled(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.GET("", h.List)
		invoices.GET("/:id", h.Get)
		invoices.POST("/:id/paid", h.MarkPaid)
		invoices.POST("/:id/cancel", h.Cancel)
	}
}

// parseIntQuery parses an optional integer query parameter
func parseIntQuery(c *gin.Context, name string) (*int, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
