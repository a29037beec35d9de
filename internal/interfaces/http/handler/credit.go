package handler

import (
	"time"

	billingapp "github.com/cloudbill/backend/internal/application/billing"
	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditHandler handles customer and project credit API endpoints
type CreditHandler struct {
	BaseHandler
	creditService *billingapp.CreditService
}

// NewCreditHandler creates a new CreditHandler
func NewCreditHandler(creditService *billingapp.CreditService) *CreditHandler {
	return &CreditHandler{
		creditService: creditService,
	}
}

// CreateCustomerCreditRequest represents a request to grant a customer credit
type CreateCustomerCreditRequest struct {
	CustomerID         string   `json:"customer_id" binding:"required,uuid"`
	Value              float64  `json:"value" binding:"required,gt=0"`
	MinimalConsumption *float64 `json:"minimal_consumption" binding:"omitempty,gte=0"`
	EndDate            *string  `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateCustomerCreditRequest represents a request to edit a customer credit
type UpdateCustomerCreditRequest struct {
	Value              *float64 `json:"value" binding:"omitempty,gte=0"`
	MinimalConsumption *float64 `json:"minimal_consumption" binding:"omitempty,gte=0"`
	EndDate            *string  `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// CreateProjectCreditRequest represents a request to allocate credit to a project
type CreateProjectCreditRequest struct {
	ProjectID             string  `json:"project_id" binding:"required,uuid"`
	CustomerID            string  `json:"customer_id" binding:"required,uuid"`
	Value                 float64 `json:"value" binding:"required,gt=0"`
	UseOrganisationCredit *bool   `json:"use_organisation_credit"`
}

// CustomerCreditResponse represents a customer credit in API responses
type CustomerCreditResponse struct {
	ID                 string  `json:"id"`
	CustomerID         string  `json:"customer_id"`
	Value              string  `json:"value"`
	MinimalConsumption string  `json:"minimal_consumption"`
	EndDate            *string `json:"end_date,omitempty"`
}

// ProjectCreditResponse represents a project credit in API responses
type ProjectCreditResponse struct {
	ID                    string `json:"id"`
	ProjectID             string `json:"project_id"`
	CustomerID            string `json:"customer_id"`
	Value                 string `json:"value"`
	UseOrganisationCredit bool   `json:"use_organisation_credit"`
}

func toCustomerCreditResponse(credit *billing.CustomerCredit) CustomerCreditResponse {
	resp := CustomerCreditResponse{
		ID:                 credit.ID.String(),
		CustomerID:         credit.CustomerID.String(),
		Value:              credit.Value.String(),
		MinimalConsumption: credit.MinimalConsumption.String(),
	}
	if credit.EndDate != nil {
		d := credit.EndDate.UTC().Format("2006-01-02")
		resp.EndDate = &d
	}
	return resp
}

func toProjectCreditResponse(credit *billing.ProjectCredit) ProjectCreditResponse {
	return ProjectCreditResponse{
		ID:                    credit.ID.String(),
		ProjectID:             credit.ProjectID.String(),
		CustomerID:            credit.CustomerID.String(),
		Value:                 credit.Value.String(),
		UseOrganisationCredit: credit.UseOrganisationCredit,
	}
}

// parseEndDate parses the optional end date in YYYY-MM-DD form
func parseEndDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create grants a credit to a customer
func (h *CreditHandler) Create(c *gin.Context) {
	var req CreateCustomerCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	endDate, err := parseEndDate(req.EndDate)
	if err != nil {
		h.BadRequest(c, "Invalid end date format")
		return
	}

	input := billingapp.CreateCustomerCreditInput{
		CustomerID: customerID,
		Value:      decimal.NewFromFloat(req.Value),
		EndDate:    endDate,
	}
	if req.MinimalConsumption != nil {
		mc := decimal.NewFromFloat(*req.MinimalConsumption)
		input.MinimalConsumption = &mc
	}

	credit, err := h.creditService.CreateCustomerCredit(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toCustomerCreditResponse(credit))
}

// Update edits a customer credit
func (h *CreditHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit ID format")
		return
	}

	var req UpdateCustomerCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	endDate, err := parseEndDate(req.EndDate)
	if err != nil {
		h.BadRequest(c, "Invalid end date format")
		return
	}

	input := billingapp.UpdateCustomerCreditInput{EndDate: endDate}
	if req.Value != nil {
		v := decimal.NewFromFloat(*req.Value)
		input.Value = &v
	}
	if req.MinimalConsumption != nil {
		mc := decimal.NewFromFloat(*req.MinimalConsumption)
		input.MinimalConsumption = &mc
	}

	credit, err := h.creditService.UpdateCustomerCredit(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCustomerCreditResponse(credit))
}

// Get returns a customer credit by ID
func (h *CreditHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit ID format")
		return
	}

	credit, err := h.creditService.GetCustomerCredit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCustomerCreditResponse(credit))
}

// List returns all customer credits
func (h *CreditHandler) List(c *gin.Context) {
	credits, err := h.creditService.ListCustomerCredits(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]CustomerCreditResponse, 0, len(credits))
	for _, credit := range credits {
		resp = append(resp, toCustomerCreditResponse(credit))
	}
	h.Success(c, resp)
}

// Delete removes a customer credit
func (h *CreditHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit ID format")
		return
	}

	if err := h.creditService.DeleteCustomerCredit(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateProjectCredit allocates part of a customer credit to a project
func (h *CreditHandler) CreateProjectCredit(c *gin.Context) {
	var req CreateProjectCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	credit, err := h.creditService.CreateProjectCredit(c.Request.Context(), billingapp.CreateProjectCreditInput{
		ProjectID:             projectID,
		CustomerID:            customerID,
		Value:                 decimal.NewFromFloat(req.Value),
		UseOrganisationCredit: req.UseOrganisationCredit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toProjectCreditResponse(credit))
}

// ListProjectCredits returns the project credits of a customer
func (h *CreditHandler) ListProjectCredits(c *gin.Context) {
	customerID, err := uuid.Parse(c.Query("customer_id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	credits, err := h.creditService.ListProjectCredits(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]ProjectCreditResponse, 0, len(credits))
	for _, credit := range credits {
		resp = append(resp, toProjectCreditResponse(credit))
	}
	h.Success(c, resp)
}

// RegisterRoutes registers credit routes
func (h *CreditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	credits := rg.Group("/credits")
	{
		credits.POST("", h.Create)
		credits.GET("", h.List)
		credits.GET("/:id", h.Get)
		credits.PATCH("/:id", h.Update)
		credits.DELETE("/:id", h.Delete)
		credits.POST("/projects", h.CreateProjectCredit)
		credits.GET("/projects", h.ListProjectCredits)
	}
}
