package handler

import (
	billingapp "github.com/cloudbill/backend/internal/application/billing"
	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentProfileHandler handles payment profile API endpoints
type PaymentProfileHandler struct {
	BaseHandler
	profileService *billingapp.PaymentProfileService
}

// NewPaymentProfileHandler creates a new PaymentProfileHandler
func NewPaymentProfileHandler(profileService *billingapp.PaymentProfileService) *PaymentProfileHandler {
	return &PaymentProfileHandler{
		profileService: profileService,
	}
}

// CreatePaymentProfileRequest represents a request to create a payment profile
type CreatePaymentProfileRequest struct {
	CustomerID  string `json:"customer_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,min=1,max=150"`
	PaymentType string `json:"payment_type" binding:"required,oneof=fixed_price invoices payment_gw_monthly"`
}

// PaymentProfileResponse represents a payment profile in API responses
type PaymentProfileResponse struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customer_id"`
	Name        string `json:"name"`
	PaymentType string `json:"payment_type"`
	IsActive    bool   `json:"is_active"`
}

func toPaymentProfileResponse(profile *billing.PaymentProfile) PaymentProfileResponse {
	return PaymentProfileResponse{
		ID:          profile.ID.String(),
		CustomerID:  profile.CustomerID.String(),
		Name:        profile.Name,
		PaymentType: string(profile.PaymentType),
		IsActive:    profile.IsActive,
	}
}

// Create creates a payment profile for a customer
func (h *PaymentProfileHandler) Create(c *gin.Context) {
	var req CreatePaymentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	profile, err := h.profileService.CreateProfile(c.Request.Context(), billingapp.CreatePaymentProfileInput{
		CustomerID:  customerID,
		Name:        req.Name,
		PaymentType: billing.PaymentType(req.PaymentType),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toPaymentProfileResponse(profile))
}

// Get returns a payment profile by ID
func (h *PaymentProfileHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPaymentProfileResponse(profile))
}

// List returns the payment profiles of a customer
func (h *PaymentProfileHandler) List(c *gin.Context) {
	customerID, err := uuid.Parse(c.Query("customer_id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	profiles, err := h.profileService.ListProfiles(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]PaymentProfileResponse, 0, len(profiles))
	for _, profile := range profiles {
		resp = append(resp, toPaymentProfileResponse(profile))
	}
	h.Success(c, resp)
}

// Activate makes a profile the customer's active one, deactivating the rest
func (h *PaymentProfileHandler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	if err := h.profileService.ActivateProfile(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers payment profile routes
func (h *PaymentProfileHandler) RegisterRoutes(rg *gin.RouterGroup) {
	profiles := rg.Group("/payment-profiles")
	{
		profiles.POST("", h.Create)
		profiles.GET("", h.List)
		profiles.GET("/:id", h.Get)
		profiles.POST("/:id/activate", h.Activate)
	}
}
