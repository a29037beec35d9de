package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	billingapp "github.com/cloudbill/backend/internal/application/billing"
	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/infrastructure/persistence"
	"github.com/cloudbill/backend/internal/interfaces/http/dto"
	"github.com/cloudbill/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupInvoiceRouter(t *testing.T) (*gin.Engine, *billingapp.InvoiceService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// every pooled connection gets its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&persistence.InvoiceModel{},
		&persistence.InvoiceItemModel{},
		&persistence.PaymentProfileModel{},
	))

	service := billingapp.NewInvoiceService(
		persistence.NewInvoiceRepository(db),
		persistence.NewPaymentProfileRepository(db),
		billing.IssuerDetails{Name: "Test Provider"},
		zap.NewNop(),
	)

	engine := gin.New()
	router.NewRouter(engine).
		Register(NewInvoiceHandler(service)).
		Setup()
	return engine, service
}

func TestInvoiceHandlerListAndGet(t *testing.T) {
	engine, service := setupInvoiceRouter(t)
	ctx := context.Background()
	customerID := uuid.New()

	inv, created, err := service.GetOrCreateInvoice(ctx, customerID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, created)

	t.Run("lists invoices by customer", func(t *testing.T) {
		w := performJSON(t, engine, http.MethodGet, "/api/v1/invoices?customer_id="+customerID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)

		entry := resp.Data.([]any)[0].(map[string]any)
		assert.Equal(t, "pending", entry["state"])
		assert.Equal(t, float64(2026), entry["year"])
		assert.Equal(t, float64(3), entry["month"])
	})

	t.Run("filters out non-matching states", func(t *testing.T) {
		w := performJSON(t, engine, http.MethodGet, "/api/v1/invoices?customer_id="+customerID.String()+"&state=paid", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Data)
	})

	t.Run("rejects unknown states", func(t *testing.T) {
		w := performJSON(t, engine, http.MethodGet, "/api/v1/invoices?state=bogus", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns a single invoice", func(t *testing.T) {
		w := performJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, inv.ID.String(), data["id"])
	})

	t.Run("returns 404 for an unknown invoice", func(t *testing.T) {
		w := performJSON(t, engine, http.MethodGet, "/api/v1/invoices/"+uuid.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInvoiceHandlerTransitions(t *testing.T) {
	engine, service := setupInvoiceRouter(t)
	ctx := context.Background()

	inv, _, err := service.GetOrCreateInvoice(ctx, uuid.New(), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	t.Run("paying a created invoice succeeds", func(t *testing.T) {
		require.NoError(t, service.SetCreated(ctx, inv.ID, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))

		w := performJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/paid", nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		got, err := service.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatePaid, got.State)
	})

	t.Run("canceling a paid invoice fails", func(t *testing.T) {
		w := performJSON(t, engine, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/cancel", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
