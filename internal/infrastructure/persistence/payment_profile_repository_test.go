package persistence

import (
	"context"
	"testing"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentProfileRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips profile", func(t *testing.T) {
		repo := NewPaymentProfileRepository(setupTestDB(t))
		customerID := uuid.New()

		profile, err := billing.NewPaymentProfile(customerID, "default", billing.PaymentTypeMonthlyInvoices)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, profile))

		found, err := repo.GetByID(ctx, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.PaymentTypeMonthlyInvoices, found.PaymentType)
		assert.True(t, found.IsActive)
	})

	t.Run("Activate deactivates the customer's other profiles", func(t *testing.T) {
		repo := NewPaymentProfileRepository(setupTestDB(t))
		customerID := uuid.New()

		invoices, err := billing.NewPaymentProfile(customerID, "invoices", billing.PaymentTypeMonthlyInvoices)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, invoices))

		fixed, err := billing.NewPaymentProfile(customerID, "contract", billing.PaymentTypeFixedPrice)
		require.NoError(t, err)
		fixed.IsActive = false
		require.NoError(t, repo.Create(ctx, fixed))

		require.NoError(t, repo.Activate(ctx, fixed.ID))

		active, err := repo.GetActiveByCustomer(ctx, customerID)
		require.NoError(t, err)
		assert.Equal(t, fixed.ID, active.ID)

		former, err := repo.GetByID(ctx, invoices.ID)
		require.NoError(t, err)
		assert.False(t, former.IsActive)
	})

	t.Run("Activate returns not found for missing profile", func(t *testing.T) {
		repo := NewPaymentProfileRepository(setupTestDB(t))
		assert.ErrorIs(t, repo.Activate(ctx, uuid.New()), shared.ErrNotFound)
	})

	t.Run("GetActiveByCustomer returns not found without profiles", func(t *testing.T) {
		repo := NewPaymentProfileRepository(setupTestDB(t))
		_, err := repo.GetActiveByCustomer(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ListByCustomer returns all profiles", func(t *testing.T) {
		repo := NewPaymentProfileRepository(setupTestDB(t))
		customerID := uuid.New()

		for _, paymentType := range []billing.PaymentType{
			billing.PaymentTypeMonthlyInvoices,
			billing.PaymentTypeGatewayMonthly,
		} {
			profile, err := billing.NewPaymentProfile(customerID, string(paymentType), paymentType)
			require.NoError(t, err)
			require.NoError(t, repo.Create(ctx, profile))
		}

		profiles, err := repo.ListByCustomer(ctx, customerID)
		require.NoError(t, err)
		assert.Len(t, profiles, 2)
	})
}
