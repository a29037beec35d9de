package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/cloudbill/backend/internal/domain/billing"
	"github.com/cloudbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedInvoice(t *testing.T, repo *InvoiceRepository, customerID uuid.UUID, year, month int) *billing.Invoice {
	t.Helper()
	invoice, err := billing.NewInvoice(customerID, year, month)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), invoice))
	return invoice
}

func addStoredItem(t *testing.T, invoice *billing.Invoice, price int64) *billing.InvoiceItem {
	t.Helper()
	scope := billing.Scope{Kind: "vm", ID: uuid.New()}
	item, err := billing.NewInvoiceItem(
		invoice.ID, scope, "test item", billing.UnitQuantity,
		decimal.NewFromInt(price), decimal.NewFromInt(1),
		invoice.PeriodStart(), invoice.PeriodEnd(),
	)
	require.NoError(t, err)
	invoice.AddItem(item)
	return item
}

func TestInvoiceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips invoice with items", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))
		customerID := uuid.New()

		invoice := storedInvoice(t, repo, customerID, 2024, 3)
		item := addStoredItem(t, invoice, 100)
		item.WithProject(uuid.New()).WithDetails(billing.ItemDetails{"resource_name": "db-1"})
		require.NoError(t, repo.Update(ctx, invoice))

		found, err := repo.GetByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, customerID, found.CustomerID)
		assert.Equal(t, billing.InvoiceStatePending, found.State)
		require.Len(t, found.Items, 1)
		assert.Equal(t, "test item", found.Items[0].Name)
		assert.Equal(t, "db-1", found.Items[0].Details["resource_name"])
		assert.True(t, found.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	})

	t.Run("GetByPeriod returns not found for missing month", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))

		_, err := repo.GetByPeriod(ctx, uuid.New(), 2024, 3)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("GetOrCreate inserts once per period", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))
		customerID := uuid.New()

		first, created, err := repo.GetOrCreate(ctx, customerID, 2024, 3)
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := repo.GetOrCreate(ctx, customerID, 2024, 3)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("UpdateWithLock persists mutations", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))
		invoice := storedInvoice(t, repo, uuid.New(), 2024, 3)

		err := repo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
			addStoredItem(t, inv, 42)
			inv.RecomputeCurrentCost()
			return nil
		})
		require.NoError(t, err)

		found, err := repo.GetByID(ctx, invoice.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.True(t, found.CurrentCost.Equal(decimal.NewFromInt(42)))
	})

	t.Run("UpdateWithLock removes deleted items", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))
		invoice := storedInvoice(t, repo, uuid.New(), 2024, 3)
		item := addStoredItem(t, invoice, 10)
		require.NoError(t, repo.Update(ctx, invoice))

		err := repo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
			require.True(t, inv.RemoveItem(item.ID))
			return nil
		})
		require.NoError(t, err)

		found, err := repo.GetByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Empty(t, found.Items)
	})

	t.Run("UpdateWithLock rolls back on error", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))
		invoice := storedInvoice(t, repo, uuid.New(), 2024, 3)

		err := repo.UpdateWithLock(ctx, invoice.ID, func(inv *billing.Invoice) error {
			addStoredItem(t, inv, 10)
			return shared.ErrInvalidState
		})
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		found, err := repo.GetByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Empty(t, found.Items)
	})

	t.Run("List filters by customer and state", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))
		customerID := uuid.New()
		storedInvoice(t, repo, customerID, 2024, 2)
		storedInvoice(t, repo, customerID, 2024, 3)
		storedInvoice(t, repo, uuid.New(), 2024, 3)

		state := billing.InvoiceStatePending
		invoices, err := repo.List(ctx, billing.InvoiceFilter{CustomerID: &customerID, State: &state})
		require.NoError(t, err)
		assert.Len(t, invoices, 2)
	})

	t.Run("ListPendingBefore excludes the current month", func(t *testing.T) {
		repo := NewInvoiceRepository(setupTestDB(t))
		old := storedInvoice(t, repo, uuid.New(), 2024, 2)
		current := storedInvoice(t, repo, uuid.New(), 2024, 3)

		closed := storedInvoice(t, repo, uuid.New(), 2024, 1)
		require.NoError(t, closed.MarkCreated(time.Now(), false))
		require.NoError(t, repo.Update(ctx, closed))

		pending, err := repo.ListPendingBefore(ctx, 2024, 3)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, old.ID, pending[0].ID)
		assert.NotEqual(t, current.ID, pending[0].ID)
	})
}
