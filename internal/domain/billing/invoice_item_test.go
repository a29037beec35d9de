package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoiceItem(t *testing.T) {
	start := date(2024, time.March, 1, 0, 0)
	end := date(2024, time.March, 31, 0, 0)

	t.Run("rejects empty invoice", func(t *testing.T) {
		_, err := NewInvoiceItem(uuid.Nil, Scope{}, "cpu", UnitQuantity,
			decimal.NewFromInt(1), decimal.NewFromInt(1), start, end)
		assert.Error(t, err)
	})

	t.Run("rejects unknown unit", func(t *testing.T) {
		_, err := NewInvoiceItem(uuid.New(), Scope{}, "cpu", Unit("fortnight"),
			decimal.NewFromInt(1), decimal.NewFromInt(1), start, end)
		assert.Error(t, err)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		_, err := NewInvoiceItem(uuid.New(), Scope{}, "cpu", UnitQuantity,
			decimal.NewFromInt(1), decimal.NewFromInt(1), end, start)
		assert.Error(t, err)
	})
}

func TestInvoiceItemPrice(t *testing.T) {
	item, err := NewInvoiceItem(uuid.New(), Scope{}, "cpu", UnitQuantity,
		decimal.RequireFromString("0.333"), decimal.NewFromInt(3),
		date(2024, time.March, 1, 0, 0), date(2024, time.March, 31, 0, 0))
	require.NoError(t, err)

	// 0.999 quantizes up to 1.00
	assert.True(t, item.Price().Equal(decimal.NewFromInt(1)), "got %s", item.Price())
}

func TestInvoiceItemTerminate(t *testing.T) {
	start := date(2024, time.March, 1, 0, 0)

	t.Run("recomputes time based quantity", func(t *testing.T) {
		item, err := NewInvoiceItem(uuid.New(), Scope{}, "vm", UnitPerDay,
			decimal.NewFromInt(2), decimal.NewFromInt(31), start, date(2024, time.March, 31, 23, 59))
		require.NoError(t, err)

		item.Terminate(date(2024, time.March, 10, 12, 0))
		assert.True(t, item.Quantity.Equal(decimal.NewFromInt(10)), "got %s", item.Quantity)
	})

	t.Run("keeps reported quantity for usage items", func(t *testing.T) {
		item, err := NewInvoiceItem(uuid.New(), Scope{}, "gb", UnitQuantity,
			decimal.NewFromInt(2), decimal.NewFromInt(7), start, date(2024, time.March, 31, 23, 59))
		require.NoError(t, err)

		item.Terminate(date(2024, time.March, 10, 0, 0))
		assert.True(t, item.Quantity.Equal(decimal.NewFromInt(7)))
	})

	t.Run("clamps end before start", func(t *testing.T) {
		item, err := NewInvoiceItem(uuid.New(), Scope{}, "vm", UnitPerDay,
			decimal.NewFromInt(2), decimal.NewFromInt(31), start, date(2024, time.March, 31, 23, 59))
		require.NoError(t, err)

		item.Terminate(start.Add(-time.Hour))
		assert.Equal(t, start, item.End)
	})
}

func TestInvoiceItemDetach(t *testing.T) {
	item, err := NewInvoiceItem(uuid.New(), Scope{Kind: "resource", ID: uuid.New()},
		"vm", UnitPerDay, decimal.NewFromInt(2), decimal.NewFromInt(31),
		date(2024, time.March, 1, 0, 0), date(2024, time.March, 31, 23, 59))
	require.NoError(t, err)
	item.WithDetails(ItemDetails{"resource_name": "vm-1", "offering_name": "compute"})

	require.False(t, item.IsDetached())
	item.Detach()

	assert.True(t, item.IsDetached())
	assert.Equal(t, "vm-1", item.Details["resource_name"])
}

func TestInvoiceItemClampWindow(t *testing.T) {
	ref := date(2024, time.March, 15, 0, 0)
	item, err := NewInvoiceItem(uuid.New(), Scope{}, "vm", UnitPerDay,
		decimal.NewFromInt(2), decimal.NewFromInt(31),
		date(2024, time.February, 20, 0, 0), date(2024, time.April, 5, 0, 0))
	require.NoError(t, err)

	item.ClampWindow(ref)

	assert.Equal(t, MonthStart(ref), item.Start)
	assert.Equal(t, MonthEnd(ref), item.End)
}
