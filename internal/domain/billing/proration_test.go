package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestFullDays(t *testing.T) {
	t.Run("partial day rounds up", func(t *testing.T) {
		start := date(2014, time.February, 27, 0, 0)
		end := date(2014, time.February, 28, 13, 0)
		assert.Equal(t, 2, FullDays(start, end))
	})

	t.Run("exact day boundary is not rounded", func(t *testing.T) {
		start := date(2024, time.March, 1, 0, 0)
		end := date(2024, time.March, 3, 0, 0)
		assert.Equal(t, 2, FullDays(start, end))
	})

	t.Run("one second counts as a day", func(t *testing.T) {
		start := date(2024, time.March, 1, 0, 0)
		assert.Equal(t, 1, FullDays(start, start.Add(time.Second)))
	})

	t.Run("end before start yields zero", func(t *testing.T) {
		start := date(2024, time.March, 2, 0, 0)
		assert.Equal(t, 0, FullDays(start, start.Add(-time.Hour)))
	})
}

func TestFullHours(t *testing.T) {
	start := date(2024, time.March, 1, 10, 0)

	assert.Equal(t, 1, FullHours(start, start.Add(time.Hour)))
	assert.Equal(t, 2, FullHours(start, start.Add(time.Hour+time.Minute)))
	assert.Equal(t, 0, FullHours(start, start))
}

func TestQuantizePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.001", "1.01"},
		{"-1.001", "-1.01"},
		{"1.00", "1"},
		{"0.005", "0.01"},
		{"10", "10"},
	}
	for _, tc := range cases {
		got := QuantizePrice(decimal.RequireFromString(tc.in))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"QuantizePrice(%s) = %s, want %s", tc.in, got, tc.want)
	}
}

func TestMonthBoundaries(t *testing.T) {
	ref := date(2024, time.February, 14, 12, 30)

	assert.Equal(t, date(2024, time.February, 1, 0, 0), MonthStart(ref))
	assert.Equal(t, 29, DaysInMonth(ref))
	assert.Equal(t, time.February, MonthEnd(ref).Month())
	assert.Equal(t, 29, MonthEnd(ref).Day())
}

func TestQuantityFor(t *testing.T) {
	t.Run("per hour", func(t *testing.T) {
		start := date(2024, time.March, 1, 0, 0)
		end := date(2024, time.March, 1, 2, 30)
		assert.True(t, QuantityFor(UnitPerHour, start, end).Equal(decimal.NewFromInt(3)))
	})

	t.Run("per day", func(t *testing.T) {
		start := date(2024, time.March, 1, 0, 0)
		end := date(2024, time.March, 4, 1, 0)
		assert.True(t, QuantityFor(UnitPerDay, start, end).Equal(decimal.NewFromInt(4)))
	})

	t.Run("half month first half", func(t *testing.T) {
		start := date(2024, time.March, 1, 0, 0)
		end := date(2024, time.March, 15, 23, 59)
		assert.True(t, QuantityFor(UnitPerHalfMonth, start, end).Equal(decimal.NewFromInt(1)))
	})

	t.Run("half month second half", func(t *testing.T) {
		start := date(2024, time.March, 16, 0, 0)
		end := date(2024, time.March, 31, 23, 59)
		assert.True(t, QuantityFor(UnitPerHalfMonth, start, end).Equal(decimal.NewFromInt(1)))
	})

	t.Run("half month whole month", func(t *testing.T) {
		start := date(2024, time.March, 1, 0, 0)
		end := date(2024, time.March, 31, 23, 59)
		assert.True(t, QuantityFor(UnitPerHalfMonth, start, end).Equal(decimal.NewFromInt(2)))
	})

	t.Run("half month first half plus extra days", func(t *testing.T) {
		// 1..20 of a 30-day month: 1 + 5/15
		start := date(2024, time.April, 1, 0, 0)
		end := date(2024, time.April, 20, 0, 0)
		got := QuantityFor(UnitPerHalfMonth, start, end)
		assert.True(t, got.Equal(decimal.RequireFromString("1.34")), "got %s", got)
	})

	t.Run("half month mid window", func(t *testing.T) {
		// 5..10 of a 30-day month: 6/15
		start := date(2024, time.April, 5, 0, 0)
		end := date(2024, time.April, 10, 0, 0)
		got := QuantityFor(UnitPerHalfMonth, start, end)
		assert.True(t, got.Equal(decimal.RequireFromString("0.4")), "got %s", got)
	})

	t.Run("month full", func(t *testing.T) {
		start := date(2024, time.March, 1, 0, 0)
		end := date(2024, time.March, 31, 23, 59)
		assert.True(t, QuantityFor(UnitPerMonth, start, end).Equal(decimal.NewFromInt(1)))
	})

	t.Run("month partial", func(t *testing.T) {
		// 16..31 of a 31-day month
		start := date(2024, time.March, 16, 0, 0)
		end := date(2024, time.March, 31, 0, 0)
		got := QuantityFor(UnitPerMonth, start, end)
		assert.True(t, got.Equal(decimal.RequireFromString("0.52")), "got %s", got)
	})
}

func TestMonthProrationFactor(t *testing.T) {
	ref := date(2024, time.April, 10, 0, 0)

	t.Run("full month", func(t *testing.T) {
		got := MonthProrationFactor(date(2024, time.March, 1, 0, 0), date(2024, time.May, 1, 0, 0), ref)
		assert.True(t, got.Equal(decimal.NewFromInt(1)), "got %s", got)
	})

	t.Run("window outside month", func(t *testing.T) {
		got := MonthProrationFactor(date(2024, time.May, 1, 0, 0), date(2024, time.May, 2, 0, 0), ref)
		assert.True(t, got.IsZero())
	})
}

func TestPricePerDay(t *testing.T) {
	price := decimal.NewFromInt(30)

	assert.True(t, PricePerDay(price, UnitPerDay).Equal(decimal.NewFromInt(30)))
	assert.True(t, PricePerDay(price, UnitPerMonth).Equal(decimal.NewFromInt(1)))
	assert.True(t, PricePerDay(price, UnitPerHalfMonth).Equal(decimal.NewFromInt(2)))
	assert.True(t, PricePerDay(price, UnitPerHour).Equal(decimal.NewFromInt(720)))
}
