package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proration arithmetic for monthly billing periods.
//
// Day and hour counts round any started period up: a resource that existed
// for one day and one second is billed for two days. Prices are quantized to
// two decimal places rounding away from zero on any remainder. Both policies
// are provider-favorable and intentional.

// FullDays returns the number of billing days between two timestamps,
// counting any partial day as a full day.
func FullDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	d := end.Sub(start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// FullHours returns the number of billing hours between two timestamps,
// counting any partial hour as a full hour.
func FullHours(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	d := end.Sub(start)
	hours := int(d / time.Hour)
	if d%time.Hour > 0 {
		hours++
	}
	return hours
}

// QuantizePrice rounds a price to two decimal places, rounding away from
// zero on any remainder: QuantizePrice(1.001) == 1.01.
func QuantizePrice(value decimal.Decimal) decimal.Decimal {
	return value.RoundUp(2)
}

// MonthStart returns the first instant of the month containing t.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last instant of the month containing t.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// DaysInMonth returns the number of calendar days in the month containing t.
func DaysInMonth(t time.Time) int {
	return MonthStart(t).AddDate(0, 1, -1).Day()
}

// MonthProrationFactor returns the fraction of the month containing monthRef
// that the [start, end] window covers, computed from billing days.
func MonthProrationFactor(start, end, monthRef time.Time) decimal.Decimal {
	ms := MonthStart(monthRef)
	me := MonthEnd(monthRef)
	if start.Before(ms) {
		start = ms
	}
	if end.After(me) {
		end = me
	}
	if end.Before(start) {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(FullDays(start, end)))
	return days.Div(decimal.NewFromInt(int64(DaysInMonth(monthRef))))
}

// QuantityFor computes the billable quantity of a fixed-price component for
// the [start, end] window, according to the billing unit.
//
// Half-month windows count as 1 when the window matches either half exactly,
// 2 for the whole month, and a proportional fraction otherwise. Monthly
// windows count as 1 for the whole month and a day-proportional fraction
// otherwise.
func QuantityFor(unit Unit, start, end time.Time) decimal.Decimal {
	monthDays := DaysInMonth(start)

	switch unit {
	case UnitPerHour:
		return decimal.NewFromInt(int64(FullHours(start, end)))
	case UnitPerDay:
		return decimal.NewFromInt(int64(FullDays(start, end)))
	case UnitPerHalfMonth:
		half := decimal.NewFromInt(int64(monthDays)).Div(decimal.NewFromInt(2))
		switch {
		case (start.Day() == 1 && end.Day() == 15) || (start.Day() == 16 && end.Day() == monthDays):
			return decimal.NewFromInt(1)
		case start.Day() == 1 && end.Day() == monthDays:
			return decimal.NewFromInt(2)
		case start.Day() == 1 && end.Day() > 15:
			extra := decimal.NewFromInt(int64(end.Day() - 15))
			return QuantizePrice(decimal.NewFromInt(1).Add(extra.Div(half)))
		case start.Day() < 16 && end.Day() == monthDays:
			extra := decimal.NewFromInt(int64(16 - start.Day()))
			return QuantizePrice(decimal.NewFromInt(1).Add(extra.Div(half)))
		default:
			used := decimal.NewFromInt(int64(end.Day() - start.Day() + 1))
			return QuantizePrice(used.Div(half))
		}
	default: // UnitPerMonth
		if start.Day() == 1 && end.Day() == monthDays {
			return decimal.NewFromInt(1)
		}
		useDays := calendarDays(start, end) + 1
		return QuantizePrice(decimal.NewFromInt(int64(useDays)).Div(decimal.NewFromInt(int64(monthDays))))
	}
}

// PricePerDay converts a unit price to a daily price for estimates.
func PricePerDay(price decimal.Decimal, unit Unit) decimal.Decimal {
	switch unit {
	case UnitPerDay:
		return price
	case UnitPerMonth:
		return price.Div(decimal.NewFromInt(30))
	case UnitPerHalfMonth:
		return price.Div(decimal.NewFromInt(15))
	case UnitPerHour:
		return price.Mul(decimal.NewFromInt(24))
	default:
		return price
	}
}

// calendarDays returns the number of whole calendar days between two
// timestamps, truncating any partial day.
func calendarDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}
