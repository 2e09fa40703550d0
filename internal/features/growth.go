package features

import (
	"math"
	"time"

	"divrisk/pkg/contracts/domain"
)

// cagrGraceDays tolerates fiscal-year-end drift when matching the start
// and end observations of a CAGR window.
const cagrGraceDays = 93

// CAGR computes the compound annual growth rate between two positive
// observations years apart. Non-positive endpoints yield no value.
func CAGR(start, end float64, years float64) *float64 {
	if years <= 0 || start <= 0 || end <= 0 {
		return nil
	}
	return ptr(math.Pow(end/start, 1/years) - 1)
}

// annualObservation finds the observation closest to target within the
// grace window, from a date-ascending series accessed via dateOf/valueOf.
func annualObservation[T any](records []T, target time.Time, dateOf func(T) time.Time, valueOf func(T) float64) (float64, bool) {
	grace := time.Duration(cagrGraceDays) * 24 * time.Hour
	best := -1
	var bestDist time.Duration
	for i, r := range records {
		d := dateOf(r)
		dist := d.Sub(target)
		if dist < 0 {
			dist = -dist
		}
		if dist > grace {
			continue
		}
		if best < 0 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best < 0 {
		return 0, false
	}
	return valueOf(records[best]), true
}

// EPSCAGR computes the EPS growth rate over years ending at asOf, using
// annual income statements with a grace window on both endpoints.
func EPSCAGR(income []domain.IncomeRecord, asOf time.Time, years int) *float64 {
	if years < 1 {
		return nil
	}
	dateOf := func(r domain.IncomeRecord) time.Time { return r.Date }
	valueOf := func(r domain.IncomeRecord) float64 { return r.EPS }

	end, ok := annualObservation(income, asOf, dateOf, valueOf)
	if !ok {
		// Statements lag the as-of date; fall back to the latest year end.
		end, ok = annualObservation(income, asOf.AddDate(-1, 0, 0).AddDate(0, 6, 0), dateOf, valueOf)
		if !ok {
			return nil
		}
		asOf = asOf.AddDate(-1, 0, 0).AddDate(0, 6, 0)
	}
	start, ok := annualObservation(income, asOf.AddDate(-years, 0, 0), dateOf, valueOf)
	if !ok {
		return nil
	}
	return CAGR(start, end, float64(years))
}

// FCFPerShareCAGR computes the free-cash-flow-per-share growth rate over
// years ending at asOf, from the ratio history.
func FCFPerShareCAGR(ratios []domain.RatioRecord, asOf time.Time, years int) *float64 {
	if years < 1 {
		return nil
	}
	dateOf := func(r domain.RatioRecord) time.Time { return r.Date }
	valueOf := func(r domain.RatioRecord) float64 { return r.FreeCashFlowPerShare }

	end, ok := annualObservation(ratios, asOf, dateOf, valueOf)
	if !ok {
		end, ok = annualObservation(ratios, asOf.AddDate(-1, 0, 0).AddDate(0, 6, 0), dateOf, valueOf)
		if !ok {
			return nil
		}
		asOf = asOf.AddDate(-1, 0, 0).AddDate(0, 6, 0)
	}
	start, ok := annualObservation(ratios, asOf.AddDate(-years, 0, 0), dateOf, valueOf)
	if !ok {
		return nil
	}
	return CAGR(start, end, float64(years))
}

// TrailingDividend sums the dividends paid in the 12 months ending at
// asOf. The series must already be split-adjusted.
func TrailingDividend(dividends []domain.DividendPayment, asOf time.Time) (float64, bool) {
	from := asOf.AddDate(-1, 0, 0)
	var sum float64
	var count int
	for _, d := range dividends {
		if d.Date.After(from) && !d.Date.After(asOf) {
			sum += d.Dividend
			count++
		}
	}
	return sum, count > 0
}

// DividendCAGR computes the growth rate of the trailing 12-month dividend
// between years before asOf and asOf. Both trailing sums must be positive.
func DividendCAGR(dividends []domain.DividendPayment, asOf time.Time, years int) *float64 {
	if years < 1 {
		return nil
	}
	end, ok := TrailingDividend(dividends, asOf)
	if !ok {
		return nil
	}
	start, ok := TrailingDividend(dividends, asOf.AddDate(-years, 0, 0))
	if !ok {
		return nil
	}
	return CAGR(start, end, float64(years))
}
