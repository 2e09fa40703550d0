package features

import (
	"math"
	"time"

	"divrisk/pkg/contracts/domain"
)

const tradingDaysPerYear = 252

// sqrt252 annualizes daily volatility.
var sqrt252 = math.Sqrt(tradingDaysPerYear)

// ReturnOverMonths computes the simple return from months before asOf to
// asOf, using the closest prior closes.
func ReturnOverMonths(prices []domain.PricePoint, asOf time.Time, months int) *float64 {
	end, ok := closeOnOrBefore(prices, asOf)
	if !ok || end == 0 {
		return nil
	}
	start, ok := closeOnOrBefore(prices, asOf.AddDate(0, -months, 0))
	if !ok || start == 0 {
		return nil
	}
	return ptr(end/start - 1)
}

// AnnualizedVolatility computes the sample standard deviation of daily
// returns over the months before asOf, scaled by sqrt(252).
func AnnualizedVolatility(prices []domain.PricePoint, asOf time.Time, months int) *float64 {
	w := window(prices, asOf.AddDate(0, -months, 0), asOf)
	sd, ok := stddev(dailyReturns(w))
	if !ok {
		return nil
	}
	return ptr(sd * sqrt252)
}

// MaxDrawdown computes the worst peak-to-trough decline over the months
// before asOf, as a negative fraction.
func MaxDrawdown(prices []domain.PricePoint, asOf time.Time, months int) *float64 {
	w := window(prices, asOf.AddDate(0, -months, 0), asOf)
	if len(w) < 2 {
		return nil
	}

	peak := w[0].Close
	worst := 0.0
	for _, p := range w[1:] {
		if p.Close > peak {
			peak = p.Close
			continue
		}
		if peak > 0 {
			dd := p.Close/peak - 1
			if dd < worst {
				worst = dd
			}
		}
	}
	return ptr(worst)
}

// SMADelta computes the relative distance of the asOf close from the
// n-day simple moving average ending at asOf.
func SMADelta(prices []domain.PricePoint, asOf time.Time, n int) *float64 {
	w := window(prices, time.Time{}, asOf)
	avg, ok := sma(w, n)
	if !ok || avg == 0 {
		return nil
	}
	last, ok := closeOnOrBefore(prices, asOf)
	if !ok {
		return nil
	}
	return ptr(last/avg - 1)
}

// SectorRelativeReturn computes the ticker return minus the sector index
// return over the same window.
func SectorRelativeReturn(prices, index []domain.PricePoint, asOf time.Time, months int) *float64 {
	own := ReturnOverMonths(prices, asOf, months)
	bench := ReturnOverMonths(index, asOf, months)
	if own == nil || bench == nil {
		return nil
	}
	return ptr(*own - *bench)
}
