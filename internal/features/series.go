package features

import (
	"math"
	"sort"
	"time"

	"divrisk/pkg/contracts/domain"
)

// closeOnOrBefore returns the last close at or before date, searching a
// date-ascending series.
func closeOnOrBefore(prices []domain.PricePoint, date time.Time) (float64, bool) {
	idx := sort.Search(len(prices), func(i int) bool {
		return prices[i].Date.After(date)
	})
	if idx == 0 {
		return 0, false
	}
	return prices[idx-1].Close, true
}

// window returns the sub-series within [from, to] of a date-ascending series.
func window(prices []domain.PricePoint, from, to time.Time) []domain.PricePoint {
	lo := sort.Search(len(prices), func(i int) bool {
		return !prices[i].Date.Before(from)
	})
	hi := sort.Search(len(prices), func(i int) bool {
		return prices[i].Date.After(to)
	})
	return prices[lo:hi]
}

// dailyReturns computes simple close-to-close returns of a series.
func dailyReturns(prices []domain.PricePoint) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, prices[i].Close/prev-1)
	}
	return returns
}

// stddev is the sample standard deviation.
func stddev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1)), true
}

// sma returns the simple moving average of the last n closes ending at
// the end of the series.
func sma(prices []domain.PricePoint, n int) (float64, bool) {
	if n < 1 || len(prices) < n {
		return 0, false
	}
	var sum float64
	for _, p := range prices[len(prices)-n:] {
		sum += p.Close
	}
	return sum / float64(n), true
}

// median returns the median of values. It does not mutate its input.
func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func ptr(v float64) *float64 { return &v }
