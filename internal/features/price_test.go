package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divrisk/pkg/contracts/domain"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// dailySeries builds a business-day-ish close series from start with the
// given closes, one per calendar day.
func dailySeries(start string, closes ...float64) []domain.PricePoint {
	d := day(start)
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Date: d.AddDate(0, 0, i), Close: c}
	}
	return points
}

// flatSeries builds n days of constant closes ending at end.
func flatSeries(end string, n int, close float64) []domain.PricePoint {
	e := day(end)
	points := make([]domain.PricePoint, n)
	for i := 0; i < n; i++ {
		points[i] = domain.PricePoint{Date: e.AddDate(0, 0, i-n+1), Close: close}
	}
	return points
}

func TestReturnOverMonths(t *testing.T) {
	prices := []domain.PricePoint{
		{Date: day("2023-12-29"), Close: 100},
		{Date: day("2024-06-28"), Close: 110},
	}
	r := ReturnOverMonths(prices, day("2024-06-30"), 6)
	require.NotNil(t, r)
	assert.InDelta(t, 0.10, *r, 1e-9)
}

func TestReturnOverMonthsMissingStart(t *testing.T) {
	prices := []domain.PricePoint{{Date: day("2024-06-28"), Close: 110}}
	assert.Nil(t, ReturnOverMonths(prices, day("2024-06-30"), 6))
}

func TestAnnualizedVolatilityFlatSeriesIsZero(t *testing.T) {
	prices := flatSeries("2024-06-30", 300, 50)
	v := AnnualizedVolatility(prices, day("2024-06-30"), 12)
	require.NotNil(t, v)
	assert.InDelta(t, 0, *v, 1e-9)
}

func TestAnnualizedVolatilityTooShort(t *testing.T) {
	prices := dailySeries("2024-06-28", 50)
	assert.Nil(t, AnnualizedVolatility(prices, day("2024-06-30"), 12))
}

func TestMaxDrawdown(t *testing.T) {
	prices := dailySeries("2024-06-01", 100, 120, 90, 95, 110)
	dd := MaxDrawdown(prices, day("2024-06-30"), 12)
	require.NotNil(t, dd)
	assert.InDelta(t, -0.25, *dd, 1e-9)
}

func TestMaxDrawdownMonotonicRise(t *testing.T) {
	prices := dailySeries("2024-06-01", 100, 101, 102, 103)
	dd := MaxDrawdown(prices, day("2024-06-30"), 12)
	require.NotNil(t, dd)
	assert.InDelta(t, 0, *dd, 1e-9)
}

func TestSMADelta(t *testing.T) {
	// 49 days at 100 then a close of 150: SMA50 = 101, delta = 150/101-1.
	prices := append(flatSeries("2024-06-29", 49, 100), domain.PricePoint{Date: day("2024-06-30"), Close: 150})
	d := SMADelta(prices, day("2024-06-30"), 50)
	require.NotNil(t, d)
	assert.InDelta(t, 150.0/101.0-1, *d, 1e-9)
}

func TestSMADeltaInsufficientHistory(t *testing.T) {
	prices := flatSeries("2024-06-30", 100, 50)
	assert.Nil(t, SMADelta(prices, day("2024-06-30"), 200))
}

func TestSectorRelativeReturn(t *testing.T) {
	own := []domain.PricePoint{
		{Date: day("2023-12-29"), Close: 100},
		{Date: day("2024-06-28"), Close: 120},
	}
	index := []domain.PricePoint{
		{Date: day("2023-12-29"), Close: 400},
		{Date: day("2024-06-28"), Close: 420},
	}
	rel := SectorRelativeReturn(own, index, day("2024-06-30"), 6)
	require.NotNil(t, rel)
	assert.InDelta(t, 0.20-0.05, *rel, 1e-9)
}

func TestSectorRelativeReturnMissingIndex(t *testing.T) {
	own := dailySeries("2024-01-01", 100, 110)
	assert.Nil(t, SectorRelativeReturn(own, nil, day("2024-06-30"), 6))
}
