package fetcher

import "time"

// priceLookbackDays covers the 12-month return window plus the 200-day
// moving average warmup.
const priceLookbackDays = 600

// LatestQuarterEnd returns the most recent completed calendar quarter end
// on or before the given date.
func LatestQuarterEnd(now time.Time) time.Time {
	year, month := now.Year(), now.Month()
	switch {
	case month >= time.October:
		return time.Date(year, time.September, 30, 0, 0, 0, 0, time.UTC)
	case month >= time.July:
		return time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
	case month >= time.April:
		return time.Date(year, time.March, 31, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year-1, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
}

// QuarterEnds returns every calendar quarter end between startYear and
// endYear inclusive, ascending, excluding quarter ends after cutoff.
func QuarterEnds(startYear, endYear int, cutoff time.Time) []time.Time {
	ends := make([]time.Time, 0, (endYear-startYear+1)*4)
	for year := startYear; year <= endYear; year++ {
		for _, qe := range []time.Time{
			time.Date(year, time.March, 31, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.September, 30, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		} {
			if qe.After(cutoff) {
				continue
			}
			ends = append(ends, qe)
		}
	}
	return ends
}

// PriceWindow returns the [from, to] range of daily prices needed to
// compute all price features as of asOf.
func PriceWindow(asOf time.Time) (from, to time.Time) {
	return asOf.AddDate(0, 0, -priceLookbackDays), asOf
}

// DividendWindow returns the range of dividend history needed for the
// dividend growth features, lookbackYears before asOf plus one extra
// year so the oldest trailing sum is complete.
func DividendWindow(asOf time.Time, lookbackYears int) (from, to time.Time) {
	if lookbackYears < 1 {
		lookbackYears = 5
	}
	return asOf.AddDate(-(lookbackYears + 1), 0, 0), asOf
}

// FundamentalWindow returns the range of annual statements needed for
// the fundamental features as of asOf.
func FundamentalWindow(asOf time.Time, years int) (from, to time.Time) {
	if years < 1 {
		years = 4
	}
	return asOf.AddDate(-(years + 1), 0, 0), asOf
}
