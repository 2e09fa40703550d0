package features

import (
	"time"

	"divrisk/pkg/contracts/domain"
)

// latestPositive walks the ratio history backwards from asOf and returns
// the first positive value produced by valueOf.
func latestPositive(ratios []domain.RatioRecord, asOf time.Time, valueOf func(domain.RatioRecord) float64) *float64 {
	for i := len(ratios) - 1; i >= 0; i-- {
		if ratios[i].Date.After(asOf) {
			continue
		}
		if v := valueOf(ratios[i]); v > 0 {
			return ptr(v)
		}
	}
	return nil
}

// LatestPositivePE returns the most recent positive price/earnings ratio
// at or before asOf. Loss-making years are skipped.
func LatestPositivePE(ratios []domain.RatioRecord, asOf time.Time) *float64 {
	return latestPositive(ratios, asOf, func(r domain.RatioRecord) float64 { return r.PriceEarnings })
}

// LatestPositivePFCF returns the most recent positive price/FCF ratio at
// or before asOf.
func LatestPositivePFCF(ratios []domain.RatioRecord, asOf time.Time) *float64 {
	return latestPositive(ratios, asOf, func(r domain.RatioRecord) float64 { return r.PriceToFreeCashFlows })
}

// LatestPayoutRatio returns the most recent positive payout ratio at or
// before asOf.
func LatestPayoutRatio(ratios []domain.RatioRecord, asOf time.Time) *float64 {
	return latestPositive(ratios, asOf, func(r domain.RatioRecord) float64 { return r.PayoutRatio })
}

// CurrentYield computes the trailing 12-month dividend over the asOf close.
func CurrentYield(dividends []domain.DividendPayment, prices []domain.PricePoint, asOf time.Time) *float64 {
	trailing, ok := TrailingDividend(dividends, asOf)
	if !ok {
		return nil
	}
	price, ok := closeOnOrBefore(prices, asOf)
	if !ok || price == 0 {
		return nil
	}
	return ptr(trailing / price)
}

// YieldVsMedian compares the current yield against the median of the
// yearly dividend yields over the lookback window, as a ratio minus one.
// Positive values mean the stock yields above its own history, which for
// dividend payers often signals price stress rather than generosity.
func YieldVsMedian(current *float64, ratios []domain.RatioRecord, asOf time.Time, lookbackYears int) *float64 {
	if current == nil || lookbackYears < 1 {
		return nil
	}

	from := asOf.AddDate(-lookbackYears, 0, 0)
	var yields []float64
	for _, r := range ratios {
		if r.Date.Before(from) || r.Date.After(asOf) {
			continue
		}
		if r.DividendYield > 0 {
			yields = append(yields, r.DividendYield)
		}
	}

	med, ok := median(yields)
	if !ok || med == 0 {
		return nil
	}
	return ptr(*current/med - 1)
}
