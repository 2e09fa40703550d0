package features

import (
	"time"

	"divrisk/pkg/contracts/domain"
)

// Vector is one engineered feature row for a ticker as of a date.
// Nil pointers mean the feature could not be computed from the
// available source data; the has_* flags record source presence.
type Vector struct {
	Ticker string
	AsOf   time.Time

	// Price features.
	Return6M          *float64
	Return12M         *float64
	Volatility12M     *float64
	MaxDrawdown12M    *float64
	SMA50Delta        *float64
	SMA200Delta       *float64
	SectorRelReturn6M *float64

	// Fundamentals.
	NetDebtToEBITDA   *float64
	EBITInterestCover *float64

	// Growth.
	EPSCAGR3Y      *float64
	FCFCAGR3Y      *float64
	DividendCAGR3Y *float64
	DividendCAGR5Y *float64

	// Dividend and valuation.
	DividendYield   *float64
	YieldVs5YMedian *float64
	PayoutRatio     *float64
	PERatio         *float64
	PFCFRatio       *float64
	ReturnOnEquity  *float64
	DebtEquity      *float64
	NetProfitMargin *float64

	// Raw ratio denominators, carried for the row validator's
	// stability checks. Not persisted.
	EBITDA       *float64
	FreeCashFlow *float64

	// Source presence flags.
	HasDividends    bool
	HasFundamentals bool
	HasRatios       bool
	HasSectorIndex  bool

	// Static encoding inputs.
	Sector  string
	Country string
}

// BuildOptions tunes the lookback windows of a feature build.
type BuildOptions struct {
	DividendLookbackYears int
}

// Build computes the full feature vector for a ticker from its source
// inputs. Individual features degrade to nil when their inputs are
// missing; only prices and the profile are assumed present.
func Build(ticker string, asOf time.Time, inputs *domain.TickerInputs, opts BuildOptions) *Vector {
	lookback := opts.DividendLookbackYears
	if lookback < 1 {
		lookback = 5
	}

	v := &Vector{
		Ticker:  ticker,
		AsOf:    asOf,
		Sector:  inputs.Profile.Sector,
		Country: inputs.Profile.Country,

		HasDividends:    len(inputs.Dividends) > 0,
		HasFundamentals: len(inputs.Income) > 0 && len(inputs.Balance) > 0 && len(inputs.Cashflow) > 0,
		HasRatios:       len(inputs.Ratios) > 0,
		HasSectorIndex:  len(inputs.SectorIndex) > 0,
	}

	v.Return6M = ReturnOverMonths(inputs.Prices, asOf, 6)
	v.Return12M = ReturnOverMonths(inputs.Prices, asOf, 12)
	v.Volatility12M = AnnualizedVolatility(inputs.Prices, asOf, 12)
	v.MaxDrawdown12M = MaxDrawdown(inputs.Prices, asOf, 12)
	v.SMA50Delta = SMADelta(inputs.Prices, asOf, 50)
	v.SMA200Delta = SMADelta(inputs.Prices, asOf, 200)
	if v.HasSectorIndex {
		v.SectorRelReturn6M = SectorRelativeReturn(inputs.Prices, inputs.SectorIndex, asOf, 6)
	}

	v.NetDebtToEBITDA = NetDebtToEBITDA(inputs.Income, inputs.Balance, inputs.Cashflow)
	v.EBITInterestCover = EBITInterestCover(inputs.Income)
	v.EBITDA = EBITDAProxy(inputs.Income, inputs.Cashflow)
	v.FreeCashFlow = FreeCashFlow(inputs.Income, inputs.Cashflow)

	v.EPSCAGR3Y = EPSCAGR(inputs.Income, asOf, 3)
	v.FCFCAGR3Y = FCFPerShareCAGR(inputs.Ratios, asOf, 3)
	v.DividendCAGR3Y = DividendCAGR(inputs.Dividends, asOf, 3)
	v.DividendCAGR5Y = DividendCAGR(inputs.Dividends, asOf, lookback)

	v.DividendYield = CurrentYield(inputs.Dividends, inputs.Prices, asOf)
	v.YieldVs5YMedian = YieldVsMedian(v.DividendYield, inputs.Ratios, asOf, lookback)
	v.PayoutRatio = LatestPayoutRatio(inputs.Ratios, asOf)
	v.PERatio = LatestPositivePE(inputs.Ratios, asOf)
	v.PFCFRatio = LatestPositivePFCF(inputs.Ratios, asOf)

	if latest := latestRatio(inputs.Ratios, asOf); latest != nil {
		if latest.ReturnOnEquity != 0 {
			v.ReturnOnEquity = ptr(latest.ReturnOnEquity)
		}
		if latest.DebtEquity != 0 {
			v.DebtEquity = ptr(latest.DebtEquity)
		}
		if latest.NetProfitMargin != 0 {
			v.NetProfitMargin = ptr(latest.NetProfitMargin)
		}
	}

	return v
}

// latestRatio returns the most recent ratio record at or before asOf.
func latestRatio(ratios []domain.RatioRecord, asOf time.Time) *domain.RatioRecord {
	for i := len(ratios) - 1; i >= 0; i-- {
		if !ratios[i].Date.After(asOf) {
			return &ratios[i]
		}
	}
	return nil
}

// AllNil reports whether every numeric feature of the vector is missing.
// Rows like this carry no signal and are not persisted.
func (v *Vector) AllNil() bool {
	for _, f := range []*float64{
		v.Return6M, v.Return12M, v.Volatility12M, v.MaxDrawdown12M,
		v.SMA50Delta, v.SMA200Delta, v.SectorRelReturn6M,
		v.NetDebtToEBITDA, v.EBITInterestCover,
		v.EPSCAGR3Y, v.FCFCAGR3Y, v.DividendCAGR3Y, v.DividendCAGR5Y,
		v.DividendYield, v.YieldVs5YMedian, v.PayoutRatio,
		v.PERatio, v.PFCFRatio,
		v.ReturnOnEquity, v.DebtEquity, v.NetProfitMargin,
	} {
		if f != nil {
			return false
		}
	}
	return true
}
