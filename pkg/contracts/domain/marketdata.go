// Package domain defines the market-data types shared between the
// fetcher, the feature builders and the batch runners.
package domain

import "time"

// PricePoint is a single close observation of a daily price series.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// DividendPayment is a single cash dividend observation.
type DividendPayment struct {
	Date     time.Time
	Dividend float64
}

// SplitEvent is a stock split with its ratio (e.g. 4 for a 4:1 split).
type SplitEvent struct {
	Date  time.Time
	Ratio float64
}

// RatioRecord holds the per-period financial ratios used by the
// valuation and dividend feature builders. Zero means not reported.
type RatioRecord struct {
	Date                 time.Time
	PriceEarnings        float64
	PriceToFreeCashFlows float64
	PriceToSales         float64
	PayoutRatio          float64
	DividendYield        float64
	ReturnOnEquity       float64
	DebtEquity           float64
	NetProfitMargin      float64
	FreeCashFlowPerShare float64
}

// IncomeRecord holds the income-statement lines used for EBITDA and
// interest-cover proxies.
type IncomeRecord struct {
	Date            time.Time
	IncomeBeforeTax float64
	OperatingIncome float64
	InterestExpense float64
	EPS             float64
}

// BalanceRecord holds the balance-sheet lines used for net debt.
type BalanceRecord struct {
	Date                        time.Time
	CashAndShortTermInvestments float64
	TotalDebt                   float64
}

// CashflowRecord holds the cash-flow lines used for the EBITDA proxy.
type CashflowRecord struct {
	Date                        time.Time
	DepreciationAndAmortization float64
	CapitalExpenditure          float64
}

// CompanyProfile is the static company record.
type CompanyProfile struct {
	Symbol      string
	CompanyName string
	Sector      string
	Industry    string
	Country     string
	Currency    string
	Exchange    string
	MarketCap   float64
}

// TickerInputs aggregates all per-ticker source data for one feature build.
type TickerInputs struct {
	Prices      []PricePoint
	Dividends   []DividendPayment
	Splits      []SplitEvent
	Ratios      []RatioRecord
	Income      []IncomeRecord
	Balance     []BalanceRecord
	Cashflow    []CashflowRecord
	Profile     CompanyProfile
	SectorIndex []PricePoint
}

// MacroSeries holds yearly macro indicator observations for one country,
// keyed by indicator name, then year.
type MacroSeries struct {
	Country string
	Values  map[string]map[int]float64
}

// Value returns the observation for an indicator and year, if present.
func (s *MacroSeries) Value(indicator string, year int) (float64, bool) {
	years, ok := s.Values[indicator]
	if !ok {
		return 0, false
	}
	v, ok := years[year]
	return v, ok
}
