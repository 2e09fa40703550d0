package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"divrisk/internal/config"
	apperrors "divrisk/internal/errors"
	"divrisk/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// Raw FMP payloads. Dates arrive as strings and are parsed on conversion.

type historicalPricesPayload struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"historical"`
}

type historicalDividendsPayload struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date     string  `json:"date"`
		Dividend float64 `json:"dividend"`
	} `json:"historical"`
}

type historicalSplitsPayload struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date        string  `json:"date"`
		Numerator   float64 `json:"numerator"`
		Denominator float64 `json:"denominator"`
	} `json:"historical"`
}

type ratioPayload struct {
	Date                      string  `json:"date"`
	PriceEarningsRatio        float64 `json:"priceEarningsRatio"`
	PriceToFreeCashFlowsRatio float64 `json:"priceToFreeCashFlowsRatio"`
	PriceToSalesRatio         float64 `json:"priceToSalesRatio"`
	PayoutRatio               float64 `json:"payoutRatio"`
	DividendYield             float64 `json:"dividendYield"`
	ReturnOnEquity            float64 `json:"returnOnEquity"`
	DebtEquityRatio           float64 `json:"debtEquityRatio"`
	NetProfitMargin           float64 `json:"netProfitMargin"`
	FreeCashFlowPerShare      float64 `json:"freeCashFlowPerShare"`
}

type incomeStatementPayload struct {
	Date            string  `json:"date"`
	IncomeBeforeTax float64 `json:"incomeBeforeTax"`
	OperatingIncome float64 `json:"operatingIncome"`
	InterestExpense float64 `json:"interestExpense"`
	EPS             float64 `json:"eps"`
}

type balanceSheetPayload struct {
	Date                        string  `json:"date"`
	CashAndShortTermInvestments float64 `json:"cashAndShortTermInvestments"`
	TotalDebt                   float64 `json:"totalDebt"`
}

type cashflowStatementPayload struct {
	Date                        string  `json:"date"`
	DepreciationAndAmortization float64 `json:"depreciationAndAmortization"`
	CapitalExpenditure          float64 `json:"capitalExpenditure"`
}

type profilePayload struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	Country     string  `json:"country"`
	Currency    string  `json:"currency"`
	Exchange    string  `json:"exchangeShortName"`
	MarketCap   float64 `json:"mktCap"`
}

// Prices fetches the daily close series for a ticker between two dates.
// The result is sorted ascending by date.
func (c *Client) Prices(ctx context.Context, ticker string, from, to time.Time) ([]domain.PricePoint, error) {
	endpoint := "historical-price-full/" + ticker
	params := url.Values{}
	params.Set("from", from.Format(dateLayout))
	params.Set("to", to.Format(dateLayout))

	var payload historicalPricesPayload
	if err := c.get(ctx, endpoint, params, &payload); err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", ticker, err)
	}
	if len(payload.Historical) == 0 {
		return nil, apperrors.NoDataError(endpoint, "no price data")
	}

	points := make([]domain.PricePoint, 0, len(payload.Historical))
	for _, h := range payload.Historical {
		d, err := time.Parse(dateLayout, h.Date)
		if err != nil {
			continue
		}
		points = append(points, domain.PricePoint{Date: d, Close: h.Close})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	if err := checkGraceWindow(ticker, points, from, to, 7); err != nil {
		return nil, err
	}
	return points, nil
}

// checkGraceWindow rejects series whose coverage misses the requested
// range by more than graceDays on either end.
func checkGraceWindow(ticker string, points []domain.PricePoint, from, to time.Time, graceDays int) error {
	if len(points) == 0 {
		return nil
	}
	grace := time.Duration(graceDays) * 24 * time.Hour
	actualStart := points[0].Date
	actualEnd := points[len(points)-1].Date

	if actualStart.After(from.Add(grace)) {
		return fmt.Errorf("price data for %s starts at %s, more than %d days after requested start %s",
			ticker, actualStart.Format(dateLayout), graceDays, from.Format(dateLayout))
	}
	if actualEnd.Before(to.Add(-grace)) {
		return fmt.Errorf("price data for %s ends at %s, more than %d days before requested end %s",
			ticker, actualEnd.Format(dateLayout), graceDays, to.Format(dateLayout))
	}
	return nil
}

// Dividends fetches the dividend series for a ticker and adjusts it for
// splits so that per-share amounts are comparable across the series.
func (c *Client) Dividends(ctx context.Context, ticker string, from, to time.Time) ([]domain.DividendPayment, error) {
	endpoint := "historical-price-full/stock_dividend/" + ticker
	params := url.Values{}
	params.Set("from", from.Format(dateLayout))
	params.Set("to", to.Format(dateLayout))

	var payload historicalDividendsPayload
	if err := c.get(ctx, endpoint, params, &payload); err != nil {
		return nil, fmt.Errorf("fetch dividends for %s: %w", ticker, err)
	}
	if len(payload.Historical) == 0 {
		return nil, apperrors.NoDataError(endpoint, "no dividend data")
	}

	dividends := make([]domain.DividendPayment, 0, len(payload.Historical))
	for _, h := range payload.Historical {
		d, err := time.Parse(dateLayout, h.Date)
		if err != nil || h.Dividend <= 0 {
			continue
		}
		dividends = append(dividends, domain.DividendPayment{Date: d, Dividend: h.Dividend})
	}
	sort.Slice(dividends, func(i, j int) bool { return dividends[i].Date.Before(dividends[j].Date) })

	splits, err := c.Splits(ctx, ticker)
	if err != nil {
		if apperrors.IsNoData(err) {
			return dividends, nil
		}
		return nil, err
	}
	return AdjustDividendsForSplits(dividends, splits), nil
}

// AdjustDividendsForSplits divides pre-split dividends by the split ratio
// so the whole series is expressed in post-split shares.
func AdjustDividendsForSplits(dividends []domain.DividendPayment, splits []domain.SplitEvent) []domain.DividendPayment {
	if len(splits) == 0 {
		return dividends
	}
	adjusted := make([]domain.DividendPayment, len(dividends))
	copy(adjusted, dividends)
	for _, split := range splits {
		if split.Ratio <= 0 {
			continue
		}
		for i := range adjusted {
			if adjusted[i].Date.Before(split.Date) {
				adjusted[i].Dividend /= split.Ratio
			}
		}
	}
	return adjusted
}

// Splits fetches the split history for a ticker, sorted ascending.
func (c *Client) Splits(ctx context.Context, ticker string) ([]domain.SplitEvent, error) {
	endpoint := "historical-price-full/stock_split/" + ticker

	var payload historicalSplitsPayload
	if err := c.get(ctx, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch splits for %s: %w", ticker, err)
	}
	if len(payload.Historical) == 0 {
		return nil, apperrors.NoDataError(endpoint, "no split data")
	}

	splits := make([]domain.SplitEvent, 0, len(payload.Historical))
	for _, h := range payload.Historical {
		d, err := time.Parse(dateLayout, h.Date)
		if err != nil || h.Denominator == 0 {
			continue
		}
		splits = append(splits, domain.SplitEvent{Date: d, Ratio: h.Numerator / h.Denominator})
	}
	sort.Slice(splits, func(i, j int) bool { return splits[i].Date.Before(splits[j].Date) })
	return splits, nil
}

// Ratios fetches annual financial ratios within [from, to], ascending.
func (c *Client) Ratios(ctx context.Context, ticker string, from, to time.Time) ([]domain.RatioRecord, error) {
	endpoint := "ratios/" + ticker

	var payload []ratioPayload
	if err := c.get(ctx, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch ratios for %s: %w", ticker, err)
	}

	records := make([]domain.RatioRecord, 0, len(payload))
	for _, p := range payload {
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil || d.Before(from) || d.After(to) {
			continue
		}
		records = append(records, domain.RatioRecord{
			Date:                 d,
			PriceEarnings:        p.PriceEarningsRatio,
			PriceToFreeCashFlows: p.PriceToFreeCashFlowsRatio,
			PriceToSales:         p.PriceToSalesRatio,
			PayoutRatio:          p.PayoutRatio,
			DividendYield:        p.DividendYield,
			ReturnOnEquity:       p.ReturnOnEquity,
			DebtEquity:           p.DebtEquityRatio,
			NetProfitMargin:      p.NetProfitMargin,
			FreeCashFlowPerShare: p.FreeCashFlowPerShare,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

// IncomeStatements fetches the most recent annual income statements,
// limited to limit records, ascending by date.
func (c *Client) IncomeStatements(ctx context.Context, ticker string, limit int) ([]domain.IncomeRecord, error) {
	var payload []incomeStatementPayload
	if err := c.get(ctx, "income-statement/"+ticker, limitParams(limit), &payload); err != nil {
		return nil, fmt.Errorf("fetch income statements for %s: %w", ticker, err)
	}

	records := make([]domain.IncomeRecord, 0, len(payload))
	for _, p := range payload {
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			continue
		}
		records = append(records, domain.IncomeRecord{
			Date:            d,
			IncomeBeforeTax: p.IncomeBeforeTax,
			OperatingIncome: p.OperatingIncome,
			InterestExpense: p.InterestExpense,
			EPS:             p.EPS,
		})
	}
	return lastN(records, limit, func(r domain.IncomeRecord) time.Time { return r.Date }), nil
}

// BalanceSheets fetches the most recent annual balance sheets.
func (c *Client) BalanceSheets(ctx context.Context, ticker string, limit int) ([]domain.BalanceRecord, error) {
	var payload []balanceSheetPayload
	if err := c.get(ctx, "balance-sheet-statement/"+ticker, limitParams(limit), &payload); err != nil {
		return nil, fmt.Errorf("fetch balance sheets for %s: %w", ticker, err)
	}

	records := make([]domain.BalanceRecord, 0, len(payload))
	for _, p := range payload {
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			continue
		}
		records = append(records, domain.BalanceRecord{
			Date:                        d,
			CashAndShortTermInvestments: p.CashAndShortTermInvestments,
			TotalDebt:                   p.TotalDebt,
		})
	}
	return lastN(records, limit, func(r domain.BalanceRecord) time.Time { return r.Date }), nil
}

// CashflowStatements fetches the most recent annual cash-flow statements.
func (c *Client) CashflowStatements(ctx context.Context, ticker string, limit int) ([]domain.CashflowRecord, error) {
	var payload []cashflowStatementPayload
	if err := c.get(ctx, "cash-flow-statement/"+ticker, limitParams(limit), &payload); err != nil {
		return nil, fmt.Errorf("fetch cash-flow statements for %s: %w", ticker, err)
	}

	records := make([]domain.CashflowRecord, 0, len(payload))
	for _, p := range payload {
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			continue
		}
		records = append(records, domain.CashflowRecord{
			Date:                        d,
			DepreciationAndAmortization: p.DepreciationAndAmortization,
			CapitalExpenditure:          p.CapitalExpenditure,
		})
	}
	return lastN(records, limit, func(r domain.CashflowRecord) time.Time { return r.Date }), nil
}

// Profile fetches the company profile for a ticker.
func (c *Client) Profile(ctx context.Context, ticker string) (domain.CompanyProfile, error) {
	endpoint := "profile/" + ticker

	var payload []profilePayload
	if err := c.get(ctx, endpoint, nil, &payload); err != nil {
		return domain.CompanyProfile{}, fmt.Errorf("fetch profile for %s: %w", ticker, err)
	}
	if len(payload) == 0 {
		return domain.CompanyProfile{}, apperrors.NoDataError(endpoint, "no profile data")
	}

	p := payload[0]
	return domain.CompanyProfile{
		Symbol:      p.Symbol,
		CompanyName: p.CompanyName,
		Sector:      p.Sector,
		Industry:    p.Industry,
		Country:     p.Country,
		Currency:    p.Currency,
		Exchange:    p.Exchange,
		MarketCap:   p.MarketCap,
	}, nil
}

// SectorIndex resolves the sector ETF for a profile and fetches its price
// series. Unknown or unmapped sectors fall back to SPY.
func (c *Client) SectorIndex(ctx context.Context, profile domain.CompanyProfile, from, to time.Time) ([]domain.PricePoint, error) {
	etf := SectorETF(profile.Sector)
	return c.Prices(ctx, etf, from, to)
}

// SectorETF maps a sector name to its index ETF, normalizing aliases.
func SectorETF(sector string) string {
	if canonical, ok := config.SectorNormalization[sector]; ok {
		sector = canonical
	}
	if etf, ok := config.SectorToETF[sector]; ok {
		return etf
	}
	return config.DefaultSectorETF
}

func limitParams(limit int) url.Values {
	params := url.Values{}
	params.Set("period", "annual")
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	return params
}

// lastN keeps the most recent n records and returns them ascending.
func lastN[T any](records []T, n int, dateOf func(T) time.Time) []T {
	sort.Slice(records, func(i, j int) bool { return dateOf(records[i]).Before(dateOf(records[j])) })
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records
}
