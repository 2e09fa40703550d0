package fetcher

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "divrisk/internal/errors"
	"divrisk/pkg/contracts/domain"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPricesSortedAscending(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"KO","historical":[
			{"date":"2024-06-28","close":63.5},
			{"date":"2024-06-26","close":62.1},
			{"date":"2024-06-27","close":62.8}
		]}`))
	})

	points, err := client.Prices(context.Background(), "KO", day("2024-06-25"), day("2024-06-28"))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, day("2024-06-26"), points[0].Date)
	assert.Equal(t, day("2024-06-28"), points[2].Date)
	assert.InDelta(t, 62.1, points[0].Close, 1e-9)
}

func TestPricesNoData(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"ZZZZ","historical":[]}`))
	})

	_, err := client.Prices(context.Background(), "ZZZZ", day("2024-01-01"), day("2024-06-28"))
	require.Error(t, err)
	assert.True(t, apperrors.IsNoData(err))
}

func TestPricesGraceWindow(t *testing.T) {
	// Coverage starts a month after the requested start.
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"NEW","historical":[
			{"date":"2024-02-01","close":10.0},
			{"date":"2024-06-28","close":12.0}
		]}`))
	})

	_, err := client.Prices(context.Background(), "NEW", day("2024-01-01"), day("2024-06-28"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starts at")
}

func TestAdjustDividendsForSplits(t *testing.T) {
	dividends := []domain.DividendPayment{
		{Date: day("2020-03-15"), Dividend: 0.82},
		{Date: day("2020-09-15"), Dividend: 0.82},
		{Date: day("2021-03-15"), Dividend: 0.22},
	}
	splits := []domain.SplitEvent{
		{Date: day("2020-08-31"), Ratio: 4},
	}

	adjusted := AdjustDividendsForSplits(dividends, splits)
	assert.InDelta(t, 0.205, adjusted[0].Dividend, 1e-9)
	assert.InDelta(t, 0.82, adjusted[1].Dividend, 1e-9)
	assert.InDelta(t, 0.22, adjusted[2].Dividend, 1e-9)

	// Input is not mutated.
	assert.InDelta(t, 0.82, dividends[0].Dividend, 1e-9)
}

func TestAdjustDividendsIgnoresZeroRatio(t *testing.T) {
	dividends := []domain.DividendPayment{{Date: day("2020-03-15"), Dividend: 1.0}}
	splits := []domain.SplitEvent{{Date: day("2020-08-31"), Ratio: 0}}

	adjusted := AdjustDividendsForSplits(dividends, splits)
	assert.InDelta(t, 1.0, adjusted[0].Dividend, 1e-9)
}

func TestDividendsDropsNonPositive(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "stock_dividend"):
			w.Write([]byte(`{"symbol":"KO","historical":[
				{"date":"2024-03-15","dividend":0.485},
				{"date":"2024-06-14","dividend":0}
			]}`))
		case strings.Contains(r.URL.Path, "stock_split"):
			w.Write([]byte(`{"symbol":"KO","historical":[]}`))
		}
	})

	dividends, err := client.Dividends(context.Background(), "KO", day("2024-01-01"), day("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, dividends, 1)
	assert.InDelta(t, 0.485, dividends[0].Dividend, 1e-9)
}

func TestRatiosFilteredByWindow(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"date":"2024-12-31","priceEarningsRatio":24.1,"dividendYield":0.031},
			{"date":"2023-12-31","priceEarningsRatio":22.8,"dividendYield":0.029},
			{"date":"2018-12-31","priceEarningsRatio":30.0,"dividendYield":0.033}
		]`))
	})

	records, err := client.Ratios(context.Background(), "KO", day("2020-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, day("2023-12-31"), records[0].Date)
	assert.InDelta(t, 0.031, records[1].DividendYield, 1e-9)
}

func TestIncomeStatementsKeepsMostRecent(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "annual", r.URL.Query().Get("period"))
		w.Write([]byte(`[
			{"date":"2024-12-31","incomeBeforeTax":100,"interestExpense":5,"eps":2.5},
			{"date":"2023-12-31","incomeBeforeTax":90,"interestExpense":6,"eps":2.3},
			{"date":"2022-12-31","incomeBeforeTax":80,"interestExpense":7,"eps":2.1}
		]`))
	})

	records, err := client.IncomeStatements(context.Background(), "KO", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, day("2023-12-31"), records[0].Date)
	assert.Equal(t, day("2024-12-31"), records[1].Date)
}

func TestProfile(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"symbol":"KO","companyName":"The Coca-Cola Company",
			"sector":"Consumer Defensive","industry":"Beverages - Non-Alcoholic",
			"country":"US","currency":"USD","exchangeShortName":"NYSE","mktCap":280000000000
		}]`))
	})

	profile, err := client.Profile(context.Background(), "KO")
	require.NoError(t, err)
	assert.Equal(t, "KO", profile.Symbol)
	assert.Equal(t, "Consumer Defensive", profile.Sector)
	assert.Equal(t, "US", profile.Country)
}

func TestProfileEmpty(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.Profile(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, apperrors.IsNoData(err))
}

func TestSectorETF(t *testing.T) {
	assert.Equal(t, "XLP", SectorETF("Consumer Defensive"))
	assert.Equal(t, "XLP", SectorETF("Consumer Staples"))
	assert.Equal(t, "XLB", SectorETF("Basic Materials"))
	assert.Equal(t, "SPY", SectorETF(""))
	assert.Equal(t, "SPY", SectorETF("Shipping"))
}
