package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divrisk/pkg/contracts/domain"
)

func fullInputs() *domain.TickerInputs {
	return &domain.TickerInputs{
		Prices: flatSeries("2024-06-30", 400, 60),
		Dividends: []domain.DividendPayment{
			{Date: day("2021-03-15"), Dividend: 0.42},
			{Date: day("2023-09-15"), Dividend: 0.46},
			{Date: day("2024-03-15"), Dividend: 0.485},
		},
		Ratios: []domain.RatioRecord{
			{Date: day("2022-12-31"), PriceEarnings: 24, PriceToFreeCashFlows: 26, PayoutRatio: 0.7, DividendYield: 0.03, FreeCashFlowPerShare: 2.2, ReturnOnEquity: 0.4, DebtEquity: 1.6, NetProfitMargin: 0.22},
			{Date: day("2023-12-31"), PriceEarnings: 23, PriceToFreeCashFlows: 25, PayoutRatio: 0.72, DividendYield: 0.031, FreeCashFlowPerShare: 2.4, ReturnOnEquity: 0.42, DebtEquity: 1.5, NetProfitMargin: 0.23},
		},
		Income: []domain.IncomeRecord{
			{Date: day("2020-12-31"), IncomeBeforeTax: 9000, OperatingIncome: 9500, InterestExpense: 700, EPS: 1.8},
			{Date: day("2023-12-31"), IncomeBeforeTax: 12000, OperatingIncome: 12500, InterestExpense: 800, EPS: 2.47},
		},
		Balance: []domain.BalanceRecord{
			{Date: day("2023-12-31"), TotalDebt: 40000, CashAndShortTermInvestments: 12000},
		},
		Cashflow: []domain.CashflowRecord{
			{Date: day("2023-12-31"), DepreciationAndAmortization: 1200, CapitalExpenditure: -1800},
		},
		Profile: domain.CompanyProfile{
			Symbol: "KO", Sector: "Consumer Defensive", Country: "US",
		},
		SectorIndex: flatSeries("2024-06-30", 400, 80),
	}
}

func TestBuildFullVector(t *testing.T) {
	v := Build("KO", day("2024-06-30"), fullInputs(), BuildOptions{DividendLookbackYears: 5})

	assert.Equal(t, "KO", v.Ticker)
	assert.Equal(t, "Consumer Defensive", v.Sector)
	assert.Equal(t, "US", v.Country)

	require.NotNil(t, v.Return12M)
	assert.InDelta(t, 0, *v.Return12M, 1e-9)
	require.NotNil(t, v.Volatility12M)
	require.NotNil(t, v.SMA200Delta)
	require.NotNil(t, v.SectorRelReturn6M)
	assert.InDelta(t, 0, *v.SectorRelReturn6M, 1e-9)

	require.NotNil(t, v.NetDebtToEBITDA)
	assert.InDelta(t, 28000.0/14000.0, *v.NetDebtToEBITDA, 1e-9)
	require.NotNil(t, v.EBITInterestCover)
	assert.InDelta(t, 12500.0/800.0, *v.EBITInterestCover, 1e-9)
	require.NotNil(t, v.EBITDA)
	assert.InDelta(t, 14000, *v.EBITDA, 1e-9)
	require.NotNil(t, v.FreeCashFlow)
	assert.InDelta(t, 11400, *v.FreeCashFlow, 1e-9)

	require.NotNil(t, v.EPSCAGR3Y)
	require.NotNil(t, v.DividendYield)
	require.NotNil(t, v.PERatio)
	assert.InDelta(t, 23, *v.PERatio, 1e-9)
	require.NotNil(t, v.ReturnOnEquity)
	assert.InDelta(t, 0.42, *v.ReturnOnEquity, 1e-9)

	assert.True(t, v.HasDividends)
	assert.True(t, v.HasFundamentals)
	assert.True(t, v.HasRatios)
	assert.True(t, v.HasSectorIndex)
	assert.False(t, v.AllNil())
}

func TestBuildDegradesGracefully(t *testing.T) {
	inputs := &domain.TickerInputs{
		Prices:  flatSeries("2024-06-30", 400, 60),
		Profile: domain.CompanyProfile{Symbol: "NEW", Sector: "Shipping", Country: "GR"},
	}

	v := Build("NEW", day("2024-06-30"), inputs, BuildOptions{})

	assert.False(t, v.HasDividends)
	assert.False(t, v.HasFundamentals)
	assert.False(t, v.HasRatios)
	assert.False(t, v.HasSectorIndex)

	assert.Nil(t, v.DividendYield)
	assert.Nil(t, v.NetDebtToEBITDA)
	assert.Nil(t, v.PERatio)
	assert.Nil(t, v.SectorRelReturn6M)

	// Price features still compute.
	require.NotNil(t, v.Return12M)
	assert.False(t, v.AllNil())
}

func TestAllNil(t *testing.T) {
	v := &Vector{Ticker: "X"}
	assert.True(t, v.AllNil())

	v.PERatio = ptr(20)
	assert.False(t, v.AllNil())
}
