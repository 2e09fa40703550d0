package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divrisk/pkg/contracts/domain"
)

func TestCAGR(t *testing.T) {
	g := CAGR(100, 121, 2)
	require.NotNil(t, g)
	assert.InDelta(t, 0.10, *g, 1e-9)
}

func TestCAGRNonPositiveEndpoints(t *testing.T) {
	assert.Nil(t, CAGR(-5, 100, 3))
	assert.Nil(t, CAGR(100, 0, 3))
	assert.Nil(t, CAGR(100, 120, 0))
}

func TestEPSCAGRWithGraceWindow(t *testing.T) {
	// Fiscal years ending late September still match calendar targets.
	income := []domain.IncomeRecord{
		{Date: day("2020-09-26"), EPS: 3.28},
		{Date: day("2021-09-25"), EPS: 5.61},
		{Date: day("2022-09-24"), EPS: 6.11},
		{Date: day("2023-09-30"), EPS: 6.13},
	}

	g := EPSCAGR(income, day("2023-09-30"), 3)
	require.NotNil(t, g)
	expected := CAGR(3.28, 6.13, 3)
	assert.InDelta(t, *expected, *g, 1e-9)
}

func TestEPSCAGRFallsBackWhenStatementsLag(t *testing.T) {
	// As-of mid-year: no statement near asOf, but the prior year end is
	// inside the fallback window.
	income := []domain.IncomeRecord{
		{Date: day("2020-12-31"), EPS: 2.0},
		{Date: day("2021-12-31"), EPS: 2.2},
		{Date: day("2022-12-31"), EPS: 2.42},
		{Date: day("2023-12-31"), EPS: 2.662},
	}

	g := EPSCAGR(income, day("2024-06-30"), 3)
	require.NotNil(t, g)
	expected := CAGR(2.0, 2.662, 3)
	assert.InDelta(t, *expected, *g, 1e-9)
}

func TestEPSCAGRMissingStart(t *testing.T) {
	income := []domain.IncomeRecord{{Date: day("2023-12-31"), EPS: 2.5}}
	assert.Nil(t, EPSCAGR(income, day("2024-06-30"), 3))
}

func TestTrailingDividend(t *testing.T) {
	dividends := []domain.DividendPayment{
		{Date: day("2023-03-15"), Dividend: 0.40},
		{Date: day("2023-09-15"), Dividend: 0.40},
		{Date: day("2024-03-15"), Dividend: 0.44},
		{Date: day("2024-06-14"), Dividend: 0.44},
	}

	sum, ok := TrailingDividend(dividends, day("2024-06-30"))
	require.True(t, ok)
	assert.InDelta(t, 0.40+0.44+0.44, sum, 1e-9)
}

func TestTrailingDividendEmptyWindow(t *testing.T) {
	dividends := []domain.DividendPayment{{Date: day("2020-03-15"), Dividend: 0.40}}
	_, ok := TrailingDividend(dividends, day("2024-06-30"))
	assert.False(t, ok)
}

func TestDividendCAGR(t *testing.T) {
	// 1.00/year three years ago growing to 1.331/year: 10% CAGR.
	dividends := []domain.DividendPayment{
		{Date: day("2021-03-15"), Dividend: 0.50},
		{Date: day("2021-06-15"), Dividend: 0.50},
		{Date: day("2024-03-15"), Dividend: 0.6655},
		{Date: day("2024-06-14"), Dividend: 0.6655},
	}

	g := DividendCAGR(dividends, day("2024-06-30"), 3)
	require.NotNil(t, g)
	assert.InDelta(t, 0.10, *g, 1e-6)
}

func TestDividendCAGRNewPayer(t *testing.T) {
	dividends := []domain.DividendPayment{{Date: day("2024-03-15"), Dividend: 0.50}}
	assert.Nil(t, DividendCAGR(dividends, day("2024-06-30"), 3))
}

func TestFCFPerShareCAGR(t *testing.T) {
	ratios := []domain.RatioRecord{
		{Date: day("2020-12-31"), FreeCashFlowPerShare: 4.0},
		{Date: day("2021-12-31"), FreeCashFlowPerShare: 4.4},
		{Date: day("2022-12-31"), FreeCashFlowPerShare: 4.84},
		{Date: day("2023-12-31"), FreeCashFlowPerShare: 5.324},
	}

	g := FCFPerShareCAGR(ratios, day("2023-12-31"), 3)
	require.NotNil(t, g)
	assert.InDelta(t, 0.10, *g, 1e-9)
}
