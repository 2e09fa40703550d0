package features

import (
	"math"

	"divrisk/pkg/contracts/domain"
)

// interestCoverCap bounds the EBIT interest cover for near-zero interest
// expense so the column stays in a usable range.
const interestCoverCap = 1000

// EBITDAProxy approximates EBITDA from the latest annual statements as
// income before tax plus interest expense plus depreciation and
// amortization.
func EBITDAProxy(income []domain.IncomeRecord, cashflow []domain.CashflowRecord) *float64 {
	if len(income) == 0 || len(cashflow) == 0 {
		return nil
	}
	inc := income[len(income)-1]
	cf := cashflow[len(cashflow)-1]
	return ptr(inc.IncomeBeforeTax + inc.InterestExpense + cf.DepreciationAndAmortization)
}

// NetDebtToEBITDA computes (total debt - cash) / EBITDA from the latest
// annual statements. A zero EBITDA yields no value; near-zero
// denominators produce a ratio the row validator later nullifies with
// an audit note.
func NetDebtToEBITDA(income []domain.IncomeRecord, balance []domain.BalanceRecord, cashflow []domain.CashflowRecord) *float64 {
	if len(balance) == 0 {
		return nil
	}
	ebitda := EBITDAProxy(income, cashflow)
	if ebitda == nil || *ebitda == 0 {
		return nil
	}
	bal := balance[len(balance)-1]
	netDebt := bal.TotalDebt - bal.CashAndShortTermInvestments
	return ptr(netDebt / *ebitda)
}

// EBITInterestCover computes operating income over interest expense from
// the latest annual income statement, capped at interestCoverCap. Zero
// interest expense with positive operating income returns the cap.
func EBITInterestCover(income []domain.IncomeRecord) *float64 {
	if len(income) == 0 {
		return nil
	}
	inc := income[len(income)-1]

	interest := math.Abs(inc.InterestExpense)
	if interest == 0 {
		if inc.OperatingIncome > 0 {
			return ptr(float64(interestCoverCap))
		}
		return nil
	}

	cover := inc.OperatingIncome / interest
	if cover > interestCoverCap {
		cover = interestCoverCap
	}
	return ptr(cover)
}

// FreeCashFlow derives FCF from the latest cash-flow statement lines.
// CapEx is reported negative, so the proxy is D&A-adjusted income plus
// capital expenditure.
func FreeCashFlow(income []domain.IncomeRecord, cashflow []domain.CashflowRecord) *float64 {
	if len(income) == 0 || len(cashflow) == 0 {
		return nil
	}
	inc := income[len(income)-1]
	cf := cashflow[len(cashflow)-1]
	return ptr(inc.IncomeBeforeTax + cf.DepreciationAndAmortization + cf.CapitalExpenditure)
}
