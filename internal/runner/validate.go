package runner

import (
	"fmt"
	"math"

	"divrisk/internal/dataset"
)

// Soft validation bounds. Rows outside these ranges are flagged and
// kept, never dropped; the model training side decides what to do with
// them.
const (
	yieldMin = 0.0
	yieldMax = 0.25

	pfcfMin = 0.0
	pfcfMax = 300.0

	ndeMin = -10.0
	ndeMax = 20.0
)

// Relative jump thresholds against the previous persisted row. A jump
// this large usually means a data glitch at the provider, not a real
// repricing.
const (
	pfcfJumpFactor  = 15.0
	ndeJumpFactor   = 25.0
	yieldJumpFactor = 10.0
)

// Denominators below these magnitudes make their ratio unreliable; the
// ratio is nulled rather than flagged as out of range.
const (
	tinyFCF    = 1.0
	tinyEBITDA = 1.0
)

// Denominators carries the raw ratio denominators of a feature row for
// the stability checks. They are validation inputs only, never persisted.
type Denominators struct {
	EBITDA       *float64
	FreeCashFlow *float64
}

// ValidateRow soft-validates a feature row against its bounds and the
// previous persisted row for the same ticker, and stamps the row's
// validation columns. Ratios over tiny denominators are nulled with a
// recorded violation. The returned list is empty for clean rows.
func ValidateRow(row *dataset.TickerFeatureRow, previous *dataset.TickerFeatureRow, denoms Denominators) []string {
	var violations []string

	violations = nullifyUnstableRatios(violations, row, denoms)

	violations = appendRangeViolation(violations, "dividend_yield", row.DividendYield, yieldMin, yieldMax)
	violations = appendRangeViolation(violations, "pfcf_ratio", row.PFCFRatio, pfcfMin, pfcfMax)
	violations = appendRangeViolation(violations, "net_debt_to_ebitda", row.NetDebtToEBITDA, ndeMin, ndeMax)

	if previous != nil {
		violations = appendJumpViolation(violations, "pfcf_ratio", row.PFCFRatio, previous.PFCFRatio, pfcfJumpFactor)
		violations = appendJumpViolation(violations, "net_debt_to_ebitda", row.NetDebtToEBITDA, previous.NetDebtToEBITDA, ndeJumpFactor)
		violations = appendJumpViolation(violations, "dividend_yield", row.DividendYield, previous.DividendYield, yieldJumpFactor)
	}

	row.SetViolations(violations)
	return violations
}

// nullifyUnstableRatios nulls ratios whose denominator is too small to
// trust, recording why so the audit trail explains the missing value.
func nullifyUnstableRatios(violations []string, row *dataset.TickerFeatureRow, denoms Denominators) []string {
	if row.PFCFRatio != nil && denoms.FreeCashFlow != nil && math.Abs(*denoms.FreeCashFlow) <= tinyFCF {
		row.PFCFRatio = nil
		violations = append(violations, "pfcf_ratio_nullified_tiny_fcf")
	}
	if row.NetDebtToEBITDA != nil && denoms.EBITDA != nil && math.Abs(*denoms.EBITDA) <= tinyEBITDA {
		row.NetDebtToEBITDA = nil
		violations = append(violations, "nde_nullified_tiny_ebitda")
	}
	return violations
}

func appendRangeViolation(violations []string, name string, v *float32, min, max float64) []string {
	if v == nil {
		return violations
	}
	f := float64(*v)
	if f <= min || f >= max {
		violations = append(violations, fmt.Sprintf("%s out of range (%g, %g): %g", name, min, max, f))
	}
	return violations
}

func appendJumpViolation(violations []string, name string, current, previous *float32, factor float64) []string {
	if current == nil || previous == nil {
		return violations
	}
	cur, prev := math.Abs(float64(*current)), math.Abs(float64(*previous))
	if prev == 0 {
		return violations
	}
	ratio := cur / prev
	if ratio > factor {
		violations = append(violations, fmt.Sprintf("%s jumped %.1fx vs previous row", name, ratio))
	}
	return violations
}

// AuditContent renders the audit file body for a flagged row.
func AuditContent(ticker, asOf string, violations []string) string {
	content := fmt.Sprintf("ticker: %s\nas_of: %s\nviolations:\n", ticker, asOf)
	for _, v := range violations {
		content += "  - " + v + "\n"
	}
	return content
}
