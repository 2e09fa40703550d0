package dataset

import (
	"math"
	"strings"
	"time"

	"divrisk/internal/features"
	"divrisk/pkg/contracts/domain"
)

// DateLayout is the storage format of as_of dates.
const DateLayout = "2006-01-02"

// TickerFeatureRow is the parquet schema of one ticker feature row.
// Numeric features are optional FLOAT, absent when the source data did
// not support the computation.
type TickerFeatureRow struct {
	Ticker string `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8"`
	AsOf   string `parquet:"name=as_of, type=BYTE_ARRAY, convertedtype=UTF8"`

	Return6M          *float32 `parquet:"name=return_6m, type=FLOAT, repetitiontype=OPTIONAL"`
	Return12M         *float32 `parquet:"name=return_12m, type=FLOAT, repetitiontype=OPTIONAL"`
	Volatility12M     *float32 `parquet:"name=volatility_12m, type=FLOAT, repetitiontype=OPTIONAL"`
	MaxDrawdown12M    *float32 `parquet:"name=max_drawdown_12m, type=FLOAT, repetitiontype=OPTIONAL"`
	SMA50Delta        *float32 `parquet:"name=sma50_delta, type=FLOAT, repetitiontype=OPTIONAL"`
	SMA200Delta       *float32 `parquet:"name=sma200_delta, type=FLOAT, repetitiontype=OPTIONAL"`
	SectorRelReturn6M *float32 `parquet:"name=sector_rel_return_6m, type=FLOAT, repetitiontype=OPTIONAL"`

	NetDebtToEBITDA   *float32 `parquet:"name=net_debt_to_ebitda, type=FLOAT, repetitiontype=OPTIONAL"`
	EBITInterestCover *float32 `parquet:"name=ebit_interest_cover, type=FLOAT, repetitiontype=OPTIONAL"`

	EPSCAGR3Y      *float32 `parquet:"name=eps_cagr_3y, type=FLOAT, repetitiontype=OPTIONAL"`
	FCFCAGR3Y      *float32 `parquet:"name=fcf_cagr_3y, type=FLOAT, repetitiontype=OPTIONAL"`
	DividendCAGR3Y *float32 `parquet:"name=dividend_cagr_3y, type=FLOAT, repetitiontype=OPTIONAL"`
	DividendCAGR5Y *float32 `parquet:"name=dividend_cagr_5y, type=FLOAT, repetitiontype=OPTIONAL"`

	DividendYield   *float32 `parquet:"name=dividend_yield, type=FLOAT, repetitiontype=OPTIONAL"`
	YieldVs5YMedian *float32 `parquet:"name=yield_vs_5y_median, type=FLOAT, repetitiontype=OPTIONAL"`
	PayoutRatio     *float32 `parquet:"name=payout_ratio, type=FLOAT, repetitiontype=OPTIONAL"`
	PERatio         *float32 `parquet:"name=pe_ratio, type=FLOAT, repetitiontype=OPTIONAL"`
	PFCFRatio       *float32 `parquet:"name=pfcf_ratio, type=FLOAT, repetitiontype=OPTIONAL"`
	ReturnOnEquity  *float32 `parquet:"name=roe, type=FLOAT, repetitiontype=OPTIONAL"`
	DebtEquity      *float32 `parquet:"name=debt_equity, type=FLOAT, repetitiontype=OPTIONAL"`
	NetProfitMargin *float32 `parquet:"name=net_profit_margin, type=FLOAT, repetitiontype=OPTIONAL"`

	HasDividends    bool `parquet:"name=has_dividends, type=BOOLEAN"`
	HasFundamentals bool `parquet:"name=has_fundamentals, type=BOOLEAN"`
	HasRatios       bool `parquet:"name=has_ratios, type=BOOLEAN"`
	HasSectorIndex  bool `parquet:"name=has_sector_index, type=BOOLEAN"`

	SectorTechnology    bool `parquet:"name=sector_technology, type=BOOLEAN"`
	SectorFinancial     bool `parquet:"name=sector_financial_services, type=BOOLEAN"`
	SectorConsumerCyc   bool `parquet:"name=sector_consumer_cyclical, type=BOOLEAN"`
	SectorConsumerDef   bool `parquet:"name=sector_consumer_defensive, type=BOOLEAN"`
	SectorEnergy        bool `parquet:"name=sector_energy, type=BOOLEAN"`
	SectorHealthcare    bool `parquet:"name=sector_healthcare, type=BOOLEAN"`
	SectorUtilities     bool `parquet:"name=sector_utilities, type=BOOLEAN"`
	SectorIndustrials   bool `parquet:"name=sector_industrials, type=BOOLEAN"`
	SectorMaterials     bool `parquet:"name=sector_materials, type=BOOLEAN"`
	SectorRealEstate    bool `parquet:"name=sector_real_estate, type=BOOLEAN"`
	SectorCommunication bool `parquet:"name=sector_communication_services, type=BOOLEAN"`
	SectorOther         bool `parquet:"name=sector_other, type=BOOLEAN"`

	CountryUS    bool `parquet:"name=country_us, type=BOOLEAN"`
	CountryCA    bool `parquet:"name=country_ca, type=BOOLEAN"`
	CountryGB    bool `parquet:"name=country_gb, type=BOOLEAN"`
	CountryDE    bool `parquet:"name=country_de, type=BOOLEAN"`
	CountryFR    bool `parquet:"name=country_fr, type=BOOLEAN"`
	CountryCH    bool `parquet:"name=country_ch, type=BOOLEAN"`
	CountryNL    bool `parquet:"name=country_nl, type=BOOLEAN"`
	CountryJP    bool `parquet:"name=country_jp, type=BOOLEAN"`
	CountryAU    bool `parquet:"name=country_au, type=BOOLEAN"`
	CountryIE    bool `parquet:"name=country_ie, type=BOOLEAN"`
	CountryOther bool `parquet:"name=country_other, type=BOOLEAN"`

	ValidationStatus string `parquet:"name=validation_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Violations       string `parquet:"name=violations, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// StaticTickerRow is the parquet schema of the static company record.
type StaticTickerRow struct {
	Ticker      string  `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8"`
	CompanyName string  `parquet:"name=company_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Sector      string  `parquet:"name=sector, type=BYTE_ARRAY, convertedtype=UTF8"`
	Industry    string  `parquet:"name=industry, type=BYTE_ARRAY, convertedtype=UTF8"`
	Country     string  `parquet:"name=country, type=BYTE_ARRAY, convertedtype=UTF8"`
	Currency    string  `parquet:"name=currency, type=BYTE_ARRAY, convertedtype=UTF8"`
	Exchange    string  `parquet:"name=exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	MarketCap   float64 `parquet:"name=market_cap, type=DOUBLE"`
	UpdatedAt   string  `parquet:"name=updated_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// MacroFeatureRow is the parquet schema of one country-year macro row.
// Rows with NaN features never reach this type.
type MacroFeatureRow struct {
	Country string `parquet:"name=country, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year    int32  `parquet:"name=year, type=INT32"`

	GDPYoY             float32 `parquet:"name=gdp_yoy_backfilled, type=FLOAT"`
	GDPPerCapitaYoY    float32 `parquet:"name=gdp_pc_yoy_backfilled, type=FLOAT"`
	InflationLatest    float32 `parquet:"name=inflation_latest, type=FLOAT"`
	InflationYoY       float32 `parquet:"name=inflation_yoy, type=FLOAT"`
	UnemploymentLatest float32 `parquet:"name=unemployment_latest, type=FLOAT"`
	Consumption        float32 `parquet:"name=consumption_backfilled, type=FLOAT"`
	Exports            float32 `parquet:"name=exports_backfilled, type=FLOAT"`
}

// round2 converts a feature value to storage precision.
func round2(v *float64) *float32 {
	if v == nil {
		return nil
	}
	r := float32(math.Round(*v*100) / 100)
	return &r
}

// FromVector converts an engineered feature vector to its storage row.
// Validation columns start clean; the validator rewrites them.
func FromVector(v *features.Vector) *TickerFeatureRow {
	sectors := features.SectorOneHot(v.Sector)
	countries := features.CountryOneHot(v.Country)

	return &TickerFeatureRow{
		Ticker: v.Ticker,
		AsOf:   v.AsOf.Format(DateLayout),

		Return6M:          round2(v.Return6M),
		Return12M:         round2(v.Return12M),
		Volatility12M:     round2(v.Volatility12M),
		MaxDrawdown12M:    round2(v.MaxDrawdown12M),
		SMA50Delta:        round2(v.SMA50Delta),
		SMA200Delta:       round2(v.SMA200Delta),
		SectorRelReturn6M: round2(v.SectorRelReturn6M),

		NetDebtToEBITDA:   round2(v.NetDebtToEBITDA),
		EBITInterestCover: round2(v.EBITInterestCover),

		EPSCAGR3Y:      round2(v.EPSCAGR3Y),
		FCFCAGR3Y:      round2(v.FCFCAGR3Y),
		DividendCAGR3Y: round2(v.DividendCAGR3Y),
		DividendCAGR5Y: round2(v.DividendCAGR5Y),

		DividendYield:   round2(v.DividendYield),
		YieldVs5YMedian: round2(v.YieldVs5YMedian),
		PayoutRatio:     round2(v.PayoutRatio),
		PERatio:         round2(v.PERatio),
		PFCFRatio:       round2(v.PFCFRatio),
		ReturnOnEquity:  round2(v.ReturnOnEquity),
		DebtEquity:      round2(v.DebtEquity),
		NetProfitMargin: round2(v.NetProfitMargin),

		HasDividends:    v.HasDividends,
		HasFundamentals: v.HasFundamentals,
		HasRatios:       v.HasRatios,
		HasSectorIndex:  v.HasSectorIndex,

		SectorTechnology:    sectors["Technology"],
		SectorFinancial:     sectors["Financial Services"],
		SectorConsumerCyc:   sectors["Consumer Cyclical"],
		SectorConsumerDef:   sectors["Consumer Defensive"],
		SectorEnergy:        sectors["Energy"],
		SectorHealthcare:    sectors["Healthcare"],
		SectorUtilities:     sectors["Utilities"],
		SectorIndustrials:   sectors["Industrials"],
		SectorMaterials:     sectors["Materials"],
		SectorRealEstate:    sectors["Real Estate"],
		SectorCommunication: sectors["Communication Services"],
		SectorOther:         sectors[features.OtherBucket],

		CountryUS:    countries["US"],
		CountryCA:    countries["CA"],
		CountryGB:    countries["GB"],
		CountryDE:    countries["DE"],
		CountryFR:    countries["FR"],
		CountryCH:    countries["CH"],
		CountryNL:    countries["NL"],
		CountryJP:    countries["JP"],
		CountryAU:    countries["AU"],
		CountryIE:    countries["IE"],
		CountryOther: countries[features.OtherBucket],

		ValidationStatus: "ok",
	}
}

// FromProfile converts a company profile to its static storage row.
func FromProfile(p domain.CompanyProfile, now time.Time) *StaticTickerRow {
	return &StaticTickerRow{
		Ticker:      p.Symbol,
		CompanyName: p.CompanyName,
		Sector:      p.Sector,
		Industry:    p.Industry,
		Country:     p.Country,
		Currency:    p.Currency,
		Exchange:    p.Exchange,
		MarketCap:   p.MarketCap,
		UpdatedAt:   now.UTC().Format(time.RFC3339),
	}
}

// FromMacroVector converts a macro feature vector to its storage row.
// The caller must have rejected NaN rows already.
func FromMacroVector(m *features.MacroVector) *MacroFeatureRow {
	round := func(v float64) float32 { return float32(math.Round(v*100) / 100) }
	return &MacroFeatureRow{
		Country: m.Country,
		Year:    int32(m.Year),

		GDPYoY:             round(m.GDPYoY),
		GDPPerCapitaYoY:    round(m.GDPPerCapitaYoY),
		InflationLatest:    round(m.InflationLatest),
		InflationYoY:       round(m.InflationYoY),
		UnemploymentLatest: round(m.UnemploymentLatest),
		Consumption:        round(m.Consumption),
		Exports:            round(m.Exports),
	}
}

// SetViolations marks a row as flagged with the given violation list.
func (r *TickerFeatureRow) SetViolations(violations []string) {
	if len(violations) == 0 {
		r.ValidationStatus = "ok"
		r.Violations = ""
		return
	}
	r.ValidationStatus = "flagged"
	r.Violations = strings.Join(violations, ",")
}
