package config

// SectorToETF maps FMP sector names to the sector index ETF used for
// sector-relative return features. Unknown sectors fall back to SPY.
var SectorToETF = map[string]string{
	"Technology":             "XLK",
	"Financial Services":     "XLF",
	"Consumer Cyclical":      "XLY",
	"Consumer Defensive":     "XLP",
	"Energy":                 "XLE",
	"Healthcare":             "XLV",
	"Utilities":              "XLU",
	"Industrials":            "XLI",
	"Basic Materials":        "XLB",
	"Materials":              "XLB",
	"Real Estate":            "XLRE",
	"Communication Services": "XLC",
}

// SectorNormalization folds provider sector aliases onto the canonical names.
var SectorNormalization = map[string]string{
	"Consumer Staples":           "Consumer Defensive",
	"Financials":                 "Financial Services",
	"Communication":              "Communication Services",
	"Telecommunication Services": "Communication Services",
	"Consumer Services":          "Consumer Cyclical",
	"Basic Materials":            "Materials",
}

// AllSectors is the one-hot vocabulary for sector encoding, in column order.
var AllSectors = []string{
	"Technology",
	"Financial Services",
	"Consumer Cyclical",
	"Consumer Defensive",
	"Energy",
	"Healthcare",
	"Utilities",
	"Industrials",
	"Materials",
	"Real Estate",
	"Communication Services",
}

// DefaultSectorETF is the fallback index when a sector is unmapped.
const DefaultSectorETF = "SPY"

// MacroIndicators maps World Bank indicator codes to feature names.
var MacroIndicators = map[string]string{
	"NY.GDP.MKTP.CD": "gdp_usd",           // total output; shrinking GDP raises cut risk
	"NY.GDP.PCAP.KD": "gdp_per_capita",    // constant-USD per capita
	"FP.CPI.TOTL.ZG": "inflation_pct",     // erodes real cash flow and investor yield
	"SL.UEM.TOTL.ZS": "unemployment_pct",  // recession proxy
	"NE.EXP.GNFS.ZS": "exports_pct_gdp",   // external demand strength
	"NE.CON.PRVT.ZS": "consumption_pct_gdp", // domestic consumer demand
}
