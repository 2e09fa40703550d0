// Package exporter renders the merged feature table as CSV and as an
// Excel workbook for manual review.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"

	"divrisk/internal/dataset"
)

// ReportRow is one line of the merged feature report: the dynamic
// feature row joined with the ticker's static record.
type ReportRow struct {
	Feature dataset.TickerFeatureRow
	Static  dataset.StaticTickerRow
}

// Exporter builds feature reports from the store.
type Exporter struct {
	store  *dataset.Store
	logger *slog.Logger
}

// New creates an exporter over a store.
func New(store *dataset.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, logger: logger}
}

// MergedRows joins every persisted feature row with its static record,
// ordered by ticker then as_of. Tickers without a static record keep an
// empty static side.
func (e *Exporter) MergedRows() ([]ReportRow, error) {
	static, err := e.store.ReadStaticInfo()
	if err != nil {
		return nil, fmt.Errorf("read static info: %w", err)
	}
	staticByTicker := make(map[string]dataset.StaticTickerRow, len(static))
	for _, s := range static {
		staticByTicker[s.Ticker] = s
	}

	tickers, err := e.store.ListTickers()
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	sort.Strings(tickers)

	var merged []ReportRow
	for _, ticker := range tickers {
		rows, err := e.store.ReadTickerRows(ticker)
		if err != nil {
			return nil, fmt.Errorf("read rows for %s: %w", ticker, err)
		}
		for _, row := range rows {
			merged = append(merged, ReportRow{
				Feature: row,
				Static:  staticByTicker[ticker],
			})
		}
	}
	return merged, nil
}

// csvHeader lists the exported columns in order.
var csvHeader = []string{
	"ticker", "as_of", "company_name", "sector", "country",
	"return_6m", "return_12m", "volatility_12m", "max_drawdown_12m",
	"sma50_delta", "sma200_delta", "sector_rel_return_6m",
	"net_debt_to_ebitda", "ebit_interest_cover",
	"eps_cagr_3y", "fcf_cagr_3y", "dividend_cagr_3y", "dividend_cagr_5y",
	"dividend_yield", "yield_vs_5y_median", "payout_ratio",
	"pe_ratio", "pfcf_ratio", "roe", "debt_equity", "net_profit_margin",
	"validation_status", "violations",
}

func (r ReportRow) record() []string {
	f := r.Feature
	return []string{
		f.Ticker, f.AsOf, r.Static.CompanyName, r.Static.Sector, r.Static.Country,
		cell(f.Return6M), cell(f.Return12M), cell(f.Volatility12M), cell(f.MaxDrawdown12M),
		cell(f.SMA50Delta), cell(f.SMA200Delta), cell(f.SectorRelReturn6M),
		cell(f.NetDebtToEBITDA), cell(f.EBITInterestCover),
		cell(f.EPSCAGR3Y), cell(f.FCFCAGR3Y), cell(f.DividendCAGR3Y), cell(f.DividendCAGR5Y),
		cell(f.DividendYield), cell(f.YieldVs5YMedian), cell(f.PayoutRatio),
		cell(f.PERatio), cell(f.PFCFRatio), cell(f.ReturnOnEquity), cell(f.DebtEquity), cell(f.NetProfitMargin),
		f.ValidationStatus, f.Violations,
	}
}

func cell(v *float32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*v), 'f', -1, 32)
}

// WriteCSV streams the merged feature table as CSV.
func (e *Exporter) WriteCSV(w io.Writer) error {
	rows, err := e.MergedRows()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.record()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Excel sheet layout: one sheet per feature group plus the static table.
var excelSheets = []struct {
	name    string
	columns []string
}{
	{"Price", []string{"ticker", "as_of", "return_6m", "return_12m", "volatility_12m", "max_drawdown_12m", "sma50_delta", "sma200_delta", "sector_rel_return_6m"}},
	{"Fundamentals", []string{"ticker", "as_of", "net_debt_to_ebitda", "ebit_interest_cover", "roe", "debt_equity", "net_profit_margin"}},
	{"Growth", []string{"ticker", "as_of", "eps_cagr_3y", "fcf_cagr_3y", "dividend_cagr_3y", "dividend_cagr_5y"}},
	{"Dividend", []string{"ticker", "as_of", "dividend_yield", "yield_vs_5y_median", "payout_ratio", "pe_ratio", "pfcf_ratio"}},
	{"Validation", []string{"ticker", "as_of", "validation_status", "violations"}},
}

// WriteExcel writes the feature workbook to path, one sheet per feature
// group.
func (e *Exporter) WriteExcel(path string) error {
	rows, err := e.MergedRows()
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer file.Close()

	// Column name -> index into the CSV record layout.
	colIndex := make(map[string]int, len(csvHeader))
	for i, name := range csvHeader {
		colIndex[name] = i
	}

	for si, sheet := range excelSheets {
		if si == 0 {
			if err := file.SetSheetName("Sheet1", sheet.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := file.NewSheet(sheet.name); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet.name, err)
			}
		}

		header := make([]interface{}, len(sheet.columns))
		for i, c := range sheet.columns {
			header[i] = c
		}
		if err := file.SetSheetRow(sheet.name, "A1", &header); err != nil {
			return fmt.Errorf("write header for %s: %w", sheet.name, err)
		}

		for ri, row := range rows {
			record := row.record()
			values := make([]interface{}, len(sheet.columns))
			for ci, col := range sheet.columns {
				values[ci] = record[colIndex[col]]
			}
			cellRef, err := excelize.CoordinatesToCellName(1, ri+2)
			if err != nil {
				return fmt.Errorf("cell reference: %w", err)
			}
			if err := file.SetSheetRow(sheet.name, cellRef, &values); err != nil {
				return fmt.Errorf("write row for %s: %w", sheet.name, err)
			}
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	e.logger.Info("excel report written",
		slog.String("path", path),
		slog.Int("rows", len(rows)))
	return nil
}
