package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"divrisk/internal/config"
)

// Store persists feature rows under the features_data layout.
type Store struct {
	paths *config.Paths
}

// NewStore creates a store over the resolved path layout.
func NewStore(paths *config.Paths) *Store {
	return &Store{paths: paths}
}

// ExistingAsOfDates returns the as_of dates already persisted for a
// ticker. A missing file yields an empty set.
func (s *Store) ExistingAsOfDates(ticker string) (map[string]bool, error) {
	rows, err := readParquet[TickerFeatureRow](s.paths.TickerParquetPath(ticker))
	if err != nil {
		return nil, err
	}
	dates := make(map[string]bool, len(rows))
	for _, r := range rows {
		dates[r.AsOf] = true
	}
	return dates, nil
}

// AppendTickerRows merges new rows into the ticker's feature file,
// deduplicating by as_of with new rows winning, and rewrites the file
// atomically. In overwrite mode the existing file is replaced outright.
func (s *Store) AppendTickerRows(ticker string, rows []*TickerFeatureRow, overwrite bool) error {
	if len(rows) == 0 {
		return nil
	}
	path := s.paths.TickerParquetPath(ticker)

	var merged []TickerFeatureRow
	if !overwrite {
		existing, err := readParquet[TickerFeatureRow](path)
		if err != nil {
			return err
		}
		incoming := make(map[string]bool, len(rows))
		for _, r := range rows {
			incoming[r.AsOf] = true
		}
		for _, r := range existing {
			if !incoming[r.AsOf] {
				merged = append(merged, r)
			}
		}
	}
	for _, r := range rows {
		merged = append(merged, *r)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].AsOf < merged[j].AsOf })
	return writeParquet(path, merged)
}

// ReadTickerRows reads all persisted feature rows for a ticker, ascending
// by as_of.
func (s *Store) ReadTickerRows(ticker string) ([]TickerFeatureRow, error) {
	rows, err := readParquet[TickerFeatureRow](s.paths.TickerParquetPath(ticker))
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AsOf < rows[j].AsOf })
	return rows, nil
}

// ListTickers returns the tickers that have a feature file.
func (s *Store) ListTickers() ([]string, error) {
	entries, err := os.ReadDir(s.paths.TickersHistoryDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list ticker files: %w", err)
	}

	var tickers []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(tickers)
	return tickers, nil
}

// UpsertStaticInfo merges company records into the shared static info
// file, deduplicating by ticker with new records winning.
func (s *Store) UpsertStaticInfo(rows []*StaticTickerRow) error {
	if len(rows) == 0 {
		return nil
	}
	path := s.paths.StaticInfoParquet

	existing, err := readParquet[StaticTickerRow](path)
	if err != nil {
		return err
	}

	incoming := make(map[string]bool, len(rows))
	for _, r := range rows {
		incoming[r.Ticker] = true
	}

	var merged []StaticTickerRow
	for _, r := range existing {
		if !incoming[r.Ticker] {
			merged = append(merged, r)
		}
	}
	for _, r := range rows {
		merged = append(merged, *r)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Ticker < merged[j].Ticker })
	return writeParquet(path, merged)
}

// ReadStaticInfo reads the full static company table.
func (s *Store) ReadStaticInfo() ([]StaticTickerRow, error) {
	return readParquet[StaticTickerRow](s.paths.StaticInfoParquet)
}

// WriteMacro replaces the macro feature file for a country slug.
func (s *Store) WriteMacro(countrySlug string, rows []*MacroFeatureRow) error {
	flat := make([]MacroFeatureRow, len(rows))
	for i, r := range rows {
		flat[i] = *r
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].Year < flat[j].Year })
	return writeParquet(s.paths.MacroParquetPath(countrySlug), flat)
}

// ReadMacro reads the macro feature file for a country slug.
func (s *Store) ReadMacro(countrySlug string) ([]MacroFeatureRow, error) {
	return readParquet[MacroFeatureRow](s.paths.MacroParquetPath(countrySlug))
}

// WriteInvalidMacro records rejected macro rows under _invalid so bad
// source data stays inspectable without polluting the feature tables.
func (s *Store) WriteInvalidMacro(countrySlug string, description string) error {
	if err := os.MkdirAll(s.paths.InvalidDir, 0o755); err != nil {
		return fmt.Errorf("create invalid directory: %w", err)
	}
	path := filepath.Join(s.paths.InvalidDir, countrySlug+"_macro.txt")
	return os.WriteFile(path, []byte(description), 0o644)
}

// WriteAudit records the violations of a flagged row as
// _audit/<ticker>_<as_of>.txt.
func (s *Store) WriteAudit(ticker, asOf, content string) error {
	if err := os.MkdirAll(s.paths.AuditDir, 0o755); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}
	path := filepath.Join(s.paths.AuditDir, fmt.Sprintf("%s_%s.txt", ticker, asOf))
	return os.WriteFile(path, []byte(content), 0o644)
}

// CountrySlug converts a country name to its file slug.
func CountrySlug(country string) string {
	slug := strings.ToLower(country)
	slug = strings.ReplaceAll(slug, " ", "_")
	return slug
}
