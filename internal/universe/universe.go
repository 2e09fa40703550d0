// Package universe resolves and validates the ticker list a batch run
// operates on, from configuration or a tickers file.
package universe

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"divrisk/internal/config"
)

// tickerPattern accepts plain US-style symbols, including class shares
// like BRK.B. Index symbols (^GSPC) and other decorated forms are
// rejected; those are not dividend-paying equities.
var tickerPattern = regexp.MustCompile(`^[A-Z.]{1,6}$`)

// Validate reports whether a symbol is an acceptable ticker.
func Validate(ticker string) error {
	if strings.HasPrefix(ticker, "^") {
		return fmt.Errorf("index symbol %q is not allowed", ticker)
	}
	if !tickerPattern.MatchString(ticker) {
		return fmt.Errorf("invalid ticker %q", ticker)
	}
	return nil
}

// Load resolves the ticker universe: configured tickers win, otherwise
// the tickers file is read. Symbols are uppercased, deduplicated in
// order, and validated.
func Load(cfg config.BatchConfig, tickersFile string) ([]string, error) {
	raw := cfg.Tickers
	if len(raw) == 0 {
		if tickersFile == "" {
			return nil, fmt.Errorf("no tickers configured and no tickers file set")
		}
		fromFile, err := readTickersFile(tickersFile)
		if err != nil {
			return nil, err
		}
		raw = fromFile
	}

	seen := make(map[string]bool, len(raw))
	tickers := make([]string, 0, len(raw))
	for _, t := range raw {
		ticker := strings.ToUpper(strings.TrimSpace(t))
		if ticker == "" || seen[ticker] {
			continue
		}
		if err := Validate(ticker); err != nil {
			return nil, err
		}
		seen[ticker] = true
		tickers = append(tickers, ticker)
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("ticker universe is empty")
	}
	return tickers, nil
}

// readTickersFile reads one symbol per line, skipping blanks and
// #-comments.
func readTickersFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tickers file: %w", err)
	}
	defer f.Close()

	var tickers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tickers = append(tickers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tickers file: %w", err)
	}
	return tickers, nil
}
