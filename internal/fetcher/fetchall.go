package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"divrisk/internal/config"
	apperrors "divrisk/internal/errors"
	"divrisk/pkg/contracts/domain"
)

// TickerFetcher bundles all source fetches needed to build one ticker
// feature row.
type TickerFetcher struct {
	client *Client
	batch  config.BatchConfig
	logger *slog.Logger
}

// NewTickerFetcher wraps an FMP client with the batch windows.
func NewTickerFetcher(client *Client, batch config.BatchConfig, logger *slog.Logger) *TickerFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickerFetcher{client: client, batch: batch, logger: logger}
}

// FetchAll gathers every input series for a ticker as of asOf. Prices
// and the profile are required; the other series are optional and their
// absence is reflected by empty slices, surfaced downstream as missing
// features.
func (f *TickerFetcher) FetchAll(ctx context.Context, ticker string, asOf time.Time) (*domain.TickerInputs, error) {
	return f.FetchWindow(ctx, ticker, asOf, asOf)
}

// FetchWindow gathers input series wide enough to build feature rows
// for every as-of date between earliest and latest, with one set of
// provider requests per ticker instead of one per quarter.
func (f *TickerFetcher) FetchWindow(ctx context.Context, ticker string, earliest, latest time.Time) (*domain.TickerInputs, error) {
	inputs := &domain.TickerInputs{}

	priceFrom, _ := PriceWindow(earliest)
	priceTo := latest
	prices, err := f.client.Prices(ctx, ticker, priceFrom, priceTo)
	if err != nil {
		return nil, fmt.Errorf("prices are required for %s: %w", ticker, err)
	}
	inputs.Prices = prices

	profile, err := f.client.Profile(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("profile is required for %s: %w", ticker, err)
	}
	inputs.Profile = profile

	divFrom, _ := DividendWindow(earliest, f.batch.DividendLookback)
	inputs.Dividends, err = f.optionalDividends(ctx, ticker, divFrom, latest)
	if err != nil {
		return nil, err
	}

	inputs.Splits, err = f.optionalSplits(ctx, ticker)
	if err != nil {
		return nil, err
	}

	fundFrom, _ := FundamentalWindow(earliest, f.batch.FundamentalYears)
	inputs.Ratios, err = f.optionalRatios(ctx, ticker, fundFrom, latest)
	if err != nil {
		return nil, err
	}

	limit := f.batch.FundamentalYears + 1 + yearsBetween(earliest, latest)
	if inputs.Income, err = f.optionalIncome(ctx, ticker, limit); err != nil {
		return nil, err
	}
	if inputs.Balance, err = f.optionalBalance(ctx, ticker, limit); err != nil {
		return nil, err
	}
	if inputs.Cashflow, err = f.optionalCashflow(ctx, ticker, limit); err != nil {
		return nil, err
	}

	sectorIndex, err := f.client.SectorIndex(ctx, profile, priceFrom, priceTo)
	if err != nil {
		if apperrors.IsHard(err) || apperrors.IsRateLimit(err) {
			return nil, err
		}
		f.logger.Warn("sector index unavailable, skipping sector-relative feature",
			slog.String("ticker", ticker),
			slog.String("sector", profile.Sector),
			slog.String("error", err.Error()))
	} else {
		inputs.SectorIndex = sectorIndex
	}

	return inputs, nil
}

func yearsBetween(earliest, latest time.Time) int {
	years := latest.Year() - earliest.Year()
	if years < 0 {
		return 0
	}
	return years
}

// optional fetch helpers tolerate no-data but propagate hard errors and
// rate limits so the runner can react to them.

func (f *TickerFetcher) optionalDividends(ctx context.Context, ticker string, from, to time.Time) ([]domain.DividendPayment, error) {
	dividends, err := f.client.Dividends(ctx, ticker, from, to)
	return optional(ticker, "dividends", dividends, err, f.logger)
}

func (f *TickerFetcher) optionalSplits(ctx context.Context, ticker string) ([]domain.SplitEvent, error) {
	splits, err := f.client.Splits(ctx, ticker)
	return optional(ticker, "splits", splits, err, f.logger)
}

func (f *TickerFetcher) optionalRatios(ctx context.Context, ticker string, from, to time.Time) ([]domain.RatioRecord, error) {
	ratios, err := f.client.Ratios(ctx, ticker, from, to)
	return optional(ticker, "ratios", ratios, err, f.logger)
}

func (f *TickerFetcher) optionalIncome(ctx context.Context, ticker string, limit int) ([]domain.IncomeRecord, error) {
	income, err := f.client.IncomeStatements(ctx, ticker, limit)
	return optional(ticker, "income statements", income, err, f.logger)
}

func (f *TickerFetcher) optionalBalance(ctx context.Context, ticker string, limit int) ([]domain.BalanceRecord, error) {
	balance, err := f.client.BalanceSheets(ctx, ticker, limit)
	return optional(ticker, "balance sheets", balance, err, f.logger)
}

func (f *TickerFetcher) optionalCashflow(ctx context.Context, ticker string, limit int) ([]domain.CashflowRecord, error) {
	cashflow, err := f.client.CashflowStatements(ctx, ticker, limit)
	return optional(ticker, "cash-flow statements", cashflow, err, f.logger)
}

func optional[T any](ticker, what string, records []T, err error, logger *slog.Logger) ([]T, error) {
	if err == nil {
		return records, nil
	}
	if apperrors.IsNoData(err) {
		logger.Debug("optional series missing",
			slog.String("ticker", ticker),
			slog.String("series", what))
		return nil, nil
	}
	return nil, err
}
