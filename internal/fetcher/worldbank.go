package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"divrisk/internal/config"
	apperrors "divrisk/internal/errors"
	"divrisk/pkg/contracts/domain"
)

// countryCodes maps the country names used in configuration and company
// profiles to World Bank ISO codes.
var countryCodes = map[string]string{
	"United States":  "USA",
	"US":             "USA",
	"USA":            "USA",
	"Canada":         "CAN",
	"United Kingdom": "GBR",
	"UK":             "GBR",
	"Germany":        "DEU",
	"France":         "FRA",
	"Switzerland":    "CHE",
	"Netherlands":    "NLD",
	"Japan":          "JPN",
	"China":          "CHN",
	"Australia":      "AUS",
	"Ireland":        "IRL",
	"Spain":          "ESP",
	"Italy":          "ITA",
	"Sweden":         "SWE",
	"Denmark":        "DNK",
	"Norway":         "NOR",
	"Finland":        "FIN",
	"Belgium":        "BEL",
	"Brazil":         "BRA",
	"India":          "IND",
	"South Korea":    "KOR",
	"Taiwan":         "TWN",
	"Mexico":         "MEX",
	"Israel":         "ISR",
	"Singapore":      "SGP",
	"Hong Kong":      "HKG",
}

// CountryCode resolves a country name to its World Bank code.
func CountryCode(country string) (string, bool) {
	code, ok := countryCodes[country]
	return code, ok
}

// WorldBankClient fetches yearly macro indicator series from the
// World Bank open data API.
type WorldBankClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWorldBankClient creates a World Bank client from configuration.
func NewWorldBankClient(cfg config.MacroConfig, logger *slog.Logger) *WorldBankClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorldBankClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// wbObservation is one entry of a World Bank indicator response. The
// value is null for years without data.
type wbObservation struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Indicator fetches one indicator series for a country code, keyed by year.
// Years with null values are omitted.
func (c *WorldBankClient) Indicator(ctx context.Context, countryCode, indicator string, startYear, endYear int) (map[int]float64, error) {
	endpoint := fmt.Sprintf("country/%s/indicator/%s", countryCode, indicator)

	params := url.Values{}
	params.Set("format", "json")
	params.Set("per_page", "200")
	params.Set("date", fmt.Sprintf("%d:%d", startYear, endYear))

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewFetchError(apperrors.KindRateLimit, resp.StatusCode, endpoint, "too many requests")
	}
	if resp.StatusCode >= 500 {
		return nil, apperrors.NewFetchError(apperrors.KindServer, resp.StatusCode, endpoint, "server error")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	// Responses are a two-element array: [metadata, observations].
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s envelope: %w", endpoint, err)
	}
	if len(envelope) < 2 {
		return nil, apperrors.NoDataError(endpoint, "response missing observations")
	}

	var observations []wbObservation
	if err := json.Unmarshal(envelope[1], &observations); err != nil {
		return nil, fmt.Errorf("decode %s observations: %w", endpoint, err)
	}

	values := make(map[int]float64, len(observations))
	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		year, err := strconv.Atoi(obs.Date)
		if err != nil {
			continue
		}
		values[year] = *obs.Value
	}
	if len(values) == 0 {
		return nil, apperrors.NoDataError(endpoint, "no observations with values")
	}
	return values, nil
}

// CountrySeries fetches all configured macro indicators for one country.
// Indicators that return no data are logged and skipped.
func (c *WorldBankClient) CountrySeries(ctx context.Context, country string, startYear, endYear int) (*domain.MacroSeries, error) {
	code, ok := CountryCode(country)
	if !ok {
		return nil, fmt.Errorf("no World Bank code mapped for country %q", country)
	}

	series := &domain.MacroSeries{
		Country: country,
		Values:  make(map[string]map[int]float64, len(config.MacroIndicators)),
	}

	for indicator, name := range config.MacroIndicators {
		values, err := c.Indicator(ctx, code, indicator, startYear, endYear)
		if err != nil {
			if apperrors.IsNoData(err) {
				c.logger.Warn("macro indicator has no data",
					slog.String("country", country),
					slog.String("indicator", indicator))
				continue
			}
			return nil, fmt.Errorf("fetch %s for %s: %w", indicator, country, err)
		}
		series.Values[name] = values
	}

	if len(series.Values) == 0 {
		return nil, fmt.Errorf("no macro data available for country %q", country)
	}
	return series, nil
}
