package features

import (
	"math"
	"sort"

	"divrisk/pkg/contracts/domain"
)

// macroBackfillYears bounds how far back a missing yearly observation is
// carried forward from.
const macroBackfillYears = 3

// MacroVector is one engineered macro feature row for a country and year.
// NaN marks features that could not be computed; such rows are rejected
// by the macro runner rather than persisted.
type MacroVector struct {
	Country string
	Year    int

	GDPYoY             float64
	GDPPerCapitaYoY    float64
	InflationLatest    float64
	InflationYoY       float64
	UnemploymentLatest float64
	Consumption        float64
	Exports            float64
}

// HasNaN reports whether any feature of the row is NaN.
func (m *MacroVector) HasNaN() bool {
	for _, v := range []float64{
		m.GDPYoY, m.GDPPerCapitaYoY,
		m.InflationLatest, m.InflationYoY,
		m.UnemploymentLatest, m.Consumption, m.Exports,
	} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// backfilled returns the observation for year, falling back to the most
// recent earlier year within the backfill window.
func backfilled(values map[int]float64, year int) (float64, bool) {
	for y := year; y > year-macroBackfillYears; y-- {
		if v, ok := values[y]; ok {
			return v, true
		}
	}
	return 0, false
}

// yoy computes the relative year-over-year change of a backfilled
// level series (GDP and the like).
func yoy(values map[int]float64, year int) float64 {
	current, okC := backfilled(values, year)
	previous, okP := backfilled(values, year-1)
	if !okC || !okP || previous == 0 {
		return math.NaN()
	}
	return current/previous - 1
}

// yoyPoints computes the year-over-year change of a series already
// expressed in percent, as the percentage-point difference scaled to a
// fraction. A relative change would explode for rates near zero.
func yoyPoints(values map[int]float64, year int) float64 {
	current, okC := backfilled(values, year)
	previous, okP := backfilled(values, year-1)
	if !okC || !okP {
		return math.NaN()
	}
	return (current - previous) / 100
}

// latest returns the backfilled observation for year, NaN when absent.
func latest(values map[int]float64, year int) float64 {
	v, ok := backfilled(values, year)
	if !ok {
		return math.NaN()
	}
	return v
}

// BuildMacro engineers the yearly macro feature rows for a country
// series between startYear and endYear. Percent-of-GDP indicators are
// scaled to fractions.
func BuildMacro(series *domain.MacroSeries, startYear, endYear int) []MacroVector {
	rows := make([]MacroVector, 0, endYear-startYear+1)
	for year := startYear; year <= endYear; year++ {
		row := MacroVector{
			Country: series.Country,
			Year:    year,

			GDPYoY:             yoy(series.Values["gdp_usd"], year),
			GDPPerCapitaYoY:    yoy(series.Values["gdp_per_capita"], year),
			InflationLatest:    latest(series.Values["inflation_pct"], year) / 100,
			InflationYoY:       yoyPoints(series.Values["inflation_pct"], year),
			UnemploymentLatest: latest(series.Values["unemployment_pct"], year) / 100,
			Consumption:        latest(series.Values["consumption_pct_gdp"], year) / 100,
			Exports:            latest(series.Values["exports_pct_gdp"], year) / 100,
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	return rows
}
