// Package features holds the pure feature computations: price momentum
// and risk, fundamentals, growth rates, dividend and valuation features,
// one-hot encodings and the yearly macro engineering. Functions here do
// no I/O; they take date-ordered source series and return nil (or NaN
// for macro rows) when a feature cannot be computed.
package features
