// Package dataset persists feature rows as zstd-compressed Parquet under
// the features_data layout. Writes are atomic (temp file plus rename)
// and appends merge with existing rows, deduplicating by as_of for
// ticker history and by ticker for the static table.
package dataset
