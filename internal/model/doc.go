// Package model defines shared data types used across the universe state engine.
//
// Conventions:
//   - Civil dates: time.Time normalized to 00:00:00 UTC, rendered as YYYY-MM-DD
//   - Snapshot timestamps: YYYYMMDD_HHMMSS strings, lexicographically sortable
//   - Prices: float64 in the instrument's quote currency
//   - Nullable indicator values: *float64, nil when the status is not "ok"
package model
