// Package indicator implements the rolling-window indicator engine.
//
// Indicators:
//   - one_one_dot: (high+low+close)/3 of the most recent bar
//   - one_one_high: 2*pivot - low of the most recent bar
//   - one_one_low: 2*pivot - high of the most recent bar
//   - pl: mean pivot over the trailing 3 bars
//   - e_top / e_bot: mean one_one_high / one_one_low over the trailing 3
//     bars, drawn from a configurable lookback that must be fully "ok"
//
// Bar status comparison is exact and case-sensitive: only "ok" counts.
// An indicator that cannot be computed never raises; it reports
// status "invalid" with a nil value, so one instrument's missing history
// never aborts the rest of the universe.
package indicator
