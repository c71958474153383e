// Package adjust implements corporate-action price adjustment.
//
// The factor series is forward-cumulative: the earliest bar of a symbol with
// no prior actions carries factor 1.0, and the factor changes at and after
// each split or dividend date. This is the inverse of the usual back-adjusted
// convention that pins the most recent date at 1.0.
//
// Same-day combination rules:
//   - multiple splits multiply: F *= Π(denominator/numerator)
//   - multiple dividends sum first, then apply once: F *= (close-total)/close
//   - a dividend on a day with close <= 0 is skipped, not an error
package adjust
