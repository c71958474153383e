// Package universe implements point-in-time membership resolution.
//
// The resolver answers "which symbols belonged to universe U on date D"
// from half-open membership intervals, without leaking future information
// into past queries. An incremental cursor walks membership-change events
// forward; moving the cursor backward or switching universes falls back to
// a full from-scratch resolution.
//
// Overlapping intervals for one symbol are corrupt reference data and
// always surface as an IntegrityError, never a silent repair.
package universe
