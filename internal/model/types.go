package model

import "time"

// -----------------------------------------------------------------------------
// Membership Types
// -----------------------------------------------------------------------------

// MembershipAction is the kind of a membership-change event.
type MembershipAction string

const (
	MembershipAdd    MembershipAction = "add"
	MembershipRemove MembershipAction = "remove"
)

// MembershipInterval is one half-open membership span [Start, End).
// A nil End means the symbol is still a member.
type MembershipInterval struct {
	UniverseID string     // Universe this interval belongs to
	Symbol     string     // Instrument symbol
	Start      time.Time  // Inclusive start date
	End        *time.Time // Exclusive end date, nil = open-ended
}

// Covers reports whether the interval contains d (Start <= d < End).
func (iv MembershipInterval) Covers(d time.Time) bool {
	if d.Before(iv.Start) {
		return false
	}
	return iv.End == nil || d.Before(*iv.End)
}

// MembershipEvent is a pending add/remove waiting to be materialized
// into the interval table.
type MembershipEvent struct {
	UniverseID string
	Symbol     string
	Effective  time.Time // Date the change takes effect
	Action     MembershipAction
}

// -----------------------------------------------------------------------------
// Corporate Action Types
// -----------------------------------------------------------------------------

// ActionKind is the kind of a corporate action.
type ActionKind string

const (
	ActionSplit    ActionKind = "split"
	ActionDividend ActionKind = "dividend"
)

// CorporateAction is one split or cash dividend. Multiple actions may share
// a symbol and date; same-day ordering is combination-only, never sequential.
type CorporateAction struct {
	Symbol      string
	Effective   time.Time
	Kind        ActionKind
	Numerator   int64   // split: new share count (2 in a 2-for-1)
	Denominator int64   // split: old share count (1 in a 2-for-1)
	Amount      float64 // dividend: cash amount per share
}

// -----------------------------------------------------------------------------
// Price Types
// -----------------------------------------------------------------------------

// PriceBar is one daily OHLCV bar as recorded by the vendor.
type PriceBar struct {
	Symbol    string
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	MarketCap float64
}

// AdjustedBar is a PriceBar with split/dividend adjusted prices next to the
// raw ones. Open..Close carry the adjusted values.
type AdjustedBar struct {
	PriceBar
	Factor   float64 // cumulative adjustment factor applied to this bar
	RawOpen  float64
	RawHigh  float64
	RawLow   float64
	RawClose float64
}

// -----------------------------------------------------------------------------
// Interval Bar Types
// -----------------------------------------------------------------------------

// BarStatus is a per-bar quality marker. Vendor strings pass through
// untouched; comparisons are exact and case-sensitive ("OK" is not ok).
type BarStatus string

const (
	BarOK      BarStatus = "ok"
	BarInvalid BarStatus = "invalid"
)

// IntervalBar is one aggregation interval in an instrument's bounded history.
// Bars are appended in chronological order per instrument.
type IntervalBar struct {
	InstrumentID string
	Start        time.Time
	End          time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	TradedVolume int64
	TradedDollar float64
	Status       BarStatus
}

// -----------------------------------------------------------------------------
// Indicator Types
// -----------------------------------------------------------------------------

// IndicatorStatus marks whether an indicator value is usable.
type IndicatorStatus string

const (
	IndicatorOK      IndicatorStatus = "ok"
	IndicatorInvalid IndicatorStatus = "invalid"
)

// Indicator column names as they appear in snapshots.
const (
	IndOneOneDot  = "one_one_dot"
	IndOneOneHigh = "one_one_high"
	IndOneOneLow  = "one_one_low"
	IndPL         = "pl"
	IndETop       = "e_top"
	IndEBot       = "e_bot"
)

// IndicatorReading is one computed indicator for one instrument.
// Value is nil whenever Status is not IndicatorOK.
type IndicatorReading struct {
	Name   string
	Value  *float64
	Status IndicatorStatus
}

// -----------------------------------------------------------------------------
// Auxiliary Statistics
// -----------------------------------------------------------------------------

// SymbolStats are the per-symbol statistics the resolver caches alongside
// the active set. Refreshed only for symbols whose membership changed.
type SymbolStats struct {
	LastClose       float64
	MarketCap       float64
	AvgDollarVolume float64
	AsOf            time.Time
}
