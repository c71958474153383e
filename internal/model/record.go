package model

import (
	"fmt"
	"time"
)

// UniverseRecord is one instrument's state row within a snapshot.
type UniverseRecord struct {
	Symbol     string
	UniverseID string
	Date       time.Time

	// Raw vendor prices
	RawOpen  float64
	RawHigh  float64
	RawLow   float64
	RawClose float64

	// Split/dividend adjusted prices
	Open      float64
	High      float64
	Low       float64
	Close     float64
	AdjFactor float64

	Volume          int64
	LastClose       float64
	MarketCap       float64
	AvgDollarVolume float64

	// Indicators (nil value when the paired status is not "ok")
	OneOneDot        *float64
	OneOneDotStatus  IndicatorStatus
	OneOneHigh       *float64
	OneOneHighStatus IndicatorStatus
	OneOneLow        *float64
	OneOneLowStatus  IndicatorStatus
	PL               *float64
	PLStatus         IndicatorStatus
	ETop             *float64
	ETopStatus       IndicatorStatus
	EBot             *float64
	EBotStatus       IndicatorStatus

	// Degraded marks rows whose indicators could not be computed from the
	// available history. Degraded rows are still members, never errors.
	Degraded bool
}

// RecordColumns lists every snapshot column in persisted order.
var RecordColumns = []string{
	"symbol", "universe_id", "date",
	"raw_open", "raw_high", "raw_low", "raw_close",
	"open", "high", "low", "close", "adj_factor",
	"volume", "last_close", "market_cap", "avg_dollar_volume",
	"one_one_dot", "one_one_dot_status",
	"one_one_high", "one_one_high_status",
	"one_one_low", "one_one_low_status",
	"pl", "pl_status",
	"e_top", "e_top_status",
	"e_bot", "e_bot_status",
	"degraded",
}

// KnownColumn reports whether name is a snapshot column.
func KnownColumn(name string) bool {
	for _, c := range RecordColumns {
		if c == name {
			return true
		}
	}
	return false
}

// Field returns the named column value. Indicator value columns return
// *float64 (nil when invalid); the second return is false for unknown names.
func (r *UniverseRecord) Field(name string) (any, bool) {
	switch name {
	case "symbol":
		return r.Symbol, true
	case "universe_id":
		return r.UniverseID, true
	case "date":
		return FormatDate(r.Date), true
	case "raw_open":
		return r.RawOpen, true
	case "raw_high":
		return r.RawHigh, true
	case "raw_low":
		return r.RawLow, true
	case "raw_close":
		return r.RawClose, true
	case "open":
		return r.Open, true
	case "high":
		return r.High, true
	case "low":
		return r.Low, true
	case "close":
		return r.Close, true
	case "adj_factor":
		return r.AdjFactor, true
	case "volume":
		return r.Volume, true
	case "last_close":
		return r.LastClose, true
	case "market_cap":
		return r.MarketCap, true
	case "avg_dollar_volume":
		return r.AvgDollarVolume, true
	case IndOneOneDot:
		return r.OneOneDot, true
	case "one_one_dot_status":
		return string(r.OneOneDotStatus), true
	case IndOneOneHigh:
		return r.OneOneHigh, true
	case "one_one_high_status":
		return string(r.OneOneHighStatus), true
	case IndOneOneLow:
		return r.OneOneLow, true
	case "one_one_low_status":
		return string(r.OneOneLowStatus), true
	case IndPL:
		return r.PL, true
	case "pl_status":
		return string(r.PLStatus), true
	case IndETop:
		return r.ETop, true
	case "e_top_status":
		return string(r.ETopStatus), true
	case IndEBot:
		return r.EBot, true
	case "e_bot_status":
		return string(r.EBotStatus), true
	case "degraded":
		return r.Degraded, true
	}
	return nil, false
}

// SetIndicator stores a computed reading into the matching value/status pair.
// Returns false for unknown indicator names.
func (r *UniverseRecord) SetIndicator(reading IndicatorReading) bool {
	switch reading.Name {
	case IndOneOneDot:
		r.OneOneDot, r.OneOneDotStatus = reading.Value, reading.Status
	case IndOneOneHigh:
		r.OneOneHigh, r.OneOneHighStatus = reading.Value, reading.Status
	case IndOneOneLow:
		r.OneOneLow, r.OneOneLowStatus = reading.Value, reading.Status
	case IndPL:
		r.PL, r.PLStatus = reading.Value, reading.Status
	case IndETop:
		r.ETop, r.ETopStatus = reading.Value, reading.Status
	case IndEBot:
		r.EBot, r.EBotStatus = reading.Value, reading.Status
	default:
		return false
	}
	return true
}

// copyColumn copies the named column from src into dst.
func copyColumn(dst, src *UniverseRecord, name string) {
	switch name {
	case "symbol":
		dst.Symbol = src.Symbol
	case "universe_id":
		dst.UniverseID = src.UniverseID
	case "date":
		dst.Date = src.Date
	case "raw_open":
		dst.RawOpen = src.RawOpen
	case "raw_high":
		dst.RawHigh = src.RawHigh
	case "raw_low":
		dst.RawLow = src.RawLow
	case "raw_close":
		dst.RawClose = src.RawClose
	case "open":
		dst.Open = src.Open
	case "high":
		dst.High = src.High
	case "low":
		dst.Low = src.Low
	case "close":
		dst.Close = src.Close
	case "adj_factor":
		dst.AdjFactor = src.AdjFactor
	case "volume":
		dst.Volume = src.Volume
	case "last_close":
		dst.LastClose = src.LastClose
	case "market_cap":
		dst.MarketCap = src.MarketCap
	case "avg_dollar_volume":
		dst.AvgDollarVolume = src.AvgDollarVolume
	case IndOneOneDot:
		dst.OneOneDot = src.OneOneDot
	case "one_one_dot_status":
		dst.OneOneDotStatus = src.OneOneDotStatus
	case IndOneOneHigh:
		dst.OneOneHigh = src.OneOneHigh
	case "one_one_high_status":
		dst.OneOneHighStatus = src.OneOneHighStatus
	case IndOneOneLow:
		dst.OneOneLow = src.OneOneLow
	case "one_one_low_status":
		dst.OneOneLowStatus = src.OneOneLowStatus
	case IndPL:
		dst.PL = src.PL
	case "pl_status":
		dst.PLStatus = src.PLStatus
	case IndETop:
		dst.ETop = src.ETop
	case "e_top_status":
		dst.ETopStatus = src.ETopStatus
	case IndEBot:
		dst.EBot = src.EBot
	case "e_bot_status":
		dst.EBotStatus = src.EBotStatus
	case "degraded":
		dst.Degraded = src.Degraded
	}
}

// Snapshot is a full universe state at a point in time. Immutable once
// written; identified solely by its timestamp.
type Snapshot struct {
	Timestamp string
	Records   []UniverseRecord
}

// Project returns a copy of the snapshot carrying only the named columns.
// Unnamed columns are zero in every record.
func (s *Snapshot) Project(columns []string) (*Snapshot, error) {
	for _, c := range columns {
		if !KnownColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
	}

	out := &Snapshot{
		Timestamp: s.Timestamp,
		Records:   make([]UniverseRecord, len(s.Records)),
	}
	for i := range s.Records {
		for _, c := range columns {
			copyColumn(&out.Records[i], &s.Records[i], c)
		}
	}
	return out, nil
}

// Record returns the record for the given symbol, if present.
func (s *Snapshot) Record(symbol string) (*UniverseRecord, bool) {
	for i := range s.Records {
		if s.Records[i].Symbol == symbol {
			return &s.Records[i], true
		}
	}
	return nil, false
}

// SnapshotMetadata is the JSON sidecar written next to each snapshot file.
// It never exists without a corresponding data file.
type SnapshotMetadata struct {
	Timestamp     string    `json:"timestamp"`
	RecordCount   int       `json:"record_count"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	Columns       []string  `json:"columns"`
	DataSources   []string  `json:"data_sources"`
	UniverseType  string    `json:"universe_type"`
	Version       string    `json:"version"`
}
