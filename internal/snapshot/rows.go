package snapshot

import (
	"math"

	"github.com/quantfoundry/universe-data/internal/model"
)

// row is the canonical parquet shape of one UniverseRecord. Low-cardinality
// text columns (symbol, universe, date, statuses) are dictionary-encoded;
// indicator values are optional so invalid readings stay null on disk.
type row struct {
	Symbol     string  `parquet:"symbol,dict"`
	UniverseID string  `parquet:"universe_id,dict"`
	Date       string  `parquet:"date,dict"`
	RawOpen    float64 `parquet:"raw_open"`
	RawHigh    float64 `parquet:"raw_high"`
	RawLow     float64 `parquet:"raw_low"`
	RawClose   float64 `parquet:"raw_close"`
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	AdjFactor  float64 `parquet:"adj_factor"`
	Volume     int64   `parquet:"volume"`

	LastClose       float64 `parquet:"last_close"`
	MarketCap       float64 `parquet:"market_cap"`
	AvgDollarVolume float64 `parquet:"avg_dollar_volume"`

	OneOneDot        *float64 `parquet:"one_one_dot,optional"`
	OneOneDotStatus  string   `parquet:"one_one_dot_status,dict"`
	OneOneHigh       *float64 `parquet:"one_one_high,optional"`
	OneOneHighStatus string   `parquet:"one_one_high_status,dict"`
	OneOneLow        *float64 `parquet:"one_one_low,optional"`
	OneOneLowStatus  string   `parquet:"one_one_low_status,dict"`
	PL               *float64 `parquet:"pl,optional"`
	PLStatus         string   `parquet:"pl_status,dict"`
	ETop             *float64 `parquet:"e_top,optional"`
	ETopStatus       string   `parquet:"e_top_status,dict"`
	EBot             *float64 `parquet:"e_bot,optional"`
	EBotStatus       string   `parquet:"e_bot_status,dict"`

	Degraded bool `parquet:"degraded"`
}

// narrowRow is row with the volume column narrowed to int32. Used when
// every volume in a snapshot fits, purely for storage compactness; loads
// read through the canonical row shape and widen back, so values survive
// the round trip unchanged.
type narrowRow struct {
	Symbol     string  `parquet:"symbol,dict"`
	UniverseID string  `parquet:"universe_id,dict"`
	Date       string  `parquet:"date,dict"`
	RawOpen    float64 `parquet:"raw_open"`
	RawHigh    float64 `parquet:"raw_high"`
	RawLow     float64 `parquet:"raw_low"`
	RawClose   float64 `parquet:"raw_close"`
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	AdjFactor  float64 `parquet:"adj_factor"`
	Volume     int32   `parquet:"volume"`

	LastClose       float64 `parquet:"last_close"`
	MarketCap       float64 `parquet:"market_cap"`
	AvgDollarVolume float64 `parquet:"avg_dollar_volume"`

	OneOneDot        *float64 `parquet:"one_one_dot,optional"`
	OneOneDotStatus  string   `parquet:"one_one_dot_status,dict"`
	OneOneHigh       *float64 `parquet:"one_one_high,optional"`
	OneOneHighStatus string   `parquet:"one_one_high_status,dict"`
	OneOneLow        *float64 `parquet:"one_one_low,optional"`
	OneOneLowStatus  string   `parquet:"one_one_low_status,dict"`
	PL               *float64 `parquet:"pl,optional"`
	PLStatus         string   `parquet:"pl_status,dict"`
	ETop             *float64 `parquet:"e_top,optional"`
	ETopStatus       string   `parquet:"e_top_status,dict"`
	EBot             *float64 `parquet:"e_bot,optional"`
	EBotStatus       string   `parquet:"e_bot_status,dict"`

	Degraded bool `parquet:"degraded"`
}

func recordToRow(r *model.UniverseRecord) row {
	return row{
		Symbol:     r.Symbol,
		UniverseID: r.UniverseID,
		Date:       model.FormatDate(r.Date),
		RawOpen:    r.RawOpen,
		RawHigh:    r.RawHigh,
		RawLow:     r.RawLow,
		RawClose:   r.RawClose,
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		AdjFactor:  r.AdjFactor,
		Volume:     r.Volume,

		LastClose:       r.LastClose,
		MarketCap:       r.MarketCap,
		AvgDollarVolume: r.AvgDollarVolume,

		OneOneDot:        r.OneOneDot,
		OneOneDotStatus:  string(r.OneOneDotStatus),
		OneOneHigh:       r.OneOneHigh,
		OneOneHighStatus: string(r.OneOneHighStatus),
		OneOneLow:        r.OneOneLow,
		OneOneLowStatus:  string(r.OneOneLowStatus),
		PL:               r.PL,
		PLStatus:         string(r.PLStatus),
		ETop:             r.ETop,
		ETopStatus:       string(r.ETopStatus),
		EBot:             r.EBot,
		EBotStatus:       string(r.EBotStatus),

		Degraded: r.Degraded,
	}
}

func rowToRecord(w row) (model.UniverseRecord, error) {
	date, err := model.ParseDate(w.Date)
	if err != nil {
		return model.UniverseRecord{}, err
	}
	return model.UniverseRecord{
		Symbol:     w.Symbol,
		UniverseID: w.UniverseID,
		Date:       date,
		RawOpen:    w.RawOpen,
		RawHigh:    w.RawHigh,
		RawLow:     w.RawLow,
		RawClose:   w.RawClose,
		Open:       w.Open,
		High:       w.High,
		Low:        w.Low,
		Close:      w.Close,
		AdjFactor:  w.AdjFactor,
		Volume:     w.Volume,

		LastClose:       w.LastClose,
		MarketCap:       w.MarketCap,
		AvgDollarVolume: w.AvgDollarVolume,

		OneOneDot:        w.OneOneDot,
		OneOneDotStatus:  model.IndicatorStatus(w.OneOneDotStatus),
		OneOneHigh:       w.OneOneHigh,
		OneOneHighStatus: model.IndicatorStatus(w.OneOneHighStatus),
		OneOneLow:        w.OneOneLow,
		OneOneLowStatus:  model.IndicatorStatus(w.OneOneLowStatus),
		PL:               w.PL,
		PLStatus:         model.IndicatorStatus(w.PLStatus),
		ETop:             w.ETop,
		ETopStatus:       model.IndicatorStatus(w.ETopStatus),
		EBot:             w.EBot,
		EBotStatus:       model.IndicatorStatus(w.EBotStatus),

		Degraded: w.Degraded,
	}, nil
}

func toNarrow(w row) narrowRow {
	return narrowRow{
		Symbol:     w.Symbol,
		UniverseID: w.UniverseID,
		Date:       w.Date,
		RawOpen:    w.RawOpen,
		RawHigh:    w.RawHigh,
		RawLow:     w.RawLow,
		RawClose:   w.RawClose,
		Open:       w.Open,
		High:       w.High,
		Low:        w.Low,
		Close:      w.Close,
		AdjFactor:  w.AdjFactor,
		Volume:     int32(w.Volume),

		LastClose:       w.LastClose,
		MarketCap:       w.MarketCap,
		AvgDollarVolume: w.AvgDollarVolume,

		OneOneDot:        w.OneOneDot,
		OneOneDotStatus:  w.OneOneDotStatus,
		OneOneHigh:       w.OneOneHigh,
		OneOneHighStatus: w.OneOneHighStatus,
		OneOneLow:        w.OneOneLow,
		OneOneLowStatus:  w.OneOneLowStatus,
		PL:               w.PL,
		PLStatus:         w.PLStatus,
		ETop:             w.ETop,
		ETopStatus:       w.ETopStatus,
		EBot:             w.EBot,
		EBotStatus:       w.EBotStatus,

		Degraded: w.Degraded,
	}
}

// toRows converts snapshot records and reports whether every volume fits
// in an int32 column.
func toRows(records []model.UniverseRecord) (rows []row, narrowable bool) {
	rows = make([]row, len(records))
	narrowable = true
	for i := range records {
		rows[i] = recordToRow(&records[i])
		if records[i].Volume > math.MaxInt32 || records[i].Volume < math.MinInt32 {
			narrowable = false
		}
	}
	return rows, narrowable
}

func toRecords(rows []row, timestamp string) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Timestamp: timestamp,
		Records:   make([]model.UniverseRecord, len(rows)),
	}
	for i, w := range rows {
		rec, err := rowToRecord(w)
		if err != nil {
			return nil, err
		}
		snap.Records[i] = rec
	}
	return snap, nil
}
