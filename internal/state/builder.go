package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quantfoundry/universe-data/internal/adjust"
	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/indicator"
	"github.com/quantfoundry/universe-data/internal/model"
	"github.com/quantfoundry/universe-data/internal/snapshot"
)

// Memberships yields the active symbol set per date, with cached per-symbol
// statistics. Implemented by universe.Resolver.
type Memberships interface {
	Advance(ctx context.Context, universeID string, date time.Time) ([]string, error)
	Stats(symbol string) (model.SymbolStats, bool)
}

// PriceSource provides per-symbol daily bar history.
type PriceSource interface {
	History(ctx context.Context, symbol string, through time.Time) ([]model.PriceBar, error)
}

// ActionSource provides per-symbol corporate actions partitioned by kind.
type ActionSource interface {
	History(ctx context.Context, symbol string) (splits, dividends []model.CorporateAction, err error)
}

// SnapshotSink persists assembled snapshots. Implemented by snapshot.Store.
type SnapshotSink interface {
	Save(snap *model.Snapshot, opts ...snapshot.SaveOption) (string, error)
}

// Config holds build settings.
type Config struct {
	UniverseID      string
	UniverseType    string // provenance tag stamped into metadata
	HistoryWindow   int    // bars retained per instrument
	ExtremeLookback int    // bars consulted by e_top/e_bot
	Concurrency     int    // parallel per-instrument workers
}

func (c Config) withDefaults() Config {
	if c.UniverseType == "" {
		c.UniverseType = "equity"
	}
	if c.HistoryWindow < 1 {
		c.HistoryWindow = 64
	}
	if c.ExtremeLookback < 1 {
		c.ExtremeLookback = indicator.DefaultLookback
	}
	if c.Concurrency < 1 {
		c.Concurrency = 8
	}
	return c
}

// DayStats summarizes one date of the walk.
type DayStats struct {
	Date         time.Time
	Records      int
	Degraded     int
	SnapshotPath string // empty when the date had no members
	Elapsed      time.Duration
}

// BuildStats summarizes a full run.
type BuildStats struct {
	RunID            string
	UniverseID       string
	StartDate        time.Time
	EndDate          time.Time
	Days             int
	SnapshotsWritten int
	EmptyDays        int
	Records          int
	DegradedRecords  int
	Elapsed          time.Duration
}

// Builder assembles and persists one snapshot per date.
type Builder struct {
	cfg      Config
	members  Memberships
	prices   PriceSource
	actions  ActionSource
	sink     SnapshotSink
	adjuster *adjust.Adjuster
	hooks    []Lifecycle
	logger   *slog.Logger
}

// NewBuilder wires a builder over its sources. hooks may be nil.
func NewBuilder(
	cfg Config,
	members Memberships,
	prices PriceSource,
	actions ActionSource,
	sink SnapshotSink,
	hooks []Lifecycle,
	logger *slog.Logger,
) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:      cfg.withDefaults(),
		members:  members,
		prices:   prices,
		actions:  actions,
		sink:     sink,
		adjuster: adjust.New(logger),
		hooks:    hooks,
		logger:   logger,
	}
}

// Run walks [start, end] day by day, strictly sequentially, building and
// persisting one snapshot per date with at least one member. It returns the
// stats accumulated so far even on error.
func (b *Builder) Run(ctx context.Context, start, end time.Time) (BuildStats, error) {
	start = model.MidnightUTC(start)
	end = model.MidnightUTC(end)

	stats := BuildStats{
		RunID:      uuid.NewString(),
		UniverseID: b.cfg.UniverseID,
		StartDate:  start,
		EndDate:    end,
	}
	if end.Before(start) {
		return stats, errs.Validationf("end date %s before start date %s",
			model.FormatDate(end), model.FormatDate(start))
	}

	b.logger.Info("universe build starting",
		"run_id", stats.RunID,
		"universe", b.cfg.UniverseID,
		"start", model.FormatDate(start),
		"end", model.FormatDate(end),
		"concurrency", b.cfg.Concurrency,
	)
	t0 := time.Now()

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		day, err := b.buildDay(ctx, d, stats.RunID)
		if err != nil {
			return stats, fmt.Errorf("build %s: %w", model.FormatDate(d), err)
		}

		stats.Days++
		stats.Records += day.Records
		stats.DegradedRecords += day.Degraded
		if day.SnapshotPath != "" {
			stats.SnapshotsWritten++
		} else {
			stats.EmptyDays++
		}
	}

	stats.Elapsed = time.Since(t0)
	b.logger.Info("universe build complete",
		"run_id", stats.RunID,
		"days", stats.Days,
		"snapshots", stats.SnapshotsWritten,
		"records", stats.Records,
		"degraded", stats.DegradedRecords,
		"empty_days", stats.EmptyDays,
		"duration", stats.Elapsed,
	)
	return stats, nil
}

// buildDay produces and persists the snapshot for one date.
func (b *Builder) buildDay(ctx context.Context, date time.Time, runID string) (DayStats, error) {
	t0 := time.Now()
	day := DayStats{Date: date}

	for _, h := range b.hooks {
		if err := h.OnStartOfDay(ctx, b.cfg.UniverseID, date); err != nil {
			return day, fmt.Errorf("start-of-day hook: %w", err)
		}
	}

	symbols, err := b.members.Advance(ctx, b.cfg.UniverseID, date)
	if err != nil {
		return day, err
	}

	if len(symbols) == 0 {
		b.logger.Warn("no active symbols, skipping snapshot",
			"universe", b.cfg.UniverseID,
			"date", model.FormatDate(date),
		)
		day.Elapsed = time.Since(t0)
		return day, b.fireEndOfDay(ctx, date, day)
	}

	records, degraded, err := b.computeAll(ctx, symbols, date)
	if err != nil {
		return day, err
	}

	snap := &model.Snapshot{
		Timestamp: model.DayTimestamp(date),
		Records:   records,
	}
	for _, h := range b.hooks {
		if err := h.OnInterval(ctx, date, snap); err != nil {
			return day, fmt.Errorf("interval hook: %w", err)
		}
	}

	path, err := b.sink.Save(snap, snapshot.WithProvenance(b.cfg.UniverseType,
		"prices", "corporate_actions", "membership", "run:"+runID))
	if err != nil {
		return day, fmt.Errorf("save snapshot: %w", err)
	}

	day.Records = len(records)
	day.Degraded = degraded
	day.SnapshotPath = path
	day.Elapsed = time.Since(t0)
	return day, b.fireEndOfDay(ctx, date, day)
}

func (b *Builder) fireEndOfDay(ctx context.Context, date time.Time, day DayStats) error {
	for _, h := range b.hooks {
		if err := h.OnEndOfDay(ctx, date, day); err != nil {
			return fmt.Errorf("end-of-day hook: %w", err)
		}
	}
	return nil
}

// computeAll fans per-instrument work across a bounded worker pool. Symbol
// windows are disjoint, so workers never share state. Per-instrument
// failures degrade that instrument only; corrupt reference data
// (IntegrityError) aborts the date.
func (b *Builder) computeAll(ctx context.Context, symbols []string, date time.Time) ([]model.UniverseRecord, int, error) {
	records := make([]model.UniverseRecord, len(symbols))

	sem := make(chan struct{}, b.cfg.Concurrency)
	var wg sync.WaitGroup
	var degraded atomic.Int64

	var fatalMu sync.Mutex
	var fatal error

	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			rec, err := b.computeRecord(ctx, symbol, date)
			if err != nil {
				if errs.IsIntegrity(err) {
					fatalMu.Lock()
					if fatal == nil {
						fatal = err
					}
					fatalMu.Unlock()
					return
				}
				b.logger.Warn("instrument degraded",
					"symbol", symbol,
					"date", model.FormatDate(date),
					"err", err,
				)
				rec = b.emptyRecord(symbol, date)
			}
			if rec.Degraded {
				degraded.Add(1)
			}
			records[i] = rec
		}(i, sym)
	}
	wg.Wait()

	if fatal != nil {
		return nil, 0, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return records, int(degraded.Load()), nil
}

// computeRecord builds one instrument's snapshot row: full bar history
// through the date, corporate-action adjustment, bounded indicator window,
// cached membership statistics.
func (b *Builder) computeRecord(ctx context.Context, symbol string, date time.Time) (model.UniverseRecord, error) {
	bars, err := b.prices.History(ctx, symbol, date)
	if err != nil {
		return model.UniverseRecord{}, fmt.Errorf("price history for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return b.emptyRecord(symbol, date), nil
	}

	splits, dividends, err := b.actions.History(ctx, symbol)
	if err != nil {
		return model.UniverseRecord{}, fmt.Errorf("corporate actions for %s: %w", symbol, err)
	}

	adjusted, err := b.adjuster.Adjust(bars, splits, dividends)
	if err != nil {
		return model.UniverseRecord{}, fmt.Errorf("adjust %s: %w", symbol, err)
	}

	window := indicator.NewWindow(b.cfg.HistoryWindow)
	for _, ab := range adjusted {
		window.Append(intervalBarOf(ab))
	}

	rec := model.UniverseRecord{
		Symbol:     symbol,
		UniverseID: b.cfg.UniverseID,
		Date:       date,
	}

	// Latest bar on or before the date; a halted instrument carries its
	// last known prices forward.
	last := adjusted[len(adjusted)-1]
	rec.RawOpen, rec.RawHigh, rec.RawLow, rec.RawClose = last.RawOpen, last.RawHigh, last.RawLow, last.RawClose
	rec.Open, rec.High, rec.Low, rec.Close = last.Open, last.High, last.Low, last.Close
	rec.AdjFactor = last.Factor
	rec.Volume = last.Volume

	if stats, ok := b.members.Stats(symbol); ok {
		rec.LastClose = stats.LastClose
		rec.MarketCap = stats.MarketCap
		rec.AvgDollarVolume = stats.AvgDollarVolume
	}

	engine := indicator.DefaultEngine(b.cfg.ExtremeLookback)
	for _, reading := range engine.Compute(window.Bars()) {
		rec.SetIndicator(reading)
		if reading.Status != model.IndicatorOK {
			rec.Degraded = true
		}
	}
	return rec, nil
}

// emptyRecord is the degraded row for an instrument with no usable history:
// membership is preserved, prices are zero, and every indicator is invalid.
func (b *Builder) emptyRecord(symbol string, date time.Time) model.UniverseRecord {
	rec := model.UniverseRecord{
		Symbol:     symbol,
		UniverseID: b.cfg.UniverseID,
		Date:       date,
		Degraded:   true,
	}
	if stats, ok := b.members.Stats(symbol); ok {
		rec.LastClose = stats.LastClose
		rec.MarketCap = stats.MarketCap
		rec.AvgDollarVolume = stats.AvgDollarVolume
	}
	engine := indicator.DefaultEngine(b.cfg.ExtremeLookback)
	for _, reading := range engine.Compute(nil) {
		rec.SetIndicator(reading)
	}
	return rec
}

// intervalBarOf converts an adjusted daily bar into the indicator input
// shape. Daily bars span [date, date+1). A bar with non-positive prices, an
// inverted high/low, or negative volume is marked invalid so indicators
// skip it.
func intervalBarOf(ab model.AdjustedBar) model.IntervalBar {
	status := model.BarOK
	if ab.RawOpen <= 0 || ab.RawHigh <= 0 || ab.RawLow <= 0 || ab.RawClose <= 0 ||
		ab.RawHigh < ab.RawLow || ab.Volume < 0 {
		status = model.BarInvalid
	}
	return model.IntervalBar{
		InstrumentID: ab.Symbol,
		Start:        ab.Date,
		End:          ab.Date.AddDate(0, 0, 1),
		Open:         ab.Open,
		High:         ab.High,
		Low:          ab.Low,
		Close:        ab.Close,
		TradedVolume: ab.Volume,
		TradedDollar: ab.RawClose * float64(ab.Volume),
		Status:       status,
	}
}
