package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
	"github.com/quantfoundry/universe-data/internal/snapshot"
)

func date(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeMembers serves a fixed membership schedule: symbols active from a
// start date onward.
type fakeMembers struct {
	since map[string]string // symbol -> first active date
	stats map[string]model.SymbolStats
	err   error
}

func (f *fakeMembers) Advance(_ context.Context, _ string, d time.Time) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for sym, since := range f.since {
		if !d.Before(date(since)) {
			out = append(out, sym)
		}
	}
	// Deterministic order, as the resolver guarantees.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (f *fakeMembers) Stats(symbol string) (model.SymbolStats, bool) {
	s, ok := f.stats[symbol]
	return s, ok
}

// fakePrices serves bars from memory, filtering like the repository does.
type fakePrices struct {
	bars map[string][]model.PriceBar
	errs map[string]error
}

func (f *fakePrices) History(_ context.Context, symbol string, through time.Time) ([]model.PriceBar, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	var out []model.PriceBar
	for _, b := range f.bars[symbol] {
		if !b.Date.After(through) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeActions struct {
	splits    map[string][]model.CorporateAction
	dividends map[string][]model.CorporateAction
	errs      map[string]error
}

func (f *fakeActions) History(_ context.Context, symbol string) ([]model.CorporateAction, []model.CorporateAction, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, nil, err
	}
	return f.splits[symbol], f.dividends[symbol], nil
}

// fakeSink collects saved snapshots and the metadata the builder stamps.
type fakeSink struct {
	mu    sync.Mutex
	saved []*model.Snapshot
	metas []model.SnapshotMetadata
	err   error
}

func (f *fakeSink) Save(s *model.Snapshot, opts ...snapshot.SaveOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	var meta model.SnapshotMetadata
	for _, opt := range opts {
		opt(&meta)
	}
	f.saved = append(f.saved, s)
	f.metas = append(f.metas, meta)
	return "/fake/universe_state_" + s.Timestamp + ".parquet", nil
}

// constantBars returns daily bars with fixed prices from first for n days.
func constantBars(symbol, first string, n int, close float64) []model.PriceBar {
	out := make([]model.PriceBar, n)
	d := date(first)
	for i := range out {
		out[i] = model.PriceBar{
			Symbol: symbol,
			Date:   d,
			Open:   close - 1,
			High:   close + 2,
			Low:    close - 2,
			Close:  close,
			Volume: 5000,
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func testBuilder(members *fakeMembers, prices *fakePrices, actions *fakeActions, sink *fakeSink, hooks []Lifecycle) *Builder {
	cfg := Config{
		UniverseID:      "sp_test",
		UniverseType:    "equity",
		HistoryWindow:   16,
		ExtremeLookback: 5,
		Concurrency:     4,
	}
	return NewBuilder(cfg, members, prices, actions, sink, hooks, nil)
}

func TestRun_BuildsOneSnapshotPerDay(t *testing.T) {
	members := &fakeMembers{
		since: map[string]string{"AAA": "2024-01-01", "BBB": "2024-01-01"},
		stats: map[string]model.SymbolStats{
			"AAA": {LastClose: 100, MarketCap: 1e9, AvgDollarVolume: 5e5},
			"BBB": {LastClose: 200, MarketCap: 2e9, AvgDollarVolume: 6e5},
		},
	}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 12, 100),
		"BBB": constantBars("BBB", "2024-01-01", 12, 200),
	}}
	actions := &fakeActions{}
	sink := &fakeSink{}

	b := testBuilder(members, prices, actions, sink, nil)
	stats, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-12"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Days != 3 || stats.SnapshotsWritten != 3 || stats.EmptyDays != 0 {
		t.Errorf("stats = %+v, want 3 days / 3 snapshots / 0 empty", stats)
	}
	if stats.Records != 6 {
		t.Errorf("Records = %d, want 6", stats.Records)
	}
	if stats.DegradedRecords != 0 {
		t.Errorf("DegradedRecords = %d, want 0", stats.DegradedRecords)
	}
	if stats.RunID == "" {
		t.Error("RunID not assigned")
	}
	if len(sink.saved) != 3 {
		t.Fatalf("saved %d snapshots, want 3", len(sink.saved))
	}

	first := sink.saved[0]
	if first.Timestamp != "20240110_000000" {
		t.Errorf("timestamp = %s, want 20240110_000000", first.Timestamp)
	}
	if len(first.Records) != 2 || first.Records[0].Symbol != "AAA" || first.Records[1].Symbol != "BBB" {
		t.Fatalf("records = %v, want AAA then BBB", first.Records)
	}

	// Constant bars: pivot = close, so one_one_dot = 100, e_top = 102,
	// e_bot = 98, pl = 100 for AAA.
	aaa := first.Records[0]
	if aaa.OneOneDot == nil || *aaa.OneOneDot != 100 {
		t.Errorf("one_one_dot = %v, want 100", aaa.OneOneDot)
	}
	if aaa.PL == nil || *aaa.PL != 100 {
		t.Errorf("pl = %v, want 100", aaa.PL)
	}
	if aaa.ETop == nil || *aaa.ETop != 102 {
		t.Errorf("e_top = %v, want 102", aaa.ETop)
	}
	if aaa.EBot == nil || *aaa.EBot != 98 {
		t.Errorf("e_bot = %v, want 98", aaa.EBot)
	}
	if aaa.Degraded {
		t.Error("AAA marked degraded with full history")
	}
	if aaa.LastClose != 100 || aaa.MarketCap != 1e9 || aaa.AvgDollarVolume != 5e5 {
		t.Errorf("aux stats = %v/%v/%v", aaa.LastClose, aaa.MarketCap, aaa.AvgDollarVolume)
	}
	if aaa.Close != 100 || aaa.AdjFactor != 1.0 {
		t.Errorf("close/factor = %v/%v, want 100/1.0", aaa.Close, aaa.AdjFactor)
	}

	meta := sink.metas[0]
	if meta.UniverseType != "equity" {
		t.Errorf("UniverseType = %q", meta.UniverseType)
	}
	wantRun := "run:" + stats.RunID
	found := false
	for _, src := range meta.DataSources {
		if src == wantRun {
			found = true
		}
	}
	if !found {
		t.Errorf("DataSources = %v, missing %s", meta.DataSources, wantRun)
	}
}

func TestRun_AppliesCorporateActions(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 10, 100),
	}}
	// 2-for-1 split on the fifth bar: factor 0.5 from there on.
	actions := &fakeActions{splits: map[string][]model.CorporateAction{
		"AAA": {{Symbol: "AAA", Effective: date("2024-01-05"), Kind: model.ActionSplit, Numerator: 2, Denominator: 1}},
	}}
	sink := &fakeSink{}

	b := testBuilder(members, prices, actions, sink, nil)
	if _, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-10")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rec := sink.saved[0].Records[0]
	if rec.AdjFactor != 0.5 {
		t.Errorf("AdjFactor = %v, want 0.5", rec.AdjFactor)
	}
	if rec.Close != 50 || rec.RawClose != 100 {
		t.Errorf("close = %v raw %v, want 50 raw 100", rec.Close, rec.RawClose)
	}
}

func TestRun_DegradedInstrumentNeverAbortsDate(t *testing.T) {
	members := &fakeMembers{
		since: map[string]string{"AAA": "2024-01-01", "GONE": "2024-01-01"},
		stats: map[string]model.SymbolStats{"GONE": {LastClose: 7}},
	}
	prices := &fakePrices{
		bars: map[string][]model.PriceBar{"AAA": constantBars("AAA", "2024-01-01", 12, 100)},
		errs: map[string]error{},
	}
	actions := &fakeActions{}
	sink := &fakeSink{}

	b := testBuilder(members, prices, actions, sink, nil)
	stats, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-10"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.DegradedRecords != 1 {
		t.Errorf("DegradedRecords = %d, want 1", stats.DegradedRecords)
	}

	snap := sink.saved[0]
	if len(snap.Records) != 2 {
		t.Fatalf("records = %d, want both instruments present", len(snap.Records))
	}
	gone, ok := snap.Record("GONE")
	if !ok {
		t.Fatal("degraded instrument missing from snapshot")
	}
	if !gone.Degraded {
		t.Error("instrument without history not marked degraded")
	}
	if gone.OneOneDot != nil || gone.OneOneDotStatus != model.IndicatorInvalid {
		t.Errorf("one_one_dot = %v/%q, want nil/invalid", gone.OneOneDot, gone.OneOneDotStatus)
	}
	if gone.LastClose != 7 {
		t.Errorf("aux stats lost on degraded record: LastClose = %v", gone.LastClose)
	}
	aaa, _ := snap.Record("AAA")
	if aaa.Degraded {
		t.Error("healthy instrument affected by degraded neighbor")
	}
}

func TestRun_SourceErrorDegradesInstrument(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01", "BAD": "2024-01-01"}}
	prices := &fakePrices{
		bars: map[string][]model.PriceBar{
			"AAA": constantBars("AAA", "2024-01-01", 12, 100),
			"BAD": constantBars("BAD", "2024-01-01", 12, 50),
		},
		errs: map[string]error{"BAD": errors.New("connection reset")},
	}
	sink := &fakeSink{}

	b := testBuilder(members, prices, &fakeActions{}, sink, nil)
	if _, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-10")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	bad, ok := sink.saved[0].Record("BAD")
	if !ok || !bad.Degraded {
		t.Errorf("transient source failure should degrade the instrument, got %+v", bad)
	}
}

func TestRun_IntegrityErrorAborts(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 12, 100),
	}}
	actions := &fakeActions{errs: map[string]error{
		"AAA": errs.Integrityf("corporate action for AAA has unknown kind %q", "merger"),
	}}
	sink := &fakeSink{}

	b := testBuilder(members, prices, actions, sink, nil)
	_, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-10"))
	if !errs.IsIntegrity(err) {
		t.Fatalf("Run error = %v, want IntegrityError", err)
	}
	if len(sink.saved) != 0 {
		t.Error("snapshot saved despite integrity failure")
	}
}

func TestRun_EmptyDaySkipsSnapshot(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-11"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 12, 100),
	}}
	sink := &fakeSink{}

	b := testBuilder(members, prices, &fakeActions{}, sink, nil)
	stats, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-11"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.EmptyDays != 1 || stats.SnapshotsWritten != 1 {
		t.Errorf("stats = %+v, want 1 empty day and 1 snapshot", stats)
	}
	if len(sink.saved) != 1 || sink.saved[0].Timestamp != "20240111_000000" {
		t.Errorf("saved = %v", sink.saved)
	}
}

func TestRun_EndBeforeStart(t *testing.T) {
	b := testBuilder(&fakeMembers{}, &fakePrices{}, &fakeActions{}, &fakeSink{}, nil)
	_, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-09"))
	if !errs.IsValidation(err) {
		t.Errorf("Run error = %v, want ValidationError", err)
	}
}

func TestRun_SaveFailurePropagates(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 12, 100),
	}}
	sink := &fakeSink{err: errors.New("disk full")}

	b := testBuilder(members, prices, &fakeActions{}, sink, nil)
	stats, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-11"))
	if err == nil {
		t.Fatal("Run swallowed save failure")
	}
	if stats.SnapshotsWritten != 0 {
		t.Errorf("SnapshotsWritten = %d, want 0", stats.SnapshotsWritten)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 12, 100),
	}}
	sink := &fakeSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := testBuilder(members, prices, &fakeActions{}, sink, nil)
	if _, err := b.Run(ctx, date("2024-01-10"), date("2024-01-12")); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if len(sink.saved) != 0 {
		t.Error("snapshot saved after cancellation")
	}
}

// recordingHook notes every callback in order.
type recordingHook struct {
	mu    sync.Mutex
	calls []string
	fail  string // callback name to fail on, if any
}

func (h *recordingHook) note(call string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
	if h.fail != "" && len(call) >= len(h.fail) && call[:len(h.fail)] == h.fail {
		return errors.New("hook failure")
	}
	return nil
}

func (h *recordingHook) OnStartOfDay(_ context.Context, _ string, d time.Time) error {
	return h.note("start " + model.FormatDate(d))
}

func (h *recordingHook) OnInterval(_ context.Context, d time.Time, _ *model.Snapshot) error {
	return h.note("interval " + model.FormatDate(d))
}

func (h *recordingHook) OnEndOfDay(_ context.Context, d time.Time, _ DayStats) error {
	return h.note("end " + model.FormatDate(d))
}

func TestRun_HookOrdering(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 14, 100),
	}}
	sink := &fakeSink{}
	hook := &recordingHook{}

	b := testBuilder(members, prices, &fakeActions{}, sink, []Lifecycle{hook})
	if _, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-11")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{
		"start 2024-01-10", "interval 2024-01-10", "end 2024-01-10",
		"start 2024-01-11", "interval 2024-01-11", "end 2024-01-11",
	}
	if len(hook.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", hook.calls, want)
	}
	for i := range want {
		if hook.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, hook.calls[i], want[i])
		}
	}
}

func TestRun_HookErrorAbortsDate(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 14, 100),
	}}
	sink := &fakeSink{}
	hook := &recordingHook{fail: "interval"}

	b := testBuilder(members, prices, &fakeActions{}, sink, []Lifecycle{hook})
	_, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-11"))
	if err == nil {
		t.Fatal("Run swallowed hook failure")
	}
	if len(sink.saved) != 0 {
		t.Error("snapshot saved after interval hook failed")
	}
}

func TestRun_HaltedInstrumentCarriesLastBar(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	// Bars end on 2024-01-08; builds for the 10th still see the instrument.
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 8, 100),
	}}
	sink := &fakeSink{}

	b := testBuilder(members, prices, &fakeActions{}, sink, nil)
	if _, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-10")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rec := sink.saved[0].Records[0]
	if rec.Close != 100 {
		t.Errorf("halted instrument close = %v, want last known 100", rec.Close)
	}
	if !rec.Date.Equal(date("2024-01-10")) {
		t.Errorf("record date = %v, want snapshot date", rec.Date)
	}
}

func TestRun_SequentialTimestamps(t *testing.T) {
	members := &fakeMembers{since: map[string]string{"AAA": "2024-01-01"}}
	prices := &fakePrices{bars: map[string][]model.PriceBar{
		"AAA": constantBars("AAA", "2024-01-01", 20, 100),
	}}
	sink := &fakeSink{}

	b := testBuilder(members, prices, &fakeActions{}, sink, nil)
	if _, err := b.Run(context.Background(), date("2024-01-10"), date("2024-01-14")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, snap := range sink.saved {
		want := fmt.Sprintf("202401%02d_000000", 10+i)
		if snap.Timestamp != want {
			t.Errorf("snapshot %d timestamp = %s, want %s", i, snap.Timestamp, want)
		}
	}
}
