package state

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
)

// Lifecycle observes the builder's date walk. Hook errors abort the
// current date: hooks are part of the build pipeline, not best-effort
// observers.
type Lifecycle interface {
	// OnStartOfDay fires before any per-instrument work for the date.
	OnStartOfDay(ctx context.Context, universeID string, date time.Time) error

	// OnInterval fires once the day's snapshot is assembled, before it is
	// persisted. The snapshot must not be modified.
	OnInterval(ctx context.Context, date time.Time, snap *model.Snapshot) error

	// OnEndOfDay fires after the snapshot is persisted (or the date was
	// skipped for having no members).
	OnEndOfDay(ctx context.Context, date time.Time, day DayStats) error
}

// HookFactory constructs a lifecycle hook.
type HookFactory func(logger *slog.Logger) Lifecycle

// HookRegistry maps hook names to factories. A registry is populated at
// startup and handed to the composition root; hooks are selected by
// configuration, never looked up reflectively.
type HookRegistry struct {
	factories map[string]HookFactory
}

// NewHookRegistry returns a registry with the built-in hooks registered:
// "logging" (per-day slog progress) and "stats" (running counters).
func NewHookRegistry() *HookRegistry {
	r := &HookRegistry{factories: make(map[string]HookFactory)}
	r.factories["logging"] = func(logger *slog.Logger) Lifecycle { return newLoggingHook(logger) }
	r.factories["stats"] = func(logger *slog.Logger) Lifecycle { return NewStatsHook(logger) }
	return r
}

// Register adds a factory under a name. Re-registering a taken name is a
// ValidationError.
func (r *HookRegistry) Register(name string, factory HookFactory) error {
	if name == "" || factory == nil {
		return errs.Validationf("hook registration needs a name and a factory")
	}
	if _, exists := r.factories[name]; exists {
		return errs.Validationf("hook %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Build constructs the named hooks in the given order. An unknown name is a
// ValidationError naming the available hooks.
func (r *HookRegistry) Build(names []string, logger *slog.Logger) ([]Lifecycle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hooks := make([]Lifecycle, 0, len(names))
	for _, name := range names {
		factory, ok := r.factories[name]
		if !ok {
			return nil, errs.Validationf("unknown hook %q (registered: %v)", name, r.Names())
		}
		hooks = append(hooks, factory(logger))
	}
	return hooks, nil
}

// Names lists the registered hook names, sorted.
func (r *HookRegistry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loggingHook reports build progress through slog.
type loggingHook struct {
	logger *slog.Logger
}

func newLoggingHook(logger *slog.Logger) *loggingHook {
	return &loggingHook{logger: logger}
}

func (h *loggingHook) OnStartOfDay(_ context.Context, universeID string, date time.Time) error {
	h.logger.Debug("day started", "universe", universeID, "date", model.FormatDate(date))
	return nil
}

func (h *loggingHook) OnInterval(_ context.Context, date time.Time, snap *model.Snapshot) error {
	h.logger.Debug("snapshot assembled",
		"date", model.FormatDate(date),
		"timestamp", snap.Timestamp,
		"records", len(snap.Records),
	)
	return nil
}

func (h *loggingHook) OnEndOfDay(_ context.Context, date time.Time, day DayStats) error {
	h.logger.Info("day complete",
		"date", model.FormatDate(date),
		"records", day.Records,
		"degraded", day.Degraded,
		"path", day.SnapshotPath,
		"duration", day.Elapsed,
	)
	return nil
}

// StatsHook accumulates counters across the walk. Hooks fire from the date
// loop only, but totals may be read from another goroutine.
type StatsHook struct {
	logger *slog.Logger

	mu     sync.Mutex
	totals HookTotals
}

// HookTotals are the counters a StatsHook has seen so far.
type HookTotals struct {
	Days      int
	Snapshots int
	Records   int
	Degraded  int
}

// NewStatsHook creates a counting hook.
func NewStatsHook(logger *slog.Logger) *StatsHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHook{logger: logger}
}

func (h *StatsHook) OnStartOfDay(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (h *StatsHook) OnInterval(_ context.Context, _ time.Time, snap *model.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totals.Snapshots++
	h.totals.Records += len(snap.Records)
	return nil
}

func (h *StatsHook) OnEndOfDay(_ context.Context, _ time.Time, day DayStats) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.totals.Days++
	h.totals.Degraded += day.Degraded
	h.logger.Debug("build totals",
		"days", h.totals.Days,
		"snapshots", h.totals.Snapshots,
		"records", h.totals.Records,
		"degraded", h.totals.Degraded,
	)
	return nil
}

// Totals returns a copy of the accumulated counters.
func (h *StatsHook) Totals() HookTotals {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totals
}
