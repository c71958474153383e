package universe

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
)

// IntervalSource provides membership reference data for a universe.
type IntervalSource interface {
	// IntervalsAt returns every membership interval of the universe that
	// covers asOf. Order is unspecified.
	IntervalsAt(ctx context.Context, universeID string, asOf time.Time) ([]model.MembershipInterval, error)

	// EventsBetween returns membership events with after < effective <= through,
	// in ascending effective order.
	EventsBetween(ctx context.Context, universeID string, after, through time.Time) ([]model.MembershipEvent, error)
}

// StatsSource provides auxiliary per-symbol statistics as of a date.
type StatsSource interface {
	SymbolStats(ctx context.Context, symbol string, asOf time.Time) (model.SymbolStats, error)
}

// Resolver answers point-in-time membership queries and maintains an
// incremental cursor for sequential date walks.
type Resolver struct {
	source IntervalSource
	stats  StatsSource
	logger *slog.Logger

	mu    sync.RWMutex
	state *cursorState
}

// cursorState is the resolver's position after the last Advance call.
type cursorState struct {
	universeID string
	date       time.Time
	active     map[string]struct{}
	stats      map[string]model.SymbolStats
}

// NewResolver creates a resolver over the given sources. stats may be nil,
// in which case no auxiliary statistics are tracked.
func NewResolver(source IntervalSource, stats StatsSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source: source,
		stats:  stats,
		logger: logger,
	}
}

// Resolve computes the active symbol set of the universe as of the given
// date, from scratch. It does not touch the cursor. The returned slice is
// sorted.
func (r *Resolver) Resolve(ctx context.Context, universeID string, asOf time.Time) ([]string, error) {
	set, err := r.resolveSet(ctx, universeID, model.MidnightUTC(asOf))
	if err != nil {
		return nil, err
	}
	return sortedSymbols(set), nil
}

// Advance moves the cursor to newDate and returns the active symbol set
// there, sorted. When the cursor already sits on the same universe at an
// earlier or equal date, only the membership events in between are applied.
// Any other call shape (first use, different universe, earlier date) forces
// a full resolution and resets the cursor.
func (r *Resolver) Advance(ctx context.Context, universeID string, newDate time.Time) ([]string, error) {
	newDate = model.MidnightUTC(newDate)

	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state
	if st == nil || st.universeID != universeID || newDate.Before(st.date) {
		if st != nil && st.universeID == universeID && newDate.Before(st.date) {
			r.logger.Debug("cursor moved backward, resolving from scratch",
				"universe", universeID,
				"cursor", model.FormatDate(st.date),
				"date", model.FormatDate(newDate))
		}
		return r.resetLocked(ctx, universeID, newDate)
	}

	events, err := r.source.EventsBetween(ctx, universeID, st.date, newDate)
	if err != nil {
		return nil, fmt.Errorf("load membership events: %w", err)
	}

	var added []string
	for _, ev := range events {
		switch ev.Action {
		case model.MembershipAdd:
			if _, ok := st.active[ev.Symbol]; ok {
				return nil, errs.Integrityf("add event for already-active symbol %s in universe %s on %s",
					ev.Symbol, universeID, model.FormatDate(ev.Effective))
			}
			st.active[ev.Symbol] = struct{}{}
			added = append(added, ev.Symbol)
		case model.MembershipRemove:
			if _, ok := st.active[ev.Symbol]; !ok {
				return nil, errs.Integrityf("remove event for inactive symbol %s in universe %s on %s",
					ev.Symbol, universeID, model.FormatDate(ev.Effective))
			}
			delete(st.active, ev.Symbol)
			delete(st.stats, ev.Symbol)
		default:
			return nil, errs.Validationf("unknown membership action %q", ev.Action)
		}
	}

	r.refreshStatsLocked(ctx, st, added, newDate)
	st.date = newDate

	r.logger.Debug("cursor advanced",
		"universe", universeID,
		"date", model.FormatDate(newDate),
		"events", len(events),
		"active", len(st.active))
	return sortedSymbols(st.active), nil
}

// ActiveSet returns the symbols at the current cursor position, sorted.
// It returns nil when the cursor has never been set.
func (r *Resolver) ActiveSet() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil
	}
	return sortedSymbols(r.state.active)
}

// Stats returns the cached statistics for an active symbol.
func (r *Resolver) Stats(symbol string) (model.SymbolStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return model.SymbolStats{}, false
	}
	s, ok := r.state.stats[symbol]
	return s, ok
}

// Cursor reports the resolver's current position.
func (r *Resolver) Cursor() (universeID string, date time.Time, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return "", time.Time{}, false
	}
	return r.state.universeID, r.state.date, true
}

// resetLocked rebuilds the cursor from scratch at the given position.
func (r *Resolver) resetLocked(ctx context.Context, universeID string, asOf time.Time) ([]string, error) {
	set, err := r.resolveSet(ctx, universeID, asOf)
	if err != nil {
		return nil, err
	}

	st := &cursorState{
		universeID: universeID,
		date:       asOf,
		active:     set,
		stats:      make(map[string]model.SymbolStats, len(set)),
	}
	r.refreshStatsLocked(ctx, st, sortedSymbols(set), asOf)
	r.state = st

	r.logger.Debug("cursor reset",
		"universe", universeID,
		"date", model.FormatDate(asOf),
		"active", len(set))
	return sortedSymbols(set), nil
}

// resolveSet loads the covering intervals and folds them into a symbol set,
// rejecting duplicate coverage.
func (r *Resolver) resolveSet(ctx context.Context, universeID string, asOf time.Time) (map[string]struct{}, error) {
	intervals, err := r.source.IntervalsAt(ctx, universeID, asOf)
	if err != nil {
		return nil, fmt.Errorf("load membership intervals: %w", err)
	}

	set := make(map[string]struct{}, len(intervals))
	for _, iv := range intervals {
		// Only intervals covering asOf count toward membership.
		if !iv.Covers(asOf) {
			continue
		}
		if _, dup := set[iv.Symbol]; dup {
			return nil, errs.Integrityf("overlapping membership intervals for %s in universe %s at %s",
				iv.Symbol, universeID, model.FormatDate(asOf))
		}
		set[iv.Symbol] = struct{}{}
	}
	return set, nil
}

// refreshStatsLocked fetches statistics for the given symbols, skipping any
// that are no longer active. Fetch failures degrade to a warning so that a
// single symbol cannot abort a walk.
func (r *Resolver) refreshStatsLocked(ctx context.Context, st *cursorState, symbols []string, asOf time.Time) {
	if r.stats == nil {
		return
	}
	for _, sym := range symbols {
		if _, ok := st.active[sym]; !ok {
			continue
		}
		stats, err := r.stats.SymbolStats(ctx, sym, asOf)
		if err != nil {
			r.logger.Warn("symbol stats refresh failed", "symbol", sym, "err", err)
			continue
		}
		st.stats[sym] = stats
	}
}

func sortedSymbols(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
