package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
)

// MembershipRepo reads and materializes universe membership data.
type MembershipRepo struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	intervals string
	events    string
}

// NewMembershipRepo creates a repo over the given pool and table mapping.
func NewMembershipRepo(db *pgxpool.Pool, tables *TableResolver, logger *slog.Logger) *MembershipRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &MembershipRepo{
		db:        db,
		logger:    logger,
		intervals: tables.mustResolve(TableMembershipIntervals),
		events:    tables.mustResolve(TableMembershipEvents),
	}
}

// IntervalsAt returns the intervals of the universe covering asOf.
func (r *MembershipRepo) IntervalsAt(ctx context.Context, universeID string, asOf time.Time) ([]model.MembershipInterval, error) {
	sql := fmt.Sprintf(`
		SELECT universe_id, symbol, start_date, end_date FROM %s
		WHERE universe_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date > $2)
		ORDER BY symbol, start_date
	`, r.intervals)

	rows, err := r.db.Query(ctx, sql, universeID, asOf)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()
	return scanIntervals(rows)
}

// AllIntervals returns every interval of the universe, for integrity checks.
func (r *MembershipRepo) AllIntervals(ctx context.Context, universeID string) ([]model.MembershipInterval, error) {
	sql := fmt.Sprintf(`
		SELECT universe_id, symbol, start_date, end_date FROM %s
		WHERE universe_id = $1
		ORDER BY symbol, start_date
	`, r.intervals)

	rows, err := r.db.Query(ctx, sql, universeID)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()
	return scanIntervals(rows)
}

// EventsBetween returns materialized membership events with
// after < effective <= through, in ascending effective order.
func (r *MembershipRepo) EventsBetween(ctx context.Context, universeID string, after, through time.Time) ([]model.MembershipEvent, error) {
	sql := fmt.Sprintf(`
		SELECT universe_id, symbol, effective_date, action FROM %s
		WHERE universe_id = $1 AND effective_date > $2 AND effective_date <= $3
		  AND applied_at IS NOT NULL
		ORDER BY effective_date, symbol
	`, r.events)

	rows, err := r.db.Query(ctx, sql, universeID, after, through)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// PendingEvents returns events not yet folded into the interval table.
func (r *MembershipRepo) PendingEvents(ctx context.Context, universeID string) ([]model.MembershipEvent, error) {
	sql := fmt.Sprintf(`
		SELECT universe_id, symbol, effective_date, action FROM %s
		WHERE universe_id = $1 AND applied_at IS NULL
		ORDER BY effective_date, symbol
	`, r.events)

	rows, err := r.db.Query(ctx, sql, universeID)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// MaterializeEvents folds the universe's pending events with
// effective_date <= through into the interval table inside one transaction
// and returns how many were applied. Later-dated events stay pending. An
// event that contradicts the interval table aborts the whole batch with an
// IntegrityError and nothing is marked applied.
func (r *MembershipRepo) MaterializeEvents(ctx context.Context, universeID string, through time.Time) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	pendingSQL := fmt.Sprintf(`
		SELECT universe_id, symbol, effective_date, action FROM %s
		WHERE universe_id = $1 AND applied_at IS NULL AND effective_date <= $2
		ORDER BY effective_date, symbol
		FOR UPDATE
	`, r.events)

	rows, err := tx.Query(ctx, pendingSQL, universeID, through)
	if err != nil {
		return 0, fmt.Errorf("query pending events: %w", err)
	}
	events, err := scanEvents(rows)
	rows.Close()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, ev := range events {
		open, lastEnd, err := r.intervalStateTx(ctx, tx, ev.UniverseID, ev.Symbol)
		if err != nil {
			return 0, err
		}
		outcome, err := planEvent(ev, open, lastEnd)
		if err != nil {
			return 0, err
		}

		switch outcome {
		case outcomeInsert:
			insertSQL := fmt.Sprintf(`
				INSERT INTO %s (universe_id, symbol, start_date, end_date)
				VALUES ($1, $2, $3, NULL)
				ON CONFLICT (universe_id, symbol, start_date) DO NOTHING
			`, r.intervals)
			if _, err := tx.Exec(ctx, insertSQL, ev.UniverseID, ev.Symbol, ev.Effective); err != nil {
				return 0, fmt.Errorf("apply add for %s: %w", ev.Symbol, err)
			}
		case outcomeClose:
			closeSQL := fmt.Sprintf(`
				UPDATE %s SET end_date = $3
				WHERE universe_id = $1 AND symbol = $2 AND end_date IS NULL
			`, r.intervals)
			if _, err := tx.Exec(ctx, closeSQL, ev.UniverseID, ev.Symbol, ev.Effective); err != nil {
				return 0, fmt.Errorf("apply remove for %s: %w", ev.Symbol, err)
			}
		case outcomeNoop:
		}

		markSQL := fmt.Sprintf(`
			UPDATE %s SET applied_at = now()
			WHERE universe_id = $1 AND symbol = $2 AND effective_date = $3 AND action = $4
		`, r.events)
		if _, err := tx.Exec(ctx, markSQL, ev.UniverseID, ev.Symbol, ev.Effective, string(ev.Action)); err != nil {
			return 0, fmt.Errorf("mark applied for %s: %w", ev.Symbol, err)
		}
		applied++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	if applied > 0 {
		r.logger.Info("membership events materialized",
			"universe", universeID,
			"through", model.FormatDate(through),
			"applied", applied)
	}
	return applied, nil
}

// intervalStateTx loads the symbol's open interval (nil when none) and the
// latest closed end date within the transaction.
func (r *MembershipRepo) intervalStateTx(ctx context.Context, tx pgx.Tx, universeID, symbol string) (*model.MembershipInterval, *time.Time, error) {
	openSQL := fmt.Sprintf(`
		SELECT universe_id, symbol, start_date, end_date FROM %s
		WHERE universe_id = $1 AND symbol = $2 AND end_date IS NULL
	`, r.intervals)

	rows, err := tx.Query(ctx, openSQL, universeID, symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("query open interval: %w", err)
	}
	openIntervals, err := scanIntervals(rows)
	rows.Close()
	if err != nil {
		return nil, nil, err
	}
	if len(openIntervals) > 1 {
		return nil, nil, errs.Integrityf("multiple open intervals for %s in universe %s", symbol, universeID)
	}

	var open *model.MembershipInterval
	if len(openIntervals) == 1 {
		open = &openIntervals[0]
	}

	lastEndSQL := fmt.Sprintf(`
		SELECT MAX(end_date) FROM %s WHERE universe_id = $1 AND symbol = $2
	`, r.intervals)

	var lastEnd *time.Time
	if err := tx.QueryRow(ctx, lastEndSQL, universeID, symbol).Scan(&lastEnd); err != nil {
		return nil, nil, fmt.Errorf("query last end: %w", err)
	}
	return open, lastEnd, nil
}

// eventOutcome is the interval-table effect of one membership event.
type eventOutcome int

const (
	outcomeInsert eventOutcome = iota // open a new interval
	outcomeClose                      // close the open interval
	outcomeNoop                       // already materialized
)

// planEvent decides how a pending event maps onto the symbol's current
// interval state: open is the open interval if any, lastEnd the latest
// closed end date. Contradictions are IntegrityErrors, repeats are no-ops.
func planEvent(ev model.MembershipEvent, open *model.MembershipInterval, lastEnd *time.Time) (eventOutcome, error) {
	switch ev.Action {
	case model.MembershipAdd:
		if open == nil {
			return outcomeInsert, nil
		}
		if open.Start.Equal(ev.Effective) {
			return outcomeNoop, nil
		}
		return 0, errs.Integrityf("add event for %s on %s conflicts with open interval started %s",
			ev.Symbol, model.FormatDate(ev.Effective), model.FormatDate(open.Start))

	case model.MembershipRemove:
		if open != nil {
			if ev.Effective.Before(open.Start) {
				return 0, errs.Integrityf("remove event for %s on %s precedes interval start %s",
					ev.Symbol, model.FormatDate(ev.Effective), model.FormatDate(open.Start))
			}
			return outcomeClose, nil
		}
		if lastEnd != nil && lastEnd.Equal(ev.Effective) {
			return outcomeNoop, nil
		}
		return 0, errs.Integrityf("remove event for %s on %s has no open interval",
			ev.Symbol, model.FormatDate(ev.Effective))

	default:
		return 0, errs.Validationf("unknown membership action %q", ev.Action)
	}
}

func scanIntervals(rows pgx.Rows) ([]model.MembershipInterval, error) {
	var out []model.MembershipInterval
	for rows.Next() {
		var iv model.MembershipInterval
		if err := rows.Scan(&iv.UniverseID, &iv.Symbol, &iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan interval: %w", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read intervals: %w", err)
	}
	return out, nil
}

func scanEvents(rows pgx.Rows) ([]model.MembershipEvent, error) {
	var out []model.MembershipEvent
	for rows.Next() {
		var ev model.MembershipEvent
		var action string
		if err := rows.Scan(&ev.UniverseID, &ev.Symbol, &ev.Effective, &action); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Action = model.MembershipAction(action)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}
