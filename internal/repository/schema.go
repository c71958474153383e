package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the reference-data tables for the resolver's
// environment if they do not exist yet. It is safe to call on every start.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool, tables *TableResolver, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	intervals := tables.mustResolve(TableMembershipIntervals)
	events := tables.mustResolve(TableMembershipEvents)
	actions := tables.mustResolve(TableCorporateActions)
	prices := tables.mustResolve(TablePriceBars)

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			universe_id  TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			start_date   DATE NOT NULL,
			end_date     DATE,
			UNIQUE (universe_id, symbol, start_date)
		)`, intervals),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_cover_idx ON %s (universe_id, start_date)`,
			intervals, intervals),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			universe_id    TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			effective_date DATE NOT NULL,
			action         TEXT NOT NULL,
			applied_at     TIMESTAMPTZ,
			UNIQUE (universe_id, symbol, effective_date, action)
		)`, events),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol         TEXT NOT NULL,
			effective_date DATE NOT NULL,
			kind           TEXT NOT NULL,
			numerator      BIGINT NOT NULL DEFAULT 0,
			denominator    BIGINT NOT NULL DEFAULT 0,
			amount         DOUBLE PRECISION NOT NULL DEFAULT 0,
			UNIQUE (symbol, effective_date, kind)
		)`, actions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol     TEXT NOT NULL,
			trade_date DATE NOT NULL,
			open       DOUBLE PRECISION NOT NULL,
			high       DOUBLE PRECISION NOT NULL,
			low        DOUBLE PRECISION NOT NULL,
			close      DOUBLE PRECISION NOT NULL,
			volume     BIGINT NOT NULL,
			market_cap DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, trade_date)
		)`, prices),
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	logger.Debug("schema ensured", "environment", tables.Environment())
	return nil
}
