package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
)

// DefaultStatsWindow is the trailing bar count used for average dollar
// volume when no window is configured.
const DefaultStatsWindow = 20

// PriceRepo reads daily price bars and derives per-symbol statistics.
type PriceRepo struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	prices      string
	statsWindow int
}

// NewPriceRepo creates a repo over the given pool and table mapping.
// statsWindow bounds the trailing average; values below 1 fall back to
// DefaultStatsWindow.
func NewPriceRepo(db *pgxpool.Pool, tables *TableResolver, statsWindow int, logger *slog.Logger) *PriceRepo {
	if logger == nil {
		logger = slog.Default()
	}
	if statsWindow < 1 {
		statsWindow = DefaultStatsWindow
	}
	return &PriceRepo{
		db:          db,
		logger:      logger,
		prices:      tables.mustResolve(TablePriceBars),
		statsWindow: statsWindow,
	}
}

// History returns the symbol's bars with trade_date <= through, ascending.
func (r *PriceRepo) History(ctx context.Context, symbol string, through time.Time) ([]model.PriceBar, error) {
	sql := fmt.Sprintf(`
		SELECT symbol, trade_date, open, high, low, close, volume, market_cap FROM %s
		WHERE symbol = $1 AND trade_date <= $2
		ORDER BY trade_date
	`, r.prices)

	rows, err := r.db.Query(ctx, sql, symbol, through)
	if err != nil {
		return nil, fmt.Errorf("query price bars: %w", err)
	}
	defer rows.Close()

	var out []model.PriceBar
	for rows.Next() {
		var b model.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.MarketCap); err != nil {
			return nil, fmt.Errorf("scan price bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read price bars: %w", err)
	}
	return out, nil
}

// SymbolStats returns last close, market cap, and trailing average dollar
// volume for the symbol as of the given date. A symbol with no bars on or
// before asOf is a NotFoundError.
func (r *PriceRepo) SymbolStats(ctx context.Context, symbol string, asOf time.Time) (model.SymbolStats, error) {
	lastSQL := fmt.Sprintf(`
		SELECT close, market_cap FROM %s
		WHERE symbol = $1 AND trade_date <= $2
		ORDER BY trade_date DESC
		LIMIT 1
	`, r.prices)

	var stats model.SymbolStats
	err := r.db.QueryRow(ctx, lastSQL, symbol, asOf).Scan(&stats.LastClose, &stats.MarketCap)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SymbolStats{}, errs.NotFound("price history", symbol)
	}
	if err != nil {
		return model.SymbolStats{}, fmt.Errorf("query last close: %w", err)
	}

	avgSQL := fmt.Sprintf(`
		SELECT COALESCE(AVG(close * volume), 0) FROM (
			SELECT close, volume FROM %s
			WHERE symbol = $1 AND trade_date <= $2
			ORDER BY trade_date DESC
			LIMIT $3
		) recent
	`, r.prices)

	if err := r.db.QueryRow(ctx, avgSQL, symbol, asOf, r.statsWindow).Scan(&stats.AvgDollarVolume); err != nil {
		return model.SymbolStats{}, fmt.Errorf("query dollar volume: %w", err)
	}

	stats.AsOf = model.MidnightUTC(asOf)
	return stats, nil
}
