package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
)

// ActionRepo reads corporate actions.
type ActionRepo struct {
	db     *pgxpool.Pool
	logger *slog.Logger

	actions string
}

// NewActionRepo creates a repo over the given pool and table mapping.
func NewActionRepo(db *pgxpool.Pool, tables *TableResolver, logger *slog.Logger) *ActionRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionRepo{
		db:      db,
		logger:  logger,
		actions: tables.mustResolve(TableCorporateActions),
	}
}

// History returns the symbol's splits and dividends in ascending effective
// order, partitioned by kind.
func (r *ActionRepo) History(ctx context.Context, symbol string) (splits, dividends []model.CorporateAction, err error) {
	sql := fmt.Sprintf(`
		SELECT symbol, effective_date, kind, numerator, denominator, amount FROM %s
		WHERE symbol = $1
		ORDER BY effective_date
	`, r.actions)

	rows, err := r.db.Query(ctx, sql, symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("query corporate actions: %w", err)
	}
	defer rows.Close()

	var all []model.CorporateAction
	for rows.Next() {
		var a model.CorporateAction
		var kind string
		if err := rows.Scan(&a.Symbol, &a.Effective, &kind, &a.Numerator, &a.Denominator, &a.Amount); err != nil {
			return nil, nil, fmt.Errorf("scan corporate action: %w", err)
		}
		a.Kind = model.ActionKind(kind)
		all = append(all, a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read corporate actions: %w", err)
	}

	return partitionActions(all)
}

// partitionActions splits a mixed action list by kind. A kind outside
// split/dividend is corrupt reference data.
func partitionActions(all []model.CorporateAction) (splits, dividends []model.CorporateAction, err error) {
	for _, a := range all {
		switch a.Kind {
		case model.ActionSplit:
			splits = append(splits, a)
		case model.ActionDividend:
			dividends = append(dividends, a)
		default:
			return nil, nil, errs.Integrityf("corporate action for %s on %s has unknown kind %q",
				a.Symbol, model.FormatDate(a.Effective), a.Kind)
		}
	}
	return splits, dividends, nil
}
