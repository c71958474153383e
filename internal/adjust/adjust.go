package adjust

import (
	"log/slog"
	"sort"

	"github.com/quantfoundry/universe-data/internal/errs"
	"github.com/quantfoundry/universe-data/internal/model"
)

// Adjuster computes split/dividend adjusted price series.
type Adjuster struct {
	logger *slog.Logger
}

// New creates an Adjuster.
func New(logger *slog.Logger) *Adjuster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adjuster{logger: logger}
}

// Adjust walks the price series in date order, maintaining a running factor F
// initialized to 1.0, and returns one AdjustedBar per input bar with
// OHLC scaled by the factor cumulative through that date.
//
// Events dated before the first bar are ignored: every visible price is
// already on the post-event basis, so the earliest bar keeps factor 1.0.
// Events dated between bars (weekends, halts) take effect at the first bar
// on or after their effective date.
func (a *Adjuster) Adjust(prices []model.PriceBar, splits, dividends []model.CorporateAction) ([]model.AdjustedBar, error) {
	if len(prices) == 0 {
		return nil, nil
	}

	for i := 1; i < len(prices); i++ {
		if !prices[i-1].Date.Before(prices[i].Date) {
			return nil, errs.Validationf("price bars for %s not in strictly ascending date order at %s",
				prices[i].Symbol, model.FormatDate(prices[i].Date))
		}
	}

	splitsAt, err := mapToBars(prices, splits, model.ActionSplit)
	if err != nil {
		return nil, err
	}
	dividendsAt, err := mapToBars(prices, dividends, model.ActionDividend)
	if err != nil {
		return nil, err
	}

	out := make([]model.AdjustedBar, len(prices))
	factor := 1.0

	for i, bar := range prices {
		for _, s := range splitsAt[i] {
			factor *= float64(s.Denominator) / float64(s.Numerator)
		}

		if divs := dividendsAt[i]; len(divs) > 0 {
			total := 0.0
			for _, d := range divs {
				total += d.Amount
			}
			if bar.Close > 0 {
				factor *= (bar.Close - total) / bar.Close
			} else {
				a.logger.Warn("dividend adjustment skipped, close not positive",
					"symbol", bar.Symbol,
					"date", model.FormatDate(bar.Date),
					"close", bar.Close,
					"total_dividend", total,
				)
			}
		}

		adjusted := bar
		adjusted.Open = bar.Open * factor
		adjusted.High = bar.High * factor
		adjusted.Low = bar.Low * factor
		adjusted.Close = bar.Close * factor

		out[i] = model.AdjustedBar{
			PriceBar: adjusted,
			Factor:   factor,
			RawOpen:  bar.Open,
			RawHigh:  bar.High,
			RawLow:   bar.Low,
			RawClose: bar.Close,
		}
	}

	return out, nil
}

// mapToBars assigns each action to the index of the first bar on or after its
// effective date. Actions before the first bar or after the last are dropped.
func mapToBars(prices []model.PriceBar, actions []model.CorporateAction, kind model.ActionKind) (map[int][]model.CorporateAction, error) {
	byBar := make(map[int][]model.CorporateAction, len(actions))

	for _, action := range actions {
		if action.Kind != kind {
			return nil, errs.Validationf("corporate action for %s on %s: kind %q, want %q",
				action.Symbol, model.FormatDate(action.Effective), action.Kind, kind)
		}
		if kind == model.ActionSplit && (action.Numerator <= 0 || action.Denominator <= 0) {
			return nil, errs.Validationf("split for %s on %s: ratio %d-for-%d is not positive",
				action.Symbol, model.FormatDate(action.Effective), action.Numerator, action.Denominator)
		}

		if action.Effective.Before(prices[0].Date) {
			continue
		}
		idx := sort.Search(len(prices), func(i int) bool {
			return !prices[i].Date.Before(action.Effective)
		})
		if idx == len(prices) {
			continue
		}
		byBar[idx] = append(byBar[idx], action)
	}

	return byBar, nil
}
