package indicator

import "github.com/quantfoundry/universe-data/internal/model"

// Engine runs a fixed set of indicators over one instrument's window.
// Not safe for concurrent use; create one per worker.
type Engine struct {
	indicators []Indicator
}

// NewEngine creates an engine over the given indicators.
func NewEngine(indicators ...Indicator) *Engine {
	return &Engine{indicators: indicators}
}

// DefaultEngine returns an engine with the six standard indicators.
func DefaultEngine(extremeLookback int) *Engine {
	return NewEngine(
		NewOneOneDot(),
		NewOneOneHigh(),
		NewOneOneLow(),
		NewPL(),
		NewETop(extremeLookback),
		NewEBot(extremeLookback),
	)
}

// Compute updates every indicator with the supplied window and returns the
// readings in registration order. Indicators that cannot be computed report
// status "invalid" with a nil value; Compute never fails.
func (e *Engine) Compute(window []model.IntervalBar) []model.IndicatorReading {
	readings := make([]model.IndicatorReading, 0, len(e.indicators))
	for _, ind := range e.indicators {
		ind.Update(window)
		readings = append(readings, model.IndicatorReading{
			Name:   ind.Name(),
			Value:  ind.Value(),
			Status: ind.Status(),
		})
	}
	return readings
}
