package indicator

import "github.com/quantfoundry/universe-data/internal/model"

const (
	// trailingBars is the number of bars averaged by pl, e_top and e_bot.
	trailingBars = 3

	// DefaultLookback is the default e_top/e_bot lookback window.
	DefaultLookback = 5
)

// Indicator computes one point-estimate signal from a window of interval
// bars. Update replaces any previous window; indicators never retain bars
// across calls, only the most recent computed result.
type Indicator interface {
	Name() string
	Update(window []model.IntervalBar)
	Value() *float64
	Status() model.IndicatorStatus
}

// pivot is the (high+low+close)/3 midpoint of a single bar.
func pivot(b model.IntervalBar) float64 {
	return (b.High + b.Low + b.Close) / 3
}

// derivedHigh projects an upper level from a single bar.
func derivedHigh(b model.IntervalBar) float64 {
	return 2*pivot(b) - b.Low
}

// derivedLow projects a lower level from a single bar.
func derivedLow(b model.IntervalBar) float64 {
	return 2*pivot(b) - b.High
}

// result carries the latest computed value/status pair.
// A fresh result is invalid until the first successful Update.
type result struct {
	value  *float64
	status model.IndicatorStatus
}

func newResult() result {
	return result{status: model.IndicatorInvalid}
}

func (r *result) set(v float64) {
	r.value = &v
	r.status = model.IndicatorOK
}

func (r *result) invalidate() {
	r.value = nil
	r.status = model.IndicatorInvalid
}

func (r *result) Value() *float64 { return r.value }

func (r *result) Status() model.IndicatorStatus { return r.status }

// lastBar returns the most recent bar of a window.
func lastBar(window []model.IntervalBar) (model.IntervalBar, bool) {
	if len(window) == 0 {
		return model.IntervalBar{}, false
	}
	return window[len(window)-1], true
}

// -----------------------------------------------------------------------------
// OneOneDot
// -----------------------------------------------------------------------------

// OneOneDot is the pivot of the most recent bar.
type OneOneDot struct{ result }

func NewOneOneDot() *OneOneDot {
	return &OneOneDot{result: newResult()}
}

func (x *OneOneDot) Name() string { return model.IndOneOneDot }

func (x *OneOneDot) Update(window []model.IntervalBar) {
	last, ok := lastBar(window)
	if !ok || last.Status != model.BarOK {
		x.invalidate()
		return
	}
	x.set(pivot(last))
}

// -----------------------------------------------------------------------------
// OneOneHigh / OneOneLow
// -----------------------------------------------------------------------------

// OneOneHigh is 2*pivot - low of the most recent bar. Only the most recent
// bar's status matters; older bars in the window are irrelevant.
type OneOneHigh struct{ result }

func NewOneOneHigh() *OneOneHigh {
	return &OneOneHigh{result: newResult()}
}

func (x *OneOneHigh) Name() string { return model.IndOneOneHigh }

func (x *OneOneHigh) Update(window []model.IntervalBar) {
	last, ok := lastBar(window)
	if !ok || last.Status != model.BarOK {
		x.invalidate()
		return
	}
	x.set(derivedHigh(last))
}

// OneOneLow is 2*pivot - high of the most recent bar.
type OneOneLow struct{ result }

func NewOneOneLow() *OneOneLow {
	return &OneOneLow{result: newResult()}
}

func (x *OneOneLow) Name() string { return model.IndOneOneLow }

func (x *OneOneLow) Update(window []model.IntervalBar) {
	last, ok := lastBar(window)
	if !ok || last.Status != model.BarOK {
		x.invalidate()
		return
	}
	x.set(derivedLow(last))
}

// -----------------------------------------------------------------------------
// PL
// -----------------------------------------------------------------------------

// PL is the mean pivot over the trailing 3 bars. It needs 3 bars, every one
// of them exactly "ok".
type PL struct{ result }

func NewPL() *PL {
	return &PL{result: newResult()}
}

func (x *PL) Name() string { return model.IndPL }

func (x *PL) Update(window []model.IntervalBar) {
	if len(window) < trailingBars {
		x.invalidate()
		return
	}
	tail := window[len(window)-trailingBars:]
	sum := 0.0
	for _, b := range tail {
		if b.Status != model.BarOK {
			x.invalidate()
			return
		}
		sum += pivot(b)
	}
	x.set(sum / trailingBars)
}

// -----------------------------------------------------------------------------
// ETop / EBot
// -----------------------------------------------------------------------------

// ETop is the mean one_one_high over the trailing 3 bars, drawn from a
// lookback window that must be fully present with every bar "ok".
type ETop struct {
	result
	lookback int
}

func NewETop(lookback int) *ETop {
	if lookback < trailingBars {
		lookback = trailingBars
	}
	return &ETop{result: newResult(), lookback: lookback}
}

func (x *ETop) Name() string { return model.IndETop }

func (x *ETop) Update(window []model.IntervalBar) {
	tail, ok := trailingOK(window, x.lookback)
	if !ok {
		x.invalidate()
		return
	}
	sum := 0.0
	for _, b := range tail {
		sum += derivedHigh(b)
	}
	x.set(sum / trailingBars)
}

// EBot is the mean one_one_low over the trailing 3 bars, drawn from a
// lookback window that must be fully present with every bar "ok".
type EBot struct {
	result
	lookback int
}

func NewEBot(lookback int) *EBot {
	if lookback < trailingBars {
		lookback = trailingBars
	}
	return &EBot{result: newResult(), lookback: lookback}
}

func (x *EBot) Name() string { return model.IndEBot }

func (x *EBot) Update(window []model.IntervalBar) {
	tail, ok := trailingOK(window, x.lookback)
	if !ok {
		x.invalidate()
		return
	}
	sum := 0.0
	for _, b := range tail {
		sum += derivedLow(b)
	}
	x.set(sum / trailingBars)
}

// trailingOK checks the window holds at least lookback bars with every bar in
// the lookback "ok", and returns the trailing bars to average.
func trailingOK(window []model.IntervalBar, lookback int) ([]model.IntervalBar, bool) {
	if len(window) < lookback {
		return nil, false
	}
	recent := window[len(window)-lookback:]
	for _, b := range recent {
		if b.Status != model.BarOK {
			return nil, false
		}
	}
	return recent[len(recent)-trailingBars:], true
}
