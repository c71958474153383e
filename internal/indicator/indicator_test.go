package indicator

import (
	"testing"

	"github.com/quantfoundry/universe-data/internal/model"
)

// seqBar builds a bar with pivot 7+i, derived high 10+i, derived low 4+i.
func seqBar(i int, status model.BarStatus) model.IntervalBar {
	return model.IntervalBar{
		InstrumentID: "AAA",
		High:         float64(10 + i),
		Low:          float64(4 + i),
		Close:        float64(7 + i),
		Status:       status,
	}
}

func okBars(n int) []model.IntervalBar {
	bars := make([]model.IntervalBar, n)
	for i := range bars {
		bars[i] = seqBar(i, model.BarOK)
	}
	return bars
}

func assertValue(t *testing.T, ind Indicator, want float64) {
	t.Helper()
	if ind.Status() != model.IndicatorOK {
		t.Fatalf("%s status = %q, want ok", ind.Name(), ind.Status())
	}
	if ind.Value() == nil {
		t.Fatalf("%s value = nil, want %v", ind.Name(), want)
	}
	if *ind.Value() != want {
		t.Errorf("%s value = %v, want %v", ind.Name(), *ind.Value(), want)
	}
}

func assertInvalid(t *testing.T, ind Indicator) {
	t.Helper()
	if ind.Status() != model.IndicatorInvalid {
		t.Errorf("%s status = %q, want invalid", ind.Name(), ind.Status())
	}
	if ind.Value() != nil {
		t.Errorf("%s value = %v, want nil", ind.Name(), *ind.Value())
	}
}

func TestIndicatorsStartInvalid(t *testing.T) {
	for _, ind := range []Indicator{NewOneOneDot(), NewOneOneHigh(), NewOneOneLow(), NewPL(), NewETop(5), NewEBot(5)} {
		assertInvalid(t, ind)
	}
}

func TestOneOneDot(t *testing.T) {
	tests := []struct {
		name    string
		window  []model.IntervalBar
		want    float64
		invalid bool
	}{
		{name: "empty window", window: nil, invalid: true},
		{name: "single ok bar", window: okBars(1), want: 7},
		{name: "last of many", window: okBars(4), want: 10},
		{name: "uppercase OK rejected", window: []model.IntervalBar{seqBar(0, "OK")}, invalid: true},
		{name: "mixed case Ok rejected", window: []model.IntervalBar{seqBar(0, "Ok")}, invalid: true},
		{name: "empty status rejected", window: []model.IntervalBar{seqBar(0, "")}, invalid: true},
		{name: "invalid status rejected", window: []model.IntervalBar{seqBar(0, model.BarInvalid)}, invalid: true},
		{
			name:   "older bars irrelevant",
			window: []model.IntervalBar{seqBar(0, model.BarInvalid), seqBar(1, "OK"), seqBar(2, model.BarOK)},
			want:   9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := NewOneOneDot()
			ind.Update(tt.window)
			if tt.invalid {
				assertInvalid(t, ind)
			} else {
				assertValue(t, ind, tt.want)
			}
		})
	}
}

func TestOneOneHighLow(t *testing.T) {
	// Last bar: pivot 9, low 6, high 12.
	window := []model.IntervalBar{seqBar(0, model.BarInvalid), seqBar(2, model.BarOK)}

	high := NewOneOneHigh()
	high.Update(window)
	assertValue(t, high, 12) // 2*9 - 6

	low := NewOneOneLow()
	low.Update(window)
	assertValue(t, low, 6) // 2*9 - 12

	// Only the most recent bar's status matters.
	bad := []model.IntervalBar{seqBar(0, model.BarOK), seqBar(1, model.BarInvalid)}
	high.Update(bad)
	assertInvalid(t, high)
	low.Update(bad)
	assertInvalid(t, low)
}

func TestPL(t *testing.T) {
	tests := []struct {
		name    string
		window  []model.IntervalBar
		want    float64
		invalid bool
	}{
		{name: "three ok bars", window: okBars(3), want: 8}, // pivots 7,8,9
		{name: "two bars", window: okBars(2), invalid: true},
		{name: "empty", window: nil, invalid: true},
		{
			name:    "middle bar uppercase OK",
			window:  []model.IntervalBar{seqBar(0, model.BarOK), seqBar(1, "OK"), seqBar(2, model.BarOK)},
			invalid: true,
		},
		{
			name:    "last bar invalid",
			window:  []model.IntervalBar{seqBar(0, model.BarOK), seqBar(1, model.BarOK), seqBar(2, model.BarInvalid)},
			invalid: true,
		},
		{
			name:   "bar before trailing three may be bad",
			window: append([]model.IntervalBar{seqBar(9, model.BarInvalid)}, okBars(3)...),
			want:   8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := NewPL()
			ind.Update(tt.window)
			if tt.invalid {
				assertInvalid(t, ind)
			} else {
				assertValue(t, ind, tt.want)
			}
		})
	}
}

func TestETopEBot(t *testing.T) {
	t.Run("five ok bars", func(t *testing.T) {
		window := okBars(5) // derived highs 10..14, lows 4..8

		top := NewETop(5)
		top.Update(window)
		assertValue(t, top, 13) // mean(12,13,14)

		bot := NewEBot(5)
		bot.Update(window)
		assertValue(t, bot, 7) // mean(6,7,8)
	})

	t.Run("short window invalid", func(t *testing.T) {
		top := NewETop(5)
		top.Update(okBars(4))
		assertInvalid(t, top)
	})

	t.Run("bad bar inside lookback invalid", func(t *testing.T) {
		// Trailing 3 are ok, but the 5-bar lookback holds an invalid bar.
		window := okBars(5)
		window[1].Status = model.BarInvalid

		top := NewETop(5)
		top.Update(window)
		assertInvalid(t, top)

		bot := NewEBot(5)
		bot.Update(window)
		assertInvalid(t, bot)
	})

	t.Run("bad bar outside lookback ignored", func(t *testing.T) {
		window := append([]model.IntervalBar{seqBar(9, model.BarInvalid)}, okBars(5)...)

		top := NewETop(5)
		top.Update(window)
		assertValue(t, top, 13)
	})

	t.Run("configurable lookback", func(t *testing.T) {
		top := NewETop(4)
		top.Update(okBars(4)) // derived highs 10..13
		assertValue(t, top, 12)
	})

	t.Run("lookback floor at three", func(t *testing.T) {
		top := NewETop(1)
		top.Update(okBars(2))
		assertInvalid(t, top)
		top.Update(okBars(3))
		assertValue(t, top, 11)
	})
}

func TestEngineCompute(t *testing.T) {
	engine := DefaultEngine(5)

	readings := engine.Compute(okBars(5))
	wantNames := []string{
		model.IndOneOneDot, model.IndOneOneHigh, model.IndOneOneLow,
		model.IndPL, model.IndETop, model.IndEBot,
	}
	if len(readings) != len(wantNames) {
		t.Fatalf("Compute returned %d readings, want %d", len(readings), len(wantNames))
	}
	wantValues := []float64{11, 14, 8, 10, 13, 7}
	for i, r := range readings {
		if r.Name != wantNames[i] {
			t.Errorf("readings[%d].Name = %q, want %q", i, r.Name, wantNames[i])
		}
		if r.Status != model.IndicatorOK || r.Value == nil {
			t.Errorf("readings[%d] = %+v, want ok", i, r)
			continue
		}
		if *r.Value != wantValues[i] {
			t.Errorf("%s = %v, want %v", r.Name, *r.Value, wantValues[i])
		}
	}

	// Degraded window never errors, just goes invalid.
	readings = engine.Compute(nil)
	for _, r := range readings {
		if r.Status != model.IndicatorInvalid || r.Value != nil {
			t.Errorf("%s on empty window = %+v, want invalid/nil", r.Name, r)
		}
	}
}
