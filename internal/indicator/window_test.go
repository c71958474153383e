package indicator

import (
	"testing"

	"github.com/quantfoundry/universe-data/internal/model"
)

func TestWindow_AppendWithinCapacity(t *testing.T) {
	w := NewWindow(5)

	for i := 0; i < 3; i++ {
		w.Append(seqBar(i, model.BarOK))
	}

	if w.Len() != 3 {
		t.Errorf("Len() = %d, want 3", w.Len())
	}
	if w.Cap() != 5 {
		t.Errorf("Cap() = %d, want 5", w.Cap())
	}

	bars := w.Bars()
	for i, b := range bars {
		if b.Close != float64(7+i) {
			t.Errorf("bars[%d].Close = %v, want %v", i, b.Close, 7+i)
		}
	}
}

func TestWindow_OverflowDropsOldest(t *testing.T) {
	w := NewWindow(3)

	// Append 10 bars into capacity 3; only the last 3 survive.
	for i := 0; i < 10; i++ {
		w.Append(seqBar(i, model.BarOK))
	}

	if w.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", w.Len())
	}

	bars := w.Bars()
	for i, want := range []float64{14, 15, 16} { // closes of bars 7, 8, 9
		if bars[i].Close != want {
			t.Errorf("bars[%d].Close = %v, want %v", i, bars[i].Close, want)
		}
	}
}

func TestWindow_Last(t *testing.T) {
	w := NewWindow(2)

	if _, ok := w.Last(); ok {
		t.Error("Last() on empty window reported ok")
	}

	w.Append(seqBar(0, model.BarOK))
	w.Append(seqBar(1, model.BarOK))
	w.Append(seqBar(2, model.BarOK))

	last, ok := w.Last()
	if !ok || last.Close != 9 {
		t.Errorf("Last() = %v, %v, want close 9", last.Close, ok)
	}
}

func TestWindow_BarsReturnsCopy(t *testing.T) {
	w := NewWindow(3)
	w.Append(seqBar(0, model.BarOK))

	bars := w.Bars()
	bars[0].Close = -1

	fresh := w.Bars()
	if fresh[0].Close != 7 {
		t.Errorf("window mutated through returned slice: close = %v", fresh[0].Close)
	}
}

func TestWindow_MinimumCapacity(t *testing.T) {
	w := NewWindow(0)
	if w.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", w.Cap())
	}

	w.Append(seqBar(0, model.BarOK))
	w.Append(seqBar(1, model.BarOK))
	if w.Len() != 1 {
		t.Errorf("Len() = %d, want 1", w.Len())
	}
	if last, _ := w.Last(); last.Close != 8 {
		t.Errorf("Last().Close = %v, want 8", last.Close)
	}
}
