package indicator

import "github.com/quantfoundry/universe-data/internal/model"

// Window is a bounded per-instrument bar history. Appending beyond capacity
// drops the oldest bar. A window is owned by a single worker at a time and
// is not safe for concurrent use.
type Window struct {
	buf   []model.IntervalBar
	head  int // oldest bar position
	count int
}

// NewWindow creates a window holding at most capacity bars.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]model.IntervalBar, capacity)}
}

// Append adds a bar, evicting the oldest when full.
func (w *Window) Append(bar model.IntervalBar) {
	tail := (w.head + w.count) % len(w.buf)
	w.buf[tail] = bar

	if w.count < len(w.buf) {
		w.count++
		return
	}
	// Full: the slot just written was the oldest.
	w.head = (w.head + 1) % len(w.buf)
}

// Bars returns the retained history in chronological order.
// The returned slice is a copy; callers may hold it across appends.
func (w *Window) Bars() []model.IntervalBar {
	out := make([]model.IntervalBar, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Last returns the most recent bar.
func (w *Window) Last() (model.IntervalBar, bool) {
	if w.count == 0 {
		return model.IntervalBar{}, false
	}
	return w.buf[(w.head+w.count-1)%len(w.buf)], true
}

// Len returns the number of retained bars.
func (w *Window) Len() int { return w.count }

// Cap returns the maximum number of retained bars.
func (w *Window) Cap() int { return len(w.buf) }
