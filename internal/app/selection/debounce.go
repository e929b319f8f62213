package selection

import (
	"time"

	zlog "github.com/rs/zerolog/log"
)

// DefaultClickWindow is how long a single click waits for a possible second click.
const DefaultClickWindow = 100 * time.Millisecond

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Stopper

// WallClock schedules callbacks with time.AfterFunc.
func WallClock(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Debouncer defers single-click effects for a short window so a double-click
// can cancel them.
//
// The timer callback does not apply anything itself: it hands its token to
// post, and the owner calls Fire with that token from its own command loop.
// A token invalidated by DoubleClick or Close is rejected by Fire, so a timer
// that fired just before the double-click arrived has no effect.
//
// All methods except the posted callback must be called from the owner's loop.
type Debouncer struct {
	window time.Duration
	after  AfterFunc
	post   func(token uint64)

	token   uint64
	pending *Click
	timer   Stopper
	closed  bool
}

// NewDebouncer creates a debouncer. post is called from the timer goroutine.
func NewDebouncer(window time.Duration, after AfterFunc, post func(token uint64)) *Debouncer {
	if after == nil {
		after = WallClock
	}
	if window < 0 {
		window = 0
	}
	return &Debouncer{
		window: window,
		after:  after,
		post:   post,
	}
}

// Click schedules the effect of c unless a click is already pending.
// It returns true when c was scheduled.
func (d *Debouncer) Click(c Click) bool {
	if d.closed || d.pending != nil {
		return false
	}

	d.token++
	token := d.token
	d.pending = &c
	d.timer = d.after(d.window, func() {
		d.post(token)
	})
	return true
}

// DoubleClick cancels the pending single click, if any.
func (d *Debouncer) DoubleClick() {
	if d.pending != nil {
		zlog.Debug().Msgf("selection: single click suppressed by double click: unique_id=%s", d.pending.UniqueID)
	}
	d.cancel()
}

// Cancel drops the pending single click, if any. The owner calls it when the
// clicked row may no longer exist.
func (d *Debouncer) Cancel() {
	if d.pending != nil {
		zlog.Debug().Msgf("selection: pending click dropped: unique_id=%s", d.pending.UniqueID)
	}
	d.cancel()
}

// Fire returns the pending click if token is still current, and clears it.
func (d *Debouncer) Fire(token uint64) (Click, bool) {
	if d.closed || d.pending == nil || token != d.token {
		return Click{}, false
	}
	c := *d.pending
	d.pending = nil
	d.timer = nil
	return c, true
}

// Close cancels any pending click and rejects further clicks.
func (d *Debouncer) Close() {
	d.cancel()
	d.closed = true
}

func (d *Debouncer) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.token++
}
