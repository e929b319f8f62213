package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeClock struct {
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs the latest timer callback as if the window had elapsed, even if it was stopped.
func (c *fakeClock) fire() {
	c.timers[len(c.timers)-1].f()
}

func newTestDebouncer() (*Debouncer, *fakeClock, *[]uint64) {
	clock := &fakeClock{}
	posted := &[]uint64{}
	d := NewDebouncer(DefaultClickWindow, clock.AfterFunc, func(token uint64) {
		*posted = append(*posted, token)
	})
	return d, clock, posted
}

func TestDebouncer_SingleClick(t *testing.T) {
	d, clock, posted := newTestDebouncer()

	ok := d.Click(Click{UniqueID: "a"})
	require.True(t, ok)
	require.Len(t, clock.timers, 1)
	assert.Equal(t, DefaultClickWindow, clock.timers[0].d)
	assert.NotNil(t, d.pending)

	clock.fire()
	require.Len(t, *posted, 1)

	c, ok := d.Fire((*posted)[0])
	require.True(t, ok)
	assert.Equal(t, "a", c.UniqueID)
	assert.Nil(t, d.pending)

	_, ok = d.Fire((*posted)[0])
	assert.False(t, ok, "a token applies at most once")
}

func TestDebouncer_SecondClickWhilePendingIsIgnored(t *testing.T) {
	d, clock, _ := newTestDebouncer()

	assert.True(t, d.Click(Click{UniqueID: "a"}))
	assert.False(t, d.Click(Click{UniqueID: "a"}))
	assert.Len(t, clock.timers, 1)
}

func TestDebouncer_DoubleClickCancels(t *testing.T) {
	d, clock, posted := newTestDebouncer()

	d.Click(Click{UniqueID: "a"})
	d.DoubleClick()

	assert.True(t, clock.timers[0].stopped)
	assert.Nil(t, d.pending)
	assert.Empty(t, *posted)
}

func TestDebouncer_Cancel(t *testing.T) {
	d, clock, posted := newTestDebouncer()

	d.Click(Click{UniqueID: "a"})
	d.Cancel()
	clock.fire()

	assert.True(t, clock.timers[0].stopped)
	require.Len(t, *posted, 1)
	_, ok := d.Fire((*posted)[0])
	assert.False(t, ok)

	// Unlike Close, the debouncer keeps accepting clicks.
	assert.True(t, d.Click(Click{UniqueID: "b"}))
}

func TestDebouncer_TimerFiredBeforeDoubleClick(t *testing.T) {
	d, clock, posted := newTestDebouncer()

	d.Click(Click{UniqueID: "a"})
	// The timer fires and posts its token, but the double click is processed first.
	clock.fire()
	d.DoubleClick()

	require.Len(t, *posted, 1)
	_, ok := d.Fire((*posted)[0])
	assert.False(t, ok)
}

func TestDebouncer_StaleTokenAfterNewClick(t *testing.T) {
	d, clock, posted := newTestDebouncer()

	d.Click(Click{UniqueID: "a"})
	clock.fire()
	d.DoubleClick()
	d.Click(Click{UniqueID: "b"})
	clock.fire()

	require.Len(t, *posted, 2)
	_, ok := d.Fire((*posted)[0])
	assert.False(t, ok)
	c, ok := d.Fire((*posted)[1])
	require.True(t, ok)
	assert.Equal(t, "b", c.UniqueID)
}

func TestDebouncer_Close(t *testing.T) {
	d, clock, posted := newTestDebouncer()

	d.Click(Click{UniqueID: "a"})
	d.Close()

	assert.True(t, clock.timers[0].stopped)
	assert.False(t, d.Click(Click{UniqueID: "b"}))
	clock.fire()
	_, ok := d.Fire((*posted)[0])
	assert.False(t, ok)
}

func TestDebouncer_WallClock(t *testing.T) {
	fired := make(chan uint64, 1)
	d := NewDebouncer(5*time.Millisecond, nil, func(token uint64) { fired <- token })

	d.Click(Click{UniqueID: "a"})

	select {
	case token := <-fired:
		c, ok := d.Fire(token)
		assert.True(t, ok)
		assert.Equal(t, "a", c.UniqueID)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
