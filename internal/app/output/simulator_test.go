package output

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/app/slot"
	"github.com/osa030/queuebox/internal/domain/track"
)

// Mock Engine for testing
type mockEngine struct {
	mu       sync.Mutex
	finished []string
	ch       chan string
}

func newMockEngine() *mockEngine {
	return &mockEngine{ch: make(chan string, 8)}
}

func (m *mockEngine) Subscribe(buffer int) (*notification.ChanStream[playback.Event], func()) {
	s := notification.NewChanStream[playback.Event](buffer)
	return s, s.Close
}

func (m *mockEngine) Snapshot(ctx context.Context) (playback.Snapshot, error) {
	return playback.Snapshot{}, nil
}

func (m *mockEngine) TrackFinished(ctx context.Context, uniqueID string) error {
	m.mu.Lock()
	m.finished = append(m.finished, uniqueID)
	m.mu.Unlock()
	m.ch <- uniqueID
	return nil
}

func snapshotOf(status queue.Status, generation uint64, ref *track.Reference) playback.Snapshot {
	return playback.Snapshot{
		Queue: queue.State{Status: status},
		Assignment: slot.Assignment{
			Outputs: [2]slot.Output{{Track: ref, Generation: generation}},
		},
	}
}

func testRef(id string, d time.Duration) *track.Reference {
	return &track.Reference{Track: track.Track{ID: "song-" + id, Name: id, Duration: d}, UniqueID: id}
}

func waitFinished(t *testing.T, m *mockEngine, timeout time.Duration) (string, bool) {
	t.Helper()
	select {
	case id := <-m.ch:
		return id, true
	case <-time.After(timeout):
		return "", false
	}
}

func TestSimulator_ReportsTrackEnd(t *testing.T) {
	m := newMockEngine()
	sim := NewSimulator(m, Config{Tick: time.Millisecond})

	sim.Apply(snapshotOf(queue.StatusPlaying, 1, testRef("A", 30*time.Millisecond)))

	p, ok := sim.Progress()
	require.True(t, ok)
	assert.Equal(t, "A", p.Track.UniqueID)
	assert.Equal(t, queue.StatusPlaying, p.Status)

	id, ok := waitFinished(t, m, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "A", id)
}

func TestSimulator_PauseHoldsTimer(t *testing.T) {
	m := newMockEngine()
	sim := NewSimulator(m, Config{Tick: time.Millisecond})
	ref := testRef("A", 60*time.Millisecond)

	sim.Apply(snapshotOf(queue.StatusPlaying, 1, ref))
	sim.Apply(snapshotOf(queue.StatusPaused, 1, ref))

	_, ok := waitFinished(t, m, 150*time.Millisecond)
	assert.False(t, ok, "paused track must not finish")

	p, ok := sim.Progress()
	require.True(t, ok)
	assert.Equal(t, queue.StatusPaused, p.Status)
	assert.Greater(t, p.Remaining, time.Duration(0))

	sim.Apply(snapshotOf(queue.StatusPlaying, 1, ref))

	id, ok := waitFinished(t, m, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "A", id)
}

func TestSimulator_NewGenerationRestarts(t *testing.T) {
	m := newMockEngine()
	sim := NewSimulator(m, Config{Tick: time.Millisecond})

	sim.Apply(snapshotOf(queue.StatusPlaying, 1, testRef("A", 40*time.Millisecond)))
	sim.Apply(snapshotOf(queue.StatusPlaying, 2, testRef("B", 40*time.Millisecond)))

	id, ok := waitFinished(t, m, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "B", id, "the replaced track never reports its end")

	_, ok = waitFinished(t, m, 100*time.Millisecond)
	assert.False(t, ok)
}

func TestSimulator_StopUnloads(t *testing.T) {
	m := newMockEngine()
	sim := NewSimulator(m, Config{Tick: time.Millisecond})
	ref := testRef("A", 40*time.Millisecond)

	sim.Apply(snapshotOf(queue.StatusPlaying, 1, ref))
	sim.Apply(snapshotOf(queue.StatusStopped, 1, ref))

	_, ok := sim.Progress()
	assert.False(t, ok)
	_, ok = waitFinished(t, m, 100*time.Millisecond)
	assert.False(t, ok)

	sim.Apply(snapshotOf(queue.StatusPlaying, 1, nil))
	_, ok = sim.Progress()
	assert.False(t, ok)
}

func TestSimulator_FadeShortensTimer(t *testing.T) {
	m := newMockEngine()
	sim := NewSimulator(m, Config{Tick: time.Millisecond, FadeDuration: 10 * time.Second})

	sim.Apply(snapshotOf(queue.StatusPlaying, 1, testRef("A", 10*time.Second)))

	id, ok := waitFinished(t, m, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, "A", id)
}

func TestSimulator_RunWithEngine(t *testing.T) {
	engine := playback.NewEngine(playback.Config{})
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := NewSimulator(engine, Config{Tick: time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	refs := []track.Reference{*testRef("A", 30*time.Millisecond), *testRef("B", 30*time.Millisecond)}
	require.NoError(t, engine.Replace(ctx, refs))

	require.Eventually(t, func() bool {
		s, err := engine.Snapshot(ctx)
		return err == nil && s.Status() == queue.StatusStopped && s.Slots.ActiveID() == "B"
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop")
	}
}
