// Package output provides a timer driven stand-in for the audio playback controller.
package output

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/domain/track"
)

// Engine is the part of the playback engine the simulator drives.
type Engine interface {
	Subscribe(buffer int) (*notification.ChanStream[playback.Event], func())
	Snapshot(ctx context.Context) (playback.Snapshot, error)
	TrackFinished(ctx context.Context, uniqueID string) error
}

// Config holds simulator configuration.
type Config struct {
	FadeDuration  time.Duration // Crossfade window: the next track takes over this long before the end
	GapCorrection time.Duration // Small delay to compensate for decoder start-up
	Tick          time.Duration // Wall clock polling interval (0: 100ms)
}

// Progress is the playback position of the active output.
type Progress struct {
	Track     track.Reference
	Output    int
	Elapsed   time.Duration
	Remaining time.Duration
	Status    queue.Status
}

// loaded identifies what the active output is decoding.
type loaded struct {
	output     int
	generation uint64
	uniqueID   string
}

// Simulator plays the engine's active output with wall clock timers and
// reports the natural end of each track.
type Simulator struct {
	mu sync.Mutex

	engine Engine
	config Config

	// Active output state
	current       *track.Reference
	loaded        loaded
	status        queue.Status
	startTime     time.Time
	pausedAt      *time.Time
	pausedElapsed time.Duration

	timerCancel func()
	ctx         context.Context
}

// NewSimulator creates a new simulator.
func NewSimulator(engine Engine, config Config) *Simulator {
	if config.Tick <= 0 {
		config.Tick = 100 * time.Millisecond
	}
	return &Simulator{
		engine: engine,
		config: config,
		status: queue.StatusStopped,
		ctx:    context.Background(),
	}
}

// Run follows engine events until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	stream, unsubscribe := s.engine.Subscribe(16)
	defer unsubscribe()

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	defer s.stop()

	snap, err := s.engine.Snapshot(ctx)
	if err != nil {
		return err
	}
	s.Apply(snap)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-stream.C():
			if !ok {
				return nil
			}
			s.Apply(n.Payload.Snapshot)
		}
	}
}

// Apply brings the simulated output in line with snap.
func (s *Simulator) Apply(snap playback.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := snap.Assignment.ActiveOutput()
	next := loaded{output: snap.Assignment.Active, generation: active.Generation}
	if active.Track != nil {
		next.uniqueID = active.Track.UniqueID
	}

	if active.Track == nil || snap.Queue.Status == queue.StatusStopped {
		s.stopLocked()
		s.loaded = next
		return
	}

	if next != s.loaded || s.current == nil {
		s.loadLocked(*active.Track, next)
	}

	switch snap.Queue.Status {
	case queue.StatusPlaying:
		s.playLocked()
	case queue.StatusPaused:
		s.pauseLocked()
	}
}

// Progress returns the position of the active output.
func (s *Simulator) Progress() (Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Progress{}, false
	}
	remaining := s.remainingLocked()
	return Progress{
		Track:     *s.current,
		Output:    s.loaded.output,
		Elapsed:   s.current.Duration - remaining,
		Remaining: remaining,
		Status:    s.status,
	}, true
}

// loadLocked makes ref the decoding track, not yet started.
// Must be called with lock held.
func (s *Simulator) loadLocked(ref track.Reference, id loaded) {
	s.cancelTimerLocked()
	s.current = &ref
	s.loaded = id
	s.status = queue.StatusStopped
	s.startTime = time.Time{}
	s.pausedAt = nil
	s.pausedElapsed = 0
	zlog.Debug().Msgf("output: loaded: output=%d generation=%d track=%s duration=%v",
		id.output, id.generation, ref.Name, ref.Duration)
}

// playLocked starts or resumes the loaded track.
// Must be called with lock held.
func (s *Simulator) playLocked() {
	switch s.status {
	case queue.StatusPlaying:
		return
	case queue.StatusPaused:
		if s.pausedAt != nil {
			s.pausedElapsed += time.Since(*s.pausedAt)
		}
		s.pausedAt = nil
	default:
		// Apply gap correction to the start time; the end timer covers the gap too.
		s.startTime = toWallTime(time.Now()).Add(s.config.GapCorrection)
	}
	s.status = queue.StatusPlaying

	remaining := s.remainingLocked() - s.config.FadeDuration
	if s.startTime.After(toWallTime(time.Now())) {
		remaining += s.startTime.Sub(toWallTime(time.Now()))
	}
	if remaining < 0 {
		remaining = 0
	}
	s.startTrackTimer(remaining, s.loaded)
}

// pauseLocked pauses the loaded track. A track loaded while paused stays unstarted.
// Must be called with lock held.
func (s *Simulator) pauseLocked() {
	if s.status != queue.StatusPlaying {
		return
	}
	s.cancelTimerLocked()

	now := toWallTime(time.Now())
	// If still in the gap, count the remaining gap as paused time
	if now.Before(s.startTime) {
		s.pausedElapsed += s.startTime.Sub(now)
		s.startTime = now
	}
	s.pausedAt = &now
	s.status = queue.StatusPaused
}

func (s *Simulator) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stopLocked unloads the active output.
// Must be called with lock held.
func (s *Simulator) stopLocked() {
	s.cancelTimerLocked()
	s.current = nil
	s.status = queue.StatusStopped
	s.startTime = time.Time{}
	s.pausedAt = nil
	s.pausedElapsed = 0
}

// remainingLocked returns the remaining playback time of the loaded track.
// Must be called with lock held.
func (s *Simulator) remainingLocked() time.Duration {
	if s.current == nil {
		return 0
	}
	if s.startTime.IsZero() {
		return s.current.Duration
	}

	now := toWallTime(time.Now())

	// If still before actual start time (gap period), return full duration
	if now.Before(s.startTime) {
		return s.current.Duration
	}

	elapsed := now.Sub(s.startTime) - s.pausedElapsed
	if s.status == queue.StatusPaused && s.pausedAt != nil {
		elapsed -= now.Sub(*s.pausedAt)
	}

	remaining := s.current.Duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// onTrackEnd reports the natural end of the track loaded as id.
func (s *Simulator) onTrackEnd(id loaded) {
	s.mu.Lock()
	if s.loaded != id || s.status != queue.StatusPlaying {
		s.mu.Unlock()
		return
	}
	s.timerCancel = nil
	ctx := s.ctx
	name := s.current.Name
	s.mu.Unlock()

	zlog.Debug().Msgf("output: track ended: output=%d generation=%d track=%s", id.output, id.generation, name)
	if err := s.engine.TrackFinished(ctx, id.uniqueID); err != nil {
		zlog.Warn().Msgf("output: failed to report track end: unique_id=%s error=%v", id.uniqueID, err)
	}
}

func (s *Simulator) cancelTimerLocked() {
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}

// startTrackTimer starts the track end timer using wall clock.
// Must be called with lock held.
func (s *Simulator) startTrackTimer(duration time.Duration, id loaded) {
	s.cancelTimerLocked()
	s.timerCancel = s.startWallClockTimer(duration, func() {
		s.onTrackEnd(id)
	})
}

// startWallClockTimer starts a timer that triggers callback after duration, using wall clock.
// Returns a cancel function.
func (s *Simulator) startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())
	tick := s.config.Tick

	go func() {
		endTime := toWallTime(time.Now()).Add(duration)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(time.Now()).Before(endTime) {
					callback()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime returns the time with monotonic clock stripped, so that
// differences follow the wall clock even if the monotonic clock drifts.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
