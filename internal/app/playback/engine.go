package playback

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/app/selection"
	"github.com/osa030/queuebox/internal/app/slot"
	"github.com/osa030/queuebox/internal/domain/track"
)

// Errors
var (
	ErrClosed = errors.New("engine closed")
)

// DefaultEventBuffer is the number of events queued for the publisher before new ones are dropped.
const DefaultEventBuffer = 64

// ArtworkResolver resolves artwork without blocking; see artwork.Cache.
type ArtworkResolver interface {
	ResolveOrFetch(key, remoteURL string) string
}

// Config holds engine configuration.
type Config struct {
	Repeat        queue.RepeatMode
	Shuffle       bool
	ShuffleAppend queue.AppendPolicy
	ClickWindow   time.Duration       // Single/double click disambiguation window (0: selection.DefaultClickWindow)
	AfterFunc     selection.AfterFunc // Timer used by the click debouncer (nil: wall clock); must not call f synchronously
	Rand          *rand.Rand          // Shuffle random source (nil: time seeded)
	EventBuffer   int                 // Publisher queue size (0: DefaultEventBuffer)
	Artwork       ArtworkResolver     // Optional
}

// command is a unit of work run on the loop goroutine.
type command struct {
	name string
	fn   func()
	done chan struct{}
}

// effect describes what a command changed.
type effect struct {
	changes   queue.Change
	selection bool // Selection changed
	advanced  bool // The active output finished its track
}

// Engine serializes every queue, selection and slot mutation onto one goroutine.
// UI commands, playback controller notifications and debounce timer fires all
// arrive as commands and run to completion in arrival order.
type Engine struct {
	cmds      chan command
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	events    chan Event
	notifier  *notification.Manager[Event]
	published chan struct{}

	// Owned by the loop goroutine.
	store       *queue.Store
	tracker     *slot.Tracker
	slots       slot.Slots
	assignment  slot.Assignment
	selection   *selection.Model
	debouncer   *selection.Debouncer
	artwork     ArtworkResolver
	artworkPath string
}

// NewEngine creates an engine with an empty queue and starts its loop.
func NewEngine(cfg Config) *Engine {
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	if cfg.ClickWindow <= 0 {
		cfg.ClickWindow = selection.DefaultClickWindow
	}

	e := &Engine{
		cmds:      make(chan command),
		closing:   make(chan struct{}),
		stopped:   make(chan struct{}),
		events:    make(chan Event, buffer),
		notifier:  notification.NewManager[Event](),
		published: make(chan struct{}),
		store:     queue.NewStore(queue.Config{ShuffleAppend: cfg.ShuffleAppend, Rand: cfg.Rand}),
		tracker:   slot.NewTracker(),
		selection: selection.NewModel(),
		artwork:   cfg.Artwork,
	}
	e.store.SetRepeat(cfg.Repeat)
	e.store.SetShuffle(cfg.Shuffle)
	e.debouncer = selection.NewDebouncer(cfg.ClickWindow, cfg.AfterFunc, e.postClick)

	go e.run()
	go e.publish()

	zlog.Debug().Msgf("engine: started: repeat=%s shuffle=%t shuffle_append=%s click_window=%v",
		cfg.Repeat, cfg.Shuffle, cfg.ShuffleAppend, cfg.ClickWindow)
	return e
}

// Subscribe registers an event stream with the given buffer size.
// The returned function unsubscribes and closes the stream.
func (e *Engine) Subscribe(buffer int) (*notification.ChanStream[Event], func()) {
	stream := notification.NewChanStream[Event](buffer)
	id := e.notifier.Subscribe(stream)
	return stream, func() {
		e.notifier.Unsubscribe(id)
		stream.Close()
	}
}

// Close cancels any pending click, stops the loop and closes the publisher.
// Commands submitted afterwards return ErrClosed.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.closing)
		<-e.stopped
		close(e.events)
		<-e.published
		e.notifier.Close()
		zlog.Debug().Msg("engine: closed")
	})
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := e.submit(ctx, "snapshot", func() {
		s = e.snapshot()
	})
	return s, err
}

// Entries returns the queue entries in insertion order.
func (e *Engine) Entries(ctx context.Context) ([]track.Reference, error) {
	var entries []track.Reference
	err := e.submit(ctx, "entries", func() {
		entries = e.store.Snapshot().Entries
	})
	return entries, err
}

// Replace discards the queue and starts playing refs from the first track.
func (e *Engine) Replace(ctx context.Context, refs []track.Reference) error {
	return e.do(ctx, "replace", func() effect {
		return effect{changes: e.store.Replace(refs)}
	})
}

// Append adds refs after the existing entries.
func (e *Engine) Append(ctx context.Context, refs []track.Reference) error {
	return e.do(ctx, "append", func() effect {
		return effect{changes: e.store.Append(refs)}
	})
}

// PlayFromRowClick replaces the queue with entries and plays the double-clicked
// occurrence. A pending single click is cancelled and the selection cleared.
func (e *Engine) PlayFromRowClick(ctx context.Context, entries []track.Reference, currentIndex int, currentSongID, uniqueSongID string) error {
	return e.do(ctx, "play_from_row_click", func() effect {
		e.debouncer.DoubleClick()
		return effect{
			changes:   e.store.PlayFromRowClick(entries, currentIndex, currentSongID, uniqueSongID),
			selection: e.clearSelection(),
		}
	})
}

// Click registers a single click on a row. Its selection effect is applied
// after the click window unless a double click arrives first.
func (e *Engine) Click(ctx context.Context, c selection.Click) error {
	c.View = append([]string(nil), c.View...)
	return e.submit(ctx, "click", func() {
		if !e.debouncer.Click(c) {
			zlog.Debug().Msgf("engine: click ignored, another click is pending: unique_id=%s", c.UniqueID)
		}
	})
}

// DoubleClick plays the occurrence double-clicked in the queue view.
// The pending single click, if any, never applies.
func (e *Engine) DoubleClick(ctx context.Context, uniqueID string) error {
	return e.do(ctx, "double_click", func() effect {
		e.debouncer.DoubleClick()
		return effect{
			changes:   e.store.JumpTo(uniqueID),
			selection: e.clearSelection(),
		}
	})
}

// Select applies a click to the selection immediately, bypassing the debouncer.
func (e *Engine) Select(ctx context.Context, c selection.Click) error {
	c.View = append([]string(nil), c.View...)
	return e.do(ctx, "select", func() effect {
		e.selection.Apply(c)
		return effect{selection: true}
	})
}

// ClearSelection empties the selection.
func (e *Engine) ClearSelection(ctx context.Context) error {
	return e.do(ctx, "clear_selection", func() effect {
		return effect{selection: e.clearSelection()}
	})
}

// Remove drops the given occurrences.
func (e *Engine) Remove(ctx context.Context, uniqueIDs []string) error {
	return e.do(ctx, "remove", func() effect {
		return effect{changes: e.store.Remove(uniqueIDs)}
	})
}

// RemoveSelected drops every selected occurrence.
func (e *Engine) RemoveSelected(ctx context.Context) error {
	return e.do(ctx, "remove_selected", func() effect {
		return effect{changes: e.store.Remove(e.selection.Snapshot().Selected)}
	})
}

// Move relocates the given occurrences right before target.
func (e *Engine) Move(ctx context.Context, uniqueIDs []string, target string) error {
	return e.do(ctx, "move", func() effect {
		return effect{changes: e.store.Move(uniqueIDs, target)}
	})
}

// MoveSelected relocates the selected occurrences right before target, in queue order.
func (e *Engine) MoveSelected(ctx context.Context, target string) error {
	return e.do(ctx, "move_selected", func() effect {
		state := e.store.Snapshot()
		ids := e.selection.InView(track.UniqueIDs(state.Entries))
		return effect{changes: e.store.Move(ids, target)}
	})
}

// SetShuffle turns shuffle on or off.
func (e *Engine) SetShuffle(ctx context.Context, enabled bool) error {
	return e.do(ctx, "set_shuffle", func() effect {
		return effect{changes: e.store.SetShuffle(enabled)}
	})
}

// SetRepeat sets the repeat mode.
func (e *Engine) SetRepeat(ctx context.Context, mode queue.RepeatMode) error {
	return e.do(ctx, "set_repeat", func() effect {
		return effect{changes: e.store.SetRepeat(mode)}
	})
}

// Next skips to the next track.
func (e *Engine) Next(ctx context.Context) error {
	return e.do(ctx, "next", func() effect {
		return effect{changes: e.store.Next()}
	})
}

// Previous goes back one track.
func (e *Engine) Previous(ctx context.Context) error {
	return e.do(ctx, "previous", func() effect {
		return effect{changes: e.store.Previous()}
	})
}

// JumpTo plays the given occurrence.
func (e *Engine) JumpTo(ctx context.Context, uniqueID string) error {
	return e.do(ctx, "jump_to", func() effect {
		return effect{changes: e.store.JumpTo(uniqueID)}
	})
}

// Play starts or resumes playback of the current track.
func (e *Engine) Play(ctx context.Context) error {
	return e.do(ctx, "play", func() effect {
		return effect{changes: e.store.SetStatus(queue.StatusPlaying)}
	})
}

// Pause pauses playback. It is a no-op unless playing.
func (e *Engine) Pause(ctx context.Context) error {
	return e.do(ctx, "pause", func() effect {
		if e.store.Snapshot().Status != queue.StatusPlaying {
			return effect{}
		}
		return effect{changes: e.store.SetStatus(queue.StatusPaused)}
	})
}

// Stop stops playback, keeping the queue.
func (e *Engine) Stop(ctx context.Context) error {
	return e.do(ctx, "stop", func() effect {
		return effect{changes: e.store.SetStatus(queue.StatusStopped)}
	})
}

// Clear empties the queue.
func (e *Engine) Clear(ctx context.Context) error {
	return e.do(ctx, "clear", func() effect {
		return effect{changes: e.store.Clear()}
	})
}

// Restore replaces the whole queue state, e.g. from the resume store.
func (e *Engine) Restore(ctx context.Context, state queue.State) error {
	var restoreErr error
	err := e.do(ctx, "restore", func() effect {
		changes, err := e.store.Restore(state)
		if err != nil {
			restoreErr = err
			return effect{}
		}
		return effect{changes: changes}
	})
	if err != nil {
		return err
	}
	return restoreErr
}

// TrackFinished is called by the playback controller when the active output
// finished uniqueID naturally. A notification for an occurrence that is no
// longer active is ignored; an empty uniqueID matches whatever is active.
func (e *Engine) TrackFinished(ctx context.Context, uniqueID string) error {
	return e.do(ctx, "track_finished", func() effect {
		if uniqueID != "" && uniqueID != e.slots.ActiveID() {
			zlog.Debug().Msgf("engine: stale track finished ignored: unique_id=%s active=%s", uniqueID, e.slots.ActiveID())
			return effect{}
		}
		return effect{changes: e.store.Advance(), advanced: true}
	})
}

// TrackFailed is called by the playback controller when the active output
// could not play uniqueID. Playback stops.
func (e *Engine) TrackFailed(ctx context.Context, uniqueID string, cause error) error {
	return e.do(ctx, "track_failed", func() effect {
		if uniqueID != "" && uniqueID != e.slots.ActiveID() {
			zlog.Debug().Msgf("engine: stale track failure ignored: unique_id=%s error=%v", uniqueID, cause)
			return effect{}
		}
		zlog.Warn().Msgf("engine: playback failed, stopping: unique_id=%s error=%v", uniqueID, cause)
		return effect{changes: e.store.SetStatus(queue.StatusStopped)}
	})
}

// postClick runs on the debounce timer goroutine.
func (e *Engine) postClick(token uint64) {
	err := e.do(context.Background(), "click_fire", func() effect {
		c, ok := e.debouncer.Fire(token)
		if !ok {
			zlog.Debug().Msgf("engine: stale click timer ignored: token=%d", token)
			return effect{}
		}
		e.selection.Apply(c)
		return effect{selection: true}
	})
	if err != nil {
		zlog.Debug().Msgf("engine: click timer dropped: token=%d error=%v", token, err)
	}
}

// do runs fn on the loop and publishes what it changed.
func (e *Engine) do(ctx context.Context, name string, fn func() effect) error {
	return e.submit(ctx, name, func() {
		e.commit(name, fn())
	})
}

// submit hands fn to the loop and waits until it ran.
// If ctx ends after the loop accepted the command, the command still runs.
func (e *Engine) submit(ctx context.Context, name string, fn func()) error {
	cmd := command{name: name, fn: fn, done: make(chan struct{})}
	select {
	case <-e.closing:
		return ErrClosed
	default:
	}

	select {
	case e.cmds <- cmd:
	case <-e.closing:
		return ErrClosed
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "command %s not accepted", name)
	}

	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "command %s still running", name)
	}
}

// run is the command loop.
func (e *Engine) run() {
	defer close(e.stopped)
	for {
		select {
		case cmd := <-e.cmds:
			cmd.fn()
			close(cmd.done)
		case <-e.closing:
			e.debouncer.Close()
			return
		}
	}
}

// commit recomputes the slots after a mutation and publishes a snapshot if anything changed.
// Must be called on the loop goroutine.
func (e *Engine) commit(name string, eff effect) {
	if eff.changes.Has(queue.ChangeEntries) {
		e.debouncer.Cancel()
		if e.clearSelection() {
			eff.selection = true
		}
	}

	slots := slot.Resolve(e.store.Snapshot())
	slotsChanged := !slots.Equal(e.slots)
	if slotsChanged || eff.advanced {
		e.slots = slots
		e.assignment = e.tracker.Assign(slots, eff.advanced)
		e.resolveArtwork()
		slotsChanged = true
	}

	if eff.changes == queue.ChangeNone && !eff.selection && !slotsChanged {
		return
	}

	ev := Event{
		Type:     eventType(eff.changes, slotsChanged),
		Changes:  eff.changes,
		Snapshot: e.snapshot(),
	}
	zlog.Debug().Msgf("engine: command applied: command=%s event=%s active=%s preload=%s status=%s",
		name, ev.Type, slots.ActiveID(), slots.PreloadID(), ev.Snapshot.Queue.Status)

	select {
	case e.events <- ev:
	default:
		zlog.Warn().Msgf("engine: event dropped, publisher is behind: command=%s event=%s", name, ev.Type)
	}
}

// publish forwards events to subscribers off the loop goroutine.
func (e *Engine) publish() {
	defer close(e.published)
	for ev := range e.events {
		e.notifier.Broadcast(ev)
	}
}

// clearSelection empties the selection and reports whether it was non-empty.
func (e *Engine) clearSelection() bool {
	if e.selection.Len() == 0 && e.selection.Anchor() == "" {
		return false
	}
	e.selection.Clear()
	return true
}

// resolveArtwork looks up artwork for the active slot and prefetches the preload slot's.
func (e *Engine) resolveArtwork() {
	e.artworkPath = ""
	if e.slots.Active != nil {
		e.artworkPath = e.slots.Active.AlbumArtURL
	}
	if e.artwork == nil {
		return
	}
	if a := e.slots.Active; a != nil {
		e.artworkPath = e.artwork.ResolveOrFetch(a.ArtworkKey, a.AlbumArtURL)
	}
	if p := e.slots.Preload; p != nil {
		e.artwork.ResolveOrFetch(p.ArtworkKey, p.AlbumArtURL)
	}
}

func (e *Engine) snapshot() Snapshot {
	return Snapshot{
		Queue:      e.store.Snapshot(),
		Slots:      e.slots.Clone(),
		Assignment: e.assignment.Clone(),
		Selection:  e.selection.Snapshot(),
		Artwork:    e.artworkPath,
	}
}
