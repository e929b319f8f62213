package queue

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/osa030/queuebox/internal/domain/track"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Change is a bit set describing which parts of the state a mutation touched.
type Change uint8

const (
	ChangeEntries Change = 1 << iota // Entry list changed
	ChangeOrder                      // Play order changed
	ChangeCurrent                    // Current position moved to another track
	ChangeStatus                     // Status changed
	ChangeMode                       // Repeat or shuffle flag changed
)

// ChangeNone means the mutation was a no-op.
const ChangeNone Change = 0

const changeAll = ChangeEntries | ChangeOrder | ChangeCurrent | ChangeStatus | ChangeMode

// Has reports whether any bit of f is set.
func (c Change) Has(f Change) bool {
	return c&f != 0
}

// AppendPolicy decides where appended tracks land in the play order while shuffle is on.
type AppendPolicy string

const (
	AppendRandom AppendPolicy = "random" // Each new track at a random position after the current one
	AppendNext   AppendPolicy = "next"   // New tracks shuffled and played right after the current one
	AppendEnd    AppendPolicy = "end"    // New tracks shuffled and played after everything else
)

// ParseAppendPolicy converts a string to an AppendPolicy.
func ParseAppendPolicy(s string) (AppendPolicy, error) {
	switch p := AppendPolicy(strings.ToLower(s)); p {
	case AppendRandom, AppendNext, AppendEnd:
		return p, nil
	case "":
		return AppendRandom, nil
	default:
		return "", errors.Newf("unknown shuffle append policy: %q", s)
	}
}

// Config holds store configuration.
type Config struct {
	ShuffleAppend AppendPolicy
	Rand          *rand.Rand // Random source for permutations (nil: time seeded)
}

// Store owns the queue state and implements every queue mutation.
// It is not safe for concurrent use; the playback engine serializes access.
type Store struct {
	state  State
	rng    *rand.Rand
	policy AppendPolicy
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	policy := cfg.ShuffleAppend
	if policy == "" {
		policy = AppendRandom
	}
	return &Store{
		state:  Empty(),
		rng:    rng,
		policy: policy,
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	return s.state.Clone()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.state.Entries)
}

// Current returns the entry at the current position.
func (s *Store) Current() (track.Reference, bool) {
	return s.state.CurrentEntry()
}

// Replace discards the queue and plays entries from the start.
// Occurrence ids of entries are kept; missing or duplicated ones are regenerated.
func (s *Store) Replace(entries []track.Reference) Change {
	if len(entries) == 0 {
		return s.Clear()
	}

	s.state.Entries = stampBatch(entries)
	s.state.PlayOrder = s.newOrder(len(entries))
	s.state.Current = 0
	s.state.Status = StatusPlaying
	return changeAll &^ ChangeMode
}

// Append adds entries after the existing ones. Appended occurrences always get fresh ids.
func (s *Store) Append(entries []track.Reference) Change {
	if len(entries) == 0 {
		return ChangeNone
	}

	fresh := make([]track.Reference, len(entries))
	for i, e := range entries {
		fresh[i] = e.WithUniqueID(track.NewUniqueID())
	}

	if s.state.IsEmpty() {
		return s.Replace(fresh)
	}

	base := len(s.state.Entries)
	s.state.Entries = append(s.state.Entries, fresh...)
	added := lo.Range(len(fresh))
	for i := range added {
		added[i] += base
	}

	if !s.state.Shuffle {
		s.state.PlayOrder = append(s.state.PlayOrder, added...)
		return ChangeEntries | ChangeOrder
	}

	s.rng.Shuffle(len(added), func(i, j int) { added[i], added[j] = added[j], added[i] })
	order := s.state.PlayOrder
	switch s.policy {
	case AppendNext:
		order = insertAt(order, s.state.Current+1, added...)
	case AppendEnd:
		order = append(order, added...)
	default:
		for _, idx := range added {
			// Positions Current+1 .. len(order) inclusive.
			pos := s.state.Current + 1 + s.rng.IntN(len(order)-s.state.Current)
			order = insertAt(order, pos, idx)
		}
	}
	s.state.PlayOrder = order
	return ChangeEntries | ChangeOrder
}

// PlayFromRowClick replaces the queue with entries and starts playing the
// clicked occurrence. currentIndex is only a hint; the occurrence is located
// by uniqueSongID and must carry currentSongID, otherwise nothing happens.
func (s *Store) PlayFromRowClick(entries []track.Reference, currentIndex int, currentSongID, uniqueSongID string) Change {
	idx := -1
	if currentIndex >= 0 && currentIndex < len(entries) && entries[currentIndex].UniqueID == uniqueSongID {
		idx = currentIndex
	} else {
		idx = lo.IndexOf(track.UniqueIDs(entries), uniqueSongID)
	}
	if idx < 0 {
		zlog.Debug().Msgf("queue: row click ignored, occurrence not found: unique_id=%s", uniqueSongID)
		return ChangeNone
	}
	if entries[idx].ID != currentSongID {
		zlog.Debug().Msgf("queue: row click ignored, song mismatch: unique_id=%s song=%s expected=%s",
			uniqueSongID, entries[idx].ID, currentSongID)
		return ChangeNone
	}

	s.state.Entries = stampBatch(entries)
	if s.state.Shuffle {
		others := s.shuffledExcept(len(entries), idx)
		s.state.PlayOrder = append([]int{idx}, others...)
		s.state.Current = 0
	} else {
		s.state.PlayOrder = lo.Range(len(entries))
		s.state.Current = idx
	}
	s.state.Status = StatusPlaying
	return changeAll &^ ChangeMode
}

// Remove drops the given occurrences. If the current track is removed, the
// next surviving track in play order becomes current.
func (s *Store) Remove(uniqueIDs []string) Change {
	if s.state.IsEmpty() || len(uniqueIDs) == 0 {
		return ChangeNone
	}

	drop := lo.Keyify(uniqueIDs)
	remap := make([]int, len(s.state.Entries))
	entries := make([]track.Reference, 0, len(s.state.Entries))
	for i, e := range s.state.Entries {
		if _, ok := drop[e.UniqueID]; ok {
			remap[i] = -1
			continue
		}
		remap[i] = len(entries)
		entries = append(entries, e)
	}
	if len(entries) == len(s.state.Entries) {
		zlog.Debug().Msgf("queue: remove ignored, no matching entries: ids=%v", uniqueIDs)
		return ChangeNone
	}
	if len(entries) == 0 {
		return s.Clear()
	}

	curIdx := s.state.PlayOrder[s.state.Current]
	before := 0 // survivors positioned before the current one
	order := make([]int, 0, len(entries))
	for pos, idx := range s.state.PlayOrder {
		if remap[idx] < 0 {
			continue
		}
		if pos < s.state.Current {
			before++
		}
		order = append(order, remap[idx])
	}

	change := ChangeEntries | ChangeOrder
	s.state.Entries = entries
	s.state.PlayOrder = order

	if remap[curIdx] >= 0 {
		s.state.Current = before
		return change
	}

	change |= ChangeCurrent
	switch {
	case before < len(order):
		s.state.Current = before
	case s.state.Repeat == RepeatAll:
		s.state.Current = 0
	default:
		s.state.Current = len(order) - 1
		if s.state.Status != StatusStopped {
			s.state.Status = StatusStopped
			change |= ChangeStatus
		}
	}
	return change
}

// Move relocates the given occurrences immediately before target, keeping
// their relative order. The current track is unaffected.
func (s *Store) Move(uniqueIDs []string, target string) Change {
	if s.state.IsEmpty() || len(uniqueIDs) == 0 {
		return ChangeNone
	}
	targetIdx := s.state.IndexOf(target)
	if targetIdx < 0 {
		zlog.Debug().Msgf("queue: move ignored, unknown target: target=%s", target)
		return ChangeNone
	}
	moving := lo.Keyify(uniqueIDs)
	if _, ok := moving[target]; ok {
		zlog.Debug().Msgf("queue: move ignored, target is part of the moved set: target=%s", target)
		return ChangeNone
	}

	isMoved := make([]bool, len(s.state.Entries))
	var moved, rest []int
	for i, e := range s.state.Entries {
		if _, ok := moving[e.UniqueID]; ok {
			isMoved[i] = true
			moved = append(moved, i)
		} else {
			rest = append(rest, i)
		}
	}
	if len(moved) == 0 {
		zlog.Debug().Msgf("queue: move ignored, no matching entries: ids=%v", uniqueIDs)
		return ChangeNone
	}

	// Entry layout: moved block right before the target.
	layout := insertAt(rest, lo.IndexOf(rest, targetIdx), moved...)
	remap := make([]int, len(layout))
	entries := make([]track.Reference, len(layout))
	for newIdx, oldIdx := range layout {
		remap[oldIdx] = newIdx
		entries[newIdx] = s.state.Entries[oldIdx]
	}

	// Play order: moved occurrences, in their play order, right before the target.
	var movedOrder, restOrder []int
	for _, idx := range s.state.PlayOrder {
		if isMoved[idx] {
			movedOrder = append(movedOrder, idx)
		} else {
			restOrder = append(restOrder, idx)
		}
	}
	order := insertAt(restOrder, lo.IndexOf(restOrder, targetIdx), movedOrder...)

	curIdx := s.state.PlayOrder[s.state.Current]
	for pos, idx := range order {
		order[pos] = remap[idx]
	}

	s.state.Entries = entries
	s.state.PlayOrder = order
	s.state.Current = positionOfIndex(order, remap[curIdx])
	return ChangeEntries | ChangeOrder
}

// SetShuffle turns shuffle on or off without changing the current track.
func (s *Store) SetShuffle(enabled bool) Change {
	if s.state.Shuffle == enabled {
		return ChangeNone
	}
	s.state.Shuffle = enabled
	if s.state.IsEmpty() {
		return ChangeMode
	}

	curIdx := s.state.PlayOrder[s.state.Current]
	if enabled {
		others := s.shuffledExcept(len(s.state.Entries), curIdx)
		s.state.PlayOrder = insertAt(others, s.state.Current, curIdx)
	} else {
		s.state.PlayOrder = lo.Range(len(s.state.Entries))
		s.state.Current = curIdx
	}
	return ChangeMode | ChangeOrder
}

// SetRepeat sets the repeat mode.
func (s *Store) SetRepeat(mode RepeatMode) Change {
	if s.state.Repeat == mode {
		return ChangeNone
	}
	s.state.Repeat = mode
	return ChangeMode
}

// Advance moves to the next track after the active one ended naturally.
func (s *Store) Advance() Change {
	if s.state.IsEmpty() {
		return s.setStatus(StatusStopped)
	}
	if s.state.Repeat == RepeatOne {
		return ChangeNone
	}
	return s.step()
}

// Next skips to the next track. Repeat one is ignored; at the end of the
// play order without repeat all nothing happens.
func (s *Store) Next() Change {
	if s.state.IsEmpty() {
		return ChangeNone
	}
	if s.state.Current+1 >= len(s.state.PlayOrder) && s.state.Repeat != RepeatAll {
		return ChangeNone
	}
	return s.step()
}

// Previous moves back one track, wrapping only with repeat all.
func (s *Store) Previous() Change {
	if s.state.IsEmpty() {
		return ChangeNone
	}
	switch {
	case s.state.Current > 0:
		s.state.Current--
	case s.state.Repeat == RepeatAll && len(s.state.PlayOrder) > 1:
		s.state.Current = len(s.state.PlayOrder) - 1
	default:
		return ChangeNone
	}
	return ChangeCurrent
}

// JumpTo makes the given occurrence current and starts playing.
func (s *Store) JumpTo(uniqueID string) Change {
	pos := s.state.PositionOf(uniqueID)
	if pos < 0 {
		zlog.Debug().Msgf("queue: jump ignored, unknown occurrence: unique_id=%s", uniqueID)
		return ChangeNone
	}
	var change Change
	if pos != s.state.Current {
		s.state.Current = pos
		change |= ChangeCurrent
	}
	return change | s.setStatus(StatusPlaying)
}

// SetStatus sets the playback status. Only Stopped is accepted on an empty queue.
func (s *Store) SetStatus(status Status) Change {
	if s.state.IsEmpty() && status != StatusStopped {
		return ChangeNone
	}
	return s.setStatus(status)
}

// Clear empties the queue and stops playback. Repeat and shuffle are kept.
func (s *Store) Clear() Change {
	if s.state.IsEmpty() && s.state.Status == StatusStopped {
		return ChangeNone
	}
	s.state.Entries = nil
	s.state.PlayOrder = nil
	s.state.Current = -1
	s.state.Status = StatusStopped
	return changeAll &^ ChangeMode
}

// Restore replaces the whole state, rejecting it if any invariant is broken.
func (s *Store) Restore(state State) (Change, error) {
	if err := state.Validate(); err != nil {
		return ChangeNone, errors.Wrap(err, "invalid queue state")
	}
	s.state = state.Clone()
	return changeAll, nil
}

func (s *Store) step() Change {
	if s.state.Current+1 < len(s.state.PlayOrder) {
		s.state.Current++
		return ChangeCurrent
	}
	if s.state.Repeat == RepeatAll {
		if s.state.Current == 0 {
			return ChangeNone
		}
		s.state.Current = 0
		return ChangeCurrent
	}
	return s.setStatus(StatusStopped)
}

func (s *Store) setStatus(status Status) Change {
	if s.state.Status == status {
		return ChangeNone
	}
	s.state.Status = status
	return ChangeStatus
}

func (s *Store) newOrder(n int) []int {
	if s.state.Shuffle {
		return s.rng.Perm(n)
	}
	return lo.Range(n)
}

// shuffledExcept returns a random permutation of [0, n) without skip.
func (s *Store) shuffledExcept(n, skip int) []int {
	out := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != skip {
			out = append(out, i)
		}
	}
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// stampBatch copies entries, regenerating empty or repeated occurrence ids.
func stampBatch(entries []track.Reference) []track.Reference {
	out := make([]track.Reference, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := e.UniqueID
		if _, dup := seen[id]; id == "" || dup {
			id = track.NewUniqueID()
		}
		seen[id] = struct{}{}
		out[i] = e.WithUniqueID(id)
	}
	return out
}

// insertAt returns a new slice with vals inserted before position pos.
func insertAt(s []int, pos int, vals ...int) []int {
	out := make([]int, 0, len(s)+len(vals))
	out = append(out, s[:pos]...)
	out = append(out, vals...)
	return append(out, s[pos:]...)
}
