package slot

import (
	"github.com/osa030/queuebox/internal/domain/track"
	zlog "github.com/rs/zerolog/log"
)

// Output is the load state of one physical audio output.
type Output struct {
	Track      *track.Reference // nil when unloaded
	Generation uint64           // Incremented whenever the output must restart its decode
}

// Assignment maps the resolved slots onto the two physical outputs.
type Assignment struct {
	Active  int // Index (0 or 1) of the output playing the active slot
	Outputs [2]Output
}

// ActiveOutput returns the output holding the active slot.
func (a Assignment) ActiveOutput() Output {
	return a.Outputs[a.Active]
}

// PreloadOutput returns the output holding the preload slot.
func (a Assignment) PreloadOutput() Output {
	return a.Outputs[1-a.Active]
}

// Clone returns a deep copy of the assignment.
func (a Assignment) Clone() Assignment {
	c := a
	for i, o := range a.Outputs {
		if o.Track != nil {
			c.Outputs[i].Track = refPtr(*o.Track)
		}
	}
	return c
}

// Tracker keeps two physical outputs in step with successive slot resolutions.
// When an advance promotes the preloaded occurrence, the outputs swap roles so
// the in-flight decode continues; any other change reloads in place.
// It is not safe for concurrent use.
type Tracker struct {
	current Assignment
}

// NewTracker creates a tracker with both outputs unloaded and output 0 active.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Current returns a copy of the latest assignment.
func (t *Tracker) Current() Assignment {
	return t.current.Clone()
}

// Assign updates the outputs for slots. advanced is true when the change was
// caused by the active output finishing its track.
func (t *Tracker) Assign(slots Slots, advanced bool) Assignment {
	a := &t.current
	if advanced {
		// The finished output cannot be resumed; it must be reloaded to be reused.
		a.Outputs[a.Active].Track = nil
	}

	switch {
	case slots.Active == nil:
		a.Outputs[a.Active] = unload(a.Outputs[a.Active])
	case advanced && uniqueID(a.Outputs[1-a.Active].Track) == slots.Active.UniqueID:
		a.Active = 1 - a.Active
		zlog.Debug().Msgf("slot: preload promoted: output=%d unique_id=%s", a.Active, slots.Active.UniqueID)
	default:
		a.Outputs[a.Active] = load(a.Outputs[a.Active], slots.Active)
	}

	preload := 1 - a.Active
	if slots.Preload == nil {
		a.Outputs[preload] = unload(a.Outputs[preload])
	} else {
		a.Outputs[preload] = load(a.Outputs[preload], slots.Preload)
	}

	return t.current.Clone()
}

func load(o Output, ref *track.Reference) Output {
	if uniqueID(o.Track) == ref.UniqueID {
		return o
	}
	return Output{Track: refPtr(*ref), Generation: o.Generation + 1}
}

func unload(o Output) Output {
	if o.Track == nil {
		return o
	}
	return Output{Generation: o.Generation + 1}
}
