package player

// EventKind names an external event the player reacts to.
type EventKind string

const (
	EventTimeUpdate      EventKind = "time_update"
	EventMetadataLoaded  EventKind = "metadata_loaded"
	EventEnded           EventKind = "ended"
	EventToggle          EventKind = "toggle"
	EventSeek            EventKind = "seek"
	EventSkip            EventKind = "skip"
	EventVolume          EventKind = "volume"
	EventRate            EventKind = "rate"
	EventClearTranscript EventKind = "clear_transcript"
	EventRemoveAudio     EventKind = "remove_audio"
)

// Event is one input to Reduce. Value carries the event's scalar argument,
// if it has one.
type Event struct {
	Kind  EventKind `json:"kind"`
	Value float64   `json:"value,omitempty"`
}

var transitions = map[EventKind]func(State, float64) State{
	EventTimeUpdate:      TimeUpdated,
	EventMetadataLoaded:  MetadataLoaded,
	EventEnded:           func(s State, _ float64) State { return Ended(s) },
	EventToggle:          func(s State, _ float64) State { return TogglePlay(s) },
	EventSeek:            Seek,
	EventSkip:            Skip,
	EventVolume:          func(s State, v float64) State { return SetVolume(s, int(v)) },
	EventRate:            SetPlaybackRate,
	EventClearTranscript: func(s State, _ float64) State { return ClearTranscript(s) },
	EventRemoveAudio:     func(s State, _ float64) State { return RemoveAudio(s) },
}

// Reduce applies e to s. Unknown kinds leave s unchanged.
func Reduce(s State, e Event) State {
	fn, ok := transitions[e.Kind]
	if !ok {
		return s
	}
	return fn(s, e.Value)
}

// Known reports whether Reduce handles kind.
func Known(kind EventKind) bool {
	_, ok := transitions[kind]
	return ok
}
