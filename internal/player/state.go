// Package player holds the playback transport: an explicit State value, pure
// transitions over it, and a Controller that issues matching requests to the
// media host.
package player

import (
	"math"

	"github.com/tiroq/voiceplay/internal/transcript"
	"github.com/tiroq/voiceplay/internal/upload"
)

const (
	DefaultVolume = 80
	MinVolume     = 0
	MaxVolume     = 100

	DefaultRate = 1.0
	MinRate     = 0.5
	MaxRate     = 8.0
)

// SkipDeltas are the relative jumps offered by the transport controls.
var SkipDeltas = []float64{-30, -10, -5, 5, 10, 30}

// RatePresets are the one-tap playback rates.
var RatePresets = []float64{0.5, 1, 1.5, 2, 3, 4, 8}

// State is everything the player shows. CurrentTime and Duration only echo
// what the media host reported or what the controller last asked it to do.
type State struct {
	CurrentTime  float64       `json:"current_time"`
	Duration     float64       `json:"duration"`
	IsPlaying    bool          `json:"is_playing"`
	Volume       int           `json:"volume"`
	PlaybackRate float64       `json:"playback_rate"`
	Audio        *upload.Audio `json:"audio,omitempty"`
	Handle       upload.Handle `json:"handle,omitempty"`

	Custom    *transcript.Transcript `json:"-"`
	UseCustom bool                   `json:"use_custom"`

	LastAction string `json:"last_action,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// NewState returns the state of a freshly opened player.
func NewState() State {
	return State{Volume: DefaultVolume, PlaybackRate: DefaultRate}
}

// HasAudio reports whether an audio source is loaded.
func (s State) HasAudio() bool { return s.Audio != nil }

// Transcript picks the custom transcript when one is selected, else sample.
func (s State) Transcript(sample *transcript.Transcript) *transcript.Transcript {
	if s.UseCustom && s.Custom != nil {
		return s.Custom
	}
	return sample
}

func clampTime(t, duration float64) float64 {
	if t < 0 {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}

// Seek moves to t clamped to [0, Duration]. NaN leaves s unchanged.
func Seek(s State, t float64) State {
	if math.IsNaN(t) {
		return s
	}
	s.CurrentTime = clampTime(t, s.Duration)
	return s
}

// Skip seeks by delta seconds relative to the current position.
func Skip(s State, delta float64) State {
	return Seek(s, s.CurrentTime+delta)
}

// SetVolume stores v clamped to [0, 100].
func SetVolume(s State, v int) State {
	switch {
	case v < MinVolume:
		v = MinVolume
	case v > MaxVolume:
		v = MaxVolume
	}
	s.Volume = v
	return s
}

// SetPlaybackRate stores r clamped to [0.5, 8]. NaN leaves s unchanged.
func SetPlaybackRate(s State, r float64) State {
	if math.IsNaN(r) {
		return s
	}
	s.PlaybackRate = math.Min(MaxRate, math.Max(MinRate, r))
	return s
}

// TogglePlay flips between playing and paused. Without audio it is a no-op.
func TogglePlay(s State) State {
	if !s.HasAudio() {
		return s
	}
	s.IsPlaying = !s.IsPlaying
	return s
}

// LoadAudio makes a the active source, reachable through h.
func LoadAudio(s State, a upload.Audio, h upload.Handle) State {
	s.Audio = &a
	s.Handle = h
	s.CurrentTime = 0
	s.Duration = 0
	s.IsPlaying = false
	return s
}

// RemoveAudio drops the active source.
func RemoveAudio(s State) State {
	s.Audio = nil
	s.Handle = ""
	s.CurrentTime = 0
	s.Duration = 0
	s.IsPlaying = false
	return s
}

// LoadTranscript replaces the custom transcript wholesale and selects it.
func LoadTranscript(s State, t *transcript.Transcript) State {
	s.Custom = t
	s.UseCustom = t != nil
	return s
}

// ClearTranscript returns to the built-in sample.
func ClearTranscript(s State) State {
	s.Custom = nil
	s.UseCustom = false
	return s
}

// TimeUpdated records a position reported by the host.
func TimeUpdated(s State, t float64) State {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	s.CurrentTime = t
	return s
}

// MetadataLoaded records the duration reported by the host. Unknown or
// unbounded durations are stored as 0.
func MetadataLoaded(s State, d float64) State {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		d = 0
	}
	s.Duration = d
	return s
}

// Ended marks playback as finished.
func Ended(s State) State {
	s.IsPlaying = false
	return s
}
