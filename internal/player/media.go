package player

// Media is the external collaborator that actually plays audio. Every call
// is a synchronous request; the player keeps no clock of its own.
type Media interface {
	Load(url string) error
	Unload() error
	Play() error
	Pause() error
	SetCurrentTime(seconds float64) error
	// SetVolume takes the host's [0, 1] range.
	SetVolume(volume float64) error
	SetPlaybackRate(rate float64) error
}
