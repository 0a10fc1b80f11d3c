package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tiroq/voiceplay/internal/diaglog"
	"github.com/tiroq/voiceplay/internal/transcript"
	"github.com/tiroq/voiceplay/internal/upload"
)

var (
	ErrNoAudio      = errors.New("player: no audio loaded")
	ErrNoEntry      = errors.New("player: no such transcript entry")
	ErrNoHost       = errors.New("player: no media host")
	ErrClosed       = errors.New("player: controller closed")
	ErrUnknownEvent = errors.New("player: unknown event")
	errNilMedia     = fmt.Errorf("%w configured", ErrNoHost)
)

// Controller owns the player State and keeps the media host in step with
// it. All methods are safe for concurrent use; transitions are serialized.
type Controller struct {
	mu      sync.Mutex
	state   State
	media   Media
	handles *upload.Registry
	sample  *transcript.Transcript
	log     *diaglog.Logger
	closed  bool
}

// NewController creates a controller driving media. handles and log may be
// nil.
func NewController(media Media, handles *upload.Registry, log *diaglog.Logger) *Controller {
	if handles == nil {
		handles = upload.NewRegistry()
	}
	if log == nil {
		log = diaglog.NewNoOp()
	}
	return &Controller{
		state:   NewState(),
		media:   media,
		handles: handles,
		sample:  transcript.Sample(),
		log:     log,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the transcript currently shown.
func (c *Controller) Transcript() *transcript.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Transcript(c.sample)
}

// Entries returns the entries of the transcript currently shown.
func (c *Controller) Entries() []transcript.Entry {
	return c.Transcript().Entries
}

// Active returns the entry containing the current playback position.
func (c *Controller) Active() (transcript.Entry, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Transcript(c.sample).Active(c.state.CurrentTime)
}

// apply requests the host change via req and, when it succeeds, commits
// next. A failed request leaves the state as it was apart from LastError.
func (c *Controller) apply(action string, next State, req func(Media) error) error {
	if c.closed {
		return ErrClosed
	}
	if req != nil {
		if c.media == nil {
			c.state.LastError = errNilMedia.Error()
			return errNilMedia
		}
		if err := req(c.media); err != nil {
			err = fmt.Errorf("%s: %w", action, err)
			c.state.LastError = err.Error()
			c.log.Event(diaglog.ComponentController, diaglog.EventTransport, err.Error())
			return err
		}
	}
	next.LastAction = action
	next.LastError = ""
	c.state = next
	c.log.Log(diaglog.Record{
		Component: diaglog.ComponentController,
		Event:     diaglog.EventTransport,
		Reason:    action,
		Payload: map[string]interface{}{
			"current_time":  next.CurrentTime,
			"is_playing":    next.IsPlaying,
			"volume":        next.Volume,
			"playback_rate": next.PlaybackRate,
		},
	})
	return nil
}

// effect is what the controller does for an event kind beyond its pure
// transition. Kinds without a request are host reports: their transition
// is committed as-is.
type effect struct {
	needsAudio bool
	release    bool // revoke the live handle first; it stays revoked if the host refuses
	request    func(prev, next State) (action string, req func(Media) error)
	after      func(c *Controller) error
}

var effects = map[EventKind]effect{
	EventTimeUpdate:      {},
	EventMetadataLoaded:  {after: (*Controller).reapplyRate},
	EventEnded:           {after: (*Controller).logEnded},
	EventToggle:          {needsAudio: true, request: playOrPause},
	EventSeek:            {needsAudio: true, request: moveTo("seek")},
	EventSkip:            {needsAudio: true, request: moveTo("skip")},
	EventVolume:          {request: changeVolume},
	EventRate:            {request: changeRate},
	EventClearTranscript: {request: local("clear-transcript"), after: (*Controller).logCleared},
	EventRemoveAudio:     {needsAudio: true, release: true, request: unload},
}

func playOrPause(_, next State) (string, func(Media) error) {
	if next.IsPlaying {
		return "play", Media.Play
	}
	return "pause", Media.Pause
}

func moveTo(action string) func(State, State) (string, func(Media) error) {
	return func(_, next State) (string, func(Media) error) {
		t := next.CurrentTime
		return action, func(m Media) error { return m.SetCurrentTime(t) }
	}
}

func changeVolume(_, next State) (string, func(Media) error) {
	level := float64(next.Volume) / 100
	return "volume", func(m Media) error { return m.SetVolume(level) }
}

// changeRate only stores the rate when no audio is loaded; it is sent when
// the next metadata load completes.
func changeRate(prev, next State) (string, func(Media) error) {
	if !prev.HasAudio() {
		return "rate", nil
	}
	rate := next.PlaybackRate
	return "rate", func(m Media) error { return m.SetPlaybackRate(rate) }
}

func unload(_, _ State) (string, func(Media) error) {
	return "remove-audio", Media.Unload
}

func local(action string) func(State, State) (string, func(Media) error) {
	return func(_, _ State) (string, func(Media) error) { return action, nil }
}

// Dispatch applies a host or user event: the pure transition from Reduce,
// plus whatever host request the kind needs.
func (c *Controller) Dispatch(e Event) error {
	if !Known(e.Kind) {
		return fmt.Errorf("%w %q", ErrUnknownEvent, e.Kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatchLocked(e, "")
}

// dispatchLocked runs e with c.mu held. A non-empty action replaces the
// kind's own action name.
func (c *Controller) dispatchLocked(e Event, action string) error {
	eff := effects[e.Kind]
	if eff.needsAudio && !c.state.HasAudio() {
		return ErrNoAudio
	}
	next := Reduce(c.state, e)
	if eff.request != nil {
		name, req := eff.request(c.state, next)
		if action == "" {
			action = name
		}
		if eff.release && !c.closed {
			c.revokeLocked()
		}
		if err := c.apply(action, next, req); err != nil {
			if eff.release && !errors.Is(err, ErrClosed) {
				c.state = next
				c.state.LastError = err.Error()
				c.log.Event(diaglog.ComponentUpload, diaglog.EventAudioRemoved, err.Error())
			}
			return err
		}
		if eff.release {
			c.log.Event(diaglog.ComponentUpload, diaglog.EventAudioRemoved, "")
		}
	} else {
		c.state = next
	}
	if eff.after != nil {
		return eff.after(c)
	}
	return nil
}

// TogglePlay starts or pauses playback.
func (c *Controller) TogglePlay() error {
	return c.Dispatch(Event{Kind: EventToggle})
}

// Play starts playback; a no-op when already playing.
func (c *Controller) Play() error {
	return c.setPlaying(true)
}

// Pause stops playback; a no-op when already paused.
func (c *Controller) Pause() error {
	return c.setPlaying(false)
}

func (c *Controller) setPlaying(playing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsPlaying == playing {
		return nil
	}
	return c.dispatchLocked(Event{Kind: EventToggle}, "")
}

// SeekTo moves to t seconds, clamped to [0, duration].
func (c *Controller) SeekTo(t float64) error {
	return c.Dispatch(Event{Kind: EventSeek, Value: t})
}

// Skip moves delta seconds from the current position, clamped the same way.
func (c *Controller) Skip(delta float64) error {
	return c.Dispatch(Event{Kind: EventSkip, Value: delta})
}

// JumpTo seeks to the start of entry index of the shown transcript.
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.state.Transcript(c.sample).Entries
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("%w: %d", ErrNoEntry, index)
	}
	return c.dispatchLocked(Event{Kind: EventSeek, Value: entries[index].Start}, "jump")
}

// SetVolume sets the volume on the 0-100 scale; the host receives v/100.
func (c *Controller) SetVolume(v int) error {
	return c.Dispatch(Event{Kind: EventVolume, Value: float64(v)})
}

// SetPlaybackRate sets the rate, clamped to [0.5, 8]. Without audio the
// rate is only stored; it is sent when the next metadata load completes.
func (c *Controller) SetPlaybackRate(r float64) error {
	return c.Dispatch(Event{Kind: EventRate, Value: r})
}

// LoadAudio makes a the active source. The file must pass
// upload.AcceptAudio; a rejected file changes nothing. A new handle is
// minted for a and the previous one is revoked once the host has accepted
// the new source; if the host refuses, the previous audio stays active.
func (c *Controller) LoadAudio(a upload.Audio) error {
	if err := upload.AcceptAudio(a.Name, a.MIMEType); err != nil {
		c.log.Event(diaglog.ComponentUpload, diaglog.EventAudioRejected, err.Error())
		c.mu.Lock()
		c.state.LastError = err.Error()
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.media == nil {
		return errNilMedia
	}

	prev := c.state.Handle
	h := c.handles.Create(a)
	if err := c.apply("load-audio", LoadAudio(c.state, a, h), func(m Media) error { return m.Load(string(h)) }); err != nil {
		_ = c.handles.Revoke(h)
		return err
	}
	c.revoke(prev)
	c.log.Log(diaglog.Record{
		Component: diaglog.ComponentUpload,
		Event:     diaglog.EventAudioLoaded,
		Payload:   map[string]interface{}{"name": a.Name, "mime_type": a.MIMEType, "size": a.Size, "handle": string(h)},
	})
	return nil
}

// RemoveAudio unloads the active source and revokes its handle.
func (c *Controller) RemoveAudio() error {
	return c.Dispatch(Event{Kind: EventRemoveAudio})
}

func (c *Controller) revokeLocked() {
	c.revoke(c.state.Handle)
	c.state.Handle = ""
}

func (c *Controller) revoke(h upload.Handle) {
	if h.IsZero() {
		return
	}
	if err := c.handles.Revoke(h); err != nil {
		c.log.Event(diaglog.ComponentUpload, diaglog.EventHandleRevoked, err.Error())
		return
	}
	c.log.Event(diaglog.ComponentUpload, diaglog.EventHandleRevoked, string(h))
}

// ImportTranscript validates raw as a transcript document named name and,
// on success, replaces the custom transcript and selects it. On failure the
// previous transcript and source selection are kept.
func (c *Controller) ImportTranscript(name, mimeType string, raw []byte) error {
	entries, err := validateTranscript(name, mimeType, raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.LastError = err.Error()
		c.log.Event(diaglog.ComponentImporter, diaglog.EventTranscriptRejected, err.Error())
		return err
	}
	tr := &transcript.Transcript{Source: transcript.SourceCustom, Name: name, Entries: entries}
	if err := c.apply("load-transcript", LoadTranscript(c.state, tr), nil); err != nil {
		return err
	}
	c.log.Log(diaglog.Record{
		Component: diaglog.ComponentImporter,
		Event:     diaglog.EventTranscriptImported,
		Payload:   map[string]interface{}{"name": name, "entries": len(entries)},
	})
	return nil
}

func validateTranscript(name, mimeType string, raw []byte) ([]transcript.Entry, error) {
	if err := transcript.AcceptTranscriptFile(name, mimeType); err != nil {
		return nil, err
	}
	return transcript.Detect(raw)
}

// ClearTranscript drops the custom transcript and shows the sample again.
func (c *Controller) ClearTranscript() error {
	return c.Dispatch(Event{Kind: EventClearTranscript})
}

// HandleTimeUpdate records a position reported by the host.
func (c *Controller) HandleTimeUpdate(t float64) {
	_ = c.Dispatch(Event{Kind: EventTimeUpdate, Value: t})
}

// HandleMetadataLoaded records the duration and re-sends the current rate,
// which the host resets on every load.
func (c *Controller) HandleMetadataLoaded(duration float64) error {
	return c.Dispatch(Event{Kind: EventMetadataLoaded, Value: duration})
}

// HandleEnded records that playback reached the end.
func (c *Controller) HandleEnded() {
	_ = c.Dispatch(Event{Kind: EventEnded})
}

func (c *Controller) reapplyRate() error {
	c.log.Log(diaglog.Record{
		Component: diaglog.ComponentController,
		Event:     diaglog.EventMetadataLoaded,
		Payload:   map[string]interface{}{"duration": c.state.Duration},
	})
	if c.media == nil || c.closed {
		return nil
	}
	if err := c.media.SetPlaybackRate(c.state.PlaybackRate); err != nil {
		c.state.LastError = err.Error()
		return fmt.Errorf("re-applying playback rate: %w", err)
	}
	return nil
}

func (c *Controller) logEnded() error {
	c.log.Event(diaglog.ComponentController, diaglog.EventPlaybackEnded, "")
	return nil
}

func (c *Controller) logCleared() error {
	c.log.Event(diaglog.ComponentImporter, diaglog.EventTranscriptCleared, "")
	return nil
}

// Close revokes the live handle, if any. Further transport calls fail with
// ErrClosed. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.revokeLocked()
	c.closed = true
	return nil
}
