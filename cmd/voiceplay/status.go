package main

import (
	"time"

	"github.com/tiroq/voiceplay/internal/fileutil"
	"github.com/tiroq/voiceplay/internal/ipc"
	"github.com/tiroq/voiceplay/internal/transcript"
)

// snapshot builds the status published to voiceplay-ctl.
func (a *app) snapshot() *ipc.StatusSnapshot {
	s := a.ctl.Snapshot()
	tr := a.ctl.Transcript()

	st := &ipc.StatusSnapshot{
		IsPlaying:    s.IsPlaying,
		CurrentTime:  s.CurrentTime,
		Duration:     s.Duration,
		Position:     transcript.FormatTimestamp(s.CurrentTime) + " / " + transcript.FormatTimestamp(s.Duration),
		Volume:       s.Volume,
		PlaybackRate: s.PlaybackRate,
		Source:       string(tr.Source),
		Entries:      tr.Len(),
		ActiveIndex:  -1,
		LastAction:   s.LastAction,
		LastError:    s.LastError,
		Timestamp:    time.Now(),
	}
	if s.Audio != nil {
		st.AudioName = s.Audio.Name
	}
	if tr.Source == transcript.SourceCustom {
		st.TranscriptName = tr.Name
	}
	st.Lines = make([]ipc.Line, len(tr.Entries))
	for i, e := range tr.Entries {
		st.Lines[i] = ipc.Line{Time: transcript.FormatTimestamp(e.Start), Text: e.Text}
	}
	if e, i, ok := tr.Active(s.CurrentTime); ok {
		st.ActiveIndex = i
		st.ActiveText = e.Text
		st.ActiveTime = transcript.FormatTimestamp(e.Start)
	}
	if a.host != nil {
		st.HostConnected = a.host.IsConnected()
		st.HostVersion = a.host.Status().HostVersion
	}
	return st
}

func (a *app) writeStatus() error {
	return ipc.WriteStatus(a.snapshot())
}

// export writes the active transcript in the configured formats plus a
// metadata sidecar. dest defaults to the configured export directory.
func (a *app) export(dest string) ([]string, error) {
	s := a.ctl.Snapshot()
	if dest == "" {
		dest = a.cfg.ExportDir
	}
	x := fileutil.Export{
		Dest:       dest,
		Formats:    a.cfg.ExportFormats,
		Transcript: a.ctl.Transcript(),
		Duration:   s.Duration,
		Version:    Version,
		SessionID:  a.diag.Session(),
	}
	if s.Audio != nil {
		x.AudioName = s.Audio.Name
		x.AudioMIMEType = s.Audio.MIMEType
	}
	return fileutil.WriteExport(x)
}
