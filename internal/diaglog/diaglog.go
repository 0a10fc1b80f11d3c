// Package diaglog writes NDJSON diagnostic records for the voiceplay daemon.
// It is switched on by VOICEPLAY_DEBUG=true; otherwise every Log call is a
// no-op and no file is created.
package diaglog

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/xid"
)

// EnvDebug enables diagnostic logging when set to "true".
const EnvDebug = "VOICEPLAY_DEBUG"

// DefaultMaxSize is the size at which the log rotates to its .1 backup.
const DefaultMaxSize = 10 * 1024 * 1024

const (
	ComponentMediaHost  = "media-host"
	ComponentController = "controller"
	ComponentImporter   = "importer"
	ComponentUpload     = "upload"
	ComponentWatcher    = "watcher"
	ComponentDiagExport = "diag-export"
	ComponentVoiceplay  = "voiceplay"
)

const (
	EventWSSend             = "ws_send"
	EventWSRecv             = "ws_recv"
	EventWSConnect          = "ws_connect"
	EventWSDisconnect       = "ws_disconnect"
	EventWSReconnectAttempt = "ws_reconnect_attempt"
	EventWSReconnectFailed  = "ws_reconnect_failed"

	EventAudioLoaded        = "audio_loaded"
	EventAudioRejected      = "audio_rejected"
	EventAudioRemoved       = "audio_removed"
	EventHandleRevoked      = "handle_revoked"
	EventTranscriptImported = "transcript_imported"
	EventTranscriptRejected = "transcript_rejected"
	EventTranscriptCleared  = "transcript_cleared"
	EventTransport          = "transport"
	EventMetadataLoaded     = "metadata_loaded"
	EventPlaybackEnded      = "playback_ended"
	EventFileChanged        = "file_changed"
	EventWatchFallback      = "watch_fallback"
)

// Record is one diagnostic event, serialised as a single JSON line.
type Record struct {
	Timestamp string      `json:"ts"`
	Component string      `json:"component"`
	Event     string      `json:"event"`
	SessionID string      `json:"session_id,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Payload   interface{} `json:"payload,omitempty"` // redacted before write
}

// Logger appends Records to a rotating NDJSON file.
type Logger struct {
	rw      *rollingWriter
	mu      sync.Mutex
	enabled bool
	session string
}

// New opens the log at path. When debug logging is disabled the path is
// ignored and a no-op logger is returned.
func New(path string) (*Logger, error) {
	if !IsDebugEnabled() {
		return NewNoOp(), nil
	}
	rw, err := newRollingWriter(path, DefaultMaxSize)
	if err != nil {
		return nil, err
	}
	return &Logger{rw: rw, enabled: true, session: xid.New().String()}, nil
}

// Log writes r. Records without a session id are stamped with the logger's.
func (l *Logger) Log(r Record) {
	if l == nil || !l.enabled {
		return
	}
	if r.Timestamp == "" {
		r.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if r.SessionID == "" {
		r.SessionID = l.session
	}
	if r.Payload != nil {
		r.Payload = Redact(r.Payload)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.rw.Write(data)
}

// Event is shorthand for Log with no payload.
func (l *Logger) Event(component, event, reason string) {
	l.Log(Record{Component: component, Event: event, Reason: reason})
}

// Session returns the id stamped on this logger's records.
func (l *Logger) Session() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Enabled reports whether records are actually written.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Close flushes and closes the file. Safe on nil or disabled loggers.
func (l *Logger) Close() error {
	if l == nil || !l.enabled || l.rw == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rw.close()
}

// IsDebugEnabled reports whether VOICEPLAY_DEBUG is "true".
func IsDebugEnabled() bool {
	return os.Getenv(EnvDebug) == "true"
}

// NewNoOp returns a logger that drops everything.
func NewNoOp() *Logger {
	return &Logger{enabled: false}
}
