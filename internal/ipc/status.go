package ipc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// StatusSnapshot is what the daemon publishes after every change.
type StatusSnapshot struct {
	IsPlaying    bool    `json:"is_playing"`
	CurrentTime  float64 `json:"current_time"`
	Duration     float64 `json:"duration"`
	Position     string  `json:"position"` // M:SS / M:SS
	Volume       int     `json:"volume"`
	PlaybackRate float64 `json:"playback_rate"`

	AudioName      string `json:"audio_name,omitempty"`
	Source         string `json:"source"` // sample or custom
	TranscriptName string `json:"transcript_name,omitempty"`
	Entries        int    `json:"entries"`
	ActiveIndex    int    `json:"active_index"` // -1 when nothing is active
	ActiveText     string `json:"active_text,omitempty"`
	ActiveTime     string `json:"active_time,omitempty"`
	Lines          []Line `json:"lines,omitempty"`

	HostConnected bool   `json:"host_connected"`
	HostVersion   string `json:"host_version,omitempty"`

	LastAction string    `json:"last_action"`
	LastError  string    `json:"last_error"`
	Timestamp  time.Time `json:"timestamp"`
}

// Line is one transcript entry as shown to the user.
type Line struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// StatusPath is where WriteStatus puts the snapshot.
func StatusPath() string {
	return filepath.Join(CacheDir(), "status.json")
}

// WriteStatus replaces the status file atomically.
func WriteStatus(status *StatusSnapshot) error {
	if err := os.MkdirAll(CacheDir(), 0755); err != nil {
		return err
	}
	return atomicWriteJSON(StatusPath(), status)
}

// ReadStatus loads the last published snapshot.
func ReadStatus() (*StatusSnapshot, error) {
	data, err := os.ReadFile(StatusPath())
	if err != nil {
		return nil, err
	}
	var status StatusSnapshot
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// atomicWriteJSON writes data next to path and renames it into place.
func atomicWriteJSON(path string, data interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "status-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	tmp = nil
	return os.Rename(tmpPath, path)
}
