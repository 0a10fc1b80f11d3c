// Package upload accepts user-provided audio files and manages the transient
// URL handles the media host plays them through.
package upload

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// ErrUnsupportedAudio is returned for files that are neither audio/* nor a
// known audio extension.
var ErrUnsupportedAudio = errors.New("upload: unsupported audio file")

// audioExtensions are accepted regardless of the reported media type. The
// value is used when the system mime table has no entry.
var audioExtensions = map[string]string{
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".flac": "audio/flac",
}

// Audio describes one uploaded audio file.
type Audio struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

// AcceptAudio reports whether a file may become the active audio source.
func AcceptAudio(name, mimeType string) error {
	if strings.HasPrefix(strings.ToLower(mimeType), "audio/") {
		return nil
	}
	if _, ok := audioExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return nil
	}
	if mimeType == "" {
		mimeType = "unknown"
	}
	return fmt.Errorf("%w: %s (%s)", ErrUnsupportedAudio, name, mimeType)
}

// DetectMIMEType guesses a media type from the file extension; "" when the
// extension is unknown.
func DetectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := audioExtensions[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
