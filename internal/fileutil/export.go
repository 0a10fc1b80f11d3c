package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tiroq/voiceplay/internal/transcript"
)

// Export describes one transcript export.
type Export struct {
	// Dest is a directory, in which case the name is derived from the audio
	// or transcript name, or a base path whose extension is ignored.
	Dest          string
	Formats       []string
	Transcript    *transcript.Transcript
	Duration      float64
	AudioName     string
	AudioMIMEType string
	Version       string
	SessionID     string
	Now           time.Time
}

// WriteExport writes x.Transcript in each format plus a metadata sidecar
// and returns the files that were written. A format that fails to write
// is recorded in the sidecar and returned as the error.
func WriteExport(x Export) ([]string, error) {
	if x.Transcript == nil {
		return nil, fmt.Errorf("export: no transcript")
	}
	formats := x.Formats
	if len(formats) == 0 {
		formats = []string{"txt"}
	}
	exts := make([]string, len(formats))
	for i, f := range formats {
		exts[i] = "." + f
	}
	now := x.Now
	if now.IsZero() {
		now = time.Now()
	}
	dest := x.Dest
	if dest == "" {
		dest = "."
	}

	tr := x.Transcript
	var base string
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		name := x.AudioName
		if name == "" {
			name = tr.Name
		}
		base = UniqueBase(dest, ExportBasename(name, now), exts)
	} else {
		base = strings.TrimSuffix(dest, filepath.Ext(dest))
		if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
			return nil, err
		}
	}

	writeErr := transcript.WriteAll(base, tr.Bounded(x.Duration), formats)

	var files []string
	for _, ext := range exts {
		if _, err := os.Stat(base + ext); err == nil {
			files = append(files, base+ext)
		}
	}
	meta := &ExportMetadata{
		Version:          x.Version,
		SessionID:        x.SessionID,
		ExportedAt:       now,
		AudioName:        x.AudioName,
		AudioMIMEType:    x.AudioMIMEType,
		Duration:         x.Duration,
		TranscriptSource: string(tr.Source),
		EntryCount:       tr.Len(),
		Formats:          formats,
		Files:            files,
	}
	if tr.Source == transcript.SourceCustom {
		meta.TranscriptName = tr.Name
	}
	if writeErr != nil {
		meta.Error = writeErr.Error()
	}
	if err := WriteMetadata(base, meta); err != nil {
		return files, fmt.Errorf("export metadata: %w", err)
	}
	return files, writeErr
}
