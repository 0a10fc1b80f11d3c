package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Formats accepted by WriteAll.
var Formats = []string{"txt", "srt", "vtt", "json"}

// WriteText writes a plain text transcript with one entry per line, each
// prefixed by its start in [M:SS] form.
func WriteText(path string, entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] %s\n", FormatTimestamp(e.Start), e.Text)
	}
	return atomicWrite(path, []byte(b.String()))
}

// WriteSRT writes a SubRip (.srt) file. Each entry is numbered from 1 with
// start/end timestamps in HH:MM:SS,mmm format.
func WriteSRT(path string, entries []Entry) error {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatSRTTimestamp(seconds(e.Start)), formatSRTTimestamp(seconds(e.End)))
		fmt.Fprintf(&b, "%s\n", e.Text)
	}
	return atomicWrite(path, []byte(b.String()))
}

// WriteVTT writes a WebVTT (.vtt) file with HH:MM:SS.mmm cue timings,
// preceded by the WEBVTT header.
func WriteVTT(path string, entries []Entry) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, e := range entries {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%s --> %s\n", formatVTTTimestamp(seconds(e.Start)), formatVTTTimestamp(seconds(e.End)))
		fmt.Fprintf(&b, "%s\n", e.Text)
	}
	return atomicWrite(path, []byte(b.String()))
}

// WriteJSON writes the {start, end, label} document accepted by Import, so
// an export can be loaded back as a custom transcript.
func WriteJSON(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}
	return atomicWrite(path, append(data, '\n'))
}

// WriteAll writes entries in every requested format. basePath is the path
// without extension. Defaults to ["txt"] when formats is empty. Returns a
// combined error listing all failures.
func WriteAll(basePath string, entries []Entry, formats []string) error {
	if len(formats) == 0 {
		formats = []string{"txt"}
	}
	var errs []string
	for _, f := range formats {
		var err error
		switch f {
		case "txt":
			err = WriteText(basePath+".txt", entries)
		case "srt":
			err = WriteSRT(basePath+".srt", entries)
		case "vtt":
			err = WriteVTT(basePath+".vtt", entries)
		case "json":
			err = WriteJSON(basePath+".json", entries)
		default:
			errs = append(errs, fmt.Sprintf("unknown format %q", f))
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("transcript write errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}

// formatSRTTimestamp formats a duration as HH:MM:SS,mmm (SRT subtitle format).
func formatSRTTimestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// formatVTTTimestamp formats a duration as HH:MM:SS.mmm (WebVTT format).
func formatVTTTimestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// atomicWrite writes data to path atomically using a temp file + rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, "transcript-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing transcript: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing transcript: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming transcript: %w", err)
	}
	return nil
}
