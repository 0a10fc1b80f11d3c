package diaglog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Version is set at link time by the main package.
var Version = "dev"

// Bundle is the header line of an exported diagnostics file.
type Bundle struct {
	ExportedAt string   `json:"exported_at"`
	Version    string   `json:"voiceplay_version"`
	GoVersion  string   `json:"go_version"`
	OS         string   `json:"os"`
	Arch       string   `json:"arch"`
	Sources    []string `json:"sources"`
	EntryCount int      `json:"entry_count"`
}

// Export copies the log at logPath, preceded by its rotated backup when one
// exists, into dest/voiceplay-diag-<ts>.ndjson behind a Bundle header line.
// It returns the written path and the number of records copied.
func Export(logPath, dest string) (string, int, error) {
	var sources []string
	var lines [][]byte

	backup := logPath + ".1"
	if _, err := os.Stat(backup); err == nil {
		b, err := readLines(backup)
		if err != nil {
			return "", 0, err
		}
		sources = append(sources, backup)
		lines = append(lines, b...)
	}

	cur, err := readLines(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, fmt.Errorf("log file not found at %s: %w", logPath, os.ErrNotExist)
		}
		return "", 0, err
	}
	sources = append(sources, logPath)
	lines = append(lines, cur...)

	outPath := filepath.Join(dest, "voiceplay-diag-"+time.Now().UTC().Format("20060102T150405")+".ndjson")
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("creating diagnostics bundle: %w", err)
	}
	defer func() { _ = out.Close() }()

	header, err := json.Marshal(Bundle{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    Version,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Sources:    sources,
		EntryCount: len(lines),
	})
	if err != nil {
		return "", 0, err
	}

	w := bufio.NewWriter(out)
	if _, err := w.Write(append(header, '\n')); err != nil {
		return "", 0, err
	}
	for _, line := range lines {
		if _, err := w.Write(append(line, '\n')); err != nil {
			return "", 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return "", 0, err
	}
	return outPath, len(lines), nil
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines [][]byte
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), DefaultMaxSize)
	for s.Scan() {
		if len(s.Bytes()) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), s.Bytes()...))
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}
