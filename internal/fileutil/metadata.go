// Package fileutil names transcript exports and writes their sidecar
// metadata.
package fileutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportMetadata is the sidecar written alongside each transcript export.
type ExportMetadata struct {
	Version          string    `json:"version"`
	SessionID        string    `json:"session_id,omitempty"`
	ExportedAt       time.Time `json:"exported_at"`
	AudioName        string    `json:"audio_name,omitempty"`
	AudioMIMEType    string    `json:"audio_mime_type,omitempty"`
	Duration         float64   `json:"duration_seconds"`
	TranscriptSource string    `json:"transcript_source"`
	TranscriptName   string    `json:"transcript_name,omitempty"`
	EntryCount       int       `json:"entry_count"`
	Formats          []string  `json:"formats"`
	Files            []string  `json:"files"`
	Error            string    `json:"error,omitempty"`
}

// WriteMetadata writes a <basepath>.meta.json sidecar next to basePath using
// an atomic temp + rename.
func WriteMetadata(basePath string, meta *ExportMetadata) error {
	metaPath := MetadataPath(basePath)
	dir := filepath.Dir(metaPath)

	tmpFile, err := os.CreateTemp(dir, "meta-*.tmp")
	if err != nil {
		return fmt.Errorf("create metadata temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync metadata: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close metadata temp: %w", err)
	}
	success = true

	if err := os.Rename(tmpPath, metaPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename metadata: %w", err)
	}
	return nil
}

// MetadataPath returns <basepath>.meta.json. A trailing extension on
// basePath is replaced.
func MetadataPath(basePath string) string {
	ext := filepath.Ext(basePath)
	base := basePath[:len(basePath)-len(ext)]
	return base + ".meta.json"
}
