package fileutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tiroq/voiceplay/internal/transcript"
)

func TestWriteExport_Directory(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
	x := Export{
		Dest:          dir,
		Formats:       []string{"srt", "json"},
		Transcript:    transcript.Sample(),
		Duration:      25,
		AudioName:     "standup.m4a",
		AudioMIMEType: "audio/mp4",
		Version:       "1.2.3",
		SessionID:     "abc123",
		Now:           at,
	}

	files, err := WriteExport(x)
	if err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	want := []string{
		filepath.Join(dir, "2025-01-15_1430_standup.srt"),
		filepath.Join(dir, "2025-01-15_1430_standup.json"),
	}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files = %v, want %v", files, want)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "2025-01-15_1430_standup.meta.json"))
	if err != nil {
		t.Fatal(err)
	}
	var meta ExportMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.AudioName != "standup.m4a" || meta.AudioMIMEType != "audio/mp4" || meta.SessionID != "abc123" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.TranscriptSource != "sample" || meta.TranscriptName != "" || meta.EntryCount != 5 {
		t.Errorf("meta transcript fields = %+v", meta)
	}
	if len(meta.Files) != 2 || meta.Error != "" {
		t.Errorf("meta files = %v, error %q", meta.Files, meta.Error)
	}

	again, err := WriteExport(x)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 2 || !strings.HasSuffix(again[0], "_standup_2.srt") {
		t.Errorf("second export = %v", again)
	}
}

func TestWriteExport_BasePathAndDefaults(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "notes.vtt")
	tr := &transcript.Transcript{
		Source:  transcript.SourceCustom,
		Name:    "notes.json",
		Entries: transcript.Sample().Entries,
	}

	files, err := WriteExport(Export{Dest: dest, Transcript: tr})
	if err != nil {
		t.Fatalf("WriteExport: %v", err)
	}
	base := strings.TrimSuffix(dest, ".vtt")
	if len(files) != 1 || files[0] != base+".txt" {
		t.Errorf("files = %v, want [%s.txt]", files, base)
	}

	raw, err := os.ReadFile(base + ".meta.json")
	if err != nil {
		t.Fatal(err)
	}
	var meta ExportMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.TranscriptName != "notes.json" || meta.ExportedAt.IsZero() {
		t.Errorf("meta = %+v", meta)
	}
}

func TestWriteExport_UnknownFormatRecorded(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	files, err := WriteExport(Export{Dest: dest, Formats: []string{"txt", "doc"}, Transcript: transcript.Sample()})
	if err == nil || !strings.Contains(err.Error(), `"doc"`) {
		t.Fatalf("err = %v, want unknown format", err)
	}
	if len(files) != 1 {
		t.Errorf("files = %v", files)
	}
	raw, err := os.ReadFile(dest + ".meta.json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "unknown format") {
		t.Errorf("sidecar should record the failure: %s", raw)
	}

	if _, err := WriteExport(Export{Dest: dest}); err == nil {
		t.Error("export without a transcript should fail")
	}
}
