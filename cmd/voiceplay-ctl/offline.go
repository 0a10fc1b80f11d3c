package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/tiroq/voiceplay/internal/config"
	"github.com/tiroq/voiceplay/internal/fileutil"
	"github.com/tiroq/voiceplay/internal/transcript"
	"github.com/tiroq/voiceplay/internal/upload"
)

// loadTranscript reads and validates path, or returns the sample when path
// is empty.
func loadTranscript(path string) (*transcript.Transcript, error) {
	if path == "" {
		return transcript.Sample(), nil
	}
	res := <-upload.ReadAsync(path)
	if res.Err != nil {
		return nil, res.Err
	}
	if err := transcript.AcceptTranscriptFile(res.Name, ""); err != nil {
		return nil, err
	}
	entries, err := transcript.Detect(res.Data)
	if err != nil {
		return nil, err
	}
	return &transcript.Transcript{Source: transcript.SourceCustom, Name: res.Name, Entries: entries}, nil
}

func runLookup(out io.Writer, c *lookupCmd) error {
	t, err := transcript.ParsePosition(c.Position)
	if err != nil {
		return err
	}
	tr, err := loadTranscript(c.Transcript)
	if err != nil {
		return err
	}
	e, i, ok := tr.Active(t)
	if !ok {
		fmt.Fprintf(out, "no entry at %s\n", transcript.FormatTimestamp(t))
		return nil
	}
	fmt.Fprintf(out, "%d [%s] %s\n", i, transcript.FormatTimestamp(e.Start), e.Text)
	return nil
}

func runFormat(out io.Writer, seconds float64) error {
	fmt.Fprintln(out, transcript.FormatTimestamp(seconds))
	return nil
}

func runParse(out io.Writer, ts string) error {
	sec, err := transcript.ParseTimestamp(ts)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, sec)
	return nil
}

func runValidate(out io.Writer, path string) error {
	tr, err := loadTranscript(path)
	if err != nil {
		var shape *transcript.ShapeError
		if errors.As(err, &shape) {
			return fmt.Errorf("%s: %w (fix element %d)", filepath.Base(path), err, shape.Index)
		}
		return err
	}
	first, last := tr.Entries[0], tr.Entries[len(tr.Entries)-1]
	fmt.Fprintf(out, "ok: %s has %d entries (%s to %s)\n", tr.Name, tr.Len(),
		transcript.FormatTimestamp(first.Start), transcript.FormatTimestamp(last.End))
	return nil
}

func exportOffline(out io.Writer, c *exportCmd) error {
	tr, err := loadTranscript(c.Transcript)
	if err != nil {
		return err
	}
	formats := c.Formats
	dest := c.Dest
	if len(formats) == 0 || dest == "" {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		if len(formats) == 0 {
			formats = cfg.ExportFormats
		}
		if dest == "" {
			dest = cfg.ExportDir
		}
	}
	files, err := fileutil.WriteExport(fileutil.Export{
		Dest:       dest,
		Formats:    formats,
		Transcript: tr,
		Duration:   c.Duration,
		Version:    Version,
	})
	for _, f := range files {
		fmt.Fprintf(out, "Wrote: %s\n", f)
	}
	return err
}
