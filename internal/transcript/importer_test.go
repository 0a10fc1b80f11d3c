package transcript

import (
	"errors"
	"testing"
)

func TestImportValid(t *testing.T) {
	entries, err := Import([]byte(`[{"start":0,"end":2,"label":"x"}]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	want := Entry{Start: 0, End: 2, Text: "x"}
	if entries[0] != want {
		t.Errorf("entry = %+v, want %+v", entries[0], want)
	}
}

func TestImportKeepsOrderAndExtraFields(t *testing.T) {
	raw := `[
		{"start": 0, "end": 1.5, "label": "first", "speaker": "A"},
		{"start": 1.5, "end": 4, "label": ""}
	]`
	entries, err := Import([]byte(raw))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if entries[0].Text != "first" || entries[1].Start != 1.5 {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestImportRejects(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantIs    error
		wantField string
		wantIndex int
	}{
		{name: "syntax error", raw: `[{"start":0,`, wantIs: ErrInvalidJSON},
		{name: "empty input", raw: ``, wantIs: ErrInvalidJSON},
		{name: "object", raw: `{"not":"an array"}`, wantIs: ErrNotArray},
		{name: "empty array", raw: `[]`, wantIs: ErrNotArray},
		{name: "null", raw: `null`, wantIs: ErrNotArray},
		{name: "string start", raw: `[{"start":"0","end":2,"label":"x"}]`, wantField: "start"},
		{name: "missing end", raw: `[{"start":0,"label":"x"}]`, wantField: "end"},
		{name: "null end", raw: `[{"start":0,"end":null,"label":"x"}]`, wantField: "end"},
		{name: "numeric label", raw: `[{"start":0,"end":1,"label":5}]`, wantField: "label"},
		{name: "text instead of label", raw: `[{"start":0,"end":1,"text":"x"}]`, wantField: "label"},
		{name: "second element bad", raw: `[{"start":0,"end":1,"label":"a"},{"start":1,"end":"2","label":"b"}]`, wantField: "end", wantIndex: 1},
		{name: "non-object element", raw: `[42]`, wantField: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Import([]byte(tt.raw))
			if err == nil {
				t.Fatalf("expected rejection, got %+v", entries)
			}
			if entries != nil {
				t.Errorf("rejected import returned entries: %+v", entries)
			}
			if tt.wantIs != nil {
				if !errors.Is(err, tt.wantIs) {
					t.Errorf("error = %v, want %v", err, tt.wantIs)
				}
				return
			}
			var se *ShapeError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v (%T), want *ShapeError", err, err)
			}
			if se.Field != tt.wantField || se.Index != tt.wantIndex {
				t.Errorf("ShapeError = %+v, want field %q index %d", se, tt.wantField, tt.wantIndex)
			}
		})
	}
}

func TestImportLabels(t *testing.T) {
	entries, err := ImportLabels([]byte(`[{"time":"0:00","text":"a"},{"time":"0:15","text":"b"}]`))
	if err != nil {
		t.Fatalf("ImportLabels: %v", err)
	}
	if entries[0].End != 15 || !entries[1].OpenEnded() {
		t.Errorf("unexpected ends: %+v", entries)
	}

	_, err = ImportLabels([]byte(`[{"time":"soon","text":"a"}]`))
	var se *ShapeError
	if !errors.As(err, &se) || se.Field != "time" {
		t.Errorf("bad time error = %v, want ShapeError on time", err)
	}
}

func TestDetect(t *testing.T) {
	labels, err := Detect([]byte(`[{"time":"0:05","text":"a"}]`))
	if err != nil {
		t.Fatalf("Detect labels: %v", err)
	}
	if labels[0].Start != 5 || !labels[0].OpenEnded() {
		t.Errorf("label entry = %+v", labels[0])
	}

	ranges, err := Detect([]byte(`[{"start":1,"end":2,"label":"a"}]`))
	if err != nil {
		t.Fatalf("Detect ranges: %v", err)
	}
	if ranges[0].End != 2 {
		t.Errorf("range entry = %+v", ranges[0])
	}

	if _, err := Detect([]byte(`{}`)); !errors.Is(err, ErrNotArray) {
		t.Errorf("Detect object err = %v, want ErrNotArray", err)
	}
}

func TestAcceptTranscriptFile(t *testing.T) {
	tests := []struct {
		name, mime string
		ok         bool
	}{
		{"words.json", "", true},
		{"WORDS.JSON", "application/octet-stream", true},
		{"words", "application/json", true},
		{"words.txt", "text/plain", false},
		{"words.srt", "", false},
	}
	for _, tt := range tests {
		err := AcceptTranscriptFile(tt.name, tt.mime)
		if (err == nil) != tt.ok {
			t.Errorf("AcceptTranscriptFile(%q, %q) = %v, want ok=%v", tt.name, tt.mime, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrNotJSONFile) {
			t.Errorf("error %v should wrap ErrNotJSONFile", err)
		}
	}
}
