package transcript

import (
	"math"
	"testing"
)

func twoEntries() []Entry {
	return []Entry{
		{Start: 0, End: 5, Text: "a"},
		{Start: 5, End: 10, Text: "b"},
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		at       float64
		wantText string
		wantOK   bool
	}{
		{name: "inside first", at: 2, wantText: "a", wantOK: true},
		{name: "start is inclusive", at: 0, wantText: "a", wantOK: true},
		{name: "boundary belongs to next", at: 5, wantText: "b", wantOK: true},
		{name: "just before end", at: 9.999, wantText: "b", wantOK: true},
		{name: "end is exclusive", at: 10, wantOK: false},
		{name: "negative", at: -1, wantOK: false},
		{name: "past the end", at: 3600, wantOK: false},
		{name: "NaN", at: math.NaN(), wantOK: false},
	}

	entries := twoEntries()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, ok := Lookup(entries, tt.at)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%v) ok = %v, want %v", tt.at, ok, tt.wantOK)
			}
			if !ok {
				if i != -1 {
					t.Errorf("index = %d on no match, want -1", i)
				}
				return
			}
			if entries[i].Text != tt.wantText {
				t.Errorf("Lookup(%v) = %q, want %q", tt.at, entries[i].Text, tt.wantText)
			}
		})
	}
}

func TestLookupEmpty(t *testing.T) {
	for _, at := range []float64{-10, 0, 1, 1e9, math.Inf(1)} {
		if _, ok := Lookup(nil, at); ok {
			t.Errorf("Lookup(nil, %v) matched", at)
		}
		if _, ok := Lookup([]Entry{}, at); ok {
			t.Errorf("Lookup([], %v) matched", at)
		}
	}
}

func TestLookupMalformedDoesNotPanic(t *testing.T) {
	entries := []Entry{
		{Start: 10, End: 20, Text: "late"},
		{Start: 0, End: 15, Text: "overlap"},
		{Start: 30, End: 25, Text: "inverted"},
	}
	for at := -5.0; at < 40; at += 0.5 {
		Lookup(entries, at)
	}
	if _, ok := Lookup(entries, 27); ok {
		t.Error("inverted interval should never match")
	}
}

func TestFromLabelsDerivesEnds(t *testing.T) {
	entries, err := FromLabels([]Label{
		{Time: "0:00", Text: "one"},
		{Time: "0:15", Text: "two"},
		{Time: "1:05", Text: "three"},
	})
	if err != nil {
		t.Fatalf("FromLabels: %v", err)
	}
	if entries[0].End != 15 || entries[1].End != 65 {
		t.Errorf("derived ends = %v, %v; want 15, 65", entries[0].End, entries[1].End)
	}
	if !entries[2].OpenEnded() {
		t.Errorf("last entry end = %v, want +Inf", entries[2].End)
	}

	i, ok := Lookup(entries, 9999)
	if !ok || entries[i].Text != "three" {
		t.Errorf("open-ended last entry should match any later time, got %d %v", i, ok)
	}
	if _, ok := Lookup(entries, -0.5); ok {
		t.Error("negative time should not match")
	}
}

func TestFromLabelsRejectsBadTime(t *testing.T) {
	if _, err := FromLabels([]Label{{Time: "soon", Text: "x"}}); err == nil {
		t.Error("expected error for unparseable label time")
	}
}

func TestTranscriptActive(t *testing.T) {
	tr := &Transcript{Source: SourceCustom, Entries: twoEntries()}
	e, i, ok := tr.Active(7)
	if !ok || i != 1 || e.Text != "b" {
		t.Errorf("Active(7) = %+v, %d, %v", e, i, ok)
	}

	var nilTr *Transcript
	if _, _, ok := nilTr.Active(1); ok {
		t.Error("nil transcript should not match")
	}
	if nilTr.Len() != 0 {
		t.Error("nil transcript Len should be 0")
	}
}

func TestBounded(t *testing.T) {
	tr := Sample()
	out := tr.Bounded(30)
	last := out[len(out)-1]
	if last.End != 30 {
		t.Errorf("bounded end = %v, want 30", last.End)
	}
	if !tr.Entries[len(tr.Entries)-1].OpenEnded() {
		t.Error("Bounded must not modify the source transcript")
	}

	early := tr.Bounded(0)
	if early[len(early)-1].End != early[len(early)-1].Start {
		t.Errorf("duration before start should clamp to start, got %v", early[len(early)-1].End)
	}
}

func TestSample(t *testing.T) {
	a := Sample()
	b := Sample()
	if a.Source != SourceSample {
		t.Errorf("source = %q, want sample", a.Source)
	}
	if len(a.Entries) != 5 {
		t.Fatalf("sample has %d entries, want 5", len(a.Entries))
	}
	a.Entries[0].Text = "changed"
	if b.Entries[0].Text == "changed" {
		t.Error("Sample must return independent copies")
	}
	if _, i, _ := b.Active(12); i != 2 {
		t.Errorf("Active(12) index = %d, want 2", i)
	}
}
