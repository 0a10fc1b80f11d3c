// Package transcript holds the time-indexed transcript model: entries with
// half-open [Start, End) intervals in seconds, the lookup that maps a
// playback position to the active entry, and the M:SS timestamp codec.
package transcript

import (
	"fmt"
	"math"
)

// Source says where the active transcript came from.
type Source string

const (
	SourceSample Source = "sample" // built-in label list
	SourceCustom Source = "custom" // imported by the user
)

// Entry is one timed text segment covering [Start, End) in seconds.
type Entry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"label"`
}

// Contains reports whether t falls inside the entry's half-open interval.
func (e Entry) Contains(t float64) bool {
	return t >= e.Start && t < e.End
}

// OpenEnded reports whether End was derived as +Inf (last label entry).
func (e Entry) OpenEnded() bool {
	return math.IsInf(e.End, 1)
}

// Label is the "time + text" shape used by the built-in sample, where an
// entry ends where the next one starts.
type Label struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// Transcript is an ordered set of entries plus where they came from. It is
// replaced wholesale when a new transcript is loaded, never edited in place.
type Transcript struct {
	Source  Source
	Name    string // file name for custom transcripts
	Entries []Entry
}

// FromLabels converts a label list into entries, deriving each End from the
// next label's start. The last entry is open-ended (+Inf).
func FromLabels(labels []Label) ([]Entry, error) {
	entries := make([]Entry, len(labels))
	for i, l := range labels {
		sec, err := ParseTimestamp(l.Time)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
		entries[i] = Entry{Start: float64(sec), Text: l.Text}
	}
	for i := range entries {
		if i+1 < len(entries) {
			entries[i].End = entries[i+1].Start
		} else {
			entries[i].End = math.Inf(1)
		}
	}
	return entries, nil
}

// Lookup returns the index of the first entry whose interval contains t.
// Entries are expected sorted and non-overlapping; when they are not the
// result is whichever entry matches first, or no match.
func Lookup(entries []Entry, t float64) (int, bool) {
	if math.IsNaN(t) {
		return -1, false
	}
	for i, e := range entries {
		if e.Contains(t) {
			return i, true
		}
	}
	return -1, false
}

// Active returns the entry covering t, if any.
func (tr *Transcript) Active(t float64) (Entry, int, bool) {
	if tr == nil {
		return Entry{}, -1, false
	}
	i, ok := Lookup(tr.Entries, t)
	if !ok {
		return Entry{}, -1, false
	}
	return tr.Entries[i], i, true
}

// Len returns the number of entries; safe on nil.
func (tr *Transcript) Len() int {
	if tr == nil {
		return 0
	}
	return len(tr.Entries)
}

// Bounded returns a copy of the entries with open ends closed at duration
// (or at the entry's own start when duration is earlier). Writers need
// finite bounds.
func (tr *Transcript) Bounded(duration float64) []Entry {
	if tr == nil {
		return nil
	}
	out := make([]Entry, len(tr.Entries))
	copy(out, tr.Entries)
	for i := range out {
		if out[i].OpenEnded() {
			out[i].End = math.Max(out[i].Start, duration)
		}
	}
	return out
}
