package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidJSON is returned when the document is not parseable JSON.
	ErrInvalidJSON = errors.New("transcript: invalid JSON")
	// ErrNotArray is returned when the document is not a non-empty array.
	ErrNotArray = errors.New("transcript: expected a non-empty array")
	// ErrNotJSONFile is returned for uploads that are not JSON documents.
	ErrNotJSONFile = errors.New("transcript: not a JSON file")
)

// ShapeError reports the first element that failed the field check.
type ShapeError struct {
	Index int
	Field string // "" when the element itself is not an object
	Want  string
}

func (e *ShapeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("transcript: element %d is not an object", e.Index)
	}
	return fmt.Sprintf("transcript: element %d: field %q must be a %s", e.Index, e.Field, e.Want)
}

// AcceptTranscriptFile checks that an upload looks like a JSON document by
// media type or extension.
func AcceptTranscriptFile(name, mimeType string) error {
	if strings.EqualFold(mimeType, "application/json") {
		return nil
	}
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrNotJSONFile, name, mimeType)
}

// Import validates a {start, end, label} document and returns its entries.
// Every element must carry numeric start and end and a string label; values
// of the wrong JSON type (such as "0" for start) are rejected.
func Import(raw []byte) ([]Entry, error) {
	elems, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(elems))
	for i, el := range elems {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, &ShapeError{Index: i}
		}
		start, ok := number(obj["start"])
		if !ok {
			return nil, &ShapeError{Index: i, Field: "start", Want: "number"}
		}
		end, ok := number(obj["end"])
		if !ok {
			return nil, &ShapeError{Index: i, Field: "end", Want: "number"}
		}
		label, ok := obj["label"].(string)
		if !ok {
			return nil, &ShapeError{Index: i, Field: "label", Want: "string"}
		}
		entries[i] = Entry{Start: start, End: end, Text: label}
	}
	return entries, nil
}

// ImportLabels validates a {time, text} document (time as "M:SS") and adapts
// it to entries with derived ends.
func ImportLabels(raw []byte) ([]Entry, error) {
	elems, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}
	labels := make([]Label, len(elems))
	for i, el := range elems {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, &ShapeError{Index: i}
		}
		ts, ok := obj["time"].(string)
		if !ok {
			return nil, &ShapeError{Index: i, Field: "time", Want: "string"}
		}
		if _, err := ParseTimestamp(ts); err != nil {
			return nil, &ShapeError{Index: i, Field: "time", Want: "M:SS timestamp"}
		}
		text, ok := obj["text"].(string)
		if !ok {
			return nil, &ShapeError{Index: i, Field: "text", Want: "string"}
		}
		labels[i] = Label{Time: ts, Text: text}
	}
	return FromLabels(labels)
}

// Detect imports either schema, choosing the label adapter when the first
// element has a "time" key and no "start" key.
func Detect(raw []byte) ([]Entry, error) {
	elems, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}
	if obj, ok := elems[0].(map[string]interface{}); ok {
		_, hasTime := obj["time"]
		_, hasStart := obj["start"]
		if hasTime && !hasStart {
			return ImportLabels(raw)
		}
	}
	return Import(raw)
}

func decodeArray(raw []byte) ([]interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	elems, ok := doc.([]interface{})
	if !ok || len(elems) == 0 {
		return nil, ErrNotArray
	}
	return elems, nil
}

func number(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
