package diaglog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readRecords(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out []map[string]interface{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(s.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", s.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogWritesNDJSON(t *testing.T) {
	t.Setenv(EnvDebug, "true")

	path := filepath.Join(t.TempDir(), "debug.ndjson")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Enabled() || l.Session() == "" {
		t.Fatalf("enabled=%v session=%q", l.Enabled(), l.Session())
	}

	l.Log(Record{Component: ComponentMediaHost, Event: EventWSConnect})
	l.Log(Record{Component: ComponentController, Event: EventAudioLoaded, Reason: "command", SessionID: "fixed"})
	l.Event(ComponentImporter, EventTranscriptRejected, "not an array")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	recs := readRecords(t, path)
	if len(recs) != 3 {
		t.Fatalf("want 3 records, got %d", len(recs))
	}
	if recs[0]["component"] != ComponentMediaHost || recs[0]["ts"] == nil {
		t.Errorf("first record = %v", recs[0])
	}
	if recs[0]["session_id"] != l.Session() {
		t.Errorf("default session_id = %v, want %s", recs[0]["session_id"], l.Session())
	}
	if recs[1]["session_id"] != "fixed" {
		t.Errorf("explicit session_id overwritten: %v", recs[1]["session_id"])
	}
	if recs[2]["reason"] != "not an array" {
		t.Errorf("reason = %v", recs[2]["reason"])
	}
}

func TestLogRedactsPayload(t *testing.T) {
	t.Setenv(EnvDebug, "true")

	path := filepath.Join(t.TempDir(), "debug.ndjson")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(Record{
		Component: ComponentMediaHost,
		Event:     EventWSSend,
		Payload:   map[string]interface{}{"authentication": "abc", "rpcVersion": 1},
	})
	_ = l.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "abc") {
		t.Errorf("secret leaked into log: %s", data)
	}
}

func TestRollingKeepsOneBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roll.ndjson")
	const maxSize = 1024
	rw, err := newRollingWriter(path, maxSize)
	if err != nil {
		t.Fatalf("newRollingWriter: %v", err)
	}
	defer rw.close()

	chunk := []byte(strings.Repeat("x", 512) + "\n")
	for i := 0; i < 5; i++ {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() > maxSize {
		t.Errorf("file size %d exceeds maxSize %d", info.Size(), maxSize)
	}
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("backup missing: %v", err)
	}
	if _, err := os.Stat(path + ".2"); !os.IsNotExist(err) {
		t.Error("only one backup should be kept")
	}
}

func TestRedactSensitiveFields(t *testing.T) {
	input := map[string]interface{}{
		"authentication": "secret-token",
		"Password":       "hunter2",
		"salt":           "abc",
		"safe_field":     "keep-me",
		"list": []interface{}{
			map[string]interface{}{"token": "t", "ok": 1},
		},
	}

	out := Redact(input).(map[string]interface{})
	for _, k := range []string{"authentication", "Password", "salt"} {
		if out[k] != "[REDACTED]" {
			t.Errorf("key %q: want [REDACTED], got %v", k, out[k])
		}
	}
	if out["safe_field"] != "keep-me" {
		t.Error("safe_field should be preserved")
	}
	inner := out["list"].([]interface{})[0].(map[string]interface{})
	if inner["token"] != "[REDACTED]" || inner["ok"] != 1 {
		t.Errorf("nested = %v", inner)
	}
	if input["salt"] != "abc" {
		t.Error("input must not be mutated")
	}
}

func TestNoOpWhenDisabled(t *testing.T) {
	t.Setenv(EnvDebug, "")

	path := filepath.Join(t.TempDir(), "noop.ndjson")
	l, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Event(ComponentVoiceplay, EventWSConnect, "")
	_ = l.Close()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("log file should not exist when debug disabled")
	}

	var nilLogger *Logger
	nilLogger.Event(ComponentVoiceplay, EventWSConnect, "")
	if err := nilLogger.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
