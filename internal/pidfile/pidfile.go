// Package pidfile keeps a single voiceplay daemon per user and records
// which daemon it is, so the controller can report on it.
package pidfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrRunning is returned by Acquire when a live daemon already holds the file.
var ErrRunning = errors.New("pidfile: another instance is running")

// Record is the content of a PID file.
type Record struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	HostURL   string    `json:"host_url,omitempty"`
	Version   string    `json:"version,omitempty"`
}

// Uptime is how long the daemon has been running at now.
func (r Record) Uptime(now time.Time) time.Duration {
	if r.StartedAt.IsZero() || now.Before(r.StartedAt) {
		return 0
	}
	return now.Sub(r.StartedAt).Truncate(time.Second)
}

// PIDFile is a held PID file.
type PIDFile struct {
	path string
	rec  Record
}

// Location is where the daemon named app keeps its PID file.
func Location(app string) string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "voiceplay", app+".pid")
}

// Acquire writes rec to path unless a live process already owns it. A
// file left by a dead process, or one that cannot be read as a record, is
// replaced. Zero PID and StartedAt are filled from the current process.
func Acquire(path string, rec Record) (*PIDFile, error) {
	if rec.PID == 0 {
		rec.PID = os.Getpid()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC().Truncate(time.Second)
	}

	if prev, ok := Running(path); ok && prev.PID != rec.PID {
		return nil, fmt.Errorf("%w (PID %d, started %s)", ErrRunning, prev.PID, prev.StartedAt.Local().Format(time.Stamp))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating PID directory: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("writing PID file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("writing PID file: %w", err)
	}
	return &PIDFile{path: path, rec: rec}, nil
}

// Path returns the file location.
func (p *PIDFile) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Record returns what was written.
func (p *PIDFile) Record() Record {
	if p == nil {
		return Record{}
	}
	return p.rec
}

// Release removes the file if it still names this process. A file taken
// over by another daemon is left alone.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	cur, err := Read(p.path)
	if err != nil || cur.PID != p.rec.PID {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Read parses the record at path.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("pidfile %s: %w", path, err)
	}
	if rec.PID <= 0 {
		return Record{}, fmt.Errorf("pidfile %s: no pid", path)
	}
	return rec, nil
}

// Running reads the record at path and reports whether its process is
// still alive.
func Running(path string) (Record, bool) {
	rec, err := Read(path)
	if err != nil {
		return Record{}, false
	}
	return rec, alive(rec.PID)
}

// alive sends signal 0 to pid. EPERM means the process exists but
// belongs to someone else.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
