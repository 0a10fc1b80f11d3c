package testutil

import (
	"bytes"
	"io"
	"log"
	"strings"
	"sync"
)

// LogCapture redirects the standard logger into a buffer.
type LogCapture struct {
	buf      bytes.Buffer
	mu       sync.Mutex
	original io.Writer
}

// CaptureLog starts capturing; call Stop to restore the previous output.
func CaptureLog() *LogCapture {
	lc := &LogCapture{original: log.Writer()}
	log.SetOutput(lc)
	return lc
}

func (lc *LogCapture) Write(p []byte) (int, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.buf.Write(p)
}

// Stop restores the original log output.
func (lc *LogCapture) Stop() {
	log.SetOutput(lc.original)
}

// Contains reports whether the captured output mentions substr.
func (lc *LogCapture) Contains(substr string) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return strings.Contains(lc.buf.String(), substr)
}

// String returns everything captured so far.
func (lc *LogCapture) String() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.buf.String()
}
