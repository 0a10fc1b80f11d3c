package upload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestAcceptAudio(t *testing.T) {
	tests := []struct {
		name, mime string
		ok         bool
	}{
		{"clip.mp3", "audio/mpeg", true},
		{"clip.txt", "text/plain", false},
		{"clip.bin", "audio/x-custom", true},
		{"CLIP.M4A", "", true},
		{"clip.flac", "application/octet-stream", true},
		{"clip.aac", "", true},
		{"clip.ogg", "", true},
		{"clip.wav", "", true},
		{"clip", "", false},
		{"clip.mp4", "video/mp4", false},
	}
	for _, tt := range tests {
		err := AcceptAudio(tt.name, tt.mime)
		if (err == nil) != tt.ok {
			t.Errorf("AcceptAudio(%q, %q) = %v, want ok=%v", tt.name, tt.mime, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedAudio) {
			t.Errorf("AcceptAudio error %v should wrap ErrUnsupportedAudio", err)
		}
	}
}

func TestRegistryRevokeExactlyOnce(t *testing.T) {
	r := NewRegistry()
	h := r.Create(Audio{Name: "clip.mp3"})

	if !strings.HasPrefix(string(h), HandlePrefix) {
		t.Errorf("handle %q missing prefix", h)
	}
	if r.Live() != 1 {
		t.Fatalf("Live = %d, want 1", r.Live())
	}
	a, err := r.Resolve(h)
	if err != nil || a.Name != "clip.mp3" {
		t.Fatalf("Resolve = %+v, %v", a, err)
	}

	if err := r.Revoke(h); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}
	if err := r.Revoke(h); !errors.Is(err, ErrRevoked) {
		t.Errorf("second Revoke = %v, want ErrRevoked", err)
	}
	if _, err := r.Resolve(h); !errors.Is(err, ErrRevoked) {
		t.Errorf("Resolve after revoke = %v, want ErrRevoked", err)
	}
	if err := r.Revoke("blob:voiceplay/nope"); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Revoke unknown = %v, want ErrUnknownHandle", err)
	}
	if r.Live() != 0 {
		t.Errorf("Live = %d after revoke, want 0", r.Live())
	}
}

func TestRegistryHandlesAreUnique(t *testing.T) {
	r := NewRegistry()
	seen := make(map[Handle]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := r.Create(Audio{Name: "x.mp3"})
			mu.Lock()
			seen[h] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 50 || r.Live() != 50 {
		t.Errorf("unique handles = %d, live = %d; want 50", len(seen), r.Live())
	}
}

func TestReadAsyncReportsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.json")
	if err := os.WriteFile(path, []byte(`[1]`), 0644); err != nil {
		t.Fatal(err)
	}

	ch := ReadAsync(path)
	res, ok := <-ch
	if !ok {
		t.Fatal("channel closed without a result")
	}
	if res.Err != nil || string(res.Data) != "[1]" || res.Size != 3 || res.Name != "words.json" {
		t.Errorf("result = %+v", res)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after one result")
	}
}

func TestReadAsyncFailure(t *testing.T) {
	res := <-ReadAsync(filepath.Join(t.TempDir(), "missing.json"))
	if res.Err == nil || !errors.Is(res.Err, os.ErrNotExist) {
		t.Errorf("Err = %v, want not-exist", res.Err)
	}

	res = <-StatAsync(t.TempDir())
	if res.Err == nil {
		t.Error("reading a directory should fail")
	}
}

func TestOpenAudio(t *testing.T) {
	dir := t.TempDir()
	mp3 := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(mp3, []byte("ID3"), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := OpenAudio(mp3, "")
	if err != nil {
		t.Fatalf("OpenAudio: %v", err)
	}
	if a.Name != "clip.mp3" || a.Size != 3 || a.MIMEType != "audio/mpeg" {
		t.Errorf("audio = %+v", a)
	}

	txt := filepath.Join(dir, "clip.txt")
	if err := os.WriteFile(txt, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenAudio(txt, "text/plain"); !errors.Is(err, ErrUnsupportedAudio) {
		t.Errorf("OpenAudio(txt) = %v, want ErrUnsupportedAudio", err)
	}

	if _, err := OpenAudio(filepath.Join(dir, "gone.wav"), ""); err == nil {
		t.Error("missing file should fail")
	}
}
