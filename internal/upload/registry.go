package upload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"
)

// HandlePrefix starts every URL minted by a Registry.
const HandlePrefix = "blob:voiceplay/"

var (
	ErrRevoked       = errors.New("upload: handle already revoked")
	ErrUnknownHandle = errors.New("upload: unknown handle")
)

// Handle is a transient URL referencing an uploaded file. The zero value
// means "no handle".
type Handle string

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool { return h == "" }

// Registry mints handles for uploaded audio and tracks their release. Each
// handle must be revoked exactly once.
type Registry struct {
	mu      sync.Mutex
	live    map[Handle]Audio
	revoked map[Handle]bool
}

// NewRegistry creates an empty handle registry.
func NewRegistry() *Registry {
	return &Registry{
		live:    make(map[Handle]Audio),
		revoked: make(map[Handle]bool),
	}
}

// Create mints a new handle for a.
func (r *Registry) Create(a Audio) Handle {
	h := Handle(HandlePrefix + xid.New().String())
	r.mu.Lock()
	r.live[h] = a
	r.mu.Unlock()
	return h
}

// Resolve returns the audio a live handle refers to.
func (r *Registry) Resolve(h Handle) (Audio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.live[h]; ok {
		return a, nil
	}
	if r.revoked[h] {
		return Audio{}, fmt.Errorf("%w: %s", ErrRevoked, h)
	}
	return Audio{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
}

// Revoke releases h. A second revoke of the same handle returns ErrRevoked.
func (r *Registry) Revoke(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[h]; ok {
		delete(r.live, h)
		r.revoked[h] = true
		return nil
	}
	if r.revoked[h] {
		return fmt.Errorf("%w: %s", ErrRevoked, h)
	}
	return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
}

// Live returns the number of handles not yet revoked.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
