// Package registry tracks in-flight optimizer runs so they can be cancelled
// individually, swept when stale and drained on shutdown.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrDuplicateKey = errors.New("key already registered")

type entry struct {
	cancel     context.CancelFunc
	registered time.Time
}

type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Registry {
	return &Registry{entries: map[string]entry{}, now: time.Now}
}

func (r *Registry) Register(key string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return ErrDuplicateKey
	}
	r.entries[key] = entry{cancel: cancel, registered: r.now()}
	return nil
}

// Release forgets key without cancelling it.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, key)
}

// Cancel cancels and forgets key. It reports whether key was registered.
func (r *Registry) Cancel(key string) bool {
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		e.cancel()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Sweep cancels every entry registered longer than maxAge ago and returns how
// many were removed.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	var stale []entry
	for key, e := range r.entries {
		if e.registered.Before(cutoff) {
			stale = append(stale, e)
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.cancel()
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxAge); n > 0 {
				slog.Warn("swept stale runs", "count", n)
			}
		}
	}
}

// Drain cancels and forgets every entry.
func (r *Registry) Drain() int {
	r.mu.Lock()
	entries := r.entries
	r.entries = map[string]entry{}
	r.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
	return len(entries)
}
