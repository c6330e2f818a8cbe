package communication

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrRegistryClosed = errors.New("manager registry closed")

// Registry shares one running manager per identity. A manager is closed once
// it has had no holders for the idle TTL. Any change in the identity (user
// name or role included) yields a separate manager.
type Registry struct {
	deps    Dependencies
	opts    Options
	idleTTL time.Duration

	mu      sync.Mutex
	entries map[Identity]*registryEntry
	closed  bool
}

type registryEntry struct {
	mgr  *Manager
	refs int
	idle *time.Timer
}

func NewRegistry(deps Dependencies, opts Options, idleTTL time.Duration) *Registry {
	return &Registry{
		deps:    deps,
		opts:    opts,
		idleTTL: idleTTL,
		entries: make(map[Identity]*registryEntry),
	}
}

// Acquire returns the started manager of id and a release func that must be
// called once the caller is done with it. Load failures do not fail Acquire;
// they are visible in the manager's snapshot.
func (r *Registry) Acquire(ctx context.Context, id Identity) (*Manager, func(), error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrRegistryClosed
	}
	entry, ok := r.entries[id]
	if !ok {
		mgr, err := NewManager(id, r.deps, r.opts)
		if err != nil {
			r.mu.Unlock()
			return nil, nil, err
		}
		entry = &registryEntry{mgr: mgr}
		r.entries[id] = entry
	}
	entry.refs++
	if entry.idle != nil {
		entry.idle.Stop()
		entry.idle = nil
	}
	r.mu.Unlock()

	if err := entry.mgr.Start(context.WithoutCancel(ctx)); err != nil {
		log.Printf("manager started with errors project_id=%s user_id=%s: %v", id.ProjectID, id.UserID, err)
	}

	var once sync.Once
	return entry.mgr, func() { once.Do(func() { r.release(id, entry) }) }, nil
}

func (r *Registry) release(id Identity, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.refs--
	if entry.refs > 0 || r.closed {
		return
	}
	if r.idleTTL <= 0 {
		r.evictLocked(id, entry)
		return
	}
	entry.idle = time.AfterFunc(r.idleTTL, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if entry.refs == 0 {
			r.evictLocked(id, entry)
		}
	})
}

func (r *Registry) evictLocked(id Identity, entry *registryEntry) {
	if current, ok := r.entries[id]; ok && current == entry {
		delete(r.entries, id)
	}
	go entry.mgr.Close()
}

// Len returns the number of managers held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every manager and rejects further Acquire calls.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[Identity]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		if entry.idle != nil {
			entry.idle.Stop()
		}
		entry.mgr.Close()
	}
}
