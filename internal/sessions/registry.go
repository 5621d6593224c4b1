// Package sessions keeps recent streaming render sessions for status lookups.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/dgallion1/stockreport/internal/render"
)

type entry struct {
	session *render.Session
	remote  string
}

// Snapshot is a session's state plus who requested it.
type Snapshot struct {
	render.Snapshot
	Remote string `json:"remote,omitempty"`
}

// Registry is a thread-safe session index with TTL eviction. A session
// expires ttl after it finished; unfinished sessions are kept.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *Registry) Put(s *render.Session, remote string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.ID] = &entry{session: s, remote: remote}
}

// Get returns the snapshot of session id.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{Snapshot: e.session.Snapshot(), Remote: e.remote}, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Cleanup removes expired sessions and reports how many it removed.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for id, e := range r.entries {
		snap := e.session.Snapshot()
		if snap.FinishedAt.IsZero() {
			continue
		}
		if now.Sub(snap.FinishedAt) > r.ttl {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}
