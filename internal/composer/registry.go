package composer

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultIdleTTL is how long an untouched session stays open. An evicted
// draft reopens from storage with its last saved state.
const DefaultIdleTTL = 6 * time.Hour

type entry struct {
	s        *Session
	lastUsed time.Time
}

// Registry keeps open sessions by post id. Sessions idle for longer than
// the TTL are dropped whenever a session is added, or by Sweep.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	idleTTL  time.Duration
	now      func() time.Time
}

func NewRegistry() *Registry {
	return NewRegistryWithTTL(DefaultIdleTTL)
}

// NewRegistryWithTTL builds a registry with a custom idle TTL. ttl <= 0
// keeps sessions until they are closed.
func NewRegistryWithTTL(ttl time.Duration) *Registry {
	return &Registry{sessions: make(map[string]*entry), idleTTL: ttl, now: time.Now}
}

// Get returns the open session for postID and marks it used.
func (r *Registry) Get(postID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[postID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.s, true
}

// GetOrOpen returns the open session or stores the one built by open.
func (r *Registry) GetOrOpen(postID string, open func() (*Session, error)) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[postID]; ok {
		e.lastUsed = r.now()
		return e.s, nil
	}
	s, err := open()
	if err != nil {
		return nil, err
	}
	r.sweepLocked()
	r.sessions[postID] = &entry{s: s, lastUsed: r.now()}
	return s, nil
}

// Put registers s, replacing any session for the same post.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.sessions[s.ID()] = &entry{s: s, lastUsed: r.now()}
}

func (r *Registry) Close(postID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, postID)
}

// Sweep drops idle sessions and reports how many went.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

func (r *Registry) sweepLocked() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)
	n := 0
	for id, e := range r.sessions {
		// a save in flight keeps its session
		if e.lastUsed.Before(cutoff) && !e.s.Saving() {
			delete(r.sessions, id)
			n++
		}
	}
	if n > 0 {
		log.Debugf("[Composer] Evicted %d idle sessions", n)
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
