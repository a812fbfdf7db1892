package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResolvedSet remembers issue timestamps resolved in a session until an authoritative
// read of the queue confirms them.
type ResolvedSet struct {
	mu sync.RWMutex
	at map[string]time.Time
}

func NewResolvedSet() *ResolvedSet { return &ResolvedSet{at: make(map[string]time.Time)} }

// Mark records ts as resolved at t. It reports false when ts was already present.
func (s *ResolvedSet) Mark(ts string, t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.at[ts]; ok {
		return false
	}
	s.at[ts] = t
	return true
}

func (s *ResolvedSet) Contains(ts string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.at[ts]
	return ok
}

// Confirm drops every entry resolved before fetchedAt that the read no longer lists
// as pending. A read older than the resolve cannot confirm it. Returns the number
// of entries dropped.
func (s *ResolvedSet) Confirm(stillPending func(ts string) bool, fetchedAt time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for ts, at := range s.at {
		if fetchedAt.After(at) && !stillPending(ts) {
			delete(s.at, ts)
			n++
		}
	}
	return n
}

func (s *ResolvedSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.at = make(map[string]time.Time)
}

func (s *ResolvedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.at)
}

// Timestamps lists the set in resolve order.
func (s *ResolvedSet) Timestamps() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.at))
	for ts := range s.at {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return s.at[out[i]].Before(s.at[out[j]]) })
	return out
}

// Session is one operator's view state.
type Session struct {
	ID       string
	Resolved *ResolvedSet

	mu       sync.Mutex
	auto     bool
	lastSeen time.Time
}

func (s *Session) Auto() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto
}

// SetAuto switches automatic resolution. Leaving automatic mode clears the resolved
// set; it reports whether that happened.
func (s *Session) SetAuto(on bool) bool {
	s.mu.Lock()
	was := s.auto
	s.auto = on
	s.mu.Unlock()
	if was && !on {
		s.Resolved.Clear()
		return true
	}
	return false
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// NewSession returns a standalone session, as used by the headless agent.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{ID: id, Resolved: NewResolvedSet(), lastSeen: time.Now()}
}

// Sessions keeps sessions in memory and forgets ones idle longer than ttl.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*Session
	ttl time.Duration
	now func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{m: make(map[string]*Session), ttl: ttl, now: time.Now}
}

// Get returns the session for id, creating one under a fresh id when id is unknown.
func (s *Sessions) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	if sess, ok := s.m[id]; ok && id != "" {
		sess.touch(now)
		return sess
	}
	sess := NewSession("")
	sess.touch(now)
	s.m[sess.ID] = sess
	return sess
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *Sessions) sweep(now time.Time) {
	for id, sess := range s.m {
		if now.Sub(sess.idleSince()) > s.ttl {
			delete(s.m, id)
		}
	}
}
