package session

import (
	"sync"
	"time"
)

// Store holds the latest published snapshot. The poll loop replaces the
// snapshot wholesale; readers always receive a private copy, so a read is
// never a mix of two cycles.
type Store struct {
	mu          sync.RWMutex
	sessions    []Session
	publishedAt time.Time
	generation  uint64
	onPublish   func([]Session)
}

func NewStore() *Store {
	return &Store{}
}

// Publish swaps in a new snapshot. The caller hands over ownership of the
// slice. The lock is held only for the assignment.
func (s *Store) Publish(sessions []Session) {
	s.mu.Lock()
	s.sessions = sessions
	s.publishedAt = time.Now()
	s.generation++
	hook := s.onPublish
	s.mu.Unlock()

	if hook != nil {
		hook(s.Snapshot())
	}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Session, len(s.sessions))
	copy(result, s.sessions)
	return result
}

// Get returns the session on the given tty, if any.
func (s *Store) Get(tty string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.TTY == tty {
			return sess, true
		}
	}
	return Session{}, false
}

// Generation counts publishes; zero means nothing was published yet.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) PublishedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publishedAt
}

// CountByStatus tallies the current snapshot per status.
func (s *Store) CountByStatus() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(statusNames))
	for _, sess := range s.sessions {
		counts[sess.Status]++
	}
	return counts
}

// SetPublishHook registers fn to receive a copy of every published
// snapshot. fn runs on the publishing goroutine after the lock is released.
func (s *Store) SetPublishHook(fn func([]Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPublish = fn
}
