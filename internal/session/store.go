package session

import (
	"sync"
	"time"

	"anime-thumbnail-studio/internal/studio"
)

type Session struct {
	Key          string
	Controller   *studio.Controller
	LastActivity time.Time
}

type Options struct {
	// New builds the controller for a fresh session.
	New     func(key string) *studio.Controller
	MaxIdle time.Duration
	Now     func() time.Time
}

// Store keeps one controller per browser session or chat.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	newCtrl  func(key string) *studio.Controller
	maxIdle  time.Duration
	now      func() time.Time
}

func NewStore(opts Options) *Store {
	maxIdle := opts.MaxIdle
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	newCtrl := opts.New
	if newCtrl == nil {
		newCtrl = func(string) *studio.Controller { return studio.New(studio.Options{}) }
	}

	return &Store{
		sessions: make(map[string]*Session),
		newCtrl:  newCtrl,
		maxIdle:  maxIdle,
		now:      now,
	}
}

// GetOrCreate returns the session for key, creating it on first use. build
// is only called for a new session; nil uses Options.New.
func (s *Store) GetOrCreate(key string, build func() *studio.Controller) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(key, build)
	sess.LastActivity = s.now()
	return sess
}

// Lookup returns an existing session without creating one and marks it
// active.
func (s *Store) Lookup(key string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if ok {
		sess.LastActivity = s.now()
	}
	return sess, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than MaxIdle. Sessions with a
// generation in flight or an open subscriber are kept.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxIdle)
	removed := 0
	for key, sess := range s.sessions {
		if sess.LastActivity.After(cutoff) {
			continue
		}
		if sess.Controller.Snapshot().State.Status == studio.Loading {
			continue
		}
		if sess.Controller.Subscribers() > 0 {
			continue
		}
		delete(s.sessions, key)
		removed++
	}
	return removed
}

func (s *Store) getOrCreateLocked(key string, build func() *studio.Controller) *Session {
	if sess, ok := s.sessions[key]; ok {
		return sess
	}

	var ctrl *studio.Controller
	if build != nil {
		ctrl = build()
	} else {
		ctrl = s.newCtrl(key)
	}

	now := s.now()
	sess := &Session{
		Key:          key,
		Controller:   ctrl,
		LastActivity: now,
	}
	s.sessions[key] = sess
	return sess
}
