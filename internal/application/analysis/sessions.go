package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/aishield/internal/application"
	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// ControllerFactory builds the controller for a new session.
type ControllerFactory func(sessionID string) *Controller

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Sessions keeps one controller per client session. Nothing outlives the process.
type Sessions struct {
	mu      sync.RWMutex
	items   map[string]*session
	factory ControllerFactory
	ttl     time.Duration
	clock   application.Clock
}

func NewSessions(factory ControllerFactory, ttl time.Duration, clock application.Clock) *Sessions {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Sessions{
		items:   make(map[string]*session),
		factory: factory,
		ttl:     ttl,
		clock:   clock,
	}
}

// Create registers a new session with an idle controller.
func (s *Sessions) Create() (string, *Controller) {
	id := uuid.NewString()
	ctrl := s.factory(id)

	s.mu.Lock()
	s.items[id] = &session{ctrl: ctrl, lastSeen: s.clock.Now()}
	s.mu.Unlock()
	return id, ctrl
}

// Get returns the session controller and marks the session as used.
func (s *Sessions) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = s.clock.Now()
	return sess.ctrl, nil
}

// Delete closes the controller and forgets the session.
func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.ctrl.Close()
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep removes sessions idle for longer than the TTL. Sessions with a
// pending analysis are kept. Returns the number removed.
func (s *Sessions) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.clock.Now()

	var expired []*session
	s.mu.Lock()
	for id, sess := range s.items {
		if now.Sub(sess.lastSeen) <= s.ttl {
			continue
		}
		if sess.ctrl.State().Phase == domain.PhasePending {
			continue
		}
		delete(s.items, id)
		expired = append(expired, sess)
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.ctrl.Close()
	}
	return len(expired)
}

// Run sweeps on an interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close shuts down every controller.
func (s *Sessions) Close() {
	s.mu.Lock()
	items := s.items
	s.items = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range items {
		sess.ctrl.Close()
	}
}
