// Package session holds the authentication state of the client: the single
// source of truth for whether the user is logged in.
package session

import (
	"sync"

	"github.com/atinyakov/nexus/internal/client/storage"
	"github.com/atinyakov/nexus/internal/models"
	"go.uber.org/zap"
)

// Key is the durable storage key of the session.
const Key = "session"

// State is the derived, read-only view of the session.
type State struct {
	IsAuthenticated bool
}

// Store owns the session. It is initialised from durable storage and only
// changes through Login, Logout and Reject.
type Store struct {
	kv  storage.KV
	log *zap.Logger

	// writeMu orders Login and Logout so the durable entry and current agree.
	writeMu sync.Mutex

	mu        sync.RWMutex
	current   models.Session
	nextID    int
	listeners map[int]func(State)
	order     []int
}

// New restores the persisted session, if any. A missing or unreadable entry
// yields an unauthenticated store.
func New(kv storage.KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{kv: kv, log: log, listeners: make(map[int]func(State))}

	var persisted models.Session
	ok, err := storage.GetJSON(kv, Key, &persisted)
	switch {
	case err != nil:
		log.Warn("ignoring unreadable session", zap.Error(err))
	case ok:
		s.current = persisted
	}
	return s
}

// Login stores sess durably and marks the store authenticated. A failed
// durable write is logged; the in-memory session still changes and simply
// does not survive a restart.
func (s *Store) Login(sess models.Session) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := storage.PutJSON(s.kv, Key, sess); err != nil {
		s.log.Warn("session not persisted", zap.Error(err))
	}
	s.set(sess)
}

// Logout clears the stored credential.
func (s *Store) Logout() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.kv.Delete(Key); err != nil {
		s.log.Warn("session not cleared from storage", zap.Error(err))
	}
	s.set(models.Session{})
}

// Reject clears the session after the service refused its credential. It is
// only wired in when the logout-on-reject policy is enabled.
func (s *Store) Reject() {
	if !s.State().IsAuthenticated {
		return
	}
	s.log.Info("credential rejected by service, logging out")
	s.Logout()
}

// State returns the current derived state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{IsAuthenticated: s.current.Authenticated()}
}

// Current returns a copy of the current session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn to be called synchronously, in registration order,
// after every state change. fn must not call Login or Logout. The returned
// function unregisters it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) set(sess models.Session) {
	s.mu.Lock()
	s.current = sess
	state := State{IsAuthenticated: sess.Authenticated()}
	fns := make([]func(State), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	// listeners run outside the lock so they may read the store
	for _, fn := range fns {
		fn(state)
	}
}
