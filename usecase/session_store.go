package usecase

import (
	"context"
	"sync"

	"postbridge/domain/model"
	"postbridge/domain/repository"
	"postbridge/infrastructure/logger"
)

// SessionListener is invoked synchronously after every session mutation, in
// subscription order. A nil session means the user was logged out.
type SessionListener func(session *model.Session)

// SessionStore is the single source of truth for "am I logged in and as whom".
// It is the only component that touches the persisted session record.
type SessionStore struct {
	mu        sync.Mutex
	record    repository.ISessionRecord
	current   *model.Session
	hydrated  bool
	listeners []sessionSubscription
	nextSubID int
}

type sessionSubscription struct {
	id int
	fn SessionListener
}

func NewSessionStore(record repository.ISessionRecord) *SessionStore {
	return &SessionStore{record: record}
}

// Load returns the current session, hydrating from the persisted record on
// first use. It never fails: a broken record reads as logged-out.
func (s *SessionStore) Load() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked()
	return s.current
}

func (s *SessionStore) hydrateLocked() {
	if s.hydrated {
		return
	}
	s.hydrated = true
	session, err := s.record.Load(context.Background())
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("session record unreadable; starting logged out")
		return
	}
	s.current = session
}

// Set replaces the session wholesale, persists it, and notifies subscribers.
func (s *SessionStore) Set(session *model.Session) {
	s.mu.Lock()
	s.hydrated = true
	s.current = session
	s.persistLocked()
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, session)
}

// UpdateTokens replaces only the credential. The existing user record is
// retained unless an override is supplied (e.g. onboarding completion rotates
// both halves).
func (s *SessionStore) UpdateTokens(tokens model.AuthTokens, userOverride ...*model.AuthUser) {
	s.mu.Lock()
	s.hydrateLocked()
	user := (*model.AuthUser)(nil)
	if s.current != nil {
		user = s.current.User
	}
	if len(userOverride) > 0 {
		user = userOverride[0]
	}
	session := &model.Session{Tokens: tokens, User: user}
	s.current = session
	s.persistLocked()
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, session)
}

// Clear wipes the session from memory and persistence and notifies with nil.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.hydrated = true
	s.current = nil
	if err := s.record.Delete(context.Background()); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed removing session record")
	}
	listeners := s.snapshotListenersLocked()
	s.mu.Unlock()

	notify(listeners, nil)
}

// Subscribe registers a listener and returns its unsubscribe handle.
func (s *SessionStore) Subscribe(fn SessionListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners = append(s.listeners, sessionSubscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Tokens is a convenience accessor for the credential half.
func (s *SessionStore) Tokens() *model.AuthTokens {
	session := s.Load()
	if session == nil {
		return nil
	}
	tokens := session.Tokens
	return &tokens
}

func (s *SessionStore) persistLocked() {
	if s.current == nil {
		if err := s.record.Delete(context.Background()); err != nil {
			logger.GetLogger().WithField("error", err).Warn("failed removing session record")
		}
		return
	}
	if err := s.record.Save(context.Background(), s.current); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed persisting session record")
	}
}

func (s *SessionStore) snapshotListenersLocked() []SessionListener {
	fns := make([]SessionListener, 0, len(s.listeners))
	for _, sub := range s.listeners {
		fns = append(fns, sub.fn)
	}
	return fns
}

func notify(listeners []SessionListener, session *model.Session) {
	for _, fn := range listeners {
		fn(session)
	}
}
