package session

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// TokenKey is the durable key the bearer token is stored under.
const TokenKey = "session.token"

// Backend is the durable key-value namespace the token is persisted in.
type Backend interface {
	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error
	DeleteValue(key string) error
}

// Store holds the current bearer token. The in-memory copy is authoritative
// for request signing; every change is written through to the backend first.
type Store struct {
	backend Backend

	writeMu sync.Mutex
	token   atomic.Pointer[string]
}

// NewStore creates an empty store. Call Load to pick up a persisted token.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load reads the persisted token, if any, into memory.
func (s *Store) Load() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	v, ok, err := s.backend.GetValue(TokenKey)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}
	if !ok || strings.TrimSpace(v) == "" {
		s.token.Store(nil)
		return nil
	}
	s.token.Store(&v)
	return nil
}

// Get returns the in-memory token. ok is false when there is no session.
func (s *Store) Get() (token string, ok bool) {
	p := s.token.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Token returns the in-memory token or "" and satisfies api.Session.
func (s *Store) Token() string {
	t, _ := s.Get()
	return t
}

// Set persists token and then publishes it in memory. A blank token clears
// the session. On a backend error memory is left untouched.
func (s *Store) Set(token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if strings.TrimSpace(token) == "" {
		if err := s.backend.DeleteValue(TokenKey); err != nil {
			return fmt.Errorf("clear session token: %w", err)
		}
		s.token.Store(nil)
		return nil
	}

	if err := s.backend.SetValue(TokenKey, token); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}
	s.token.Store(&token)
	return nil
}

// Clear removes the session both durably and in memory.
func (s *Store) Clear() error {
	return s.Set("")
}
