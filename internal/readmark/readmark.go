// Package readmark records, per conversation, the creation time of the newest
// message the user has viewed, and derives unread state from it.
package readmark

import (
	"fmt"
	"strings"
	"time"
)

// Backend is the durable namespace markers are kept in.
type Backend interface {
	GetMarker(conversationID string) (string, bool, error)
	SetMarker(conversationID, seenAt string) error
	ListMarkers(conversationIDs []string) (map[string]string, error)
}

// Store is the read-marker cache. Set overwrites unconditionally: callers
// must only ever pass the createdAt of the newest message they displayed,
// and should use Newer to skip writes that would move a marker backwards.
type Store struct {
	backend Backend
}

// NewStore wraps backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Get returns the marker for conversationID. ok is false when none was set.
func (s *Store) Get(conversationID string) (seenAt string, ok bool, err error) {
	seenAt, ok, err = s.backend.GetMarker(conversationID)
	if err != nil {
		return "", false, fmt.Errorf("get read marker %s: %w", conversationID, err)
	}
	return seenAt, ok, nil
}

// Set stores seenAt for conversationID.
func (s *Store) Set(conversationID, seenAt string) error {
	if err := s.backend.SetMarker(conversationID, seenAt); err != nil {
		return fmt.Errorf("set read marker %s: %w", conversationID, err)
	}
	return nil
}

// Lookup returns the markers of every listed conversation that has one.
func (s *Store) Lookup(conversationIDs []string) (map[string]string, error) {
	m, err := s.backend.ListMarkers(conversationIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup read markers: %w", err)
	}
	return m, nil
}

// Unread reports whether a conversation whose newest message was created at
// lastMessageAt has messages newer than seenAt. Blank means absent.
//
//	lastMessageAt absent      -> false
//	seenAt absent             -> true
//	both parse as timestamps  -> lastMessageAt > seenAt
//	otherwise                 -> lexicographic lastMessageAt > seenAt
func Unread(lastMessageAt, seenAt string) bool {
	if isBlank(lastMessageAt) {
		return false
	}
	if isBlank(seenAt) {
		return true
	}
	return after(lastMessageAt, seenAt)
}

// Newer reports whether candidate should replace current as a marker value.
// An absent current marker is always replaced.
func Newer(candidate, current string) bool {
	if isBlank(candidate) {
		return false
	}
	if isBlank(current) {
		return true
	}
	return after(candidate, current)
}

// ParseTimestamp parses a server timestamp. Only offset-qualified RFC 3339
// values are accepted; anything else falls back to string ordering.
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func after(a, b string) bool {
	ta, okA := ParseTimestamp(a)
	tb, okB := ParseTimestamp(b)
	if okA && okB {
		return ta.After(tb)
	}
	// Server timestamps share one sortable format.
	return a > b
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
