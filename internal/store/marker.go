package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

// GetMarker returns the stored seen_at for a conversation.
func (db *DB) GetMarker(conversationID string) (seenAt string, ok bool, err error) {
	err = db.QueryRow(`SELECT seen_at FROM read_markers WHERE conversation_id = ?`, conversationID).Scan(&seenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return seenAt, true, nil
}

// SetMarker overwrites the marker unconditionally. Ordering is the caller's
// responsibility.
func (db *DB) SetMarker(conversationID, seenAt string) error {
	_, err := db.Exec(`
		INSERT INTO read_markers (conversation_id, seen_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET seen_at = excluded.seen_at, updated_at = excluded.updated_at`,
		conversationID, seenAt, time.Now().UnixMilli())
	return err
}

// ListMarkers returns the markers of the given conversations; ids without a
// marker are absent from the result.
func (db *DB) ListMarkers(conversationIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(conversationIDs))
	for i, id := range conversationIDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")

	rows, err := db.Query(`SELECT conversation_id, seen_at FROM read_markers WHERE conversation_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, seenAt string
		if err := rows.Scan(&id, &seenAt); err != nil {
			return nil, err
		}
		out[id] = seenAt
	}
	return out, rows.Err()
}
