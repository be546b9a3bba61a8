// package repositories provides SQLite persistence for the liked-songs
// cache, its sync metadata, and the triage action log.
//
// Repositories take a plain *sql.DB so tests can run against an
// in-memory database.
package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// encodeIDs serializes a track-ID snapshot for TEXT column storage.
func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode id snapshot: %w", err)
	}
	return string(raw), nil
}

// decodeIDs deserializes a stored track-ID snapshot. Empty and legacy
// NULL-ish values decode to an empty snapshot.
func decodeIDs(raw string) ([]string, error) {
	if raw == "" || raw == "null" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode id snapshot: %w", err)
	}
	return ids, nil
}

// nullTime converts a zero time to NULL for storage.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// timeOf converts a scanned nullable timestamp back to a time value.
func timeOf(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
