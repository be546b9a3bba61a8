package library

import (
	"github.com/trackshelf/trackshelf/internal/models"
)

// Store is the persistence surface the sync engine writes the cache
// through. The SQLite implementation lives in internal/repositories;
// tests substitute in-memory fakes.
//
// The store has no multi-row transactions spanning metadata and track
// rows; the engine orders its writes so a failure never leaves the
// cache emptier than it started.
type Store interface {
	// Metadata returns the per-user sync bookkeeping, or (nil, nil)
	// when the user has never been synced.
	Metadata(userID string) (*models.Metadata, error)

	// SaveMetadata overwrites the user's metadata row.
	SaveMetadata(meta *models.Metadata) error

	// Tracks returns all cached rows for the user, newest AddedAt first.
	Tracks(userID string) ([]models.LikedTrack, error)

	// UpsertTracks writes rows, replacing any existing (user, track) pair.
	UpsertTracks(tracks []models.LikedTrack) error

	// ClearTracks deletes every cached row for the user.
	ClearTracks(userID string) error

	// DeleteTracks deletes the given track IDs for the user.
	DeleteTracks(userID string, trackIDs []string) error
}
