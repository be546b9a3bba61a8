// package models defines the data model for the trackshelf library curation service
package models

import (
	"fmt"
	"time"
)

// Track represents a music track as surfaced to callers and exports.
type Track struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	ArtistID   string `json:"artist_id"`
	Album      string `json:"album"`
	AlbumID    string `json:"album_id"`
	DurationMS int    `json:"duration_ms"`
	Popularity int    `json:"popularity"`
}

// SavedTrack is a track observed in the user's remote library together
// with the instant it was saved there.
type SavedTrack struct {
	AddedAt time.Time `json:"added_at"`
	Track   Track     `json:"track"`
}

// LikedTrack is one cached row of the user's liked-songs library.
//
// Rows are immutable content keyed by (UserID, TrackID); only SyncedAt
// changes when a row is rewritten by a later sync.
type LikedTrack struct {
	UserID     string    `json:"user_id"`
	TrackID    string    `json:"track_id"`
	URI        string    `json:"uri"`
	Name       string    `json:"name"`
	ArtistName string    `json:"artist_name"`
	ArtistID   string    `json:"artist_id"`
	AlbumName  string    `json:"album_name"`
	AlbumID    string    `json:"album_id"`
	AddedAt    time.Time `json:"added_at"`
	SyncedAt   time.Time `json:"synced_at"`
	DurationMS int       `json:"duration_ms"`
	Popularity int       `json:"popularity"`
}

// NewLikedTrack builds a cache row from a remotely observed saved track.
func NewLikedTrack(userID string, saved SavedTrack, syncedAt time.Time) LikedTrack {
	return LikedTrack{
		UserID:     userID,
		TrackID:    saved.Track.ID,
		URI:        saved.Track.URI,
		Name:       saved.Track.Name,
		ArtistName: saved.Track.Artist,
		ArtistID:   saved.Track.ArtistID,
		AlbumName:  saved.Track.Album,
		AlbumID:    saved.Track.AlbumID,
		AddedAt:    saved.AddedAt,
		SyncedAt:   syncedAt,
		DurationMS: saved.Track.DurationMS,
		Popularity: saved.Track.Popularity,
	}
}

// Display converts a cached row back to the caller-facing [Track] shape.
func (t LikedTrack) Display() Track {
	return Track{
		ID:         t.TrackID,
		URI:        t.URI,
		Name:       t.Name,
		Artist:     t.ArtistName,
		ArtistID:   t.ArtistID,
		Album:      t.AlbumName,
		AlbumID:    t.AlbumID,
		DurationMS: t.DurationMS,
		Popularity: t.Popularity,
	}
}

// Validate checks that a cache row carries its natural key.
func (t LikedTrack) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("liked track missing user id")
	}
	if t.TrackID == "" {
		return fmt.Errorf("liked track missing track id")
	}
	return nil
}

// SyncStatus is the lifecycle state of a user's cached library.
type SyncStatus string

const (
	StatusNeverSynced SyncStatus = "never_synced"
	StatusSyncing     SyncStatus = "syncing"
	StatusSynced      SyncStatus = "synced"
	StatusError       SyncStatus = "error"
)

// Metadata is the per-user table of contents for the liked-songs cache.
//
// MostRecentAddedAt is the incremental-sync watermark: everything added
// remotely at or before it is assumed cached. FirstPageIDs snapshots the
// head of the remote list so equal-total churn is still detectable.
type Metadata struct {
	UserID            string     `json:"user_id"`
	TotalTracks       int        `json:"total_tracks"`
	LastSyncedAt      time.Time  `json:"last_synced_at"`
	LastFullSyncAt    time.Time  `json:"last_full_sync_at"`
	MostRecentAddedAt time.Time  `json:"most_recent_added_at"`
	OldestAddedAt     time.Time  `json:"oldest_added_at"`
	SyncVersion       int        `json:"sync_version"`
	SyncStatus        SyncStatus `json:"sync_status"`
	LastError         string     `json:"last_error"`
	NeedsFullSync     bool       `json:"needs_full_sync"`
	FirstPageIDs      []string   `json:"first_page_ids"`
}

// Validate checks metadata invariants before persisting.
func (m *Metadata) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("metadata missing user id")
	}
	switch m.SyncStatus {
	case StatusNeverSynced, StatusSyncing, StatusSynced, StatusError:
	default:
		return fmt.Errorf("unknown sync status %q", m.SyncStatus)
	}
	if m.TotalTracks > 0 && !m.MostRecentAddedAt.IsZero() && !m.OldestAddedAt.IsZero() {
		if m.MostRecentAddedAt.Before(m.OldestAddedAt) {
			return fmt.Errorf("watermark inversion: most recent %s before oldest %s",
				m.MostRecentAddedAt.Format(time.RFC3339), m.OldestAddedAt.Format(time.RFC3339))
		}
	}
	return nil
}
