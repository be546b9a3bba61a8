package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/trackshelf/trackshelf/internal/models"
)

// LibraryRepository persists the liked-songs cache and its per-user
// sync metadata. It implements library.Store.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a LibraryRepository with the given
// database connection.
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Metadata retrieves a user's sync metadata, or (nil, nil) when the
// user has never been synced.
func (r *LibraryRepository) Metadata(userID string) (*models.Metadata, error) {
	query := `
		SELECT user_id, total_tracks, last_synced_at, last_full_sync_at,
		       most_recent_added_at, oldest_added_at, sync_version,
		       sync_status, last_error, needs_full_sync, first_page_ids
		FROM library_metadata
		WHERE user_id = ?
	`

	var (
		meta              models.Metadata
		lastSyncedAt      sql.NullTime
		lastFullSyncAt    sql.NullTime
		mostRecentAddedAt sql.NullTime
		oldestAddedAt     sql.NullTime
		status            string
		needsFullSync     int
		firstPageIDs      string
	)

	err := r.db.QueryRow(query, userID).Scan(
		&meta.UserID,
		&meta.TotalTracks,
		&lastSyncedAt,
		&lastFullSyncAt,
		&mostRecentAddedAt,
		&oldestAddedAt,
		&meta.SyncVersion,
		&status,
		&meta.LastError,
		&needsFullSync,
		&firstPageIDs,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan library metadata: %w", err)
	}

	meta.LastSyncedAt = timeOf(lastSyncedAt)
	meta.LastFullSyncAt = timeOf(lastFullSyncAt)
	meta.MostRecentAddedAt = timeOf(mostRecentAddedAt)
	meta.OldestAddedAt = timeOf(oldestAddedAt)
	meta.SyncStatus = models.SyncStatus(status)
	meta.NeedsFullSync = needsFullSync != 0

	ids, err := decodeIDs(firstPageIDs)
	if err != nil {
		return nil, err
	}
	meta.FirstPageIDs = ids

	return &meta, nil
}

// SaveMetadata upserts a user's sync metadata.
func (r *LibraryRepository) SaveMetadata(meta *models.Metadata) error {
	ids, err := encodeIDs(meta.FirstPageIDs)
	if err != nil {
		return err
	}

	needsFullSync := 0
	if meta.NeedsFullSync {
		needsFullSync = 1
	}

	query := `
		INSERT INTO library_metadata (
			user_id, total_tracks, last_synced_at, last_full_sync_at,
			most_recent_added_at, oldest_added_at, sync_version,
			sync_status, last_error, needs_full_sync, first_page_ids
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_tracks = excluded.total_tracks,
			last_synced_at = excluded.last_synced_at,
			last_full_sync_at = excluded.last_full_sync_at,
			most_recent_added_at = excluded.most_recent_added_at,
			oldest_added_at = excluded.oldest_added_at,
			sync_version = excluded.sync_version,
			sync_status = excluded.sync_status,
			last_error = excluded.last_error,
			needs_full_sync = excluded.needs_full_sync,
			first_page_ids = excluded.first_page_ids
	`

	_, err = r.db.Exec(query,
		meta.UserID,
		meta.TotalTracks,
		nullTime(meta.LastSyncedAt),
		nullTime(meta.LastFullSyncAt),
		nullTime(meta.MostRecentAddedAt),
		nullTime(meta.OldestAddedAt),
		meta.SyncVersion,
		string(meta.SyncStatus),
		meta.LastError,
		needsFullSync,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to save library metadata: %w", err)
	}

	return nil
}

// Tracks retrieves a user's cached library ordered newest addition
// first, matching the remote collection's ordering.
func (r *LibraryRepository) Tracks(userID string) ([]models.LikedTrack, error) {
	query := `
		SELECT user_id, track_id, uri, name, artist_name, artist_id,
		       album_name, album_id, added_at, synced_at, duration_ms, popularity
		FROM liked_tracks
		WHERE user_id = ?
		ORDER BY added_at DESC, track_id ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.LikedTrack
	for rows.Next() {
		var t models.LikedTrack
		err := rows.Scan(
			&t.UserID, &t.TrackID, &t.URI, &t.Name,
			&t.ArtistName, &t.ArtistID, &t.AlbumName, &t.AlbumID,
			&t.AddedAt, &t.SyncedAt, &t.DurationMS, &t.Popularity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liked track: %w", err)
		}
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// UpsertTracks writes cache rows in a single transaction, replacing
// any existing row for the same (user, track).
func (r *LibraryRepository) UpsertTracks(tracks []models.LikedTrack) error {
	if len(tracks) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO liked_tracks (
			user_id, track_id, uri, name, artist_name, artist_id,
			album_name, album_id, added_at, synced_at, duration_ms, popularity
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, track_id) DO UPDATE SET
			uri = excluded.uri,
			name = excluded.name,
			artist_name = excluded.artist_name,
			artist_id = excluded.artist_id,
			album_name = excluded.album_name,
			album_id = excluded.album_id,
			added_at = excluded.added_at,
			synced_at = excluded.synced_at,
			duration_ms = excluded.duration_ms,
			popularity = excluded.popularity
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		_, err := stmt.Exec(
			t.UserID, t.TrackID, t.URI, t.Name,
			t.ArtistName, t.ArtistID, t.AlbumName, t.AlbumID,
			t.AddedAt, t.SyncedAt, t.DurationMS, t.Popularity,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert track %s: %w", t.TrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert transaction: %w", err)
	}

	return nil
}

// ClearTracks drops every cached row for a user.
func (r *LibraryRepository) ClearTracks(userID string) error {
	_, err := r.db.Exec("DELETE FROM liked_tracks WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to clear liked tracks: %w", err)
	}
	return nil
}

// DeleteTracks removes specific cached rows for a user.
func (r *LibraryRepository) DeleteTracks(userID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(trackIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(trackIDs)+1)
	args = append(args, userID)
	for _, id := range trackIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"DELETE FROM liked_tracks WHERE user_id = ? AND track_id IN (%s)",
		placeholders,
	)

	_, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete tracks: %w", err)
	}

	return nil
}

// CountTracks returns the number of cached rows for a user.
func (r *LibraryRepository) CountTracks(userID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM liked_tracks WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count liked tracks: %w", err)
	}
	return count, nil
}

// ContainsTracks reports which of the given track IDs exist in a
// user's cache, keyed by track ID.
func (r *LibraryRepository) ContainsTracks(userID string, trackIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(trackIDs))
	if len(trackIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(trackIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(trackIDs)+1)
	args = append(args, userID)
	for _, id := range trackIDs {
		args = append(args, id)
		result[id] = false
	}

	query := fmt.Sprintf(
		"SELECT track_id FROM liked_tracks WHERE user_id = ? AND track_id IN (%s)",
		placeholders,
	)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		result[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

