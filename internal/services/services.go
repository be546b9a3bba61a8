// package services defines interface Library for interacting with streaming service HTTP APIs
package services

import (
	"context"

	"github.com/trackshelf/trackshelf/internal/models"
)

// SavedTrackPage is one page of the user's remote liked-songs listing.
//
// Items preserve server ordering, which is newest-saved first.
type SavedTrackPage struct {
	Items   []models.SavedTrack
	Total   int
	HasNext bool
}

// Library defines the remote streaming service surface the curation
// engine depends on: the paginated liked-songs listing, the batched
// saved-state check, and the playlist operations triage needs.
type Library interface {
	// Authenticate performs token-based authentication with the service.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// SavedTracks retrieves one page of the user's liked songs.
	// Limit is clamped to the service maximum (50).
	SavedTracks(ctx context.Context, limit, offset int) (*SavedTrackPage, error)

	// CheckSavedTracks reports, for each of up to 50 track IDs, whether
	// the track is currently in the user's liked songs. The result is a
	// parallel array to trackIDs.
	CheckSavedTracks(ctx context.Context, trackIDs []string) ([]bool, error)

	// SaveTracks adds tracks to the user's liked songs.
	SaveTracks(ctx context.Context, trackIDs []string) error

	// RemoveSavedTracks removes tracks from the user's liked songs.
	RemoveSavedTracks(ctx context.Context, trackIDs []string) error

	// PlaylistTracks retrieves all tracks of a playlist with their added timestamps.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.SavedTrack, error)

	// AddPlaylistTracks appends tracks (by URI) to a playlist.
	AddPlaylistTracks(ctx context.Context, playlistID string, uris []string) error

	// RemovePlaylistTracks removes tracks (by URI) from a playlist.
	RemovePlaylistTracks(ctx context.Context, playlistID string, uris []string) error

	// CreatePlaylist creates a private playlist and returns its ID.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)

	// CurrentUserID returns the authenticated user's service ID.
	// Implementations memoize the lookup; see [SpotifyService.ResetUser].
	CurrentUserID(ctx context.Context) (string, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
