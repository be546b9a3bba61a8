// Spotify API implementation of [Library]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// MaxPageSize is the largest page the saved-tracks listing accepts.
	MaxPageSize = 50

	// MaxCheckBatch is the largest batch the contains-check accepts.
	MaxCheckBatch = 50
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Items    []SpotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// SpotifyPlaylist represents a created playlist.
type SpotifyPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyService implements the Library interface for Spotify API interactions.
// Uses [oauth2] for authentication and a client-side [rate.Limiter] so
// request bursts stay inside the service's rate budget.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	limiter    *rate.Limiter

	// Memoized current-user lookup. Computed on first use, reusable
	// until ResetUser.
	userMu sync.Mutex
	userID string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, requestsPerSecond float64) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	if requestsPerSecond <= 0 {
		requestsPerSecond = 5.0
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes: []string{
			"user-library-read",
			"user-library-modify",
			"playlist-read-private",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// Authenticate installs an access token. Expects an "access_token" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	accessToken, ok := credentials["access_token"]
	if !ok || accessToken == "" {
		return fmt.Errorf("%w: missing access_token", shared.ErrMissingCredentials)
	}

	s.token = &oauth2.Token{AccessToken: accessToken}
	s.httpClient = s.config.Client(ctx, s.token)
	return nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests to
// inject a fake transport.
func (s *SpotifyService) SetHTTPClient(client *http.Client) {
	if client != nil {
		s.httpClient = client
	}
}

// doRequest performs an authenticated, rate-limited HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	apiURL := spotifyBaseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// apiError converts a non-2xx response into an [APIError], picking up
// the Retry-After header when the server sent one.
func apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil {
		apiErr.Message = payload.Error.Message
	}

	return apiErr
}

// CurrentUserID returns the authenticated user's Spotify ID.
//
// The profile lookup runs once; the result is reused until [SpotifyService.ResetUser].
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	if s.userID != "" {
		return s.userID, nil
	}

	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return "", err
	}

	s.userID = user.ID
	return s.userID, nil
}

// ResetUser drops the memoized current-user lookup, forcing the next
// [SpotifyService.CurrentUserID] call back to the API.
func (s *SpotifyService) ResetUser() {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	s.userID = ""
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SavedTrackPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	page := &SavedTrackPage{
		Items:   make([]models.SavedTrack, 0, len(response.Items)),
		Total:   response.Total,
		HasNext: response.Next != nil,
	}
	for _, item := range response.Items {
		page.Items = append(page.Items, convertSavedTrack(item))
	}

	return page, nil
}

// CheckSavedTracks checks whether each track ID is in the user's liked songs.
func (s *SpotifyService) CheckSavedTracks(ctx context.Context, trackIDs []string) ([]bool, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}
	if len(trackIDs) > MaxCheckBatch {
		return nil, fmt.Errorf("%w: maximum %d track IDs allowed", shared.ErrInvalidArgument, MaxCheckBatch)
	}

	ids := url.QueryEscape(strings.Join(trackIDs, ","))
	endpoint := fmt.Sprintf("/me/tracks/contains?ids=%s", ids)

	var saved []bool
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &saved); err != nil {
		return nil, err
	}

	if len(saved) != len(trackIDs) {
		return nil, fmt.Errorf("%w: contains-check returned %d results for %d ids",
			shared.ErrAPIRequest, len(saved), len(trackIDs))
	}

	return saved, nil
}

// SaveTracks adds tracks to the user's liked songs.
func (s *SpotifyService) SaveTracks(ctx context.Context, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}

	ids := url.QueryEscape(strings.Join(trackIDs, ","))
	return s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/me/tracks?ids=%s", ids), nil, nil)
}

// RemoveSavedTracks removes tracks from the user's liked songs.
func (s *SpotifyService) RemoveSavedTracks(ctx context.Context, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}

	ids := url.QueryEscape(strings.Join(trackIDs, ","))
	return s.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/me/tracks?ids=%s", ids), nil, nil)
}

// PlaylistTracks retrieves all tracks of a playlist, paginating until exhausted.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.SavedTrack, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist ID is required", shared.ErrInvalidArgument)
	}

	var tracks []models.SavedTrack
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, MaxPageSize, offset)

		var response SpotifyPaginatedTracks
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			tracks = append(tracks, convertSavedTrack(item))
		}

		if response.Next == nil {
			break
		}
		offset += MaxPageSize
	}

	return tracks, nil
}

// AddPlaylistTracks appends tracks to a playlist.
func (s *SpotifyService) AddPlaylistTracks(ctx context.Context, playlistID string, uris []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrInvalidArgument)
	}
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track URIs provided", shared.ErrInvalidArgument)
	}

	body := map[string]any{"uris": uris}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// RemovePlaylistTracks removes tracks from a playlist.
func (s *SpotifyService) RemovePlaylistTracks(ctx context.Context, playlistID string, uris []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrInvalidArgument)
	}
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track URIs provided", shared.ErrInvalidArgument)
	}

	items := make([]map[string]string, len(uris))
	for i, uri := range uris {
		items[i] = map[string]string{"uri": uri}
	}

	body := map[string]any{"tracks": items}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doRequest(ctx, http.MethodDelete, endpoint, body, nil)
}

// CreatePlaylist creates a private playlist for the current user and returns its ID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
	}

	userID, err := s.CurrentUserID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve current user: %w", err)
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return "", err
	}

	return playlist.ID, nil
}

// convertSavedTrack maps a Spotify saved-track item to the service-neutral shape.
//
// A malformed added_at timestamp maps to the zero time rather than failing
// the whole page.
func convertSavedTrack(item SpotifySavedTrack) models.SavedTrack {
	addedAt, _ := time.Parse(time.RFC3339, item.AddedAt)
	return models.SavedTrack{
		AddedAt: addedAt,
		Track:   convertTrack(item.Track),
	}
}

// convertTrack maps a Spotify track to [models.Track], flattening the
// first (primary) artist and the album identity.
func convertTrack(track SpotifyTrack) models.Track {
	converted := models.Track{
		ID:         track.ID,
		URI:        track.URI,
		Name:       track.Name,
		Album:      track.Album.Name,
		AlbumID:    track.Album.ID,
		DurationMS: track.DurationMS,
		Popularity: track.Popularity,
	}

	if len(track.Artists) > 0 {
		converted.Artist = track.Artists[0].Name
		converted.ArtistID = track.Artists[0].ID
	}

	return converted
}
