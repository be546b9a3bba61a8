// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/services"
)

// MockLibrary is a scriptable test double for [services.Library].
//
// Each operation delegates to its corresponding Fn field when set and
// returns a zero value otherwise. Call counts are tracked per
// operation for budget assertions.
type MockLibrary struct {
	AuthenticateFn         func(ctx context.Context, credentials map[string]string) error
	SavedTracksFn          func(ctx context.Context, limit, offset int) (*services.SavedTrackPage, error)
	CheckSavedTracksFn     func(ctx context.Context, trackIDs []string) ([]bool, error)
	SaveTracksFn           func(ctx context.Context, trackIDs []string) error
	RemoveSavedTracksFn    func(ctx context.Context, trackIDs []string) error
	PlaylistTracksFn       func(ctx context.Context, playlistID string) ([]models.SavedTrack, error)
	AddPlaylistTracksFn    func(ctx context.Context, playlistID string, uris []string) error
	RemovePlaylistTracksFn func(ctx context.Context, playlistID string, uris []string) error
	CreatePlaylistFn       func(ctx context.Context, name, description string) (string, error)
	CurrentUserIDFn        func(ctx context.Context) (string, error)

	SavedTracksCalls      int
	CheckSavedTracksCalls int
}

func (m *MockLibrary) Authenticate(ctx context.Context, credentials map[string]string) error {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, credentials)
	}
	return nil
}

func (m *MockLibrary) SavedTracks(ctx context.Context, limit, offset int) (*services.SavedTrackPage, error) {
	m.SavedTracksCalls++
	if m.SavedTracksFn != nil {
		return m.SavedTracksFn(ctx, limit, offset)
	}
	return &services.SavedTrackPage{}, nil
}

func (m *MockLibrary) CheckSavedTracks(ctx context.Context, trackIDs []string) ([]bool, error) {
	m.CheckSavedTracksCalls++
	if m.CheckSavedTracksFn != nil {
		return m.CheckSavedTracksFn(ctx, trackIDs)
	}
	return make([]bool, len(trackIDs)), nil
}

func (m *MockLibrary) SaveTracks(ctx context.Context, trackIDs []string) error {
	if m.SaveTracksFn != nil {
		return m.SaveTracksFn(ctx, trackIDs)
	}
	return nil
}

func (m *MockLibrary) RemoveSavedTracks(ctx context.Context, trackIDs []string) error {
	if m.RemoveSavedTracksFn != nil {
		return m.RemoveSavedTracksFn(ctx, trackIDs)
	}
	return nil
}

func (m *MockLibrary) PlaylistTracks(ctx context.Context, playlistID string) ([]models.SavedTrack, error) {
	if m.PlaylistTracksFn != nil {
		return m.PlaylistTracksFn(ctx, playlistID)
	}
	return nil, nil
}

func (m *MockLibrary) AddPlaylistTracks(ctx context.Context, playlistID string, uris []string) error {
	if m.AddPlaylistTracksFn != nil {
		return m.AddPlaylistTracksFn(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockLibrary) RemovePlaylistTracks(ctx context.Context, playlistID string, uris []string) error {
	if m.RemovePlaylistTracksFn != nil {
		return m.RemovePlaylistTracksFn(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockLibrary) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	if m.CreatePlaylistFn != nil {
		return m.CreatePlaylistFn(ctx, name, description)
	}
	return "playlist-id", nil
}

func (m *MockLibrary) CurrentUserID(ctx context.Context) (string, error) {
	if m.CurrentUserIDFn != nil {
		return m.CurrentUserIDFn(ctx)
	}
	return "mock-user", nil
}

func (m *MockLibrary) Name() string { return "mock" }

// MemoryStore is an in-memory library.Store for engine tests.
type MemoryStore struct {
	mu     sync.Mutex
	meta   map[string]*models.Metadata
	tracks map[string]map[string]models.LikedTrack

	SaveMetadataErr error
	UpsertErr       error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meta:   make(map[string]*models.Metadata),
		tracks: make(map[string]map[string]models.LikedTrack),
	}
}

func (s *MemoryStore) Metadata(userID string) (*models.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.meta[userID]
	if !ok {
		return nil, nil
	}
	clone := *meta
	return &clone, nil
}

func (s *MemoryStore) SaveMetadata(meta *models.Metadata) error {
	if s.SaveMetadataErr != nil {
		return s.SaveMetadataErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *meta
	s.meta[meta.UserID] = &clone
	return nil
}

func (s *MemoryStore) Tracks(userID string) ([]models.LikedTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]models.LikedTrack, 0, len(s.tracks[userID]))
	for _, t := range s.tracks[userID] {
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].AddedAt.Equal(rows[j].AddedAt) {
			return rows[i].AddedAt.After(rows[j].AddedAt)
		}
		return rows[i].TrackID < rows[j].TrackID
	})
	return rows, nil
}

func (s *MemoryStore) UpsertTracks(tracks []models.LikedTrack) error {
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tracks {
		if s.tracks[t.UserID] == nil {
			s.tracks[t.UserID] = make(map[string]models.LikedTrack)
		}
		s.tracks[t.UserID][t.TrackID] = t
	}
	return nil
}

func (s *MemoryStore) ClearTracks(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracks, userID)
	return nil
}

func (s *MemoryStore) DeleteTracks(userID string, trackIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range trackIDs {
		delete(s.tracks[userID], id)
	}
	return nil
}

func (s *MemoryStore) ContainsTracks(userID string, trackIDs []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		_, ok := s.tracks[userID][id]
		result[id] = ok
	}
	return result, nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SequenceRoundTripper replays a fixed sequence of responses, then
// repeats the last one.
type SequenceRoundTripper struct {
	mu        sync.Mutex
	responses []*http.Response
	errs      []error
	calls     int
}

func NewSequenceRoundTripper(responses []*http.Response, errs []error) *SequenceRoundTripper {
	return &SequenceRoundTripper{responses: responses, errs: errs}
}

func (s *SequenceRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

func (s *SequenceRoundTripper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
