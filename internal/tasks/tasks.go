// package tasks implements inbox triage operations for library curation.
//
// The core abstraction is TriageEngine, which scans the inbox playlist
// and applies the closed action set {promote, demote, archive, undo}.
// Operations emit progress updates via channels for non-blocking status
// reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/services"
	"github.com/trackshelf/trackshelf/internal/shared"
)

// checkBatchSize is the service's contains-check batch maximum.
const checkBatchSize = 50

// ArchiveResult reports what an archive pass did.
type ArchiveResult struct {
	PlaylistID   string         `json:"playlist_id"`
	PlaylistName string         `json:"playlist_name"`
	Archived     []models.Track `json:"archived"`
}

// UndoResult reports which action was reverted.
type UndoResult struct {
	Action         *models.TriageAction `json:"action"`
	TracksRestored int                  `json:"tracks_restored"`
}

// LibraryCache reports which track IDs are present in the local
// liked-songs cache.
type LibraryCache interface {
	ContainsTracks(userID string, trackIDs []string) (map[string]bool, error)
}

// ActionLog persists the triage action history.
type ActionLog interface {
	Create(action *models.TriageAction) error
	Latest(userID string) (*models.TriageAction, error)
	MarkUndone(id string) error
	List(userID string, limit int) ([]*models.TriageAction, error)
}

// TriageEngine defines the inbox curation operations.
type TriageEngine interface {
	// ScanInbox lists the inbox playlist annotated with liked and cached state.
	ScanInbox(ctx context.Context, progress chan<- ProgressUpdate) ([]models.InboxEntry, error)

	// Promote saves an inbox track to liked songs and removes it from the inbox.
	Promote(ctx context.Context, progress chan<- ProgressUpdate, trackID string) (*models.TriageAction, error)

	// Demote removes an inbox track from the inbox, optionally unliking it.
	Demote(ctx context.Context, progress chan<- ProgressUpdate, trackID string, unlike bool) (*models.TriageAction, error)

	// Archive moves inbox entries older than the cutoff into a dated archive playlist.
	Archive(ctx context.Context, progress chan<- ProgressUpdate, olderThan time.Duration) (*ArchiveResult, error)

	// Undo reverts the most recent logged action.
	Undo(ctx context.Context, progress chan<- ProgressUpdate) (*UndoResult, error)
}

// InboxEngine implements TriageEngine against a streaming service, the
// local cache, and the action log.
type InboxEngine struct {
	library services.Library
	cache   LibraryCache
	actions ActionLog
	logger  *log.Logger

	userID        string
	inboxID       string
	archivePrefix string

	retry services.RetryPolicy
	now   func() time.Time
}

// InboxEngineOpts contains construction options for an [InboxEngine].
type InboxEngineOpts struct {
	UserID        string
	InboxID       string
	ArchivePrefix string
	Library       services.Library
	Cache         LibraryCache
	Actions       ActionLog
	Logger        *log.Logger

	// Retry overrides the policy used for contains-check batches.
	Retry *services.RetryPolicy
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewInboxEngine creates an InboxEngine for one user's inbox playlist.
func NewInboxEngine(opts InboxEngineOpts) (*InboxEngine, error) {
	if opts.UserID == "" {
		return nil, fmt.Errorf("%w: user ID is required", shared.ErrInvalidArgument)
	}
	if opts.InboxID == "" {
		return nil, fmt.Errorf("%w: inbox playlist ID is required", shared.ErrInvalidArgument)
	}
	if opts.Library == nil || opts.Actions == nil {
		return nil, fmt.Errorf("%w: triage engine not initialized", shared.ErrServiceUnavailable)
	}

	retry := services.BulkRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	prefix := opts.ArchivePrefix
	if prefix == "" {
		prefix = "Archive"
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &InboxEngine{
		library:       opts.Library,
		cache:         opts.Cache,
		actions:       opts.Actions,
		logger:        shared.WithLogger(logger, "component", "triage", "user", opts.UserID),
		userID:        opts.UserID,
		inboxID:       opts.InboxID,
		archivePrefix: prefix,
		retry:         retry,
		now:           now,
	}, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *InboxEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// ScanInbox lists the inbox playlist and annotates each entry with its
// liked and locally cached state.
func (e *InboxEngine) ScanInbox(ctx context.Context, progress chan<- ProgressUpdate) ([]models.InboxEntry, error) {
	e.sendProgress(progress, fetchInboxUpdate(1, 2))

	items, err := e.library.PlaylistTracks(ctx, e.inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inbox playlist: %w", err)
	}

	entries := make([]models.InboxEntry, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		entries[i] = models.InboxEntry{Track: item.Track, AddedAt: item.AddedAt}
		ids[i] = item.Track.ID
	}

	batches := (len(ids) + checkBatchSize - 1) / checkBatchSize
	for start := 0; start < len(ids); start += checkBatchSize {
		end := min(start+checkBatchSize, len(ids))
		batch := ids[start:end]

		e.sendProgress(progress, checkLikedUpdate(start/checkBatchSize+1, batches))

		var liked []bool
		err := e.retry.Do(ctx, func() error {
			var checkErr error
			liked, checkErr = e.library.CheckSavedTracks(ctx, batch)
			return checkErr
		})
		if err != nil {
			return nil, fmt.Errorf("liked-state check failed: %w", err)
		}

		for i, isLiked := range liked {
			entries[start+i].Liked = isLiked
		}
	}

	if e.cache != nil && len(ids) > 0 {
		cached, err := e.cache.ContainsTracks(e.userID, ids)
		if err != nil {
			return nil, fmt.Errorf("cache lookup failed: %w", err)
		}
		for i := range entries {
			entries[i].Cached = cached[entries[i].Track.ID]
		}
	}

	return entries, nil
}

// Promote saves a track to liked songs and removes it from the inbox.
func (e *InboxEngine) Promote(ctx context.Context, progress chan<- ProgressUpdate, trackID string) (*models.TriageAction, error) {
	entry, err := e.findInboxTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, promoteUpdate(1, 2, entry.Track))

	if err := e.library.SaveTracks(ctx, []string{trackID}); err != nil {
		return nil, fmt.Errorf("failed to save track: %w", err)
	}
	if err := e.library.RemovePlaylistTracks(ctx, e.inboxID, []string{entry.Track.URI}); err != nil {
		return nil, fmt.Errorf("failed to remove track from inbox: %w", err)
	}

	action := &models.TriageAction{
		UserID:      e.userID,
		Kind:        models.ActionPromote,
		TrackID:     trackID,
		TrackURI:    entry.Track.URI,
		PlaylistID:  e.inboxID,
		PerformedAt: e.now(),
	}
	if err := e.actions.Create(action); err != nil {
		return nil, fmt.Errorf("failed to log promote action: %w", err)
	}

	e.logger.Info("promoted track", "track", entry.Track.Name)
	return action, nil
}

// Demote removes a track from the inbox. When unlike is set the track
// is also removed from liked songs.
func (e *InboxEngine) Demote(ctx context.Context, progress chan<- ProgressUpdate, trackID string, unlike bool) (*models.TriageAction, error) {
	entry, err := e.findInboxTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, demoteUpdate(1, 2, entry.Track))

	if err := e.library.RemovePlaylistTracks(ctx, e.inboxID, []string{entry.Track.URI}); err != nil {
		return nil, fmt.Errorf("failed to remove track from inbox: %w", err)
	}
	if unlike {
		if err := e.library.RemoveSavedTracks(ctx, []string{trackID}); err != nil {
			return nil, fmt.Errorf("failed to unlike track: %w", err)
		}
	}

	action := &models.TriageAction{
		UserID:      e.userID,
		Kind:        models.ActionDemote,
		TrackID:     trackID,
		TrackURI:    entry.Track.URI,
		PlaylistID:  e.inboxID,
		PerformedAt: e.now(),
	}
	if err := e.actions.Create(action); err != nil {
		return nil, fmt.Errorf("failed to log demote action: %w", err)
	}

	e.logger.Info("demoted track", "track", entry.Track.Name, "unliked", unlike)
	return action, nil
}

// Archive moves inbox entries added longer than olderThan ago into a
// dated archive playlist. The playlist for the current month is reused
// across runs via the action log and created on first need.
func (e *InboxEngine) Archive(ctx context.Context, progress chan<- ProgressUpdate, olderThan time.Duration) (*ArchiveResult, error) {
	items, err := e.library.PlaylistTracks(ctx, e.inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inbox playlist: %w", err)
	}

	cutoff := e.now().Add(-olderThan)

	var stale []models.SavedTrack
	for _, item := range items {
		if item.AddedAt.Before(cutoff) {
			stale = append(stale, item)
		}
	}

	name := fmt.Sprintf("%s %s", e.archivePrefix, e.now().Format("2006-01"))
	result := &ArchiveResult{PlaylistName: name}

	if len(stale) == 0 {
		return result, nil
	}

	playlistID, err := e.archivePlaylist(ctx, name)
	if err != nil {
		return nil, err
	}
	result.PlaylistID = playlistID

	uris := make([]string, len(stale))
	for i, item := range stale {
		uris[i] = item.Track.URI
		result.Archived = append(result.Archived, item.Track)
	}

	e.sendProgress(progress, archiveUpdate(1, len(stale), name))

	if err := e.library.AddPlaylistTracks(ctx, playlistID, uris); err != nil {
		return nil, fmt.Errorf("failed to add tracks to archive: %w", err)
	}
	if err := e.library.RemovePlaylistTracks(ctx, e.inboxID, uris); err != nil {
		return nil, fmt.Errorf("failed to remove tracks from inbox: %w", err)
	}

	action := &models.TriageAction{
		UserID:            e.userID,
		Kind:              models.ActionArchive,
		PlaylistID:        e.inboxID,
		ArchivePlaylistID: playlistID,
		PerformedAt:       e.now(),
	}
	if err := e.actions.Create(action); err != nil {
		return nil, fmt.Errorf("failed to log archive action: %w", err)
	}

	e.logger.Info("archived stale inbox tracks", "count", len(stale), "playlist", name)
	return result, nil
}

// archivePlaylist finds this month's archive playlist via the action
// log, creating it when no prior archive run this month exists.
func (e *InboxEngine) archivePlaylist(ctx context.Context, name string) (string, error) {
	history, err := e.actions.List(e.userID, 0)
	if err != nil {
		return "", fmt.Errorf("failed to read action log: %w", err)
	}

	monthStart := time.Date(e.now().Year(), e.now().Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, past := range history {
		if past.Kind == models.ActionArchive && !past.Undone &&
			past.ArchivePlaylistID != "" && !past.PerformedAt.Before(monthStart) {
			return past.ArchivePlaylistID, nil
		}
	}

	id, err := e.library.CreatePlaylist(ctx, name, "Archived inbox tracks")
	if err != nil {
		return "", fmt.Errorf("failed to create archive playlist: %w", err)
	}
	return id, nil
}

// Undo reverts the most recent logged action that has not already been
// undone.
func (e *InboxEngine) Undo(ctx context.Context, progress chan<- ProgressUpdate) (*UndoResult, error) {
	action, err := e.actions.Latest(e.userID)
	if err != nil {
		return nil, fmt.Errorf("nothing to undo: %w", err)
	}

	e.sendProgress(progress, undoUpdate(1, 2, action))

	restored := 0
	switch action.Kind {
	case models.ActionPromote:
		if err := e.library.RemoveSavedTracks(ctx, []string{action.TrackID}); err != nil {
			return nil, fmt.Errorf("failed to unlike promoted track: %w", err)
		}
		if err := e.library.AddPlaylistTracks(ctx, action.PlaylistID, []string{action.TrackURI}); err != nil {
			return nil, fmt.Errorf("failed to restore track to inbox: %w", err)
		}
		restored = 1

	case models.ActionDemote:
		// Re-saving an already liked track is idempotent, so a plain
		// demote and an unliking demote revert the same way.
		if err := e.library.SaveTracks(ctx, []string{action.TrackID}); err != nil {
			return nil, fmt.Errorf("failed to re-save demoted track: %w", err)
		}
		if err := e.library.AddPlaylistTracks(ctx, action.PlaylistID, []string{action.TrackURI}); err != nil {
			return nil, fmt.Errorf("failed to restore track to inbox: %w", err)
		}
		restored = 1

	case models.ActionArchive:
		archived, err := e.library.PlaylistTracks(ctx, action.ArchivePlaylistID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch archive playlist: %w", err)
		}
		if len(archived) > 0 {
			uris := make([]string, len(archived))
			for i, item := range archived {
				uris[i] = item.Track.URI
			}
			if err := e.library.AddPlaylistTracks(ctx, action.PlaylistID, uris); err != nil {
				return nil, fmt.Errorf("failed to restore tracks to inbox: %w", err)
			}
			if err := e.library.RemovePlaylistTracks(ctx, action.ArchivePlaylistID, uris); err != nil {
				return nil, fmt.Errorf("failed to empty archive playlist: %w", err)
			}
			restored = len(archived)
		}

	default:
		return nil, fmt.Errorf("%w: cannot undo action kind %q", shared.ErrInvalidInput, action.Kind)
	}

	if err := e.actions.MarkUndone(action.ID); err != nil {
		return nil, err
	}

	e.logger.Info("undid action", "kind", action.Kind, "restored", restored)
	return &UndoResult{Action: action, TracksRestored: restored}, nil
}

// History returns the most recent logged actions, newest first.
func (e *InboxEngine) History(limit int) ([]*models.TriageAction, error) {
	return e.actions.List(e.userID, limit)
}

// findInboxTrack locates a track in the inbox playlist by ID.
func (e *InboxEngine) findInboxTrack(ctx context.Context, trackID string) (*models.SavedTrack, error) {
	items, err := e.library.PlaylistTracks(ctx, e.inboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inbox playlist: %w", err)
	}

	for _, item := range items {
		if item.Track.ID == trackID {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: track %s not in inbox", shared.ErrTrackNotFound, trackID)
}
