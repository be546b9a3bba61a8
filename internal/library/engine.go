package library

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/services"
	"github.com/trackshelf/trackshelf/internal/shared"
)

const (
	// DefaultMaxAge is how long a cache is served without re-checking
	// the remote collection.
	DefaultMaxAge = 24 * time.Hour

	// DefaultStaleSyncAfter is how old an in-flight "syncing" marker
	// may be before it is treated as abandoned by a dead process.
	DefaultStaleSyncAfter = 10 * time.Minute
)

// SyncType identifies which strategy a sync invocation executed.
type SyncType string

const (
	SyncFull        SyncType = "full"
	SyncIncremental SyncType = "incremental"
	SyncCached      SyncType = "cached"
)

// SyncOptions control a single sync invocation.
type SyncOptions struct {
	// ForceRefresh skips the freshness checks and performs a full sync.
	ForceRefresh bool
	// MaxAge overrides [DefaultMaxAge] when positive.
	MaxAge time.Duration
}

// SyncResult reports what a sync invocation did.
type SyncResult struct {
	Type          SyncType      `json:"type"`
	TracksAdded   int           `json:"tracks_added"`
	TracksRemoved int           `json:"tracks_removed"`
	TotalTracks   int           `json:"total_tracks"`
	FromCache     bool          `json:"from_cache"`
	NeedsFullSync bool          `json:"needs_full_sync"`
	Duration      time.Duration `json:"duration"`
}

// SyncEngine keeps the local liked-songs cache reconciled with the
// remote collection, doing the least upstream work each invocation:
// serve the cache as-is, append the new tail, or re-fetch everything.
type SyncEngine struct {
	userID    string
	library   services.Library
	store     Store
	pager     *Pager
	retry     services.RetryPolicy
	bulkRetry services.RetryPolicy
	logger    *log.Logger

	staleSyncAfter time.Duration
	now            func() time.Time
}

// SyncEngineOpts contains construction options for a [SyncEngine].
type SyncEngineOpts struct {
	UserID  string
	Library services.Library
	Store   Store
	Logger  *log.Logger

	// PageSize overrides [DefaultPageSize] when in (0, 50].
	PageSize int
	// StaleSyncAfter overrides [DefaultStaleSyncAfter] when positive.
	StaleSyncAfter time.Duration
	// Retry overrides the per-page retry policy.
	Retry *services.RetryPolicy
	// BulkRetry overrides the retry policy for contains-check batches.
	BulkRetry *services.RetryPolicy
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewSyncEngine creates a SyncEngine for one user's library.
func NewSyncEngine(opts SyncEngineOpts) (*SyncEngine, error) {
	if opts.UserID == "" {
		return nil, fmt.Errorf("%w: user ID is required", shared.ErrInvalidArgument)
	}
	if opts.Library == nil {
		return nil, fmt.Errorf("%w: library service is required", shared.ErrServiceUnavailable)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is required", shared.ErrServiceUnavailable)
	}

	retry := services.DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	bulkRetry := services.BulkRetryPolicy()
	if opts.BulkRetry != nil {
		bulkRetry = *opts.BulkRetry
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	staleAfter := opts.StaleSyncAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleSyncAfter
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &SyncEngine{
		userID:         opts.UserID,
		library:        opts.Library,
		store:          opts.Store,
		pager:          NewPager(opts.Library, retry, opts.PageSize),
		retry:          retry,
		bulkRetry:      bulkRetry,
		logger:         shared.WithLogger(logger, "component", "library", "user", opts.UserID),
		staleSyncAfter: staleAfter,
		now:            now,
	}, nil
}

// Sync reconciles the cache with the remote collection and reports what
// it did. A failed sync records its error in metadata and returns it;
// previously cached rows survive the failure.
func (e *SyncEngine) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	start := e.now()

	meta, err := e.store.Metadata(e.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	strategy, probe, drift, err := e.decide(ctx, meta, opts)
	if err != nil {
		return nil, err
	}

	var result *SyncResult
	switch strategy {
	case SyncCached:
		e.logger.Debug("cache is fresh, serving as-is", "total", meta.TotalTracks)
		result = &SyncResult{
			Type:        SyncCached,
			TotalTracks: meta.TotalTracks,
			FromCache:   true,
		}
	case SyncFull:
		result, err = e.fullSync(ctx, meta)
	case SyncIncremental:
		result, err = e.incrementalSync(ctx, meta, probe, drift)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = e.now().Sub(start)
	return result, nil
}

// decide picks the sync strategy. The probe page is fetched only when
// the cheaper checks all pass, and is returned so the incremental path
// can reuse its total.
func (e *SyncEngine) decide(ctx context.Context, meta *models.Metadata, opts SyncOptions) (SyncType, *Page, Drift, error) {
	if opts.ForceRefresh {
		e.logger.Info("forced refresh requested")
		return SyncFull, nil, Drift{Kind: DriftUnknown}, nil
	}

	if meta == nil {
		e.logger.Info("no cached library, performing first full sync")
		return SyncFull, nil, Drift{Kind: DriftUnknown}, nil
	}

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	age := e.now().Sub(meta.LastSyncedAt)
	if age > maxAge {
		e.logger.Info("cache exceeded max age", "age", age, "max_age", maxAge)
		return SyncFull, nil, Drift{Kind: DriftUnknown}, nil
	}

	if meta.SyncStatus == models.StatusError {
		e.logger.Warn("previous sync failed, self-healing with full sync", "last_error", meta.LastError)
		return SyncFull, nil, Drift{Kind: DriftUnknown}, nil
	}

	if meta.SyncStatus == models.StatusSyncing {
		if age > e.staleSyncAfter {
			e.logger.Warn("stale in-flight sync marker, treating as abandoned", "age", age)
			return SyncFull, nil, Drift{Kind: DriftUnknown}, nil
		}
		// Advisory only; a concurrent caller may still be running.
		e.logger.Warn("sync already marked in flight, proceeding anyway", "age", age)
	}

	if meta.NeedsFullSync {
		e.logger.Info("deferred removal sweep pending, escalating to full sync")
		return SyncFull, nil, Drift{Kind: DriftUnknown}, nil
	}

	probe, err := e.pager.FetchPage(ctx, 0)
	if err != nil {
		return "", nil, Drift{}, fmt.Errorf("drift probe failed: %w", err)
	}

	drift := DetectDrift(meta, probe)
	e.logger.Debug("drift probe complete", "kind", drift.Kind,
		"estimated_added", drift.EstimatedAdded, "estimated_removed", drift.EstimatedRemoved)

	if drift.Kind == DriftNone {
		return SyncCached, probe, drift, nil
	}
	return SyncIncremental, probe, drift, nil
}

// fullSync re-fetches the entire remote collection and replaces the
// cache with it. The existing cache is not cleared until the whole
// fetch has succeeded, so a mid-pagination failure leaves it intact.
func (e *SyncEngine) fullSync(ctx context.Context, meta *models.Metadata) (*SyncResult, error) {
	now := e.now()

	if meta == nil {
		meta = &models.Metadata{UserID: e.userID, SyncStatus: models.StatusNeverSynced}
	}
	if err := e.markSyncing(meta, now); err != nil {
		return nil, err
	}

	var (
		fetched      []models.LikedTrack
		firstPageIDs []string
		oldest       time.Time
		newest       time.Time
	)

	offset := 0
	for {
		page, err := e.pager.FetchPage(ctx, offset)
		if err != nil {
			e.recordError(meta, err)
			return nil, fmt.Errorf("%w: %v", shared.ErrSyncFailed, err)
		}

		if offset == 0 {
			firstPageIDs = FirstPageIDs(page.Items)
		}

		for _, item := range page.Items {
			fetched = append(fetched, models.NewLikedTrack(e.userID, item, now))
			if newest.IsZero() || item.AddedAt.After(newest) {
				newest = item.AddedAt
			}
			if oldest.IsZero() || item.AddedAt.Before(oldest) {
				oldest = item.AddedAt
			}
		}

		if !page.HasNext {
			break
		}
		offset += e.pager.PageSize()
	}

	// Fetch succeeded; only now is it safe to replace the cache.
	if err := e.store.ClearTracks(e.userID); err != nil {
		e.recordError(meta, err)
		return nil, fmt.Errorf("%w: failed to clear cache: %v", shared.ErrSyncFailed, err)
	}
	if len(fetched) > 0 {
		if err := e.store.UpsertTracks(fetched); err != nil {
			e.recordError(meta, err)
			return nil, fmt.Errorf("%w: failed to write cache: %v", shared.ErrSyncFailed, err)
		}
	}

	meta.TotalTracks = len(fetched)
	meta.MostRecentAddedAt = newest
	meta.OldestAddedAt = oldest
	meta.FirstPageIDs = firstPageIDs
	meta.SyncVersion++
	meta.SyncStatus = models.StatusSynced
	meta.LastSyncedAt = now
	meta.LastFullSyncAt = now
	meta.LastError = ""
	meta.NeedsFullSync = false

	if err := e.saveMetadata(meta); err != nil {
		return nil, err
	}

	e.logger.Info("full sync complete", "total", len(fetched), "version", meta.SyncVersion)
	return &SyncResult{
		Type:        SyncFull,
		TracksAdded: len(fetched),
		TotalTracks: len(fetched),
	}, nil
}

// incrementalSync appends the new tail of additions, bounded by the
// watermark, then reconciles any unexplained deficit via a bounded
// removal sweep.
func (e *SyncEngine) incrementalSync(ctx context.Context, meta *models.Metadata, probe *Page, drift Drift) (*SyncResult, error) {
	now := e.now()
	watermark := meta.MostRecentAddedAt

	if err := e.markSyncing(meta, now); err != nil {
		return nil, err
	}

	cached, err := e.store.Tracks(e.userID)
	if err != nil {
		e.recordError(meta, err)
		return nil, fmt.Errorf("%w: failed to read cache: %v", shared.ErrSyncFailed, err)
	}
	cachedIDs := make(map[string]struct{}, len(cached))
	for _, track := range cached {
		cachedIDs[track.TrackID] = struct{}{}
	}

	var (
		newTracks    []models.LikedTrack
		firstPageIDs []string
		currentTotal = probe.Total
		newest       = watermark
	)

	offset := 0
pagination:
	for {
		page, err := e.pager.FetchPage(ctx, offset)
		if err != nil {
			e.recordError(meta, err)
			return nil, fmt.Errorf("%w: %v", shared.ErrSyncFailed, err)
		}
		currentTotal = page.Total

		if offset == 0 {
			firstPageIDs = FirstPageIDs(page.Items)
		}

		for _, item := range page.Items {
			if item.AddedAt.Before(watermark) {
				// Everything from here on is older than the watermark
				// and already cached.
				break pagination
			}
			if item.AddedAt.Equal(watermark) {
				// Boundary tie: only genuinely unseen tracks count.
				if _, seen := cachedIDs[item.Track.ID]; seen {
					continue
				}
			}
			newTracks = append(newTracks, models.NewLikedTrack(e.userID, item, now))
			if item.AddedAt.After(newest) {
				newest = item.AddedAt
			}
		}

		if !page.HasNext {
			break
		}
		offset += e.pager.PageSize()
	}

	if len(newTracks) > 0 {
		if err := e.store.UpsertTracks(newTracks); err != nil {
			e.recordError(meta, err)
			return nil, fmt.Errorf("%w: failed to write additions: %v", shared.ErrSyncFailed, err)
		}
	}

	// The count arithmetic says how many tracks net-disappeared beyond
	// what additions explain, but not which ones.
	estimated := meta.TotalTracks - currentTotal + len(newTracks)
	if estimated < 0 {
		estimated = 0
	}
	if estimated == 0 && drift.EstimatedRemoved > 0 {
		estimated = drift.EstimatedRemoved
	}

	removed := 0
	needsFullSync := false
	if estimated > 0 {
		sweep, sweepErr := e.sweepRemovals(ctx, cached, estimated)
		switch {
		case sweepErr != nil:
			// Additions are already applied; defer reconciliation to a
			// full sync rather than failing the whole invocation.
			e.logger.Warn("removal sweep failed, deferring to full sync", "error", sweepErr)
			needsFullSync = true
		case sweep.Status == RemovalNeedsFullSync:
			needsFullSync = true
		default:
			removed = sweep.RemovalsFound
		}
	}

	meta.TotalTracks = currentTotal
	if newest.After(meta.MostRecentAddedAt) {
		meta.MostRecentAddedAt = newest
	}
	meta.FirstPageIDs = firstPageIDs
	meta.SyncVersion++
	meta.SyncStatus = models.StatusSynced
	meta.LastSyncedAt = now
	meta.LastError = ""
	meta.NeedsFullSync = needsFullSync

	if err := e.saveMetadata(meta); err != nil {
		return nil, err
	}

	e.logger.Info("incremental sync complete",
		"added", len(newTracks), "removed", removed,
		"total", currentTotal, "needs_full_sync", needsFullSync)

	return &SyncResult{
		Type:          SyncIncremental,
		TracksAdded:   len(newTracks),
		TracksRemoved: removed,
		TotalTracks:   currentTotal,
		NeedsFullSync: needsFullSync,
	}, nil
}

// markSyncing writes the advisory in-flight marker before any upstream
// work begins.
func (e *SyncEngine) markSyncing(meta *models.Metadata, now time.Time) error {
	meta.SyncStatus = models.StatusSyncing
	meta.LastSyncedAt = now
	if err := e.store.SaveMetadata(meta); err != nil {
		return fmt.Errorf("failed to mark sync in flight: %w", err)
	}
	return nil
}

// recordError persists the failure so the next invocation self-heals
// with a full sync. The original error still propagates to the caller.
func (e *SyncEngine) recordError(meta *models.Metadata, cause error) {
	meta.SyncStatus = models.StatusError
	meta.LastError = cause.Error()
	if err := e.store.SaveMetadata(meta); err != nil {
		e.logger.Error("failed to record sync error", "cause", cause, "error", err)
	}
}

func (e *SyncEngine) saveMetadata(meta *models.Metadata) error {
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid metadata: %w", err)
	}
	if err := e.store.SaveMetadata(meta); err != nil {
		return fmt.Errorf("failed to persist sync metadata: %w", err)
	}
	return nil
}

// CachedTracks returns the cached library, newest additions first,
// without touching the network.
func (e *SyncEngine) CachedTracks() ([]models.Track, error) {
	cached, err := e.store.Tracks(e.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached tracks: %w", err)
	}

	tracks := make([]models.Track, len(cached))
	for i, row := range cached {
		tracks[i] = row.Display()
	}
	return tracks, nil
}

// TracksWithSync syncs first, then returns the cached library.
func (e *SyncEngine) TracksWithSync(ctx context.Context, opts SyncOptions) ([]models.Track, *SyncResult, error) {
	result, err := e.Sync(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	tracks, err := e.CachedTracks()
	if err != nil {
		return nil, result, err
	}
	return tracks, result, nil
}

// Metadata exposes the user's sync bookkeeping for status displays.
func (e *SyncEngine) Metadata() (*models.Metadata, error) {
	return e.store.Metadata(e.userID)
}

// ClearCache drops every cached row and the metadata watermark,
// forcing the next sync to start from scratch.
func (e *SyncEngine) ClearCache() error {
	if err := e.store.ClearTracks(e.userID); err != nil {
		return fmt.Errorf("failed to clear cached tracks: %w", err)
	}

	meta := &models.Metadata{UserID: e.userID, SyncStatus: models.StatusNeverSynced, FirstPageIDs: []string{}}
	if err := e.store.SaveMetadata(meta); err != nil {
		return fmt.Errorf("failed to reset sync metadata: %w", err)
	}
	return nil
}
