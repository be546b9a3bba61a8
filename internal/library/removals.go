package library

import (
	"context"
	"fmt"

	"github.com/trackshelf/trackshelf/internal/models"
)

// RemovalStatus is the outcome of a removal confirmation sweep.
type RemovalStatus string

const (
	// RemovalCompleted means the sweep finished normally; any confirmed
	// removals have been deleted from the cache.
	RemovalCompleted RemovalStatus = "completed"
	// RemovalNeedsFullSync means the sweep exhausted its batch budget
	// without explaining the expected deficit; a full resync should
	// reconcile instead.
	RemovalNeedsFullSync RemovalStatus = "needs_full_sync"
	// RemovalNoCachedTracks means there was nothing to check.
	RemovalNoCachedTracks RemovalStatus = "no_cached_tracks"
)

const (
	// removalBatchSize is the contains-check batch size, matching the
	// service's per-call ID cap.
	removalBatchSize = 50

	// removalMaxEmptyBatches bounds how many consecutive all-saved
	// batches the sweep pays for before giving up. Recently unliked
	// tracks sit near the head of an added-at-ordered cache, so a
	// removal not found within this window is cheaper to reconcile
	// with a full resync than with a cache-length scan.
	removalMaxEmptyBatches = 4
)

// RemovalSweep reports what a confirmation sweep checked and removed.
type RemovalSweep struct {
	Status          RemovalStatus
	RemovalsFound   int
	TracksChecked   int
	RemovedTrackIDs []string
}

// sweepRemovals confirms which cached tracks were unliked remotely by
// checking cached IDs (newest added first) against the service's
// saved-state endpoint in fixed-size batches. It stops as soon as the
// expected number of removals is explained, and aborts to
// [RemovalNeedsFullSync] if the first removalMaxEmptyBatches batches
// confirm nothing while a deficit is expected.
//
// Confirmed removals are deleted from the store before returning.
func (e *SyncEngine) sweepRemovals(ctx context.Context, cached []models.LikedTrack, expected int) (*RemovalSweep, error) {
	sweep := &RemovalSweep{Status: RemovalCompleted}

	if len(cached) == 0 {
		sweep.Status = RemovalNoCachedTracks
		return sweep, nil
	}

	for start := 0; start < len(cached); start += removalBatchSize {
		if sweep.RemovalsFound >= expected {
			break
		}

		batchesDone := start / removalBatchSize
		if batchesDone >= removalMaxEmptyBatches && sweep.RemovalsFound == 0 && expected > 0 {
			e.logger.Warn("removal sweep budget exhausted, deferring to full sync",
				"checked", sweep.TracksChecked, "expected", expected)
			sweep.Status = RemovalNeedsFullSync
			return sweep, nil
		}

		end := start + removalBatchSize
		if end > len(cached) {
			end = len(cached)
		}
		batch := cached[start:end]

		ids := make([]string, len(batch))
		for i, track := range batch {
			ids[i] = track.TrackID
		}

		var saved []bool
		err := e.bulkRetry.Do(ctx, func() error {
			var checkErr error
			saved, checkErr = e.library.CheckSavedTracks(ctx, ids)
			return checkErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to check saved state for batch at %d: %w", start, err)
		}

		sweep.TracksChecked += len(batch)
		for i, stillSaved := range saved {
			if !stillSaved {
				sweep.RemovedTrackIDs = append(sweep.RemovedTrackIDs, ids[i])
				sweep.RemovalsFound++
			}
		}
	}

	if sweep.RemovalsFound > 0 {
		if err := e.store.DeleteTracks(e.userID, sweep.RemovedTrackIDs); err != nil {
			return nil, fmt.Errorf("failed to delete confirmed removals: %w", err)
		}
		e.logger.Info("purged unliked tracks from cache",
			"removed", sweep.RemovalsFound, "checked", sweep.TracksChecked)
	}

	return sweep, nil
}
