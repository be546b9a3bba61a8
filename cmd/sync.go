package main

import (
	"context"
	"time"

	"github.com/trackshelf/trackshelf/internal/library"
	"github.com/urfave/cli/v3"
)

// Sync reconciles the local liked-songs cache with the streaming service.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.syncEngine(ctx, db)
	if err != nil {
		return err
	}

	maxAge := r.config.Sync.MaxAge()
	if hours := cmd.Int("max-age"); hours > 0 {
		maxAge = time.Duration(hours) * time.Hour
	}

	result, err := engine.Sync(ctx, library.SyncOptions{
		ForceRefresh: cmd.Bool("force"),
		MaxAge:       maxAge,
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlainHeader("Sync Complete")
	r.writePlain("Strategy: %s\n", result.Type)
	if result.FromCache {
		r.writePlain("Cache is fresh, nothing to do.\n")
	} else {
		r.writePlain("Added: %d\n", result.TracksAdded)
		r.writePlain("Removed: %d\n", result.TracksRemoved)
	}
	r.writePlain("Total tracks: %d\n", result.TotalTracks)
	r.writePlain("Took: %s\n", result.Duration.Round(time.Millisecond))
	if result.NeedsFullSync {
		r.writePlain("\nNote: removal sweep was inconclusive; the next sync will re-fetch everything.\n")
	}

	return nil
}
