package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trackshelf/trackshelf/internal/formatter"
	"github.com/trackshelf/trackshelf/internal/library"
	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryShow lists the cached liked songs, syncing first unless
// --cached is given.
func (r *Runner) LibraryShow(ctx context.Context, cmd *cli.Command) error {
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

	var tracks []models.Track
	if cmd.Bool("cached") {
		tracks, err = engine.CachedTracks()
	} else {
		tracks, _, err = engine.TracksWithSync(ctx, library.SyncOptions{MaxAge: r.config.Sync.MaxAge()})
	}
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit > 0 && len(tracks) > int(limit) {
		tracks = tracks[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Liked Songs (%d shown)", len(tracks)))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s [%s]\n", i+1, track.Artist, track.Name, shared.FormatDuration(track.DurationMS))
	}

	return nil
}

// LibraryExport writes the cached library to disk as JSON or CSV.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
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

	tracks, err := engine.CachedTracks()
	if err != nil {
		return err
	}

	meta, err := engine.Metadata()
	if err != nil {
		return err
	}

	export := &formatter.LibraryExport{Metadata: meta, Tracks: tracks}
	result, err := formatter.WriteExport(export, cmd.String("format"), cmd.String("output"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), result.TracksFile)
	if result.MetadataFile != "" {
		r.writePlain("  Metadata: %s\n", result.MetadataFile)
	}

	return nil
}

// LibraryClear drops the cached library.
func (r *Runner) LibraryClear(ctx context.Context, cmd *cli.Command) error {
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

	if err := engine.ClearCache(); err != nil {
		return err
	}

	r.writePlain("✓ Cache cleared. Next sync will re-fetch everything.\n")
	return nil
}

// LibraryStatus prints the sync bookkeeping for the cached library.
func (r *Runner) LibraryStatus(ctx context.Context, cmd *cli.Command) error {
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

	meta, err := engine.Metadata()
	if err != nil {
		return err
	}
	if meta == nil {
		r.writePlain("Library has never been synced. Run 'trackshelf sync' first.\n")
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(meta, true)
	}

	r.writePlainHeader("Library Status")
	r.writePlain("Status: %s\n", meta.SyncStatus)
	r.writePlain("Tracks: %d\n", meta.TotalTracks)
	r.writePlain("Sync version: %d\n", meta.SyncVersion)
	if !meta.LastSyncedAt.IsZero() {
		r.writePlain("Last synced: %s\n", meta.LastSyncedAt.Format(time.RFC3339))
	}
	if !meta.LastFullSyncAt.IsZero() {
		r.writePlain("Last full sync: %s\n", meta.LastFullSyncAt.Format(time.RFC3339))
	}
	if meta.LastError != "" {
		r.writePlain("Last error: %s\n", meta.LastError)
	}
	if meta.NeedsFullSync {
		r.writePlain("A full sync is pending.\n")
	}

	return nil
}
