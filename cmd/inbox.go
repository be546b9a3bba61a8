package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trackshelf/trackshelf/internal/shared"
	"github.com/trackshelf/trackshelf/internal/tasks"
	"github.com/urfave/cli/v3"
)

// InboxScan lists the inbox playlist annotated with liked and cached state.
func (r *Runner) InboxScan(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.triageEngine(ctx, db)
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			if update.Phase == tasks.CheckLiked {
				r.writePlain("🔍 %s\n", update.Message)
			}
		}
	}()

	entries, err := engine.ScanInbox(ctx, progressCh)
	close(progressCh)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	r.writePlainHeader(fmt.Sprintf("Inbox (%d tracks)", len(entries)))
	for i, entry := range entries {
		marker := " "
		switch {
		case entry.Liked:
			marker = "♥"
		case entry.Cached:
			marker = "~"
		}
		r.writePlain("%d. [%s] %s - %s (%s) added %s\n",
			i+1, marker, entry.Track.Artist, entry.Track.Name, entry.Track.ID,
			entry.AddedAt.Format("2006-01-02"))
	}
	r.writePlain("\n♥ liked   ~ cached but no longer liked\n")

	return nil
}

// InboxPromote saves an inbox track to liked songs and removes it from
// the inbox.
func (r *Runner) InboxPromote(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	trackID := cmd.StringArg("track-id")
	if trackID == "" {
		return fmt.Errorf("%w: track-id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.triageEngine(ctx, db)
	if err != nil {
		return err
	}

	action, err := engine.Promote(ctx, nil, trackID)
	if err != nil {
		return err
	}

	r.writePlain("✓ Promoted %s to liked songs\n", action.TrackID)
	return nil
}

// InboxDemote removes a track from the inbox, optionally unliking it.
func (r *Runner) InboxDemote(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	trackID := cmd.StringArg("track-id")
	if trackID == "" {
		return fmt.Errorf("%w: track-id", shared.ErrMissingArgument)
	}

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.triageEngine(ctx, db)
	if err != nil {
		return err
	}

	unlike := cmd.Bool("unlike")
	action, err := engine.Demote(ctx, nil, trackID, unlike)
	if err != nil {
		return err
	}

	if unlike {
		r.writePlain("✓ Demoted %s (removed from inbox and liked songs)\n", action.TrackID)
	} else {
		r.writePlain("✓ Demoted %s (removed from inbox)\n", action.TrackID)
	}
	return nil
}

// InboxArchive moves stale inbox tracks into a dated archive playlist.
func (r *Runner) InboxArchive(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.triageEngine(ctx, db)
	if err != nil {
		return err
	}

	days := int(cmd.Int("older-than"))
	if days <= 0 {
		days = r.config.Triage.ArchiveAfterDays
	}
	if days <= 0 {
		days = 30
	}

	result, err := engine.Archive(ctx, nil, time.Duration(days)*24*time.Hour)
	if err != nil {
		return err
	}

	if len(result.Archived) == 0 {
		r.writePlain("Nothing to archive; no inbox tracks older than %d days.\n", days)
		return nil
	}

	r.writePlain("✓ Archived %d tracks to %s\n", len(result.Archived), result.PlaylistName)
	for i, track := range result.Archived {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist, track.Name)
	}
	return nil
}

// InboxUndo reverts the most recent triage action.
func (r *Runner) InboxUndo(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := r.triageEngine(ctx, db)
	if err != nil {
		return err
	}

	result, err := engine.Undo(ctx, nil)
	if err != nil {
		return err
	}

	r.writePlain("✓ Undid %s (%d tracks restored)\n", result.Action.Kind, result.TracksRestored)
	return nil
}
