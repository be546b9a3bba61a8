package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func likedTrack(userID, trackID string, addedAt time.Time) models.LikedTrack {
	return models.LikedTrack{
		UserID:     userID,
		TrackID:    trackID,
		URI:        "spotify:track:" + trackID,
		Name:       "name " + trackID,
		ArtistName: "artist",
		AlbumName:  "album",
		AddedAt:    addedAt,
		SyncedAt:   time.Now().UTC(),
		DurationMS: 180000,
	}
}

func TestLibraryRepository(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	t.Run("Metadata", func(t *testing.T) {
		t.Run("returns nil for an unsynced user", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			meta, err := NewLibraryRepository(db).Metadata("nobody")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if meta != nil {
				t.Errorf("expected nil metadata, got %+v", meta)
			}
		})

		t.Run("round-trips all fields", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			meta := &models.Metadata{
				UserID:            "user-1",
				TotalTracks:       321,
				LastSyncedAt:      now,
				LastFullSyncAt:    now.Add(-time.Hour),
				MostRecentAddedAt: now.Add(-2 * time.Hour),
				OldestAddedAt:     now.Add(-1000 * time.Hour),
				SyncVersion:       7,
				SyncStatus:        models.StatusSynced,
				LastError:         "",
				NeedsFullSync:     true,
				FirstPageIDs:      []string{"a", "b", "c"},
			}

			if err := repo.SaveMetadata(meta); err != nil {
				t.Fatalf("failed to save metadata: %v", err)
			}

			got, err := repo.Metadata("user-1")
			if err != nil {
				t.Fatalf("failed to load metadata: %v", err)
			}

			if got.TotalTracks != 321 || got.SyncVersion != 7 {
				t.Errorf("unexpected counters: %+v", got)
			}
			if got.SyncStatus != models.StatusSynced {
				t.Errorf("expected synced, got %s", got.SyncStatus)
			}
			if !got.NeedsFullSync {
				t.Error("expected needs_full_sync preserved")
			}
			if !got.LastSyncedAt.Equal(now) {
				t.Errorf("expected last synced %s, got %s", now, got.LastSyncedAt)
			}
			if !got.MostRecentAddedAt.Equal(now.Add(-2 * time.Hour)) {
				t.Errorf("unexpected watermark: %s", got.MostRecentAddedAt)
			}
			if len(got.FirstPageIDs) != 3 || got.FirstPageIDs[0] != "a" {
				t.Errorf("unexpected snapshot: %v", got.FirstPageIDs)
			}
		})

		t.Run("upsert overwrites the existing row", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			meta := &models.Metadata{UserID: "user-1", TotalTracks: 1, SyncStatus: models.StatusSyncing}
			if err := repo.SaveMetadata(meta); err != nil {
				t.Fatal(err)
			}

			meta.TotalTracks = 2
			meta.SyncStatus = models.StatusSynced
			if err := repo.SaveMetadata(meta); err != nil {
				t.Fatal(err)
			}

			got, _ := repo.Metadata("user-1")
			if got.TotalTracks != 2 || got.SyncStatus != models.StatusSynced {
				t.Errorf("expected updated row, got %+v", got)
			}
		})

		t.Run("preserves zero times as zero", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			meta := &models.Metadata{UserID: "user-1", SyncStatus: models.StatusNeverSynced}
			if err := repo.SaveMetadata(meta); err != nil {
				t.Fatal(err)
			}

			got, _ := repo.Metadata("user-1")
			if !got.LastSyncedAt.IsZero() || !got.MostRecentAddedAt.IsZero() {
				t.Errorf("expected zero times, got %+v", got)
			}
		})
	})

	t.Run("Tracks", func(t *testing.T) {
		t.Run("orders newest addition first", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			err := repo.UpsertTracks([]models.LikedTrack{
				likedTrack("user-1", "old", now.Add(-3*time.Hour)),
				likedTrack("user-1", "new", now.Add(-time.Hour)),
				likedTrack("user-1", "mid", now.Add(-2*time.Hour)),
			})
			if err != nil {
				t.Fatalf("failed to upsert: %v", err)
			}

			tracks, err := repo.Tracks("user-1")
			if err != nil {
				t.Fatalf("failed to load tracks: %v", err)
			}

			want := []string{"new", "mid", "old"}
			for i, id := range want {
				if tracks[i].TrackID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, tracks[i].TrackID)
				}
			}
		})

		t.Run("scopes rows by user", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			if err := repo.UpsertTracks([]models.LikedTrack{
				likedTrack("user-1", "a", now),
				likedTrack("user-2", "b", now),
			}); err != nil {
				t.Fatal(err)
			}

			tracks, _ := repo.Tracks("user-1")
			if len(tracks) != 1 || tracks[0].TrackID != "a" {
				t.Errorf("expected only user-1 rows, got %+v", tracks)
			}
		})

		t.Run("upsert replaces an existing row", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			track := likedTrack("user-1", "a", now)
			if err := repo.UpsertTracks([]models.LikedTrack{track}); err != nil {
				t.Fatal(err)
			}

			track.Name = "renamed"
			if err := repo.UpsertTracks([]models.LikedTrack{track}); err != nil {
				t.Fatal(err)
			}

			tracks, _ := repo.Tracks("user-1")
			if len(tracks) != 1 {
				t.Fatalf("expected 1 row, got %d", len(tracks))
			}
			if tracks[0].Name != "renamed" {
				t.Errorf("expected replaced content, got %q", tracks[0].Name)
			}
		})

		t.Run("rejects rows missing their key", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			err := repo.UpsertTracks([]models.LikedTrack{{UserID: "user-1"}})
			if err == nil {
				t.Error("expected validation error for missing track id")
			}
		})

		t.Run("clear removes every row for the user", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			if err := repo.UpsertTracks([]models.LikedTrack{
				likedTrack("user-1", "a", now),
				likedTrack("user-1", "b", now),
				likedTrack("user-2", "c", now),
			}); err != nil {
				t.Fatal(err)
			}

			if err := repo.ClearTracks("user-1"); err != nil {
				t.Fatalf("clear failed: %v", err)
			}

			mine, _ := repo.Tracks("user-1")
			theirs, _ := repo.Tracks("user-2")
			if len(mine) != 0 {
				t.Errorf("expected empty cache, got %d rows", len(mine))
			}
			if len(theirs) != 1 {
				t.Errorf("expected other user untouched, got %d rows", len(theirs))
			}
		})

		t.Run("delete removes only the named rows", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			if err := repo.UpsertTracks([]models.LikedTrack{
				likedTrack("user-1", "a", now),
				likedTrack("user-1", "b", now),
				likedTrack("user-1", "c", now),
			}); err != nil {
				t.Fatal(err)
			}

			if err := repo.DeleteTracks("user-1", []string{"a", "c"}); err != nil {
				t.Fatalf("delete failed: %v", err)
			}

			tracks, _ := repo.Tracks("user-1")
			if len(tracks) != 1 || tracks[0].TrackID != "b" {
				t.Errorf("expected only b to remain, got %+v", tracks)
			}
		})

		t.Run("contains reports cached state per id", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			if err := repo.UpsertTracks([]models.LikedTrack{
				likedTrack("user-1", "a", now),
			}); err != nil {
				t.Fatal(err)
			}

			got, err := repo.ContainsTracks("user-1", []string{"a", "b"})
			if err != nil {
				t.Fatalf("contains failed: %v", err)
			}
			if !got["a"] || got["b"] {
				t.Errorf("unexpected contains result: %v", got)
			}
		})

		t.Run("count tracks", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewLibraryRepository(db)
			if err := repo.UpsertTracks([]models.LikedTrack{
				likedTrack("user-1", "a", now),
				likedTrack("user-1", "b", now),
			}); err != nil {
				t.Fatal(err)
			}

			count, err := repo.CountTracks("user-1")
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if count != 2 {
				t.Errorf("expected 2, got %d", count)
			}
		})
	})
}

func TestTriageRepository(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	action := func(kind models.ActionKind, trackID string, at time.Time) *models.TriageAction {
		return &models.TriageAction{
			UserID:      "user-1",
			Kind:        kind,
			TrackID:     trackID,
			TrackURI:    "spotify:track:" + trackID,
			PlaylistID:  "inbox",
			PerformedAt: at,
		}
	}

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTriageRepository(db)
		a := action(models.ActionPromote, "a", now)
		if err := repo.Create(a); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if a.ID == "" {
			t.Error("expected generated ID")
		}
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTriageRepository(db)
		err := repo.Create(action("shuffle", "a", now))
		if err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Latest", func(t *testing.T) {
		t.Run("returns the newest non-undone action", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTriageRepository(db)
			if err := repo.Create(action(models.ActionPromote, "a", now.Add(-2*time.Hour))); err != nil {
				t.Fatal(err)
			}
			if err := repo.Create(action(models.ActionDemote, "b", now.Add(-time.Hour))); err != nil {
				t.Fatal(err)
			}

			latest, err := repo.Latest("user-1")
			if err != nil {
				t.Fatalf("latest failed: %v", err)
			}
			if latest.Kind != models.ActionDemote || latest.TrackID != "b" {
				t.Errorf("unexpected latest action: %+v", latest)
			}
		})

		t.Run("skips undone actions", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTriageRepository(db)
			older := action(models.ActionPromote, "a", now.Add(-2*time.Hour))
			newer := action(models.ActionDemote, "b", now.Add(-time.Hour))
			if err := repo.Create(older); err != nil {
				t.Fatal(err)
			}
			if err := repo.Create(newer); err != nil {
				t.Fatal(err)
			}

			if err := repo.MarkUndone(newer.ID); err != nil {
				t.Fatalf("mark undone failed: %v", err)
			}

			latest, err := repo.Latest("user-1")
			if err != nil {
				t.Fatalf("latest failed: %v", err)
			}
			if latest.ID != older.ID {
				t.Errorf("expected older action, got %+v", latest)
			}
		})

		t.Run("reports not found on an empty log", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			_, err := NewTriageRepository(db).Latest("user-1")
			if !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("MarkUndone", func(t *testing.T) {
		t.Run("is not repeatable", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewTriageRepository(db)
			a := action(models.ActionPromote, "a", now)
			if err := repo.Create(a); err != nil {
				t.Fatal(err)
			}

			if err := repo.MarkUndone(a.ID); err != nil {
				t.Fatalf("first undo failed: %v", err)
			}
			if err := repo.MarkUndone(a.ID); !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("expected ErrNotFound on second undo, got %v", err)
			}
		})
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTriageRepository(db)
		for i, kind := range []models.ActionKind{models.ActionPromote, models.ActionDemote, models.ActionPromote} {
			if err := repo.Create(action(kind, "t", now.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatal(err)
			}
		}

		all, err := repo.List("user-1", 0)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 actions, got %d", len(all))
		}
		if !all[0].PerformedAt.After(all[2].PerformedAt) {
			t.Error("expected newest first ordering")
		}

		limited, err := repo.List("user-1", 2)
		if err != nil {
			t.Fatalf("limited list failed: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 actions, got %d", len(limited))
		}
	})
}
