package models

import (
	"testing"
	"time"
)

func TestLikedTrack(t *testing.T) {
	addedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	syncedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	saved := SavedTrack{
		AddedAt: addedAt,
		Track: Track{
			ID:         "track-1",
			URI:        "spotify:track:track-1",
			Name:       "Test Song",
			Artist:     "Test Artist",
			ArtistID:   "artist-1",
			Album:      "Test Album",
			AlbumID:    "album-1",
			DurationMS: 213000,
			Popularity: 64,
		},
	}

	t.Run("NewLikedTrack", func(t *testing.T) {
		row := NewLikedTrack("user-1", saved, syncedAt)

		if row.UserID != "user-1" {
			t.Errorf("UserID = %v, want user-1", row.UserID)
		}
		if row.TrackID != "track-1" {
			t.Errorf("TrackID = %v, want track-1", row.TrackID)
		}
		if !row.AddedAt.Equal(addedAt) {
			t.Errorf("AddedAt = %v, want %v", row.AddedAt, addedAt)
		}
		if !row.SyncedAt.Equal(syncedAt) {
			t.Errorf("SyncedAt = %v, want %v", row.SyncedAt, syncedAt)
		}
		if row.ArtistName != "Test Artist" || row.AlbumName != "Test Album" {
			t.Errorf("artist/album not carried over: %+v", row)
		}
	})

	t.Run("Display Round Trip", func(t *testing.T) {
		row := NewLikedTrack("user-1", saved, syncedAt)
		got := row.Display()

		if got != saved.Track {
			t.Errorf("Display() = %+v, want %+v", got, saved.Track)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		row := NewLikedTrack("user-1", saved, syncedAt)
		if err := row.Validate(); err != nil {
			t.Errorf("valid row should pass validation: %v", err)
		}

		row.UserID = ""
		if err := row.Validate(); err == nil {
			t.Error("expected error for missing user id")
		}

		row = NewLikedTrack("user-1", saved, syncedAt)
		row.TrackID = ""
		if err := row.Validate(); err == nil {
			t.Error("expected error for missing track id")
		}
	})
}

func TestMetadataValidate(t *testing.T) {
	base := Metadata{
		UserID:            "user-1",
		TotalTracks:       10,
		SyncStatus:        StatusSynced,
		MostRecentAddedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		OldestAddedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	tc := []struct {
		name    string
		mutate  func(m *Metadata)
		wantErr bool
	}{
		{name: "valid", mutate: func(m *Metadata) {}, wantErr: false},
		{name: "missing user id", mutate: func(m *Metadata) { m.UserID = "" }, wantErr: true},
		{name: "unknown status", mutate: func(m *Metadata) { m.SyncStatus = "paused" }, wantErr: true},
		{
			name: "watermark inversion",
			mutate: func(m *Metadata) {
				m.MostRecentAddedAt, m.OldestAddedAt = m.OldestAddedAt, m.MostRecentAddedAt
			},
			wantErr: true,
		},
		{
			name: "zero watermarks allowed",
			mutate: func(m *Metadata) {
				m.MostRecentAddedAt = time.Time{}
				m.OldestAddedAt = time.Time{}
			},
			wantErr: false,
		},
		{
			name: "empty library skips watermark check",
			mutate: func(m *Metadata) {
				m.TotalTracks = 0
				m.MostRecentAddedAt, m.OldestAddedAt = m.OldestAddedAt, m.MostRecentAddedAt
			},
			wantErr: false,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			m := base
			tt.mutate(&m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTriageActionValidate(t *testing.T) {
	base := TriageAction{
		ID:          "act-1",
		UserID:      "user-1",
		Kind:        ActionPromote,
		TrackID:     "track-1",
		TrackURI:    "spotify:track:track-1",
		PlaylistID:  "pl-inbox",
		PerformedAt: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
	}

	t.Run("valid promote", func(t *testing.T) {
		if err := base.Validate(); err != nil {
			t.Errorf("valid action should pass: %v", err)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		a := base
		a.UserID = ""
		if err := a.Validate(); err == nil {
			t.Error("expected error for missing user id")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		a := base
		a.Kind = "shuffle"
		if err := a.Validate(); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("promote requires track id", func(t *testing.T) {
		a := base
		a.TrackID = ""
		if err := a.Validate(); err == nil {
			t.Error("expected error for promote without track id")
		}
	})

	t.Run("archive allows empty track id", func(t *testing.T) {
		a := base
		a.Kind = ActionArchive
		a.TrackID = ""
		a.ArchivePlaylistID = "pl-archive"
		if err := a.Validate(); err != nil {
			t.Errorf("archive without track id should pass: %v", err)
		}
	})
}
