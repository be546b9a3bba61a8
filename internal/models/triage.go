package models

import (
	"fmt"
	"time"
)

// ActionKind is the closed set of logged triage actions.
type ActionKind string

const (
	ActionPromote ActionKind = "promote"
	ActionDemote  ActionKind = "demote"
	ActionArchive ActionKind = "archive"
)

// TriageAction is one logged inbox operation. Actions are append-only;
// undoing one flips Undone rather than deleting the row.
type TriageAction struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Kind              ActionKind `json:"kind"`
	TrackID           string     `json:"track_id"`
	TrackURI          string     `json:"track_uri"`
	PlaylistID        string     `json:"playlist_id"`
	ArchivePlaylistID string     `json:"archive_playlist_id"`
	Undone            bool       `json:"undone"`
	PerformedAt       time.Time  `json:"performed_at"`
}

// Validate checks that an action log entry is well formed.
func (a *TriageAction) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("triage action missing user id")
	}
	switch a.Kind {
	case ActionPromote, ActionDemote, ActionArchive:
	default:
		return fmt.Errorf("unknown triage action kind %q", a.Kind)
	}
	if a.TrackID == "" && a.Kind != ActionArchive {
		return fmt.Errorf("triage action missing track id")
	}
	return nil
}

// InboxEntry is one inbox playlist item annotated with its cached and
// liked state, as produced by an inbox scan.
type InboxEntry struct {
	Track   Track     `json:"track"`
	AddedAt time.Time `json:"added_at"`
	Liked   bool      `json:"liked"`
	Cached  bool      `json:"cached"`
}
