package tasks

import (
	"fmt"

	"github.com/trackshelf/trackshelf/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchInbox Phase = iota
	CheckLiked
	PromoteTrack
	DemoteTrack
	ArchiveTracks
	UndoAction
)

func (p Phase) String() string {
	switch p {
	case FetchInbox:
		return "fetch_inbox"
	case CheckLiked:
		return "check_liked"
	case PromoteTrack:
		return "promote"
	case DemoteTrack:
		return "demote"
	case ArchiveTracks:
		return "archive"
	case UndoAction:
		return "undo"
	default:
		return ""
	}
}

func fetchInboxUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchInbox,
		Step:    step,
		Total:   total,
		Message: "Fetching inbox playlist...",
	}
}

func checkLikedUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckLiked,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Checking liked state...", step, total),
	}
}

func promoteUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PromoteTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Promoting: %s - %s", tr.Artist, tr.Name),
		Data:    tr,
	}
}

func demoteUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DemoteTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Demoting: %s - %s", tr.Artist, tr.Name),
		Data:    tr,
	}
}

func archiveUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ArchiveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Archiving to %s...", step, total, name),
	}
}

func undoUpdate(step, total int, action *models.TriageAction) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UndoAction,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Undoing %s...", action.Kind),
		Data:    action,
	}
}
