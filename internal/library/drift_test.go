package library

import (
	"testing"
	"time"

	"github.com/trackshelf/trackshelf/internal/models"
)

func probePage(total int, ids ...string) *Page {
	page := &Page{Total: total}
	for _, id := range ids {
		page.Items = append(page.Items, models.SavedTrack{
			AddedAt: time.Now(),
			Track:   models.Track{ID: id},
		})
	}
	return page
}

func TestDetectDrift(t *testing.T) {
	t.Run("classifies unknown when no metadata exists", func(t *testing.T) {
		drift := DetectDrift(nil, probePage(10, "a"))
		if drift.Kind != DriftUnknown {
			t.Errorf("expected unknown, got %s", drift.Kind)
		}
	})

	t.Run("classifies additions when the total grew", func(t *testing.T) {
		meta := &models.Metadata{TotalTracks: 100}
		drift := DetectDrift(meta, probePage(103, "a"))
		if drift.Kind != DriftAdditions {
			t.Errorf("expected additions, got %s", drift.Kind)
		}
		if drift.EstimatedAdded != 3 {
			t.Errorf("expected 3 estimated additions, got %d", drift.EstimatedAdded)
		}
	})

	t.Run("classifies removals when the total shrank", func(t *testing.T) {
		meta := &models.Metadata{TotalTracks: 100}
		drift := DetectDrift(meta, probePage(95, "a"))
		if drift.Kind != DriftRemovals {
			t.Errorf("expected removals, got %s", drift.Kind)
		}
		if drift.EstimatedRemoved != 5 {
			t.Errorf("expected 5 estimated removals, got %d", drift.EstimatedRemoved)
		}
	})

	t.Run("equal totals", func(t *testing.T) {
		t.Run("matching head is no drift", func(t *testing.T) {
			meta := &models.Metadata{TotalTracks: 3, FirstPageIDs: []string{"a", "b", "c"}}
			drift := DetectDrift(meta, probePage(3, "a", "b", "c"))
			if drift.Kind != DriftNone {
				t.Errorf("expected none, got %s", drift.Kind)
			}
		})

		t.Run("reordered head is no drift", func(t *testing.T) {
			meta := &models.Metadata{TotalTracks: 3, FirstPageIDs: []string{"a", "b", "c"}}
			drift := DetectDrift(meta, probePage(3, "c", "a", "b"))
			if drift.Kind != DriftNone {
				t.Errorf("expected none, got %s", drift.Kind)
			}
		})

		t.Run("changed head is churn with equal estimates", func(t *testing.T) {
			meta := &models.Metadata{TotalTracks: 3, FirstPageIDs: []string{"a", "b", "c"}}
			drift := DetectDrift(meta, probePage(3, "a", "b", "z"))
			if drift.Kind != DriftChurn {
				t.Errorf("expected churn, got %s", drift.Kind)
			}
			if drift.EstimatedAdded != 1 || drift.EstimatedRemoved != 1 {
				t.Errorf("expected equal estimates of 1, got added=%d removed=%d",
					drift.EstimatedAdded, drift.EstimatedRemoved)
			}
		})

		t.Run("missing snapshot is no drift", func(t *testing.T) {
			meta := &models.Metadata{TotalTracks: 3}
			drift := DetectDrift(meta, probePage(3, "x", "y", "z"))
			if drift.Kind != DriftNone {
				t.Errorf("expected none without a snapshot, got %s", drift.Kind)
			}
		})

		t.Run("empty library is no drift", func(t *testing.T) {
			meta := &models.Metadata{TotalTracks: 0, FirstPageIDs: []string{}}
			drift := DetectDrift(meta, probePage(0))
			if drift.Kind != DriftNone {
				t.Errorf("expected none, got %s", drift.Kind)
			}
		})
	})
}
