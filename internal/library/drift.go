package library

import (
	"github.com/trackshelf/trackshelf/internal/models"
)

// DriftKind classifies how the remote collection differs from the cache.
type DriftKind string

const (
	// DriftNone means the cache still matches the remote collection.
	DriftNone DriftKind = "none"
	// DriftAdditions means the remote total grew.
	DriftAdditions DriftKind = "additions"
	// DriftRemovals means the remote total shrank.
	DriftRemovals DriftKind = "removals"
	// DriftChurn means the total is unchanged but the head of the list
	// is not, implying equal-magnitude additions and removals.
	DriftChurn DriftKind = "additions_and_removals"
	// DriftUnknown means there is no cached state to compare against.
	DriftUnknown DriftKind = "unknown"
)

// Drift is the outcome of comparing stored metadata against a fresh
// one-page probe of the remote collection.
type Drift struct {
	Kind             DriftKind
	EstimatedAdded   int
	EstimatedRemoved int
}

// DetectDrift classifies remote drift from a single-page probe.
//
// A total-count comparison alone is blind to simultaneous additions and
// removals of equal magnitude, so on equal totals the stored first-page
// ID snapshot is compared against the probe's head: a changed head on
// an unchanged total implies equal in/out churn.
func DetectDrift(meta *models.Metadata, probe *Page) Drift {
	if meta == nil {
		return Drift{Kind: DriftUnknown}
	}

	diff := probe.Total - meta.TotalTracks
	switch {
	case diff > 0:
		return Drift{Kind: DriftAdditions, EstimatedAdded: diff}
	case diff < 0:
		return Drift{Kind: DriftRemovals, EstimatedRemoved: -diff}
	}

	if len(meta.FirstPageIDs) == 0 {
		return Drift{Kind: DriftNone}
	}

	current := make(map[string]struct{}, len(probe.Items))
	for _, item := range probe.Items {
		current[item.Track.ID] = struct{}{}
	}

	missing := 0
	for _, id := range meta.FirstPageIDs {
		if _, ok := current[id]; !ok {
			missing++
		}
	}

	if missing == 0 {
		return Drift{Kind: DriftNone}
	}

	// Same total, different head: every stored ID that fell off the
	// first page is matched by a new arrival.
	return Drift{Kind: DriftChurn, EstimatedAdded: missing, EstimatedRemoved: missing}
}
