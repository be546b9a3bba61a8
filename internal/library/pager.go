package library

import (
	"context"
	"fmt"

	"github.com/trackshelf/trackshelf/internal/models"
	"github.com/trackshelf/trackshelf/internal/services"
)

// DefaultPageSize is the page size used for probe and pagination
// fetches; it matches the service maximum so each call covers as much
// of the collection as possible.
const DefaultPageSize = 50

// Page is one fetched slice of the remote liked-songs listing.
type Page struct {
	Items   []models.SavedTrack
	Total   int
	HasNext bool
}

// Pager adapts the [services.Library] saved-tracks listing for the sync
// engine: fetch-by-offset with retries, preserving server ordering
// (newest saved first). It performs no caching of its own.
type Pager struct {
	library  services.Library
	retry    services.RetryPolicy
	pageSize int
}

// NewPager creates a Pager over the given service. A pageSize of zero
// or less falls back to [DefaultPageSize].
func NewPager(lib services.Library, retry services.RetryPolicy, pageSize int) *Pager {
	if pageSize <= 0 || pageSize > services.MaxPageSize {
		pageSize = DefaultPageSize
	}
	return &Pager{library: lib, retry: retry, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (p *Pager) PageSize() int {
	return p.pageSize
}

// FetchPage fetches the page starting at offset, retrying transient
// upstream failures per the pager's retry policy.
func (p *Pager) FetchPage(ctx context.Context, offset int) (*Page, error) {
	var fetched *services.SavedTrackPage

	err := p.retry.Do(ctx, func() error {
		var fetchErr error
		fetched, fetchErr = p.library.SavedTracks(ctx, p.pageSize, offset)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved tracks at offset %d: %w", offset, err)
	}

	return &Page{
		Items:   fetched.Items,
		Total:   fetched.Total,
		HasNext: fetched.HasNext,
	}, nil
}

// FirstPageIDs extracts the track IDs of a page head, used as the
// stored snapshot for churn detection.
func FirstPageIDs(items []models.SavedTrack) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Track.ID)
	}
	return ids
}
