package admin

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/vbonduro/propertydesk/internal/domain"
)

// Stats are the counters shown above the admin listing table.
type Stats struct {
	Total      int                     `json:"total"`
	ByLocation map[domain.Location]int `json:"byLocation"`
}

func computeStats(listings []*domain.Listing) Stats {
	s := Stats{Total: len(listings), ByLocation: make(map[domain.Location]int, len(domain.Locations))}
	for _, loc := range domain.Locations {
		s.ByLocation[loc] = 0
	}
	for _, l := range listings {
		s.ByLocation[l.Location]++
	}
	return s
}

// Dashboard is one admin's view of the listings. It keeps the last
// successful fetch so a failed refresh leaves the table and stats intact.
type Dashboard struct {
	repo     Listings
	notices  Notifier
	maxBytes int64
	logger   *slog.Logger

	mu       sync.RWMutex
	listings []*domain.Listing
	stats    Stats
	loaded   bool
}

func NewDashboard(repo Listings, notices Notifier, maxBytes int64, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		repo:     repo,
		notices:  notices,
		maxBytes: maxBytes,
		logger:   logger,
		stats:    computeStats(nil),
	}
}

// Refresh reloads every listing.
func (d *Dashboard) Refresh(ctx context.Context) error {
	listings, err := d.repo.ListAll(ctx)
	if err != nil {
		d.logger.Error("failed to load listings", "error", err)
		d.notices.Notify(Failure(msgLoadFailed))
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.listings = listings
	d.stats = computeStats(listings)
	d.loaded = true
	return nil
}

// Loaded reports whether any refresh has succeeded yet.
func (d *Dashboard) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

func (d *Dashboard) Listings() []*domain.Listing {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.listings)
}

func (d *Dashboard) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := Stats{Total: d.stats.Total, ByLocation: make(map[domain.Location]int, len(d.stats.ByLocation))}
	for k, v := range d.stats.ByLocation {
		s.ByLocation[k] = v
	}
	return s
}

// Search matches q case-insensitively as a substring of the title, location
// or property type. An empty query returns every listing.
func (d *Dashboard) Search(q string) []*domain.Listing {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return slices.Clone(d.listings)
	}
	out := []*domain.Listing{}
	for _, l := range d.listings {
		if strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(string(l.Location)), q) ||
			strings.Contains(strings.ToLower(string(l.PropertyType)), q) {
			out = append(out, l)
		}
	}
	return out
}

// Find looks id up in the last fetched listings.
func (d *Dashboard) Find(id string) (*domain.Listing, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.listings {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// Delete removes the listing and its images, then refreshes.
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if err := d.repo.Delete(ctx, id); err != nil {
		d.logger.Error("failed to delete listing", "listing_id", id, "error", err)
		d.notices.Notify(Failure(msgDeleteFailed))
		return err
	}
	d.notices.Notify(Success(msgDeleted))
	// A failed refresh has already raised its own notice.
	_ = d.Refresh(ctx)
	return nil
}

// NewEditor returns a closed editor that refreshes this dashboard after
// every successful save.
func (d *Dashboard) NewEditor() *Editor {
	return NewEditor(d.repo, d.notices, d.Refresh, d.maxBytes, d.logger)
}
