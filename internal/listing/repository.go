package listing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/vbonduro/propertydesk/internal/blobstore"
	"github.com/vbonduro/propertydesk/internal/domain"
	"github.com/vbonduro/propertydesk/internal/metrics"
)

const (
	reasonUploadAborted = "upload batch aborted"
	reasonWriteFailed   = "listing write failed"
	reasonRemoved       = "removed from listing"
	reasonDeleteFailed  = "blob delete failed"
)

// Repository owns listing documents and the image blobs they reference.
type Repository struct {
	docs     DocumentStore
	blobs    blobstore.BlobStore
	orphans  OrphanStore
	namer    *blobstore.Namer
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewRepository(
	docs DocumentStore,
	blobs blobstore.BlobStore,
	orphans OrphanStore,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Repository {
	return &Repository{
		docs:     docs,
		blobs:    blobs,
		orphans:  orphans,
		namer:    blobstore.NewNamer(),
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// ListAll returns every listing, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]*domain.Listing, error) {
	listings, err := r.docs.List(ctx, 0)
	if err != nil {
		return nil, domain.NewError(domain.KindFetch, "listing.ListAll", err)
	}
	return listings, nil
}

// Recent returns the n newest listings.
func (r *Repository) Recent(ctx context.Context, n int) ([]*domain.Listing, error) {
	listings, err := r.docs.List(ctx, n)
	if err != nil {
		return nil, domain.NewError(domain.KindFetch, "listing.Recent", err)
	}
	return listings, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Listing, error) {
	const op = "listing.Get"
	l, err := r.docs.Get(ctx, id)
	if err != nil {
		return nil, domain.NewError(domain.KindFetch, op, err)
	}
	if l == nil {
		return nil, domain.NewError(domain.KindNotFound, op, domain.ErrListingNotFound)
	}
	return l, nil
}

// Create uploads the draft's new images one at a time, then inserts the
// listing and returns its ID.
func (r *Repository) Create(ctx context.Context, d domain.Draft) (string, error) {
	const op = "listing.Create"
	r.logger.Info("create listing started", "title", d.Title, "new_images", len(d.NewImages))

	urls, err := r.upload(ctx, op, d.NewImages)
	if err != nil {
		r.metrics.ListingWrite("create", err)
		return "", err
	}

	now := r.stamp()
	l := fromDraft(d, urls)
	l.CreatedAt = now
	l.UpdatedAt = now

	id, err := r.docs.Insert(ctx, l)
	if err != nil {
		r.recordOrphans(ctx, urls, reasonWriteFailed)
		r.metrics.ListingWrite("create", err)
		return "", domain.NewError(domain.KindWrite, op, err)
	}
	l.ID = id
	r.metrics.ListingWrite("create", nil)
	r.logger.Info("create listing complete", "listing_id", id, "images", len(l.Images))

	r.notify(ctx, Change{Kind: Created, ID: id, Listing: l})
	return id, nil
}

// Update replaces the listing's fields with the draft. CreatedAt is kept and
// UpdatedAt always moves forward.
func (r *Repository) Update(ctx context.Context, id string, d domain.Draft) error {
	const op = "listing.Update"
	r.logger.Info("update listing started", "listing_id", id, "kept_images", len(d.KeptImages), "new_images", len(d.NewImages))

	existing, err := r.docs.Get(ctx, id)
	if err != nil {
		r.metrics.ListingWrite("update", err)
		return domain.NewError(domain.KindFetch, op, err)
	}
	if existing == nil {
		r.metrics.ListingWrite("update", domain.ErrListingNotFound)
		return domain.NewError(domain.KindNotFound, op, domain.ErrListingNotFound)
	}

	urls, err := r.upload(ctx, op, d.NewImages)
	if err != nil {
		r.metrics.ListingWrite("update", err)
		return err
	}

	l := fromDraft(d, urls)
	l.ID = id
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = r.stamp()
	if !l.UpdatedAt.After(existing.UpdatedAt) {
		l.UpdatedAt = existing.UpdatedAt.Add(time.Millisecond)
	}

	if err := r.docs.Replace(ctx, l); err != nil {
		r.recordOrphans(ctx, urls, reasonWriteFailed)
		r.metrics.ListingWrite("update", err)
		if errors.Is(err, domain.ErrListingNotFound) {
			return domain.NewError(domain.KindNotFound, op, err)
		}
		return domain.NewError(domain.KindWrite, op, err)
	}
	r.metrics.ListingWrite("update", nil)

	var dropped []string
	for _, u := range existing.Images {
		if !slices.Contains(l.Images, u) {
			dropped = append(dropped, u)
		}
	}
	r.recordOrphans(ctx, dropped, reasonRemoved)
	r.logger.Info("update listing complete", "listing_id", id, "images", len(l.Images), "dropped_images", len(dropped))

	r.notify(ctx, Change{Kind: Updated, ID: id, Listing: l})
	return nil
}

// Delete removes every image blob of the listing, then the document. Blob
// failures are logged and recorded but never stop the document delete.
func (r *Repository) Delete(ctx context.Context, id string) error {
	const op = "listing.Delete"

	existing, err := r.docs.Get(ctx, id)
	if err != nil {
		r.metrics.ListingWrite("delete", err)
		return domain.NewError(domain.KindFetch, op, err)
	}
	if existing == nil {
		r.metrics.ListingWrite("delete", domain.ErrListingNotFound)
		return domain.NewError(domain.KindNotFound, op, domain.ErrListingNotFound)
	}

	for _, u := range existing.Images {
		if err := r.blobs.Delete(ctx, u); err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				continue
			}
			r.logger.Error("failed to delete image blob", "listing_id", id, "url", u, "error", err)
			r.metrics.BlobDeleteFailed()
			r.recordOrphans(ctx, []string{u}, reasonDeleteFailed)
		}
	}

	if err := r.docs.Delete(ctx, id); err != nil {
		r.metrics.ListingWrite("delete", err)
		if errors.Is(err, domain.ErrListingNotFound) {
			return domain.NewError(domain.KindNotFound, op, err)
		}
		return domain.NewError(domain.KindWrite, op, err)
	}
	r.metrics.ListingWrite("delete", nil)
	r.logger.Info("listing deleted", "listing_id", id, "images", len(existing.Images))

	r.notify(ctx, Change{Kind: Deleted, ID: id})
	return nil
}

// SweepOrphans deletes up to limit recorded orphan blobs and returns how many
// records were cleared. URLs that a listing references again are cleared
// without touching the blob.
func (r *Repository) SweepOrphans(ctx context.Context, limit int) (int, error) {
	const op = "listing.SweepOrphans"

	orphans, err := r.orphans.List(ctx, limit)
	if err != nil {
		return 0, domain.NewError(domain.KindFetch, op, err)
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	listings, err := r.docs.List(ctx, 0)
	if err != nil {
		return 0, domain.NewError(domain.KindFetch, op, err)
	}
	referenced := make(map[string]bool)
	for _, l := range listings {
		for _, u := range l.Images {
			referenced[u] = true
		}
	}

	swept := 0
	for _, o := range orphans {
		if !referenced[o.URL] {
			if err := r.blobs.Delete(ctx, o.URL); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
				r.logger.Warn("failed to sweep orphaned blob", "url", o.URL, "error", err)
				continue
			}
			r.metrics.OrphanSwept()
		}
		if err := r.orphans.Delete(ctx, o.URL); err != nil {
			r.logger.Error("failed to clear orphan record", "url", o.URL, "error", err)
			continue
		}
		swept++
	}
	r.logger.Info("orphan sweep complete", "candidates", len(orphans), "swept", swept)
	return swept, nil
}

// upload stores files sequentially. On failure the blobs already stored by
// this call are recorded as orphans and a KindUpload error is returned.
func (r *Repository) upload(ctx context.Context, op string, files []domain.Upload) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		key := r.namer.Key(f.Filename)
		url, err := r.blobs.Put(ctx, key, f.ContentType, bytes.NewReader(f.Data), int64(len(f.Data)))
		if err != nil {
			r.recordOrphans(ctx, urls, reasonUploadAborted)
			return nil, domain.NewError(domain.KindUpload, op, fmt.Errorf("failed to upload %s: %w", f.Filename, err))
		}
		r.logger.Debug("image uploaded", "key", key, "bytes", len(f.Data))
		urls = append(urls, url)
	}
	return urls, nil
}

func (r *Repository) recordOrphans(ctx context.Context, urls []string, reason string) {
	for _, u := range urls {
		r.logger.Warn("orphaned blob", "url", u, "reason", reason)
		r.metrics.OrphanRecorded()
		if r.orphans == nil {
			continue
		}
		if err := r.orphans.Record(ctx, u, reason); err != nil {
			r.logger.Error("failed to record orphaned blob", "url", u, "error", err)
		}
	}
}

func (r *Repository) notify(ctx context.Context, c Change) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, c); err != nil {
		r.logger.Warn("failed to publish listing change", "kind", c.Kind, "listing_id", c.ID, "error", err)
	}
}

func (r *Repository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func fromDraft(d domain.Draft, uploaded []string) *domain.Listing {
	images := make([]string, 0, len(d.KeptImages)+len(uploaded))
	images = append(images, d.KeptImages...)
	images = append(images, uploaded...)

	opts := NormalizeUnits(d.UnitOptions)
	return &domain.Listing{
		Title:        d.Title,
		Location:     d.Location,
		PropertyType: d.PropertyType,
		Price:        d.Price,
		Area:         d.Area,
		Description:  d.Description,
		BHKSummary:   domain.BHKSummary(opts),
		UnitOptions:  opts,
		Images:       images,
	}
}

// NormalizeUnits orders options 1 BHK, 2 BHK, 3 BHK and drops unknown or
// repeated unit types.
func NormalizeUnits(opts []domain.UnitOption) []domain.UnitOption {
	out := make([]domain.UnitOption, 0, len(opts))
	for _, t := range domain.UnitTypes {
		for _, o := range opts {
			if o.Type == t {
				out = append(out, o)
				break
			}
		}
	}
	return out
}
