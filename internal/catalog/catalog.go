// Package catalog is the anonymous read path: the newest listings as cards,
// client-side filters and a per-listing detail view.
package catalog

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/vbonduro/propertydesk/internal/domain"
)

const (
	FilterAll        = "all"
	PlaceholderImage = "images/placeholder.jpg"
	NoPricing        = "Contact for pricing"
	EmptyCatalog     = "No properties available"
	EmptyFilter      = "No properties found for this filter"
)

type Source interface {
	Recent(ctx context.Context, n int) ([]*domain.Listing, error)
	Get(ctx context.Context, id string) (*domain.Listing, error)
}

// Cache is an optional read-through cache for Recent. Get reports the
// generation it looked in; Set stores under that generation, so listings
// fetched before an invalidation are never served after it.
type Cache interface {
	Get(ctx context.Context, n int) (listings []*domain.Listing, gen int64, ok bool, err error)
	Set(ctx context.Context, n int, gen int64, listings []*domain.Listing) error
}

type Catalog struct {
	source   Source
	cache    Cache
	limit    int
	whatsapp string
	logger   *slog.Logger
}

// New builds a catalog showing the limit newest listings. cache may be nil.
func New(source Source, cache Cache, limit int, whatsappNumber string, logger *slog.Logger) *Catalog {
	return &Catalog{source: source, cache: cache, limit: limit, whatsapp: whatsappNumber, logger: logger}
}

// Load fetches the newest listings. When the source is unreachable the view
// is empty and unavailable; no error is returned.
func (c *Catalog) Load(ctx context.Context) *View {
	var (
		gen       int64
		cacheable bool
	)
	if c.cache != nil {
		listings, g, ok, err := c.cache.Get(ctx, c.limit)
		if err != nil {
			c.logger.Warn("catalog cache read failed", "error", err)
		}
		if ok {
			return &View{Listings: listings, Available: true, whatsapp: c.whatsapp}
		}
		gen, cacheable = g, err == nil
	}

	listings, err := c.source.Recent(ctx, c.limit)
	if err != nil {
		c.logger.Error("failed to load catalog", "error", err)
		return &View{Listings: []*domain.Listing{}, whatsapp: c.whatsapp}
	}

	if cacheable {
		if err := c.cache.Set(ctx, c.limit, gen, listings); err != nil {
			c.logger.Warn("catalog cache write failed", "error", err)
		}
	}
	return &View{Listings: listings, Available: true, whatsapp: c.whatsapp}
}

// Detail looks id up in the loaded view first and falls back to the source
// for listings older than the newest N.
func (c *Catalog) Detail(ctx context.Context, v *View, id string) (*Detail, error) {
	if d, ok := v.Detail(id); ok {
		return d, nil
	}
	l, err := c.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return newDetail(l, c.whatsapp), nil
}

// View is one fetched set of listings. Filtering never re-queries.
type View struct {
	Listings  []*domain.Listing
	Available bool
	whatsapp  string
}

// Filter returns the full set for "all" (or empty), otherwise the listings
// whose location or property type equals value, ignoring case.
func (v *View) Filter(value string) []*domain.Listing {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, FilterAll) {
		return v.Listings
	}
	out := []*domain.Listing{}
	for _, l := range v.Listings {
		if strings.EqualFold(string(l.Location), value) || strings.EqualFold(string(l.PropertyType), value) {
			out = append(out, l)
		}
	}
	return out
}

// Page is the card grid for one filter value.
type Page struct {
	Filter string
	Cards  []Card
	// Empty is the message shown instead of cards, or "".
	Empty string
}

func (v *View) Page(filter string) Page {
	if filter == "" {
		filter = FilterAll
	}
	p := Page{Filter: filter, Cards: []Card{}}
	if len(v.Listings) == 0 {
		p.Empty = EmptyCatalog
		return p
	}
	for _, l := range v.Filter(filter) {
		p.Cards = append(p.Cards, NewCard(l))
	}
	if len(p.Cards) == 0 {
		p.Empty = EmptyFilter
	}
	return p
}

func (v *View) Detail(id string) (*Detail, bool) {
	for _, l := range v.Listings {
		if l.ID == id {
			return newDetail(l, v.whatsapp), true
		}
	}
	return nil, false
}

type Card struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Cover    string              `json:"cover"`
	Location string              `json:"location"`
	Type     string              `json:"propertyType"`
	BHK      string              `json:"bhk,omitempty"`
	Price    string              `json:"price"`
	Options  []domain.UnitOption `json:"bhkOptions"`
	// GalleryCount is the image count when there is more than one image.
	GalleryCount int    `json:"galleryCount,omitempty"`
	PricingNote  string `json:"pricingNote,omitempty"`
}

func NewCard(l *domain.Listing) Card {
	c := Card{
		ID:       l.ID,
		Title:    l.Title,
		Cover:    l.Cover(),
		Location: string(l.Location),
		Type:     string(l.PropertyType),
		BHK:      l.BHKSummary,
		Price:    l.Price,
		Options:  l.UnitOptions,
	}
	if c.Cover == "" {
		c.Cover = PlaceholderImage
	}
	if len(l.Images) > 1 {
		c.GalleryCount = len(l.Images)
	}
	if len(l.UnitOptions) == 0 {
		c.PricingNote = NoPricing
	}
	if c.Options == nil {
		c.Options = []domain.UnitOption{}
	}
	return c
}

type Detail struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Location    string              `json:"location"`
	Type        string              `json:"propertyType"`
	BHK         string              `json:"bhk,omitempty"`
	Price       string              `json:"price"`
	Area        string              `json:"area"`
	Description string              `json:"description,omitempty"`
	Images      []string            `json:"images"`
	Primary     int                 `json:"primary"`
	Options     []domain.UnitOption `json:"bhkOptions"`
	WhatsAppURL string              `json:"whatsappUrl"`
}

func newDetail(l *domain.Listing, whatsapp string) *Detail {
	images := l.Images
	if len(images) == 0 {
		images = []string{PlaceholderImage}
	}
	opts := l.UnitOptions
	if opts == nil {
		opts = []domain.UnitOption{}
	}
	return &Detail{
		ID:          l.ID,
		Title:       l.Title,
		Location:    string(l.Location),
		Type:        string(l.PropertyType),
		BHK:         l.BHKSummary,
		Price:       l.Price,
		Area:        l.Area,
		Description: l.Description,
		Images:      images,
		Options:     opts,
		WhatsAppURL: WhatsAppLink(whatsapp, l.Title),
	}
}

// PrimaryImage is the image shown large in the gallery.
func (d *Detail) PrimaryImage() string {
	return d.Images[d.Primary]
}

// Select makes image i the primary image. Out-of-range indexes are ignored
// and report false.
func (d *Detail) Select(i int) bool {
	if i < 0 || i >= len(d.Images) {
		return false
	}
	d.Primary = i
	return true
}

// Thumbnails reports whether the gallery shows a thumbnail strip.
func (d *Detail) Thumbnails() bool {
	return len(d.Images) > 1
}

func WhatsAppLink(number, title string) string {
	return "https://wa.me/" + number + "?text=" + url.QueryEscape("Hi, I'm interested in: "+title)
}
