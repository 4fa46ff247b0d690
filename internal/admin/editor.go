package admin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/vbonduro/propertydesk/internal/domain"
)

// DefaultMaxImageBytes is the largest image the editor will stage.
const DefaultMaxImageBytes = 5 << 20

type Mode int

const (
	Closed Mode = iota
	Adding
	Editing
)

func (m Mode) String() string {
	switch m {
	case Adding:
		return "adding"
	case Editing:
		return "editing"
	default:
		return "closed"
	}
}

// Fields are the free-text inputs of the listing form.
type Fields struct {
	Title        string
	Location     string
	PropertyType string
	Price        string
	Area         string
	Description  string
}

// UnitField is the checkbox and price input for one unit type. Price is only
// editable while Checked.
type UnitField struct {
	Type    domain.UnitType
	Checked bool
	Price   string
}

// Listings is the part of the listing repository the admin UI drives.
type Listings interface {
	ListAll(ctx context.Context) ([]*domain.Listing, error)
	Create(ctx context.Context, d domain.Draft) (string, error)
	Update(ctx context.Context, id string, d domain.Draft) error
	Delete(ctx context.Context, id string) error
}

// Editor is the create/update form. It holds no rendering state and is safe
// for concurrent use.
type Editor struct {
	repo     Listings
	notices  Notifier
	onSaved  func(ctx context.Context) error
	maxBytes int64
	logger   *slog.Logger

	mu         sync.Mutex
	mode       Mode
	listingID  string
	fields     Fields
	units      []UnitField
	kept       []string
	staged     []domain.Upload
	submitting bool
}

// NewEditor returns a closed editor. onSaved runs after every successful
// submit and may be nil.
func NewEditor(repo Listings, notices Notifier, onSaved func(ctx context.Context) error, maxBytes int64, logger *slog.Logger) *Editor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	e := &Editor{
		repo:     repo,
		notices:  notices,
		onSaved:  onSaved,
		maxBytes: maxBytes,
		logger:   logger,
	}
	e.reset()
	return e
}

// reset clears all form state. Callers hold mu, except NewEditor.
func (e *Editor) reset() {
	e.mode = Closed
	e.listingID = ""
	e.fields = Fields{}
	e.units = make([]UnitField, len(domain.UnitTypes))
	for i, t := range domain.UnitTypes {
		e.units[i] = UnitField{Type: t}
	}
	e.kept = nil
	e.staged = nil
}

func (e *Editor) OpenAdd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
	e.mode = Adding
}

// OpenEdit prefills the form from l. Its images become the kept list.
func (e *Editor) OpenEdit(l *domain.Listing) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
	e.mode = Editing
	e.listingID = l.ID
	e.fields = Fields{
		Title:        l.Title,
		Location:     string(l.Location),
		PropertyType: string(l.PropertyType),
		Price:        l.Price,
		Area:         l.Area,
		Description:  l.Description,
	}
	for _, o := range l.UnitOptions {
		if i := unitIndex(o.Type); i >= 0 {
			e.units[i].Checked = true
			e.units[i].Price = o.Price
		}
	}
	e.kept = slices.Clone(l.Images)
}

// Close discards the form, including kept and staged images.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

// MaxBytes is the largest file Stage accepts.
func (e *Editor) MaxBytes() int64 { return e.maxBytes }

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Editor) ListingID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listingID
}

func (e *Editor) Fields() Fields {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fields
}

func (e *Editor) SetFields(f Fields) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields = f
}

func (e *Editor) Units() []UnitField {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.units)
}

// SetUnit checks or unchecks a unit type. Unchecking clears its price.
func (e *Editor) SetUnit(t domain.UnitType, checked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := unitIndex(t)
	if i < 0 {
		return domain.Validation("admin.SetUnit", fmt.Sprintf("unknown unit type %q", t))
	}
	e.units[i].Checked = checked
	if !checked {
		e.units[i].Price = ""
	}
	return nil
}

func (e *Editor) SetUnitPrice(t domain.UnitType, price string) error {
	const op = "admin.SetUnitPrice"
	e.mu.Lock()
	defer e.mu.Unlock()
	i := unitIndex(t)
	if i < 0 {
		return domain.Validation(op, fmt.Sprintf("unknown unit type %q", t))
	}
	if !e.units[i].Checked {
		return domain.Validation(op, fmt.Sprintf("%s price is disabled until %s is selected", t, t))
	}
	e.units[i].Price = price
	return nil
}

// Stage validates each file and appends the valid ones to the staged list.
// Every rejected file produces one error notice. It returns how many files
// were staged.
func (e *Editor) Stage(files ...domain.Upload) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	staged := 0
	for _, f := range files {
		mime, ok := allowedImageMIME(f.Data)
		if !ok {
			e.reject(f.Filename, msgInvalidType)
			continue
		}
		if int64(len(f.Data)) > e.maxBytes {
			e.reject(f.Filename, fmt.Sprintf(msgTooLarge, e.maxBytes>>20))
			continue
		}
		f.ContentType = mime
		e.staged = append(e.staged, f)
		staged++
	}
	return staged
}

func (e *Editor) reject(filename, msg string) {
	e.logger.Info("image rejected", "filename", filename, "reason", msg)
	e.notices.Notify(Failure(msg))
}

// RemoveKept drops the kept image at position i.
func (e *Editor) RemoveKept(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.kept) {
		return domain.Validation("admin.RemoveKept", fmt.Sprintf("no kept image at position %d", i))
	}
	e.kept = slices.Delete(e.kept, i, i+1)
	return nil
}

// RemoveStaged drops the staged file at position i.
func (e *Editor) RemoveStaged(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.staged) {
		return domain.Validation("admin.RemoveStaged", fmt.Sprintf("no staged image at position %d", i))
	}
	e.staged = slices.Delete(e.staged, i, i+1)
	return nil
}

func (e *Editor) Kept() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.kept)
}

func (e *Editor) Staged() []domain.Upload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.staged)
}

// Preview is one entry of the image strip shown in the form.
type Preview struct {
	URL      string
	Filename string
	Staged   bool
}

// Images returns kept images followed by staged files, the order they will
// be stored in.
func (e *Editor) Images() []Preview {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Preview, 0, len(e.kept)+len(e.staged))
	for _, u := range e.kept {
		out = append(out, Preview{URL: u})
	}
	for _, f := range e.staged {
		out = append(out, Preview{Filename: f.Filename, Staged: true})
	}
	return out
}

// Submit saves the form through the repository. On success the editor
// closes and onSaved runs; on failure the form is left as it was.
func (e *Editor) Submit(ctx context.Context) error {
	const op = "admin.Submit"

	e.mu.Lock()
	if e.mode == Closed {
		e.mu.Unlock()
		return domain.Validation(op, "editor is closed")
	}
	if e.submitting {
		e.mu.Unlock()
		return domain.Validation(op, msgSaveInFlight)
	}
	draft, err := e.draft()
	if err != nil {
		e.mu.Unlock()
		e.notices.Notify(Failure(domain.Message(err)))
		return err
	}
	mode, id := e.mode, e.listingID
	e.submitting = true
	e.mu.Unlock()

	if mode == Adding {
		id, err = e.repo.Create(ctx, draft)
	} else {
		err = e.repo.Update(ctx, id, draft)
	}

	e.mu.Lock()
	e.submitting = false
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("failed to save listing", "mode", mode, "listing_id", id, "error", err)
		e.notices.Notify(Failure(msgSaveFailed))
		return err
	}
	e.reset()
	e.mu.Unlock()

	if mode == Adding {
		e.notices.Notify(Success(msgAdded))
	} else {
		e.notices.Notify(Success(msgUpdated))
	}
	e.logger.Info("listing saved", "mode", mode, "listing_id", id)

	if e.onSaved != nil {
		if err := e.onSaved(ctx); err != nil {
			e.logger.Warn("refresh after save failed", "error", err)
		}
	}
	return nil
}

// draft validates the form and builds the repository input. Callers hold mu.
func (e *Editor) draft() (domain.Draft, error) {
	const op = "admin.Submit"
	f := e.fields
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Price) == "" ||
		strings.TrimSpace(f.Location) == "" || strings.TrimSpace(f.PropertyType) == "" {
		return domain.Draft{}, domain.Validation(op, msgRequired)
	}
	loc, ok := domain.ParseLocation(f.Location)
	if !ok {
		return domain.Draft{}, domain.Validation(op, fmt.Sprintf("Unknown location %q", f.Location))
	}
	pt, ok := domain.ParsePropertyType(f.PropertyType)
	if !ok {
		return domain.Draft{}, domain.Validation(op, fmt.Sprintf("Unknown property type %q", f.PropertyType))
	}

	var opts []domain.UnitOption
	for _, u := range e.units {
		if u.Checked {
			opts = append(opts, domain.UnitOption{Type: u.Type, Price: strings.TrimSpace(u.Price)})
		}
	}

	return domain.Draft{
		Title:        strings.TrimSpace(f.Title),
		Location:     loc,
		PropertyType: pt,
		Price:        strings.TrimSpace(f.Price),
		Area:         strings.TrimSpace(f.Area),
		Description:  strings.TrimSpace(f.Description),
		UnitOptions:  opts,
		KeptImages:   slices.Clone(e.kept),
		NewImages:    slices.Clone(e.staged),
	}, nil
}

func unitIndex(t domain.UnitType) int {
	return slices.Index(domain.UnitTypes, t)
}
