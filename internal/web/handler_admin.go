package web

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/propertydesk/internal/admin"
	"github.com/vbonduro/propertydesk/internal/domain"
)

const (
	// maxFormBytes caps a whole listing submission including every image.
	maxFormBytes      = 64 << 20
	maxFormMemory     = 16 << 20
	defaultSweepLimit = 100
)

// unitFields maps each unit type to its checkbox and price form fields.
var unitFields = []struct {
	unit  domain.UnitType
	check string
	price string
}{
	{domain.Unit1BHK, "bhk1", "price1bhk"},
	{domain.Unit2BHK, "bhk2", "price2bhk"},
	{domain.Unit3BHK, "bhk3", "price3bhk"},
}

type dashboardResponse struct {
	Available bool              `json:"available"`
	Listings  []*domain.Listing `json:"listings"`
	Stats     admin.Stats       `json:"stats"`
	Notices   []admin.Notice    `json:"notices"`
}

func (s *Server) workspace(r *http.Request) *admin.Workspace {
	return s.workspaces.Get(identityFrom(r.Context()).SessionID)
}

func (s *Server) writeDashboard(w http.ResponseWriter, status int, ws *admin.Workspace, q string, available bool) {
	listings := ws.Dashboard.Search(q)
	if listings == nil {
		listings = []*domain.Listing{}
	}
	writeJSON(w, status, dashboardResponse{
		Available: available,
		Listings:  listings,
		Stats:     ws.Dashboard.Stats(),
		Notices:   ws.Notices.Drain(),
	}, s.logger)
}

func (s *Server) writeFailure(w http.ResponseWriter, ws *admin.Workspace, err error) {
	msg := "request failed"
	if domain.KindOf(err) == domain.KindValidation {
		msg = domain.Message(err)
	}
	writeJSON(w, statusFor(err), errorBody{Error: msg, Notices: ws.Notices.Drain()}, s.logger)
}

// handleAdminList refreshes the dashboard. On a failed fetch the previous
// listings are returned alongside an error notice.
func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	err := ws.Dashboard.Refresh(r.Context())
	s.writeDashboard(w, http.StatusOK, ws, r.URL.Query().Get("q"), err == nil)
}

func (s *Server) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	err := ws.Edit(func(editor *admin.Editor) error {
		editor.OpenAdd()
		if err := s.fillEditor(w, r, editor); err != nil {
			return err
		}
		// The save runs to completion even if the admin navigates away.
		return editor.Submit(context.WithoutCancel(r.Context()))
	})
	if err != nil {
		s.writeFailure(w, ws, err)
		return
	}
	s.writeDashboard(w, http.StatusCreated, ws, "", true)
}

func (s *Server) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	id := chi.URLParam(r, "id")

	l, ok := ws.Dashboard.Find(id)
	if !ok {
		var err error
		l, err = s.listings.Get(r.Context(), id)
		if err != nil {
			s.writeFailure(w, ws, err)
			return
		}
	}

	err := ws.Edit(func(editor *admin.Editor) error {
		editor.OpenEdit(l)
		if err := s.fillEditor(w, r, editor); err != nil {
			return err
		}
		return editor.Submit(context.WithoutCancel(r.Context()))
	})
	if err != nil {
		s.writeFailure(w, ws, err)
		return
	}
	s.writeDashboard(w, http.StatusOK, ws, "", true)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(r)
	if err := ws.Dashboard.Delete(context.WithoutCancel(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, ws, err)
		return
	}
	s.writeDashboard(w, http.StatusOK, ws, "", true)
}

func (s *Server) handleSweepOrphans(w http.ResponseWriter, r *http.Request) {
	limit := defaultSweepLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"}, s.logger)
			return
		}
		limit = n
	}

	swept, err := s.listings.SweepOrphans(r.Context(), limit)
	if err != nil {
		s.logger.Error("orphan sweep failed", "error", err)
		writeJSON(w, statusFor(err), errorBody{Error: "orphan sweep failed"}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"swept": swept}, s.logger)
}

// fillEditor copies the multipart form into an opened editor: fields, unit
// options, which existing images to keep, and new files to stage. Rejected
// files leave notices on the workspace and are skipped.
func (s *Server) fillEditor(w http.ResponseWriter, r *http.Request, e *admin.Editor) error {
	const op = "web.fillEditor"
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return domain.Validation(op, "failed to parse form")
	}

	e.SetFields(admin.Fields{
		Title:        r.FormValue("title"),
		Location:     r.FormValue("location"),
		PropertyType: r.FormValue("propertyType"),
		Price:        r.FormValue("price"),
		Area:         r.FormValue("area"),
		Description:  r.FormValue("description"),
	})

	for _, f := range unitFields {
		checked := r.FormValue(f.check) != ""
		if err := e.SetUnit(f.unit, checked); err != nil {
			return err
		}
		if checked {
			if err := e.SetUnitPrice(f.unit, r.FormValue(f.price)); err != nil {
				return err
			}
		}
	}

	// Only the listed URLs survive; no keepImages field keeps nothing.
	keep := r.MultipartForm.Value["keepImages"]
	kept := e.Kept()
	for i := len(kept) - 1; i >= 0; i-- {
		if !slices.Contains(keep, kept[i]) {
			if err := e.RemoveKept(i); err != nil {
				return err
			}
		}
	}

	uploads, err := s.readUploads(r.MultipartForm.File["images"], e)
	if err != nil {
		return domain.NewError(domain.KindUpload, op, err)
	}
	e.Stage(uploads...)
	return nil
}

// readUploads reads each file, at most one byte past the editor's limit so
// that oversized files are still rejected by size.
func (s *Server) readUploads(files []*multipart.FileHeader, e *admin.Editor) ([]domain.Upload, error) {
	uploads := make([]domain.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, e.MaxBytes()+1))
		closeWithLog(f, "upload file", s.logger)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, domain.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}
