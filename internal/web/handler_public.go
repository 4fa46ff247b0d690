package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/propertydesk/internal/catalog"
	"github.com/vbonduro/propertydesk/internal/domain"
	"github.com/vbonduro/propertydesk/internal/enquiry"
)

type catalogResponse struct {
	Available bool           `json:"available"`
	Filter    string         `json:"filter"`
	Cards     []catalog.Card `json:"cards"`
	Empty     string         `json:"empty,omitempty"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	view := s.catalog.Load(r.Context())
	page := view.Page(r.URL.Query().Get("filter"))
	writeJSON(w, http.StatusOK, catalogResponse{
		Available: view.Available,
		Filter:    page.Filter,
		Cards:     page.Cards,
		Empty:     page.Empty,
	}, s.logger)
}

func (s *Server) handleCatalogPartial(w http.ResponseWriter, r *http.Request) {
	view := s.catalog.Load(r.Context())
	if !view.Available {
		// Leave whatever static markup the page already has.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	page := view.Page(r.URL.Query().Get("filter"))
	if err := s.renderPartial(w, "partials/property_cards.html", page); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

// loadDetail resolves the listing for the detail overlay. The optional
// image query parameter selects the primary image.
func (s *Server) loadDetail(w http.ResponseWriter, r *http.Request) (*catalog.Detail, bool) {
	id := chi.URLParam(r, "id")
	view := s.catalog.Load(r.Context())
	detail, err := s.catalog.Detail(r.Context(), view, id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			http.NotFound(w, r)
			return nil, false
		}
		s.logger.Error("failed to load listing detail", "listing_id", id, "error", err)
		http.Error(w, "failed to load property", http.StatusBadGateway)
		return nil, false
	}
	if v := r.URL.Query().Get("image"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || !detail.Select(i) {
			http.Error(w, "invalid image index", http.StatusBadRequest)
			return nil, false
		}
	}
	return detail, true
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, ok := s.loadDetail(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, detail, s.logger)
}

func (s *Server) handleDetailPartial(w http.ResponseWriter, r *http.Request) {
	detail, ok := s.loadDetail(w, r)
	if !ok {
		return
	}
	if err := s.renderPartial(w, "partials/property_detail.html", detail); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

type enquiryRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Interest string `json:"interest"`
	Message  string `json:"message"`
}

const maxEnquiryBytes = 64 << 10

func (s *Server) handleEnquiry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEnquiryBytes)

	var req enquiryRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"}, s.logger)
			return
		}
	} else {
		req = enquiryRequest{
			Name:     r.FormValue("name"),
			Phone:    r.FormValue("phone"),
			Email:    r.FormValue("email"),
			Interest: r.FormValue("interest"),
			Message:  r.FormValue("message"),
		}
	}

	e, err := s.enquiries.Submit(r.Context(), domain.Enquiry{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Interest: req.Interest,
		Message:  req.Message,
	})
	if err != nil {
		msg := enquiry.MsgFailed
		if domain.KindOf(err) == domain.KindValidation {
			msg = domain.Message(err)
		} else {
			s.logger.Error("failed to store enquiry", "error", err)
		}
		writeJSON(w, statusFor(err), errorBody{Error: msg}, s.logger)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": e.ID, "message": enquiry.MsgThanks}, s.logger)
}
