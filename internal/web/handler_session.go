package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/propertydesk/internal/admin"
	"github.com/vbonduro/propertydesk/internal/auth"
)

const sessionCookie = "propertydesk_session"

type ctxKey int

const identityKey ctxKey = iota

func identityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// session resolves the caller's identity from its token.
func (s *Server) session(r *http.Request) (*auth.Identity, bool) {
	token := sessionToken(r)
	if token == "" {
		return nil, false
	}
	id, err := s.auth.Verify(r.Context(), token)
	if err != nil {
		s.logger.Debug("session rejected", "error", err)
		return nil, false
	}
	return id, true
}

// requireSession lets signed-in admins through. Pages redirect to the login
// page; API calls get 401.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.session(r)
		if !ok {
			if strings.HasPrefix(r.URL.Path, "/admin/api/") {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not signed in", Redirect: loginPage}, s.logger)
				return
			}
			http.Redirect(w, r, loginPage, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Admin    *auth.Identity `json:"admin"`
	Token    string         `json:"token,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)

	var req signInRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: auth.MissingFields.Message()}, s.logger)
			return
		}
	} else {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	token, id, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		kind := auth.KindOf(err)
		status := http.StatusUnauthorized
		switch kind {
		case auth.MissingFields, auth.InvalidEmail:
			status = http.StatusBadRequest
		case auth.TooManyRequests:
			status = http.StatusTooManyRequests
		case auth.UserDisabled:
			status = http.StatusForbidden
		case auth.Unknown:
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorBody{Error: kind.Message()}, s.logger)
		return
	}

	s.setSessionCookie(w, token, id.ExpiresAt)
	writeJSON(w, http.StatusOK, sessionResponse{Admin: id, Token: token, Redirect: dashboardPage}, s.logger)
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{Admin: identityFrom(r.Context())}, s.logger)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if err := s.auth.SignOut(context.WithoutCancel(r.Context()), id); err != nil {
		s.logger.Error("sign-out failed", "admin_id", id.AdminID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:   admin.MsgSignOutFailed,
			Notices: []admin.Notice{admin.Failure(admin.MsgSignOutFailed)},
		}, s.logger)
		return
	}
	s.workspaces.Drop(id.SessionID)
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, sessionResponse{Redirect: loginPage}, s.logger)
}

// sessionStream writes the guard's decisions as server-sent events.
type sessionStream struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	workspace *admin.Workspace
	stop      context.CancelFunc
	server    *Server

	mu sync.Mutex
}

type signedInEvent struct {
	Admin   *auth.Identity `json:"admin"`
	Stats   admin.Stats    `json:"stats"`
	Notices []admin.Notice `json:"notices"`
}

func (st *sessionStream) SignedIn(ctx context.Context, id *auth.Identity) {
	// A failed refresh leaves its notice in the workspace.
	_ = st.workspace.Dashboard.Refresh(ctx)
	st.send("signed-in", signedInEvent{
		Admin:   id,
		Stats:   st.workspace.Dashboard.Stats(),
		Notices: st.workspace.Notices.Drain(),
	})
}

func (st *sessionStream) SignedOut(context.Context) {
	st.send("signed-out", map[string]string{"redirect": loginPage})
	st.stop()
}

func (st *sessionStream) send(event string, v any) {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		st.server.logger.Error("failed to encode session event", "event", event, "error", err)
		return
	}
	if _, err := fmt.Fprintf(st.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		st.stop()
		return
	}
	if err := st.rc.Flush(); err != nil {
		st.server.logger.Debug("flush session event failed", "error", err)
	}
}

// handleSessionEvents streams "signed-in" once the session is confirmed and
// "signed-out" as soon as it ends, including sign-outs from another tab.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Debug("could not clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx, stop := context.WithCancel(r.Context())
	defer stop()
	if !id.ExpiresAt.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, id.ExpiresAt)
		defer cancel()
	}

	states, unsubscribe := s.auth.Broker().Subscribe(id.SessionID, id)
	defer unsubscribe()

	stream := &sessionStream{
		w:         w,
		rc:        rc,
		workspace: s.workspaces.Get(id.SessionID),
		stop:      stop,
		server:    s,
	}
	s.guard.Watch(ctx, states, stream)

	// An expired session ends the same way as a sign-out.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		stream.SignedOut(ctx)
	}
}
