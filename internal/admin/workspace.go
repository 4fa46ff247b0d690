package admin

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/propertydesk/internal/domain"
)

// Workspace is the admin state belonging to one signed-in session.
type Workspace struct {
	Dashboard *Dashboard
	Notices   *NoticeRecorder

	editor   *Editor
	editing  sync.Mutex
	lastSeen time.Time
}

// Edit runs fn with the session's editor. While one edit is running a second
// is refused with an error notice, so a repeated save cannot write twice.
func (ws *Workspace) Edit(fn func(e *Editor) error) error {
	if !ws.editing.TryLock() {
		ws.Notices.Notify(Failure(msgSaveInFlight))
		return domain.Validation("admin.Workspace.Edit", msgSaveInFlight)
	}
	defer ws.editing.Unlock()
	return fn(ws.editor)
}

// Workspaces maps session IDs to their workspace.
type Workspaces struct {
	repo     Listings
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Workspace
}

func NewWorkspaces(repo Listings, maxBytes int64, logger *slog.Logger) *Workspaces {
	return &Workspaces{
		repo:     repo,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Workspace),
	}
}

// Get returns the workspace for sessionID, creating it on first use.
func (w *Workspaces) Get(sessionID string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws, ok := w.sessions[sessionID]
	if !ok {
		notices := &NoticeRecorder{}
		dashboard := NewDashboard(w.repo, notices, w.maxBytes, w.logger.With("session_id", sessionID))
		ws = &Workspace{
			Dashboard: dashboard,
			Notices:   notices,
			editor:    dashboard.NewEditor(),
		}
		w.sessions[sessionID] = ws
	}
	ws.lastSeen = w.now()
	return ws
}

// Drop forgets the workspace of a signed-out session.
func (w *Workspaces) Drop(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, sessionID)
}

func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

// Prune drops workspaces unused for longer than idle and returns how many
// were dropped.
func (w *Workspaces) Prune(idle time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.now().Add(-idle)
	n := 0
	for id, ws := range w.sessions {
		if ws.lastSeen.Before(cutoff) {
			delete(w.sessions, id)
			n++
		}
	}
	return n
}
