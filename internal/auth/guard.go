package auth

import (
	"context"
	"log/slog"
)

// Handler reacts to the guard's decisions. SignedOut means the admin view
// must not load anything and should go to the login page.
type Handler interface {
	SignedIn(ctx context.Context, id *Identity)
	SignedOut(ctx context.Context)
}

type Guard struct {
	logger *slog.Logger
}

func NewGuard(logger *slog.Logger) *Guard {
	return &Guard{logger: logger}
}

// Watch consumes states until ctx is done or the stream closes. Every state
// is acted on, so a sign-out that happens after the page loaded still
// reaches the handler.
func (g *Guard) Watch(ctx context.Context, states <-chan *Identity, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-states:
			if !ok {
				return
			}
			if id == nil {
				g.logger.Debug("session signed out")
				h.SignedOut(ctx)
				continue
			}
			g.logger.Debug("session signed in", "admin_id", id.AdminID)
			h.SignedIn(ctx, id)
		}
	}
}
