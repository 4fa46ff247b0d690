package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/vbonduro/propertydesk/internal/domain"
	"github.com/vbonduro/propertydesk/internal/metrics"
)

// AdminStore is the subset of the admin stores the authenticator requires.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	Create(ctx context.Context, email, passwordHash string) (*domain.AdminUser, error)
}

const (
	failureBurst  = 5
	failureRefill = time.Minute

	// maxTrackedEmails bounds the failure limiters; the least recently used
	// email is forgotten first.
	maxTrackedEmails = 10000
)

type Authenticator struct {
	admins  AdminStore
	issuer  *TokenIssuer
	revoker Revoker
	broker  *Broker
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	failures *lru.Cache[string, *rate.Limiter]
}

func NewAuthenticator(admins AdminStore, issuer *TokenIssuer, revoker Revoker, broker *Broker, m *metrics.Metrics, logger *slog.Logger) *Authenticator {
	// lru.New only fails for a non-positive size.
	failures, _ := lru.New[string, *rate.Limiter](maxTrackedEmails)
	return &Authenticator{
		admins:   admins,
		issuer:   issuer,
		revoker:  revoker,
		broker:   broker,
		metrics:  m,
		logger:   logger,
		failures: failures,
	}
}

func (a *Authenticator) Broker() *Broker { return a.broker }

// SignIn checks the credentials and returns a signed session token. Failures
// are domain KindAuth errors wrapping an *Error with the reason.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (string, *Identity, error) {
	token, id, err := a.signIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		kind := KindOf(err)
		a.metrics.SignIn(kind.String())
		a.logger.Info("admin sign-in failed", "email", email, "reason", kind.String())
		return "", nil, domain.NewError(domain.KindAuth, "auth.SignIn", err)
	}
	a.metrics.SignIn("ok")
	a.logger.Info("admin signed in", "admin_id", id.AdminID)
	return token, id, nil
}

func (a *Authenticator) signIn(ctx context.Context, email, password string) (string, *Identity, error) {
	if email == "" || password == "" {
		return "", nil, &Error{Kind: MissingFields}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", nil, &Error{Kind: InvalidEmail}
	}

	if a.throttled(email) {
		return "", nil, &Error{Kind: TooManyRequests}
	}

	admin, err := a.admins.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, &Error{Kind: Unknown, Err: err}
	}
	if admin == nil {
		a.recordFailure(email)
		return "", nil, &Error{Kind: UserNotFound}
	}
	if admin.Disabled {
		return "", nil, &Error{Kind: UserDisabled}
	}
	if !CheckPassword(password, admin.PasswordHash) {
		a.recordFailure(email)
		return "", nil, &Error{Kind: WrongPassword}
	}
	a.failures.Remove(strings.ToLower(email))

	token, id, err := a.issuer.Issue(admin)
	if err != nil {
		return "", nil, &Error{Kind: Unknown, Err: err}
	}
	return token, id, nil
}

// Verify resolves a session token to its identity. Revoked or invalid
// tokens return a KindAuth error.
func (a *Authenticator) Verify(ctx context.Context, token string) (*Identity, error) {
	const op = "auth.Verify"
	id, err := a.issuer.Parse(token)
	if err != nil {
		return nil, domain.NewError(domain.KindAuth, op, err)
	}
	revoked, err := a.revoker.IsRevoked(ctx, id.SessionID)
	if err != nil {
		return nil, domain.NewError(domain.KindAuth, op, fmt.Errorf("failed to check revocation: %w", err))
	}
	if revoked {
		return nil, domain.NewError(domain.KindAuth, op, errors.New("session signed out"))
	}
	return id, nil
}

// SignOut revokes the session and tells its watchers. If revocation fails
// the session stays valid and the error is returned.
func (a *Authenticator) SignOut(ctx context.Context, id *Identity) error {
	if err := a.revoker.Revoke(ctx, id.SessionID, id.ExpiresAt); err != nil {
		return domain.NewError(domain.KindAuth, "auth.SignOut", err)
	}
	a.broker.Publish(id.SessionID, nil)
	a.logger.Info("admin signed out", "admin_id", id.AdminID)
	return nil
}

// EnsureAdmin creates the admin account if no account has that email yet.
func (a *Authenticator) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := a.admins.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	admin, err := a.admins.Create(ctx, email, hash)
	if err != nil {
		return err
	}
	a.logger.Info("seeded admin account", "admin_id", admin.ID, "email", admin.Email)
	return nil
}

// throttled reports whether email has used up its failed attempts.
func (a *Authenticator) throttled(email string) bool {
	l, ok := a.failures.Get(strings.ToLower(email))
	return ok && l.Tokens() < 1
}

func (a *Authenticator) recordFailure(email string) {
	key := strings.ToLower(email)

	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.failures.Get(key)
	if !ok {
		l = rate.NewLimiter(rate.Every(failureRefill), failureBurst)
		a.failures.Add(key, l)
	}
	l.Allow()
}

// PruneLimiters forgets emails whose failed attempts have fully refilled and
// returns how many were dropped.
func (a *Authenticator) PruneLimiters() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, key := range a.failures.Keys() {
		if l, ok := a.failures.Peek(key); ok && l.Tokens() >= failureBurst {
			a.failures.Remove(key)
			n++
		}
	}
	return n
}
