package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/vbonduro/propertydesk/internal/db"
	"github.com/vbonduro/propertydesk/internal/domain"
	"github.com/vbonduro/propertydesk/internal/store"
)

type failingRevoker struct{}

func (failingRevoker) Revoke(context.Context, string, time.Time) error {
	return errors.New("revocation store offline")
}

func (failingRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func newTestAuthenticator(t *testing.T) (*Authenticator, *store.AdminStore) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	admins := store.NewAdminStore(d)
	a := NewAuthenticator(admins, NewTokenIssuer("secret", time.Hour), NewMemoryRevoker(), NewBroker(), nil, slog.Default())
	require.NoError(t, a.EnsureAdmin(context.Background(), "owner@example.com", "hunter22"))
	return a, admins
}

func TestSignInSuccess(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	token, id, err := a.SignIn(ctx, " owner@example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", id.Email)

	verified, err := a.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id.SessionID, verified.SessionID)
}

func TestSignInFailures(t *testing.T) {
	a, admins := newTestAuthenticator(t)
	ctx := context.Background()

	disabled, err := admins.Create(ctx, "old@example.com", "x")
	require.NoError(t, err)
	require.NoError(t, admins.SetDisabled(ctx, disabled.ID, true))

	tests := []struct {
		name     string
		email    string
		password string
		want     ErrorKind
	}{
		{"missing email", "", "pw", MissingFields},
		{"missing password", "owner@example.com", "", MissingFields},
		{"malformed email", "not-an-email", "pw", InvalidEmail},
		{"unknown user", "nobody@example.com", "pw", UserNotFound},
		{"disabled", "old@example.com", "pw", UserDisabled},
		{"wrong password", "owner@example.com", "nope", WrongPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := a.SignIn(ctx, tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, domain.KindAuth, domain.KindOf(err))
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestSignInTooManyFailures(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	for range failureBurst {
		_, _, err := a.SignIn(ctx, "owner@example.com", "wrong")
		require.Equal(t, WrongPassword, KindOf(err))
	}

	_, _, err := a.SignIn(ctx, "OWNER@example.com", "hunter22")
	assert.Equal(t, TooManyRequests, KindOf(err))
}

func TestFailureLimitersAreBounded(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	small, err := lru.New[string, *rate.Limiter](8)
	require.NoError(t, err)
	a.failures = small
	ctx := context.Background()

	for i := range 50 {
		_, _, err := a.SignIn(ctx, fmt.Sprintf("stranger%d@example.com", i), "pw")
		require.Equal(t, UserNotFound, KindOf(err))
	}

	assert.Equal(t, 8, a.failures.Len())
	assert.True(t, a.failures.Contains("stranger49@example.com"))
	assert.False(t, a.failures.Contains("stranger0@example.com"))
}

func TestSignInSuccessForgetsFailures(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	_, _, err := a.SignIn(ctx, "owner@example.com", "wrong")
	require.Equal(t, WrongPassword, KindOf(err))
	require.True(t, a.failures.Contains("owner@example.com"))

	_, _, err = a.SignIn(ctx, "Owner@example.com", "hunter22")
	require.NoError(t, err)
	assert.False(t, a.failures.Contains("owner@example.com"))
}

func TestPruneLimitersDropsRecovered(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	recovered := rate.NewLimiter(rate.Every(failureRefill), failureBurst)
	drained := rate.NewLimiter(rate.Every(failureRefill), failureBurst)
	for range failureBurst {
		drained.Allow()
	}
	a.failures.Add("calm@example.com", recovered)
	a.failures.Add("noisy@example.com", drained)

	assert.Equal(t, 1, a.PruneLimiters())
	assert.False(t, a.failures.Contains("calm@example.com"))
	assert.True(t, a.failures.Contains("noisy@example.com"))
}

func TestSignOutRevokesAndNotifies(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	ctx := context.Background()

	token, id, err := a.SignIn(ctx, "owner@example.com", "hunter22")
	require.NoError(t, err)
	states, cancel := a.Broker().Subscribe(id.SessionID, id)
	t.Cleanup(cancel)
	<-states

	require.NoError(t, a.SignOut(ctx, id))

	assert.Nil(t, <-states)
	_, err = a.Verify(ctx, token)
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))
}

func TestSignOutFailureLeavesSessionValid(t *testing.T) {
	a, _ := newTestAuthenticator(t)
	a.revoker = failingRevoker{}
	ctx := context.Background()

	token, id, err := a.SignIn(ctx, "owner@example.com", "hunter22")
	require.NoError(t, err)

	err = a.SignOut(ctx, id)
	require.Error(t, err)
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))

	_, err = a.Verify(ctx, token)
	assert.NoError(t, err)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	a, admins := newTestAuthenticator(t)
	ctx := context.Background()

	require.NoError(t, a.EnsureAdmin(ctx, "owner@example.com", "different"))
	admin, err := admins.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.True(t, CheckPassword("hunter22", admin.PasswordHash))

	require.NoError(t, a.EnsureAdmin(ctx, "", ""))
}

func TestMemoryRevokerExpires(t *testing.T) {
	r := NewMemoryRevoker()
	ctx := context.Background()
	now := time.Now()
	r.now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "s1", now.Add(time.Minute)))
	revoked, err := r.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
