package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propertydesk/internal/domain"
)

var testAdmin = &domain.AdminUser{ID: "admin-1", Email: "owner@example.com"}

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	token, id, err := issuer.Issue(testAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, id.SessionID)

	parsed, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", parsed.AdminID)
	assert.Equal(t, "owner@example.com", parsed.Email)
	assert.Equal(t, id.SessionID, parsed.SessionID)
	assert.True(t, id.ExpiresAt.Equal(parsed.ExpiresAt))
}

func TestSessionIDsAreUnique(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	_, a, err := issuer.Issue(testAdmin)
	require.NoError(t, err)
	_, b, err := issuer.Issue(testAdmin)
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("secret", time.Hour).Issue(testAdmin)
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := issuer.Issue(testAdmin)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{AdminID: "x", RegisteredClaims: jwt.RegisteredClaims{
		ID:        "s",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.True(t, CheckPassword("hunter22", hash))
	assert.False(t, CheckPassword("hunter23", hash))
}
