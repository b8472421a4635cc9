package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/go-shop-saga/pkg/config"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(config.AuthSettings{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	return issuer
}

func TestIssueAndVerify(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueToken("alice@example.com")
	require.NoError(t, err)

	subject, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewIssuer(config.AuthSettings{JWTSecret: "another-secret"})
	require.NoError(t, err)

	token, err := issuer.IssueToken("alice@example.com")
	require.NoError(t, err)

	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueToken("alice@example.com")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	issuer := newTestIssuer(t)
	_, err := issuer.VerifyToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer(config.AuthSettings{})
	assert.Error(t, err)
}
