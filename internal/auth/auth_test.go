package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/smilecoach/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewService(db, "test-secret", time.Hour)
	require.NoError(t, err)
	return s
}

func TestSignupLoginValidate(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	signed, err := s.Signup(ctx, "ana@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, signed.Token)

	id, err := s.Validate(signed.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, id.UserID)
	assert.True(t, id.SignedIn())

	logged, err := s.Login(ctx, "ANA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, logged.UserID)

	id, err = s.Validate("Bearer " + logged.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, id.UserID)
}

func TestSignup_Rejects(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Signup(ctx, "not-an-email", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidSignup)

	_, err = s.Signup(ctx, "ana@example.com", "short")
	assert.ErrorIs(t, err, ErrInvalidSignup)

	_, err = s.Signup(ctx, "ana@example.com", "correct-horse")
	require.NoError(t, err)
	_, err = s.Signup(ctx, "ana@example.com", "another-pass")
	assert.ErrorIs(t, err, store.ErrEmailTaken)
}

func TestLogin_Rejects(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)
	_, err := s.Signup(ctx, "ana@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = s.Login(ctx, "ana@example.com", "wrong-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "ben@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidate_Rejects(t *testing.T) {
	s := newTestService(t)
	u := &store.User{ID: "user-1", Email: "ana@example.com"}

	tok, err := s.Issue(u)
	require.NoError(t, err)

	other, err := NewService(nil, "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.Validate(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Validate(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Validate(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")

	_, err = s.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(nil, "", time.Hour)
	assert.Error(t, err)
}
