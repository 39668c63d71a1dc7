package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator("access-secret", "refresh-secret", "gpsr", "gpsr")
}

func TestGenerateAndValidate(t *testing.T) {
	a := newTestAuthenticator()
	userID := uuid.New()

	access, refresh, err := a.GenerateTokens(userID)
	require.NoError(t, err)

	tok, err := a.ValidateAccessToken(access)
	require.NoError(t, err)
	id, err := SubjectID(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, id)

	tok, err = a.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	id, err = SubjectID(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, id)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	a := newTestAuthenticator()
	access, refresh, err := a.GenerateTokens(uuid.New())
	require.NoError(t, err)

	_, err = a.ValidateAccessToken(refresh)
	assert.Error(t, err)
	_, err = a.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestRejectsBadTokens(t *testing.T) {
	a := newTestAuthenticator()
	userID := uuid.New()

	t.Run("expired", func(t *testing.T) {
		past := newTestAuthenticator()
		past.now = func() time.Time { return time.Now().Add(-AccessTokenTTL - time.Hour) }
		access, _, err := past.GenerateTokens(userID)
		require.NoError(t, err)
		_, err = a.ValidateAccessToken(access)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewJWTAuthenticator("access-secret", "refresh-secret", "someone-else", "gpsr")
		access, _, err := other.GenerateTokens(userID)
		require.NoError(t, err)
		_, err = a.ValidateAccessToken(access)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTAuthenticator("another-secret", "refresh-secret", "gpsr", "gpsr")
		access, _, err := other.GenerateTokens(userID)
		require.NoError(t, err)
		_, err = a.ValidateAccessToken(access)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := a.ValidateAccessToken("not.a.token")
		assert.Error(t, err)
	})
}

func TestSubjectIDRejectsNonUUID(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "42"})
	_, err := SubjectID(tok)
	assert.ErrorIs(t, err, ErrInvalidSubject)
}
