package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	token, err := NewIssuer("secret", time.Hour).Token("user-1")
	require.NoError(t, err)

	userID, err := NewVerifier("secret").UserID(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifier_Rejects(t *testing.T) {
	good, err := NewIssuer("secret", time.Hour).Token("user-1")
	require.NoError(t, err)

	expiredIssuer := NewIssuer("secret", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredIssuer.Token("user-1")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		token   string
		wantErr error
	}{
		{"wrong secret", "other", good, ErrInvalidToken},
		{"expired", "secret", expired, ErrTokenExpired},
		{"no subject", "secret", noSubject, ErrInvalidToken},
		{"alg none", "secret", none, ErrInvalidToken},
		{"garbage", "secret", "not-a-jwt", ErrInvalidToken},
		{"no key configured", "", good, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerifier(tt.secret).UserID(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
