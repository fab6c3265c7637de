package oidc

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestInsecureVerifierReadsClaims(t *testing.T) {
	raw := signed(t, "whatever", jwt.MapClaims{"sub": "user01", "roles": []string{"pt_administrator"}})

	tok, err := NewInsecureVerifier().Verify(context.Background(), raw)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "user01", claims["sub"])
	assert.Equal(t, []interface{}{"pt_administrator"}, claims["roles"])

	_, err = NewInsecureVerifier().Verify(context.Background(), "not-a-jwt")
	require.Error(t, err)

	_, err = NewInsecureVerifier().Verify(context.Background(), signed(t, "whatever", jwt.MapClaims{"email": "svc@example.com"}))
	require.ErrorIs(t, err, ErrNoSubject)
}

func TestHMACVerifier(t *testing.T) {
	v, err := NewHMACVerifier("s3cret")
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Unix()

	tok, err := v.Verify(context.Background(), signed(t, "s3cret", jwt.MapClaims{"sub": "user02", "exp": exp}))
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "user02", claims["sub"])

	_, err = v.Verify(context.Background(), signed(t, "other", jwt.MapClaims{"sub": "user02", "exp": exp}))
	require.Error(t, err)

	_, err = v.Verify(context.Background(), signed(t, "s3cret", jwt.MapClaims{"sub": "user02"}))
	require.Error(t, err, "expiry is required")

	_, err = v.Verify(context.Background(), signed(t, "s3cret", jwt.MapClaims{"sub": "user02", "exp": time.Now().Add(-time.Minute).Unix()}))
	require.Error(t, err)

	_, err = v.Verify(context.Background(), signed(t, "s3cret", jwt.MapClaims{"exp": exp}))
	require.ErrorIs(t, err, ErrNoSubject)

	_, err = NewHMACVerifier("")
	require.Error(t, err)
}
