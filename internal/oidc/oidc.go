package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gogotex/gogotex/backend/go-realtime/pkg/middleware"
)

// ErrNoSubject is returned for tokens that do not identify a user.
var ErrNoSubject = errors.New("token has no subject")

// Verifier checks Keycloak-issued tokens via OIDC discovery.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify checks signature, issuer, audience and expiry of raw.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	claims := jwt.MapClaims{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return newClaimsToken(claims)
}

// newClaimsToken wraps claims of a token that identifies a document actor.
func newClaimsToken(claims jwt.MapClaims) (middleware.Token, error) {
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, err
	}
	if sub == "" {
		return nil, ErrNoSubject
	}
	return &claimsToken{claims: claims}, nil
}
