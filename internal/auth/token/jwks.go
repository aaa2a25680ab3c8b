package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// JWKSVerifier checks asymmetrically signed tokens against the provider's
// published key set. Keys are fetched lazily and cached by go-oidc.
type JWKSVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewJWKSVerifier builds a verifier for tokens issued by issuer. keysCtx is
// used for every future key fetch and must outlive the verifier.
func NewJWKSVerifier(keysCtx context.Context, issuer, jwksURL string) (*JWKSVerifier, error) {
	if issuer == "" || jwksURL == "" {
		return nil, errors.New("token: issuer and jwks url are required")
	}
	keySet := oidc.NewRemoteKeySet(keysCtx, jwksURL)
	return &JWKSVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			// Access tokens carry the "authenticated" audience, not a client id.
			SkipClientIDCheck:    true,
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
		}),
	}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	idt, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, ErrExpired
		}
		// go-oidc flattens the key fetch error into the signature error
		if strings.Contains(err.Error(), "fetching keys") {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("token: verify: %w", err)
	}

	var extra struct {
		Email     string `json:"email"`
		Role      string `json:"role"`
		SessionID string `json:"session_id"`
	}
	if err := idt.Claims(&extra); err != nil {
		return nil, fmt.Errorf("token: parse claims: %w", err)
	}
	if idt.Subject == "" {
		return nil, errors.New("token: missing subject")
	}

	return &Claims{
		Subject:   idt.Subject,
		Email:     extra.Email,
		Role:      extra.Role,
		SessionID: extra.SessionID,
		ExpiresAt: idt.Expiry,
	}, nil
}
