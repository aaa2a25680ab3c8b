package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// providerClaims mirrors the access-token payload of the hosted provider.
type providerClaims struct {
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// HMACVerifier checks HS256 tokens signed with the project's shared secret.
type HMACVerifier struct {
	secret   []byte
	audience string
}

func NewHMACVerifier(secret, audience string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("token: hmac secret is required")
	}
	return &HMACVerifier{secret: []byte(secret), audience: audience}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var pc providerClaims
	_, err := jwt.ParseWithClaims(raw, &pc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("token: verify: %w", err)
	}
	if pc.Subject == "" {
		return nil, errors.New("token: missing subject")
	}

	c := &Claims{
		Subject:   pc.Subject,
		Email:     pc.Email,
		Role:      pc.Role,
		SessionID: pc.SessionID,
	}
	if pc.ExpiresAt != nil {
		c.ExpiresAt = pc.ExpiresAt.Time
	}
	return c, nil
}
