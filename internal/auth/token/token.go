// Package token verifies provider-issued access tokens so a stolen or forged
// session record cannot outlive the provider's own checks.
package token

import (
	"context"
	"errors"
	"time"
)

// ErrExpired means the token was genuine but is past its expiry; the
// session should be refreshed rather than dropped.
var ErrExpired = errors.New("token: expired")

// ErrUnavailable means the token could not be checked because the signing
// keys could not be fetched. It says nothing about the token itself.
var ErrUnavailable = errors.New("token: signing keys unavailable")

// Claims are the access-token facts the web tier relies on.
type Claims struct {
	Subject   string
	Email     string
	Role      string
	SessionID string
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}
