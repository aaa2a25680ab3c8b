package resolver

import (
	"context"

	"bookmarks/internal/auth"
)

// Resolver maps a provider account to the local profile it owns.
// It is the only place where that mapping lives.
type Resolver interface {
	Resolve(ctx context.Context, user auth.User) (profileID string, err error)
}
