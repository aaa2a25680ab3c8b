package resolver

import (
	"context"
	"errors"
	"fmt"

	"bookmarks/internal/auth"
	"bookmarks/internal/db"

	"github.com/google/uuid"
)

// DBResolver upserts a profile row for every successful sign-in.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

const upsertProfile = `
	INSERT INTO profiles (id, email, display_name, provider, last_sign_in_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (id) DO UPDATE SET
		email = EXCLUDED.email,
		display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), profiles.display_name),
		provider = EXCLUDED.provider,
		last_sign_in_at = NOW(),
		updated_at = NOW()
	RETURNING id
`

func (r *DBResolver) Resolve(ctx context.Context, user auth.User) (string, error) {
	if user.ID == "" {
		return "", errors.New("resolver: provider user has no id")
	}

	id, err := uuid.Parse(user.ID)
	if err != nil {
		return "", fmt.Errorf("resolver: provider user id %q: %w", user.ID, err)
	}

	provider := user.Provider
	if provider == "" {
		provider = "email"
	}

	var profileID uuid.UUID
	if err := r.db.QueryRowContext(ctx, upsertProfile,
		id,
		user.Email,
		user.Name,
		provider,
	).Scan(&profileID); err != nil {
		return "", fmt.Errorf("resolver: upsert profile: %w", err)
	}

	return profileID.String(), nil
}
