package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// User is the provider's view of an account. It contains facts only;
// the provider remains the source of truth.
type User struct {
	ID             string // provider user id (uuid)
	Email          string
	Name           string // display name from user metadata
	Provider       string // "email", "google", ...
	EmailConfirmed bool
}

// Session is the provider-issued token pair for a signed-in user.
type Session struct {
	Token *oauth2.Token
	User  User
}

// ExpiresAt returns the access token expiry, or the zero time when the
// provider did not report one.
func (s *Session) ExpiresAt() time.Time {
	if s == nil || s.Token == nil {
		return time.Time{}
	}
	return s.Token.Expiry
}
