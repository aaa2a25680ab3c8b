package provider

import (
	"context"
	"fmt"
	"net/http"

	"bookmarks/internal/auth"
)

// AuthProvider is the contract with the hosted auth service. Implementations
// return provider facts only and must not create local sessions.
type AuthProvider interface {
	// SignInWithPassword exchanges email + password for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)

	// SignUp registers a new account. The returned Session is nil when the
	// provider requires email confirmation first.
	SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error)

	// RefreshSession trades a refresh token for a new session.
	RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error)

	// ExchangeCode completes a PKCE redirect flow (email link or social sign-in).
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*auth.Session, error)

	// SignOut revokes the session behind accessToken.
	SignOut(ctx context.Context, accessToken string) error

	// GetUser returns the account behind accessToken.
	GetUser(ctx context.Context, accessToken string) (*auth.User, error)

	// AuthorizeURL builds the redirect for a social sign-in.
	AuthorizeURL(socialProvider, redirectTo, codeChallenge string) string
}

type SignUpParams struct {
	Email         string
	Password      string
	Name          string
	RedirectTo    string // email confirmation link target
	CodeChallenge string // S256 PKCE challenge, optional
}

type SignUpResult struct {
	User    auth.User
	Session *auth.Session
}

// Error is a failure reported by the provider. Message is safe to show to
// the user as-is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("auth provider error (status %d)", e.Status)
}

// Unauthorized reports whether the provider rejected the credentials or
// token rather than failing for another reason.
func (e *Error) Unauthorized() bool {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
