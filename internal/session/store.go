package session

import (
	"context"
	"time"

	"bookmarks/internal/auth"

	"golang.org/x/oauth2"
)

// Session is the server-side record behind the session cookie. It holds the
// provider's token pair so the browser only ever sees an opaque id.
type Session struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`

	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	TokenType      string    `json:"token_type"`
	TokenExpiresAt time.Time `json:"token_expires_at"`

	CreatedAt         time.Time `json:"created_at"`
	RefreshedAt       time.Time `json:"refreshed_at,omitempty"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
	ExpiresAt         time.Time `json:"expires_at"` // store TTL anchor
}

// New builds a session record from a provider grant. The record lives for
// ttl regardless of how often its tokens are refreshed.
func New(id string, grant *auth.Session, now time.Time, ttl time.Duration) Session {
	expires := now.Add(ttl)
	s := Session{
		SessionID:         id,
		CreatedAt:         now,
		AbsoluteExpiresAt: expires,
		ExpiresAt:         expires,
	}
	s.Apply(grant)
	return s
}

// Apply copies a fresh provider grant into the record. User facts the
// provider left blank are kept.
func (s *Session) Apply(grant *auth.Session) {
	if grant == nil {
		return
	}
	if grant.Token != nil {
		s.AccessToken = grant.Token.AccessToken
		if grant.Token.RefreshToken != "" {
			s.RefreshToken = grant.Token.RefreshToken
		}
		s.TokenType = grant.Token.TokenType
		s.TokenExpiresAt = grant.Token.Expiry
	}
	if grant.User.ID != "" {
		s.UserID = grant.User.ID
	}
	if grant.User.Email != "" {
		s.Email = grant.User.Email
	}
	if grant.User.Name != "" {
		s.Name = grant.User.Name
	}
}

// Token returns the provider token pair.
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.TokenExpiresAt,
	}
}

// NeedsRefresh reports whether the access token expires within leeway.
// A zero expiry means the provider never told us, so no refresh is forced.
func (s *Session) NeedsRefresh(now time.Time, leeway time.Duration) bool {
	if s.TokenExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.TokenExpiresAt)
}

// Expired reports whether the absolute lifetime is over.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.AbsoluteExpiresAt)
}

// DisplayName is what the UI greets the user with.
func (s *Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) when the session does not exist.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}
