package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"bookmarks/internal/auth"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/auth/token"
	"bookmarks/internal/logger"
	"bookmarks/internal/metrics"
	"bookmarks/internal/session"

	"go.uber.org/zap"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext returns the signed-in session attached by LoadSession.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// Refresher trades a refresh token for a new provider session.
type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*auth.Session, error)
}

type SessionMiddleware struct {
	Store     session.Store
	Refresher Refresher
	Verifier  token.Verifier // optional
	Cookie    session.CookieOptions
	Leeway    time.Duration
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func NewSessionMiddleware(store session.Store, refresher Refresher, cookie session.CookieOptions, leeway time.Duration) *SessionMiddleware {
	return &SessionMiddleware{
		Store:     store,
		Refresher: refresher,
		Cookie:    cookie,
		Leeway:    leeway,
		Now:       time.Now,
	}
}

func (m *SessionMiddleware) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// LoadSession resolves the session cookie on every request, refreshing the
// provider tokens when they are about to expire. Requests without a usable
// session pass through anonymously; gating is RequireSession's job.
func (m *SessionMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := m.resolve(w, r); sess != nil {
			r = r.WithContext(WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession redirects anonymous requests to loginPath, remembering
// where they were headed.
func (m *SessionMiddleware) RequireSession(loginPath string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginRedirect(loginPath, r.URL), http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginRedirect builds loginPath?next=<path and query of from>.
func LoginRedirect(loginPath string, from *url.URL) string {
	if from == nil || from.Path == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"next": {from.RequestURI()}}.Encode()
}

func (m *SessionMiddleware) resolve(w http.ResponseWriter, r *http.Request) *session.Session {
	ctx := r.Context()

	sessionID, ok := session.ReadCookie(r, m.Cookie)
	if !ok {
		return nil
	}

	sess, err := m.Store.Get(ctx, sessionID)
	if err != nil {
		// store outage: keep the cookie, serve this request anonymously
		logger.Error("session lookup failed", zap.Error(err))
		return nil
	}
	if sess == nil {
		session.ClearCookie(w, m.Cookie)
		return nil
	}

	now := m.now()
	if sess.Expired(now) {
		m.drop(w, r, sess, "absolute lifetime exceeded")
		return nil
	}

	refresh := sess.NeedsRefresh(now, m.Leeway)
	if !refresh && m.Verifier != nil {
		_, err := m.Verifier.Verify(ctx, sess.AccessToken)
		switch {
		case err == nil:
		case errors.Is(err, token.ErrExpired):
			refresh = true
		case errors.Is(err, token.ErrUnavailable):
			// keys outage: trust the stored expiry until it passes
			logger.Warn("access token unchecked", zap.String("user_id", sess.UserID), zap.Error(err))
			if !sess.TokenExpiresAt.IsZero() && !now.Before(sess.TokenExpiresAt) {
				return nil
			}
			return sess
		default:
			logger.Warn("access token rejected", zap.String("user_id", sess.UserID), zap.Error(err))
			m.drop(w, r, sess, "invalid access token")
			return nil
		}
	}

	if refresh {
		return m.refresh(w, r, sess, now)
	}
	return sess
}

func (m *SessionMiddleware) refresh(w http.ResponseWriter, r *http.Request, sess *session.Session, now time.Time) *session.Session {
	if sess.RefreshToken == "" {
		m.Metrics.SessionRefresh("rejected")
		m.drop(w, r, sess, "no refresh token")
		return nil
	}

	grant, err := m.Refresher.RefreshSession(r.Context(), sess.RefreshToken)
	if err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) && perr.Unauthorized() {
			m.Metrics.SessionRefresh("rejected")
			m.drop(w, r, sess, "refresh rejected")
			return nil
		}

		// transient: the old token is still good until it actually expires
		m.Metrics.SessionRefresh("error")
		logger.Warn("session refresh failed", zap.String("user_id", sess.UserID), zap.Error(err))
		if !sess.TokenExpiresAt.IsZero() && !now.Before(sess.TokenExpiresAt) {
			return nil
		}
		return sess
	}

	sess.Apply(grant)
	sess.RefreshedAt = now
	if err := m.Store.Update(r.Context(), *sess); err != nil {
		logger.Error("session update failed", zap.String("user_id", sess.UserID), zap.Error(err))
	}
	m.Metrics.SessionRefresh("ok")
	return sess
}

func (m *SessionMiddleware) drop(w http.ResponseWriter, r *http.Request, sess *session.Session, reason string) {
	if err := m.Store.Delete(r.Context(), sess.SessionID); err != nil {
		logger.Error("session delete failed", zap.Error(err))
	}
	session.ClearCookie(w, m.Cookie)
	logger.Info("session dropped", zap.String("user_id", sess.UserID), zap.String("reason", reason))
}
