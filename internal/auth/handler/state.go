package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"bookmarks/internal/logger"
	"bookmarks/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	csrfCookieName = "csrf"
	csrfTTL        = 12 * time.Hour
	csrfContextKey = "csrf_token"
)

var randomToken = session.RandomToken

// csrfToken returns the double-submit token for this browser, issuing one
// if the browser has none yet.
func (h *Handler) csrfToken(c *gin.Context) string {
	if v := c.GetString(csrfContextKey); v != "" {
		return v
	}
	if cookie, err := c.Request.Cookie(h.cookieName(csrfCookieName)); err == nil && cookie.Value != "" {
		c.Set(csrfContextKey, cookie.Value)
		return cookie.Value
	}
	return h.issueCSRF(c)
}

// issueCSRF sets a new token cookie.
func (h *Handler) issueCSRF(c *gin.Context) string {
	token, err := randomToken(32)
	if err != nil {
		logger.Error("csrf token generation failed", zap.Error(err))
		return ""
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName(csrfCookieName),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(csrfTTL.Seconds()),
	})
	c.Set(csrfContextKey, token)
	return token
}

func (h *Handler) validCSRF(c *gin.Context, submitted string) bool {
	if submitted == "" {
		return false
	}
	cookie, err := c.Request.Cookie(h.cookieName(csrfCookieName))
	if err != nil || cookie.Value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) == 1
}
