package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	pkceCookieName = "pkce"
	// long enough to open the confirmation email later the same day
	pkceTTL = 24 * time.Hour
)

// newPKCE stores a fresh verifier in a cookie and returns its S256 challenge.
func (h *Handler) newPKCE(c *gin.Context) string {
	verifier := oauth2.GenerateVerifier()

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName(pkceCookieName),
		Value:    verifier,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(pkceTTL.Seconds()),
	})

	return oauth2.S256ChallengeFromVerifier(verifier)
}

func (h *Handler) pkceVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(h.cookieName(pkceCookieName))
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (h *Handler) clearPKCE(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookieName(pkceCookieName),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// cookieName adds the __Host- prefix when cookies are Secure.
func (h *Handler) cookieName(base string) string {
	if h.cookie.Secure {
		return "__Host-" + base
	}
	return base
}
