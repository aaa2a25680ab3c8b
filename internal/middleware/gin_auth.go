package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// bridge runs a net/http middleware inside a Gin chain. The wrapped
// middleware may replace the request (to attach context values) before
// calling next; if it answers on its own the Gin chain stops.
func bridge(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if !called {
			c.Abort()
		}
	}
}

// GinLoadSession adapts SessionMiddleware.LoadSession to Gin.
func GinLoadSession(m *SessionMiddleware) gin.HandlerFunc {
	return bridge(m.LoadSession)
}

// GinRequireSession adapts SessionMiddleware.RequireSession to Gin. It must
// run after GinLoadSession.
func GinRequireSession(m *SessionMiddleware, loginPath string) gin.HandlerFunc {
	return bridge(func(next http.Handler) http.Handler {
		return m.RequireSession(loginPath, next)
	})
}
