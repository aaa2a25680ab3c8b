package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bookmarks/internal/middleware"
	"bookmarks/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func withSession(s *session.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(middleware.WithSession(c.Request.Context(), s))
		c.Next()
	}
}

func pagesRouter(sess *session.Session) *gin.Engine {
	p := Pages{Site: site}
	r := gin.New()
	if sess != nil {
		r.Use(withSession(sess))
	}
	r.GET("/", p.Home)
	r.GET("/groups", p.Groups)
	r.GET("/groups/*path", p.Groups)
	r.NoRoute(p.NotFound)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHome(t *testing.T) {
	rr := get(pagesRouter(nil), "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<title>Bookmarks</title>")
	assert.Contains(t, rr.Body.String(), `href="/login"`)
	assert.Contains(t, rr.Body.String(), "<h1>Bookmarks</h1>")
	assert.Contains(t, rr.Body.String(), "<p>Save and share your bookmarks</p>")

	rr = get(pagesRouter(&session.Session{UserID: "u", Email: "ada@example.com"}), "/")
	assert.Contains(t, rr.Body.String(), "Signed in as <strong>ada@example.com</strong>")
	assert.Contains(t, rr.Body.String(), `href="/logout"`)
}

func TestHomeUsesSiteName(t *testing.T) {
	r := gin.New()
	r.GET("/", Pages{Site: Site{Name: "Linkroll", Description: "Links for the team"}}.Home)

	rr := get(r, "/")
	assert.Contains(t, rr.Body.String(), "<title>Linkroll</title>")
	assert.Contains(t, rr.Body.String(), "<h1>Linkroll</h1>")
	assert.Contains(t, rr.Body.String(), "<p>Links for the team</p>")
	assert.NotContains(t, rr.Body.String(), "Bookmarks")
}

func TestGroups(t *testing.T) {
	rr := get(pagesRouter(&session.Session{UserID: "u", Name: "Ada"}), "/groups/family")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<title>Groups | Bookmarks</title>")
	assert.Contains(t, rr.Body.String(), "<strong>Ada</strong>")
	assert.Contains(t, rr.Body.String(), "/family")

	rr = get(pagesRouter(nil), "/groups/family")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/login?next=%2Fgroups%2Ffamily", rr.Header().Get("Location"))
}

func TestNotFound(t *testing.T) {
	rr := get(pagesRouter(nil), "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "<title>Not found | Bookmarks</title>")
	assert.Contains(t, rr.Body.String(), "Back to Bookmarks")
}
