package web

import (
	"net/http"

	"bookmarks/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Pages serves the non-auth pages.
type Pages struct {
	Site Site
}

func (p Pages) Home(c *gin.Context) {
	page := HomePage{Site: p.Site}
	if sess, ok := middleware.SessionFromContext(c.Request.Context()); ok {
		page.SignedIn = true
		page.UserName = sess.DisplayName()
	}
	Render(c, http.StatusOK, p.Site.Default(), HomeBody(page))
}

// Groups is only reachable behind RequireSession.
func (p Pages) Groups(c *gin.Context) {
	sess, ok := middleware.SessionFromContext(c.Request.Context())
	if !ok {
		c.Redirect(http.StatusTemporaryRedirect, middleware.LoginRedirect("/login", c.Request.URL))
		return
	}
	path := c.Param("path")
	if path == "/" {
		path = ""
	}
	Render(c, http.StatusOK, p.Site.Groups(), GroupsBody(GroupsPage{UserName: sess.DisplayName(), Path: path}))
}

func (p Pages) NotFound(c *gin.Context) {
	Render(c, http.StatusNotFound, p.Site.Page("Not found"), page("notfound", p.Site))
}
