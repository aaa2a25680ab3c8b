package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"bookmarks/internal/auth/credentials"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/logger"
	"bookmarks/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

func (h *Handler) showLogin(c *gin.Context) {
	tab := web.TabLogin
	if c.Query("tab") == web.TabSignup {
		tab = web.TabSignup
	}
	h.renderLogin(c, http.StatusOK, h.loginPage(c, tab, c.Query("next")))
}

// submit handles both tabs of the form; the hidden mode field says which.
func (h *Handler) submit(c *gin.Context) {
	var form credentials.Form
	if err := c.ShouldBind(&form); err != nil {
		if _, ok := credentials.FieldErrors(err); !ok {
			page := h.loginPage(c, web.TabLogin, "")
			page.Alert = &web.Alert{Kind: web.AlertError, Message: "Invalid form submission"}
			h.renderLogin(c, http.StatusBadRequest, page)
			return
		}
	}
	form.Normalize()

	tab := web.TabLogin
	if form.Signup() {
		tab = web.TabSignup
	}
	page := h.loginPage(c, tab, form.Next)
	page.Name = form.Name
	page.Email = form.Email

	if !h.validCSRF(c, form.CSRFToken) {
		page.Alert = &web.Alert{Kind: web.AlertError, Message: "Your form expired, please try again"}
		h.renderLogin(c, http.StatusForbidden, page)
		return
	}

	if err := binding.Validator.ValidateStruct(&form); err != nil {
		fields, _ := credentials.FieldErrors(err)
		page.FieldErrors = fields
		page.Alert = &web.Alert{Kind: web.AlertError, Message: credentials.Summary(fields)}
		h.renderLogin(c, http.StatusBadRequest, page)
		return
	}

	if form.Signup() {
		h.signup(c, form, page)
		return
	}
	h.login(c, form, page)
}

func (h *Handler) login(c *gin.Context, form credentials.Form, page web.LoginPage) {
	grant, err := h.provider.SignInWithPassword(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		h.metrics.AuthEvent("login", "failure")
		h.renderProviderError(c, page, err)
		return
	}

	if err := h.establish(c, grant); err != nil {
		h.renderInternal(c, web.TabLogin, err)
		return
	}
	h.metrics.AuthEvent("login", "success")

	c.Redirect(http.StatusSeeOther, safeNext(form.Next))
}

func (h *Handler) loginPage(c *gin.Context, tab, next string) web.LoginPage {
	next = safeNext(next)
	if next == "/" {
		next = ""
	}
	return web.LoginPage{
		Tab:       tab,
		Next:      next,
		CSRFToken: h.csrfToken(c),
		Socials:   h.socialLinks(next),
	}
}

func (h *Handler) socialLinks(next string) []web.SocialLink {
	var links []web.SocialLink
	for _, s := range h.socials.List() {
		href := "/auth/oauth/" + s.Name
		if next != "" {
			href += "?" + url.Values{"next": {next}}.Encode()
		}
		links = append(links, web.SocialLink{Label: s.Label, URL: href})
	}
	return links
}

func (h *Handler) renderLogin(c *gin.Context, status int, page web.LoginPage) {
	web.Render(c, status, h.site.Login(), web.LoginBody(page))
}

// renderProviderError shows the provider's own message. Failures that never
// reached the provider get a generic line and a 502.
func (h *Handler) renderProviderError(c *gin.Context, page web.LoginPage, err error) {
	status := http.StatusBadGateway
	message := "The sign-in service is unavailable, please try again"

	var perr *provider.Error
	if errors.As(err, &perr) {
		message = perr.Error()
		if perr.Status >= 400 && perr.Status < 500 {
			status = perr.Status
		}
	}
	logger.Warn("auth provider error", zap.Int("status", status), zap.Error(err))

	page.Alert = &web.Alert{Kind: web.AlertError, Message: message}
	h.renderLogin(c, status, page)
}

func (h *Handler) renderInternal(c *gin.Context, tab string, err error) {
	logger.Error("auth handler failed", zap.Error(err))
	_ = c.Error(err)

	page := h.loginPage(c, tab, "")
	page.Alert = &web.Alert{Kind: web.AlertError, Message: "Something went wrong, please try again"}
	h.renderLogin(c, http.StatusInternalServerError, page)
}

// safeNext returns next when it is a same-site path, "/" otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	if u.Path == loginPath || strings.HasPrefix(u.Path, "/auth/") || u.Path == "/logout" {
		return "/"
	}
	return next
}
