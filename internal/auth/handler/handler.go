package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"bookmarks/internal/auth"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/auth/resolver"
	"bookmarks/internal/logger"
	"bookmarks/internal/metrics"
	"bookmarks/internal/session"
	"bookmarks/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const loginPath = "/login"

// Deps are the collaborators of the auth handlers.
type Deps struct {
	Provider    provider.AuthProvider
	Socials     *provider.Registry
	Sessions    session.Store
	Resolver    resolver.Resolver
	Site        web.Site
	Cookie      session.CookieOptions
	SessionTTL  time.Duration
	CallbackURL string
	Metrics     *metrics.Metrics
}

type Handler struct {
	provider     provider.AuthProvider
	socials      *provider.Registry
	sessionStore session.Store
	resolver     resolver.Resolver
	site         web.Site
	cookie       session.CookieOptions
	sessionTTL   time.Duration
	callbackURL  string
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewHandler(d Deps) *Handler {
	socials := d.Socials
	if socials == nil {
		socials = provider.NewRegistry()
	}
	return &Handler{
		provider:     d.Provider,
		socials:      socials,
		sessionStore: d.Sessions,
		resolver:     d.Resolver,
		site:         d.Site,
		cookie:       d.Cookie,
		sessionTTL:   d.SessionTTL,
		callbackURL:  d.CallbackURL,
		metrics:      d.Metrics,
		now:          time.Now,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET(loginPath, h.showLogin)
	r.POST(loginPath, h.submit)
	r.GET("/auth/oauth/:provider", h.oauthLogin)
	r.GET("/auth/callback", h.callback)
	r.GET("/logout", h.logoutRedirect)
	r.POST("/auth/logout", h.Logout)
}

// oauthLogin hands the browser to the provider's social sign-in.
func (h *Handler) oauthLogin(c *gin.Context) {
	social, err := h.socials.Get(c.Param("provider"))
	if err != nil {
		page := h.loginPage(c, web.TabLogin, c.Query("next"))
		page.Alert = &web.Alert{Kind: web.AlertError, Message: "Unknown sign-in provider"}
		h.renderLogin(c, http.StatusBadRequest, page)
		return
	}

	challenge := h.newPKCE(c)

	redirectTo := h.callbackURL
	if next := safeNext(c.Query("next")); next != "/" {
		redirectTo += "?" + url.Values{"next": {next}}.Encode()
	}

	c.Redirect(http.StatusFound, h.provider.AuthorizeURL(social.Name, redirectTo, challenge))
}

// callback completes email confirmation and social sign-in.
func (h *Handler) callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		desc := c.Query("error_description")
		if desc == "" {
			desc = errParam
		}
		logger.Warn("auth callback returned error",
			zap.String("error", errParam),
			zap.String("error_code", c.Query("error_code")),
			zap.String("desc", desc),
		)
		h.metrics.AuthEvent("callback", "failure")

		page := h.loginPage(c, web.TabLogin, "")
		page.Alert = &web.Alert{Kind: web.AlertError, Message: desc}
		h.renderLogin(c, http.StatusBadRequest, page)
		return
	}

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, loginPath)
		return
	}

	verifier := h.pkceVerifier(c)
	if verifier == "" {
		// confirmation link opened in another browser: the account is
		// confirmed but this browser never started the flow
		page := h.loginPage(c, web.TabLogin, "")
		page.Alert = &web.Alert{Kind: web.AlertInfo, Message: "Your email is confirmed. Please log in."}
		h.renderLogin(c, http.StatusOK, page)
		return
	}
	h.clearPKCE(c)

	grant, err := h.provider.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		h.metrics.AuthEvent("callback", "failure")
		h.renderProviderError(c, h.loginPage(c, web.TabLogin, ""), err)
		return
	}

	if err := h.establish(c, grant); err != nil {
		h.renderInternal(c, web.TabLogin, err)
		return
	}
	h.metrics.AuthEvent("callback", "success")

	c.Redirect(http.StatusFound, safeNext(c.Query("next")))
}

// logoutRedirect signs out and returns to the home page.
func (h *Handler) logoutRedirect(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusFound, "/")
}

// Logout signs out and answers 204. It is idempotent.
func (h *Handler) Logout(c *gin.Context) {
	h.endSession(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) endSession(c *gin.Context) {
	ctx := c.Request.Context()

	if sessionID, ok := session.ReadCookie(c.Request, h.cookie); ok {
		sess, err := h.sessionStore.Get(ctx, sessionID)
		if err != nil {
			logger.Warn("logout session lookup failed", zap.Error(err))
		}
		if sess != nil && sess.AccessToken != "" {
			// best effort: the local session goes away regardless
			if err := h.provider.SignOut(ctx, sess.AccessToken); err != nil {
				logger.Warn("provider sign-out failed", zap.String("user_id", sess.UserID), zap.Error(err))
			}
		}
		if err := h.sessionStore.Delete(ctx, sessionID); err != nil {
			logger.Error("session delete failed", zap.Error(err))
		}
		if sess != nil {
			logger.Info("logout", zap.String("user_id", sess.UserID), zap.String("ip", c.ClientIP()))
		}
	}

	session.ClearCookie(c.Writer, h.cookie)
	h.metrics.AuthEvent("logout", "success")
}

// establish turns a provider grant into a server session and cookie. Any
// session the browser already had is discarded first.
func (h *Handler) establish(c *gin.Context, grant *auth.Session) error {
	ctx := c.Request.Context()
	if grant == nil || grant.Token == nil || grant.Token.AccessToken == "" {
		return errors.New("provider returned no session")
	}

	if oldID, ok := session.ReadCookie(c.Request, h.cookie); ok {
		if err := h.sessionStore.Delete(ctx, oldID); err != nil {
			logger.Warn("previous session delete failed", zap.Error(err))
		}
	}

	profileID, err := h.resolver.Resolve(ctx, grant.User)
	if err != nil {
		return err
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		return err
	}

	rec := session.New(sessionID, grant, h.now(), h.sessionTTL)
	if rec.UserID == "" {
		rec.UserID = profileID
	}
	if err := h.sessionStore.Create(ctx, rec); err != nil {
		return err
	}

	session.SetCookie(c.Writer, sessionID, rec.ExpiresAt, h.cookie)

	logger.Info("login success",
		zap.String("user_id", rec.UserID),
		zap.String("provider", grant.User.Provider),
		zap.String("ip", c.ClientIP()),
	)
	return nil
}
