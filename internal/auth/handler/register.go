package handler

import (
	"net/http"

	"bookmarks/internal/auth/credentials"
	"bookmarks/internal/auth/provider"
	"bookmarks/internal/logger"
	"bookmarks/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const signupSuccess = "Your account has been created!"

func (h *Handler) signup(c *gin.Context, form credentials.Form, page web.LoginPage) {
	if err := form.CheckPasswords(); err != nil {
		page.Alert = &web.Alert{Kind: web.AlertError, Message: credentials.MsgPasswordMismatch}
		h.renderLogin(c, http.StatusBadRequest, page)
		return
	}

	challenge := h.newPKCE(c)

	res, err := h.provider.SignUp(c.Request.Context(), provider.SignUpParams{
		Email:         form.Email,
		Password:      form.Password,
		Name:          form.Name,
		RedirectTo:    h.callbackURL,
		CodeChallenge: challenge,
	})
	if err != nil {
		h.metrics.AuthEvent("signup", "failure")
		h.renderProviderError(c, page, err)
		return
	}
	h.metrics.AuthEvent("signup", "success")
	logger.Info("signup", zap.String("user_id", res.User.ID), zap.Bool("confirmed", res.Session != nil))

	// auto-confirmed projects answer with a session right away
	if res.Session != nil {
		h.clearPKCE(c)
		if err := h.establish(c, res.Session); err != nil {
			h.renderInternal(c, web.TabSignup, err)
			return
		}
	}

	done := h.loginPage(c, web.TabLogin, form.Next)
	done.Alert = &web.Alert{Kind: web.AlertSuccess, Message: signupSuccess}
	h.renderLogin(c, http.StatusOK, done)
}
