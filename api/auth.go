package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/pvpauth/server"
)

// SignIn handles POST /auth/signin.
func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.signin.SignIn(c.Request.Context(), req.OAuthData.Data)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// SignUp handles POST /auth/signup.
func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.signin.SignUp(c.Request.Context(), req.Username, req.OAuthData.Data)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}
