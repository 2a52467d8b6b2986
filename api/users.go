package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/server"
)

// ListUsers handles GET /users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, storeError(err, "user"))
		return
	}
	server.RespondOK(c, users)
}

// GetUser handles GET /users/:user_id.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, storeError(err, "user"))
		return
	}
	server.RespondOK(c, user)
}

// DeleteUser handles DELETE /users/:user_id.
func (h *Handler) DeleteUser(c *gin.Context) {
	id := caller(c)
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		server.RespondWithError(c, storeError(err, "user"))
		return
	}
	h.log.WithContext(c.Request.Context()).Info("User deleted", map[string]interface{}{
		logger.FieldUserID: id.String(),
	})
	server.RespondNoContent(c)
}
