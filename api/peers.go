package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/server"
)

type peerConnectionsResponse struct {
	PeerConnections []uuid.UUID `json:"peerConnections"`
}

// ListPeerConnections handles GET /users/:user_id/peer-connections. The
// caller must be the user or one of their friends.
func (h *Handler) ListPeerConnections(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if me := caller(c); me != userID {
		friends, err := h.social.AreFriends(ctx, me, userID)
		if err != nil {
			server.RespondWithError(c, storeError(err, "friendship"))
			return
		}
		if !friends {
			server.RespondWithError(c, errors.Forbidden("Only the user and their friends can see peer connections."))
			return
		}
	}

	ids, err := h.peers.ListForUser(ctx, userID)
	if err != nil {
		server.RespondWithError(c, peerError(err))
		return
	}
	server.RespondOK(c, peerConnectionsResponse{PeerConnections: ids})
}

// UpsertPeerConnection handles PUT /users/:user_id/peer-connections/:peer_id.
// Each call refreshes the heartbeat of the peer connection.
func (h *Handler) UpsertPeerConnection(c *gin.Context) {
	peerID, ok := pathID(c, "peer_id")
	if !ok {
		return
	}
	if err := h.peers.Upsert(c.Request.Context(), peerID, caller(c)); err != nil {
		server.RespondWithError(c, peerError(err))
		return
	}
	server.RespondNoContent(c)
}
