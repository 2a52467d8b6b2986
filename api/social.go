package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/server"
	"github.com/kbukum/pvpauth/social"
)

type friendsResponse struct {
	Friends []social.FriendEntry `json:"friends"`
}

type incomingResponse struct {
	ReceiverID     uuid.UUID                `json:"receiverId"`
	FriendRequests []social.IncomingRequest `json:"friendRequests"`
}

type outgoingResponse struct {
	SenderID       uuid.UUID                `json:"senderId"`
	FriendRequests []social.OutgoingRequest `json:"friendRequests"`
}

// ListFriends handles GET /users/:user_id/friends.
func (h *Handler) ListFriends(c *gin.Context) {
	friends, err := h.social.ListFriends(c.Request.Context(), caller(c))
	if err != nil {
		server.RespondWithError(c, storeError(err, "friend"))
		return
	}
	server.RespondOK(c, friendsResponse{Friends: friends})
}

// DeleteFriend handles DELETE /users/:user_id/friends/:friend_user_id.
func (h *Handler) DeleteFriend(c *gin.Context) {
	friendID, ok := pathID(c, "friend_user_id")
	if !ok {
		return
	}
	if err := h.social.DeleteFriend(c.Request.Context(), caller(c), friendID); err != nil {
		server.RespondWithError(c, storeError(err, "friend"))
		return
	}
	server.RespondNoContent(c)
}

// ListIncomingRequests handles GET /users/:user_id/friend-requests/incoming.
func (h *Handler) ListIncomingRequests(c *gin.Context) {
	userID := caller(c)
	requests, err := h.social.ListIncoming(c.Request.Context(), userID)
	if err != nil {
		server.RespondWithError(c, storeError(err, "friend request"))
		return
	}
	server.RespondOK(c, incomingResponse{ReceiverID: userID, FriendRequests: requests})
}

// ListOutgoingRequests handles GET /users/:user_id/friend-requests/outgoing.
func (h *Handler) ListOutgoingRequests(c *gin.Context) {
	userID := caller(c)
	requests, err := h.social.ListOutgoing(c.Request.Context(), userID)
	if err != nil {
		server.RespondWithError(c, storeError(err, "friend request"))
		return
	}
	server.RespondOK(c, outgoingResponse{SenderID: userID, FriendRequests: requests})
}

// SendFriendRequest handles POST /users/:user_id/friend-requests.
func (h *Handler) SendFriendRequest(c *gin.Context) {
	var req sendFriendRequestRequest
	if !bind(c, &req) {
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil || receiverID == uuid.Nil {
		server.RespondWithError(c, errors.InvalidInput("receiverId", "must be a valid UUID"))
		return
	}
	if err := h.social.SendRequest(c.Request.Context(), caller(c), receiverID, req.Message); err != nil {
		server.RespondWithError(c, storeError(err, "friend request"))
		return
	}
	c.Status(http.StatusCreated)
}

// AcceptFriendRequest handles POST /users/:user_id/friend-requests/:sender_id/accept.
func (h *Handler) AcceptFriendRequest(c *gin.Context) {
	senderID, ok := pathID(c, "sender_id")
	if !ok {
		return
	}
	if err := h.social.AcceptRequest(c.Request.Context(), caller(c), senderID); err != nil {
		server.RespondWithError(c, storeError(err, "friendship"))
		return
	}
	server.RespondNoContent(c)
}
