package api

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/auth/provider"
	"github.com/kbukum/pvpauth/identity"
	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/observability"
	"github.com/kbukum/pvpauth/peers"
	"github.com/kbukum/pvpauth/server/middleware"
	"github.com/kbukum/pvpauth/signin"
	"github.com/kbukum/pvpauth/social"
)

// SignInService signs users in and up.
type SignInService interface {
	SignIn(ctx context.Context, data provider.OAuthData) (*signin.Result, error)
	SignUp(ctx context.Context, username string, data provider.OAuthData) (*signin.Result, error)
}

// UserStore reads and deletes users.
type UserStore interface {
	ListUsers(ctx context.Context) ([]identity.PublicUser, error)
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// SocialGraph manages friends and friend requests.
type SocialGraph interface {
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]social.IncomingRequest, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]social.OutgoingRequest, error)
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID, message *string) error
	AcceptRequest(ctx context.Context, receiverID, senderID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]social.FriendEntry, error)
	DeleteFriend(ctx context.Context, userID, friendID uuid.UUID) error
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// PeerStore tracks peer-connection heartbeats.
type PeerStore interface {
	Upsert(ctx context.Context, peerID, userID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

var (
	_ SignInService = (*signin.Service)(nil)
	_ UserStore     = (*identity.Linker)(nil)
	_ SocialGraph   = (*social.Service)(nil)
	_ PeerStore     = (*peers.Store)(nil)
)

// Deps are the services behind the routes.
type Deps struct {
	SignIn  SignInService
	Users   UserStore
	Social  SocialGraph
	Peers   PeerStore
	Session middleware.SessionVerifier
	Log     *logger.Logger
}

// Options tune route registration.
type Options struct {
	// Metrics returns the request metrics recorder; nil disables metrics.
	Metrics func() *observability.Metrics
	// AuthRateLimit caps sign-in and sign-up requests per client IP and
	// minute. Zero disables it.
	AuthRateLimit int
}

// Handler serves the API routes.
type Handler struct {
	signin  SignInService
	users   UserStore
	social  SocialGraph
	peers   PeerStore
	session middleware.SessionVerifier
	log     *logger.Logger
}

// NewHandler creates a Handler. Every dependency except Log is required.
func NewHandler(d Deps) (*Handler, error) {
	switch {
	case d.SignIn == nil:
		return nil, fmt.Errorf("api: sign-in service is required")
	case d.Users == nil:
		return nil, fmt.Errorf("api: user store is required")
	case d.Social == nil:
		return nil, fmt.Errorf("api: social graph is required")
	case d.Peers == nil:
		return nil, fmt.Errorf("api: peer store is required")
	case d.Session == nil:
		return nil, fmt.Errorf("api: session verifier is required")
	}
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		signin:  d.SignIn,
		users:   d.Users,
		social:  d.Social,
		peers:   d.Peers,
		session: d.Session,
		log:     log.WithComponent("api"),
	}, nil
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine, opts Options) {
	r.NoRoute(h.notFound)
	r.NoMethod(h.methodNotAllowed)
	r.Use(middleware.Operations(opts.Metrics))

	auth := r.Group("/auth")
	if opts.AuthRateLimit > 0 {
		auth.Use(middleware.GinWrap(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerMinute: opts.AuthRateLimit,
		})))
	}
	auth.POST("/signin", h.SignIn)
	auth.POST("/signup", h.SignUp)

	r.GET("/users", h.ListUsers)
	r.GET("/users/:user_id", h.GetUser)

	user := r.Group("/users/:user_id", middleware.Session(h.session, h.log))
	user.GET("/peer-connections", h.ListPeerConnections)

	self := user.Group("", h.requireSelf)
	self.DELETE("", h.DeleteUser)
	self.GET("/friends", h.ListFriends)
	self.DELETE("/friends/:friend_user_id", h.DeleteFriend)
	self.GET("/friend-requests/incoming", h.ListIncomingRequests)
	self.GET("/friend-requests/outgoing", h.ListOutgoingRequests)
	self.POST("/friend-requests", h.SendFriendRequest)
	self.POST("/friend-requests/:sender_id/accept", h.AcceptFriendRequest)
	self.PUT("/peer-connections/:peer_id", h.UpsertPeerConnection)
}
