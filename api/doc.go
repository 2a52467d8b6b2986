// Package api maps the HTTP routes onto the sign-in, identity, social and
// peer services.
//
//	POST   /auth/signin
//	POST   /auth/signup
//	GET    /users
//	GET    /users/:user_id
//	DELETE /users/:user_id                                    (self)
//	GET    /users/:user_id/friends                            (self)
//	DELETE /users/:user_id/friends/:friend_user_id            (self)
//	GET    /users/:user_id/friend-requests/incoming           (self)
//	GET    /users/:user_id/friend-requests/outgoing           (self)
//	POST   /users/:user_id/friend-requests                    (self)
//	POST   /users/:user_id/friend-requests/:sender_id/accept  (self)
//	GET    /users/:user_id/peer-connections                   (self or friend)
//	PUT    /users/:user_id/peer-connections/:peer_id          (self)
//
// Routes marked self or friend require a session bearer token; the caller
// must be :user_id (or one of their friends where noted) or gets 403.
package api
