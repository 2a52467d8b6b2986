package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/auth/provider"
	"github.com/kbukum/pvpauth/auth/session"
	"github.com/kbukum/pvpauth/database"
	dbtestutil "github.com/kbukum/pvpauth/database/testutil"
	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/identity"
	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/peers"
	redistestutil "github.com/kbukum/pvpauth/redis/testutil"
	"github.com/kbukum/pvpauth/signin"
	"github.com/kbukum/pvpauth/social"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct {
	claims *provider.VerifiedClaims
	err    error
	calls  int
}

func (r *stubResolver) Resolve(_ context.Context, _ provider.OAuthData) (*provider.VerifiedClaims, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	c := *r.claims
	return &c, nil
}

type fixture struct {
	engine   *gin.Engine
	db       *database.DB
	mini     *miniredis.Miniredis
	issuer   *session.Issuer
	resolver *stubResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtestutil.NewDB(t)
	rdb, mini := redistestutil.NewClient(t)

	issuer, err := session.NewIssuer(session.Config{Secret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	resolver := &stubResolver{claims: &provider.VerifiedClaims{
		Provider:      provider.Google,
		ExternalID:    "g-123",
		DisplayName:   "Ada Lovelace",
		Email:         "ada@example.com",
		EmailVerified: true,
	}}
	linker := identity.NewLinker(db, identity.WithLogger(logger.Nop()))
	svc, err := signin.NewService(resolver, linker, issuer, signin.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("signin.NewService: %v", err)
	}

	h, err := NewHandler(Deps{
		SignIn:  svc,
		Users:   linker,
		Social:  social.NewService(db, logger.Nop()),
		Peers:   peers.NewStore(rdb, logger.Nop()),
		Session: issuer,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	engine := gin.New()
	h.Register(engine, Options{})
	return &fixture{engine: engine, db: db, mini: mini, issuer: issuer, resolver: resolver}
}

// user creates a user row and returns its id and a session token for it.
func (f *fixture) user(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	id := dbtestutil.MustCreateUser(t, f.db, name)
	token, err := f.issuer.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return id, token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code errors.ErrorCode) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if got := decode[errors.ErrorResponse](t, rec).Error.Code; got != code {
		t.Errorf("code = %s, want %s", got, code)
	}
}

var googleOAuth = map[string]any{"type": "google", "credentials": "id-token"}

func TestNewHandler_RequiresDeps(t *testing.T) {
	if _, err := NewHandler(Deps{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestSignUpThenSignIn(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/signup", "", map[string]any{"username": "ada", "oauthData": googleOAuth})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	up := decode[signin.Result](t, rec)
	if up.Outcome != signin.OutcomeSuccess || up.User == nil || up.User.UserName != "ada" {
		t.Fatalf("signup result = %+v", up)
	}
	if _, err := f.issuer.Verify(up.Token); err != nil {
		t.Errorf("signup token does not verify: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/auth/signin", "", map[string]any{"oauthData": googleOAuth})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d: %s", rec.Code, rec.Body.String())
	}
	in := decode[map[string]any](t, rec)
	if in["result"] != "success" || in["token"] == "" {
		t.Errorf("signin body = %v", in)
	}
	if user, _ := in["user"].(map[string]any); user["id"] != up.User.ID.String() {
		t.Errorf("signin user = %v", in["user"])
	}
}

func TestSignIn_NotRegistered(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/auth/signin", "", map[string]any{"oauthData": googleOAuth})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]any](t, rec)
	if body["result"] != "not-registered" || body["usernameSuggestion"] != "ada_lovelace" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["token"]; ok {
		t.Error("not-registered must not carry a token")
	}
}

func TestAuth_BadRequests(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		path string
		body any
	}{
		{"not json", "/auth/signin", "{"},
		{"missing oauthData", "/auth/signin", map[string]any{}},
		{"unknown provider", "/auth/signin", map[string]any{"oauthData": map[string]any{"type": "github"}}},
		{"empty credentials", "/auth/signin", map[string]any{"oauthData": map[string]any{"type": "google"}}},
		{"lichess without verifier", "/auth/signin", map[string]any{"oauthData": map[string]any{"type": "lichess", "code": "c"}}},
		{"username too short", "/auth/signup", map[string]any{"username": "ab", "oauthData": googleOAuth}},
		{"username bad chars", "/auth/signup", map[string]any{"username": "ada lovelace", "oauthData": googleOAuth}},
		{"username missing", "/auth/signup", map[string]any{"oauthData": googleOAuth}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, "", tt.body)
			expectError(t, rec, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		})
	}
	if f.resolver.calls != 0 {
		t.Errorf("provider called %d times for rejected requests", f.resolver.calls)
	}
}

func TestSignIn_ProviderErrors(t *testing.T) {
	f := newFixture(t)

	f.resolver.err = provider.ErrAuthentication
	rec := f.do(t, http.MethodPost, "/auth/signin", "", map[string]any{"oauthData": googleOAuth})
	expectError(t, rec, http.StatusUnauthorized, errors.ErrCodeAuthenticationFailed)

	f.resolver.err = provider.ErrCommunication
	rec = f.do(t, http.MethodPost, "/auth/signin", "", map[string]any{"oauthData": googleOAuth})
	expectError(t, rec, http.StatusBadGateway, errors.ErrCodeExternalService)
	if !decode[errors.ErrorResponse](t, rec).Error.Retryable {
		t.Error("provider outage should be retryable")
	}
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	ada, adaToken := f.user(t, "ada")
	bob, _ := f.user(t, "bob")

	rec := f.do(t, http.MethodGet, "/users", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	list := decode[[]identity.PublicUser](t, rec)
	if len(list) != 2 || list[0].UserName != "ada" || list[1].UserName != "bob" {
		t.Errorf("list = %+v", list)
	}

	rec = f.do(t, http.MethodGet, "/users/"+ada.String(), "", nil)
	if rec.Code != http.StatusOK || decode[identity.User](t, rec).ID != ada {
		t.Errorf("get = %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, f.do(t, http.MethodGet, "/users/"+uuid.NewString(), "", nil), http.StatusNotFound, errors.ErrCodeNotFound)
	expectError(t, f.do(t, http.MethodGet, "/users/not-a-uuid", "", nil), http.StatusBadRequest, errors.ErrCodeInvalidInput)

	expectError(t, f.do(t, http.MethodDelete, "/users/"+ada.String(), "", nil), http.StatusUnauthorized, errors.ErrCodeAuthenticationFailed)
	expectError(t, f.do(t, http.MethodDelete, "/users/"+bob.String(), adaToken, nil), http.StatusForbidden, errors.ErrCodeForbidden)

	rec = f.do(t, http.MethodDelete, "/users/"+ada.String(), adaToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	dbtestutil.AssertRowCount(t, f.db, "users", 1)
	expectError(t, f.do(t, http.MethodGet, "/users/"+ada.String(), "", nil), http.StatusNotFound, errors.ErrCodeNotFound)
}

func TestFriendRequestFlow(t *testing.T) {
	f := newFixture(t)
	ada, adaToken := f.user(t, "ada")
	bob, bobToken := f.user(t, "bob")
	base := func(id uuid.UUID) string { return "/users/" + id.String() }

	rec := f.do(t, http.MethodPost, base(ada)+"/friend-requests", adaToken,
		map[string]any{"receiverId": bob.String(), "message": "good game"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, base(bob)+"/friend-requests/incoming", bobToken, nil)
	incoming := decode[incomingResponse](t, rec)
	if incoming.ReceiverID != bob || len(incoming.FriendRequests) != 1 {
		t.Fatalf("incoming = %+v", incoming)
	}
	if r := incoming.FriendRequests[0]; r.Sender.ID != ada || r.Message == nil || *r.Message != "good game" {
		t.Errorf("incoming request = %+v", r)
	}

	rec = f.do(t, http.MethodGet, base(ada)+"/friend-requests/outgoing", adaToken, nil)
	outgoing := decode[outgoingResponse](t, rec)
	if outgoing.SenderID != ada || len(outgoing.FriendRequests) != 1 || outgoing.FriendRequests[0].Receiver.ID != bob {
		t.Errorf("outgoing = %+v", outgoing)
	}

	expectError(t, f.do(t, http.MethodPost, base(ada)+"/friend-requests", adaToken, map[string]any{"receiverId": bob.String()}),
		http.StatusConflict, errors.ErrCodeAlreadyExists)
	expectError(t, f.do(t, http.MethodPost, base(bob)+"/friend-requests", bobToken, map[string]any{"receiverId": ada.String()}),
		http.StatusBadRequest, errors.ErrCodeFriendRequestExistsOtherDirection)

	rec = f.do(t, http.MethodPost, base(bob)+"/friend-requests/"+ada.String()+"/accept", bobToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("accept status = %d: %s", rec.Code, rec.Body.String())
	}
	dbtestutil.AssertRowCount(t, f.db, "friend_requests", 0)

	for _, who := range []struct {
		id    uuid.UUID
		token string
		other uuid.UUID
	}{{ada, adaToken, bob}, {bob, bobToken, ada}} {
		rec = f.do(t, http.MethodGet, base(who.id)+"/friends", who.token, nil)
		friends := decode[friendsResponse](t, rec)
		if len(friends.Friends) != 1 || friends.Friends[0].Friend.ID != who.other {
			t.Errorf("friends of %s = %+v", who.id, friends)
		}
	}

	expectError(t, f.do(t, http.MethodPost, base(ada)+"/friend-requests", adaToken, map[string]any{"receiverId": bob.String()}),
		http.StatusBadRequest, errors.ErrCodeAlreadyFriends)

	rec = f.do(t, http.MethodDelete, base(ada)+"/friends/"+bob.String(), adaToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete friend status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, base(bob)+"/friends", bobToken, nil)
	if friends := decode[friendsResponse](t, rec); friends.Friends == nil || len(friends.Friends) != 0 {
		t.Errorf("friends after delete = %s", rec.Body.String())
	}
}

func TestFriendRequest_Errors(t *testing.T) {
	f := newFixture(t)
	ada, adaToken := f.user(t, "ada")
	bob, bobToken := f.user(t, "bob")
	send := "/users/" + ada.String() + "/friend-requests"

	tests := []struct {
		name   string
		path   string
		token  string
		body   any
		status int
		code   errors.ErrorCode
	}{
		{"to self", send, adaToken, map[string]any{"receiverId": ada.String()}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown receiver", send, adaToken, map[string]any{"receiverId": uuid.NewString()}, http.StatusNotFound, errors.ErrCodeNotFound},
		{"receiver not uuid", send, adaToken, map[string]any{"receiverId": "bob"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"nil receiver", send, adaToken, map[string]any{"receiverId": uuid.Nil.String()}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"message too long", send, adaToken, map[string]any{"receiverId": bob.String(), "message": strings.Repeat("x", 501)}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"as someone else", send, bobToken, map[string]any{"receiverId": bob.String()}, http.StatusForbidden, errors.ErrCodeForbidden},
		{"no session", send, "", map[string]any{"receiverId": bob.String()}, http.StatusUnauthorized, errors.ErrCodeAuthenticationFailed},
		{"accept missing", "/users/" + bob.String() + "/friend-requests/" + ada.String() + "/accept", bobToken, nil, http.StatusBadRequest, errors.ErrCodeFriendRequestNotFound},
		{"accept bad sender", "/users/" + bob.String() + "/friend-requests/xyz/accept", bobToken, nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, f.do(t, http.MethodPost, tt.path, tt.token, tt.body), tt.status, tt.code)
		})
	}
	dbtestutil.AssertRowCount(t, f.db, "friend_requests", 0)
}

func TestPeerConnections(t *testing.T) {
	f := newFixture(t)
	ada, adaToken := f.user(t, "ada")
	bob, bobToken := f.user(t, "bob")
	_, eveToken := f.user(t, "eve")
	peer := uuid.New()
	path := "/users/" + ada.String() + "/peer-connections"

	rec := f.do(t, http.MethodPut, path+"/"+peer.String(), adaToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("upsert status = %d: %s", rec.Code, rec.Body.String())
	}
	expectError(t, f.do(t, http.MethodPut, path+"/"+uuid.NewString(), bobToken, nil), http.StatusForbidden, errors.ErrCodeForbidden)
	expectError(t, f.do(t, http.MethodPut, path+"/not-a-uuid", adaToken, nil), http.StatusBadRequest, errors.ErrCodeInvalidInput)

	rec = f.do(t, http.MethodGet, path, adaToken, nil)
	own := decode[peerConnectionsResponse](t, rec)
	if len(own.PeerConnections) != 1 || own.PeerConnections[0] != peer {
		t.Errorf("own peers = %+v", own)
	}

	expectError(t, f.do(t, http.MethodGet, path, bobToken, nil), http.StatusForbidden, errors.ErrCodeForbidden)

	rec = f.do(t, http.MethodPost, "/users/"+ada.String()+"/friend-requests", adaToken, map[string]any{"receiverId": bob.String()})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/users/"+bob.String()+"/friend-requests/"+ada.String()+"/accept", bobToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("accept status = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, path, bobToken, nil)
	if rec.Code != http.StatusOK || len(decode[peerConnectionsResponse](t, rec).PeerConnections) != 1 {
		t.Errorf("friend view = %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, f.do(t, http.MethodGet, path, eveToken, nil), http.StatusForbidden, errors.ErrCodeForbidden)

	f.mini.SetError("ERR server failure")
	expectError(t, f.do(t, http.MethodGet, path, adaToken, nil), http.StatusServiceUnavailable, errors.ErrCodeServiceUnavailable)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	expectError(t, f.do(t, http.MethodGet, "/nowhere", "", nil), http.StatusNotFound, errors.ErrCodeNotFound)
}
