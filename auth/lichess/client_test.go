package lichess

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memoryStore struct {
	mu     sync.Mutex
	tokens map[string]AccessToken
	puts   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tokens: make(map[string]AccessToken)}
}

func (m *memoryStore) Get(_ context.Context, verifier string) (*AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[verifier]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memoryStore) Put(_ context.Context, t *AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Verifier] = *t
	m.puts++
	return nil
}

type fakeLichess struct {
	*httptest.Server
	tokenCalls   atomic.Int32
	accountCalls atomic.Int32
	emailCalls   atomic.Int32

	tokenStatus   int
	accountStatus int
	accountBody   string
	lastForm      map[string]string
}

func newFakeLichess(t *testing.T) *fakeLichess {
	t.Helper()
	f := &fakeLichess{
		tokenStatus:   http.StatusOK,
		accountStatus: http.StatusOK,
		accountBody:   `{"id":"thibault","username":"Thibault"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		f.lastForm = map[string]string{}
		for k := range r.PostForm {
			f.lastForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		switch f.tokenStatus {
		case http.StatusOK:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"token_type":   "Bearer",
				"access_token": "lio_abc",
				"expires_in":   3600,
			})
		case http.StatusBadRequest:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
		default:
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"server_error"}`))
		}
	})
	mux.HandleFunc("/api/account", func(w http.ResponseWriter, r *http.Request) {
		f.accountCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer lio_abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(f.accountStatus)
		_, _ = w.Write([]byte(f.accountBody))
	})
	mux.HandleFunc("/api/account/email", func(w http.ResponseWriter, r *http.Request) {
		f.emailCalls.Add(1)
		_, _ = w.Write([]byte(`{"email":"thibault@example.com"}`))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeLichess, store TokenStore, now func() time.Time) *Client {
	t.Helper()
	c, err := NewClient(Config{
		ClientID:    "pvp-client",
		RedirectURI: "https://pvp.example.com/callback",
		APIURI:      f.URL,
	}, store, WithClock(now))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestVerify_ExchangesAndCaches(t *testing.T) {
	f := newFakeLichess(t)
	store := newMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	c := newTestClient(t, f, store, func() time.Time { return now })

	claims, err := c.Verify(context.Background(), "code-1", "verifier-1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	want := Claims{ID: "thibault", Username: "Thibault", Email: "thibault@example.com"}
	if *claims != want {
		t.Errorf("claims = %+v, want %+v", *claims, want)
	}

	wantForm := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "code-1",
		"code_verifier": "verifier-1",
		"redirect_uri":  "https://pvp.example.com/callback",
		"client_id":     "pvp-client",
	}
	for k, v := range wantForm {
		if f.lastForm[k] != v {
			t.Errorf("form %s = %q, want %q", k, f.lastForm[k], v)
		}
	}

	stored := store.tokens["verifier-1"]
	if stored.AccessToken != "lio_abc" || !stored.Expires.Equal(now.Add(time.Hour)) {
		t.Errorf("stored token = %+v", stored)
	}

	// a second attempt with the same verifier reuses the token
	if _, err := c.Verify(context.Background(), "code-1", "verifier-1"); err != nil {
		t.Fatalf("Verify again: %v", err)
	}
	if f.tokenCalls.Load() != 1 {
		t.Errorf("token endpoint called %d times, want 1", f.tokenCalls.Load())
	}
	if f.accountCalls.Load() != 2 || f.emailCalls.Load() != 2 {
		t.Errorf("account/email calls = %d/%d", f.accountCalls.Load(), f.emailCalls.Load())
	}
}

func TestVerify_ExpiredCachedTokenIsExchangedAgain(t *testing.T) {
	f := newFakeLichess(t)
	store := newMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	store.tokens["verifier-1"] = AccessToken{Verifier: "verifier-1", AccessToken: "stale", Expires: now.Add(-time.Second)}
	c := newTestClient(t, f, store, func() time.Time { return now })

	if _, err := c.Verify(context.Background(), "code-1", "verifier-1"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if f.tokenCalls.Load() != 1 {
		t.Errorf("expected a fresh exchange, got %d token calls", f.tokenCalls.Load())
	}
	if store.tokens["verifier-1"].AccessToken != "lio_abc" {
		t.Errorf("expired token not replaced: %+v", store.tokens["verifier-1"])
	}
}

func TestVerify_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*fakeLichess)
		want    error
		comm    bool
		status  int
		account int32
	}{
		{
			name:  "invalid grant",
			setup: func(f *fakeLichess) { f.tokenStatus = http.StatusBadRequest },
			want:  ErrRejected,
		},
		{
			name:   "token endpoint down",
			setup:  func(f *fakeLichess) { f.tokenStatus = http.StatusBadGateway },
			want:   ErrProviderCommunication,
			comm:   true,
			status: http.StatusBadGateway,
		},
		{
			name:    "account rejects token",
			setup:   func(f *fakeLichess) { f.accountStatus = http.StatusUnauthorized },
			want:    ErrRejected,
			account: 1,
		},
		{
			name:    "account malformed",
			setup:   func(f *fakeLichess) { f.accountBody = `{"id":` },
			want:    ErrDecode,
			account: 1,
		},
		{
			name:    "account without id",
			setup:   func(f *fakeLichess) { f.accountBody = `{"username":"x"}` },
			want:    ErrDecode,
			account: 1,
		},
		{
			name:    "account not found",
			setup:   func(f *fakeLichess) { f.accountStatus = http.StatusNotFound },
			want:    ErrProviderCommunication,
			comm:    true,
			status:  http.StatusNotFound,
			account: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeLichess(t)
			tt.setup(f)
			c := newTestClient(t, f, newMemoryStore(), time.Now)

			_, err := c.Verify(context.Background(), "code-1", "verifier-1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var pe *ProviderError
			if errors.As(err, &pe) != tt.comm {
				t.Fatalf("ProviderError = %v, want %v", errors.As(err, &pe), tt.comm)
			}
			if tt.comm && pe.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", pe.StatusCode, tt.status)
			}
			if f.accountCalls.Load() != tt.account {
				t.Errorf("account calls = %d, want %d", f.accountCalls.Load(), tt.account)
			}
		})
	}
}

func TestVerify_Unreachable(t *testing.T) {
	f := newFakeLichess(t)
	f.Close()
	c := newTestClient(t, f, newMemoryStore(), time.Now)

	_, err := c.Verify(context.Background(), "code-1", "verifier-1")
	if !errors.Is(err, ErrProviderCommunication) {
		t.Fatalf("expected provider communication error, got %v", err)
	}
}

func TestVerify_MissingInput(t *testing.T) {
	f := newFakeLichess(t)
	c := newTestClient(t, f, newMemoryStore(), time.Now)
	if _, err := c.Verify(context.Background(), "", "v"); !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
	if f.tokenCalls.Load() != 0 {
		t.Error("no exchange expected")
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{RedirectURI: "x"}, newMemoryStore()); err == nil {
		t.Error("expected error for missing client id")
	}
	if _, err := NewClient(Config{ClientID: "x"}, newMemoryStore()); err == nil {
		t.Error("expected error for missing redirect uri")
	}
}
