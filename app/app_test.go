package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/pvpauth/auth/google"
	"github.com/kbukum/pvpauth/auth/lichess"
	"github.com/kbukum/pvpauth/auth/session"
	"github.com/kbukum/pvpauth/config"
	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/peers"
	"github.com/kbukum/pvpauth/redis"
	"github.com/kbukum/pvpauth/server"
	"github.com/kbukum/pvpauth/version"
)

type noFiles struct{}

func (noFiles) Exists(string) bool    { return false }
func (noFiles) LoadEnv(string) error { return nil }

func validConfig() *Config {
	return &Config{
		ServiceConfig: config.ServiceConfig{
			Name:        "pvpauth-test",
			Version:     "test",
			Environment: "development",
			Logging:     logger.Config{Level: "error"},
		},
		Database: database.Config{URL: "postgres://localhost/pvpauth"},
		JWT:      session.Config{Secret: "0123456789abcdef0123456789abcdef"},
		Google:   google.Config{ClientID: "client.apps.googleusercontent.com"},
		Lichess:  lichess.Config{ClientID: "pvp", RedirectURI: "https://pvp.example/callback"},
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.KeyCache.URL != google.DefaultJWKSURL {
		t.Errorf("keycache url = %q, want google jwks url", cfg.KeyCache.URL)
	}
	if cfg.Peers.Window != peers.DefaultWindow {
		t.Errorf("peers window = %v", cfg.Peers.Window)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d", cfg.Server.Port)
	}
	if cfg.JWT.TTL != 24*time.Hour {
		t.Errorf("jwt ttl = %v", cfg.JWT.TTL)
	}
	if cfg.Database.Driver != database.DriverPostgres {
		t.Errorf("database driver = %q", cfg.Database.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfig_VersionFallsBackToBuild(t *testing.T) {
	cfg := validConfig()
	cfg.Version = ""
	cfg.ApplyDefaults()
	if !strings.HasPrefix(cfg.Version, version.Version) {
		t.Errorf("version = %q, want build version %q", cfg.Version, version.Version)
	}
}

func TestConfig_KeyCacheURLOverride(t *testing.T) {
	cfg := validConfig()
	cfg.KeyCache.URL = "http://keys.internal/certs"
	cfg.ApplyDefaults()
	if cfg.KeyCache.URL != "http://keys.internal/certs" {
		t.Errorf("keycache url = %q", cfg.KeyCache.URL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		section string
	}{
		{"missing jwt secret", func(c *Config) { c.JWT.Secret = "" }, "jwt:"},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "jwt:"},
		{"missing google client", func(c *Config) { c.Google.ClientID = "" }, "google:"},
		{"missing lichess redirect", func(c *Config) { c.Lichess.RedirectURI = "" }, "lichess:"},
		{"missing database url", func(c *Config) { c.Database.URL = "" }, "database:"},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "service:"},
		{"negative rate limit", func(c *Config) { c.Server.AuthRateLimit = -1 }, "server:"},
		{"bad sample rate", func(c *Config) { c.Observability.SampleRate = 2 }, "observability:"},
		{"short token key", func(c *Config) { c.Tokens.Key = "short" }, "tokens:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ApplyDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.HasPrefix(err.Error(), tt.section) {
				t.Errorf("error %q should start with %q", err, tt.section)
			}
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("JWT_ISSUER", "pvp.example")
	t.Setenv("JWT_AUDIENCE", "web,mobile")
	t.Setenv("GOOGLE_CLIENT_ID", "client.apps.googleusercontent.com")
	t.Setenv("LICHESS_CLIENT_ID", "pvp")
	t.Setenv("LICHESS_REDIRECT_URI", "https://pvp.example/callback")
	t.Setenv("LICHESS_API_URI", "https://lichess.dev")
	t.Setenv("LICHESS_TOKEN_EP_PATH", "/api/token")
	t.Setenv("DATABASE_URL", "postgres://db/pvpauth")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("PEERS_WINDOW", "30s")
	t.Setenv("TOKENS_ENCRYPTION_KEY", "token-encryption-key")

	cfg, err := Load(config.WithFileSystem(noFiles{}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "staging" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.JWT.Secret != "0123456789abcdef0123456789abcdef" {
		t.Errorf("jwt secret = %q", cfg.JWT.Secret)
	}
	if len(cfg.JWT.Audiences) != 2 || cfg.JWT.Audiences[1] != "mobile" {
		t.Errorf("jwt audiences = %v", cfg.JWT.Audiences)
	}
	if len(cfg.JWT.Issuers) != 1 || cfg.JWT.Issuers[0] != "pvp.example" {
		t.Errorf("jwt issuers = %v", cfg.JWT.Issuers)
	}
	if cfg.Google.ClientID != "client.apps.googleusercontent.com" {
		t.Errorf("google client = %q", cfg.Google.ClientID)
	}
	if cfg.Lichess.APIURI != "https://lichess.dev" || cfg.Lichess.TokenPath != "/api/token" {
		t.Errorf("lichess = %+v", cfg.Lichess)
	}
	if cfg.Database.URL != "postgres://db/pvpauth" || cfg.Redis.URL != "redis://cache:6379/0" {
		t.Errorf("database = %q, redis = %q", cfg.Database.URL, cfg.Redis.URL)
	}
	if cfg.Peers.Window != 30*time.Second {
		t.Errorf("peers window = %v", cfg.Peers.Window)
	}
	if !cfg.Tokens.Enabled() || cfg.Tokens.Algorithm != "aes-256-gcm" {
		t.Errorf("tokens = %+v", cfg.Tokens)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GOOGLE_CLIENT_ID", "client")
	t.Setenv("LICHESS_CLIENT_ID", "pvp")
	t.Setenv("LICHESS_REDIRECT_URI", "https://pvp.example/callback")
	t.Setenv("DATABASE_URL", "postgres://db/pvpauth")

	if _, err := Load(config.WithFileSystem(noFiles{})); err == nil {
		t.Fatal("expected validation error without JWT_SECRET")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.Secret = ""
	if _, err := New(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew_RegistersInfrastructure(t *testing.T) {
	a, err := New(validConfig(), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var names []string
	for _, c := range a.Components.All() {
		names = append(names, c.Name())
	}
	want := "observability,database,redis,keycache"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("components = %s, want %s", got, want)
	}
	if a.Server() != nil {
		t.Error("server should not exist before Start")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func localConfig(t *testing.T, redisURL string) *Config {
	t.Helper()
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write([]byte(`{"keys":[{"kid":"k1","kty":"RSA","alg":"RS256","use":"sig","n":"AQAB","e":"AQAB"}]}`))
	}))
	t.Cleanup(jwks.Close)

	cfg := validConfig()
	cfg.Server = server.Config{Host: "127.0.0.1", Port: freePort(t), AuthRateLimit: 100}
	cfg.Database = database.Config{
		Driver:   database.DriverSQLite,
		URL:      "file:pvpauth_app_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}
	cfg.Redis = redis.Config{URL: redisURL}
	cfg.Tokens.Key = "token-encryption-key"
	cfg.KeyCache.URL = jwks.URL
	return cfg
}

func TestApp_StartServeShutdown(t *testing.T) {
	mini := miniredis.RunT(t)
	var summary bytes.Buffer
	a, err := New(localConfig(t, "redis://"+mini.Addr()),
		WithLogger(logger.Nop()),
		WithSummaryWriter(&summary),
		WithGracefulTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ready := false
	a.OnReady(func(context.Context) error { ready = true; return nil })
	stopped := false
	a.OnStop(func(context.Context) error { stopped = true; return nil })

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !ready {
		t.Error("OnReady hook did not run")
	}
	if err := a.ReadyCheck(context.Background()); err != nil {
		t.Errorf("ReadyCheck: %v", err)
	}

	base := "http://" + a.Server().Addr()

	resp, err := http.Get(base + "/readiness")
	if err != nil {
		t.Fatalf("GET /readiness: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readiness status = %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/users")
	if err != nil {
		t.Fatalf("GET /users: %v", err)
	}
	var users []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(users) != 0 {
		t.Errorf("GET /users = %d %v", resp.StatusCode, users)
	}

	resp, err = http.Post(base+"/auth/signin", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST /auth/signin: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("signin without oauthData = %d, want 400", resp.StatusCode)
	}

	out := summary.String()
	for _, want := range []string{"pvpauth-test vtest", "Routes", "/auth/signin", "keycache"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !stopped {
		t.Error("OnStop hook did not run")
	}
	if _, err := http.Get(base + "/liveness"); err == nil {
		t.Error("server still accepting connections after Shutdown")
	}
}

func TestApp_StartFailsWithoutRedis(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	a, err := New(localConfig(t, "redis://"+addr), WithLogger(logger.Nop()), WithSummaryWriter(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail")
	}
	if a.Server() != nil {
		t.Error("server should not be built when infrastructure fails")
	}
}
