package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	JWT struct {
		Secret   string   `mapstructure:"secret"`
		Audience []string `mapstructure:"audience"`
	} `mapstructure:"jwt"`
	Lichess struct {
		ClientID    string `mapstructure:"client_id"`
		TokenEpPath string `mapstructure:"token_ep_path"`
	} `mapstructure:"lichess"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{}
	cfg.ApplyDefaults()
	if cfg.Name != "pvpauth" {
		t.Errorf("expected default name, got %q", cfg.Name)
	}
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("expected development with debug, got %+v", cfg)
	}

	prod := ServiceConfig{Name: "svc", Environment: "production"}
	prod.ApplyDefaults()
	if prod.Debug {
		t.Error("expected debug=false for production")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Fatalf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
name: pvpauth-test
environment: staging
timeout: 5s
jwt:
  secret: from-yaml
lichess:
  client_id: yaml-client
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("pvpauth-test", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "pvpauth-test" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.JWT.Secret != "from-yaml" || cfg.Lichess.ClientID != "yaml-client" {
		t.Errorf("unexpected nested values: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout)
	}
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("jwt:\n  secret: from-yaml\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("JWT_AUDIENCE", "web,mobile")
	t.Setenv("LICHESS_TOKEN_EP_PATH", "/api/token")

	var cfg testConfig
	if err := LoadConfig("pvpauth-test", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Errorf("secret = %q, want env value", cfg.JWT.Secret)
	}
	if !slices.Equal(cfg.JWT.Audience, []string{"web", "mobile"}) {
		t.Errorf("audience = %v", cfg.JWT.Audience)
	}
	if cfg.Lichess.TokenEpPath != "/api/token" {
		t.Errorf("token path = %q", cfg.Lichess.TokenEpPath)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("LICHESS_CLIENT_ID=dotenv-client\n"), 0o644); err != nil {
		t.Fatalf("failed to write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LICHESS_CLIENT_ID") })

	var cfg testConfig
	if err := LoadConfig("pvpauth-test", &cfg, WithEnvFile(envPath), WithConfigFile(filepath.Join(dir, "missing.yml"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Lichess.ClientID != "dotenv-client" {
		t.Errorf("client id = %q", cfg.Lichess.ClientID)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/pvpauth/config.yml": true,
		".env":                     true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("pvpauth", LoaderConfig{})
	if files.ConfigFile != "./cmd/pvpauth/config.yml" {
		t.Errorf("config file = %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("env file = %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("pvpauth", LoaderConfig{ConfigFile: "/etc/pvpauth.yml"})
	if explicit.ConfigFile != "/etc/pvpauth.yml" {
		t.Errorf("explicit config file ignored: %q", explicit.ConfigFile)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("LICHESS_TOKEN_EP_PATH")
	for _, want := range []string{"lichess_token_ep_path", "lichess.token_ep_path", "lichess.token.ep.path"} {
		if !slices.Contains(got, want) {
			t.Errorf("missing variant %q in %v", want, got)
		}
	}
	if got := generateEnvKeyVariants("PATH"); !slices.Equal(got, []string{"path"}) {
		t.Errorf("single-part variants = %v", got)
	}
}
