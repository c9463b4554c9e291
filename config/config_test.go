package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bondfarm/native/farm"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "farmd.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config on disk: %v", err)
	}
	if cfg.Storage.Backend != BackendLevelDB {
		t.Fatalf("unexpected backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Path != filepath.Join(dir, "nested", "state") {
		t.Fatalf("unexpected storage path %q", cfg.Storage.Path)
	}
	if cfg.Farm.Params() != farm.DefaultParams() {
		t.Fatalf("default farm params drifted: %+v", cfg.Farm.Params())
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ListenAddress != cfg.ListenAddress || reloaded.RateLimit != cfg.RateLimit {
		t.Fatalf("reloaded config differs: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "farmd.toml")
	contents := `ListenAddress = "127.0.0.1:9000"
Environment = "prod"
GenesisFile = " genesis.yaml "
EventHistory = 64

[storage]
Backend = "Bolt"
Path = "/var/lib/bondfarm/state.db"

[auth]
Enabled = true
HMACSecretEnv = "FARMD_TEST_SECRET"
Issuer = "ops"
Audience = "farmd"

[rate_limit]
RequestsPerSecond = 2.5
Burst = 5

[farm]
LockDurationSeconds = 60
WithdrawFeePercent = 3

[logging]
Level = "debug"
File = "/var/log/farmd.log"

[telemetry]
Endpoint = "collector:4318"
Traces = true
SampleRatio = 0.25
Headers = "x-api-key=abc"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendBolt || cfg.GenesisFile != "genesis.yaml" {
		t.Fatalf("unexpected storage %+v genesis %q", cfg.Storage, cfg.GenesisFile)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Audience != "farmd" || cfg.Auth.ClockSkewSeconds != 30 {
		t.Fatalf("unexpected auth %+v", cfg.Auth)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	params := cfg.Farm.Params()
	if params.LockDuration != 60 || params.WithdrawFeePercent != 3 {
		t.Fatalf("unexpected farm params %+v", params)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.MaxSizeMB != 100 {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
	otelCfg := cfg.Telemetry.OTel("farmd", cfg.Environment)
	if otelCfg.Headers["x-api-key"] != "abc" || !otelCfg.Traces || otelCfg.SampleRatio != 0.25 {
		t.Fatalf("unexpected telemetry %+v", otelCfg)
	}

	t.Setenv("FARMD_TEST_SECRET", "s3cret")
	secret, err := cfg.JWTSecret()
	if err != nil || string(secret) != "s3cret" {
		t.Fatalf("unexpected secret %q err %v", secret, err)
	}
	t.Setenv("FARMD_TEST_SECRET", "")
	if _, err := cfg.JWTSecret(); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmd.toml")
	if err := os.WriteFile(path, []byte("ListenAddress = \":1\"\nValidatorKey = \"abc\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "ValidatorKey") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty listen":      func(c *Config) { c.ListenAddress = "" },
		"unknown backend":   func(c *Config) { c.Storage.Backend = "sqlite" },
		"missing path":      func(c *Config) { c.Storage.Path = "" },
		"auth without env":  func(c *Config) { c.Auth.Enabled = true; c.Auth.HMACSecretEnv = "" },
		"burst missing":     func(c *Config) { c.RateLimit.Burst = 0 },
		"negative lock":     func(c *Config) { c.Farm.LockDurationSeconds = -1 },
		"fee above hundred": func(c *Config) { c.Farm.WithdrawFeePercent = 101 },
		"history too large": func(c *Config) { c.EventHistory = MaxEventHistory + 1 },
		"sample ratio":      func(c *Config) { c.Telemetry.SampleRatio = 1.5 },
	}
	if err := Default(t.TempDir()).Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	memory := Default("")
	memory.Storage = Storage{Backend: BackendMemory}
	if err := memory.Validate(); err != nil {
		t.Fatalf("memory backend needs no path: %v", err)
	}
}
