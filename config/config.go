package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bondfarm/native/farm"
	"bondfarm/storage"
)

const (
	BackendMemory  = storage.BackendMemory
	BackendLevelDB = storage.BackendLevelDB
	BackendBolt    = storage.BackendBolt
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	Environment   string `toml:"Environment"`
	GenesisFile   string `toml:"GenesisFile"`
	// EventHistory is the number of committed events kept for the events
	// endpoint.
	EventHistory int `toml:"EventHistory"`

	Storage   Storage   `toml:"storage"`
	Auth      Auth      `toml:"auth"`
	RateLimit RateLimit `toml:"rate_limit"`
	Farm      Farm      `toml:"farm"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Default returns the configuration written on first start.
func Default(dataDir string) *Config {
	params := farm.DefaultParams()
	return &Config{
		ListenAddress: ":8480",
		Environment:   "dev",
		EventHistory:  512,
		Storage: Storage{
			Backend: BackendLevelDB,
			Path:    filepath.Join(dataDir, "state"),
		},
		Auth: Auth{
			HMACSecretEnv:    "BONDFARM_JWT_SECRET",
			Issuer:           "bondfarm",
			ClockSkewSeconds: 30,
		},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
		Farm: Farm{
			LockDurationSeconds: params.LockDuration,
			WithdrawFeePercent:  params.WithdrawFeePercent,
		},
		Logging: Logging{Level: "info", MaxSizeMB: 100, MaxAgeDays: 14},
	}
}

// Load loads the configuration from the given path, writing the defaults
// when the file does not exist yet.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path must be provided")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default(filepath.Dir(path))
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendLevelDB
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	c.GenesisFile = strings.TrimSpace(c.GenesisFile)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default(filepath.Dir(path))
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// JWTSecret resolves the HMAC secret from the configured environment variable.
func (c *Config) JWTSecret() ([]byte, error) {
	if !c.Auth.Enabled {
		return nil, nil
	}
	secret := strings.TrimSpace(os.Getenv(c.Auth.HMACSecretEnv))
	if secret == "" {
		return nil, fmt.Errorf("auth enabled but %s is empty", c.Auth.HMACSecretEnv)
	}
	return []byte(secret), nil
}
