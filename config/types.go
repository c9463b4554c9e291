package config

import (
	"strings"

	"bondfarm/native/farm"
	"bondfarm/observability/otel"
)

// Storage selects the state database.
type Storage struct {
	// Backend is one of memory, leveldb or bolt.
	Backend string `toml:"Backend"`
	Path    string `toml:"Path"`
}

// Auth controls bearer token verification on the submit endpoint.
type Auth struct {
	Enabled bool `toml:"Enabled"`
	// HMACSecretEnv names the environment variable holding the HS256 secret.
	HMACSecretEnv string `toml:"HMACSecretEnv"`
	Issuer        string `toml:"Issuer"`
	Audience      string `toml:"Audience"`
	// ClockSkewSeconds is the leeway allowed on exp and nbf.
	ClockSkewSeconds int64 `toml:"ClockSkewSeconds"`
}

// RateLimit bounds requests per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Farm overrides the staking lock and early-exit fee.
type Farm struct {
	LockDurationSeconds int64  `toml:"LockDurationSeconds"`
	WithdrawFeePercent  uint64 `toml:"WithdrawFeePercent"`
}

// Params converts the section into engine parameters.
func (f Farm) Params() farm.Params {
	return farm.Params{
		LockDuration:       f.LockDurationSeconds,
		WithdrawFeePercent: f.WithdrawFeePercent,
	}
}

type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// OTel converts the section into exporter settings for service.
func (t Telemetry) OTel(service, env string) otel.Config {
	return otel.Config{
		ServiceName: service,
		Environment: env,
		Endpoint:    strings.TrimSpace(t.Endpoint),
		Insecure:    t.Insecure,
		Headers:     otel.ParseHeaders(t.Headers),
		Metrics:     t.Metrics,
		Traces:      t.Traces,
		SampleRatio: t.SampleRatio,
	}
}
