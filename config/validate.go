package config

import (
	"fmt"
	"strings"
)

var (
	MaxWithdrawFeePercent = uint64(100)
	MaxEventHistory       = 65_536
)

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("ListenAddress must be set")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLevelDB, BackendBolt:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage: Path required for %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if c.Auth.Enabled {
		if strings.TrimSpace(c.Auth.HMACSecretEnv) == "" {
			return fmt.Errorf("auth: HMACSecretEnv required when enabled")
		}
		if c.Auth.ClockSkewSeconds < 0 {
			return fmt.Errorf("auth: ClockSkewSeconds must not be negative")
		}
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when RequestsPerSecond is set")
	}
	if c.Farm.LockDurationSeconds < 0 {
		return fmt.Errorf("farm: LockDurationSeconds must not be negative")
	}
	if c.Farm.WithdrawFeePercent > MaxWithdrawFeePercent {
		return fmt.Errorf("farm: WithdrawFeePercent above %d", MaxWithdrawFeePercent)
	}
	if c.EventHistory < 0 || c.EventHistory > MaxEventHistory {
		return fmt.Errorf("EventHistory must be within [0, %d]", MaxEventHistory)
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0, 1]")
	}
	return nil
}
