package config

import (
	"fmt"
	"net/url"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Devnet:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Devnet)
	}
	if cfg.RPC.Endpoint == "" {
		return fmt.Errorf("rpc.endpoint must be set")
	}
	u, err := url.Parse(cfg.RPC.Endpoint)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("rpc.endpoint %q is not a valid URL", cfg.RPC.Endpoint)
	}
	if cfg.RPC.Timeout < 0 {
		return fmt.Errorf("rpc.timeout must not be negative")
	}
	if cfg.RPC.RateLimit < 0 {
		return fmt.Errorf("rpc.ratelimit must not be negative")
	}
	if cfg.Scan.BlockRange == 0 || cfg.Scan.BlockRange > MaxBlockRange {
		return fmt.Errorf("scan.blockrange must be in range [1, %d]", MaxBlockRange)
	}
	if cfg.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error")
	}
	return nil
}
