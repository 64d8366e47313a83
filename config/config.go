// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Chain parameters: announcer, scheme id and wallet factories, fixed per chain
//   - Client settings: runtime configuration, can vary per installation
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies the target chain.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Devnet  NetworkType = "devnet"
)

// =============================================================================
// Client Configuration (runtime settings)
// =============================================================================

// Config holds client runtime configuration.
type Config struct {
	// Core
	Network   NetworkType `conf:"network"`
	DataDir   string      `conf:"datadir"`
	ChainFile string      `conf:"chain.file"` // Optional JSON chain params override

	// Ethereum JSON-RPC endpoint
	RPC RPCConfig

	// Announcement scanning
	Scan ScanConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds the event source settings.
type RPCConfig struct {
	Endpoint  string        `conf:"rpc.endpoint"`
	Timeout   time.Duration `conf:"rpc.timeout"`
	RateLimit int           `conf:"rpc.ratelimit"` // Max log requests per second (0 = unlimited)
}

// ScanConfig holds scanner settings.
type ScanConfig struct {
	BlockRange uint64 `conf:"scan.blockrange"` // Blocks per eth_getLogs request
	Workers    int    `conf:"scan.workers"`    // Concurrent candidate verifiers
}

// MaxBlockRange caps a single log request. Most providers reject more.
const MaxBlockRange = 100_000

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-stealth
//	macOS:   ~/Library/Application Support/KlingnetStealth
//	Windows: %APPDATA%\KlingnetStealth
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-stealth"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetStealth")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetStealth")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetStealth")
	default:
		return filepath.Join(home, ".klingnet-stealth")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StoreDir returns the local key-value store directory.
func (c *Config) StoreDir() string {
	return filepath.Join(c.ChainDataDir(), "store")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "stealth.conf")
}

// ChainParams resolves the chain parameters for this configuration: the
// JSON override when set, otherwise the network preset.
func (c *Config) ChainParams() (*ChainParams, error) {
	if c.ChainFile != "" {
		return LoadChainParams(c.ChainFile)
	}
	return ParamsFor(c.Network)
}
