package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the daemon configuration loaded from bridged.yaml.
type FileConfig struct {
	// Network selects mainnet or testnet endpoints.
	Network string `yaml:"network"`

	// API server
	APIAddr string `yaml:"api_addr"`

	// DataDir for the sqlite database.
	DataDir string `yaml:"data_dir"`

	LogLevel string `yaml:"log_level"`

	// Per-chain overrides. Empty fields fall back to the built-in
	// endpoints for the selected network.
	Chains map[string]ChainFileConfig `yaml:"chains"`

	// Swap timing overrides.
	Swap SwapFileConfig `yaml:"swap"`
}

// ChainFileConfig overrides connection parameters for one chain.
type ChainFileConfig struct {
	RPCEndpoint  string `yaml:"rpc_endpoint"`
	HTLCContract string `yaml:"htlc_contract"`

	// PrivateKey is the raw signing credential for the chain: a hex
	// secp256k1 key for EVM chains, a WIF key for EOS, or the 25-word
	// account mnemonic for Algorand. The daemon does no key derivation
	// or storage.
	PrivateKey string `yaml:"private_key"`

	// Account is the EOS account that signs actions and owns the
	// locks. EVM and Algorand derive the signer from the key and
	// ignore this field.
	Account string `yaml:"account"`
}

// SwapFileConfig overrides swap timing. Zero values keep the defaults.
type SwapFileConfig struct {
	SourceLockTime      time.Duration `yaml:"source_lock_time"`
	DestinationLockTime time.Duration `yaml:"destination_lock_time"`
}

// ConfigFileName is the expected config file name inside the data dir.
const ConfigFileName = "bridged.yaml"

// DefaultFileConfig returns the config used when no file is present.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Network:  "testnet",
		APIAddr:  "127.0.0.1:9373",
		DataDir:  defaultDataDir(),
		LogLevel: "info",
		Chains:   make(map[string]ChainFileConfig),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bridged"
	}
	return filepath.Join(home, ".bridged")
}

// Load reads the config file from dir, falling back to defaults when
// the file does not exist.
func Load(dir string) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	if dir != "" {
		cfg.DataDir = dir
	}

	path := filepath.Join(cfg.DataDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Network != "mainnet" && cfg.Network != "testnet" {
		return nil, fmt.Errorf("invalid network %q: must be mainnet or testnet", cfg.Network)
	}
	return cfg, nil
}

// SwapConfig returns the effective swap timing after applying file
// overrides to the defaults.
func (c *FileConfig) SwapConfig() SwapConfig {
	sc := DefaultSwapConfig()
	if c.Swap.SourceLockTime > 0 {
		sc.SourceLockTime = c.Swap.SourceLockTime
	}
	if c.Swap.DestinationLockTime > 0 {
		sc.DestinationLockTime = c.Swap.DestinationLockTime
	}
	return sc
}

// ChainEndpoints returns the effective endpoints for a chain after
// applying file overrides to the built-in defaults.
func (c *FileConfig) ChainEndpoints(symbol string) ChainEndpoints {
	network := networkFromString(c.Network)
	ep, _ := EndpointsFor(symbol, network)
	if override, ok := c.Chains[symbol]; ok {
		if override.RPCEndpoint != "" {
			ep.RPCEndpoint = override.RPCEndpoint
		}
		if override.HTLCContract != "" {
			ep.HTLCContract = override.HTLCContract
		}
	}
	return ep
}
