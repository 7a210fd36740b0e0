package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
)

func TestDefaultSwapConfig(t *testing.T) {
	sc := DefaultSwapConfig()

	if sc.SourceLockTime != 24*time.Hour {
		t.Errorf("SourceLockTime = %v, want 24h", sc.SourceLockTime)
	}
	if sc.DestinationLockTime != 12*time.Hour {
		t.Errorf("DestinationLockTime = %v, want 12h", sc.DestinationLockTime)
	}
	if sc.DestinationLockTime+sc.MinLockDelta > sc.SourceLockTime {
		t.Error("destination lock plus delta must not exceed source lock")
	}
	if sc.SecretSize != 32 {
		t.Errorf("SecretSize = %d, want 32", sc.SecretSize)
	}
}

func TestIsSafeToClaim(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		symbol   string
		timelock time.Time
		want     bool
	}{
		{"plenty of time", "ETH", now.Add(2 * time.Hour), true},
		{"inside safety margin", "ETH", now.Add(5 * time.Minute), false},
		{"already expired", "ETH", now.Add(-time.Minute), false},
		{"unknown chain conservative", "XYZ", now.Add(10 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSafeToClaim(tt.symbol, now, tt.timelock); got != tt.want {
				t.Errorf("IsSafeToClaim() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEndpointsFor(t *testing.T) {
	ep, ok := EndpointsFor("ETH", chain.Testnet)
	if !ok {
		t.Fatal("EndpointsFor(ETH, testnet) not found")
	}
	if ep.RPCEndpoint == "" {
		t.Error("testnet ETH endpoint should not be empty")
	}

	if _, ok := EndpointsFor("DOGE", chain.Testnet); ok {
		t.Error("EndpointsFor(DOGE) should not be found")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %s, want testnet", cfg.Network)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %s, want %s", cfg.DataDir, dir)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `network: testnet
api_addr: "127.0.0.1:19373"
log_level: debug
chains:
  ETH:
    rpc_endpoint: "http://localhost:8545"
swap:
  source_lock_time: 48h
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:19373" {
		t.Errorf("APIAddr = %s", cfg.APIAddr)
	}

	sc := cfg.SwapConfig()
	if sc.SourceLockTime != 48*time.Hour {
		t.Errorf("SourceLockTime = %v, want 48h", sc.SourceLockTime)
	}
	if sc.DestinationLockTime != 12*time.Hour {
		t.Errorf("DestinationLockTime = %v, want default 12h", sc.DestinationLockTime)
	}

	ep := cfg.ChainEndpoints("ETH")
	if ep.RPCEndpoint != "http://localhost:8545" {
		t.Errorf("RPCEndpoint = %s, want override", ep.RPCEndpoint)
	}
	if ep.HTLCContract == "" {
		t.Error("HTLCContract should keep the built-in default")
	}
}

func TestLoadInvalidNetwork(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("network: devnet\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load() should reject invalid network")
	}
}
