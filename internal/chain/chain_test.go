package chain

import "testing"

func TestGetRegisteredChains(t *testing.T) {
	tests := []struct {
		symbol   string
		network  Network
		wantType Type
		wantHash string
	}{
		{"ETH", Mainnet, TypeEVM, HashKeccak256},
		{"ETH", Testnet, TypeEVM, HashKeccak256},
		{"EOS", Testnet, TypeEOS, HashSHA256},
		{"ALGO", Testnet, TypeAlgorand, HashSHA256},
	}

	for _, tt := range tests {
		t.Run(tt.symbol+"/"+string(tt.network), func(t *testing.T) {
			params, ok := Get(tt.symbol, tt.network)
			if !ok {
				t.Fatalf("Get(%s, %s) not found", tt.symbol, tt.network)
			}
			if params.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", params.Type, tt.wantType)
			}
			if params.HashConvention != tt.wantHash {
				t.Errorf("HashConvention = %s, want %s", params.HashConvention, tt.wantHash)
			}
			if params.Symbol != tt.symbol {
				t.Errorf("Symbol = %s, want %s", params.Symbol, tt.symbol)
			}
		})
	}
}

func TestGetUnknownChain(t *testing.T) {
	if _, ok := Get("DOGE", Mainnet); ok {
		t.Error("Get(DOGE) should not be registered")
	}
	if IsSupported("DOGE") {
		t.Error("IsSupported(DOGE) should be false")
	}
}

func TestGetByChainID(t *testing.T) {
	params, ok := GetByChainID(11155111, Testnet)
	if !ok {
		t.Fatal("GetByChainID(11155111) not found")
	}
	if params.Name != "Ethereum Sepolia" {
		t.Errorf("Name = %s, want Ethereum Sepolia", params.Name)
	}

	if _, ok := GetByChainID(99999, Mainnet); ok {
		t.Error("GetByChainID(99999) should not be found")
	}
}

func TestSupportsHash(t *testing.T) {
	eth, _ := Get("ETH", Testnet)
	eos, _ := Get("EOS", Testnet)

	if !eth.SupportsHash(HashKeccak256) {
		t.Error("ETH should support keccak256")
	}
	if !eth.SupportsHash(HashSHA256) {
		t.Error("ETH should support sha256 (EVM can compute both)")
	}
	if !eos.SupportsHash(HashSHA256) {
		t.Error("EOS should support sha256")
	}
	if eos.SupportsHash(HashKeccak256) {
		t.Error("EOS should not support keccak256")
	}
}

func TestListByType(t *testing.T) {
	evm := ListByType(TypeEVM)
	found := false
	for _, s := range evm {
		if s == "ETH" {
			found = true
		}
	}
	if !found {
		t.Errorf("ListByType(evm) = %v, want to contain ETH", evm)
	}
}
