// Package chain defines chain parameters for the networks the bridge connects.
// All chain-specific constants are hardcoded here - no external configuration needed.
package chain

// Network represents mainnet or testnet.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// Type represents the blockchain family.
type Type string

const (
	TypeEVM      Type = "evm"      // Ethereum and EVM chains
	TypeEOS      Type = "eos"      // EOSIO chains
	TypeAlgorand Type = "algorand" // Algorand
)

// Hash conventions for hashlock computation.
// EVM escrows verify keccak256 on-chain; EOSIO and Algorand contracts
// verify sha256. Both legs of a swap must use the SAME convention -
// the swap package validates this before any funds move.
const (
	HashSHA256    = "sha256"
	HashKeccak256 = "keccak256"
)

// Params contains all parameters for a blockchain.
type Params struct {
	// Identity
	Symbol   string // ETH, EOS, ALGO
	Name     string // Ethereum Sepolia, Jungle4, etc.
	Type     Type
	Network  Network
	Decimals uint8 // 18 for ETH, 4 for EOS, 6 for ALGO

	// EVM params
	ChainID uint64 // EVM chain ID (0 for non-EVM)

	// Hash convention natively verified by this chain's HTLC contract.
	HashConvention string

	// Timing
	AvgBlockTimeSeconds uint32
}

// SupportsHash returns true if this chain's HTLC contract can verify
// the given hash convention.
func (p *Params) SupportsHash(convention string) bool {
	if p.HashConvention == convention {
		return true
	}
	// EVM contracts can compute both primitives; non-EVM contracts
	// are limited to sha256.
	return p.Type == TypeEVM && convention == HashSHA256
}

// Registry holds all chain parameters indexed by symbol.
var registry = make(map[string]map[Network]*Params)

// Register adds chain params to the registry.
func Register(symbol string, network Network, params *Params) {
	if registry[symbol] == nil {
		registry[symbol] = make(map[Network]*Params)
	}
	registry[symbol][network] = params
}

// Get returns chain params for a symbol and network.
func Get(symbol string, network Network) (*Params, bool) {
	nets, ok := registry[symbol]
	if !ok {
		return nil, false
	}
	params, ok := nets[network]
	return params, ok
}

// List returns all registered chain symbols.
func List() []string {
	symbols := make([]string, 0, len(registry))
	for symbol := range registry {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// ListByType returns all chains of a specific type.
func ListByType(chainType Type) []string {
	var symbols []string
	for symbol, nets := range registry {
		for _, params := range nets {
			if params.Type == chainType {
				symbols = append(symbols, symbol)
				break
			}
		}
	}
	return symbols
}

// IsSupported returns true if the chain is registered.
func IsSupported(symbol string) bool {
	_, ok := registry[symbol]
	return ok
}

// GetByChainID returns chain params for an EVM chain ID.
func GetByChainID(chainID uint64, network Network) (*Params, bool) {
	for _, nets := range registry {
		if params, ok := nets[network]; ok {
			if params.Type == TypeEVM && params.ChainID == chainID {
				return params, true
			}
		}
	}
	return nil, false
}
