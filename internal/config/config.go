// Package config holds swap timing policy and per-network endpoints.
package config

import (
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
)

// SwapConfig contains timing parameters for atomic swaps.
// The destination lock must expire well before the source lock so the
// counterparty can always claim on the source chain after revealing the
// secret on the destination chain.
type SwapConfig struct {
	// SourceLockTime is how long the initiator's funds are locked.
	SourceLockTime time.Duration

	// DestinationLockTime is how long the counterparty's funds are
	// locked. Must be shorter than SourceLockTime by at least
	// MinLockDelta.
	DestinationLockTime time.Duration

	// MinLockDelta is the minimum gap between destination expiry and
	// source expiry.
	MinLockDelta time.Duration

	// MinFutureMargin is the minimum time a new lock's expiry must lie
	// in the future.
	MinFutureMargin time.Duration

	// SecretSize is the preimage length in bytes.
	SecretSize int
}

// DefaultSwapConfig returns the standard swap timing parameters.
func DefaultSwapConfig() SwapConfig {
	return SwapConfig{
		SourceLockTime:      24 * time.Hour,
		DestinationLockTime: 12 * time.Hour,
		MinLockDelta:        6 * time.Hour,
		MinFutureMargin:     15 * time.Minute,
		SecretSize:          32,
	}
}

// ChainPolicy contains per-chain safety parameters.
type ChainPolicy struct {
	// MinConfirmations before a lock is considered final.
	MinConfirmations uint32

	// SafetyMarginSeconds before a timelock expiry after which the
	// bridge refuses to start a claim.
	SafetyMarginSeconds uint32
}

// ChainPolicies maps chain symbol to its safety policy.
var ChainPolicies = map[string]ChainPolicy{
	"ETH":  {MinConfirmations: 3, SafetyMarginSeconds: 600},
	"EOS":  {MinConfirmations: 1, SafetyMarginSeconds: 300},
	"ALGO": {MinConfirmations: 1, SafetyMarginSeconds: 300},
}

// PolicyFor returns the safety policy for a chain, or a conservative
// default for unknown chains.
func PolicyFor(symbol string) ChainPolicy {
	if p, ok := ChainPolicies[symbol]; ok {
		return p
	}
	return ChainPolicy{MinConfirmations: 6, SafetyMarginSeconds: 900}
}

// IsSafeToClaim returns true if enough time remains before the timelock
// expires to submit and confirm a claim on the given chain.
func IsSafeToClaim(symbol string, now, timelock time.Time) bool {
	policy := PolicyFor(symbol)
	margin := time.Duration(policy.SafetyMarginSeconds) * time.Second
	return now.Add(margin).Before(timelock)
}

// ChainEndpoints contains per-network connection parameters.
type ChainEndpoints struct {
	RPCEndpoint  string
	HTLCContract string // contract address / account / app ID
	ExplorerURL  string
}

// Endpoints maps chain symbol to per-network endpoints.
var Endpoints = map[string]map[chain.Network]ChainEndpoints{
	"ETH": {
		chain.Mainnet: {
			RPCEndpoint: "https://eth.llamarpc.com",
			ExplorerURL: "https://etherscan.io",
		},
		chain.Testnet: {
			RPCEndpoint:  "https://ethereum-sepolia-rpc.publicnode.com",
			HTLCContract: "0x342EB13550e171595C1c23a60B1c109b68E57968",
			ExplorerURL:  "https://sepolia.etherscan.io",
		},
	},
	"EOS": {
		chain.Mainnet: {
			RPCEndpoint: "https://eos.greymass.com",
			ExplorerURL: "https://bloks.io",
		},
		chain.Testnet: {
			RPCEndpoint:  "https://jungle4.greymass.com",
			HTLCContract: "fusionbridge",
			ExplorerURL:  "https://jungle4.eosq.eosnation.io",
		},
	},
	"ALGO": {
		chain.Mainnet: {
			RPCEndpoint: "https://mainnet-api.algonode.cloud",
			ExplorerURL: "https://allo.info",
		},
		chain.Testnet: {
			RPCEndpoint:  "https://testnet-api.algonode.cloud",
			HTLCContract: "743652656", // HTLC application ID
			ExplorerURL:  "https://testnet.explorer.perawallet.app",
		},
	},
}

func networkFromString(s string) chain.Network {
	if s == "mainnet" {
		return chain.Mainnet
	}
	return chain.Testnet
}

// EndpointsFor returns the endpoints for a chain and network.
func EndpointsFor(symbol string, network chain.Network) (ChainEndpoints, bool) {
	nets, ok := Endpoints[symbol]
	if !ok {
		return ChainEndpoints{}, false
	}
	ep, ok := nets[network]
	return ep, ok
}
