// Package htlc implements hash time-locked contract primitives shared
// by every chain leg: secret generation, hashlock computation and the
// lock record model.
package htlc

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashAlgo selects the hashlock primitive. Both legs of a swap must
// use the same algorithm or the secret revealed on one chain will not
// open the lock on the other.
type HashAlgo string

const (
	// HashSHA256 is verified natively by EOSIO and Algorand contracts.
	HashSHA256 HashAlgo = "sha256"

	// HashKeccak256 is the EVM-native primitive.
	HashKeccak256 HashAlgo = "keccak256"
)

// SecretSize is the preimage length in bytes.
const SecretSize = 32

// ErrUnknownHashAlgo is returned for hash algorithms outside the
// supported set.
var ErrUnknownHashAlgo = errors.New("unknown hash algorithm")

// GenerateSecret returns a new random preimage. The secret must stay
// off-chain until the destination leg is claimed.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return secret, nil
}

// ComputeHashlock hashes a secret with the given algorithm.
func ComputeHashlock(algo HashAlgo, secret []byte) ([32]byte, error) {
	var hashlock [32]byte
	switch algo {
	case HashSHA256:
		hashlock = sha256.Sum256(secret)
	case HashKeccak256:
		h := sha3.NewLegacyKeccak256()
		h.Write(secret)
		copy(hashlock[:], h.Sum(nil))
	default:
		return hashlock, fmt.Errorf("%w: %q", ErrUnknownHashAlgo, algo)
	}
	return hashlock, nil
}

// VerifySecret checks a candidate preimage against a hashlock in
// constant time.
func VerifySecret(algo HashAlgo, secret []byte, hashlock [32]byte) (bool, error) {
	computed, err := ComputeHashlock(algo, secret)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(computed[:], hashlock[:]) == 1, nil
}
