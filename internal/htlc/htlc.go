package htlc

import (
	"errors"
	"time"
)

// Status of an on-chain lock.
type Status string

const (
	// StatusCreated means funds are locked and unspent.
	StatusCreated Status = "created"

	// StatusClaimed means the recipient redeemed with the secret.
	StatusClaimed Status = "claimed"

	// StatusRefunded means the sender recovered funds after expiry.
	StatusRefunded Status = "refunded"

	// StatusCancelled means the lock was abandoned before funding.
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true once a lock can no longer change state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusClaimed, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// Record describes one hash time-locked contract on one chain.
type Record struct {
	// ID identifies the lock on its chain: a contract-derived 32-byte
	// id on EVM, a table primary key on EOSIO, a lock key on Algorand.
	ID string

	// Chain symbol the lock lives on (ETH, EOS, ALGO).
	Chain string

	Sender    string
	Recipient string

	// Amount in the chain's smallest unit (wei, 1e-4 EOS, microalgo).
	Amount uint64

	Hashlock [32]byte
	HashAlgo HashAlgo

	// Timelock is the absolute expiry. Before it, only the recipient
	// can claim with the secret; after it, only the sender can refund.
	Timelock time.Time

	Status Status

	// Secret is populated once a claim reveals the preimage on-chain.
	Secret []byte

	// Transaction ids, one per mutating operation.
	CreateTxID string
	ClaimTxID  string
	RefundTxID string

	CreatedAt time.Time
}

// Validation errors. Returned before any transaction is broadcast.
var (
	ErrInvalidTimelock   = errors.New("invalid timelock")
	ErrHashAlgoMismatch  = errors.New("hash algorithm mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Logical state errors. Returned when an operation conflicts with the
// lock's on-chain state. Never retried.
var (
	ErrSecretMismatch     = errors.New("secret does not match hashlock")
	ErrAlreadyClaimed     = errors.New("lock already claimed")
	ErrAlreadyRefunded    = errors.New("lock already refunded")
	ErrNotYetFunded       = errors.New("lock not yet funded")
	ErrTimelockNotExpired = errors.New("timelock has not expired")
	ErrTimelockExpired    = errors.New("timelock has expired")
	ErrLockNotFound       = errors.New("lock not found")
)

// ValidateTimelock rejects expiries that are in the past or too close
// to now to survive confirmation latency.
func ValidateTimelock(timelock, now time.Time, minMargin time.Duration) error {
	if !timelock.After(now.Add(minMargin)) {
		return ErrInvalidTimelock
	}
	return nil
}
