// Package adapter defines the interface each chain backend implements
// and the transient-failure retry machinery shared by all of them.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

// LockParams describes a new hash time-locked contract to create.
type LockParams struct {
	Sender    string
	Recipient string
	Amount    uint64 // smallest unit
	Hashlock  [32]byte
	HashAlgo  htlc.HashAlgo
	Timelock  time.Time
}

// LockResult is returned from a successful LockFunds.
type LockResult struct {
	LockID string
	TxID   string
}

// LockState is the observed on-chain state of a lock.
type LockState struct {
	Status        htlc.Status
	Confirmations uint32
	Amount        uint64
	Hashlock      [32]byte
	Timelock      time.Time

	// Secret is the revealed preimage, present once Status is claimed
	// and the chain exposes it.
	Secret []byte
}

// ChainAdapter is the uniform interface over one blockchain backend.
// Implementations return htlc package errors for validation and
// logical-state failures and wrap infrastructure failures with
// Transient so callers can retry them.
type ChainAdapter interface {
	// Chain returns the parameters of the backing network.
	Chain() *chain.Params

	// Now returns the chain's current time (head block timestamp).
	Now(ctx context.Context) (time.Time, error)

	// SpendableBalance returns the account balance in smallest units.
	SpendableBalance(ctx context.Context, account string) (uint64, error)

	// LockFunds creates a new lock. Fails with ErrInvalidTimelock,
	// ErrHashAlgoMismatch or ErrInsufficientFunds before broadcasting.
	LockFunds(ctx context.Context, params LockParams) (*LockResult, error)

	// ClaimFunds redeems a lock with the secret. Fails with
	// ErrSecretMismatch, ErrTimelockExpired, ErrAlreadyClaimed or
	// ErrAlreadyRefunded.
	ClaimFunds(ctx context.Context, lockID string, secret []byte) (string, error)

	// RefundFunds returns locked funds to the sender after expiry.
	// Fails with ErrTimelockNotExpired, ErrAlreadyClaimed or
	// ErrAlreadyRefunded.
	RefundFunds(ctx context.Context, lockID string) (string, error)

	// LockStatus reads the current state of a lock.
	LockStatus(ctx context.Context, lockID string) (*LockState, error)
}

// ErrChainUnavailable is returned when transient failures persist past
// the retry budget.
var ErrChainUnavailable = errors.New("chain unavailable")

// TransientError marks an infrastructure failure (RPC timeout,
// connection refused, rate limit) that is safe to retry. Validation
// and logical-state errors are never wrapped in it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
