package swap

import (
	"context"
	"fmt"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

// Leg binds one chain adapter to the retry policy so every on-chain
// operation of a swap gets the same transient-failure handling.
type Leg struct {
	Adapter adapter.ChainAdapter
	Policy  adapter.RetryPolicy
}

// NewLeg wraps an adapter with the default retry policy.
func NewLeg(a adapter.ChainAdapter) *Leg {
	return &Leg{Adapter: a, Policy: adapter.DefaultRetryPolicy()}
}

// Create locks funds, retrying transient failures. Validation and
// logical-state errors surface immediately.
func (l *Leg) Create(ctx context.Context, params adapter.LockParams) (*adapter.LockResult, error) {
	if !l.Adapter.Chain().SupportsHash(string(params.HashAlgo)) {
		return nil, fmt.Errorf("%w: %s cannot verify %s",
			htlc.ErrHashAlgoMismatch, l.Adapter.Chain().Symbol, params.HashAlgo)
	}

	var result *adapter.LockResult
	err := adapter.Do(ctx, l.Policy, func(ctx context.Context) error {
		var opErr error
		result, opErr = l.Adapter.LockFunds(ctx, params)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Claim redeems a lock with the secret.
func (l *Leg) Claim(ctx context.Context, lockID string, secret []byte) (string, error) {
	var txID string
	err := adapter.Do(ctx, l.Policy, func(ctx context.Context) error {
		var opErr error
		txID, opErr = l.Adapter.ClaimFunds(ctx, lockID, secret)
		return opErr
	})
	return txID, err
}

// Refund returns expired locked funds to the sender.
func (l *Leg) Refund(ctx context.Context, lockID string) (string, error) {
	var txID string
	err := adapter.Do(ctx, l.Policy, func(ctx context.Context) error {
		var opErr error
		txID, opErr = l.Adapter.RefundFunds(ctx, lockID)
		return opErr
	})
	return txID, err
}

// Status reads the lock's on-chain state.
func (l *Leg) Status(ctx context.Context, lockID string) (*adapter.LockState, error) {
	var state *adapter.LockState
	err := adapter.Do(ctx, l.Policy, func(ctx context.Context) error {
		var opErr error
		state, opErr = l.Adapter.LockStatus(ctx, lockID)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
