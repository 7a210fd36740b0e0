// Package swap coordinates atomic swaps across two chain legs.
package swap

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

// State of a swap session.
type State string

const (
	// StateInit means the session exists but no funds are locked.
	StateInit State = "init"

	// StateSourceLocked means the initiator's funds are locked on the
	// source chain.
	StateSourceLocked State = "source_locked"

	// StateDestinationLocked means the counterparty's funds are locked
	// on the destination chain with the same hashlock.
	StateDestinationLocked State = "destination_locked"

	// StateSecretRevealed means the destination leg was claimed,
	// publishing the secret on-chain.
	StateSecretRevealed State = "secret_revealed"

	// StateBothClaimed means both legs are claimed. Terminal.
	StateBothClaimed State = "both_claimed"

	// StateExpired means the swap timed out and expired legs were
	// refunded. Terminal.
	StateExpired State = "expired"

	// StateCancelled means the session was torn down before any funds
	// moved. Terminal.
	StateCancelled State = "cancelled"
)

// validTransitions defines the session state machine. The destination
// leg is always claimed first so the secret is public before the
// source claim depends on it.
var validTransitions = map[State][]State{
	StateInit:              {StateSourceLocked, StateCancelled},
	StateSourceLocked:      {StateDestinationLocked, StateExpired},
	StateDestinationLocked: {StateSecretRevealed, StateExpired},
	StateSecretRevealed:    {StateBothClaimed, StateExpired},
}

// IsTerminal returns true once a session can no longer change state.
func (s State) IsTerminal() bool {
	switch s {
	case StateBothClaimed, StateExpired, StateCancelled:
		return true
	}
	return false
}

// ErrInvalidTransition is returned for a state change the machine does
// not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

// Session is one atomic swap between two chains. A Session is not safe
// for concurrent use; the coordinator serializes access to each one.
type Session struct {
	ID    string
	State State

	HashAlgo htlc.HashAlgo
	Hashlock [32]byte

	// Secret is held in memory until revealed on-chain, then also
	// recorded in the destination lock record.
	Secret []byte

	Source      htlc.Record
	Destination htlc.Record

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession creates a session in the init state.
func NewSession(algo htlc.HashAlgo, secret []byte, hashlock [32]byte) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		State:     StateInit,
		HashAlgo:  algo,
		Hashlock:  hashlock,
		Secret:    secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the session to a new state, enforcing the machine.
func (s *Session) TransitionTo(next State) error {
	for _, allowed := range validTransitions[s.State] {
		if allowed == next {
			s.State = next
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, next)
}

// CanTransitionTo reports whether the transition is allowed without
// performing it.
func (s *Session) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s.State] {
		if allowed == next {
			return true
		}
	}
	return false
}
