package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("connection refused"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoDoesNotRetryLogicalErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		return htlc.ErrSecretMismatch
	})
	if !errors.Is(err, htlc.ErrSecretMismatch) {
		t.Errorf("Do() error = %v, want ErrSecretMismatch", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry of logical errors)", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		return Transient(errors.New("rpc timeout"))
	})
	if !errors.Is(err, ErrChainUnavailable) {
		t.Errorf("Do() error = %v, want ErrChainUnavailable", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := fastPolicy()
	policy.InitialDelay = time.Hour // force the wait path

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, policy, func(ctx context.Context) error {
			return Transient(errors.New("slow"))
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do() did not return after cancel")
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(errors.New("plain")) {
		t.Error("plain error should not be transient")
	}
	if !IsTransient(Transient(errors.New("x"))) {
		t.Error("wrapped error should be transient")
	}
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}

	// Wrapping preserves classification.
	wrapped := errors.Join(errors.New("context"), Transient(errors.New("inner")))
	if !IsTransient(wrapped) {
		t.Error("joined transient error should stay transient")
	}
}

func TestNextDelayCapped(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2.0}

	d := p.nextDelay(time.Second)
	if d != 2*time.Second {
		t.Errorf("nextDelay(1s) = %v, want 2s", d)
	}
	d = p.nextDelay(d)
	if d != 3*time.Second {
		t.Errorf("nextDelay(2s) = %v, want cap 3s", d)
	}
}
