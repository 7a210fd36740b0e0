package eos

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

func TestRowToState(t *testing.T) {
	secret := make([]byte, 32)
	secret[0] = 0x42
	hashlock := sha256.Sum256(secret)

	base := lockRow{
		ID:        7,
		Sender:    "alice",
		Recipient: "bob",
		Quantity:  "1.5000 EOS",
		Hashlock:  hex.EncodeToString(hashlock[:]),
		Timelock:  1_700_000_000,
	}

	t.Run("created", func(t *testing.T) {
		state, err := rowToState(base)
		if err != nil {
			t.Fatalf("rowToState() error = %v", err)
		}
		if state.Status != htlc.StatusCreated {
			t.Errorf("Status = %s, want created", state.Status)
		}
		if state.Amount != 15000 {
			t.Errorf("Amount = %d, want 15000", state.Amount)
		}
		if state.Hashlock != hashlock {
			t.Error("hashlock not preserved")
		}
		if state.Timelock.Unix() != 1_700_000_000 {
			t.Errorf("Timelock = %v", state.Timelock)
		}
	})

	t.Run("claimed with secret", func(t *testing.T) {
		row := base
		row.Claimed = 1
		row.Secret = hex.EncodeToString(secret)

		state, err := rowToState(row)
		if err != nil {
			t.Fatalf("rowToState() error = %v", err)
		}
		if state.Status != htlc.StatusClaimed {
			t.Errorf("Status = %s, want claimed", state.Status)
		}
		if len(state.Secret) != 32 || state.Secret[0] != 0x42 {
			t.Errorf("Secret = %x", state.Secret)
		}
	})

	t.Run("refunded", func(t *testing.T) {
		row := base
		row.Refunded = 1

		state, err := rowToState(row)
		if err != nil {
			t.Fatalf("rowToState() error = %v", err)
		}
		if state.Status != htlc.StatusRefunded {
			t.Errorf("Status = %s, want refunded", state.Status)
		}
	})

	t.Run("bad quantity", func(t *testing.T) {
		row := base
		row.Quantity = "garbage"
		if _, err := rowToState(row); err == nil {
			t.Error("rowToState() should reject bad quantity")
		}
	})
}

func TestParseLockID(t *testing.T) {
	id, err := parseLockID("42")
	if err != nil {
		t.Fatalf("parseLockID() error = %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}

	if _, err := parseLockID("0xabc"); !errors.Is(err, htlc.ErrLockNotFound) {
		t.Errorf("parseLockID(0xabc) error = %v, want ErrLockNotFound", err)
	}
}
