package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/swap"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newStoredSession(t *testing.T) *swap.Session {
	t.Helper()
	secret, err := htlc.GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	hashlock, err := htlc.ComputeHashlock(htlc.HashSHA256, secret)
	if err != nil {
		t.Fatal(err)
	}

	session := swap.NewSession(htlc.HashSHA256, secret, hashlock)
	now := time.Now().UTC().Truncate(time.Second)
	session.Source = htlc.Record{
		ID: "0xabc", Chain: "ETH", Sender: "alice-eth", Recipient: "bob-eth",
		Amount: 100, Hashlock: hashlock, HashAlgo: htlc.HashSHA256,
		Timelock: now.Add(24 * time.Hour), Status: htlc.StatusCreated,
		CreateTxID: "0xdeadbeef", CreatedAt: now,
	}
	session.Destination = htlc.Record{
		Chain: "ALGO", Sender: "bob-algo", Recipient: "alice-algo",
		Amount: 50, Hashlock: hashlock, HashAlgo: htlc.HashSHA256,
		Timelock: now.Add(12 * time.Hour), CreatedAt: now,
	}
	session.State = swap.StateSourceLocked
	return session
}

func TestSaveAndGetSession(t *testing.T) {
	store := newTestStorage(t)
	session := newStoredSession(t)

	if err := store.SaveSession(session); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := store.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}

	if got.State != swap.StateSourceLocked {
		t.Errorf("State = %s", got.State)
	}
	if got.HashAlgo != htlc.HashSHA256 {
		t.Errorf("HashAlgo = %s", got.HashAlgo)
	}
	if got.Hashlock != session.Hashlock {
		t.Error("hashlock not preserved")
	}
	if string(got.Secret) != string(session.Secret) {
		t.Error("secret not preserved")
	}
	if got.Source.ID != "0xabc" || got.Source.Amount != 100 {
		t.Errorf("source record = %+v", got.Source)
	}
	if got.Source.CreateTxID != "0xdeadbeef" {
		t.Errorf("source create tx = %s", got.Source.CreateTxID)
	}
	if !got.Source.Timelock.Equal(session.Source.Timelock) {
		t.Errorf("source timelock = %v, want %v", got.Source.Timelock, session.Source.Timelock)
	}
	if got.Destination.Chain != "ALGO" || got.Destination.Amount != 50 {
		t.Errorf("destination record = %+v", got.Destination)
	}
	if got.Destination.Secret != nil {
		t.Error("unset destination secret should round-trip as nil")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStorage(t)
	if _, err := store.GetSession("missing"); !errors.Is(err, swap.ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSaveSessionUpsert(t *testing.T) {
	store := newTestStorage(t)
	session := newStoredSession(t)

	if err := store.SaveSession(session); err != nil {
		t.Fatal(err)
	}

	session.State = swap.StateSecretRevealed
	session.Destination.ID = "lock-9"
	session.Destination.Status = htlc.StatusClaimed
	session.Destination.Secret = session.Secret
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("SaveSession() update error = %v", err)
	}

	got, err := store.GetSession(session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != swap.StateSecretRevealed {
		t.Errorf("State = %s, want secret_revealed", got.State)
	}
	if got.Destination.Status != htlc.StatusClaimed {
		t.Errorf("destination status = %s", got.Destination.Status)
	}
	if string(got.Destination.Secret) != string(session.Secret) {
		t.Error("destination secret not updated")
	}

	all, err := store.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("ListSessions() count = %d, want 1 after upsert", len(all))
	}
}

func TestPendingSessionsSkipsTerminal(t *testing.T) {
	store := newTestStorage(t)

	live := newStoredSession(t)
	if err := store.SaveSession(live); err != nil {
		t.Fatal(err)
	}

	for _, state := range []swap.State{swap.StateBothClaimed, swap.StateExpired, swap.StateCancelled} {
		s := newStoredSession(t)
		s.State = state
		if err := store.SaveSession(s); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := store.PendingSessions()
	if err != nil {
		t.Fatalf("PendingSessions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("PendingSessions() count = %d, want 1", len(pending))
	}
	if pending[0].ID != live.ID {
		t.Errorf("pending id = %s, want %s", pending[0].ID, live.ID)
	}
}

func TestStorageReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	session := newStoredSession(t)
	if err := store.SaveSession(session); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession() after reopen error = %v", err)
	}
	if got.State != session.State {
		t.Errorf("State = %s, want %s", got.State, session.State)
	}
}
