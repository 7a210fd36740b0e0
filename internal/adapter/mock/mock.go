// Package mock provides an in-memory chain backend with a manual
// clock for deterministic swap tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

type lock struct {
	params        adapter.LockParams
	status        htlc.Status
	secret        []byte
	confirmations uint32
}

// Adapter is an in-memory ChainAdapter. The clock only advances via
// AdvanceTime, so timelock expiry is fully controlled by the test.
type Adapter struct {
	mu sync.Mutex

	params   *chain.Params
	now      time.Time
	balances map[string]uint64
	locks    map[string]*lock
	nextID   int

	// failNext, when non-nil, is returned once by the next operation.
	failNext error
}

// New returns a mock adapter for the given chain params, starting at a
// fixed epoch.
func New(params *chain.Params) *Adapter {
	return &Adapter{
		params:   params,
		now:      time.Unix(1_700_000_000, 0).UTC(),
		balances: make(map[string]uint64),
		locks:    make(map[string]*lock),
	}
}

// Fund credits an account balance.
func (a *Adapter) Fund(account string, amount uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[account] += amount
}

// AdvanceTime moves the mock clock forward.
func (a *Adapter) AdvanceTime(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = a.now.Add(d)
}

// Confirm sets the confirmation count of a lock.
func (a *Adapter) Confirm(lockID string, confirmations uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.locks[lockID]; ok {
		l.confirmations = confirmations
	}
}

// FailNext makes the next operation return err once. Wrap err with
// adapter.Transient to exercise the retry path.
func (a *Adapter) FailNext(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = err
}

func (a *Adapter) takeFailure() error {
	err := a.failNext
	a.failNext = nil
	return err
}

func (a *Adapter) Chain() *chain.Params {
	return a.params
}

func (a *Adapter) Now(ctx context.Context) (time.Time, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return time.Time{}, err
	}
	return a.now, nil
}

func (a *Adapter) SpendableBalance(ctx context.Context, account string) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return 0, err
	}
	return a.balances[account], nil
}

func (a *Adapter) LockFunds(ctx context.Context, params adapter.LockParams) (*adapter.LockResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return nil, err
	}

	if !a.params.SupportsHash(string(params.HashAlgo)) {
		return nil, fmt.Errorf("%w: %s cannot verify %s", htlc.ErrHashAlgoMismatch, a.params.Symbol, params.HashAlgo)
	}
	if !params.Timelock.After(a.now) {
		return nil, fmt.Errorf("%w: expiry %s not after chain time %s", htlc.ErrInvalidTimelock, params.Timelock, a.now)
	}
	if a.balances[params.Sender] < params.Amount {
		return nil, fmt.Errorf("%w: %s has %d, need %d", htlc.ErrInsufficientFunds, params.Sender, a.balances[params.Sender], params.Amount)
	}

	a.balances[params.Sender] -= params.Amount
	a.nextID++
	id := fmt.Sprintf("%s-lock-%d", a.params.Symbol, a.nextID)
	a.locks[id] = &lock{
		params:        params,
		status:        htlc.StatusCreated,
		confirmations: 1,
	}
	return &adapter.LockResult{
		LockID: id,
		TxID:   fmt.Sprintf("%s-tx-%d", a.params.Symbol, a.nextID),
	}, nil
}

func (a *Adapter) ClaimFunds(ctx context.Context, lockID string, secret []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return "", err
	}

	l, ok := a.locks[lockID]
	if !ok {
		return "", htlc.ErrLockNotFound
	}
	switch l.status {
	case htlc.StatusClaimed:
		return "", htlc.ErrAlreadyClaimed
	case htlc.StatusRefunded:
		return "", htlc.ErrAlreadyRefunded
	}
	if !a.now.Before(l.params.Timelock) {
		return "", htlc.ErrTimelockExpired
	}

	ok, err := htlc.VerifySecret(l.params.HashAlgo, secret, l.params.Hashlock)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", htlc.ErrSecretMismatch
	}

	l.status = htlc.StatusClaimed
	l.secret = append([]byte(nil), secret...)
	a.balances[l.params.Recipient] += l.params.Amount
	return fmt.Sprintf("%s-claim", lockID), nil
}

func (a *Adapter) RefundFunds(ctx context.Context, lockID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return "", err
	}

	l, ok := a.locks[lockID]
	if !ok {
		return "", htlc.ErrLockNotFound
	}
	switch l.status {
	case htlc.StatusClaimed:
		return "", htlc.ErrAlreadyClaimed
	case htlc.StatusRefunded:
		return "", htlc.ErrAlreadyRefunded
	}
	if a.now.Before(l.params.Timelock) {
		return "", htlc.ErrTimelockNotExpired
	}

	l.status = htlc.StatusRefunded
	a.balances[l.params.Sender] += l.params.Amount
	return fmt.Sprintf("%s-refund", lockID), nil
}

func (a *Adapter) LockStatus(ctx context.Context, lockID string) (*adapter.LockState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.takeFailure(); err != nil {
		return nil, err
	}

	l, ok := a.locks[lockID]
	if !ok {
		return nil, htlc.ErrLockNotFound
	}
	return &adapter.LockState{
		Status:        l.status,
		Confirmations: l.confirmations,
		Amount:        l.params.Amount,
		Hashlock:      l.params.Hashlock,
		Timelock:      l.params.Timelock,
		Secret:        append([]byte(nil), l.secret...),
	}, nil
}

// Balance returns the current balance of an account without the
// ChainAdapter error path, for test assertions.
func (a *Adapter) Balance(account string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[account]
}
