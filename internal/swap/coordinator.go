package swap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/config"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/helpers"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/logging"
)

// Coordinator errors.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidSessionState = errors.New("operation not valid in current session state")
	ErrAdapterNotFound     = errors.New("no adapter for chain")
	ErrHashAlgoUnsupported = errors.New("hash algorithm not supported by both chains")
	ErrNotConfirmed        = errors.New("lock not confirmed yet")
	ErrUnsafeToClaim       = errors.New("too close to timelock expiry to claim")
	ErrNothingToRefund     = errors.New("no leg is refundable yet")
)

// Store persists sessions across restarts.
type Store interface {
	SaveSession(s *Session) error
	GetSession(id string) (*Session, error)
	ListSessions() ([]*Session, error)
	PendingSessions() ([]*Session, error)
}

// EventType identifies coordinator events.
type EventType string

const (
	EventSessionCreated    EventType = "session_created"
	EventSourceLocked      EventType = "source_locked"
	EventDestinationLocked EventType = "destination_locked"
	EventSecretRevealed    EventType = "secret_revealed"
	EventBothClaimed       EventType = "both_claimed"
	EventExpired           EventType = "expired"
	EventCancelled         EventType = "cancelled"
)

// Event is emitted on every session state change.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	State     State          `json:"state"`
	Time      time.Time      `json:"time"`
	Details   map[string]any `json:"details,omitempty"`
}

// EventHandler receives coordinator events.
type EventHandler func(Event)

// InitiateParams describes a new swap.
type InitiateParams struct {
	SourceChain      string
	DestinationChain string

	// Addresses on the source chain.
	SourceSender    string
	SourceRecipient string

	// Addresses on the destination chain.
	DestinationSender    string
	DestinationRecipient string

	SourceAmount      uint64
	DestinationAmount uint64

	HashAlgo htlc.HashAlgo
}

// Coordinator drives swap sessions through the state machine, one leg
// adapter per chain. Concurrent callers (API handlers, the timeout
// monitor) may drive the same session; operations on one session are
// serialized by a per-session lock.
type Coordinator struct {
	mu sync.RWMutex // guards sessions, locks and eventHandlers

	cfg      config.SwapConfig
	store    Store
	legs     map[string]*Leg
	sessions map[string]*Session

	// locks makes each session's check-then-transition sequence atomic.
	locks map[string]*sync.Mutex

	eventHandlers []EventHandler

	log *logging.Logger
}

// NewCoordinator builds a coordinator over the given chain adapters.
func NewCoordinator(cfg config.SwapConfig, store Store, adapters map[string]adapter.ChainAdapter) *Coordinator {
	legs := make(map[string]*Leg, len(adapters))
	for symbol, a := range adapters {
		legs[symbol] = NewLeg(a)
	}
	return &Coordinator{
		cfg:      cfg,
		store:    store,
		legs:     legs,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
		log:      logging.GetDefault().Component("swap"),
	}
}

// OnEvent registers a handler for session events.
func (c *Coordinator) OnEvent(handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandlers = append(c.eventHandlers, handler)
}

func (c *Coordinator) emitEvent(eventType EventType, s *Session, details map[string]any) {
	event := Event{
		Type:      eventType,
		SessionID: s.ID,
		State:     s.State,
		Time:      time.Now().UTC(),
		Details:   details,
	}
	c.mu.RLock()
	handlers := append([]EventHandler(nil), c.eventHandlers...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

// LoadSessions restores non-terminal sessions from the store. Called
// once at startup before the monitor runs.
func (c *Coordinator) LoadSessions() error {
	if c.store == nil {
		return nil
	}
	sessions, err := c.store.PendingSessions()
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range sessions {
		c.sessions[s.ID] = s
		c.locks[s.ID] = new(sync.Mutex)
	}
	c.log.Info("restored sessions", "count", len(sessions))
	return nil
}

// Initiate validates the swap, generates the secret and locks the
// initiator's funds on the source chain.
func (c *Coordinator) Initiate(ctx context.Context, params InitiateParams) (*Session, error) {
	sourceLeg, err := c.leg(params.SourceChain)
	if err != nil {
		return nil, err
	}
	destLeg, err := c.leg(params.DestinationChain)
	if err != nil {
		return nil, err
	}

	algo := params.HashAlgo
	if algo == "" {
		algo = pickHashAlgo(sourceLeg.Adapter.Chain(), destLeg.Adapter.Chain())
	}
	// Both contracts must verify the same primitive or the revealed
	// secret opens only one leg.
	if !sourceLeg.Adapter.Chain().SupportsHash(string(algo)) ||
		!destLeg.Adapter.Chain().SupportsHash(string(algo)) {
		return nil, fmt.Errorf("%w: %s for %s/%s", ErrHashAlgoUnsupported,
			algo, params.SourceChain, params.DestinationChain)
	}

	secret, err := htlc.GenerateSecret()
	if err != nil {
		return nil, err
	}
	hashlock, err := htlc.ComputeHashlock(algo, secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sourceExpiry := now.Add(c.cfg.SourceLockTime)
	destExpiry := now.Add(c.cfg.DestinationLockTime)
	// The destination must expire first with room to spare, so the
	// counterparty can claim the source leg after the secret becomes
	// public.
	if !destExpiry.Add(c.cfg.MinLockDelta).Before(sourceExpiry) &&
		!destExpiry.Add(c.cfg.MinLockDelta).Equal(sourceExpiry) {
		return nil, fmt.Errorf("%w: destination expiry %s too close to source expiry %s",
			htlc.ErrInvalidTimelock, destExpiry, sourceExpiry)
	}
	if err := htlc.ValidateTimelock(destExpiry, now, c.cfg.MinFutureMargin); err != nil {
		return nil, err
	}

	session := NewSession(algo, secret, hashlock)
	session.Source = htlc.Record{
		Chain:     params.SourceChain,
		Sender:    params.SourceSender,
		Recipient: params.SourceRecipient,
		Amount:    params.SourceAmount,
		Hashlock:  hashlock,
		HashAlgo:  algo,
		Timelock:  sourceExpiry,
		CreatedAt: now,
	}
	session.Destination = htlc.Record{
		Chain:     params.DestinationChain,
		Sender:    params.DestinationSender,
		Recipient: params.DestinationRecipient,
		Amount:    params.DestinationAmount,
		Hashlock:  hashlock,
		HashAlgo:  algo,
		Timelock:  destExpiry,
		CreatedAt: now,
	}

	// Register the session with its lock already held so nothing can
	// touch it until the source leg settles one way or the other.
	lock := new(sync.Mutex)
	lock.Lock()
	defer lock.Unlock()
	c.mu.Lock()
	c.sessions[session.ID] = session
	c.locks[session.ID] = lock
	c.mu.Unlock()
	if err := c.persist(session); err != nil {
		return nil, err
	}
	c.emitEvent(EventSessionCreated, session, nil)

	// If the source lock fails the session stays in init and can be
	// cancelled with Abort.
	result, err := sourceLeg.Create(ctx, adapter.LockParams{
		Sender:    params.SourceSender,
		Recipient: params.SourceRecipient,
		Amount:    params.SourceAmount,
		Hashlock:  hashlock,
		HashAlgo:  algo,
		Timelock:  sourceExpiry,
	})
	if err != nil {
		return snapshot(session), fmt.Errorf("lock source leg: %w", err)
	}

	session.Source.ID = result.LockID
	session.Source.CreateTxID = result.TxID
	session.Source.Status = htlc.StatusCreated
	if err := session.TransitionTo(StateSourceLocked); err != nil {
		return nil, err
	}
	if err := c.persist(session); err != nil {
		return nil, err
	}

	c.log.Info("swap initiated", "session", session.ID,
		"source", params.SourceChain, "destination", params.DestinationChain,
		"lock_id", result.LockID)
	c.emitEvent(EventSourceLocked, session, map[string]any{
		"lock_id": result.LockID, "tx": result.TxID,
	})
	return snapshot(session), nil
}

// LockDestination locks the counterparty's funds on the destination
// chain once the source lock has enough confirmations.
func (c *Coordinator) LockDestination(ctx context.Context, sessionID string) (*Session, error) {
	session, unlock, err := c.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if session.State != StateSourceLocked {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSessionState, session.State)
	}

	sourceLeg, err := c.leg(session.Source.Chain)
	if err != nil {
		return nil, err
	}
	destLeg, err := c.leg(session.Destination.Chain)
	if err != nil {
		return nil, err
	}

	state, err := sourceLeg.Status(ctx, session.Source.ID)
	if err != nil {
		return nil, fmt.Errorf("source lock status: %w", err)
	}
	if state.Status != htlc.StatusCreated {
		return nil, fmt.Errorf("%w: source lock is %s", ErrInvalidSessionState, state.Status)
	}
	minConfs := config.PolicyFor(session.Source.Chain).MinConfirmations
	if state.Confirmations < minConfs {
		return nil, fmt.Errorf("%w: %d of %d confirmations",
			ErrNotConfirmed, state.Confirmations, minConfs)
	}

	result, err := destLeg.Create(ctx, adapter.LockParams{
		Sender:    session.Destination.Sender,
		Recipient: session.Destination.Recipient,
		Amount:    session.Destination.Amount,
		Hashlock:  session.Hashlock,
		HashAlgo:  session.HashAlgo,
		Timelock:  session.Destination.Timelock,
	})
	if err != nil {
		return nil, fmt.Errorf("lock destination leg: %w", err)
	}

	session.Destination.ID = result.LockID
	session.Destination.CreateTxID = result.TxID
	session.Destination.Status = htlc.StatusCreated
	if err := session.TransitionTo(StateDestinationLocked); err != nil {
		return nil, err
	}
	if err := c.persist(session); err != nil {
		return nil, err
	}

	c.log.Info("destination locked", "session", session.ID, "lock_id", result.LockID)
	c.emitEvent(EventDestinationLocked, session, map[string]any{
		"lock_id": result.LockID, "tx": result.TxID,
	})
	return snapshot(session), nil
}

// RevealAndClaim claims the destination leg with the secret, then the
// source leg. The destination goes first: claiming it publishes the
// secret, after which the source claim can never be front-run into a
// state where only the counterparty is paid.
func (c *Coordinator) RevealAndClaim(ctx context.Context, sessionID string) (*Session, error) {
	session, unlock, err := c.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if session.State != StateDestinationLocked && session.State != StateSecretRevealed {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSessionState, session.State)
	}

	sourceLeg, err := c.leg(session.Source.Chain)
	if err != nil {
		return nil, err
	}
	destLeg, err := c.leg(session.Destination.Chain)
	if err != nil {
		return nil, err
	}

	if session.State == StateDestinationLocked {
		now := time.Now().UTC()
		if now.After(session.Destination.Timelock) || now.After(session.Source.Timelock) {
			return nil, fmt.Errorf("%w: claim window closed", htlc.ErrTimelockExpired)
		}
		if !config.IsSafeToClaim(session.Destination.Chain, now, session.Destination.Timelock) {
			return nil, fmt.Errorf("%w: destination expires %s",
				ErrUnsafeToClaim, session.Destination.Timelock)
		}
		// Never reveal a secret the contracts will reject.
		ok, err := htlc.VerifySecret(session.HashAlgo, session.Secret, session.Hashlock)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, htlc.ErrSecretMismatch
		}

		txID, err := destLeg.Claim(ctx, session.Destination.ID, session.Secret)
		if err != nil {
			return nil, fmt.Errorf("claim destination leg: %w", err)
		}
		session.Destination.Status = htlc.StatusClaimed
		session.Destination.ClaimTxID = txID
		session.Destination.Secret = session.Secret
		if err := session.TransitionTo(StateSecretRevealed); err != nil {
			return nil, err
		}
		if err := c.persist(session); err != nil {
			return nil, err
		}
		c.log.Info("secret revealed", "session", session.ID, "tx", txID)
		c.emitEvent(EventSecretRevealed, session, map[string]any{"tx": txID})
	}

	// After a restart the in-memory secret may be gone; recover it
	// from the claimed destination lock.
	secret := session.Secret
	if len(secret) == 0 {
		state, err := destLeg.Status(ctx, session.Destination.ID)
		if err != nil {
			return nil, fmt.Errorf("recover secret: %w", err)
		}
		if len(state.Secret) == 0 {
			return nil, fmt.Errorf("destination claimed but secret not readable")
		}
		secret = state.Secret
		session.Secret = secret
	}

	txID, err := sourceLeg.Claim(ctx, session.Source.ID, secret)
	if err != nil {
		return nil, fmt.Errorf("claim source leg: %w", err)
	}
	session.Source.Status = htlc.StatusClaimed
	session.Source.ClaimTxID = txID
	session.Source.Secret = secret
	if err := session.TransitionTo(StateBothClaimed); err != nil {
		return nil, err
	}
	if err := c.persist(session); err != nil {
		return nil, err
	}

	c.log.Info("swap complete", "session", session.ID, "tx", txID)
	c.emitEvent(EventBothClaimed, session, map[string]any{"tx": txID})
	return snapshot(session), nil
}

// Abort tears down a session. Before any funds are locked it simply
// cancels. Afterwards it refunds every leg whose timelock has expired
// and marks the session expired. Calling Abort on a terminal session
// is a no-op.
func (c *Coordinator) Abort(ctx context.Context, sessionID string) (*Session, error) {
	session, unlock, err := c.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if session.State.IsTerminal() {
		return snapshot(session), nil
	}

	if session.State == StateInit {
		if err := session.TransitionTo(StateCancelled); err != nil {
			return nil, err
		}
		if err := c.persist(session); err != nil {
			return nil, err
		}
		c.emitEvent(EventCancelled, session, nil)
		return snapshot(session), nil
	}

	refunded := 0
	for _, record := range []*htlc.Record{&session.Destination, &session.Source} {
		if record.ID == "" || record.Status != htlc.StatusCreated {
			continue
		}
		leg, err := c.leg(record.Chain)
		if err != nil {
			return nil, err
		}
		txID, err := leg.Refund(ctx, record.ID)
		switch {
		case err == nil:
			record.Status = htlc.StatusRefunded
			record.RefundTxID = txID
			refunded++
			c.log.Info("leg refunded", "session", session.ID,
				"chain", record.Chain, "tx", txID)
		case errors.Is(err, htlc.ErrTimelockNotExpired):
			c.log.Debug("leg not refundable yet", "session", session.ID,
				"chain", record.Chain)
		case errors.Is(err, htlc.ErrAlreadyClaimed):
			// Counterparty raced us with the secret. Not a failure.
			record.Status = htlc.StatusClaimed
		case errors.Is(err, htlc.ErrAlreadyRefunded):
			record.Status = htlc.StatusRefunded
		default:
			return nil, fmt.Errorf("refund %s leg: %w", record.Chain, err)
		}
	}

	if refunded == 0 && openLegs(session) > 0 {
		return nil, ErrNothingToRefund
	}
	if openLegs(session) > 0 {
		// Partial refund: persist leg statuses, session stays live for
		// the monitor to finish later.
		if err := c.persist(session); err != nil {
			return nil, err
		}
		return snapshot(session), nil
	}

	if err := session.TransitionTo(StateExpired); err != nil {
		return nil, err
	}
	if err := c.persist(session); err != nil {
		return nil, err
	}
	c.log.Info("swap expired", "session", session.ID)
	c.emitEvent(EventExpired, session, nil)
	return snapshot(session), nil
}

// GetSession returns a copy of a session by id.
func (c *Coordinator) GetSession(sessionID string) (*Session, error) {
	session, unlock, err := c.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return snapshot(session), nil
}

// ListSessions returns copies of all in-memory sessions.
func (c *Coordinator) ListSessions() []*Session {
	c.mu.RLock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, err := c.GetSession(id); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *Coordinator) session(id string) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// lockSession returns the live session with its lock held. The caller
// must call unlock once it is done reading or mutating the session.
func (c *Coordinator) lockSession(id string) (*Session, func(), error) {
	c.mu.RLock()
	s, ok := c.sessions[id]
	lock := c.locks[id]
	c.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	lock.Lock()
	return s, lock.Unlock, nil
}

// snapshot copies a session for callers outside the session lock.
func snapshot(s *Session) *Session {
	copied := *s
	copied.Secret = helpers.CopyBytes(s.Secret)
	copied.Source.Secret = helpers.CopyBytes(s.Source.Secret)
	copied.Destination.Secret = helpers.CopyBytes(s.Destination.Secret)
	return &copied
}

func (c *Coordinator) leg(symbol string) (*Leg, error) {
	leg, ok := c.legs[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, symbol)
	}
	return leg, nil
}

func (c *Coordinator) persist(s *Session) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.SaveSession(s); err != nil {
		return fmt.Errorf("persist session %s: %w", s.ID, err)
	}
	return nil
}

// openLegs counts legs that are funded and not yet terminal.
func openLegs(s *Session) int {
	open := 0
	for _, record := range []*htlc.Record{&s.Source, &s.Destination} {
		if record.ID != "" && record.Status == htlc.StatusCreated {
			open++
		}
	}
	return open
}

// pickHashAlgo chooses the primitive both chains verify. sha256 works
// everywhere; keccak256 only between EVM chains.
func pickHashAlgo(source, dest *chain.Params) htlc.HashAlgo {
	if source.Type == chain.TypeEVM && dest.Type == chain.TypeEVM {
		return htlc.HashKeccak256
	}
	return htlc.HashSHA256
}
