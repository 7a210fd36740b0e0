// Package algorand implements the chain adapter for Algorand over an
// HTLC application that keeps one box per lock.
package algorand

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	algocrypto "github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/helpers"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/logging"
)

// Box layout: sender 32 | recipient 32 | amount 8 | timelock 8 |
// status 1 | secret 32. The box name is the hashlock, which also
// serves as the lock id.
const (
	boxSize = 113

	offSender    = 0
	offRecipient = 32
	offAmount    = 64
	offTimelock  = 72
	offStatus    = 80
	offSecret    = 81
)

// Box status byte values.
const (
	boxStatusCreated  = 0
	boxStatusClaimed  = 1
	boxStatusRefunded = 2
)

const confirmationWaitRounds = 4

// Adapter talks to Algorand through the HTLC application.
type Adapter struct {
	params  *chain.Params
	client  *algod.Client
	appID   uint64
	appAddr types.Address

	sk   ed25519.PrivateKey
	addr types.Address

	log *logging.Logger
}

// New connects to an algod endpoint. The signing key is supplied as a
// standard 25-word mnemonic.
func New(params *chain.Params, rpcURL string, appID uint64, signerMnemonic string) (*Adapter, error) {
	client, err := algod.MakeClient(rpcURL, "")
	if err != nil {
		return nil, fmt.Errorf("algod client %s: %w", rpcURL, err)
	}

	sk, err := mnemonic.ToPrivateKey(signerMnemonic)
	if err != nil {
		return nil, fmt.Errorf("parse mnemonic: %w", err)
	}
	account, err := algocrypto.AccountFromPrivateKey(sk)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	return &Adapter{
		params:  params,
		client:  client,
		appID:   appID,
		appAddr: algocrypto.GetApplicationAddress(appID),
		sk:      sk,
		addr:    account.Address,
		log:     logging.GetDefault().Component("algorand"),
	}, nil
}

func (a *Adapter) Chain() *chain.Params {
	return a.params
}

func (a *Adapter) Now(ctx context.Context) (time.Time, error) {
	status, err := a.client.Status().Do(ctx)
	if err != nil {
		return time.Time{}, adapter.Transient(fmt.Errorf("node status: %w", err))
	}
	block, err := a.client.Block(status.LastRound).Do(ctx)
	if err != nil {
		return time.Time{}, adapter.Transient(fmt.Errorf("block %d: %w", status.LastRound, err))
	}
	return time.Unix(block.TimeStamp, 0).UTC(), nil
}

func (a *Adapter) SpendableBalance(ctx context.Context, account string) (uint64, error) {
	info, err := a.client.AccountInformation(account).Do(ctx)
	if err != nil {
		return 0, adapter.Transient(fmt.Errorf("account %s: %w", account, err))
	}
	if info.Amount < info.MinBalance {
		return 0, nil
	}
	return info.Amount - info.MinBalance, nil
}

func (a *Adapter) LockFunds(ctx context.Context, params adapter.LockParams) (*adapter.LockResult, error) {
	if !a.params.SupportsHash(string(params.HashAlgo)) {
		return nil, fmt.Errorf("%w: %s cannot verify %s", htlc.ErrHashAlgoMismatch, a.params.Symbol, params.HashAlgo)
	}

	now, err := a.Now(ctx)
	if err != nil {
		return nil, err
	}
	if !params.Timelock.After(now) {
		return nil, fmt.Errorf("%w: expiry %s not after chain time %s", htlc.ErrInvalidTimelock, params.Timelock, now)
	}

	balance, err := a.SpendableBalance(ctx, a.addr.String())
	if err != nil {
		return nil, err
	}
	if balance < params.Amount {
		return nil, fmt.Errorf("%w: have %d microalgo, need %d", htlc.ErrInsufficientFunds, balance, params.Amount)
	}

	sp, err := a.client.SuggestedParams().Do(ctx)
	if err != nil {
		return nil, adapter.Transient(fmt.Errorf("suggested params: %w", err))
	}

	recipient, err := types.DecodeAddress(params.Recipient)
	if err != nil {
		return nil, fmt.Errorf("decode recipient %s: %w", params.Recipient, err)
	}

	payment, err := transaction.MakePaymentTxn(
		a.addr.String(), a.appAddr.String(), params.Amount, nil, "", sp)
	if err != nil {
		return nil, fmt.Errorf("make payment: %w", err)
	}

	appArgs := [][]byte{
		[]byte("create"),
		recipient[:],
		params.Hashlock[:],
		helpers.Uint64ToBE(uint64(params.Timelock.Unix())),
	}
	appCall, err := a.makeAppCall(sp, appArgs, params.Hashlock[:])
	if err != nil {
		return nil, err
	}

	txid, err := a.submitGroup(ctx, payment, appCall)
	if err != nil {
		return nil, a.classify(fmt.Errorf("create lock: %w", err))
	}

	lockID := helpers.BytesToHex(params.Hashlock[:])
	a.log.Info("lock created", "lock_id", lockID, "tx", txid, "amount", params.Amount)
	return &adapter.LockResult{LockID: lockID, TxID: txid}, nil
}

func (a *Adapter) ClaimFunds(ctx context.Context, lockID string, secret []byte) (string, error) {
	name, err := boxName(lockID)
	if err != nil {
		return "", err
	}

	// The application only asserts; the taxonomy comes from reading
	// the box state first.
	state, err := a.LockStatus(ctx, lockID)
	if err != nil {
		return "", err
	}
	switch state.Status {
	case htlc.StatusClaimed:
		return "", htlc.ErrAlreadyClaimed
	case htlc.StatusRefunded:
		return "", htlc.ErrAlreadyRefunded
	}
	now, err := a.Now(ctx)
	if err != nil {
		return "", err
	}
	if !now.Before(state.Timelock) {
		return "", htlc.ErrTimelockExpired
	}
	ok, err := htlc.VerifySecret(htlc.HashSHA256, secret, state.Hashlock)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", htlc.ErrSecretMismatch
	}

	sp, err := a.client.SuggestedParams().Do(ctx)
	if err != nil {
		return "", adapter.Transient(fmt.Errorf("suggested params: %w", err))
	}

	appCall, err := a.makeAppCall(sp, [][]byte{[]byte("claim"), name, secret}, name)
	if err != nil {
		return "", err
	}

	txid, err := a.submitGroup(ctx, appCall)
	if err != nil {
		return "", a.classify(fmt.Errorf("claim %s: %w", lockID, err))
	}

	a.log.Info("lock claimed", "lock_id", lockID, "tx", txid)
	return txid, nil
}

func (a *Adapter) RefundFunds(ctx context.Context, lockID string) (string, error) {
	name, err := boxName(lockID)
	if err != nil {
		return "", err
	}

	state, err := a.LockStatus(ctx, lockID)
	if err != nil {
		return "", err
	}
	switch state.Status {
	case htlc.StatusClaimed:
		return "", htlc.ErrAlreadyClaimed
	case htlc.StatusRefunded:
		return "", htlc.ErrAlreadyRefunded
	}
	now, err := a.Now(ctx)
	if err != nil {
		return "", err
	}
	if now.Before(state.Timelock) {
		return "", htlc.ErrTimelockNotExpired
	}

	sp, err := a.client.SuggestedParams().Do(ctx)
	if err != nil {
		return "", adapter.Transient(fmt.Errorf("suggested params: %w", err))
	}

	appCall, err := a.makeAppCall(sp, [][]byte{[]byte("refund"), name}, name)
	if err != nil {
		return "", err
	}

	txid, err := a.submitGroup(ctx, appCall)
	if err != nil {
		return "", a.classify(fmt.Errorf("refund %s: %w", lockID, err))
	}

	a.log.Info("lock refunded", "lock_id", lockID, "tx", txid)
	return txid, nil
}

func (a *Adapter) LockStatus(ctx context.Context, lockID string) (*adapter.LockState, error) {
	name, err := boxName(lockID)
	if err != nil {
		return nil, err
	}

	box, err := a.client.GetApplicationBoxByName(a.appID, name).Do(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "box not found") {
			return nil, htlc.ErrLockNotFound
		}
		return nil, adapter.Transient(fmt.Errorf("box %s: %w", lockID, err))
	}

	return parseBox(name, box.Value)
}

func parseBox(name, value []byte) (*adapter.LockState, error) {
	if len(value) != boxSize {
		return nil, fmt.Errorf("unexpected box size %d", len(value))
	}

	state := &adapter.LockState{
		// A written box is already final.
		Confirmations: 1,
		Amount:        helpers.BEToUint64(value[offAmount : offAmount+8]),
		Timelock:      time.Unix(int64(helpers.BEToUint64(value[offTimelock:offTimelock+8])), 0).UTC(),
	}
	copy(state.Hashlock[:], name)

	switch value[offStatus] {
	case boxStatusCreated:
		state.Status = htlc.StatusCreated
	case boxStatusClaimed:
		state.Status = htlc.StatusClaimed
		state.Secret = append([]byte(nil), value[offSecret:offSecret+32]...)
	case boxStatusRefunded:
		state.Status = htlc.StatusRefunded
	default:
		return nil, fmt.Errorf("unknown box status %d", value[offStatus])
	}
	return state, nil
}

func (a *Adapter) makeAppCall(sp types.SuggestedParams, appArgs [][]byte, box []byte) (types.Transaction, error) {
	boxes := []types.AppBoxReference{{AppID: a.appID, Name: box}}
	tx, err := transaction.MakeApplicationNoOpTxWithBoxes(
		a.appID, appArgs, nil, nil, nil, boxes,
		sp, a.addr, nil, types.Digest{}, [32]byte{}, types.Address{})
	if err != nil {
		return types.Transaction{}, fmt.Errorf("make app call: %w", err)
	}
	return tx, nil
}

// submitGroup signs the transactions as one atomic group, submits and
// waits for confirmation. Returns the first transaction id.
func (a *Adapter) submitGroup(ctx context.Context, txns ...types.Transaction) (string, error) {
	if len(txns) > 1 {
		gid, err := algocrypto.ComputeGroupID(txns)
		if err != nil {
			return "", fmt.Errorf("group id: %w", err)
		}
		for i := range txns {
			txns[i].Group = gid
		}
	}

	var firstID string
	var raw []byte
	for i, tx := range txns {
		txid, stx, err := algocrypto.SignTransaction(a.sk, tx)
		if err != nil {
			return "", fmt.Errorf("sign: %w", err)
		}
		if i == 0 {
			firstID = txid
		}
		raw = append(raw, stx...)
	}

	if _, err := a.client.SendRawTransaction(raw).Do(ctx); err != nil {
		return "", err
	}
	if _, err := transaction.WaitForConfirmation(a.client, firstID, confirmationWaitRounds, ctx); err != nil {
		return "", adapter.Transient(fmt.Errorf("wait confirmation %s: %w", firstID, err))
	}
	return firstID, nil
}

func boxName(lockID string) ([]byte, error) {
	name, err := helpers.HexToBytes(lockID)
	if err != nil || len(name) != 32 {
		return nil, fmt.Errorf("%w: bad lock id %q", htlc.ErrLockNotFound, lockID)
	}
	return name, nil
}

// classify treats everything the pre-submit state checks did not catch
// as infrastructure failure, except overspends surfacing at submit.
func (a *Adapter) classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "overspend"):
		return htlc.ErrInsufficientFunds
	case strings.Contains(msg, "logic eval error"):
		return err
	}
	return adapter.Transient(err)
}
