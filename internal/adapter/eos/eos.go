// Package eos implements the chain adapter for EOSIO networks over an
// HTLC contract with a multi-index lock table.
package eos

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	eosgo "github.com/eoscanada/eos-go"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/logging"
)

// Adapter talks to an EOSIO chain through an HTLC contract account.
type Adapter struct {
	params   *chain.Params
	api      *eosgo.API
	contract eosgo.AccountName
	account  eosgo.AccountName

	log *logging.Logger
}

// New connects to an EOSIO RPC endpoint and imports the signing key.
func New(ctx context.Context, params *chain.Params, rpcURL, contract, account, privKey string) (*Adapter, error) {
	api := eosgo.New(rpcURL)

	keyBag := &eosgo.KeyBag{}
	if err := keyBag.ImportPrivateKey(ctx, privKey); err != nil {
		return nil, fmt.Errorf("import private key: %w", err)
	}
	api.SetSigner(keyBag)

	return &Adapter{
		params:   params,
		api:      api,
		contract: eosgo.AccountName(contract),
		account:  eosgo.AccountName(account),
		log:      logging.GetDefault().Component("eos"),
	}, nil
}

// createAction is the createhtlc action payload.
type createAction struct {
	Sender    eosgo.AccountName `json:"sender"`
	Recipient eosgo.AccountName `json:"recipient"`
	Quantity  eosgo.Asset       `json:"quantity"`
	Hashlock  eosgo.Checksum256 `json:"hashlock"`
	Timelock  uint64            `json:"timelock"`
}

// claimAction is the claimhtlc action payload.
type claimAction struct {
	LockID uint64         `json:"lock_id"`
	Secret eosgo.HexBytes `json:"secret"`
}

// refundAction is the refundhtlc action payload.
type refundAction struct {
	LockID uint64 `json:"lock_id"`
}

// lockRow mirrors the contract's lock table row.
type lockRow struct {
	ID        uint64 `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Quantity  string `json:"quantity"`
	Hashlock  string `json:"hashlock"`
	Timelock  uint64 `json:"timelock"`
	Claimed   uint8  `json:"claimed"`
	Refunded  uint8  `json:"refunded"`
	Secret    string `json:"secret"`
}

func (a *Adapter) Chain() *chain.Params {
	return a.params
}

func (a *Adapter) Now(ctx context.Context) (time.Time, error) {
	info, err := a.api.GetInfo(ctx)
	if err != nil {
		return time.Time{}, adapter.Transient(fmt.Errorf("get info: %w", err))
	}
	return info.HeadBlockTime.Time.UTC(), nil
}

func (a *Adapter) SpendableBalance(ctx context.Context, account string) (uint64, error) {
	assets, err := a.api.GetCurrencyBalance(ctx, eosgo.AccountName(account), a.params.Symbol, eosgo.AccountName("eosio.token"))
	if err != nil {
		return 0, adapter.Transient(fmt.Errorf("balance of %s: %w", account, err))
	}
	if len(assets) == 0 {
		return 0, nil
	}
	return uint64(assets[0].Amount), nil
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

	balance, err := a.SpendableBalance(ctx, string(a.account))
	if err != nil {
		return nil, err
	}
	if balance < params.Amount {
		return nil, fmt.Errorf("%w: have %d, need %d", htlc.ErrInsufficientFunds, balance, params.Amount)
	}

	action := &eosgo.Action{
		Account: a.contract,
		Name:    eosgo.ActN("createhtlc"),
		Authorization: []eosgo.PermissionLevel{
			{Actor: a.account, Permission: eosgo.PN("active")},
		},
		ActionData: eosgo.NewActionData(createAction{
			Sender:    a.account,
			Recipient: eosgo.AccountName(params.Recipient),
			Quantity:  eosgo.NewEOSAsset(int64(params.Amount)),
			Hashlock:  eosgo.Checksum256(params.Hashlock[:]),
			Timelock:  uint64(params.Timelock.Unix()),
		}),
	}

	resp, err := a.api.SignPushActions(ctx, action)
	if err != nil {
		return nil, a.classify(fmt.Errorf("createhtlc: %w", err))
	}

	lockID, err := a.findLockByHashlock(ctx, params.Hashlock)
	if err != nil {
		return nil, err
	}

	a.log.Info("lock created", "lock_id", lockID, "tx", resp.TransactionID, "amount", params.Amount)
	return &adapter.LockResult{
		LockID: strconv.FormatUint(lockID, 10),
		TxID:   resp.TransactionID,
	}, nil
}

func (a *Adapter) ClaimFunds(ctx context.Context, lockID string, secret []byte) (string, error) {
	id, err := parseLockID(lockID)
	if err != nil {
		return "", err
	}

	action := &eosgo.Action{
		Account: a.contract,
		Name:    eosgo.ActN("claimhtlc"),
		Authorization: []eosgo.PermissionLevel{
			{Actor: a.account, Permission: eosgo.PN("active")},
		},
		ActionData: eosgo.NewActionData(claimAction{
			LockID: id,
			Secret: eosgo.HexBytes(secret),
		}),
	}

	resp, err := a.api.SignPushActions(ctx, action)
	if err != nil {
		return "", a.classify(fmt.Errorf("claimhtlc %s: %w", lockID, err))
	}

	a.log.Info("lock claimed", "lock_id", lockID, "tx", resp.TransactionID)
	return resp.TransactionID, nil
}

func (a *Adapter) RefundFunds(ctx context.Context, lockID string) (string, error) {
	id, err := parseLockID(lockID)
	if err != nil {
		return "", err
	}

	action := &eosgo.Action{
		Account: a.contract,
		Name:    eosgo.ActN("refundhtlc"),
		Authorization: []eosgo.PermissionLevel{
			{Actor: a.account, Permission: eosgo.PN("active")},
		},
		ActionData: eosgo.NewActionData(refundAction{LockID: id}),
	}

	resp, err := a.api.SignPushActions(ctx, action)
	if err != nil {
		return "", a.classify(fmt.Errorf("refundhtlc %s: %w", lockID, err))
	}

	a.log.Info("lock refunded", "lock_id", lockID, "tx", resp.TransactionID)
	return resp.TransactionID, nil
}

func (a *Adapter) LockStatus(ctx context.Context, lockID string) (*adapter.LockState, error) {
	id, err := parseLockID(lockID)
	if err != nil {
		return nil, err
	}

	bound := strconv.FormatUint(id, 10)
	resp, err := a.api.GetTableRows(ctx, eosgo.GetTableRowsRequest{
		Code:       string(a.contract),
		Scope:      string(a.contract),
		Table:      "locks",
		LowerBound: bound,
		UpperBound: bound,
		Limit:      1,
		JSON:       true,
	})
	if err != nil {
		return nil, adapter.Transient(fmt.Errorf("table query %s: %w", lockID, err))
	}

	var rows []lockRow
	if err := json.Unmarshal(resp.Rows, &rows); err != nil {
		return nil, fmt.Errorf("decode lock row: %w", err)
	}
	if len(rows) == 0 {
		return nil, htlc.ErrLockNotFound
	}

	return rowToState(rows[0])
}

func rowToState(row lockRow) (*adapter.LockState, error) {
	asset, err := eosgo.NewAssetFromString(row.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", row.Quantity, err)
	}

	hashlock, err := hex.DecodeString(row.Hashlock)
	if err != nil || len(hashlock) != 32 {
		return nil, fmt.Errorf("parse hashlock %q: %w", row.Hashlock, err)
	}

	state := &adapter.LockState{
		Status: htlc.StatusCreated,
		// EOSIO is final after irreversibility; a row in the table is
		// good enough for the single confirmation the policy asks for.
		Confirmations: 1,
		Amount:        uint64(asset.Amount),
		Timelock:      time.Unix(int64(row.Timelock), 0).UTC(),
	}
	copy(state.Hashlock[:], hashlock)

	switch {
	case row.Claimed != 0:
		state.Status = htlc.StatusClaimed
		if row.Secret != "" {
			secret, err := hex.DecodeString(row.Secret)
			if err != nil {
				return nil, fmt.Errorf("parse secret: %w", err)
			}
			state.Secret = secret
		}
	case row.Refunded != 0:
		state.Status = htlc.StatusRefunded
	}
	return state, nil
}

// findLockByHashlock resolves the table primary key of a fresh lock
// through the sha256 secondary index on the hashlock column.
func (a *Adapter) findLockByHashlock(ctx context.Context, hashlock [32]byte) (uint64, error) {
	key := hex.EncodeToString(hashlock[:])
	resp, err := a.api.GetTableRows(ctx, eosgo.GetTableRowsRequest{
		Code:       string(a.contract),
		Scope:      string(a.contract),
		Table:      "locks",
		Index:      "2",
		KeyType:    "sha256",
		LowerBound: key,
		UpperBound: key,
		Limit:      1,
		JSON:       true,
	})
	if err != nil {
		return 0, adapter.Transient(fmt.Errorf("hashlock index query: %w", err))
	}

	var rows []lockRow
	if err := json.Unmarshal(resp.Rows, &rows); err != nil {
		return 0, fmt.Errorf("decode lock row: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("created lock not found by hashlock %s", key)
	}
	return rows[0].ID, nil
}

func parseLockID(lockID string) (uint64, error) {
	id, err := strconv.ParseUint(lockID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad lock id %q", htlc.ErrLockNotFound, lockID)
	}
	return id, nil
}

// classify maps contract assertion messages to the lock error taxonomy
// and treats everything else as retryable infrastructure failure.
func (a *Adapter) classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr eosgo.APIError
	if !errors.As(err, &apiErr) {
		return adapter.Transient(err)
	}

	msg := strings.ToLower(apiErr.ErrorStruct.What)
	for _, detail := range apiErr.ErrorStruct.Details {
		msg += " " + strings.ToLower(detail.Message)
	}

	switch {
	case strings.Contains(msg, "invalid secret"):
		return htlc.ErrSecretMismatch
	case strings.Contains(msg, "already claimed"):
		return htlc.ErrAlreadyClaimed
	case strings.Contains(msg, "already refunded"):
		return htlc.ErrAlreadyRefunded
	case strings.Contains(msg, "timelock not expired"):
		return htlc.ErrTimelockNotExpired
	case strings.Contains(msg, "timelock expired"):
		return htlc.ErrTimelockExpired
	case strings.Contains(msg, "timelock in past"):
		return htlc.ErrInvalidTimelock
	case strings.Contains(msg, "lock not found"):
		return htlc.ErrLockNotFound
	case strings.Contains(msg, "overdrawn balance"):
		return htlc.ErrInsufficientFunds
	}
	return err
}
