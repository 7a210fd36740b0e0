// Package evm implements the chain adapter for Ethereum and other EVM
// networks over an escrow contract.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/logging"
)

// Adapter talks to an EVM chain through an HTLC escrow contract.
type Adapter struct {
	params   *chain.Params
	client   *ethclient.Client
	contract *bind.BoundContract
	abi      abi.ABI

	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int

	// Serializes transactions from our single key so nonces stay
	// monotonic under concurrent swaps.
	txMu sync.Mutex

	// creationBlocks tracks the block each lock was created in, for
	// confirmation counting. Locks created before this process
	// started are not tracked and are treated as final.
	mu             sync.Mutex
	creationBlocks map[string]uint64

	log *logging.Logger
}

// New connects to an EVM RPC endpoint and binds the escrow contract.
func New(ctx context.Context, params *chain.Params, rpcURL, contractAddr, privKeyHex string) (*Adapter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	parsed, err := parseHTLCABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	addr := common.HexToAddress(contractAddr)
	return &Adapter{
		params:         params,
		client:         client,
		contract:       newBoundHTLC(addr, parsed, client),
		abi:            parsed,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        new(big.Int).SetUint64(params.ChainID),
		creationBlocks: make(map[string]uint64),
		log:            logging.GetDefault().Component("evm"),
	}, nil
}

// Close releases the RPC connection.
func (a *Adapter) Close() {
	a.client.Close()
}

func (a *Adapter) Chain() *chain.Params {
	return a.params
}

func (a *Adapter) Now(ctx context.Context) (time.Time, error) {
	header, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, adapter.Transient(fmt.Errorf("head header: %w", err))
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

func (a *Adapter) SpendableBalance(ctx context.Context, account string) (uint64, error) {
	bal, err := a.client.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return 0, adapter.Transient(fmt.Errorf("balance of %s: %w", account, err))
	}
	if !bal.IsUint64() {
		return ^uint64(0), nil
	}
	return bal.Uint64(), nil
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

	balance, err := a.SpendableBalance(ctx, a.from.Hex())
	if err != nil {
		return nil, err
	}
	if balance < params.Amount {
		return nil, fmt.Errorf("%w: have %d wei, need %d", htlc.ErrInsufficientFunds, balance, params.Amount)
	}

	a.txMu.Lock()
	defer a.txMu.Unlock()

	opts, err := a.transactor(ctx)
	if err != nil {
		return nil, err
	}
	opts.Value = new(big.Int).SetUint64(params.Amount)

	tx, err := a.contract.Transact(opts, "createHTLC",
		common.HexToAddress(params.Recipient),
		params.Hashlock,
		big.NewInt(params.Timelock.Unix()),
	)
	if err != nil {
		return nil, a.classify(fmt.Errorf("createHTLC: %w", err))
	}

	receipt, err := a.waitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	lockID, err := a.lockIDFromReceipt(receipt)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.creationBlocks[lockID] = receipt.BlockNumber.Uint64()
	a.mu.Unlock()

	a.log.Info("lock created", "lock_id", lockID, "tx", tx.Hash().Hex(), "amount", params.Amount)
	return &adapter.LockResult{LockID: lockID, TxID: tx.Hash().Hex()}, nil
}

func (a *Adapter) ClaimFunds(ctx context.Context, lockID string, secret []byte) (string, error) {
	if len(secret) != htlc.SecretSize {
		return "", fmt.Errorf("%w: secret must be %d bytes", htlc.ErrSecretMismatch, htlc.SecretSize)
	}
	var secret32 [32]byte
	copy(secret32[:], secret)

	a.txMu.Lock()
	defer a.txMu.Unlock()

	opts, err := a.transactor(ctx)
	if err != nil {
		return "", err
	}

	tx, err := a.contract.Transact(opts, "claim", common.HexToHash(lockID), secret32)
	if err != nil {
		return "", a.classify(fmt.Errorf("claim %s: %w", lockID, err))
	}
	if _, err := a.waitMined(ctx, tx); err != nil {
		return "", err
	}

	a.log.Info("lock claimed", "lock_id", lockID, "tx", tx.Hash().Hex())
	return tx.Hash().Hex(), nil
}

func (a *Adapter) RefundFunds(ctx context.Context, lockID string) (string, error) {
	a.txMu.Lock()
	defer a.txMu.Unlock()

	opts, err := a.transactor(ctx)
	if err != nil {
		return "", err
	}

	tx, err := a.contract.Transact(opts, "refund", common.HexToHash(lockID))
	if err != nil {
		return "", a.classify(fmt.Errorf("refund %s: %w", lockID, err))
	}
	if _, err := a.waitMined(ctx, tx); err != nil {
		return "", err
	}

	a.log.Info("lock refunded", "lock_id", lockID, "tx", tx.Hash().Hex())
	return tx.Hash().Hex(), nil
}

func (a *Adapter) LockStatus(ctx context.Context, lockID string) (*adapter.LockState, error) {
	var out []interface{}
	err := a.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getHTLC", common.HexToHash(lockID))
	if err != nil {
		return nil, a.classify(fmt.Errorf("getHTLC %s: %w", lockID, err))
	}

	amount := out[2].(*big.Int)
	hashlock := out[3].([32]byte)
	timelock := out[4].(*big.Int)
	claimed := out[5].(bool)
	refunded := out[6].(bool)
	secret := out[7].([32]byte)

	// A zero struct means the contract has never seen this id. If we
	// created the lock ourselves the transaction may still be in the
	// mempool of a lagging RPC node.
	if amount.Sign() == 0 && timelock.Sign() == 0 {
		a.mu.Lock()
		_, tracked := a.creationBlocks[lockID]
		a.mu.Unlock()
		if tracked {
			return nil, htlc.ErrNotYetFunded
		}
		return nil, htlc.ErrLockNotFound
	}

	state := &adapter.LockState{
		Status:   htlc.StatusCreated,
		Amount:   amount.Uint64(),
		Hashlock: hashlock,
		Timelock: time.Unix(timelock.Int64(), 0).UTC(),
	}
	switch {
	case claimed:
		state.Status = htlc.StatusClaimed
		state.Secret = append([]byte(nil), secret[:]...)
	case refunded:
		state.Status = htlc.StatusRefunded
	}

	state.Confirmations, err = a.confirmations(ctx, lockID)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (a *Adapter) confirmations(ctx context.Context, lockID string) (uint32, error) {
	a.mu.Lock()
	created, tracked := a.creationBlocks[lockID]
	a.mu.Unlock()
	if !tracked {
		// Lock predates this process, treat as long confirmed.
		return ^uint32(0), nil
	}

	head, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, adapter.Transient(fmt.Errorf("block number: %w", err))
	}
	if head < created {
		return 0, nil
	}
	confs := head - created + 1
	if confs > uint64(^uint32(0)) {
		return ^uint32(0), nil
	}
	return uint32(confs), nil
}

func (a *Adapter) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(a.key, a.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func (a *Adapter) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, a.client, tx)
	if err != nil {
		return nil, adapter.Transient(fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

func (a *Adapter) lockIDFromReceipt(receipt *types.Receipt) (string, error) {
	createdID := a.abi.Events["HTLCCreated"].ID
	for _, log := range receipt.Logs {
		if len(log.Topics) > 1 && log.Topics[0] == createdID {
			return log.Topics[1].Hex(), nil
		}
	}
	return "", fmt.Errorf("transaction %s has no HTLCCreated event", receipt.TxHash.Hex())
}

// classify separates contract reverts, which map to the lock error
// taxonomy, from infrastructure failures, which are retryable.
func (a *Adapter) classify(err error) error {
	if err == nil {
		return nil
	}
	mapped := mapRevert(err)
	if mapped != err {
		return mapped
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return err
	}
	return adapter.Transient(err)
}
