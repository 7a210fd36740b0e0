package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/htlc"
)

// htlcABI is the escrow contract interface. createHTLC derives the
// lock id on-chain and emits it in the HTLCCreated event.
const htlcABI = `[
  {"type":"function","name":"createHTLC","stateMutability":"payable",
   "inputs":[{"name":"recipient","type":"address"},
             {"name":"hashlock","type":"bytes32"},
             {"name":"timelock","type":"uint256"}],
   "outputs":[{"name":"lockId","type":"bytes32"}]},
  {"type":"function","name":"claim","stateMutability":"nonpayable",
   "inputs":[{"name":"lockId","type":"bytes32"},
             {"name":"secret","type":"bytes32"}],
   "outputs":[]},
  {"type":"function","name":"refund","stateMutability":"nonpayable",
   "inputs":[{"name":"lockId","type":"bytes32"}],
   "outputs":[]},
  {"type":"function","name":"getHTLC","stateMutability":"view",
   "inputs":[{"name":"lockId","type":"bytes32"}],
   "outputs":[{"name":"sender","type":"address"},
              {"name":"recipient","type":"address"},
              {"name":"amount","type":"uint256"},
              {"name":"hashlock","type":"bytes32"},
              {"name":"timelock","type":"uint256"},
              {"name":"claimed","type":"bool"},
              {"name":"refunded","type":"bool"},
              {"name":"secret","type":"bytes32"}]},
  {"type":"event","name":"HTLCCreated","anonymous":false,
   "inputs":[{"name":"lockId","type":"bytes32","indexed":true},
             {"name":"sender","type":"address","indexed":true},
             {"name":"recipient","type":"address","indexed":true},
             {"name":"amount","type":"uint256","indexed":false},
             {"name":"hashlock","type":"bytes32","indexed":false},
             {"name":"timelock","type":"uint256","indexed":false}]},
  {"type":"event","name":"HTLCClaimed","anonymous":false,
   "inputs":[{"name":"lockId","type":"bytes32","indexed":true},
             {"name":"secret","type":"bytes32","indexed":false}]},
  {"type":"event","name":"HTLCRefunded","anonymous":false,
   "inputs":[{"name":"lockId","type":"bytes32","indexed":true}]}
]`

func parseHTLCABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(htlcABI))
}

func newBoundHTLC(address common.Address, parsed abi.ABI, backend bind.ContractBackend) *bind.BoundContract {
	return bind.NewBoundContract(address, parsed, backend, backend, backend)
}

// mapRevert translates contract revert reasons into the lock error
// taxonomy. Unrecognized reverts pass through unchanged.
func mapRevert(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "execution reverted") {
		return err
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
	case strings.Contains(msg, "unknown lock"):
		return htlc.ErrLockNotFound
	}
	return err
}
