package saferoot

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
)

// EventsABI describes the logs emitted by instances and by the factory.
// All arguments are carried in the log data; topic 0 is the event id.
const EventsABI = `[
	{"type":"event","name":"ERC20SafeguardAdded","inputs":[{"name":"key","type":"bytes32"}]},
	{"type":"event","name":"ERC721SafeguardAdded","inputs":[{"name":"key","type":"bytes32"},{"name":"tokenId","type":"uint256"}]},
	{"type":"event","name":"ERC1155SafeguardAdded","inputs":[{"name":"key","type":"bytes32"},{"name":"tokenId","type":"uint256"}]},
	{"type":"event","name":"SafeguardInitiated","inputs":[{"name":"key","type":"bytes32"}]},
	{"type":"event","name":"TransferSkip","inputs":[{"name":"key","type":"bytes32"},{"name":"standard","type":"uint8"}]},
	{"type":"event","name":"BackupUpdated","inputs":[{"name":"backup","type":"address"}]},
	{"type":"event","name":"SaferootDeployed","inputs":[{"name":"contractAddress","type":"address"},{"name":"user","type":"address"},{"name":"service","type":"address"},{"name":"backup","type":"address"}]}
]`

var eventsABI = mustParseABI(EventsABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("saferoot: invalid events ABI: %v", err))
	}
	return parsed
}

// EventID returns topic 0 of the named event.
func EventID(name string) common.Hash {
	return eventsABI.Events[name].ID
}

// SafeguardAdded is decoded from the ERC20/ERC721/ERC1155SafeguardAdded logs.
type SafeguardAdded struct {
	Saferoot common.Address
	Key      common.Hash
	Standard TokenStandard
	TokenID  *uint256.Int // zero for ERC20
}

// SafeguardInitiated is decoded from a SafeguardInitiated log.
type SafeguardInitiated struct {
	Saferoot common.Address
	Key      common.Hash
}

// TransferSkip is decoded from a TransferSkip log.
type TransferSkip struct {
	Saferoot common.Address
	Key      common.Hash
	Standard TokenStandard
}

// BackupUpdated is decoded from a BackupUpdated log.
type BackupUpdated struct {
	Saferoot common.Address
	Backup   common.Address
}

// SaferootDeployed is decoded from the factory's SaferootDeployed log.
type SaferootDeployed struct {
	Factory  common.Address
	Saferoot common.Address
	User     common.Address
	Service  common.Address
	Backup   common.Address
}

func emit(db vm.StateDB, emitter common.Address, name string, args ...interface{}) {
	ev := eventsABI.Events[name]
	data, err := ev.Inputs.Pack(args...)
	if err != nil {
		panic(fmt.Sprintf("saferoot: packing %s: %v", name, err))
	}
	db.AddLog(&types.Log{
		Address: emitter,
		Topics:  []common.Hash{ev.ID},
		Data:    data,
	})
}

func emitERC20SafeguardAdded(db vm.StateDB, emitter common.Address, key common.Hash) {
	emit(db, emitter, "ERC20SafeguardAdded", [32]byte(key))
}

func emitERC721SafeguardAdded(db vm.StateDB, emitter common.Address, key common.Hash, id *uint256.Int) {
	emit(db, emitter, "ERC721SafeguardAdded", [32]byte(key), id.ToBig())
}

func emitERC1155SafeguardAdded(db vm.StateDB, emitter common.Address, key common.Hash, id *uint256.Int) {
	emit(db, emitter, "ERC1155SafeguardAdded", [32]byte(key), id.ToBig())
}

func emitSafeguardInitiated(db vm.StateDB, emitter common.Address, key common.Hash) {
	emit(db, emitter, "SafeguardInitiated", [32]byte(key))
}

func emitTransferSkip(db vm.StateDB, emitter common.Address, key common.Hash, standard TokenStandard) {
	emit(db, emitter, "TransferSkip", [32]byte(key), uint8(standard))
}

func emitBackupUpdated(db vm.StateDB, emitter common.Address, backup common.Address) {
	emit(db, emitter, "BackupUpdated", backup)
}

// EmitSaferootDeployed records a new instance in the logs of factory.
func EmitSaferootDeployed(db vm.StateDB, factory, instance common.Address, addrs Addresses) {
	emit(db, factory, "SaferootDeployed", instance, addrs.User, addrs.Service, addrs.Backup)
}

// ParseLog decodes a log emitted by an instance or the factory into one of
// *SafeguardAdded, *SafeguardInitiated, *TransferSkip, *BackupUpdated or
// *SaferootDeployed. Logs of other contracts yield ErrUnknownEvent.
func ParseLog(l *types.Log) (interface{}, error) {
	if len(l.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	ev, err := eventsABI.EventByID(l.Topics[0])
	if err != nil {
		return nil, ErrUnknownEvent
	}
	values, err := ev.Inputs.Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("saferoot: decoding %s: %w", ev.Name, err)
	}
	switch ev.Name {
	case "ERC20SafeguardAdded":
		return &SafeguardAdded{Saferoot: l.Address, Key: hashArg(values[0]), Standard: ERC20, TokenID: new(uint256.Int)}, nil
	case "ERC721SafeguardAdded":
		return &SafeguardAdded{Saferoot: l.Address, Key: hashArg(values[0]), Standard: ERC721, TokenID: uintArg(values[1])}, nil
	case "ERC1155SafeguardAdded":
		return &SafeguardAdded{Saferoot: l.Address, Key: hashArg(values[0]), Standard: ERC1155, TokenID: uintArg(values[1])}, nil
	case "SafeguardInitiated":
		return &SafeguardInitiated{Saferoot: l.Address, Key: hashArg(values[0])}, nil
	case "TransferSkip":
		return &TransferSkip{Saferoot: l.Address, Key: hashArg(values[0]), Standard: TokenStandard(values[1].(uint8))}, nil
	case "BackupUpdated":
		return &BackupUpdated{Saferoot: l.Address, Backup: values[0].(common.Address)}, nil
	case "SaferootDeployed":
		return &SaferootDeployed{
			Factory:  l.Address,
			Saferoot: values[0].(common.Address),
			User:     values[1].(common.Address),
			Service:  values[2].(common.Address),
			Backup:   values[3].(common.Address),
		}, nil
	}
	return nil, ErrUnknownEvent
}

func hashArg(v interface{}) common.Hash {
	return common.Hash(v.([32]byte))
}

func uintArg(v interface{}) *uint256.Int {
	n, overflow := uint256.FromBig(v.(*big.Int))
	if overflow {
		return new(uint256.Int)
	}
	return n
}
