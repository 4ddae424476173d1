package saferoot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/token"
)

// Saferoot is a handle on one instance. It holds no state of its own; every
// read and write goes to the instance address in db, so any number of
// handles on the same address observe the same instance.
type Saferoot struct {
	db     vm.StateDB
	addr   common.Address
	tokens token.Resolver
}

// New binds the instance at addr. tokens resolves the contracts named by
// safeguards and withdrawals.
func New(db vm.StateDB, addr common.Address, tokens token.Resolver) *Saferoot {
	return &Saferoot{db: db, addr: addr, tokens: tokens}
}

// Address returns the instance address.
func (s *Saferoot) Address() common.Address { return s.addr }

// Initialize sets the role triple. It runs once, in the transaction that
// deploys the clone.
func (s *Saferoot) Initialize(user, service, backup common.Address) error {
	if readInitialized(s.db, s.addr) {
		return ErrAlreadyInitialized
	}
	if user == (common.Address{}) || service == (common.Address{}) || backup == (common.Address{}) {
		return ErrZeroAddress
	}
	writeAddress(s.db, s.addr, userSlot, user)
	writeAddress(s.db, s.addr, serviceSlot, service)
	writeAddress(s.db, s.addr, backupSlot, backup)
	writeInitialized(s.db, s.addr)
	log.Debug("Saferoot initialized", "saferoot", s.addr, "user", user, "service", service, "backup", backup)
	return nil
}

// Initialized reports whether Initialize has run.
func (s *Saferoot) Initialized() bool {
	return readInitialized(s.db, s.addr)
}

// Addresses returns {user, service, backup}.
func (s *Saferoot) Addresses() Addresses {
	return readAddresses(s.db, s.addr)
}

// KeyToTokenID returns the token id stored under key, zero if absent.
func (s *Saferoot) KeyToTokenID(key common.Hash) *uint256.Int {
	return readTokenID(s.db, s.addr, key)
}

// Safeguard returns the registered row for key.
func (s *Saferoot) Safeguard(key common.Hash) (Safeguard, bool) {
	return readSafeguard(s.db, s.addr, key)
}

// Counter returns the slot the next non-fungible registration will take.
func (s *Saferoot) Counter() uint64 {
	return readUint64(s.db, s.addr, counterSlot)
}
