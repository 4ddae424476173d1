// Package factory deploys Saferoot instances as minimal-proxy clones of the
// canonical implementation, one per protected wallet.
package factory

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/saferoot"
	"github.com/tos-network/saferoot/token"
)

var (
	ErrNotInstalled      = errors.New("factory: not installed")
	ErrContractCollision = errors.New("factory: contract address collision")
)

// Marker code of the canonical contracts.
var (
	factoryCode        = []byte("saferoot.factory.v1")
	implementationCode = []byte("saferoot.implementation.v1")
)

var deployedMeter = metrics.NewRegisteredMeter("saferoot/factory/deployed", nil)

// Factory creates instances from the factory account at
// params.SaferootFactoryAddress.
type Factory struct {
	db     vm.StateDB
	addr   common.Address
	impl   common.Address
	tokens token.Resolver
}

// New returns the factory bound to db. tokens is handed to every instance
// it creates.
func New(db vm.StateDB, tokens token.Resolver) *Factory {
	return &Factory{
		db:     db,
		addr:   params.SaferootFactoryAddress,
		impl:   params.SaferootImplementationAddress,
		tokens: tokens,
	}
}

// Install places the factory and implementation code. Calling it again is a
// no-op.
func (f *Factory) Install() {
	if f.db.GetCodeSize(f.addr) == 0 {
		f.db.SetCode(f.addr, factoryCode)
		log.Info("Installed saferoot factory", "address", f.addr)
	}
	if f.db.GetCodeSize(f.impl) == 0 {
		f.db.SetCode(f.impl, implementationCode)
		log.Info("Installed saferoot implementation", "address", f.impl)
	}
}

// Address returns the factory address.
func (f *Factory) Address() common.Address { return f.addr }

// SaferootImplementation returns the address every clone delegates to.
func (f *Factory) SaferootImplementation() common.Address { return f.impl }

// IsSaferoot reports whether addr is a clone of the implementation.
func (f *Factory) IsSaferoot(addr common.Address) bool {
	return saferoot.IsSaferoot(f.db, addr)
}

// CreateSaferoot deploys an instance owned by caller.
func (f *Factory) CreateSaferoot(caller, service, backup common.Address) (common.Address, error) {
	if service == (common.Address{}) || backup == (common.Address{}) {
		return common.Address{}, saferoot.ErrZeroAddress
	}
	snapshot := f.db.Snapshot()
	s, err := f.deploy(caller, service, backup)
	if err != nil {
		f.db.RevertToSnapshot(snapshot)
		return common.Address{}, err
	}
	return s.Address(), nil
}

// CreateSaferootWithSafeguards deploys an instance owned by caller and
// registers entries in the same step. Every entry's contract must already
// have code. Either everything happens or nothing does.
func (f *Factory) CreateSaferootWithSafeguards(caller, service, backup common.Address, entries []saferoot.SafeEntry) (common.Address, []common.Hash, error) {
	if service == (common.Address{}) || backup == (common.Address{}) {
		return common.Address{}, nil, saferoot.ErrZeroAddress
	}
	for _, e := range entries {
		if f.db.GetCodeSize(e.ContractAddress) == 0 {
			return common.Address{}, nil, saferoot.ErrInvalidContractAddress
		}
	}
	snapshot := f.db.Snapshot()
	s, err := f.deploy(caller, service, backup)
	if err != nil {
		f.db.RevertToSnapshot(snapshot)
		return common.Address{}, nil, err
	}
	keys, err := s.AddSafeguard(caller, entries)
	if err != nil {
		f.db.RevertToSnapshot(snapshot)
		return common.Address{}, nil, err
	}
	return s.Address(), keys, nil
}

func (f *Factory) deploy(user, service, backup common.Address) (*saferoot.Saferoot, error) {
	if f.db.GetCodeSize(f.addr) == 0 || f.db.GetCodeSize(f.impl) == 0 {
		return nil, ErrNotInstalled
	}
	nonce := f.db.GetNonce(f.addr)
	addr := crypto.CreateAddress(f.addr, nonce)
	if f.db.GetNonce(addr) != 0 || f.db.GetCodeSize(addr) != 0 {
		return nil, ErrContractCollision
	}
	f.db.SetNonce(f.addr, nonce+1)
	f.db.CreateAccount(addr)
	f.db.SetNonce(addr, 1)
	f.db.SetCode(addr, saferoot.CloneCode(f.impl))

	s := saferoot.New(f.db, addr, f.tokens)
	if err := s.Initialize(user, service, backup); err != nil {
		return nil, err
	}
	saferoot.EmitSaferootDeployed(f.db, f.addr, addr, saferoot.Addresses{User: user, Service: service, Backup: backup})
	deployedMeter.Mark(1)
	log.Info("Saferoot deployed", "saferoot", addr, "user", user, "service", service, "backup", backup)
	return s, nil
}
