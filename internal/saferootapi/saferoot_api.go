// Package saferootapi provides the saferoot_* and saferootidx_* read
// namespaces for integrators.
package saferootapi

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/saferoot"
	"github.com/tos-network/saferoot/token"
)

// Backend gives read access to the pending state. Satisfied by core.Ledger.
type Backend interface {
	View(fn func(db vm.StateDB, tokens token.Resolver) error) error
}

// SaferootAPI implements the saferoot_* namespace.
type SaferootAPI struct {
	b Backend
}

// NewSaferootAPI creates a SaferootAPI reading from b.
func NewSaferootAPI(b Backend) *SaferootAPI {
	return &SaferootAPI{b: b}
}

// SafeguardResult is the JSON form of a registered row.
type SafeguardResult struct {
	Key             common.Hash            `json:"key"`
	Standard        saferoot.TokenStandard `json:"standard"`
	ContractAddress common.Address         `json:"contractAddress"`
	TokenID         *hexutil.Big           `json:"tokenId"`
}

// EncodeKey returns the key a registration of (contract, standard, slot)
// is stored under.
func (api *SaferootAPI) EncodeKey(_ context.Context, contract common.Address, standard saferoot.TokenStandard, slot hexutil.Uint64) common.Hash {
	return saferoot.EncodeKey(contract, standard, uint64(slot))
}

// SaferootImplementation returns the address every instance delegates to.
func (api *SaferootAPI) SaferootImplementation(_ context.Context) common.Address {
	return params.SaferootImplementationAddress
}

// IsSaferoot reports whether addr is a genuine instance.
func (api *SaferootAPI) IsSaferoot(_ context.Context, addr common.Address) (bool, error) {
	var ok bool
	err := api.b.View(func(db vm.StateDB, _ token.Resolver) error {
		ok = saferoot.IsSaferoot(db, addr)
		return nil
	})
	return ok, err
}

// Addresses returns the role triple of the instance at addr.
func (api *SaferootAPI) Addresses(_ context.Context, addr common.Address) (*saferoot.Addresses, error) {
	var out saferoot.Addresses
	err := api.withInstance(addr, func(s *saferoot.Saferoot) {
		out = s.Addresses()
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// KeyToTokenID returns the token id stored under key, zero if absent.
func (api *SaferootAPI) KeyToTokenID(_ context.Context, addr common.Address, key common.Hash) (*hexutil.Big, error) {
	var out *hexutil.Big
	err := api.withInstance(addr, func(s *saferoot.Saferoot) {
		out = (*hexutil.Big)(s.KeyToTokenID(key).ToBig())
	})
	return out, err
}

// GetSafeguard returns the row registered under key, or nil.
func (api *SaferootAPI) GetSafeguard(_ context.Context, addr common.Address, key common.Hash) (*SafeguardResult, error) {
	var out *SafeguardResult
	err := api.withInstance(addr, func(s *saferoot.Saferoot) {
		if row, ok := s.Safeguard(key); ok {
			out = &SafeguardResult{
				Key:             row.Key,
				Standard:        row.Standard,
				ContractAddress: row.ContractAddress,
				TokenID:         (*hexutil.Big)(row.TokenID.ToBig()),
			}
		}
	})
	return out, err
}

// Counter returns the slot the next non-fungible registration will take.
func (api *SaferootAPI) Counter(_ context.Context, addr common.Address) (hexutil.Uint64, error) {
	var out hexutil.Uint64
	err := api.withInstance(addr, func(s *saferoot.Saferoot) {
		out = hexutil.Uint64(s.Counter())
	})
	return out, err
}

func (api *SaferootAPI) withInstance(addr common.Address, fn func(s *saferoot.Saferoot)) error {
	return api.b.View(func(db vm.StateDB, tokens token.Resolver) error {
		s, err := saferoot.Bind(db, addr, tokens)
		if err != nil {
			return err
		}
		fn(s)
		return nil
	})
}
