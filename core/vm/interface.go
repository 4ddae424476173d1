// Package vm declares the state interface consumed by system contracts.
// There is no interpreter: factory, saferoot and token logic is native Go
// operating on contract storage through this interface.
package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// StateDB is the subset of *state.StateDB used by native contracts.
type StateDB interface {
	CreateAccount(common.Address)
	Exist(common.Address) bool

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64)

	GetCode(common.Address) []byte
	GetCodeSize(common.Address) int
	SetCode(common.Address, []byte)

	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash)

	AddLog(*types.Log)

	Snapshot() int
	RevertToSnapshot(int)
}
