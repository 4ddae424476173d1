package saferootapi

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tos-network/saferoot/core"
	"github.com/tos-network/saferoot/sysaction"
)

// LedgerBackend is the write side of the ledger. Satisfied by core.Ledger.
type LedgerBackend interface {
	Apply(msg core.Message) (*types.Receipt, error)
	Commit() (common.Hash, error)
	Number() uint64
}

// LedgerAPI implements the ledger_* namespace.
type LedgerAPI struct {
	b LedgerBackend
}

func NewLedgerAPI(b LedgerBackend) *LedgerAPI {
	return &LedgerAPI{b: b}
}

// ActionResult is the outcome of a submitted action. A failed action still
// has a receipt; Error carries the reason.
type ActionResult struct {
	Receipt *types.Receipt `json:"receipt"`
	Error   string         `json:"error,omitempty"`
}

// SendAction applies a system action on behalf of from. Only errors that
// prevent the message from being applied at all are returned as RPC errors.
func (api *LedgerAPI) SendAction(_ context.Context, from common.Address, action sysaction.ActionKind, payload json.RawMessage) (*ActionResult, error) {
	msg, err := core.NewActionMessage(from, action, payload)
	if err != nil {
		return nil, err
	}
	receipt, err := api.b.Apply(msg)
	if receipt == nil {
		return nil, err
	}
	res := &ActionResult{Receipt: receipt}
	if err != nil {
		res.Error = err.Error()
	}
	return res, nil
}

// Commit seals the pending block and returns its state root.
func (api *LedgerAPI) Commit(_ context.Context) (common.Hash, error) {
	return api.b.Commit()
}

// BlockNumber returns the number of the pending block.
func (api *LedgerAPI) BlockNumber(_ context.Context) hexutil.Uint64 {
	return hexutil.Uint64(api.b.Number())
}
