package sysaction

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/token"
)

// Context carries information available to a system-action handler.
type Context struct {
	From        common.Address
	BlockNumber *big.Int
	StateDB     vm.StateDB
	Tokens      token.Resolver

	// Items is set by handlers to the number of entries or keys processed;
	// each one is charged params.SafeguardItemGas.
	Items int
}

// Handler is implemented by the factory and saferoot sub-systems.
type Handler interface {
	CanHandle(kind ActionKind) bool
	Handle(ctx *Context, sa *SysAction) error
}

// Registry holds registered handlers.
type Registry struct{ handlers []Handler }

// DefaultRegistry is the process-wide handler registry.
var DefaultRegistry = &Registry{}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) { r.handlers = append(r.handlers, h) }

// Msg is the minimal message interface for Execute, satisfied by core.Message.
type Msg interface {
	From() common.Address
	Data() []byte
}

// Execute processes a system action from msg and dispatches to a registered
// handler. A failing action leaves no trace in db.
func Execute(msg Msg, db vm.StateDB, tokens token.Resolver) (uint64, error) {
	ctx := &Context{
		From:    msg.From(),
		StateDB: db,
		Tokens:  tokens,
	}
	err := ExecuteWithContext(ctx, msg.Data())
	return Gas(ctx), err
}

// ExecuteWithContext dispatches using a pre-built Context.
func ExecuteWithContext(ctx *Context, data []byte) error {
	sa, err := Decode(data)
	if err != nil {
		return err
	}
	for _, h := range DefaultRegistry.handlers {
		if h.CanHandle(sa.Action) {
			snapshot := ctx.StateDB.Snapshot()
			if err := h.Handle(ctx, sa); err != nil {
				ctx.StateDB.RevertToSnapshot(snapshot)
				log.Debug("System action failed", "action", sa.Action, "from", ctx.From, "err", err)
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("unknown system action: %q", sa.Action)
}

// Gas returns the gas charged for the action run with ctx.
func Gas(ctx *Context) uint64 {
	return params.SysActionGas + uint64(ctx.Items)*params.SafeguardItemGas
}
