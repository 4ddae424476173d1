package saferoot

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&saferootHandler{})
}

// saferootHandler implements sysaction.Handler for calls on an existing
// instance. The instance address travels in the payload and must hold a
// genuine clone.
type saferootHandler struct{}

func (h *saferootHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionSafeguardAdd, sysaction.ActionSafeguardInitiate, sysaction.ActionSaferootSetBackup,
		sysaction.ActionSaferootWithdrawERC20, sysaction.ActionSaferootWithdrawERC721:
		return true
	}
	return false
}

func (h *saferootHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	switch sa.Action {
	case sysaction.ActionSafeguardAdd:
		return h.handleAdd(ctx, sa)
	case sysaction.ActionSafeguardInitiate:
		return h.handleInitiate(ctx, sa)
	case sysaction.ActionSaferootSetBackup:
		return h.handleSetBackup(ctx, sa)
	case sysaction.ActionSaferootWithdrawERC20:
		return h.handleWithdrawERC20(ctx, sa)
	case sysaction.ActionSaferootWithdrawERC721:
		return h.handleWithdrawERC721(ctx, sa)
	}
	return fmt.Errorf("saferoot handler: unsupported action %q", sa.Action)
}

func (h *saferootHandler) handleAdd(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var p sysaction.SafeguardAddPayload
	if err := sysaction.DecodePayload(sa, &p); err != nil {
		return err
	}
	s, err := Bind(ctx.StateDB, p.Saferoot, ctx.Tokens)
	if err != nil {
		return err
	}
	entries, err := EntriesFromArgs(p.Entries)
	if err != nil {
		return err
	}
	ctx.Items = len(entries)
	_, err = s.AddSafeguard(ctx.From, entries)
	return err
}

func (h *saferootHandler) handleInitiate(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var p sysaction.SafeguardInitiatePayload
	if err := sysaction.DecodePayload(sa, &p); err != nil {
		return err
	}
	s, err := Bind(ctx.StateDB, p.Saferoot, ctx.Tokens)
	if err != nil {
		return err
	}
	ctx.Items = len(p.Keys)
	_, err = s.InitiateSafeguard(ctx.From, p.Keys)
	return err
}

func (h *saferootHandler) handleSetBackup(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var p sysaction.SaferootSetBackupPayload
	if err := sysaction.DecodePayload(sa, &p); err != nil {
		return err
	}
	s, err := Bind(ctx.StateDB, p.Saferoot, ctx.Tokens)
	if err != nil {
		return err
	}
	return s.SetBackupWallet(ctx.From, p.Backup)
}

func (h *saferootHandler) handleWithdrawERC20(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var p sysaction.SaferootWithdrawERC20Payload
	if err := sysaction.DecodePayload(sa, &p); err != nil {
		return err
	}
	s, err := Bind(ctx.StateDB, p.Saferoot, ctx.Tokens)
	if err != nil {
		return err
	}
	_, err = s.WithdrawERC20(ctx.From, p.Token)
	return err
}

func (h *saferootHandler) handleWithdrawERC721(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	var p sysaction.SaferootWithdrawERC721Payload
	if err := sysaction.DecodePayload(sa, &p); err != nil {
		return err
	}
	s, err := Bind(ctx.StateDB, p.Saferoot, ctx.Tokens)
	if err != nil {
		return err
	}
	id, err := tokenIDFromArg(p.TokenID)
	if err != nil {
		return err
	}
	return s.WithdrawERC721(ctx.From, p.Token, id)
}

// EntriesFromArgs converts wire entries into registry input.
func EntriesFromArgs(args []sysaction.SafeEntryArgs) ([]SafeEntry, error) {
	entries := make([]SafeEntry, 0, len(args))
	for i, a := range args {
		id, err := tokenIDFromArg(a.TokenID)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, SafeEntry{
			Standard:        ParseTokenStandard(a.Standard),
			ContractAddress: a.ContractAddress,
			TokenID:         id,
		})
	}
	return entries, nil
}

// ArgsFromEntries is the inverse of EntriesFromArgs.
func ArgsFromEntries(entries []SafeEntry) []sysaction.SafeEntryArgs {
	args := make([]sysaction.SafeEntryArgs, 0, len(entries))
	for _, e := range entries {
		args = append(args, sysaction.SafeEntryArgs{
			Standard:        e.Standard.String(),
			ContractAddress: e.ContractAddress,
			TokenID:         (*hexutil.Big)(e.tokenID().ToBig()),
		})
	}
	return args
}

func tokenIDFromArg(arg *hexutil.Big) (*uint256.Int, error) {
	if arg == nil {
		return new(uint256.Int), nil
	}
	id, overflow := uint256.FromBig((*big.Int)(arg))
	if overflow || arg.ToInt().Sign() < 0 {
		return nil, fmt.Errorf("%w: token id out of range", sysaction.ErrInvalidSysAction)
	}
	return id, nil
}
