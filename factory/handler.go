package factory

import (
	"fmt"

	"github.com/tos-network/saferoot/saferoot"
	"github.com/tos-network/saferoot/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&factoryHandler{})
}

// factoryHandler implements sysaction.Handler for instance creation.
type factoryHandler struct{}

func (h *factoryHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionSaferootCreate, sysaction.ActionSaferootCreateWithSafeguards:
		return true
	}
	return false
}

func (h *factoryHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	f := New(ctx.StateDB, ctx.Tokens)
	switch sa.Action {
	case sysaction.ActionSaferootCreate:
		var p sysaction.SaferootCreatePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		_, err := f.CreateSaferoot(ctx.From, p.Service, p.Backup)
		return err

	case sysaction.ActionSaferootCreateWithSafeguards:
		var p sysaction.SaferootCreateWithSafeguardsPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return err
		}
		entries, err := saferoot.EntriesFromArgs(p.Entries)
		if err != nil {
			return err
		}
		ctx.Items = len(entries)
		_, _, err = f.CreateSaferootWithSafeguards(ctx.From, p.Service, p.Backup, entries)
		return err
	}
	return fmt.Errorf("factory handler: unsupported action %q", sa.Action)
}
