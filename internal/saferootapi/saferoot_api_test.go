package saferootapi

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/tos-network/saferoot/core"
	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/saferoot"
	"github.com/tos-network/saferoot/saferootidx"
	"github.com/tos-network/saferoot/sysaction"
	"github.com/tos-network/saferoot/token"
)

var (
	user    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	service = common.HexToAddress("0x00000000000000000000000000000000005e541c")
	backup  = common.HexToAddress("0x00000000000000000000000000000000000bac0b")
	nftAddr = common.HexToAddress("0x0000000000000000000000000000000000000721")
)

func setup(t *testing.T) (*core.Ledger, *saferootidx.Registry, common.Address) {
	t.Helper()
	l, err := core.NewLedger(&core.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	require.NoError(t, l.Update(func(db vm.StateDB) error {
		return token.Deploy(db, nftAddr, token.KindERC721)
	}))

	reg := saferootidx.NewRegistry(0)
	idx := saferootidx.NewIndexer(l, reg)

	msg, err := core.NewActionMessage(user, sysaction.ActionSaferootCreateWithSafeguards, sysaction.SaferootCreateWithSafeguardsPayload{
		Service: service,
		Backup:  backup,
		Entries: []sysaction.SafeEntryArgs{{Standard: "ERC721", ContractAddress: nftAddr, TokenID: (*hexutil.Big)(common.Big3)}},
	})
	require.NoError(t, err)
	receipt, err := l.Apply(msg)
	require.NoError(t, err)
	idx.ProcessLogs(receipt.Logs)
	return l, reg, receipt.ContractAddress
}

func TestSaferootAPI(t *testing.T) {
	l, _, instance := setup(t)
	api := NewSaferootAPI(l)
	ctx := context.Background()

	require.Equal(t, params.SaferootImplementationAddress, api.SaferootImplementation(ctx))

	ok, err := api.IsSaferoot(ctx, instance)
	require.NoError(t, err)
	require.True(t, ok)

	addrs, err := api.Addresses(ctx, instance)
	require.NoError(t, err)
	require.Equal(t, &saferoot.Addresses{User: user, Service: service, Backup: backup}, addrs)

	key := api.EncodeKey(ctx, nftAddr, saferoot.ERC721, 0)
	id, err := api.KeyToTokenID(ctx, instance, key)
	require.NoError(t, err)
	require.Equal(t, int64(3), id.ToInt().Int64())

	row, err := api.GetSafeguard(ctx, instance, key)
	require.NoError(t, err)
	require.Equal(t, nftAddr, row.ContractAddress)
	require.Equal(t, saferoot.ERC721, row.Standard)

	missing, err := api.GetSafeguard(ctx, instance, common.HexToHash("0x01"))
	require.NoError(t, err)
	require.Nil(t, missing)

	counter, err := api.Counter(ctx, instance)
	require.NoError(t, err)
	require.Equal(t, hexutil.Uint64(1), counter)

	_, err = api.Addresses(ctx, user)
	require.True(t, errors.Is(err, saferoot.ErrNotSaferoot))
}

func TestIndexAPI(t *testing.T) {
	_, reg, instance := setup(t)
	api := NewIndexAPI(reg)
	ctx := context.Background()

	rec, err := api.GetInstance(ctx, instance)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, 1, rec.Safeguards)

	none, err := api.GetInstance(ctx, backup)
	require.NoError(t, err)
	require.Nil(t, none)

	byUser, err := api.GetInstancesByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	sgs, err := api.GetSafeguards(ctx, instance)
	require.NoError(t, err)
	require.Len(t, sgs, 1)
	require.Equal(t, saferoot.EncodeKey(nftAddr, saferoot.ERC721, 0), sgs[0].Key)

	sweeps, err := api.GetRecentSweeps(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, sweeps)
}
