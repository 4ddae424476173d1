package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/tos-network/saferoot/core"
	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/saferoot"
	"github.com/tos-network/saferoot/saferootidx"
	"github.com/tos-network/saferoot/sysaction"
)

func TestRPCServerNamespaces(t *testing.T) {
	ledger, err := core.NewLedger(&core.Config{})
	require.NoError(t, err)
	defer ledger.Close()

	registry := saferootidx.NewRegistry(0)
	indexer := saferootidx.NewIndexer(ledger, registry)
	indexer.Start()
	defer indexer.Stop()

	srv, err := newRPCServer(ledger, registry)
	require.NoError(t, err)
	defer srv.Stop()
	client := rpc.DialInProc(srv)
	defer client.Close()

	var impl common.Address
	require.NoError(t, client.Call(&impl, "saferoot_saferootImplementation"))
	require.Equal(t, params.SaferootImplementationAddress, impl)

	var (
		user    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
		service = common.HexToAddress("0x00000000000000000000000000000000005e541c")
		backup  = common.HexToAddress("0x00000000000000000000000000000000000bac0b")
	)
	payload, err := json.Marshal(sysaction.SaferootCreatePayload{Service: service, Backup: backup})
	require.NoError(t, err)

	var res struct {
		Receipt struct {
			Status          hexutil.Uint64 `json:"status"`
			ContractAddress common.Address `json:"contractAddress"`
		} `json:"receipt"`
		Error string `json:"error"`
	}
	require.NoError(t, client.Call(&res, "ledger_sendAction", user, sysaction.ActionSaferootCreate, json.RawMessage(payload)))
	require.Empty(t, res.Error)
	require.Equal(t, hexutil.Uint64(1), res.Receipt.Status)
	instance := res.Receipt.ContractAddress

	var addrs saferoot.Addresses
	require.NoError(t, client.Call(&addrs, "saferoot_addresses", instance))
	require.Equal(t, saferoot.Addresses{User: user, Service: service, Backup: backup}, addrs)

	// A rejected action is reported in the result, not as an RPC error.
	payload, err = json.Marshal(sysaction.SaferootCreatePayload{Service: service})
	require.NoError(t, err)
	require.NoError(t, client.Call(&res, "ledger_sendAction", user, sysaction.ActionSaferootCreate, json.RawMessage(payload)))
	require.Equal(t, saferoot.ErrZeroAddress.Error(), res.Error)
	require.Equal(t, hexutil.Uint64(0), res.Receipt.Status)

	require.Eventually(t, func() bool {
		var rec *saferootidx.InstanceRecord
		if err := client.Call(&rec, "saferootidx_getInstance", instance); err != nil {
			return false
		}
		return rec != nil && rec.User == user
	}, time.Second, 10*time.Millisecond)

	var number hexutil.Uint64
	require.NoError(t, client.Call(&number, "ledger_blockNumber"))
	var root common.Hash
	require.NoError(t, client.Call(&root, "ledger_commit"))
	require.NotEqual(t, common.Hash{}, root)
	require.NoError(t, client.Call(&number, "ledger_blockNumber"))
	require.Equal(t, hexutil.Uint64(1), number)
}

func TestSplitAndTrim(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
	require.Nil(t, splitAndTrim(""))
}

func TestStartHTTP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.NotFoundHandler()}
	errc := startHTTP(srv, listener)
	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err, ok := <-errc:
		require.False(t, ok, "shutdown reported as failure: %v", err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}

	// A listener that cannot accept stops the server with an error.
	listener, err = net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, listener.Close())
	errc = startHTTP(&http.Server{Handler: http.NotFoundHandler()}, listener)
	select {
	case err := <-errc:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
}
