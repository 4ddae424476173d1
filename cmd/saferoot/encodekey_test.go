package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tos-network/saferoot/saferoot"
)

func TestEncodeKey(t *testing.T) {
	contract := common.HexToAddress("0x0000000000000000000000000000000000000721")
	out := mustRunSaferoot(t, "encode-key", "--contract", contract.Hex(), "--standard", "ERC721", "--slot", "3")

	want := saferoot.EncodeKey(contract, saferoot.ERC721, 3)
	require.Contains(t, out, "Key:       "+want.Hex())
	require.Contains(t, out, "Standard:  ERC721")
}

func TestEncodeKeyJSON(t *testing.T) {
	contract := common.HexToAddress("0x0000000000000000000000000000000000001020")
	out := mustRunSaferoot(t, "encode-key", "--contract", contract.Hex(), "--json")

	var got outputKey
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, saferoot.EncodeKey(contract, saferoot.ERC20, 0), got.Key)
	require.Equal(t, saferoot.ERC20, got.Standard)
	require.Equal(t, uint64(0), got.Slot)
}

func TestEncodeKeyRejectsBadAddress(t *testing.T) {
	_, err := runSaferoot(t, "encode-key", "--contract", "0x1234")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "invalid address"))
}
