package saferoot

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestParseLogRoundTrip(t *testing.T) {
	st := newTestState(t)
	key := common.HexToHash("0xabcdef")
	factoryAddr := common.HexToAddress("0x00000000000000000000000000000000000fac70")
	addrs := Addresses{User: user, Service: service, Backup: backup}

	emitERC20SafeguardAdded(st, instance, key)
	emitERC721SafeguardAdded(st, instance, key, u(11))
	emitERC1155SafeguardAdded(st, instance, key, u(12))
	emitSafeguardInitiated(st, instance, key)
	emitTransferSkip(st, instance, key, ERC1155)
	emitBackupUpdated(st, instance, backup)
	EmitSaferootDeployed(st, factoryAddr, instance, addrs)

	logs := st.Logs()
	if len(logs) != 7 {
		t.Fatalf("logs = %d, want 7", len(logs))
	}
	var parsed []interface{}
	for i, l := range logs {
		if len(l.Topics) != 1 {
			t.Fatalf("log %d has %d topics", i, len(l.Topics))
		}
		ev, err := ParseLog(l)
		if err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
		parsed = append(parsed, ev)
	}

	if ev := parsed[0].(*SafeguardAdded); ev.Standard != ERC20 || ev.Key != key || !ev.TokenID.IsZero() || ev.Saferoot != instance {
		t.Fatalf("ERC20SafeguardAdded = %+v", ev)
	}
	if ev := parsed[1].(*SafeguardAdded); ev.Standard != ERC721 || !ev.TokenID.Eq(u(11)) {
		t.Fatalf("ERC721SafeguardAdded = %+v", ev)
	}
	if ev := parsed[2].(*SafeguardAdded); ev.Standard != ERC1155 || !ev.TokenID.Eq(u(12)) {
		t.Fatalf("ERC1155SafeguardAdded = %+v", ev)
	}
	if ev := parsed[3].(*SafeguardInitiated); ev.Key != key {
		t.Fatalf("SafeguardInitiated = %+v", ev)
	}
	if ev := parsed[4].(*TransferSkip); ev.Key != key || ev.Standard != ERC1155 {
		t.Fatalf("TransferSkip = %+v", ev)
	}
	if ev := parsed[5].(*BackupUpdated); ev.Backup != backup {
		t.Fatalf("BackupUpdated = %+v", ev)
	}
	want := &SaferootDeployed{Factory: factoryAddr, Saferoot: instance, User: user, Service: service, Backup: backup}
	if ev := parsed[6].(*SaferootDeployed); *ev != *want {
		t.Fatalf("SaferootDeployed = %+v, want %+v", ev, want)
	}
}

func TestEventIDsAreSignatureHashes(t *testing.T) {
	for name, sig := range map[string]string{
		"ERC20SafeguardAdded":   "ERC20SafeguardAdded(bytes32)",
		"ERC721SafeguardAdded":  "ERC721SafeguardAdded(bytes32,uint256)",
		"ERC1155SafeguardAdded": "ERC1155SafeguardAdded(bytes32,uint256)",
		"SafeguardInitiated":    "SafeguardInitiated(bytes32)",
		"TransferSkip":          "TransferSkip(bytes32,uint8)",
		"BackupUpdated":         "BackupUpdated(address)",
		"SaferootDeployed":      "SaferootDeployed(address,address,address,address)",
	} {
		if got, want := EventID(name), crypto.Keccak256Hash([]byte(sig)); got != want {
			t.Fatalf("%s id = %x, want %x", name, got, want)
		}
	}
}

func TestParseLogForeign(t *testing.T) {
	for _, l := range []*types.Log{
		{Address: instance},
		{Address: instance, Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}},
	} {
		if _, err := ParseLog(l); !errors.Is(err, ErrUnknownEvent) {
			t.Fatalf("want ErrUnknownEvent, got %v", err)
		}
	}
}

func TestCloneCode(t *testing.T) {
	impl := common.HexToAddress("0xbebebebebebebebebebebebebebebebebebebebe")
	code := CloneCode(impl)
	want := common.FromHex("0x363d3d373d3d3d363d73bebebebebebebebebebebebebebebebebebebebe5af43d82803e903d91602b57fd5bf3")
	if string(code) != string(want) {
		t.Fatalf("clone code = %x, want %x", code, want)
	}
	target, ok := CloneTarget(code)
	if !ok || target != impl {
		t.Fatalf("CloneTarget = %x, %v", target, ok)
	}
	if _, ok := CloneTarget(code[1:]); ok {
		t.Fatal("truncated code accepted")
	}

	st := newTestState(t)
	st.SetCode(instance, code)
	if IsSaferoot(st, instance) {
		t.Fatal("clone of a foreign implementation accepted")
	}
	if IsSaferoot(st, stranger) {
		t.Fatal("empty account accepted")
	}
}
