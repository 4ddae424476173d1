package sysaction

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
)

func TestDecodeRejects(t *testing.T) {
	for _, data := range []string{"", "{", `{"payload":{}}`} {
		if _, err := Decode([]byte(data)); !errors.Is(err, ErrInvalidSysAction) {
			t.Fatalf("Decode(%q): want ErrInvalidSysAction, got %v", data, err)
		}
	}
}

func TestDecodePayloadStrict(t *testing.T) {
	sa, err := Decode([]byte(`{"action":"SAFEROOT_SET_BACKUP","payload":{"saferoot":"0x0000000000000000000000000000000000005afe","bakcup":"0x01"}}`))
	if err != nil {
		t.Fatal(err)
	}
	var p SaferootSetBackupPayload
	if err := DecodePayload(sa, &p); !errors.Is(err, ErrInvalidSysAction) {
		t.Fatalf("misspelt field: want ErrInvalidSysAction, got %v", err)
	}
	if err := DecodePayload(&SysAction{Action: ActionSaferootSetBackup}, &p); !errors.Is(err, ErrInvalidSysAction) {
		t.Fatalf("missing payload: want ErrInvalidSysAction, got %v", err)
	}
}

func TestMakeSysActionRoundTrip(t *testing.T) {
	want := SafeguardInitiatePayload{
		Saferoot: common.HexToAddress("0x0000000000000000000000000000000000005afe"),
		Keys:     []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")},
	}
	data, err := MakeSysAction(ActionSafeguardInitiate, want)
	if err != nil {
		t.Fatal(err)
	}
	sa, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if sa.Action != ActionSafeguardInitiate {
		t.Fatalf("action = %q", sa.Action)
	}
	var got SafeguardInitiatePayload
	if err := DecodePayload(sa, &got); err != nil {
		t.Fatal(err)
	}
	if got.Saferoot != want.Saferoot || len(got.Keys) != 2 || got.Keys[1] != want.Keys[1] {
		t.Fatalf("payload = %+v", got)
	}
}

type testMsg struct {
	from common.Address
	data []byte
}

func (m testMsg) From() common.Address { return m.from }
func (m testMsg) Data() []byte         { return m.data }

func TestExecuteUnknownAction(t *testing.T) {
	st, err := state.New(common.Hash{}, state.NewDatabase(rawdb.NewMemoryDatabase()), nil)
	if err != nil {
		t.Fatal(err)
	}
	gas, err := Execute(testMsg{data: []byte(`{"action":"SAFEROOT_SELF_DESTRUCT"}`)}, st, nil)
	if err == nil {
		t.Fatal("unknown action accepted")
	}
	if gas != Gas(&Context{}) {
		t.Fatalf("gas = %d", gas)
	}
}
