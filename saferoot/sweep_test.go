package saferoot

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/token"
)

func mustAdd(t *testing.T, s *Saferoot, entries ...SafeEntry) []common.Hash {
	t.Helper()
	keys, err := s.AddSafeguard(user, entries)
	if err != nil {
		t.Fatalf("AddSafeguard: %v", err)
	}
	return keys
}

func mustSweep(t *testing.T, s *Saferoot, keys ...common.Hash) []SweepResult {
	t.Helper()
	res, err := s.InitiateSafeguard(service, keys)
	if err != nil {
		t.Fatalf("InitiateSafeguard: %v", err)
	}
	if len(res) != len(keys) {
		t.Fatalf("results = %d, want %d", len(res), len(keys))
	}
	return res
}

func TestSweepERC20MaxAllowance(t *testing.T) {
	st, s := newTestSaferoot(t)
	tok := token.NewERC20(st, erc20A)
	tok.Mint(user, u(1000))
	keys := mustAdd(t, s, SafeEntry{Standard: ERC20, ContractAddress: erc20A})
	tok.Approve(user, instance, maxAmount())

	snap := len(st.Logs())
	res := mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeTransferred || !res[0].Amount.Eq(u(1000)) {
		t.Fatalf("result = %+v", res[0])
	}
	if bal, _ := tok.BalanceOf(backup); !bal.Eq(u(1000)) {
		t.Fatalf("backup balance %v, want 1000", bal.ToBig())
	}
	if bal, _ := tok.BalanceOf(user); !bal.IsZero() {
		t.Fatalf("user balance %v, want 0", bal.ToBig())
	}
	if names := eventNames(t, st.Logs()[snap:]); len(names) != 1 || names[0] != "SafeguardInitiated" {
		t.Fatalf("events = %v", names)
	}

	// Nothing left: the second sweep skips.
	snap = len(st.Logs())
	res = mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeSkipped {
		t.Fatalf("re-sweep outcome = %v", res[0].Outcome)
	}
	names := eventNames(t, st.Logs()[snap:])
	if len(names) != 2 || names[0] != "TransferSkip" || names[1] != "SafeguardInitiated" {
		t.Fatalf("re-sweep events = %v", names)
	}
}

func TestSweepERC20LimitedByAllowance(t *testing.T) {
	st, s := newTestSaferoot(t)
	tok := token.NewERC20(st, erc20A)
	tok.Mint(user, u(1000))
	keys := mustAdd(t, s, SafeEntry{Standard: ERC20, ContractAddress: erc20A})

	if res := mustSweep(t, s, keys...); res[0].Outcome != OutcomeSkipped {
		t.Fatalf("no allowance: outcome = %v", res[0].Outcome)
	}
	tok.Approve(user, instance, u(300))
	res := mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeTransferred || !res[0].Amount.Eq(u(300)) {
		t.Fatalf("result = %+v", res[0])
	}
	if bal, _ := tok.BalanceOf(user); !bal.Eq(u(700)) {
		t.Fatalf("user balance %v, want 700", bal.ToBig())
	}
	if a, _ := tok.Allowance(user, instance); !a.IsZero() {
		t.Fatalf("allowance %v, want 0", a.ToBig())
	}
}

func TestSweepERC721OnlyApprovedContract(t *testing.T) {
	st, s := newTestSaferoot(t)
	b, c := token.NewERC721(st, erc721B), token.NewERC721(st, erc721C)
	b.Mint(user, u(1))
	c.Mint(user, u(2))
	keys := mustAdd(t, s,
		SafeEntry{Standard: ERC721, ContractAddress: erc721B, TokenID: u(1)},
		SafeEntry{Standard: ERC721, ContractAddress: erc721C, TokenID: u(2)},
	)
	if keys[0] != EncodeKey(erc721B, ERC721, 0) || keys[1] != EncodeKey(erc721C, ERC721, 1) {
		t.Fatalf("unexpected keys %x", keys)
	}
	if err := b.Approve(user, instance, u(1)); err != nil {
		t.Fatal(err)
	}

	snap := len(st.Logs())
	res := mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeTransferred || res[1].Outcome != OutcomeSkipped {
		t.Fatalf("outcomes = %v, %v", res[0].Outcome, res[1].Outcome)
	}
	if owner, _ := b.OwnerOf(u(1)); owner != backup {
		t.Fatalf("B#1 owner = %x, want backup", owner)
	}
	if owner, _ := c.OwnerOf(u(2)); owner != user {
		t.Fatalf("C#2 owner = %x, want user", owner)
	}

	logs := st.Logs()[snap:]
	names := eventNames(t, logs)
	want := []string{"SafeguardInitiated", "TransferSkip", "SafeguardInitiated"}
	if len(names) != len(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("events = %v, want %v", names, want)
		}
	}
	ev, err := ParseLog(logs[1])
	if err != nil {
		t.Fatal(err)
	}
	if skip := ev.(*TransferSkip); skip.Key != keys[1] || skip.Standard != ERC721 {
		t.Fatalf("skip = %+v", skip)
	}
}

func TestSweepERC721OperatorAndOwnership(t *testing.T) {
	st, s := newTestSaferoot(t)
	b := token.NewERC721(st, erc721B)
	b.Mint(user, u(1))
	b.Mint(user, u(2))
	keys := mustAdd(t, s,
		SafeEntry{Standard: ERC721, ContractAddress: erc721B, TokenID: u(1)},
		SafeEntry{Standard: ERC721, ContractAddress: erc721B, TokenID: u(2)},
		SafeEntry{Standard: ERC721, ContractAddress: erc721B, TokenID: u(3)},
	)
	b.SetApprovalForAll(user, instance, true)
	// The user gave #2 away after registering it.
	b.TransferFrom(user, user, stranger, u(2))

	res := mustSweep(t, s, keys...)
	want := []Outcome{OutcomeTransferred, OutcomeSkipped, OutcomeSkipped}
	for i := range want {
		if res[i].Outcome != want[i] {
			t.Fatalf("key %d outcome = %v, want %v", i, res[i].Outcome, want[i])
		}
	}
	if owner, _ := b.OwnerOf(u(2)); owner != stranger {
		t.Fatalf("#2 moved from its new owner")
	}
}

func TestSweepERC1155WholeBalance(t *testing.T) {
	st, s := newTestSaferoot(t)
	d := token.NewERC1155(st, erc1155D)
	d.Mint(user, u(4), u(25))
	keys := mustAdd(t, s,
		SafeEntry{Standard: ERC1155, ContractAddress: erc1155D, TokenID: u(4)},
		SafeEntry{Standard: ERC1155, ContractAddress: erc1155D, TokenID: u(5)},
	)
	if res := mustSweep(t, s, keys[0]); res[0].Outcome != OutcomeSkipped {
		t.Fatalf("unapproved outcome = %v", res[0].Outcome)
	}
	d.SetApprovalForAll(user, instance, true)
	d.Mint(user, u(4), u(5))

	res := mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeTransferred || !res[0].Amount.Eq(u(30)) {
		t.Fatalf("id 4 result = %+v", res[0])
	}
	if res[1].Outcome != OutcomeSkipped {
		t.Fatalf("zero balance id 5 outcome = %v", res[1].Outcome)
	}
	if bal, _ := d.BalanceOf(backup, u(4)); !bal.Eq(u(30)) {
		t.Fatalf("backup balance %v, want 30", bal.ToBig())
	}
}

func TestSweepUnknownKeyIsSilent(t *testing.T) {
	st, s := newTestSaferoot(t)
	snap := len(st.Logs())
	root := st.IntermediateRoot(true)

	res := mustSweep(t, s, common.HexToHash("0xdead"))
	if res[0].Outcome != OutcomeUnknown {
		t.Fatalf("outcome = %v, want unknown", res[0].Outcome)
	}
	if n := len(st.Logs()) - snap; n != 0 {
		t.Fatalf("unknown key emitted %d logs", n)
	}
	if st.IntermediateRoot(true) != root {
		t.Fatal("unknown key changed state")
	}
}

func TestSweepInvalidStandardSkips(t *testing.T) {
	st, s := newTestSaferoot(t)
	keys := mustAdd(t, s, SafeEntry{Standard: Invalid, ContractAddress: erc20A})
	snap := len(st.Logs())
	res := mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeSkipped || res[0].Standard != Invalid {
		t.Fatalf("result = %+v", res[0])
	}
	if names := eventNames(t, st.Logs()[snap:]); len(names) != 2 || names[0] != "TransferSkip" {
		t.Fatalf("events = %v", names)
	}
}

func TestSweepRequiresService(t *testing.T) {
	_, s := newTestSaferoot(t)
	for _, caller := range []common.Address{user, backup, stranger} {
		if _, err := s.InitiateSafeguard(caller, nil); !errors.Is(err, ErrNotService) {
			t.Fatalf("caller %x: want ErrNotService, got %v", caller, err)
		}
	}
}

func TestSweepGoesToCurrentBackup(t *testing.T) {
	st, s := newTestSaferoot(t)
	tok := token.NewERC20(st, erc20A)
	tok.Mint(user, u(10))
	tok.Approve(user, instance, maxAmount())
	keys := mustAdd(t, s, SafeEntry{Standard: ERC20, ContractAddress: erc20A})

	newBackup := common.HexToAddress("0x00000000000000000000000000000000000bac0c")
	if err := s.SetBackupWallet(user, newBackup); err != nil {
		t.Fatal(err)
	}
	mustSweep(t, s, keys...)
	if bal, _ := tok.BalanceOf(newBackup); !bal.Eq(u(10)) {
		t.Fatalf("new backup balance %v, want 10", bal.ToBig())
	}
}

func TestSweepTokenWithoutCodeSkips(t *testing.T) {
	_, s := newTestSaferoot(t)
	keys := mustAdd(t, s, SafeEntry{Standard: ERC721, ContractAddress: stranger, TokenID: u(1)})
	res := mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeSkipped || !errors.Is(res[0].Reason, token.ErrNoCode) {
		t.Fatalf("result = %+v", res[0])
	}
}

// faultyERC20 writes to its storage and then fails the transfer.
type faultyERC20 struct {
	db   vm.StateDB
	addr common.Address
}

var (
	faultySlot = crypto.Keccak256Hash([]byte("faulty"))
	errFaulty  = errors.New("faulty token")
)

func (f *faultyERC20) BalanceOf(common.Address) (*uint256.Int, error) { return u(100), nil }
func (f *faultyERC20) Allowance(common.Address, common.Address) (*uint256.Int, error) {
	return maxAmount(), nil
}
func (f *faultyERC20) Transfer(common.Address, common.Address, *uint256.Int) error { return errFaulty }
func (f *faultyERC20) TransferFrom(common.Address, common.Address, common.Address, *uint256.Int) error {
	f.db.SetState(f.addr, faultySlot, common.HexToHash("0x01"))
	return errFaulty
}

type faultyResolver struct {
	*token.StateResolver
	db     vm.StateDB
	faulty common.Address
}

func (r *faultyResolver) ERC20(addr common.Address) (token.ERC20, error) {
	if addr == r.faulty {
		return &faultyERC20{db: r.db, addr: addr}, nil
	}
	return r.StateResolver.ERC20(addr)
}

func TestSweepFailingTokenRevertsOnlyItsItem(t *testing.T) {
	st, _ := newTestSaferoot(t)
	bad := common.HexToAddress("0x000000000000000000000000000000000000bad0")
	st.SetCode(bad, []byte{0x01})
	s := New(st, instance, &faultyResolver{StateResolver: token.NewResolver(st), db: st, faulty: bad})

	good := token.NewERC20(st, erc20A)
	good.Mint(user, u(50))
	good.Approve(user, instance, maxAmount())
	keys := mustAdd(t, s,
		SafeEntry{Standard: ERC20, ContractAddress: bad},
		SafeEntry{Standard: ERC20, ContractAddress: erc20A},
	)

	res := mustSweep(t, s, keys...)
	if res[0].Outcome != OutcomeSkipped || !errors.Is(res[0].Reason, errFaulty) {
		t.Fatalf("faulty result = %+v", res[0])
	}
	if res[1].Outcome != OutcomeTransferred {
		t.Fatalf("good result = %+v", res[1])
	}
	if v := st.GetState(bad, faultySlot); v != (common.Hash{}) {
		t.Fatalf("faulty token write survived: %x", v)
	}
	if bal, _ := good.BalanceOf(backup); !bal.Eq(u(50)) {
		t.Fatalf("backup balance %v, want 50", bal.ToBig())
	}
}
