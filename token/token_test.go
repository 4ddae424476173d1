package token

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/holiman/uint256"
)

func newTestState(t *testing.T) *state.StateDB {
	t.Helper()
	db := state.NewDatabase(rawdb.NewMemoryDatabase())
	s, err := state.New(common.Hash{}, db, nil)
	if err != nil {
		t.Fatalf("failed to create state db: %v", err)
	}
	return s
}

var (
	alice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	spender = common.HexToAddress("0x00000000000000000000000000000000005be4de")
	t20     = common.HexToAddress("0x0000000000000000000000000000000000002020")
	t721    = common.HexToAddress("0x0000000000000000000000000000000000007721")
	t1155   = common.HexToAddress("0x0000000000000000000000000000000000001155")
)

func TestResolverKinds(t *testing.T) {
	st := newTestState(t)
	for addr, kind := range map[common.Address]Kind{t20: KindERC20, t721: KindERC721, t1155: KindERC1155} {
		if err := Deploy(st, addr, kind); err != nil {
			t.Fatalf("deploy %v: %v", kind, err)
		}
	}
	if err := Deploy(st, t20, KindERC20); !errors.Is(err, ErrAlreadyDeployed) {
		t.Fatalf("redeploy: want ErrAlreadyDeployed, got %v", err)
	}
	r := NewResolver(st)
	if _, err := r.ERC20(t20); err != nil {
		t.Fatalf("resolve erc20: %v", err)
	}
	if _, err := r.ERC721(t20); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("erc20 as erc721: want ErrUnsupported, got %v", err)
	}
	if _, err := r.ERC1155(bob); !errors.Is(err, ErrNoCode) {
		t.Fatalf("eoa as erc1155: want ErrNoCode, got %v", err)
	}
}

func TestERC20TransferFromSpendsAllowance(t *testing.T) {
	st := newTestState(t)
	tok := NewERC20(st, t20)
	if err := tok.Mint(alice, uint256.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.Approve(alice, spender, uint256.NewInt(300)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(spender, alice, bob, uint256.NewInt(400)); !errors.Is(err, ErrInsufficientAllow) {
		t.Fatalf("over allowance: want ErrInsufficientAllow, got %v", err)
	}
	if err := tok.TransferFrom(spender, alice, bob, uint256.NewInt(300)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if bal, _ := tok.BalanceOf(bob); bal.Uint64() != 300 {
		t.Fatalf("bob balance: have %d want 300", bal.Uint64())
	}
	if allow, _ := tok.Allowance(alice, spender); !allow.IsZero() {
		t.Fatalf("allowance not spent: %d", allow.Uint64())
	}
	if tok.TotalSupply().Uint64() != 1000 {
		t.Fatalf("supply changed: %d", tok.TotalSupply().Uint64())
	}
}

func TestERC20InfiniteAllowanceNotDecremented(t *testing.T) {
	st := newTestState(t)
	tok := NewERC20(st, t20)
	tok.Mint(alice, uint256.NewInt(50))
	tok.Approve(alice, spender, maxUint256)
	if err := tok.TransferFrom(spender, alice, bob, uint256.NewInt(50)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if allow, _ := tok.Allowance(alice, spender); !allow.Eq(maxUint256) {
		t.Fatalf("infinite allowance decremented")
	}
	if err := tok.TransferFrom(spender, alice, bob, uint256.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("empty balance: want ErrInsufficientBalance, got %v", err)
	}
}

func TestERC721ApprovalAndTransfer(t *testing.T) {
	st := newTestState(t)
	tok := NewERC721(st, t721)
	id := uint256.NewInt(7)
	if err := tok.Mint(alice, id); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := tok.Mint(bob, id); !errors.Is(err, ErrTokenExists) {
		t.Fatalf("double mint: want ErrTokenExists, got %v", err)
	}
	if err := tok.TransferFrom(spender, alice, bob, id); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("unapproved transfer: want ErrNotApproved, got %v", err)
	}
	if err := tok.Approve(alice, spender, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(spender, bob, alice, id); !errors.Is(err, ErrIncorrectOwner) {
		t.Fatalf("wrong from: want ErrIncorrectOwner, got %v", err)
	}
	if err := tok.TransferFrom(spender, alice, bob, id); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if owner, _ := tok.OwnerOf(id); owner != bob {
		t.Fatalf("owner: have %v want %v", owner, bob)
	}
	if approved, _ := tok.GetApproved(id); approved != (common.Address{}) {
		t.Fatalf("approval not cleared: %v", approved)
	}
	if tok.BalanceOf(alice).Uint64() != 0 || tok.BalanceOf(bob).Uint64() != 1 {
		t.Fatalf("balances not moved")
	}
	if _, err := tok.OwnerOf(uint256.NewInt(8)); !errors.Is(err, ErrNonexistentToken) {
		t.Fatalf("missing token: want ErrNonexistentToken, got %v", err)
	}
}

func TestERC1155OperatorTransfer(t *testing.T) {
	st := newTestState(t)
	tok := NewERC1155(st, t1155)
	id := uint256.NewInt(3)
	tok.Mint(alice, id, uint256.NewInt(10))
	if err := tok.SafeTransferFrom(spender, alice, bob, id, uint256.NewInt(4), nil); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("no operator: want ErrNotApproved, got %v", err)
	}
	if err := tok.SetApprovalForAll(alice, spender, true); err != nil {
		t.Fatalf("setApprovalForAll: %v", err)
	}
	if err := tok.SafeTransferFrom(spender, alice, bob, id, uint256.NewInt(11), nil); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over balance: want ErrInsufficientBalance, got %v", err)
	}
	if err := tok.SafeTransferFrom(spender, alice, bob, id, uint256.NewInt(4), nil); err != nil {
		t.Fatalf("safeTransferFrom: %v", err)
	}
	if bal, _ := tok.BalanceOf(alice, id); bal.Uint64() != 6 {
		t.Fatalf("alice balance: have %d want 6", bal.Uint64())
	}
	if bal, _ := tok.BalanceOf(bob, id); bal.Uint64() != 4 {
		t.Fatalf("bob balance: have %d want 4", bal.Uint64())
	}
}
