package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
)

const erc1155Prefix = "token.erc1155"

// StandardERC1155 is a multi-token contract kept in the storage of its own
// contract address. Receiver acceptance hooks are not modelled.
type StandardERC1155 struct {
	db   vm.StateDB
	addr common.Address
}

// NewERC1155 binds the ERC1155 contract at addr.
func NewERC1155(db vm.StateDB, addr common.Address) *StandardERC1155 {
	return &StandardERC1155{db: db, addr: addr}
}

// Address returns the token contract address.
func (t *StandardERC1155) Address() common.Address { return t.addr }

func (t *StandardERC1155) balanceSlot(owner common.Address, id *uint256.Int) common.Hash {
	return tokenSlot(erc1155Prefix, "balance", idBytes(id), owner.Bytes())
}

func (t *StandardERC1155) operatorSlot(owner, operator common.Address) common.Hash {
	return tokenSlot(erc1155Prefix, "operator", owner.Bytes(), operator.Bytes())
}

func (t *StandardERC1155) BalanceOf(owner common.Address, id *uint256.Int) (*uint256.Int, error) {
	return readUint256(t.db, t.addr, t.balanceSlot(owner, id)), nil
}

func (t *StandardERC1155) IsApprovedForAll(owner, operator common.Address) (bool, error) {
	return readBool(t.db, t.addr, t.operatorSlot(owner, operator)), nil
}

// SetApprovalForAll grants or revokes operator over all of caller's tokens.
func (t *StandardERC1155) SetApprovalForAll(caller, operator common.Address, approved bool) error {
	if operator == (common.Address{}) || operator == caller {
		return ErrInvalidReceiver
	}
	writeBool(t.db, t.addr, t.operatorSlot(caller, operator), approved)
	return nil
}

// Mint adds amount units of id to to.
func (t *StandardERC1155) Mint(to common.Address, id, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	bal := readUint256(t.db, t.addr, t.balanceSlot(to, id))
	writeUint256(t.db, t.addr, t.balanceSlot(to, id), new(uint256.Int).Add(bal, amount))
	return nil
}

func (t *StandardERC1155) SafeTransferFrom(caller, from, to common.Address, id, amount *uint256.Int, _ []byte) error {
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	if caller != from && !readBool(t.db, t.addr, t.operatorSlot(from, caller)) {
		return ErrNotApproved
	}
	fromBal := readUint256(t.db, t.addr, t.balanceSlot(from, id))
	if fromBal.Lt(amount) {
		return ErrInsufficientBalance
	}
	writeUint256(t.db, t.addr, t.balanceSlot(from, id), new(uint256.Int).Sub(fromBal, amount))
	toBal := readUint256(t.db, t.addr, t.balanceSlot(to, id))
	writeUint256(t.db, t.addr, t.balanceSlot(to, id), new(uint256.Int).Add(toBal, amount))
	return nil
}
