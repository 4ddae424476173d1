package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
)

const erc721Prefix = "token.erc721"

// StandardERC721 is a non-fungible token kept in the storage of its own
// contract address.
type StandardERC721 struct {
	db   vm.StateDB
	addr common.Address
}

// NewERC721 binds the ERC721 contract at addr.
func NewERC721(db vm.StateDB, addr common.Address) *StandardERC721 {
	return &StandardERC721{db: db, addr: addr}
}

// Address returns the token contract address.
func (t *StandardERC721) Address() common.Address { return t.addr }

func (t *StandardERC721) ownerSlot(id *uint256.Int) common.Hash {
	return tokenSlot(erc721Prefix, "owner", idBytes(id))
}

func (t *StandardERC721) approvedSlot(id *uint256.Int) common.Hash {
	return tokenSlot(erc721Prefix, "approved", idBytes(id))
}

func (t *StandardERC721) operatorSlot(owner, operator common.Address) common.Hash {
	return tokenSlot(erc721Prefix, "operator", owner.Bytes(), operator.Bytes())
}

func (t *StandardERC721) balanceSlot(owner common.Address) common.Hash {
	return tokenSlot(erc721Prefix, "balance", owner.Bytes())
}

// BalanceOf returns the number of tokens held by owner.
func (t *StandardERC721) BalanceOf(owner common.Address) *uint256.Int {
	return readUint256(t.db, t.addr, t.balanceSlot(owner))
}

func (t *StandardERC721) OwnerOf(id *uint256.Int) (common.Address, error) {
	owner := readAddress(t.db, t.addr, t.ownerSlot(id))
	if owner == (common.Address{}) {
		return common.Address{}, ErrNonexistentToken
	}
	return owner, nil
}

func (t *StandardERC721) GetApproved(id *uint256.Int) (common.Address, error) {
	if _, err := t.OwnerOf(id); err != nil {
		return common.Address{}, err
	}
	return readAddress(t.db, t.addr, t.approvedSlot(id)), nil
}

func (t *StandardERC721) IsApprovedForAll(owner, operator common.Address) (bool, error) {
	return readBool(t.db, t.addr, t.operatorSlot(owner, operator)), nil
}

// Mint creates token id owned by to.
func (t *StandardERC721) Mint(to common.Address, id *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	if readAddress(t.db, t.addr, t.ownerSlot(id)) != (common.Address{}) {
		return ErrTokenExists
	}
	writeAddress(t.db, t.addr, t.ownerSlot(id), to)
	t.addBalance(to, 1)
	return nil
}

// Approve lets to transfer token id. Passing the zero address clears the approval.
func (t *StandardERC721) Approve(caller, to common.Address, id *uint256.Int) error {
	owner, err := t.OwnerOf(id)
	if err != nil {
		return err
	}
	if caller != owner && !readBool(t.db, t.addr, t.operatorSlot(owner, caller)) {
		return ErrNotApproved
	}
	writeAddress(t.db, t.addr, t.approvedSlot(id), to)
	return nil
}

// SetApprovalForAll grants or revokes operator over all of caller's tokens.
func (t *StandardERC721) SetApprovalForAll(caller, operator common.Address, approved bool) error {
	if operator == (common.Address{}) {
		return ErrInvalidReceiver
	}
	writeBool(t.db, t.addr, t.operatorSlot(caller, operator), approved)
	return nil
}

func (t *StandardERC721) TransferFrom(caller, from, to common.Address, id *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	owner, err := t.OwnerOf(id)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrIncorrectOwner
	}
	authorized := caller == owner ||
		readAddress(t.db, t.addr, t.approvedSlot(id)) == caller ||
		readBool(t.db, t.addr, t.operatorSlot(owner, caller))
	if !authorized {
		return ErrNotApproved
	}
	writeAddress(t.db, t.addr, t.approvedSlot(id), common.Address{})
	writeAddress(t.db, t.addr, t.ownerSlot(id), to)
	t.subBalance(from, 1)
	t.addBalance(to, 1)
	return nil
}

func (t *StandardERC721) addBalance(owner common.Address, n uint64) {
	bal := readUint256(t.db, t.addr, t.balanceSlot(owner))
	writeUint256(t.db, t.addr, t.balanceSlot(owner), new(uint256.Int).AddUint64(bal, n))
}

func (t *StandardERC721) subBalance(owner common.Address, n uint64) {
	bal := readUint256(t.db, t.addr, t.balanceSlot(owner))
	writeUint256(t.db, t.addr, t.balanceSlot(owner), new(uint256.Int).SubUint64(bal, n))
}
