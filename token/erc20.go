package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
)

const erc20Prefix = "token.erc20"

// StandardERC20 is a fungible token whose balances and allowances are kept
// in the storage of its own contract address.
type StandardERC20 struct {
	db   vm.StateDB
	addr common.Address
}

// NewERC20 binds the ERC20 contract at addr. It does not check the code;
// use a Resolver for that.
func NewERC20(db vm.StateDB, addr common.Address) *StandardERC20 {
	return &StandardERC20{db: db, addr: addr}
}

// Address returns the token contract address.
func (t *StandardERC20) Address() common.Address { return t.addr }

func (t *StandardERC20) balanceSlot(owner common.Address) common.Hash {
	return tokenSlot(erc20Prefix, "balance", owner.Bytes())
}

func (t *StandardERC20) allowanceSlot(owner, spender common.Address) common.Hash {
	return tokenSlot(erc20Prefix, "allowance", owner.Bytes(), spender.Bytes())
}

func (t *StandardERC20) totalSupplySlot() common.Hash {
	return tokenSlot(erc20Prefix, "totalSupply")
}

// TotalSupply returns the amount of tokens in existence.
func (t *StandardERC20) TotalSupply() *uint256.Int {
	return readUint256(t.db, t.addr, t.totalSupplySlot())
}

func (t *StandardERC20) BalanceOf(owner common.Address) (*uint256.Int, error) {
	return readUint256(t.db, t.addr, t.balanceSlot(owner)), nil
}

func (t *StandardERC20) Allowance(owner, spender common.Address) (*uint256.Int, error) {
	return readUint256(t.db, t.addr, t.allowanceSlot(owner, spender)), nil
}

// Approve sets spender's allowance over caller's tokens to amount.
func (t *StandardERC20) Approve(caller, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return ErrInvalidReceiver
	}
	writeUint256(t.db, t.addr, t.allowanceSlot(caller, spender), amount)
	return nil
}

// Mint creates amount tokens and assigns them to to.
func (t *StandardERC20) Mint(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	supply := t.TotalSupply()
	writeUint256(t.db, t.addr, t.totalSupplySlot(), new(uint256.Int).Add(supply, amount))
	bal := readUint256(t.db, t.addr, t.balanceSlot(to))
	writeUint256(t.db, t.addr, t.balanceSlot(to), new(uint256.Int).Add(bal, amount))
	return nil
}

func (t *StandardERC20) Transfer(caller, to common.Address, amount *uint256.Int) error {
	return t.move(caller, to, amount)
}

func (t *StandardERC20) TransferFrom(caller, from, to common.Address, amount *uint256.Int) error {
	allowance := readUint256(t.db, t.addr, t.allowanceSlot(from, caller))
	if !allowance.Eq(maxUint256) {
		if allowance.Lt(amount) {
			return ErrInsufficientAllow
		}
		// Validate the move before spending allowance so a failed transfer
		// leaves no partial write behind.
		if err := t.checkMove(from, to, amount); err != nil {
			return err
		}
		writeUint256(t.db, t.addr, t.allowanceSlot(from, caller), new(uint256.Int).Sub(allowance, amount))
	}
	return t.move(from, to, amount)
}

func (t *StandardERC20) checkMove(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	if readUint256(t.db, t.addr, t.balanceSlot(from)).Lt(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

func (t *StandardERC20) move(from, to common.Address, amount *uint256.Int) error {
	if err := t.checkMove(from, to, amount); err != nil {
		return err
	}
	fromBal := readUint256(t.db, t.addr, t.balanceSlot(from))
	writeUint256(t.db, t.addr, t.balanceSlot(from), new(uint256.Int).Sub(fromBal, amount))
	toBal := readUint256(t.db, t.addr, t.balanceSlot(to))
	writeUint256(t.db, t.addr, t.balanceSlot(to), new(uint256.Int).Add(toBal, amount))
	return nil
}
