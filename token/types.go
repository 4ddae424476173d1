// Package token implements the token standards consumed by saferoot.
//
// Saferoot only ever talks to tokens through the ERC20, ERC721 and ERC1155
// interfaces declared here. The package also ships native reference tokens
// whose state lives in contract storage of the token address, so ledgers,
// scenarios and tests can exercise a sweep end to end.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ERC20 is the fungible token surface used by sweeps and withdrawals.
// caller is the msg.sender of the call.
type ERC20 interface {
	BalanceOf(owner common.Address) (*uint256.Int, error)
	Allowance(owner, spender common.Address) (*uint256.Int, error)
	Transfer(caller, to common.Address, amount *uint256.Int) error
	TransferFrom(caller, from, to common.Address, amount *uint256.Int) error
}

// ERC721 is the non-fungible token surface used by sweeps and withdrawals.
type ERC721 interface {
	OwnerOf(id *uint256.Int) (common.Address, error)
	GetApproved(id *uint256.Int) (common.Address, error)
	IsApprovedForAll(owner, operator common.Address) (bool, error)
	TransferFrom(caller, from, to common.Address, id *uint256.Int) error
}

// ERC1155 is the multi-token surface used by sweeps.
type ERC1155 interface {
	BalanceOf(owner common.Address, id *uint256.Int) (*uint256.Int, error)
	IsApprovedForAll(owner, operator common.Address) (bool, error)
	SafeTransferFrom(caller, from, to common.Address, id, amount *uint256.Int, data []byte) error
}

// Resolver binds a token contract address to the interface of its standard.
// Resolution fails with ErrNoCode when nothing is deployed at the address and
// with ErrUnsupported when the contract does not speak the standard.
type Resolver interface {
	ERC20(addr common.Address) (ERC20, error)
	ERC721(addr common.Address) (ERC721, error)
	ERC1155(addr common.Address) (ERC1155, error)
}

// Kind identifies the standard a reference token contract implements.
type Kind uint8

const (
	KindERC20 Kind = iota + 1
	KindERC721
	KindERC1155
)

func (k Kind) String() string {
	switch k {
	case KindERC20:
		return "ERC20"
	case KindERC721:
		return "ERC721"
	case KindERC1155:
		return "ERC1155"
	}
	return "unknown"
}

// ParseKind maps a standard name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToUpper(name) {
	case "ERC20":
		return KindERC20, nil
	case "ERC721":
		return KindERC721, nil
	case "ERC1155":
		return KindERC1155, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, name)
}

var (
	ErrNoCode              = errors.New("token: no contract code at address")
	ErrUnsupported         = errors.New("token: contract does not implement standard")
	ErrAlreadyDeployed     = errors.New("token: address already has code")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrInsufficientAllow   = errors.New("token: insufficient allowance")
	ErrInvalidReceiver     = errors.New("token: invalid receiver")
	ErrNonexistentToken    = errors.New("token: nonexistent token")
	ErrIncorrectOwner      = errors.New("token: incorrect owner")
	ErrNotApproved         = errors.New("token: caller is not owner nor approved")
	ErrTokenExists         = errors.New("token: token already minted")
)

// maxUint256 is the "infinite" allowance that transferFrom never decrements.
var maxUint256 = new(uint256.Int).Not(new(uint256.Int))
