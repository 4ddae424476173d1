package token

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/saferoot/core/vm"
)

// Reference tokens are identified by a marker placed as their contract code.
var (
	erc20Code   = []byte("saferoot.token.erc20.v1")
	erc721Code  = []byte("saferoot.token.erc721.v1")
	erc1155Code = []byte("saferoot.token.erc1155.v1")
)

func codeFor(kind Kind) []byte {
	switch kind {
	case KindERC20:
		return erc20Code
	case KindERC721:
		return erc721Code
	case KindERC1155:
		return erc1155Code
	}
	return nil
}

// Deploy installs a reference token of the given kind at addr.
func Deploy(db vm.StateDB, addr common.Address, kind Kind) error {
	code := codeFor(kind)
	if code == nil {
		return ErrUnsupported
	}
	if db.GetCodeSize(addr) != 0 {
		return ErrAlreadyDeployed
	}
	if !db.Exist(addr) {
		db.CreateAccount(addr)
	}
	db.SetCode(addr, code)
	return nil
}

// KindAt reports which reference standard is deployed at addr.
func KindAt(db vm.StateDB, addr common.Address) (Kind, error) {
	code := db.GetCode(addr)
	switch {
	case len(code) == 0:
		return 0, ErrNoCode
	case bytes.Equal(code, erc20Code):
		return KindERC20, nil
	case bytes.Equal(code, erc721Code):
		return KindERC721, nil
	case bytes.Equal(code, erc1155Code):
		return KindERC1155, nil
	}
	return 0, ErrUnsupported
}

// StateResolver resolves reference tokens deployed in a StateDB.
type StateResolver struct {
	db vm.StateDB
}

// NewResolver returns a Resolver over the reference tokens deployed in db.
func NewResolver(db vm.StateDB) *StateResolver {
	return &StateResolver{db: db}
}

func (r *StateResolver) expect(addr common.Address, want Kind) error {
	kind, err := KindAt(r.db, addr)
	if err != nil {
		return err
	}
	if kind != want {
		return ErrUnsupported
	}
	return nil
}

func (r *StateResolver) ERC20(addr common.Address) (ERC20, error) {
	if err := r.expect(addr, KindERC20); err != nil {
		return nil, err
	}
	return NewERC20(r.db, addr), nil
}

func (r *StateResolver) ERC721(addr common.Address) (ERC721, error) {
	if err := r.expect(addr, KindERC721); err != nil {
		return nil, err
	}
	return NewERC721(r.db, addr), nil
}

func (r *StateResolver) ERC1155(addr common.Address) (ERC1155, error) {
	if err := r.expect(addr, KindERC1155); err != nil {
		return nil, err
	}
	return NewERC1155(r.db, addr), nil
}
