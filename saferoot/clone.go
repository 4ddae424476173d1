package saferoot

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/token"
)

// EIP-1167 minimal proxy runtime code around a 20-byte target.
var (
	clonePrefix = common.FromHex("0x363d3d373d3d3d363d73")
	cloneSuffix = common.FromHex("0x5af43d82803e903d91602b57fd5bf3")
)

// CloneCode returns the runtime code of a minimal proxy delegating to impl.
func CloneCode(impl common.Address) []byte {
	code := make([]byte, 0, len(clonePrefix)+common.AddressLength+len(cloneSuffix))
	code = append(code, clonePrefix...)
	code = append(code, impl.Bytes()...)
	return append(code, cloneSuffix...)
}

// CloneTarget extracts the delegation target from minimal proxy code.
func CloneTarget(code []byte) (common.Address, bool) {
	if len(code) != len(clonePrefix)+common.AddressLength+len(cloneSuffix) {
		return common.Address{}, false
	}
	if !bytes.HasPrefix(code, clonePrefix) || !bytes.HasSuffix(code, cloneSuffix) {
		return common.Address{}, false
	}
	return common.BytesToAddress(code[len(clonePrefix) : len(clonePrefix)+common.AddressLength]), true
}

// IsSaferoot reports whether addr holds a clone of the canonical
// implementation.
func IsSaferoot(db vm.StateDB, addr common.Address) bool {
	target, ok := CloneTarget(db.GetCode(addr))
	return ok && target == params.SaferootImplementationAddress
}

// Bind returns the instance at addr after checking that it is a genuine
// clone.
func Bind(db vm.StateDB, addr common.Address, tokens token.Resolver) (*Saferoot, error) {
	if !IsSaferoot(db, addr) {
		return nil, ErrNotSaferoot
	}
	return New(db, addr, tokens), nil
}
