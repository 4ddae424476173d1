package token

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
)

// tokenSlot hashes (prefix || 0x00 || field || 0x00 || parts...) into a storage slot.
// Every part is fixed-width (20-byte address or 32-byte id), so there is no
// length-extension ambiguity between fields.
func tokenSlot(prefix, field string, parts ...[]byte) common.Hash {
	size := len(prefix) + len(field) + 2
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	buf = append(buf, 0x00)
	buf = append(buf, field...)
	buf = append(buf, 0x00)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return crypto.Keccak256Hash(buf)
}

func idBytes(id *uint256.Int) []byte {
	b := id.Bytes32()
	return b[:]
}

func readUint256(db vm.StateDB, contract common.Address, slot common.Hash) *uint256.Int {
	raw := db.GetState(contract, slot)
	return new(uint256.Int).SetBytes(raw[:])
}

func writeUint256(db vm.StateDB, contract common.Address, slot common.Hash, v *uint256.Int) {
	db.SetState(contract, slot, common.Hash(v.Bytes32()))
}

func readAddress(db vm.StateDB, contract common.Address, slot common.Hash) common.Address {
	raw := db.GetState(contract, slot)
	return common.BytesToAddress(raw[12:]) // address is right-aligned
}

func writeAddress(db vm.StateDB, contract common.Address, slot common.Hash, addr common.Address) {
	var val common.Hash
	copy(val[12:], addr.Bytes())
	db.SetState(contract, slot, val)
}

func readBool(db vm.StateDB, contract common.Address, slot common.Hash) bool {
	return db.GetState(contract, slot)[31] != 0
}

func writeBool(db vm.StateDB, contract common.Address, slot common.Hash, v bool) {
	var val common.Hash
	if v {
		val[31] = 1
	}
	db.SetState(contract, slot, val)
}
