package saferoot

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/tos-network/saferoot/core/vm"
)

// Instance-wide slots.
var (
	initializedSlot = crypto.Keccak256Hash([]byte("saferoot\x00initialized"))
	userSlot        = crypto.Keccak256Hash([]byte("saferoot\x00user"))
	serviceSlot     = crypto.Keccak256Hash([]byte("saferoot\x00service"))
	backupSlot      = crypto.Keccak256Hash([]byte("saferoot\x00backup"))
	counterSlot     = crypto.Keccak256Hash([]byte("saferoot\x00counter"))
)

// safeguardSlot hashes ("saferoot\x00safeguard\x00" || key[32B] || field) for a
// per-key storage slot.
func safeguardSlot(key common.Hash, field string) common.Hash {
	prefix := "saferoot\x00safeguard\x00"
	buf := make([]byte, 0, len(prefix)+common.HashLength+len(field))
	buf = append(buf, prefix...)
	buf = append(buf, key[:]...)
	buf = append(buf, field...)
	return crypto.Keccak256Hash(buf)
}

func readAddress(db vm.StateDB, owner common.Address, slot common.Hash) common.Address {
	raw := db.GetState(owner, slot)
	return common.BytesToAddress(raw[12:]) // address is right-aligned
}

func writeAddress(db vm.StateDB, owner common.Address, slot common.Hash, addr common.Address) {
	var val common.Hash
	copy(val[12:], addr.Bytes())
	db.SetState(owner, slot, val)
}

func readUint64(db vm.StateDB, owner common.Address, slot common.Hash) uint64 {
	raw := db.GetState(owner, slot)
	return binary.BigEndian.Uint64(raw[24:])
}

func writeUint64(db vm.StateDB, owner common.Address, slot common.Hash, n uint64) {
	var val common.Hash
	binary.BigEndian.PutUint64(val[24:], n)
	db.SetState(owner, slot, val)
}

func readInitialized(db vm.StateDB, owner common.Address) bool {
	return db.GetState(owner, initializedSlot)[31] != 0
}

func writeInitialized(db vm.StateDB, owner common.Address) {
	var val common.Hash
	val[31] = 1
	db.SetState(owner, initializedSlot, val)
}

func readAddresses(db vm.StateDB, owner common.Address) Addresses {
	return Addresses{
		User:    readAddress(db, owner, userSlot),
		Service: readAddress(db, owner, serviceSlot),
		Backup:  readAddress(db, owner, backupSlot),
	}
}

// The "meta" word of a row packs
//
//	[0]      exists flag
//	[1]      token standard
//	[12:32]  contract address
//
// and the "tokenId" word holds the 256-bit token id.
const (
	metaExistsByte   = 0
	metaStandardByte = 1
)

func writeSafeguard(db vm.StateDB, owner common.Address, key common.Hash, contract common.Address, standard TokenStandard, id *uint256.Int) {
	var meta common.Hash
	meta[metaExistsByte] = 1
	meta[metaStandardByte] = byte(standard)
	copy(meta[12:], contract.Bytes())
	db.SetState(owner, safeguardSlot(key, "meta"), meta)
	db.SetState(owner, safeguardSlot(key, "tokenId"), common.Hash(id.Bytes32()))
}

func readSafeguard(db vm.StateDB, owner common.Address, key common.Hash) (Safeguard, bool) {
	meta := db.GetState(owner, safeguardSlot(key, "meta"))
	if meta[metaExistsByte] == 0 {
		return Safeguard{}, false
	}
	return Safeguard{
		Key:             key,
		Standard:        TokenStandard(meta[metaStandardByte]),
		ContractAddress: common.BytesToAddress(meta[12:]),
		TokenID:         readTokenID(db, owner, key),
	}, true
}

func readTokenID(db vm.StateDB, owner common.Address, key common.Hash) *uint256.Int {
	raw := db.GetState(owner, safeguardSlot(key, "tokenId"))
	return new(uint256.Int).SetBytes(raw[:])
}
