package saferoot

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EncodeKey derives the registry key of a safeguard. The preimage is the ABI
// encoding of (address, uint8, uint256), so the key can be recomputed
// off-chain from the registration event and the slot counter alone.
//
// The slot is a uint256 in the preimage but a uint64 here, matching the
// counter's storage word. A counter that advances once per registration
// cannot leave the uint64 range, so the upper 24 bytes are always zero.
//
// No plausibility checks are made: the zero address or an Invalid standard
// still produce a key.
func EncodeKey(contract common.Address, standard TokenStandard, slot uint64) common.Hash {
	var buf [96]byte
	copy(buf[12:32], contract.Bytes())
	buf[63] = byte(standard)
	binary.BigEndian.PutUint64(buf[88:], slot)
	return crypto.Keccak256Hash(buf[:])
}
