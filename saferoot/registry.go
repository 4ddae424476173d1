package saferoot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// AddSafeguard registers entries in order and returns their keys.
//
// Registration is all-or-nothing: every entry is validated before the first
// write, so a rejected call leaves neither rows, events nor counter changes.
func (s *Saferoot) AddSafeguard(caller common.Address, entries []SafeEntry) ([]common.Hash, error) {
	if err := s.onlyUser(caller); err != nil {
		return nil, err
	}
	// ── Validation phase (no state writes) ───────────────────────────────────
	for _, e := range entries {
		if e.ContractAddress == (common.Address{}) {
			return nil, ErrZeroAddress
		}
		if e.Standard == ERC20 && !e.tokenID().IsZero() {
			return nil, ErrInvalidTokenID
		}
	}

	// ── Write phase ──────────────────────────────────────────────────────────
	keys := make([]common.Hash, 0, len(entries))
	counter := readUint64(s.db, s.addr, counterSlot)
	for _, e := range entries {
		var slot uint64
		if e.Standard != ERC20 {
			slot = counter
			counter++
		}
		key := EncodeKey(e.ContractAddress, e.Standard, slot)
		id := e.tokenID()
		writeSafeguard(s.db, s.addr, key, e.ContractAddress, e.Standard, id)

		switch e.Standard {
		case ERC20:
			emitERC20SafeguardAdded(s.db, s.addr, key)
		case ERC721:
			emitERC721SafeguardAdded(s.db, s.addr, key, id)
		case ERC1155:
			emitERC1155SafeguardAdded(s.db, s.addr, key, id)
		}
		safeguardAddedMeter.Mark(1)
		log.Debug("Safeguard added", "saferoot", s.addr, "key", key, "standard", e.Standard,
			"contract", e.ContractAddress, "slot", slot)
		keys = append(keys, key)
	}
	writeUint64(s.db, s.addr, counterSlot, counter)
	return keys, nil
}
