// Package saferootidx maintains an in-memory index of Saferoot instances and
// their safeguards by consuming the logs published by the ledger.
//
// The index is rebuilt from logs alone; it never reads contract storage.
package saferootidx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/saferoot/saferoot"
)

// InstanceRecord describes one deployed instance.
type InstanceRecord struct {
	Address       common.Address `json:"address"`
	User          common.Address `json:"user"`
	Service       common.Address `json:"service"`
	Backup        common.Address `json:"backup"`
	DeployedBlock uint64         `json:"deployed_block"`
	Safeguards    int            `json:"safeguards"`
}

// SafeguardRecord is the indexed view of one registered key.
type SafeguardRecord struct {
	Saferoot   common.Address         `json:"saferoot"`
	Key        common.Hash            `json:"key"`
	Standard   saferoot.TokenStandard `json:"standard"`
	TokenID    *big.Int               `json:"token_id"`
	AddedBlock uint64                 `json:"added_block"`

	// Sweeps counts SafeguardInitiated events for the key; LastSkipped tells
	// whether the latest of them was preceded by TransferSkip.
	Sweeps      int  `json:"sweeps"`
	LastSkipped bool `json:"last_skipped"`

	// Unannounced marks a key first seen in a sweep, with no add event
	// indexed for it. Invalid-standard rows never emit one.
	Unannounced bool `json:"unannounced,omitempty"`
}

// SweepRecord is one SafeguardInitiated event, kept in the recent-sweep
// cache.
type SweepRecord struct {
	Saferoot common.Address `json:"saferoot"`
	Key      common.Hash    `json:"key"`
	Skipped  bool           `json:"skipped"`

	// Standard is taken from TransferSkip for skipped sweeps and from the
	// indexed record otherwise. Invalid when neither is known.
	Standard saferoot.TokenStandard `json:"standard"`
	Block    uint64                 `json:"block"`
	TxHash   common.Hash            `json:"tx_hash"`
}
