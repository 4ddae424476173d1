// Package sysaction implements the Saferoot system action protocol.
//
// System actions are messages sent to params.SystemActionAddress. Their Data
// field is a JSON-encoded SysAction message. No interpreter runs; the ledger
// calls sysaction.Execute() which dispatches to the handler registered for
// the action kind (the factory or the saferoot instance handler).
package sysaction

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ActionKind identifies the type of system action.
type ActionKind string

const (
	// Factory
	ActionSaferootCreate               ActionKind = "SAFEROOT_CREATE"
	ActionSaferootCreateWithSafeguards ActionKind = "SAFEROOT_CREATE_WITH_SAFEGUARDS"

	// Instance
	ActionSafeguardAdd           ActionKind = "SAFEGUARD_ADD"
	ActionSafeguardInitiate      ActionKind = "SAFEGUARD_INITIATE"
	ActionSaferootSetBackup      ActionKind = "SAFEROOT_SET_BACKUP"
	ActionSaferootWithdrawERC20  ActionKind = "SAFEROOT_WITHDRAW_ERC20"
	ActionSaferootWithdrawERC721 ActionKind = "SAFEROOT_WITHDRAW_ERC721"
)

// SysAction is the top-level envelope stored in msg.Data for system actions.
type SysAction struct {
	Action  ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SafeEntryArgs is the wire form of one safeguard entry. Standard is the
// name of the token standard ("ERC20", "ERC721", "ERC1155"); anything else
// registers an Invalid row.
type SafeEntryArgs struct {
	Standard        string         `json:"standard"`
	ContractAddress common.Address `json:"contract_address"`
	TokenID         *hexutil.Big   `json:"token_id,omitempty"`
}

// SaferootCreatePayload is the payload for SAFEROOT_CREATE. The sender
// becomes the user.
type SaferootCreatePayload struct {
	Service common.Address `json:"service"`
	Backup  common.Address `json:"backup"`
}

// SaferootCreateWithSafeguardsPayload is the payload for
// SAFEROOT_CREATE_WITH_SAFEGUARDS.
type SaferootCreateWithSafeguardsPayload struct {
	Service common.Address  `json:"service"`
	Backup  common.Address  `json:"backup"`
	Entries []SafeEntryArgs `json:"entries"`
}

// SafeguardAddPayload is the payload for SAFEGUARD_ADD.
type SafeguardAddPayload struct {
	Saferoot common.Address  `json:"saferoot"`
	Entries  []SafeEntryArgs `json:"entries"`
}

// SafeguardInitiatePayload is the payload for SAFEGUARD_INITIATE.
type SafeguardInitiatePayload struct {
	Saferoot common.Address `json:"saferoot"`
	Keys     []common.Hash  `json:"keys"`
}

// SaferootSetBackupPayload is the payload for SAFEROOT_SET_BACKUP.
type SaferootSetBackupPayload struct {
	Saferoot common.Address `json:"saferoot"`
	Backup   common.Address `json:"backup"`
}

// SaferootWithdrawERC20Payload is the payload for SAFEROOT_WITHDRAW_ERC20.
type SaferootWithdrawERC20Payload struct {
	Saferoot common.Address `json:"saferoot"`
	Token    common.Address `json:"token"`
}

// SaferootWithdrawERC721Payload is the payload for SAFEROOT_WITHDRAW_ERC721.
type SaferootWithdrawERC721Payload struct {
	Saferoot common.Address `json:"saferoot"`
	Token    common.Address `json:"token"`
	TokenID  *hexutil.Big   `json:"token_id"`
}
