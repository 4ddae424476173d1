// Package saferoot implements the per-wallet asset-recovery contract.
//
// A Saferoot instance lives at its own address and keeps all of its state in
// that address's storage: the {user, service, backup} triple, the registry of
// safeguards keyed by EncodeKey, and the monotonic slot counter used to tell
// non-fungible registrations apart. The user registers assets, the service
// sweeps them to the backup wallet, relying only on approvals the user has
// granted to the instance address.
package saferoot

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenStandard is the token interface a safeguard is swept through.
type TokenStandard uint8

const (
	ERC20 TokenStandard = iota
	ERC721
	ERC1155
	Invalid
)

func (s TokenStandard) String() string {
	switch s {
	case ERC20:
		return "ERC20"
	case ERC721:
		return "ERC721"
	case ERC1155:
		return "ERC1155"
	}
	return "Invalid"
}

// ParseTokenStandard maps a standard name to its value. Unrecognised names
// map to Invalid; registration accepts them and sweeps skip them.
func ParseTokenStandard(name string) TokenStandard {
	switch name {
	case "ERC20", "erc20":
		return ERC20
	case "ERC721", "erc721":
		return ERC721
	case "ERC1155", "erc1155":
		return ERC1155
	}
	return Invalid
}

// MarshalText implements encoding.TextMarshaler.
func (s TokenStandard) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TokenStandard) UnmarshalText(input []byte) error {
	*s = ParseTokenStandard(string(input))
	return nil
}

// SafeEntry is one asset to register. TokenID must be zero (or nil) for ERC20.
type SafeEntry struct {
	Standard        TokenStandard
	ContractAddress common.Address
	TokenID         *uint256.Int
}

func (e SafeEntry) tokenID() *uint256.Int {
	if e.TokenID == nil {
		return new(uint256.Int)
	}
	return e.TokenID
}

// Safeguard is a registered row as stored under its key.
type Safeguard struct {
	Key             common.Hash
	Standard        TokenStandard
	ContractAddress common.Address
	TokenID         *uint256.Int
}

// Addresses is the role triple of an instance.
type Addresses struct {
	User    common.Address `json:"user"`
	Service common.Address `json:"service"`
	Backup  common.Address `json:"backup"`
}

// Outcome is what a sweep did with one key.
type Outcome uint8

const (
	// OutcomeUnknown means the key was never registered; nothing was emitted.
	OutcomeUnknown Outcome = iota
	// OutcomeSkipped means the asset was not eligible and TransferSkip was emitted.
	OutcomeSkipped
	// OutcomeTransferred means the asset moved to the backup wallet.
	OutcomeTransferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeTransferred:
		return "transferred"
	}
	return "unknown"
}

// SweepResult reports the outcome of one key of an InitiateSafeguard batch.
type SweepResult struct {
	Key      common.Hash
	Standard TokenStandard
	Outcome  Outcome
	Amount   *uint256.Int // units moved; nil unless transferred
	Reason   error        // why the key was skipped
}

// Errors abort the whole call; sweeps never return them for a single asset.
var (
	ErrZeroAddress            = errors.New("saferoot: zero address")
	ErrInvalidTokenID         = errors.New("saferoot: invalid token id for ERC20 safeguard")
	ErrNotUser                = errors.New("saferoot: caller is not the user")
	ErrNotService             = errors.New("saferoot: caller is not the service")
	ErrInvalidContractAddress = errors.New("saferoot: safeguard contract has no code")
	ErrAlreadyInitialized     = errors.New("saferoot: already initialized")
	ErrNotInitialized         = errors.New("saferoot: not initialized")
	ErrNotSaferoot            = errors.New("saferoot: address is not a saferoot instance")
	ErrUnknownEvent           = errors.New("saferoot: log is not a saferoot event")
)

// Per-asset skip reasons.
var (
	errNothingToSweep = errors.New("nothing to sweep")
	errNotOwned       = errors.New("user no longer owns token")
	errNotApproved    = errors.New("saferoot is not approved")
	errUnsupported    = errors.New("unsupported token standard")
)
