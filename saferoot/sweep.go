package saferoot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// InitiateSafeguard sweeps every key in keys from the user to the backup
// wallet. Only the service may call it.
//
// Keys are processed in the order given and independently of each other: an
// ineligible asset (no allowance, no approval, zero balance, lost ownership,
// a token that errors) is recorded with TransferSkip and the batch goes on.
// Unregistered keys are ignored without an event. The returned results line
// up with keys.
func (s *Saferoot) InitiateSafeguard(caller common.Address, keys []common.Hash) ([]SweepResult, error) {
	if err := s.onlyService(caller); err != nil {
		return nil, err
	}
	addrs := readAddresses(s.db, s.addr)
	results := make([]SweepResult, 0, len(keys))
	for _, key := range keys {
		results = append(results, s.sweep(key, addrs))
	}
	return results, nil
}

func (s *Saferoot) sweep(key common.Hash, addrs Addresses) SweepResult {
	row, ok := readSafeguard(s.db, s.addr, key)
	if !ok {
		sweepUnknownMeter.Mark(1)
		log.Debug("Ignoring unknown safeguard key", "saferoot", s.addr, "key", key)
		return SweepResult{Key: key, Standard: Invalid, Outcome: OutcomeUnknown}
	}
	res := SweepResult{Key: key, Standard: row.Standard}

	// Token calls may write before failing; roll back only this item.
	snapshot := s.db.Snapshot()
	amount, err := s.transfer(row, addrs)
	if err != nil {
		s.db.RevertToSnapshot(snapshot)
		res.Outcome = OutcomeSkipped
		res.Reason = err
		emitTransferSkip(s.db, s.addr, key, row.Standard)
		sweepSkippedMeter.Mark(1)
		log.Debug("Safeguard skipped", "saferoot", s.addr, "key", key, "standard", row.Standard, "reason", err)
	} else {
		res.Outcome = OutcomeTransferred
		res.Amount = amount
		sweepTransferredMeter.Mark(1)
		log.Info("Safeguard swept", "saferoot", s.addr, "key", key, "standard", row.Standard,
			"contract", row.ContractAddress, "amount", amount.ToBig(), "backup", addrs.Backup)
	}
	emitSafeguardInitiated(s.db, s.addr, key)
	return res
}

func (s *Saferoot) transfer(row Safeguard, addrs Addresses) (*uint256.Int, error) {
	switch row.Standard {
	case ERC20:
		return s.transferERC20(row, addrs)
	case ERC721:
		return s.transferERC721(row, addrs)
	case ERC1155:
		return s.transferERC1155(row, addrs)
	}
	return nil, errUnsupported
}

// transferERC20 moves min(balance, allowance).
func (s *Saferoot) transferERC20(row Safeguard, addrs Addresses) (*uint256.Int, error) {
	tok, err := s.tokens.ERC20(row.ContractAddress)
	if err != nil {
		return nil, err
	}
	balance, err := tok.BalanceOf(addrs.User)
	if err != nil {
		return nil, err
	}
	allowance, err := tok.Allowance(addrs.User, s.addr)
	if err != nil {
		return nil, err
	}
	amount := balance
	if allowance.Lt(balance) {
		amount = allowance
	}
	if amount.IsZero() {
		return nil, errNothingToSweep
	}
	if err := tok.TransferFrom(s.addr, addrs.User, addrs.Backup, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// transferERC721 moves the registered id if the user still owns it and the
// instance is approved for it, individually or as an operator.
func (s *Saferoot) transferERC721(row Safeguard, addrs Addresses) (*uint256.Int, error) {
	tok, err := s.tokens.ERC721(row.ContractAddress)
	if err != nil {
		return nil, err
	}
	owner, err := tok.OwnerOf(row.TokenID)
	if err != nil {
		return nil, err
	}
	if owner != addrs.User {
		return nil, errNotOwned
	}
	approved, err := tok.GetApproved(row.TokenID)
	if err != nil {
		return nil, err
	}
	if approved != s.addr {
		all, err := tok.IsApprovedForAll(addrs.User, s.addr)
		if err != nil {
			return nil, err
		}
		if !all {
			return nil, errNotApproved
		}
	}
	if err := tok.TransferFrom(s.addr, addrs.User, addrs.Backup, row.TokenID); err != nil {
		return nil, err
	}
	return uint256.NewInt(1), nil
}

// transferERC1155 moves the user's entire current balance of the id.
func (s *Saferoot) transferERC1155(row Safeguard, addrs Addresses) (*uint256.Int, error) {
	tok, err := s.tokens.ERC1155(row.ContractAddress)
	if err != nil {
		return nil, err
	}
	approved, err := tok.IsApprovedForAll(addrs.User, s.addr)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, errNotApproved
	}
	balance, err := tok.BalanceOf(addrs.User, row.TokenID)
	if err != nil {
		return nil, err
	}
	if balance.IsZero() {
		return nil, errNothingToSweep
	}
	if err := tok.SafeTransferFrom(s.addr, addrs.User, addrs.Backup, row.TokenID, balance, nil); err != nil {
		return nil, err
	}
	return balance, nil
}
