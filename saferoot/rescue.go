package saferoot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// WithdrawERC20 sends the instance's whole balance of tokenAddr to the user
// and returns the amount sent. Token errors are returned unchanged.
func (s *Saferoot) WithdrawERC20(caller, tokenAddr common.Address) (*uint256.Int, error) {
	if err := s.onlyUser(caller); err != nil {
		return nil, err
	}
	tok, err := s.tokens.ERC20(tokenAddr)
	if err != nil {
		return nil, err
	}
	balance, err := tok.BalanceOf(s.addr)
	if err != nil {
		return nil, err
	}
	if err := tok.Transfer(s.addr, caller, balance); err != nil {
		return nil, err
	}
	log.Debug("Saferoot ERC20 withdrawn", "saferoot", s.addr, "token", tokenAddr, "amount", balance.ToBig())
	return balance, nil
}

// WithdrawERC721 sends token id, held by the instance, to the user. The
// token's own error is returned when the instance does not hold it.
func (s *Saferoot) WithdrawERC721(caller, tokenAddr common.Address, id *uint256.Int) error {
	if err := s.onlyUser(caller); err != nil {
		return err
	}
	tok, err := s.tokens.ERC721(tokenAddr)
	if err != nil {
		return err
	}
	if err := tok.TransferFrom(s.addr, s.addr, caller, id); err != nil {
		return err
	}
	log.Debug("Saferoot ERC721 withdrawn", "saferoot", s.addr, "token", tokenAddr, "id", id.ToBig())
	return nil
}
