package saferoot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

func (s *Saferoot) onlyUser(caller common.Address) error {
	if caller != readAddress(s.db, s.addr, userSlot) {
		return ErrNotUser
	}
	return nil
}

func (s *Saferoot) onlyService(caller common.Address) error {
	if caller != readAddress(s.db, s.addr, serviceSlot) {
		return ErrNotService
	}
	return nil
}

// SetBackupWallet replaces the backup wallet. Only the user may call it.
func (s *Saferoot) SetBackupWallet(caller, backup common.Address) error {
	if err := s.onlyUser(caller); err != nil {
		return err
	}
	if backup == (common.Address{}) {
		return ErrZeroAddress
	}
	writeAddress(s.db, s.addr, backupSlot, backup)
	emitBackupUpdated(s.db, s.addr, backup)
	log.Debug("Saferoot backup updated", "saferoot", s.addr, "backup", backup)
	return nil
}
