package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/tos-network/saferoot/core/vm"
	"github.com/tos-network/saferoot/factory"
	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/saferoot"
	"github.com/tos-network/saferoot/sysaction"
	"github.com/tos-network/saferoot/token"
)

var (
	// ErrNotSystemAction is returned for messages not addressed to
	// params.SystemActionAddress.
	ErrNotSystemAction = errors.New("message is not a system action")

	// ErrLedgerClosed is returned by every call after Close.
	ErrLedgerClosed = errors.New("ledger closed")
)

var (
	headRootKey   = []byte("SaferootHeadRoot")
	headNumberKey = []byte("SaferootHeadNumber")
)

var (
	appliedMeter = metrics.NewRegisteredMeter("saferoot/ledger/applied", nil)
	failedMeter  = metrics.NewRegisteredMeter("saferoot/ledger/failed", nil)
	commitTimer  = metrics.NewRegisteredTimer("saferoot/ledger/commit", nil)
)

// Ledger applies system action messages to a state database one at a time.
// Pending changes become durable with Commit; every successful message's
// logs are published on the log feed after it is applied.
type Ledger struct {
	mu     sync.Mutex
	sendMu sync.Mutex // orders log feed sends by application order

	db      ethdb.Database
	stateDb state.Database
	state   *state.StateDB
	number  uint64 // number of the pending block
	txIndex int
	closed  bool

	logsFeed event.Feed
	scope    event.SubscriptionScope
}

// NewLedger opens the ledger described by cfg, resuming from the last
// committed root, and installs the factory on first use.
func NewLedger(cfg *Config) (*Ledger, error) {
	var (
		db  ethdb.Database
		err error
	)
	if cfg.DataDir == "" {
		db = rawdb.NewMemoryDatabase()
	} else {
		db, err = rawdb.NewLevelDBDatabase(cfg.DataDir, cfg.Cache, cfg.Handles, "saferoot/db/", false)
		if err != nil {
			return nil, err
		}
	}
	l := &Ledger{db: db, stateDb: state.NewDatabase(db)}

	root := common.Hash{}
	if enc, err := db.Get(headRootKey); err == nil && len(enc) == common.HashLength {
		root = common.BytesToHash(enc)
	}
	if enc, err := db.Get(headNumberKey); err == nil {
		l.number = new(big.Int).SetBytes(enc).Uint64()
	}
	if l.state, err = state.New(root, l.stateDb, nil); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening state %x: %w", root, err)
	}
	factory.New(l.state, token.NewResolver(l.state)).Install()
	log.Info("Opened saferoot ledger", "datadir", cfg.DataDir, "root", root, "number", l.number)
	return l, nil
}

// Apply executes msg against the pending state and returns its receipt. A
// failed action yields a receipt with status failed together with the
// action's error; its state changes and logs are discarded.
func (l *Ledger) Apply(msg Message) (*types.Receipt, error) {
	l.mu.Lock()
	receipt, err := l.apply(msg)
	// Take sendMu before releasing mu so logs are published in the order
	// their messages were applied.
	l.sendMu.Lock()
	l.mu.Unlock()
	defer l.sendMu.Unlock()

	if receipt != nil && len(receipt.Logs) > 0 {
		l.logsFeed.Send(receipt.Logs)
	}
	return receipt, err
}

func (l *Ledger) apply(msg Message) (*types.Receipt, error) {
	if l.closed {
		return nil, ErrLedgerClosed
	}
	if *msg.To() != params.SystemActionAddress {
		return nil, ErrNotSystemAction
	}
	msg.nonce = l.state.GetNonce(msg.From())
	hash := msg.Hash()

	l.state.Prepare(hash, l.txIndex)
	gasUsed, execErr := sysaction.Execute(msg, l.state, token.NewResolver(l.state))
	l.state.SetNonce(msg.From(), msg.nonce+1)
	l.state.Finalise(true)

	receipt := &types.Receipt{
		Type:              types.LegacyTxType,
		CumulativeGasUsed: gasUsed,
		GasUsed:           gasUsed,
		TxHash:            hash,
		BlockNumber:       new(big.Int).SetUint64(l.number),
		TransactionIndex:  uint(l.txIndex),
	}
	if execErr != nil {
		receipt.Status = types.ReceiptStatusFailed
		failedMeter.Mark(1)
	} else {
		receipt.Status = types.ReceiptStatusSuccessful
		appliedMeter.Mark(1)
	}
	receipt.Logs = l.state.GetLogs(hash, common.Hash{})
	for _, lg := range receipt.Logs {
		lg.BlockNumber = l.number
		if lg.Address != params.SaferootFactoryAddress {
			continue
		}
		if ev, err := saferoot.ParseLog(lg); err == nil {
			if d, ok := ev.(*saferoot.SaferootDeployed); ok {
				receipt.ContractAddress = d.Saferoot
			}
		}
	}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})
	l.txIndex++

	log.Debug("Applied system action", "hash", hash, "from", msg.From(), "status", receipt.Status,
		"gas", gasUsed, "logs", len(receipt.Logs), "err", execErr)
	return receipt, execErr
}

// Commit writes the pending state to the database and starts a new block.
func (l *Ledger) Commit() (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return common.Hash{}, ErrLedgerClosed
	}
	defer commitTimer.UpdateSince(time.Now())

	root, err := l.state.Commit(true)
	if err != nil {
		return common.Hash{}, err
	}
	if err := l.stateDb.TrieDB().Commit(root, false, nil); err != nil {
		return common.Hash{}, err
	}
	l.number++
	batch := l.db.NewBatch()
	batch.Put(headRootKey, root.Bytes())
	batch.Put(headNumberKey, new(big.Int).SetUint64(l.number).Bytes())
	if err := batch.Write(); err != nil {
		return common.Hash{}, err
	}
	if l.state, err = state.New(root, l.stateDb, nil); err != nil {
		return common.Hash{}, err
	}
	l.txIndex = 0
	log.Info("Committed saferoot state", "number", l.number, "root", root)
	return root, nil
}

// View runs fn against the pending state. fn must not retain db.
func (l *Ledger) View(fn func(db vm.StateDB, tokens token.Resolver) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLedgerClosed
	}
	return fn(l.state, token.NewResolver(l.state))
}

// Update runs fn against the pending state outside any system action, for
// genesis-style setup such as deploying and funding tokens. Changes are
// discarded if fn fails.
func (l *Ledger) Update(fn func(db vm.StateDB) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLedgerClosed
	}
	snapshot := l.state.Snapshot()
	if err := fn(l.state); err != nil {
		l.state.RevertToSnapshot(snapshot)
		return err
	}
	l.state.Finalise(true)
	return nil
}

// Number returns the number of the pending block.
func (l *Ledger) Number() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.number
}

// SubscribeLogsEvent registers a subscription for the logs of every
// successfully applied message.
func (l *Ledger) SubscribeLogsEvent(ch chan<- []*types.Log) event.Subscription {
	return l.scope.Track(l.logsFeed.Subscribe(ch))
}

// Close ends all subscriptions and closes the database. Uncommitted changes
// are lost.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.scope.Close()
	return l.db.Close()
}
