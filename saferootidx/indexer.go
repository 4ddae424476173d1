package saferootidx

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/saferoot/params"
	"github.com/tos-network/saferoot/saferoot"
)

// LogSource is the minimal ledger interface consumed by Indexer.
// Satisfied by core.Ledger.
type LogSource interface {
	SubscribeLogsEvent(ch chan<- []*types.Log) event.Subscription
}

// Indexer subscribes to the ledger's log feed and keeps the Registry up to
// date.
type Indexer struct {
	source   LogSource
	registry *Registry
	sub      event.Subscription
	ch       chan []*types.Log
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewIndexer creates an Indexer backed by the given registry.
func NewIndexer(source LogSource, registry *Registry) *Indexer {
	return &Indexer{
		source:   source,
		registry: registry,
		quit:     make(chan struct{}),
	}
}

// Start subscribes and begins consuming logs in a background goroutine.
// Logs published before Start are not seen.
func (idx *Indexer) Start() {
	idx.ch = make(chan []*types.Log, 64)
	idx.sub = idx.source.SubscribeLogsEvent(idx.ch)
	idx.wg.Add(1)
	go idx.loop()
}

// Stop shuts down the indexer and waits for the loop to exit.
func (idx *Indexer) Stop() {
	close(idx.quit)
	idx.wg.Wait()
}

func (idx *Indexer) loop() {
	defer idx.wg.Done()
	defer idx.sub.Unsubscribe()

	for {
		select {
		case logs := <-idx.ch:
			idx.ProcessLogs(logs)
		case err := <-idx.sub.Err():
			if err != nil {
				log.Warn("Saferoot indexer log subscription error", "err", err)
			}
			return
		case <-idx.quit:
			return
		}
	}
}

type skipID struct {
	saferoot common.Address
	tx       common.Hash
	key      common.Hash
}

// ProcessLogs applies one batch of logs to the registry. Logs that are not
// Saferoot events are ignored.
func (idx *Indexer) ProcessLogs(logs []*types.Log) {
	skipped := make(map[skipID]saferoot.TokenStandard)
	for _, l := range logs {
		ev, err := saferoot.ParseLog(l)
		if err != nil {
			continue
		}
		switch ev := ev.(type) {
		case *saferoot.SaferootDeployed:
			if ev.Factory != params.SaferootFactoryAddress {
				log.Debug("Saferoot indexer: deployment from unknown factory", "factory", ev.Factory)
				continue
			}
			idx.registry.UpsertInstance(InstanceRecord{
				Address:       ev.Saferoot,
				User:          ev.User,
				Service:       ev.Service,
				Backup:        ev.Backup,
				DeployedBlock: l.BlockNumber,
			})
			log.Debug("Saferoot indexer: instance deployed", "saferoot", ev.Saferoot, "block", l.BlockNumber)

		case *saferoot.SafeguardAdded:
			idx.registry.AddSafeguard(SafeguardRecord{
				Saferoot:   ev.Saferoot,
				Key:        ev.Key,
				Standard:   ev.Standard,
				TokenID:    ev.TokenID.ToBig(),
				AddedBlock: l.BlockNumber,
			})

		case *saferoot.TransferSkip:
			skipped[skipID{ev.Saferoot, l.TxHash, ev.Key}] = ev.Standard

		case *saferoot.SafeguardInitiated:
			id := skipID{ev.Saferoot, l.TxHash, ev.Key}
			standard, skip := skipped[id]
			if !skip {
				standard = saferoot.Invalid
			}
			idx.registry.RecordSweep(SweepRecord{
				Saferoot: ev.Saferoot,
				Key:      ev.Key,
				Skipped:  skip,
				Standard: standard,
				Block:    l.BlockNumber,
				TxHash:   l.TxHash,
			}, l.Index)
			delete(skipped, id)

		case *saferoot.BackupUpdated:
			idx.registry.SetBackup(ev.Saferoot, ev.Backup)
		}
	}
}
