package saferootidx

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultRecentSweeps is the number of sweep events Registry remembers.
const DefaultRecentSweeps = 1024

type sweepID struct {
	tx    common.Hash
	index uint
}

// Registry is the in-memory Saferoot index.
type Registry struct {
	mu         sync.RWMutex
	instances  map[common.Address]*InstanceRecord
	byUser     map[common.Address][]common.Address
	safeguards map[common.Address]map[common.Hash]*SafeguardRecord
	recent     *lru.Cache // sweepID -> SweepRecord
}

// NewRegistry creates an empty Registry remembering up to recent sweeps.
func NewRegistry(recent int) *Registry {
	if recent <= 0 {
		recent = DefaultRecentSweeps
	}
	cache, _ := lru.New(recent)
	return &Registry{
		instances:  make(map[common.Address]*InstanceRecord),
		byUser:     make(map[common.Address][]common.Address),
		safeguards: make(map[common.Address]map[common.Hash]*SafeguardRecord),
		recent:     cache,
	}
}

// UpsertInstance inserts or replaces an instance record.
func (r *Registry) UpsertInstance(rec InstanceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[rec.Address]; !ok {
		r.byUser[rec.User] = append(r.byUser[rec.User], rec.Address)
	}
	clone := rec
	clone.Safeguards = 0
	for _, p := range r.safeguards[rec.Address] {
		if !p.Unannounced {
			clone.Safeguards++
		}
	}
	r.instances[rec.Address] = &clone
}

// Instance returns the record of the instance at addr.
func (r *Registry) Instance(addr common.Address) (InstanceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[addr]
	if !ok {
		return InstanceRecord{}, false
	}
	return *p, true
}

// InstancesByUser returns the instances deployed by user in deployment order.
func (r *Registry) InstancesByUser(user common.Address) []InstanceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []InstanceRecord
	for _, addr := range r.byUser[user] {
		out = append(out, *r.instances[addr])
	}
	return out
}

// SetBackup records a backup wallet change.
func (r *Registry) SetBackup(addr, backup common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.instances[addr]; ok {
		p.Backup = backup
	}
}

// AddSafeguard records a newly registered key.
func (r *Registry) AddSafeguard(rec SafeguardRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, ok := r.safeguards[rec.Saferoot]
	if !ok {
		keys = make(map[common.Hash]*SafeguardRecord)
		r.safeguards[rec.Saferoot] = keys
	}
	p, ok := keys[rec.Key]
	if !ok || p.Unannounced {
		if inst, ok := r.instances[rec.Saferoot]; ok {
			inst.Safeguards++
		}
	}
	clone := rec
	clone.Unannounced = false
	if ok {
		clone.Sweeps, clone.LastSkipped = p.Sweeps, p.LastSkipped
	}
	keys[rec.Key] = &clone
}

// RecordSweep records the outcome of one SafeguardInitiated event. A key
// without an indexed add event gets an unannounced record seeded from rec.
func (r *Registry) RecordSweep(rec SweepRecord, logIndex uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, ok := r.safeguards[rec.Saferoot]
	if !ok {
		keys = make(map[common.Hash]*SafeguardRecord)
		r.safeguards[rec.Saferoot] = keys
	}
	p, ok := keys[rec.Key]
	switch {
	case !ok:
		p = &SafeguardRecord{
			Saferoot:    rec.Saferoot,
			Key:         rec.Key,
			Standard:    rec.Standard,
			TokenID:     new(big.Int),
			AddedBlock:  rec.Block,
			Unannounced: true,
		}
		keys[rec.Key] = p
	case !rec.Skipped:
		rec.Standard = p.Standard
	}
	p.Sweeps++
	p.LastSkipped = rec.Skipped
	r.recent.Add(sweepID{tx: rec.TxHash, index: logIndex}, rec)
}

// Safeguard returns the indexed record of key on the instance at addr.
func (r *Registry) Safeguard(addr common.Address, key common.Hash) (SafeguardRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.safeguards[addr][key]
	if !ok {
		return SafeguardRecord{}, false
	}
	return *p, true
}

// Safeguards returns every indexed key of the instance at addr, ordered by
// the block they were added in, then by key.
func (r *Registry) Safeguards(addr common.Address) []SafeguardRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SafeguardRecord, 0, len(r.safeguards[addr]))
	for _, p := range r.safeguards[addr] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedBlock != out[j].AddedBlock {
			return out[i].AddedBlock < out[j].AddedBlock
		}
		return out[i].Key.Hex() < out[j].Key.Hex()
	})
	return out
}

// RecentSweeps returns up to limit of the most recent sweep events, newest
// first.
func (r *Registry) RecentSweeps(limit int) []SweepRecord {
	keys := r.recent.Keys() // oldest to newest
	var out []SweepRecord
	for i := len(keys) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if v, ok := r.recent.Peek(keys[i]); ok {
			out = append(out, v.(SweepRecord))
		}
	}
	return out
}

// Len returns the number of indexed instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
