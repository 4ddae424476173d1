package saferootapi

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/saferoot/saferootidx"
)

// defaultSweepLimit bounds GetRecentSweeps when no limit is given.
const defaultSweepLimit = 20

// IndexAPI implements the saferootidx_* namespace over the indexer's
// registry.
type IndexAPI struct {
	registry *saferootidx.Registry
}

// NewIndexAPI creates an IndexAPI backed by the given registry.
func NewIndexAPI(registry *saferootidx.Registry) *IndexAPI {
	return &IndexAPI{registry: registry}
}

// GetInstance returns the indexed instance at addr, or nil.
func (a *IndexAPI) GetInstance(_ context.Context, addr common.Address) (*saferootidx.InstanceRecord, error) {
	rec, ok := a.registry.Instance(addr)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetInstancesByUser returns every instance deployed by user.
func (a *IndexAPI) GetInstancesByUser(_ context.Context, user common.Address) ([]saferootidx.InstanceRecord, error) {
	return a.registry.InstancesByUser(user), nil
}

// GetSafeguards returns the indexed keys of the instance at addr.
func (a *IndexAPI) GetSafeguards(_ context.Context, addr common.Address) ([]saferootidx.SafeguardRecord, error) {
	return a.registry.Safeguards(addr), nil
}

// GetRecentSweeps returns the latest sweep events, newest first.
func (a *IndexAPI) GetRecentSweeps(_ context.Context, limit int) ([]saferootidx.SweepRecord, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return a.registry.RecentSweeps(limit), nil
}
