package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hiraku/stagebook/internal/capacity"
)

// OccupancyStore keeps the latest capacity snapshot of every stage
// in Redis.  Snapshots are written by the occupancy refresher each
// time a ledger-change event arrives and read by the public
// availability endpoints, which fall back to recomputing from the
// ledger on a miss.  The store degrades to a no-op when no Redis
// client is configured.
type OccupancyStore struct {
	rdb *redis.Client
}

// NewOccupancyStore returns an OccupancyStore over the given Redis
// client.  A nil client is allowed and disables the store.
func NewOccupancyStore(rdb *redis.Client) *OccupancyStore { return &OccupancyStore{rdb: rdb} }

func occupancyKey(performanceID uint64, stageIdx int) string {
	return fmt.Sprintf("occupancy:%d:%d", performanceID, stageIdx)
}

// Save overwrites the snapshot for one stage.  Snapshots carry no
// TTL; each ledger change simply replaces the previous value.
func (s *OccupancyStore) Save(ctx context.Context, snap capacity.Snapshot) error {
	if s.rdb == nil {
		return nil
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, occupancyKey(snap.PerformanceID, snap.StageIdx), body, 0).Err()
}

// Get returns the stored snapshot for one stage, or nil when the
// store is disabled or holds no snapshot yet.
func (s *OccupancyStore) Get(ctx context.Context, performanceID uint64, stageIdx int) (*capacity.Snapshot, error) {
	if s.rdb == nil {
		return nil, nil
	}
	body, err := s.rdb.Get(ctx, occupancyKey(performanceID, stageIdx)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var snap capacity.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
