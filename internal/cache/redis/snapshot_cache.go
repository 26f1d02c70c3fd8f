package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openmint/marketd/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache by storing each auction's
// snapshot as JSON at "auction:{id}" with a TTL. It only absorbs read
// traffic from the API layer; refund decisions bypass it entirely.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client. A
// zero ttl disables expiry.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

func auctionKey(auctionID string) string {
	return "auction:" + auctionID
}

// Set stores a snapshot under its auction id.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.AuctionSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encode snapshot %s: %w", snap.AuctionID, err)
	}
	if err := sc.rdb.Set(ctx, auctionKey(snap.AuctionID), raw, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", snap.AuctionID, err)
	}
	return nil
}

// Get retrieves a cached snapshot. It returns domain.ErrNotFound when the
// key does not exist or has expired.
func (sc *SnapshotCache) Get(ctx context.Context, auctionID string) (domain.AuctionSnapshot, error) {
	raw, err := sc.rdb.Get(ctx, auctionKey(auctionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AuctionSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AuctionSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", auctionID, err)
	}

	var snap domain.AuctionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.AuctionSnapshot{}, fmt.Errorf("redis: decode snapshot %s: %w", auctionID, err)
	}
	return snap, nil
}

// Invalidate drops a cached snapshot, typically right after a state-changing
// transaction touching the auction confirms.
func (sc *SnapshotCache) Invalidate(ctx context.Context, auctionID string) error {
	if err := sc.rdb.Del(ctx, auctionKey(auctionID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %s: %w", auctionID, err)
	}
	return nil
}

var _ domain.SnapshotCache = (*SnapshotCache)(nil)
