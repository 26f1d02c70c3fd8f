package domain

import (
	"context"
	"time"
)

// SnapshotCache holds short-lived auction snapshots for read-heavy API
// traffic. It must never be consulted when deciding refund withdrawability;
// that decision always goes to the chain.
type SnapshotCache interface {
	Set(ctx context.Context, snap AuctionSnapshot) error
	Get(ctx context.Context, auctionID string) (AuctionSnapshot, error)
	Invalidate(ctx context.Context, auctionID string) error
}

// LockManager provides distributed locking, used to serialize ledger
// operations for the same (account, auction) pair.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
