// Package ledger coordinates the off-chain record of auctions an account
// has bid on. The ledger narrows which auctions to poll for withdrawable
// refunds; it is a hint, never evidence — withdrawability is always decided
// against a live chain read.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openmint/marketd/internal/domain"
)

// reconcileConcurrency bounds the snapshot reads fanned out per scan.
const reconcileConcurrency = 4

// lockTTL guards a record/clear for one (account, auction) pair.
const lockTTL = 15 * time.Second

// SnapshotReader reads the live on-chain state of an auction. Satisfied by
// the auction service.
type SnapshotReader interface {
	GetAuctionByID(ctx context.Context, auctionID string) (domain.AuctionSnapshot, error)
}

// Coordinator maintains the per-account bid ledger. Document paths are
// scoped by lowercased account address, so different accounts never
// contend; operations for the same (account, auction) pair are serialized
// through the lock manager.
type Coordinator struct {
	store  domain.LedgerStore
	locks  domain.LockManager
	logger *slog.Logger
}

// New creates a Coordinator. locks may be nil, in which case same-pair
// serialization is the caller's responsibility.
func New(store domain.LedgerStore, locks domain.LockManager, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		locks:  locks,
		logger: logger.With(slog.String("component", "bid_ledger")),
	}
}

func indexPath(account, auctionID string) string {
	return "accounts/" + account + "/index/" + auctionID
}

func bidPath(account, auctionID string) string {
	return "accounts/" + account + "/bids/" + auctionID
}

// RecordBid writes the reverse-index entry and the per-auction bid record
// in one atomic batch, after a bid transaction has confirmed. A half-written
// pair would be an inconsistent ledger, so both go or neither does.
func (c *Coordinator) RecordBid(ctx context.Context, account, auctionID string) error {
	addr := strings.ToLower(account)

	unlock, err := c.acquire(ctx, addr, auctionID)
	if err != nil {
		return err
	}
	defer unlock()

	batch := c.store.Batch()
	batch.Set(indexPath(addr, auctionID), map[string]any{
		"auctionId": auctionID,
		"value":     true,
	})
	entry := domain.BidLedgerEntry{AuctionID: auctionID, CreatedAt: time.Now().UTC()}
	batch.Set(bidPath(addr, auctionID), entry.Document())
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: record bid %s/%s: %w", addr, auctionID, err)
	}

	c.logger.InfoContext(ctx, "bid recorded",
		slog.String("account", addr),
		slog.String("auction_id", auctionID),
	)
	return nil
}

// ClearBid removes both ledger documents for an auction. Call it only after
// the refund withdrawal transaction has confirmed; clearing earlier would
// make the client forget a refund that is still pending if the transaction
// ultimately fails.
func (c *Coordinator) ClearBid(ctx context.Context, account, auctionID string) error {
	addr := strings.ToLower(account)

	unlock, err := c.acquire(ctx, addr, auctionID)
	if err != nil {
		return err
	}
	defer unlock()

	batch := c.store.Batch()
	batch.Delete(bidPath(addr, auctionID))
	batch.Delete(indexPath(addr, auctionID))
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: clear bid %s/%s: %w", addr, auctionID, err)
	}

	c.logger.InfoContext(ctx, "bid cleared",
		slog.String("account", addr),
		slog.String("auction_id", auctionID),
	)
	return nil
}

// ListTrackedAuctionIDs enumerates the auction ids the account has bid on
// and not yet cleared, ordered by id.
func (c *Coordinator) ListTrackedAuctionIDs(ctx context.Context, account string) ([]string, error) {
	addr := strings.ToLower(account)

	docs, err := c.store.List(ctx, "accounts/"+addr+"/bids")
	if err != nil {
		return nil, fmt.Errorf("ledger: list tracked auctions for %s: %w", addr, err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if entry := domain.BidLedgerEntryFromDocument(doc); entry.AuctionID != "" {
			ids = append(ids, entry.AuctionID)
			continue
		}
		// Fall back to the path tail for documents written by older
		// versions that omitted the auctionId field.
		if i := strings.LastIndexByte(doc.Path, '/'); i >= 0 {
			ids = append(ids, doc.Path[i+1:])
		}
	}
	return ids, nil
}

// FindWithdrawable reads the live snapshot of every tracked auction and
// returns those where the account bid but is not the current winner and the
// auction is not yet settled. Snapshot reads fan out concurrently but the
// decision always defers to what the chain said.
func (c *Coordinator) FindWithdrawable(ctx context.Context, reader SnapshotReader, account string) ([]domain.AuctionSnapshot, error) {
	ids, err := c.ListTrackedAuctionIDs(ctx, account)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		eligible []domain.AuctionSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			snap, err := reader.GetAuctionByID(gctx, id)
			if err != nil {
				return fmt.Errorf("ledger: snapshot %s: %w", id, err)
			}
			if snap.Settled || domain.AddressEqual(snap.HighestBidder, account) {
				return nil
			}
			mu.Lock()
			eligible = append(eligible, snap)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].AuctionID < eligible[j].AuctionID
	})
	return eligible, nil
}

func (c *Coordinator) acquire(ctx context.Context, addr, auctionID string) (func(), error) {
	if c.locks == nil {
		return func() {}, nil
	}
	unlock, err := c.locks.Acquire(ctx, "ledger:"+addr+":"+auctionID, lockTTL)
	if err != nil {
		return nil, fmt.Errorf("ledger: lock %s/%s: %w", addr, auctionID, err)
	}
	return unlock, nil
}
