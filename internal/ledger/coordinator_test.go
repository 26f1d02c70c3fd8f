package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/openmint/marketd/internal/domain"
)

const account = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

// memStore is an in-memory domain.LedgerStore whose batches apply only on
// Commit, matching the atomic contract of the real store.
type memStore struct {
	docs       map[string]map[string]any
	failCommit bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]map[string]any)}
}

type memBatch struct {
	store   *memStore
	sets    map[string]map[string]any
	deletes []string
}

func (s *memStore) Batch() domain.LedgerBatch {
	return &memBatch{store: s, sets: make(map[string]map[string]any)}
}

func (b *memBatch) Set(path string, data map[string]any) { b.sets[path] = data }
func (b *memBatch) Delete(path string)                   { b.deletes = append(b.deletes, path) }

func (b *memBatch) Commit(ctx context.Context) error {
	if b.store.failCommit {
		return errors.New("batch commit failed")
	}
	for path, data := range b.sets {
		b.store.docs[path] = data
	}
	for _, path := range b.deletes {
		delete(b.store.docs, path)
	}
	return nil
}

func (s *memStore) Get(ctx context.Context, path string) (domain.Document, error) {
	data, ok := s.docs[path]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return domain.Document{Path: path, Data: data}, nil
}

func (s *memStore) Delete(ctx context.Context, path string) error {
	delete(s.docs, path)
	return nil
}

func (s *memStore) List(ctx context.Context, prefix string) ([]domain.Document, error) {
	var out []domain.Document
	for path, data := range s.docs {
		if strings.HasPrefix(path, prefix+"/") {
			out = append(out, domain.Document{Path: path, Data: data})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// fakeReader serves canned snapshots for reconciliation tests.
type fakeReader struct {
	snaps map[string]domain.AuctionSnapshot
}

func (r fakeReader) GetAuctionByID(ctx context.Context, id string) (domain.AuctionSnapshot, error) {
	snap, ok := r.snaps[id]
	if !ok {
		return domain.AuctionSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func newCoordinator(store domain.LedgerStore) *Coordinator {
	return New(store, nil, slog.New(slog.DiscardHandler))
}

func TestRecordBidWritesBothDocuments(t *testing.T) {
	store := newMemStore()
	c := newCoordinator(store)

	if err := c.RecordBid(context.Background(), account, "7"); err != nil {
		t.Fatalf("record: %v", err)
	}

	addr := strings.ToLower(account)
	if _, err := store.Get(context.Background(), "accounts/"+addr+"/index/7"); err != nil {
		t.Fatalf("index entry missing: %v", err)
	}
	doc, err := store.Get(context.Background(), "accounts/"+addr+"/bids/7")
	if err != nil {
		t.Fatalf("bid record missing: %v", err)
	}
	if refunded, _ := doc.Data["refunded"].(bool); refunded {
		t.Fatal("new bid record must start unrefunded")
	}
}

func TestRecordBidRoundTripsLedgerEntry(t *testing.T) {
	store := newMemStore()
	c := newCoordinator(store)

	if err := c.RecordBid(context.Background(), account, "7"); err != nil {
		t.Fatalf("record: %v", err)
	}

	addr := strings.ToLower(account)
	doc, err := store.Get(context.Background(), "accounts/"+addr+"/bids/7")
	if err != nil {
		t.Fatalf("bid record missing: %v", err)
	}

	entry := domain.BidLedgerEntryFromDocument(doc)
	if entry.AuctionID != "7" {
		t.Fatalf("auction id = %q, want 7", entry.AuctionID)
	}
	if entry.Refunded {
		t.Fatal("new entry must start unrefunded")
	}
	if entry.CreatedAt.IsZero() {
		t.Fatal("created at not recorded")
	}
}

func TestRecordBidAtomicOnCommitFailure(t *testing.T) {
	store := newMemStore()
	store.failCommit = true
	c := newCoordinator(store)

	if err := c.RecordBid(context.Background(), account, "7"); err == nil {
		t.Fatal("expected commit failure")
	}
	if len(store.docs) != 0 {
		t.Fatalf("partial write observable: %d documents persisted", len(store.docs))
	}
}

func TestClearBidRemovesBothDocuments(t *testing.T) {
	store := newMemStore()
	c := newCoordinator(store)
	ctx := context.Background()

	if err := c.RecordBid(ctx, account, "7"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := c.ClearBid(ctx, account, "7"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(store.docs) != 0 {
		t.Fatalf("%d documents left after clear", len(store.docs))
	}
}

func TestListTrackedAuctionIDsOrdered(t *testing.T) {
	store := newMemStore()
	c := newCoordinator(store)
	ctx := context.Background()

	for _, id := range []string{"9", "3", "12"} {
		if err := c.RecordBid(ctx, account, id); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	ids, err := c.ListTrackedAuctionIDs(ctx, account)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("tracked %d auctions, want 3", len(ids))
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("ids not ordered: %v", ids)
	}
}

func TestFindWithdrawableDefersToChain(t *testing.T) {
	store := newMemStore()
	c := newCoordinator(store)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := c.RecordBid(ctx, account, id); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	other := "0x00000000219ab540356cBB839Cbe05303d7705Fa"
	reader := fakeReader{snaps: map[string]domain.AuctionSnapshot{
		// Outbid and unsettled: withdrawable.
		"1": {AuctionID: "1", HighestBidder: other, Settled: false},
		// Account is winning: nothing to withdraw.
		"2": {AuctionID: "2", HighestBidder: strings.ToUpper(account), Settled: false},
		// Settled: record is stale, not withdrawable.
		"3": {AuctionID: "3", HighestBidder: other, Settled: true},
	}}

	got, err := c.FindWithdrawable(ctx, reader, account)
	if err != nil {
		t.Fatalf("find withdrawable: %v", err)
	}
	if len(got) != 1 || got[0].AuctionID != "1" {
		t.Fatalf("withdrawable = %+v, want auction 1 only", got)
	}
}
