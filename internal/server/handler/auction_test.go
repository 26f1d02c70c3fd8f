package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openmint/marketd/internal/chain"
	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/service"
	"github.com/openmint/marketd/internal/txerror"
	"github.com/openmint/marketd/internal/wallet"
)

const viewerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type fakeProvider struct{ addr string }

func (p fakeProvider) Signer() (chain.Signer, error)          { return nil, domain.ErrNoSigner }
func (p fakeProvider) Address() string                        { return p.addr }
func (p fakeProvider) ChainID() int64                         { return 31337 }
func (p fakeProvider) SignMessage(msg []byte) (string, error) { return "", domain.ErrNoSigner }

var _ wallet.Provider = fakeProvider{}

type fakeAuctionService struct {
	snap     domain.AuctionSnapshot
	getErr   error
	getCalls int
	bidErr   error
	bidCalls int
}

func (f *fakeAuctionService) GetAuctionByID(ctx context.Context, id string) (domain.AuctionSnapshot, error) {
	f.getCalls++
	return f.snap, f.getErr
}

func (f *fakeAuctionService) CreateAuction(ctx context.Context, p wallet.Provider, params service.CreateAuctionParams) (domain.TransactionOutcome, error) {
	return domain.TransactionOutcome{Success: true, TransactionHash: "0xcreate"}, nil
}

func (f *fakeAuctionService) Bid(ctx context.Context, p wallet.Provider, id, amount string) (domain.TransactionOutcome, error) {
	f.bidCalls++
	if f.bidErr != nil {
		return domain.TransactionOutcome{}, f.bidErr
	}
	return domain.TransactionOutcome{Success: true, TransactionHash: "0xbid"}, nil
}

func (f *fakeAuctionService) Settle(ctx context.Context, p wallet.Provider, id string) (domain.TransactionOutcome, error) {
	return domain.TransactionOutcome{Success: true, TransactionHash: "0xsettle"}, nil
}

func (f *fakeAuctionService) Cancel(ctx context.Context, p wallet.Provider, id string) (domain.TransactionOutcome, error) {
	return domain.TransactionOutcome{Success: true, TransactionHash: "0xcancel"}, nil
}

type fakeCache struct {
	snaps       map[string]domain.AuctionSnapshot
	sets        int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[string]domain.AuctionSnapshot)}
}

func (c *fakeCache) Set(ctx context.Context, snap domain.AuctionSnapshot) error {
	c.sets++
	c.snaps[snap.AuctionID] = snap
	return nil
}

func (c *fakeCache) Get(ctx context.Context, id string) (domain.AuctionSnapshot, error) {
	snap, ok := c.snaps[id]
	if !ok {
		return domain.AuctionSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, id string) error {
	c.invalidated = append(c.invalidated, id)
	delete(c.snaps, id)
	return nil
}

type fakeTracker struct {
	recorded []string
	cleared  []string
}

func (t *fakeTracker) RecordBid(ctx context.Context, account, auctionID string) error {
	t.recorded = append(t.recorded, account+"/"+auctionID)
	return nil
}

func (t *fakeTracker) ClearBid(ctx context.Context, account, auctionID string) error {
	t.cleared = append(t.cleared, account+"/"+auctionID)
	return nil
}

type fakeEvents struct {
	types []string
}

func (e *fakeEvents) Broadcast(channel, eventType string, payload any) {
	e.types = append(e.types, eventType)
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newAuctionHandler(svc *fakeAuctionService, cache *fakeCache, tracker *fakeTracker, events *fakeEvents) *AuctionHandler {
	var c domain.SnapshotCache
	if cache != nil {
		c = cache
	}
	return NewAuctionHandler(svc, c, tracker, events, fakeProvider{addr: viewerAddr}, discard())
}

func getAuction(t *testing.T, h *AuctionHandler, id string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auctions/{id}", h.GetAuction)

	req := httptest.NewRequest(http.MethodGet, "/api/auctions/"+id, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestGetAuctionPopulatesCache(t *testing.T) {
	svc := &fakeAuctionService{snap: domain.AuctionSnapshot{
		AuctionID: "7",
		Seller:    viewerAddr,
		EndTime:   1,
	}}
	cache := newFakeCache()
	h := newAuctionHandler(svc, cache, &fakeTracker{}, &fakeEvents{})

	rec := getAuction(t, h, "7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp auctionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Auction.AuctionID != "7" {
		t.Errorf("auction id = %q, want 7", resp.Auction.AuctionID)
	}
	if !resp.Actions.IsEnded {
		t.Error("expected ended auction actions")
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}

	// Second read is served from cache.
	getAuction(t, h, "7")
	if svc.getCalls != 1 {
		t.Errorf("chain reads = %d, want 1 (second hit cached)", svc.getCalls)
	}
}

func TestGetAuctionNotFound(t *testing.T) {
	svc := &fakeAuctionService{getErr: domain.ErrNotFound}
	h := newAuctionHandler(svc, nil, &fakeTracker{}, &fakeEvents{})

	rec := getAuction(t, h, "404")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBidRecordsLedgerAndInvalidates(t *testing.T) {
	svc := &fakeAuctionService{}
	cache := newFakeCache()
	cache.snaps["7"] = domain.AuctionSnapshot{AuctionID: "7"}
	tracker := &fakeTracker{}
	events := &fakeEvents{}
	h := newAuctionHandler(svc, cache, tracker, events)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auctions/{id}/bid", h.Bid)

	req := httptest.NewRequest(http.MethodPost, "/api/auctions/7/bid",
		strings.NewReader(`{"amount":"0.5"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(tracker.recorded) != 1 || tracker.recorded[0] != viewerAddr+"/7" {
		t.Errorf("recorded = %v, want one entry for auction 7", tracker.recorded)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "7" {
		t.Errorf("invalidated = %v, want [7]", cache.invalidated)
	}
	if len(events.types) == 0 || events.types[0] != "bid_placed" {
		t.Errorf("events = %v, want bid_placed first", events.types)
	}
}

func TestBidClassifiedErrorMapsToStatus(t *testing.T) {
	svc := &fakeAuctionService{bidErr: txerror.Classified{
		Category: txerror.InsufficientFunds,
		Message:  "insufficient funds to complete this transaction",
	}}
	tracker := &fakeTracker{}
	h := newAuctionHandler(svc, nil, tracker, &fakeEvents{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auctions/{id}/bid", h.Bid)

	req := httptest.NewRequest(http.MethodPost, "/api/auctions/7/bid",
		strings.NewReader(`{"amount":"0.5"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["category"] != string(txerror.InsufficientFunds) {
		t.Errorf("category = %q, want INSUFFICIENT_FUNDS", body["category"])
	}
	if len(tracker.recorded) != 0 {
		t.Errorf("failed bid must not be recorded, got %v", tracker.recorded)
	}
}
