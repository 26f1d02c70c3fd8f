package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/server/ws"
	"github.com/openmint/marketd/internal/service"
	"github.com/openmint/marketd/internal/wallet"
)

// AuctionService defines the methods the auction handler requires from the
// service layer.
type AuctionService interface {
	GetAuctionByID(ctx context.Context, auctionID string) (domain.AuctionSnapshot, error)
	CreateAuction(ctx context.Context, provider wallet.Provider, p service.CreateAuctionParams) (domain.TransactionOutcome, error)
	Bid(ctx context.Context, provider wallet.Provider, auctionID, bidAmount string) (domain.TransactionOutcome, error)
	Settle(ctx context.Context, provider wallet.Provider, auctionID string) (domain.TransactionOutcome, error)
	Cancel(ctx context.Context, provider wallet.Provider, auctionID string) (domain.TransactionOutcome, error)
}

// BidTracker records and clears bid participation in the ledger.
type BidTracker interface {
	RecordBid(ctx context.Context, account, auctionID string) error
	ClearBid(ctx context.Context, account, auctionID string) error
}

// Events fans out marketplace events to connected WebSocket clients.
type Events interface {
	Broadcast(channel, eventType string, payload any)
}

// AuctionHandler serves auction-related HTTP endpoints.
type AuctionHandler struct {
	auctions AuctionService
	cache    domain.SnapshotCache // may be nil
	tracker  BidTracker
	events   Events
	provider wallet.Provider
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(auctions AuctionService, cache domain.SnapshotCache, tracker BidTracker, events Events, provider wallet.Provider, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctions: auctions,
		cache:    cache,
		tracker:  tracker,
		events:   events,
		provider: provider,
		logger:   logger,
	}
}

// auctionResponse pairs a snapshot with the actions available to the
// configured wallet.
type auctionResponse struct {
	Auction domain.AuctionSnapshot `json:"auction"`
	Actions domain.AuctionActions  `json:"actions"`
}

// GetAuction returns the auction snapshot plus the viewer's available
// actions. Snapshots are served from the cache when fresh; a miss falls
// through to the chain and repopulates the cache.
// GET /api/auctions/{id}
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	snap, err := h.readSnapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "auction not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get auction failed",
			slog.String("auction_id", id),
			slog.String("error", err.Error()),
		)
		writeTxError(w, err, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, auctionResponse{
		Auction: snap,
		Actions: domain.EvaluateAuction(snap, time.Now().Unix(), h.provider.Address()),
	})
}

// readSnapshot serves the snapshot from cache when present, otherwise reads
// the chain and repopulates the cache.
func (h *AuctionHandler) readSnapshot(ctx context.Context, id string) (domain.AuctionSnapshot, error) {
	if h.cache != nil {
		if snap, err := h.cache.Get(ctx, id); err == nil {
			return snap, nil
		}
	}

	snap, err := h.auctions.GetAuctionByID(ctx, id)
	if err != nil {
		return domain.AuctionSnapshot{}, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, snap); err != nil {
			h.logger.WarnContext(ctx, "handler: snapshot cache set failed",
				slog.String("auction_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, nil
}

// createAuctionRequest is the JSON body for CreateAuction.
type createAuctionRequest struct {
	NFTContract         string  `json:"nftContract"`
	TokenID             string  `json:"tokenId"`
	ReservePrice        string  `json:"reservePrice"`
	DurationSeconds     int64   `json:"durationSeconds"`
	MinIncrementPercent float64 `json:"minIncrementPercent"`
}

// CreateAuction creates a reserve-price auction for a token owned by the
// configured wallet.
// POST /api/auctions
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.NFTContract == "" || req.TokenID == "" || req.DurationSeconds <= 0 {
		writeError(w, http.StatusBadRequest, "nftContract, tokenId, and durationSeconds are required")
		return
	}

	outcome, err := h.auctions.CreateAuction(r.Context(), h.provider, service.CreateAuctionParams{
		Owner:               h.provider.Address(),
		NFTContract:         req.NFTContract,
		TokenID:             req.TokenID,
		ReservePrice:        req.ReservePrice,
		DurationSeconds:     req.DurationSeconds,
		MinIncrementPercent: req.MinIncrementPercent,
	})
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	h.events.Broadcast(ws.ChannelOutcomes, "auction_created", outcome)
	writeJSON(w, http.StatusCreated, outcome)
}

// bidRequest is the JSON body for Bid.
type bidRequest struct {
	Amount string `json:"amount"` // decimal ETH string
}

// Bid places a bid on an auction. A confirmed bid is recorded in the ledger
// so refund reconciliation can find it later; the cached snapshot is
// invalidated because the highest bid just changed.
// POST /api/auctions/{id}/bid
func (h *AuctionHandler) Bid(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	outcome, err := h.auctions.Bid(r.Context(), h.provider, id, req.Amount)
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	if err := h.tracker.RecordBid(r.Context(), h.provider.Address(), id); err != nil {
		// The bid is on chain; a ledger write failure must not turn the
		// response into an error. Reconciliation reads the chain anyway.
		h.logger.ErrorContext(r.Context(), "handler: record bid failed",
			slog.String("auction_id", id),
			slog.String("error", err.Error()),
		)
	}

	h.invalidate(r.Context(), id)
	h.events.Broadcast(ws.ChannelOutcomes, "bid_placed", outcome)
	h.events.Broadcast(ws.ChannelAuctions, "auction_updated", map[string]string{"auctionId": id})
	writeJSON(w, http.StatusOK, outcome)
}

// Settle finalizes an ended auction.
// POST /api/auctions/{id}/settle
func (h *AuctionHandler) Settle(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "auction_settled", h.auctions.Settle)
}

// Cancel cancels an auction that has no bids.
// POST /api/auctions/{id}/cancel
func (h *AuctionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "auction_cancelled", h.auctions.Cancel)
}

func (h *AuctionHandler) submit(w http.ResponseWriter, r *http.Request, event string, op func(context.Context, wallet.Provider, string) (domain.TransactionOutcome, error)) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	outcome, err := op(r.Context(), h.provider, id)
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	h.invalidate(r.Context(), id)
	h.events.Broadcast(ws.ChannelOutcomes, event, outcome)
	h.events.Broadcast(ws.ChannelAuctions, "auction_updated", map[string]string{"auctionId": id})
	writeJSON(w, http.StatusOK, outcome)
}

func (h *AuctionHandler) invalidate(ctx context.Context, auctionID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, auctionID); err != nil {
		h.logger.WarnContext(ctx, "handler: snapshot invalidate failed",
			slog.String("auction_id", auctionID),
			slog.String("error", err.Error()),
		)
	}
}
