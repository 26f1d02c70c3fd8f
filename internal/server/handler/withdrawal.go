package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/ledger"
	"github.com/openmint/marketd/internal/server/ws"
	"github.com/openmint/marketd/internal/wallet"
)

// WithdrawService defines the refund operations the withdrawal handler
// requires from the service layer.
type WithdrawService interface {
	ledger.SnapshotReader
	WithdrawRefund(ctx context.Context, provider wallet.Provider, auctionID string) (domain.TransactionOutcome, error)
}

// Reconciler finds auctions where the configured wallet holds a reclaimable
// deposit.
type Reconciler interface {
	FindWithdrawable(ctx context.Context, reader ledger.SnapshotReader, account string) ([]domain.AuctionSnapshot, error)
}

// WithdrawalHandler serves refund discovery and withdrawal endpoints.
type WithdrawalHandler struct {
	auctions   WithdrawService
	reconciler Reconciler
	tracker    BidTracker
	events     Events
	provider   wallet.Provider
	logger     *slog.Logger
}

// NewWithdrawalHandler creates a WithdrawalHandler.
func NewWithdrawalHandler(auctions WithdrawService, reconciler Reconciler, tracker BidTracker, events Events, provider wallet.Provider, logger *slog.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		auctions:   auctions,
		reconciler: reconciler,
		tracker:    tracker,
		events:     events,
		provider:   provider,
		logger:     logger,
	}
}

// listWithdrawableResponse wraps the withdrawable auctions response.
type listWithdrawableResponse struct {
	Auctions []domain.AuctionSnapshot `json:"auctions"`
}

// ListWithdrawable scans the ledger for auctions the wallet has bid on and
// returns those where an outbid deposit is still reclaimable. Every entry
// is verified against live chain state, never a cache.
// GET /api/withdrawals
func (h *WithdrawalHandler) ListWithdrawable(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.reconciler.FindWithdrawable(r.Context(), h.auctions, h.provider.Address())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: withdrawable scan failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to scan withdrawable refunds")
		return
	}

	if snaps == nil {
		snaps = []domain.AuctionSnapshot{}
	}
	writeJSON(w, http.StatusOK, listWithdrawableResponse{Auctions: snaps})
}

// Withdraw reclaims the outbid deposit for one auction and clears the
// ledger entry on success.
// POST /api/withdrawals/{id}
func (h *WithdrawalHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	outcome, err := h.auctions.WithdrawRefund(r.Context(), h.provider, id)
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	if err := h.tracker.ClearBid(r.Context(), h.provider.Address(), id); err != nil {
		// The refund is already on chain; a stale ledger entry only means
		// the next scan re-checks an auction with nothing to withdraw.
		h.logger.ErrorContext(r.Context(), "handler: clear bid failed",
			slog.String("auction_id", id),
			slog.String("error", err.Error()),
		)
	}

	h.events.Broadcast(ws.ChannelOutcomes, "refund_withdrawn", outcome)
	writeJSON(w, http.StatusOK, outcome)
}
