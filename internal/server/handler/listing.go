package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/server/ws"
	"github.com/openmint/marketd/internal/service"
	"github.com/openmint/marketd/internal/wallet"
)

// ListingService defines the fixed-price marketplace operations the listing
// handler requires from the service layer.
type ListingService interface {
	ListForSale(ctx context.Context, provider wallet.Provider, p service.ListForSaleParams) (domain.TransactionOutcome, error)
	Purchase(ctx context.Context, provider wallet.Provider, nftContract, itemID, price string) (domain.TransactionOutcome, error)
}

// ListingHandler serves fixed-price listing endpoints.
type ListingHandler struct {
	listings ListingService
	events   Events
	provider wallet.Provider
	logger   *slog.Logger
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(listings ListingService, events Events, provider wallet.Provider, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		events:   events,
		provider: provider,
		logger:   logger,
	}
}

// listForSaleRequest is the JSON body for ListForSale.
type listForSaleRequest struct {
	NFTContract string `json:"nftContract"`
	TokenID     string `json:"tokenId"`
	Price       string `json:"price"` // decimal ETH string
}

// ListForSale lists a token at a fixed price. The marketplace listing fee
// is read from the contract and attached automatically.
// POST /api/listings
func (h *ListingHandler) ListForSale(w http.ResponseWriter, r *http.Request) {
	var req listForSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.NFTContract == "" || req.TokenID == "" || req.Price == "" {
		writeError(w, http.StatusBadRequest, "nftContract, tokenId, and price are required")
		return
	}

	outcome, err := h.listings.ListForSale(r.Context(), h.provider, service.ListForSaleParams{
		NFTContract: req.NFTContract,
		TokenID:     req.TokenID,
		Price:       req.Price,
	})
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	h.events.Broadcast(ws.ChannelOutcomes, "token_listed", outcome)
	writeJSON(w, http.StatusCreated, outcome)
}

// purchaseRequest is the JSON body for Purchase.
type purchaseRequest struct {
	NFTContract string `json:"nftContract"`
	Price       string `json:"price"` // decimal ETH string, must match the listing
}

// Purchase buys a listed token at its asking price.
// POST /api/listings/{id}/purchase
func (h *ListingHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing item id")
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.NFTContract == "" || req.Price == "" {
		writeError(w, http.StatusBadRequest, "nftContract and price are required")
		return
	}

	outcome, err := h.listings.Purchase(r.Context(), h.provider, req.NFTContract, id, req.Price)
	if err != nil {
		writeTxError(w, err, http.StatusBadRequest)
		return
	}

	h.events.Broadcast(ws.ChannelOutcomes, "token_purchased", outcome)
	writeJSON(w, http.StatusOK, outcome)
}
