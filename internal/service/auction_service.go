package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openmint/marketd/internal/chain"
	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/txerror"
	"github.com/openmint/marketd/internal/wallet"
)

// AuctionService drives the auction house contract: reads, creation with
// its approval dance, bidding, settlement, cancellation, and refund
// withdrawal.
type AuctionService struct {
	house     *chain.Contract
	backend   chain.Backend
	gasMargin uint64
	logger    *slog.Logger
}

// NewAuctionService creates an AuctionService. The backend is kept so NFT
// contracts named at auction-creation time can be bound on demand for the
// approval pre-check.
func NewAuctionService(house *chain.Contract, backend chain.Backend, gasMargin uint64, logger *slog.Logger) *AuctionService {
	if gasMargin == 0 {
		gasMargin = chain.DefaultGasMargin
	}
	return &AuctionService{
		house:     house,
		backend:   backend,
		gasMargin: gasMargin,
		logger:    logger.With(slog.String("component", "auction_service")),
	}
}

// GetAuctionByID reads an auction's live on-chain state. Base-unit amounts
// are converted to decimal ETH strings here, at the service boundary.
func (s *AuctionService) GetAuctionByID(ctx context.Context, auctionID string) (domain.AuctionSnapshot, error) {
	id, ok := new(big.Int).SetString(auctionID, 10)
	if !ok {
		return domain.AuctionSnapshot{}, fmt.Errorf("service: invalid auction id %q", auctionID)
	}

	var out struct {
		Seller          common.Address
		NftContract     common.Address
		TokenId         *big.Int
		EndTime         *big.Int
		MinIncrementBps *big.Int
		ReservePrice    *big.Int
		HighestBidder   common.Address
		HighestBid      *big.Int
		Settled         bool
	}
	if err := s.house.Call(ctx, &out, "auctions", id); err != nil {
		return domain.AuctionSnapshot{}, txerror.Classify(err)
	}

	return domain.AuctionSnapshot{
		AuctionID:     auctionID,
		Seller:        out.Seller.Hex(),
		NFTContract:   out.NftContract.Hex(),
		TokenID:       out.TokenId.String(),
		EndTime:       out.EndTime.Int64(),
		MinIncrement:  int(out.MinIncrementBps.Int64()),
		ReservePrice:  chain.WeiToEther(out.ReservePrice),
		HighestBidder: out.HighestBidder.Hex(),
		HighestBid:    chain.WeiToEther(out.HighestBid),
		Settled:       out.Settled,
	}, nil
}

// CreateAuctionParams are the inputs to CreateAuction. ReservePrice is a
// decimal ETH string and MinIncrementPercent a percentage such as 2.5.
type CreateAuctionParams struct {
	Owner               string
	NFTContract         string
	TokenID             string
	ReservePrice        string
	DurationSeconds     int64
	MinIncrementPercent float64
}

// CreateAuction creates a reserve-price auction. The auction house must be
// approved to move the token first: if neither the single-token approval
// nor a blanket operator approval grants it, an approve transaction is
// submitted and confirmed before createAuction goes out. The two steps are
// strictly sequential; creating the auction before the approval is mined
// would revert.
func (s *AuctionService) CreateAuction(ctx context.Context, provider wallet.Provider, p CreateAuctionParams) (domain.TransactionOutcome, error) {
	reserveWei, err := chain.EtherToWei(p.ReservePrice)
	if err != nil {
		return domain.TransactionOutcome{}, fmt.Errorf("service: reserve price: %w", err)
	}
	id, ok := new(big.Int).SetString(p.TokenID, 10)
	if !ok {
		return domain.TransactionOutcome{}, fmt.Errorf("service: invalid token id %q", p.TokenID)
	}

	signer, err := provider.Signer()
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	nft, err := chain.Bind(p.NFTContract, chain.NFTABI, s.backend)
	if err != nil {
		return domain.TransactionOutcome{}, fmt.Errorf("service: bind nft contract: %w", err)
	}

	if err := s.ensureApproval(ctx, signer, nft, p.Owner, id); err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	bps := big.NewInt(chain.PercentToBasisPoints(p.MinIncrementPercent))
	receipt, err := s.house.Submit(ctx, signer,
		chain.TxOpts{GasMarginPercent: s.gasMargin},
		"createAuction",
		nft.Address(), id, reserveWei, big.NewInt(p.DurationSeconds), bps,
	)
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	s.logger.InfoContext(ctx, "auction created",
		slog.String("token_id", p.TokenID),
		slog.String("reserve_eth", p.ReservePrice),
		slog.String("tx", receipt.TxHash.Hex()),
	)

	return domain.TransactionOutcome{Success: true, TransactionHash: receipt.TxHash.Hex()}, nil
}

// ensureApproval checks single-token and operator approval for the auction
// house, submitting an approve transaction (and waiting for it) only when
// neither grants permission.
func (s *AuctionService) ensureApproval(ctx context.Context, signer chain.Signer, nft *chain.Contract, owner string, tokenID *big.Int) error {
	var approved common.Address
	if err := nft.Call(ctx, &approved, "getApproved", tokenID); err != nil {
		return err
	}
	if approved == s.house.Address() {
		return nil
	}

	var blanket bool
	if err := nft.Call(ctx, &blanket, "isApprovedForAll", common.HexToAddress(owner), s.house.Address()); err != nil {
		return err
	}
	if blanket {
		return nil
	}

	receipt, err := nft.Submit(ctx, signer,
		chain.TxOpts{GasMarginPercent: s.gasMargin},
		"approve", s.house.Address(), tokenID,
	)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "auction house approved for token",
		slog.String("token_id", tokenID.String()),
		slog.String("tx", receipt.TxHash.Hex()),
	)
	return nil
}

// Bid places a bid carrying bidAmount (decimal ETH) as the payment value.
// No client-side minimum is enforced; the contract checks reserve price and
// increment, and a losing race with another bidder surfaces as a classified
// contract error.
func (s *AuctionService) Bid(ctx context.Context, provider wallet.Provider, auctionID, bidAmount string) (domain.TransactionOutcome, error) {
	amountWei, err := chain.EtherToWei(bidAmount)
	if err != nil {
		return domain.TransactionOutcome{}, fmt.Errorf("service: bid amount: %w", err)
	}
	id, ok := new(big.Int).SetString(auctionID, 10)
	if !ok {
		return domain.TransactionOutcome{}, fmt.Errorf("service: invalid auction id %q", auctionID)
	}

	signer, err := provider.Signer()
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	receipt, err := s.house.Submit(ctx, signer,
		chain.TxOpts{Value: amountWei, GasMarginPercent: s.gasMargin},
		"bid", id,
	)
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	s.logger.InfoContext(ctx, "bid placed",
		slog.String("auction_id", auctionID),
		slog.String("amount_eth", bidAmount),
		slog.String("tx", receipt.TxHash.Hex()),
	)

	return domain.TransactionOutcome{Success: true, TransactionHash: receipt.TxHash.Hex()}, nil
}

// Settle finalizes an ended auction.
func (s *AuctionService) Settle(ctx context.Context, provider wallet.Provider, auctionID string) (domain.TransactionOutcome, error) {
	return s.simpleSubmit(ctx, provider, auctionID, "settle")
}

// Cancel cancels an auction. Eligibility (seller only, no bids) is enforced
// by the contract; domain.EvaluateAuction mirrors the rule for UI gating.
func (s *AuctionService) Cancel(ctx context.Context, provider wallet.Provider, auctionID string) (domain.TransactionOutcome, error) {
	return s.simpleSubmit(ctx, provider, auctionID, "cancel")
}

// WithdrawRefund reclaims an outbid deposit from the auction house.
func (s *AuctionService) WithdrawRefund(ctx context.Context, provider wallet.Provider, auctionID string) (domain.TransactionOutcome, error) {
	return s.simpleSubmit(ctx, provider, auctionID, "withdrawRefund")
}

func (s *AuctionService) simpleSubmit(ctx context.Context, provider wallet.Provider, auctionID, method string) (domain.TransactionOutcome, error) {
	id, ok := new(big.Int).SetString(auctionID, 10)
	if !ok {
		return domain.TransactionOutcome{}, fmt.Errorf("service: invalid auction id %q", auctionID)
	}

	signer, err := provider.Signer()
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	receipt, err := s.house.Submit(ctx, signer, chain.TxOpts{GasMarginPercent: s.gasMargin}, method, id)
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	s.logger.InfoContext(ctx, "auction transaction confirmed",
		slog.String("method", method),
		slog.String("auction_id", auctionID),
		slog.String("tx", receipt.TxHash.Hex()),
	)

	return domain.TransactionOutcome{Success: true, TransactionHash: receipt.TxHash.Hex()}, nil
}
