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

// ListingService puts tokens up for fixed-price sale on the marketplace
// contract and executes purchases.
type ListingService struct {
	marketplace *chain.Contract
	gasMargin   uint64
	logger      *slog.Logger
}

// NewListingService creates a ListingService over the bound marketplace
// contract.
func NewListingService(marketplace *chain.Contract, gasMargin uint64, logger *slog.Logger) *ListingService {
	if gasMargin == 0 {
		gasMargin = chain.DefaultGasMargin
	}
	return &ListingService{
		marketplace: marketplace,
		gasMargin:   gasMargin,
		logger:      logger.With(slog.String("component", "listing_service")),
	}
}

// ListForSaleParams are the inputs to ListForSale. Price is a decimal ETH
// string.
type ListForSaleParams struct {
	NFTContract string
	TokenID     string
	Price       string
}

// ListForSale lists a token at a fixed price. The marketplace's current
// listing fee is read from the contract and attached as the payment value.
func (s *ListingService) ListForSale(ctx context.Context, provider wallet.Provider, p ListForSaleParams) (domain.TransactionOutcome, error) {
	priceWei, err := chain.EtherToWei(p.Price)
	if err != nil {
		return domain.TransactionOutcome{}, fmt.Errorf("service: price: %w", err)
	}
	id, ok := new(big.Int).SetString(p.TokenID, 10)
	if !ok {
		return domain.TransactionOutcome{}, fmt.Errorf("service: invalid token id %q", p.TokenID)
	}

	signer, err := provider.Signer()
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	var fee *big.Int
	if err := s.marketplace.Call(ctx, &fee, "getListingFee"); err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	receipt, err := s.marketplace.Submit(ctx, signer,
		chain.TxOpts{Value: fee, GasMarginPercent: s.gasMargin},
		"createMarketItem", common.HexToAddress(p.NFTContract), id, priceWei,
	)
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	s.logger.InfoContext(ctx, "token listed",
		slog.String("token_id", p.TokenID),
		slog.String("price_eth", p.Price),
		slog.String("tx", receipt.TxHash.Hex()),
	)

	return domain.TransactionOutcome{Success: true, TransactionHash: receipt.TxHash.Hex()}, nil
}

// Purchase buys a listed market item, paying its asking price as the
// transaction value.
func (s *ListingService) Purchase(ctx context.Context, provider wallet.Provider, nftContract, itemID, price string) (domain.TransactionOutcome, error) {
	priceWei, err := chain.EtherToWei(price)
	if err != nil {
		return domain.TransactionOutcome{}, fmt.Errorf("service: price: %w", err)
	}
	id, ok := new(big.Int).SetString(itemID, 10)
	if !ok {
		return domain.TransactionOutcome{}, fmt.Errorf("service: invalid item id %q", itemID)
	}

	signer, err := provider.Signer()
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	receipt, err := s.marketplace.Submit(ctx, signer,
		chain.TxOpts{Value: priceWei, GasMarginPercent: s.gasMargin},
		"createMarketSale", common.HexToAddress(nftContract), id,
	)
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	s.logger.InfoContext(ctx, "item purchased",
		slog.String("item_id", itemID),
		slog.String("tx", receipt.TxHash.Hex()),
	)

	return domain.TransactionOutcome{Success: true, TransactionHash: receipt.TxHash.Hex()}, nil
}
