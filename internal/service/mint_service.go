// Package service implements the marketplace domain operations on top of
// the contract gateway: minting, fixed-price listings, and auctions. Each
// service is an independent struct holding its bound contract; there is no
// shared base type. Every public operation classifies its on-chain failure
// exactly once, at the boundary where it will be shown to a human.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/openmint/marketd/internal/chain"
	"github.com/openmint/marketd/internal/domain"
	"github.com/openmint/marketd/internal/txerror"
	"github.com/openmint/marketd/internal/wallet"
)

// MintService mints tokens and maintains their metadata URIs.
type MintService struct {
	nft       *chain.Contract
	gasMargin uint64
	logger    *slog.Logger
}

// NewMintService creates a MintService over the bound NFT contract.
func NewMintService(nft *chain.Contract, gasMargin uint64, logger *slog.Logger) *MintService {
	if gasMargin == 0 {
		gasMargin = chain.DefaultGasMargin
	}
	return &MintService{
		nft:       nft,
		gasMargin: gasMargin,
		logger:    logger.With(slog.String("component", "mint_service")),
	}
}

// Mint submits a mintToken transaction for metadataURI and waits for it to
// be mined. On success the newly minted token id is extracted from the
// receipt's Transfer-from-zero log; if no such log decodes, the outcome is
// still successful with an empty TokenID.
func (s *MintService) Mint(ctx context.Context, provider wallet.Provider, metadataURI string) (domain.TransactionOutcome, error) {
	signer, err := provider.Signer()
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	receipt, err := s.nft.Submit(ctx, signer, chain.TxOpts{GasMarginPercent: s.gasMargin}, "mintToken", metadataURI)
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	tokenID := s.extractMintedTokenID(receipt.Logs)
	if tokenID == "" {
		s.logger.WarnContext(ctx, "mint succeeded but no Transfer log decoded",
			slog.String("tx", receipt.TxHash.Hex()),
		)
	} else {
		s.logger.InfoContext(ctx, "token minted",
			slog.String("token_id", tokenID),
			slog.String("tx", receipt.TxHash.Hex()),
		)
	}

	return domain.TransactionOutcome{
		Success:         true,
		TransactionHash: receipt.TxHash.Hex(),
		TokenID:         tokenID,
	}, nil
}

// UpdateTokenURI changes a token's metadata URI. The current on-chain owner
// is checked first so an obvious mismatch fails before any gas is spent;
// the comparison is case-insensitive.
func (s *MintService) UpdateTokenURI(ctx context.Context, provider wallet.Provider, expectedOwner, tokenID, newURI string) (domain.TransactionOutcome, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return domain.TransactionOutcome{}, fmt.Errorf("service: invalid token id %q", tokenID)
	}

	var owner common.Address
	if err := s.nft.Call(ctx, &owner, "ownerOf", id); err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}
	if !domain.AddressEqual(owner.Hex(), expectedOwner) {
		return domain.TransactionOutcome{}, fmt.Errorf("service: token %s: %w", tokenID, domain.ErrNotOwner)
	}

	signer, err := provider.Signer()
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	receipt, err := s.nft.Submit(ctx, signer, chain.TxOpts{GasMarginPercent: s.gasMargin}, "setTokenURI", id, newURI)
	if err != nil {
		return domain.TransactionOutcome{}, txerror.Classify(err)
	}

	s.logger.InfoContext(ctx, "token uri updated",
		slog.String("token_id", tokenID),
		slog.String("tx", receipt.TxHash.Hex()),
	)

	return domain.TransactionOutcome{Success: true, TransactionHash: receipt.TxHash.Hex()}, nil
}

// extractMintedTokenID scans receipt logs for the NFT contract's Transfer
// event from the zero address. A fresh mint always transfers from zero, and
// the third indexed topic carries the new token id.
func (s *MintService) extractMintedTokenID(logs []*types.Log) string {
	transferID := s.nft.ABI().Events["Transfer"].ID

	for _, lg := range logs {
		if lg == nil || lg.Address != s.nft.Address() {
			continue
		}
		if len(lg.Topics) != 4 || lg.Topics[0] != transferID {
			continue
		}
		// Topic 1 is the sender; minting transfers from the zero address.
		if lg.Topics[1] != (common.Hash{}) {
			continue
		}
		return new(big.Int).SetBytes(lg.Topics[3].Bytes()).String()
	}
	return ""
}
