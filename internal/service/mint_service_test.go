package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/openmint/marketd/internal/chain"
	"github.com/openmint/marketd/internal/domain"
)

func newMintService(t *testing.T, backend *testBackend) *MintService {
	t.Helper()
	nft, err := chain.Bind(nftAddr.Hex(), chain.NFTABI, backend)
	if err != nil {
		t.Fatalf("bind nft: %v", err)
	}
	return NewMintService(nft, 120, discard())
}

func transferLog(t *testing.T, from common.Address, tokenID int64) *types.Log {
	t.Helper()
	nftABI := mustABI(t, chain.NFTABI)
	return &types.Log{
		Address: nftAddr,
		Topics: []common.Hash{
			nftABI.Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(ownerAddr.Bytes()),
			common.BigToHash(big.NewInt(tokenID)),
		},
	}
}

func TestMintExtractsTokenID(t *testing.T) {
	backend := newTestBackend()
	backend.receiptLogs = []*types.Log{transferLog(t, common.Address{}, 42)}

	svc := newMintService(t, backend)
	out, err := svc.Mint(context.Background(), testProvider{}, "ipfs://QmMeta")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !out.Success {
		t.Fatal("expected success")
	}
	if out.TokenID != "42" {
		t.Fatalf("tokenID = %q, want 42", out.TokenID)
	}
}

func TestMintWithoutTransferLogStillSucceeds(t *testing.T) {
	backend := newTestBackend()
	// A transfer between two non-zero accounts is not a mint.
	backend.receiptLogs = []*types.Log{transferLog(t, houseAddr, 42)}

	svc := newMintService(t, backend)
	out, err := svc.Mint(context.Background(), testProvider{}, "ipfs://QmMeta")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !out.Success {
		t.Fatal("mint must still report success")
	}
	if out.TokenID != "" {
		t.Fatalf("tokenID = %q, want empty", out.TokenID)
	}
}

func TestMintIgnoresForeignContractLogs(t *testing.T) {
	backend := newTestBackend()
	lg := transferLog(t, common.Address{}, 42)
	lg.Address = houseAddr // different contract emitted it
	backend.receiptLogs = []*types.Log{lg}

	svc := newMintService(t, backend)
	out, err := svc.Mint(context.Background(), testProvider{}, "ipfs://QmMeta")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if out.TokenID != "" {
		t.Fatalf("tokenID = %q, want empty", out.TokenID)
	}
}

func TestUpdateTokenURIRejectsNonOwnerBeforeSubmitting(t *testing.T) {
	nftABI := mustABI(t, chain.NFTABI)
	backend := newTestBackend()
	backend.onRead(nftABI, "ownerOf", packOutputs(t, nftABI, "ownerOf", houseAddr))

	svc := newMintService(t, backend)
	_, err := svc.UpdateTokenURI(context.Background(), testProvider{}, ownerAddr.Hex(), "42", "ipfs://QmNew")
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if len(backend.sent) != 0 {
		t.Fatalf("sent %d transactions, want 0 (fail before spending gas)", len(backend.sent))
	}
}

func TestUpdateTokenURIOwnerCaseInsensitive(t *testing.T) {
	nftABI := mustABI(t, chain.NFTABI)
	backend := newTestBackend()
	backend.onRead(nftABI, "ownerOf", packOutputs(t, nftABI, "ownerOf", ownerAddr))

	svc := newMintService(t, backend)
	lower := "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	out, err := svc.UpdateTokenURI(context.Background(), testProvider{}, lower, "42", "ipfs://QmNew")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !out.Success || len(backend.sent) != 1 {
		t.Fatalf("expected one setTokenURI transaction, got %d", len(backend.sent))
	}
}
