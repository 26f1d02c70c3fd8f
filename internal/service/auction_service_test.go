package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openmint/marketd/internal/chain"
)

func newAuctionService(t *testing.T, backend *testBackend) *AuctionService {
	t.Helper()
	house, err := chain.Bind(houseAddr.Hex(), chain.AuctionHouseABI, backend)
	if err != nil {
		t.Fatalf("bind auction house: %v", err)
	}
	return NewAuctionService(house, backend, 120, discard())
}

func createParams() CreateAuctionParams {
	return CreateAuctionParams{
		Owner:               ownerAddr.Hex(),
		NFTContract:         nftAddr.Hex(),
		TokenID:             "42",
		ReservePrice:        "0.5",
		DurationSeconds:     3600,
		MinIncrementPercent: 2.5,
	}
}

func TestCreateAuctionApprovesFirstWhenUnapproved(t *testing.T) {
	nftABI := mustABI(t, chain.NFTABI)
	backend := newTestBackend()
	backend.onRead(nftABI, "getApproved", packOutputs(t, nftABI, "getApproved", common.Address{}))
	backend.onRead(nftABI, "isApprovedForAll", packOutputs(t, nftABI, "isApprovedForAll", false))

	svc := newAuctionService(t, backend)
	out, err := svc.CreateAuction(context.Background(), testProvider{}, createParams())
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if !out.Success {
		t.Fatal("expected success")
	}

	if len(backend.sent) != 2 {
		t.Fatalf("sent %d transactions, want 2 (approve then createAuction)", len(backend.sent))
	}
	houseABI := mustABI(t, chain.AuctionHouseABI)
	if selector(backend.sent[0]) != methodID(nftABI, "approve") {
		t.Fatal("first transaction is not approve")
	}
	if selector(backend.sent[1]) != methodID(houseABI, "createAuction") {
		t.Fatal("second transaction is not createAuction")
	}
	if to := backend.sent[0].To(); *to != nftAddr {
		t.Fatalf("approve sent to %s, want nft contract", to.Hex())
	}
}

func TestCreateAuctionSkipsApproveWhenTokenApproved(t *testing.T) {
	nftABI := mustABI(t, chain.NFTABI)
	backend := newTestBackend()
	backend.onRead(nftABI, "getApproved", packOutputs(t, nftABI, "getApproved", houseAddr))

	svc := newAuctionService(t, backend)
	if _, err := svc.CreateAuction(context.Background(), testProvider{}, createParams()); err != nil {
		t.Fatalf("create auction: %v", err)
	}

	if len(backend.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1 (no approve)", len(backend.sent))
	}
	houseABI := mustABI(t, chain.AuctionHouseABI)
	if selector(backend.sent[0]) != methodID(houseABI, "createAuction") {
		t.Fatal("transaction is not createAuction")
	}
}

func TestCreateAuctionSkipsApproveWithOperatorApproval(t *testing.T) {
	nftABI := mustABI(t, chain.NFTABI)
	backend := newTestBackend()
	backend.onRead(nftABI, "getApproved", packOutputs(t, nftABI, "getApproved", common.Address{}))
	backend.onRead(nftABI, "isApprovedForAll", packOutputs(t, nftABI, "isApprovedForAll", true))

	svc := newAuctionService(t, backend)
	if _, err := svc.CreateAuction(context.Background(), testProvider{}, createParams()); err != nil {
		t.Fatalf("create auction: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(backend.sent))
	}
}

func TestCreateAuctionConvertsMinIncrementToBasisPoints(t *testing.T) {
	nftABI := mustABI(t, chain.NFTABI)
	backend := newTestBackend()
	backend.onRead(nftABI, "getApproved", packOutputs(t, nftABI, "getApproved", houseAddr))

	svc := newAuctionService(t, backend)
	if _, err := svc.CreateAuction(context.Background(), testProvider{}, createParams()); err != nil {
		t.Fatalf("create auction: %v", err)
	}

	houseABI := mustABI(t, chain.AuctionHouseABI)
	args, err := houseABI.Methods["createAuction"].Inputs.Unpack(backend.sent[0].Data()[4:])
	if err != nil {
		t.Fatalf("unpack createAuction args: %v", err)
	}
	bps := args[4].(*big.Int)
	if bps.Int64() != 250 {
		t.Fatalf("minIncrementBps = %d, want 250", bps.Int64())
	}
	reserve := args[2].(*big.Int)
	if want := "500000000000000000"; reserve.String() != want {
		t.Fatalf("reserve = %s, want %s", reserve, want)
	}
}

func TestBidAttachesValue(t *testing.T) {
	backend := newTestBackend()
	svc := newAuctionService(t, backend)

	out, err := svc.Bid(context.Background(), testProvider{}, "7", "0.6")
	if err != nil {
		t.Fatalf("bid: %v", err)
	}
	if !out.Success || out.TransactionHash == "" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	want, _ := chain.EtherToWei("0.6")
	if v := backend.sent[0].Value(); v.Cmp(want) != 0 {
		t.Fatalf("bid value = %s, want %s", v, want)
	}
}

func TestGetAuctionByIDConvertsUnits(t *testing.T) {
	houseABI := mustABI(t, chain.AuctionHouseABI)
	reserve, _ := chain.EtherToWei("0.5")
	highest, _ := chain.EtherToWei("0.75")

	backend := newTestBackend()
	backend.onRead(houseABI, "auctions", packOutputs(t, houseABI, "auctions",
		ownerAddr, nftAddr, big.NewInt(42), big.NewInt(1_700_000_000),
		big.NewInt(250), reserve, houseAddr, highest, false,
	))

	svc := newAuctionService(t, backend)
	snap, err := svc.GetAuctionByID(context.Background(), "7")
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}

	if snap.ReservePrice != "0.5" || snap.HighestBid != "0.75" {
		t.Fatalf("prices not converted: %+v", snap)
	}
	if snap.EndTime != 1_700_000_000 || snap.MinIncrement != 250 {
		t.Fatalf("numeric fields wrong: %+v", snap)
	}
	if snap.TokenID != "42" || snap.Settled {
		t.Fatalf("snapshot wrong: %+v", snap)
	}
}
