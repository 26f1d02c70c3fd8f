// Package domain defines the core types and store interfaces shared across
// the marketd components. It has no dependencies outside the standard
// library so that every layer can import it freely.
package domain

import "strings"

// ZeroAddress is the sentinel the auction contract stores as highest bidder
// before the first bid arrives.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// AuctionSnapshot is one read of an auction's on-chain state. Monetary
// fields carry decimal ETH strings; base-unit integers never leave the
// service boundary.
type AuctionSnapshot struct {
	AuctionID     string `json:"auctionId"`
	Seller        string `json:"seller"`
	NFTContract   string `json:"nftContract"`
	TokenID       string `json:"tokenId"`
	EndTime       int64  `json:"endTime"` // unix seconds
	MinIncrement  int    `json:"minIncrementBps"`
	ReservePrice  string `json:"reservePrice"`
	HighestBidder string `json:"highestBidder"`
	HighestBid    string `json:"highestBid"`
	Settled       bool   `json:"settled"`
}

// HasBid reports whether any bid has been placed on the auction.
func (s AuctionSnapshot) HasBid() bool {
	return !AddressEqual(s.HighestBidder, ZeroAddress) && s.HighestBidder != ""
}

// AuctionActions is the advisory set of operations currently valid for a
// given viewer. The contract remains the authority; these gates only decide
// which actions a client should offer.
type AuctionActions struct {
	IsActive  bool `json:"isActive"`
	IsEnded   bool `json:"isEnded"`
	CanBid    bool `json:"canBid"`
	CanSettle bool `json:"canSettle"`
	CanCancel bool `json:"canCancel"`
}

// EvaluateAuction computes the valid actions for viewer at the given unix
// time. Bidding closes the second the end time is reached; settlement opens
// at that same second. Cancellation is seller-only and only while no bid
// exists, with no requirement that the auction has ended.
func EvaluateAuction(s AuctionSnapshot, nowUnix int64, viewer string) AuctionActions {
	ended := s.EndTime <= nowUnix
	active := !s.Settled && !ended

	return AuctionActions{
		IsActive:  active,
		IsEnded:   ended,
		CanBid:    active,
		CanSettle: ended && !s.Settled,
		CanCancel: AddressEqual(s.Seller, viewer) && !s.HasBid() && !s.Settled,
	}
}

// AddressEqual compares two hex addresses case-insensitively.
func AddressEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
