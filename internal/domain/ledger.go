package domain

import (
	"context"
	"time"
)

// BidLedgerEntry records that an account has bid on an auction and has not
// yet confirmed a refund for it. It is a discovery hint only; whether a
// refund is actually withdrawable is always decided against a live
// AuctionSnapshot.
type BidLedgerEntry struct {
	AuctionID string    `json:"auctionId"`
	Refunded  bool      `json:"refunded"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document renders the entry as ledger document data.
func (e BidLedgerEntry) Document() map[string]any {
	return map[string]any{
		"auctionId": e.AuctionID,
		"refunded":  e.Refunded,
		"createdAt": e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// BidLedgerEntryFromDocument decodes a bid document written by
// BidLedgerEntry.Document. Missing or malformed fields decode to zero
// values.
func BidLedgerEntryFromDocument(d Document) BidLedgerEntry {
	var e BidLedgerEntry
	if id, ok := d.Data["auctionId"].(string); ok {
		e.AuctionID = id
	}
	if refunded, ok := d.Data["refunded"].(bool); ok {
		e.Refunded = refunded
	}
	if raw, ok := d.Data["createdAt"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			e.CreatedAt = ts
		}
	}
	return e
}

// Document is one ledger document addressed by a slash-separated path.
type Document struct {
	Path string
	Data map[string]any
}

// LedgerBatch collects writes and deletes that must commit atomically. A
// batch that fails to commit leaves no partial state behind.
type LedgerBatch interface {
	Set(path string, data map[string]any)
	Delete(path string)
	Commit(ctx context.Context) error
}

// LedgerStore is the document-oriented store backing the bid ledger. Paths
// are scoped per lowercased account address so writers for different
// accounts never conflict.
type LedgerStore interface {
	Batch() LedgerBatch
	Get(ctx context.Context, path string) (Document, error)
	Delete(ctx context.Context, path string) error
	// List returns the documents directly under prefix, ordered by path.
	List(ctx context.Context, prefix string) ([]Document, error)
}
