package domain

// TransactionOutcome is the result of a confirmed state-changing on-chain
// operation. It is returned to the caller and never persisted; follow-up
// bookkeeping (ledger entries, cache invalidation) is the caller's choice.
type TransactionOutcome struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`

	// TokenID carries the newly minted token identifier for mint
	// operations. Empty when the receipt held no decodable Transfer log;
	// the mint itself still succeeded in that case.
	TokenID string `json:"tokenId,omitempty"`
}
