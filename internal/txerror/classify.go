// Package txerror maps raw failures from RPC calls, gas estimation, and
// signing into a closed set of user-facing categories. Classification is a
// pure function: it performs no I/O and the same input always produces the
// same result.
package txerror

import (
	"fmt"
	"strings"
)

// Category tags a classified on-chain failure.
type Category string

const (
	UserRejected      Category = "USER_REJECTED"
	InsufficientFunds Category = "INSUFFICIENT_FUNDS"
	NetworkError      Category = "NETWORK_ERROR"
	MetadataFrozen    Category = "METADATA_FROZEN"
	NotTokenOwner     Category = "NOT_TOKEN_OWNER"
	ContractError     Category = "CONTRACT_ERROR"
	UnknownError      Category = "UNKNOWN_ERROR"
)

// Classified is the result of classifying a raw failure. Message is always
// short and human-readable; raw provider payloads never pass through except
// as an appended revert reason.
type Classified struct {
	Category Category
	Message  string
}

// Error satisfies the error interface so a Classified can travel up the
// call stack like any other failure.
func (c Classified) Error() string {
	return fmt.Sprintf("%s: %s", c.Category, c.Message)
}

// userRejectedCode is the EIP-1193 "user rejected request" error code.
const userRejectedCode = 4001

// coded matches go-ethereum's rpc.Error and provider errors that expose a
// numeric code.
type coded interface {
	ErrorCode() int
}

// reasoned matches failures that carry an extracted contract revert reason.
type reasoned interface {
	RevertReason() string
}

// Classify maps err into a category. Rules are ordered and the first match
// wins; several categories overlap on substrings, so reordering them changes
// behavior. It never fails: a nil error classifies as UnknownError.
func Classify(err error) Classified {
	if err == nil {
		return Classified{Category: UnknownError, Message: "unknown error"}
	}

	text := err.Error()
	lower := strings.ToLower(text)

	code := 0
	if c, ok := err.(coded); ok {
		code = c.ErrorCode()
	}

	reason := revertReason(err, lower)

	switch {
	case code == userRejectedCode ||
		strings.Contains(lower, "user rejected") ||
		strings.Contains(lower, "user denied") ||
		strings.Contains(lower, "action_rejected") ||
		strings.Contains(lower, "request rejected"):
		return Classified{UserRejected, "Transaction was rejected in the wallet."}

	case strings.Contains(lower, "insufficient funds") ||
		strings.Contains(lower, "insufficient balance") ||
		strings.Contains(lower, "gas * price + value"):
		return Classified{InsufficientFunds, "Insufficient funds to cover value and gas."}

	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "could not detect network") ||
		strings.Contains(lower, "network error") ||
		strings.Contains(lower, "no such host"):
		return Classified{NetworkError, "Network problem while talking to the chain. Try again."}

	case strings.Contains(strings.ToLower(reason), "metadata frozen") ||
		strings.Contains(strings.ToLower(reason), "metadata is frozen"):
		return Classified{MetadataFrozen, "Token metadata is frozen and can no longer be changed."}

	case strings.Contains(strings.ToLower(reason), "not token owner") ||
		strings.Contains(strings.ToLower(reason), "not the token owner") ||
		strings.Contains(strings.ToLower(reason), "caller is not owner"):
		return Classified{NotTokenOwner, "You are not the owner of this token."}

	case reason != "":
		return Classified{ContractError, "Contract rejected the transaction: " + reason}

	case strings.Contains(lower, "execution reverted") ||
		strings.Contains(lower, "call exception") ||
		strings.Contains(lower, "cannot estimate gas") ||
		strings.Contains(lower, "unpredictable_gas_limit") ||
		strings.Contains(lower, "transaction reverted"):
		return Classified{ContractError, "Contract rejected the transaction."}

	case strings.TrimSpace(text) != "":
		return Classified{UnknownError, text}

	default:
		return Classified{UnknownError, "unknown error"}
	}
}

// revertReason pulls the contract revert reason out of err, either through
// the reasoned interface or from go-ethereum's "execution reverted: <msg>"
// error text.
func revertReason(err error, lower string) string {
	if r, ok := err.(reasoned); ok {
		if reason := r.RevertReason(); reason != "" {
			return reason
		}
	}

	const marker = "execution reverted:"
	if i := strings.Index(lower, marker); i >= 0 {
		return strings.TrimSpace(err.Error()[i+len(marker):])
	}
	return ""
}
