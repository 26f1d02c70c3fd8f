package txerror

import (
	"errors"
	"strings"
	"testing"
)

// codedError mimics a provider error carrying an EIP-1193 code.
type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

// reasonedError mimics a gateway failure with an extracted revert reason.
type reasonedError struct {
	msg    string
	reason string
}

func (e reasonedError) Error() string        { return e.msg }
func (e reasonedError) RevertReason() string { return e.reason }

func TestClassifyCategories(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"rejected by code", codedError{code: 4001, msg: "request failed"}, UserRejected},
		{"rejected by text", errors.New("MetaMask Tx Signature: User denied transaction signature"), UserRejected},
		{"insufficient funds", errors.New("insufficient funds for gas * price + value"), InsufficientFunds},
		{"timeout", errors.New("post https://rpc.example: context deadline exceeded (timeout)"), NetworkError},
		{"connection refused", errors.New("dial tcp 127.0.0.1:8545: connection refused"), NetworkError},
		{"metadata frozen", reasonedError{msg: "execution reverted", reason: "Metadata frozen"}, MetadataFrozen},
		{"not token owner", reasonedError{msg: "execution reverted", reason: "Not token owner"}, NotTokenOwner},
		{"revert with reason", errors.New("execution reverted: Bid below reserve"), ContractError},
		{"revert without reason", errors.New("execution reverted"), ContractError},
		{"gas estimation failure", errors.New("cannot estimate gas; transaction may fail"), ContractError},
		{"passthrough", errors.New("something odd happened"), UnknownError},
		{"nil", nil, UnknownError},
	}

	for _, tc := range cases {
		got := Classify(tc.err)
		if got.Category != tc.want {
			t.Errorf("%s: category = %s, want %s (message %q)", tc.name, got.Category, tc.want, got.Message)
		}
		if got.Message == "" {
			t.Errorf("%s: empty message", tc.name)
		}
	}
}

// Rule order matters: a wallet rejection that also mentions funds must stay
// a rejection.
func TestClassifyPrecedence(t *testing.T) {
	err := codedError{code: 4001, msg: "user rejected: insufficient funds warning shown"}
	if got := Classify(err); got.Category != UserRejected {
		t.Fatalf("category = %s, want %s", got.Category, UserRejected)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	inputs := []error{
		codedError{code: 4001, msg: "denied"},
		errors.New("execution reverted: Auction already settled"),
		errors.New("network error: read tcp: connection reset by peer"),
		errors.New("weird"),
	}
	for _, err := range inputs {
		a, b := Classify(err), Classify(err)
		if a != b {
			t.Fatalf("classification of %v not deterministic: %+v vs %+v", err, a, b)
		}
	}
}

func TestClassifyAppendsRevertReason(t *testing.T) {
	got := Classify(errors.New("execution reverted: Bid below reserve"))
	if got.Category != ContractError {
		t.Fatalf("category = %s, want %s", got.Category, ContractError)
	}
	if want := "Bid below reserve"; !strings.Contains(got.Message, want) {
		t.Fatalf("message %q does not carry reason %q", got.Message, want)
	}
}
