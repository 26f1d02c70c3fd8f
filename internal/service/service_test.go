package service

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/openmint/marketd/internal/chain"
)

// Shared fakes for the service tests. The backend dispatches read calls by
// method selector and records every sent transaction so tests can assert on
// call ordering.

var (
	houseAddr = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	nftAddr   = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	ownerAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func mustABI(t *testing.T, raw string) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	return parsed
}

func packOutputs(t *testing.T, a abi.ABI, method string, vals ...any) []byte {
	t.Helper()
	out, err := a.Methods[method].Outputs.Pack(vals...)
	if err != nil {
		t.Fatalf("pack %s outputs: %v", method, err)
	}
	return out
}

type testSigner struct{}

func (testSigner) Address() common.Address { return ownerAddr }
func (testSigner) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	return tx, nil
}

type testProvider struct{}

func (testProvider) Signer() (chain.Signer, error)       { return testSigner{}, nil }
func (testProvider) Address() string                     { return ownerAddr.Hex() }
func (testProvider) ChainID() int64                      { return 31337 }
func (testProvider) SignMessage([]byte) (string, error)  { return "0x00", nil }

// testBackend dispatches CallContract by 4-byte selector and records sent
// transactions. Receipts always report success and carry receiptLogs.
type testBackend struct {
	reads       map[[4]byte][]byte
	sent        []*types.Transaction
	receiptLogs []*types.Log
}

func newTestBackend() *testBackend {
	return &testBackend{reads: make(map[[4]byte][]byte)}
}

func (b *testBackend) onRead(a abi.ABI, method string, response []byte) {
	var sel [4]byte
	copy(sel[:], a.Methods[method].ID)
	b.reads[sel] = response
}

func (b *testBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	var sel [4]byte
	copy(sel[:], msg.Data)
	if res, ok := b.reads[sel]; ok {
		return res, nil
	}
	return nil, ethereum.NotFound
}

func (b *testBackend) PendingNonceAt(ctx context.Context, _ common.Address) (uint64, error) {
	return uint64(len(b.sent)), nil
}

func (b *testBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *testBackend) EstimateGas(ctx context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (b *testBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.sent = append(b.sent, tx)
	return nil
}

func (b *testBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: txHash,
		Logs:   b.receiptLogs,
	}, nil
}

// selector returns the 4-byte method id of a sent transaction.
func selector(tx *types.Transaction) [4]byte {
	var sel [4]byte
	copy(sel[:], tx.Data())
	return sel
}

func methodID(a abi.ABI, method string) [4]byte {
	var sel [4]byte
	copy(sel[:], a.Methods[method].ID)
	return sel
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
