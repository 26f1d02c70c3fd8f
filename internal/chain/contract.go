package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// receiptPollInterval is how often the mined-receipt wait re-asks the node.
const receiptPollInterval = time.Second

// RevertError is raised when a mined transaction's receipt reports failure,
// or when a revert reason was recovered from a call. The classifier reads
// Reason through its RevertReason hook.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "transaction reverted"
	}
	return "transaction reverted: " + e.Reason
}

// RevertReason returns the contract's revert reason, if any was recovered.
func (e *RevertError) RevertReason() string { return e.Reason }

// Contract binds an ABI and an address to a backend. Binding is pure; no
// I/O happens until Call or Transact.
type Contract struct {
	address common.Address
	abi     abi.ABI
	backend Backend
}

// Bind parses abiJSON and returns a callable handle for the contract at
// address.
func Bind(address string, abiJSON string, backend Backend) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse abi: %w", err)
	}
	return &Contract{
		address: common.HexToAddress(address),
		abi:     parsed,
		backend: backend,
	}, nil
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address { return c.address }

// ABI returns the parsed interface description.
func (c *Contract) ABI() abi.ABI { return c.abi }

// Call executes a read-only method and unpacks the result into out.
func (c *Contract) Call(ctx context.Context, out any, method string, args ...any) error {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("chain: pack %s: %w", method, err)
	}

	res, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("chain: call %s: %w", method, err)
	}

	if err := c.abi.UnpackIntoInterface(out, method, res); err != nil {
		return fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return nil
}

// TxOpts carries the per-submission knobs for Transact.
type TxOpts struct {
	// Value is the payment attached to the call, in base units. Nil means
	// no payment.
	Value *big.Int

	// GasMarginPercent scales the gas estimate, e.g. 120 submits with 120%
	// of the estimated gas. Values below 100 are treated as 100. Unused
	// gas is refunded by the chain, so the margin only guards against
	// underestimation.
	GasMarginPercent uint64
}

// Transact builds, signs, and broadcasts a state-changing call. The gas
// limit comes from a live estimate scaled by opts.GasMarginPercent. The
// returned transaction has been accepted by the node but not yet mined.
func (c *Contract) Transact(ctx context.Context, signer Signer, opts TxOpts, method string, args ...any) (*types.Transaction, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	from := signer.Address()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("chain: nonce for %s: %w", from.Hex(), err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: suggest gas price: %w", err)
	}

	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}

	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &c.address,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("chain: estimate gas for %s: %w", method, err)
	}
	gas = PadGas(gas, opts.GasMarginPercent)

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &c.address,
		Value:    value,
		Data:     data,
	})

	signed, err := signer.SignTx(tx)
	if err != nil {
		return nil, fmt.Errorf("chain: sign %s: %w", method, err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("chain: send %s: %w", method, err)
	}

	return signed, nil
}

// Submit runs Transact and blocks until the transaction is mined, then
// inspects the receipt. A failed receipt status surfaces as *RevertError.
// The wait is the dominant latency of every state-changing operation;
// callers should not issue a second call touching the same token or auction
// until Submit returns.
func (c *Contract) Submit(ctx context.Context, signer Signer, opts TxOpts, method string, args ...any) (*types.Receipt, error) {
	tx, err := c.Transact(ctx, signer, opts, method, args...)
	if err != nil {
		return nil, err
	}

	receipt, err := WaitMined(ctx, c.backend, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("chain: wait for %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &RevertError{}
	}
	return receipt, nil
}

// WaitMined polls the node until a receipt for txHash exists or ctx is
// cancelled. Once submitted a transaction cannot be withdrawn; cancelling
// the wait only stops the client from observing the outcome.
func WaitMined(ctx context.Context, backend Backend, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
