package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/openmint/marketd/internal/chain"
	"github.com/openmint/marketd/internal/domain"
)

// Provider is the wallet boundary: something that can hand out a bound
// transaction signer, report the connected account and chain, and sign
// arbitrary messages (personal_sign).
type Provider interface {
	Signer() (chain.Signer, error)
	Address() string
	ChainID() int64
	SignMessage(msg []byte) (string, error)
}

// Wallet holds a locally resolved private key and implements Provider.
// Construct one per process during bootstrap; there is no hidden global.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// New builds a Wallet from a key resolved via LoadKey and the target chain
// id.
func New(keyCfg KeyConfig, chainID int64) (*Wallet, error) {
	keyHex, err := LoadKey(keyCfg)
	if err != nil {
		return nil, err
	}

	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}

	return &Wallet{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

// Signer returns a chain.Signer bound to the wallet's account.
func (w *Wallet) Signer() (chain.Signer, error) {
	if w.privateKey == nil {
		return nil, domain.ErrNoSigner
	}
	return &txSigner{wallet: w}, nil
}

// Address returns the connected account's hex address.
func (w *Wallet) Address() string { return w.address.Hex() }

// ChainID returns the configured chain identifier.
func (w *Wallet) ChainID() int64 { return w.chainID.Int64() }

// SignMessage signs msg with the Ethereum personal_sign prefix and returns
// the hex-encoded 65-byte signature.
func (w *Wallet) SignMessage(msg []byte) (string, error) {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	digest := ethcrypto.Keccak256([]byte(prefixed))

	sig, err := ethcrypto.Sign(digest, w.privateKey)
	if err != nil {
		return "", fmt.Errorf("wallet: personal sign: %w", err)
	}
	// go-ethereum returns v in {0,1}; personal_sign expects {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// txSigner implements chain.Signer for a Wallet.
type txSigner struct {
	wallet *Wallet
}

func (s *txSigner) Address() common.Address { return s.wallet.address }

func (s *txSigner) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.wallet.chainID), s.wallet.privateKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign transaction: %w", err)
	}
	return signed, nil
}

var _ Provider = (*Wallet)(nil)
