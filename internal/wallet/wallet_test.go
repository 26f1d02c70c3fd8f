package wallet

import (
	"strings"
	"testing"
)

// Well-known throwaway key (first Hardhat dev account).
const (
	testKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != testKey {
		t.Fatalf("decrypted key mismatch")
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("expected failure with wrong password")
	}
}

func TestLoadKeyPrefersRaw(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKey})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != testKey {
		t.Fatalf("key = %s, want raw key without prefix", got)
	}
}

func TestLoadKeyNoSource(t *testing.T) {
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Fatal("expected error with no key source")
	}
}

func TestWalletAddressAndSigner(t *testing.T) {
	w, err := New(KeyConfig{RawPrivateKey: testKey}, 31337)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	if !strings.EqualFold(w.Address(), testAddr) {
		t.Fatalf("address = %s, want %s", w.Address(), testAddr)
	}

	signer, err := w.Signer()
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	if signer.Address().Hex() != w.Address() {
		t.Fatalf("signer address %s != wallet address %s", signer.Address().Hex(), w.Address())
	}
}

func TestSignMessage(t *testing.T) {
	w, err := New(KeyConfig{RawPrivateKey: testKey}, 1)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}

	sig, err := w.SignMessage([]byte("login:nonce:12345"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+65*2 {
		t.Fatalf("signature %q has unexpected shape", sig)
	}
}
