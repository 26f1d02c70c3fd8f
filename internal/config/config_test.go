package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
[wallet]
private_key = "abc123"

[chain]
rpc_url = "http://node:8545"
chain_id = 11155111
nft_address = "0x01"
marketplace_address = "0x02"
auction_house_address = "0x03"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Chain.RPCURL != "http://node:8545" {
		t.Errorf("rpc_url = %q, want override", cfg.Chain.RPCURL)
	}
	if cfg.Chain.ChainID != 11155111 {
		t.Errorf("chain_id = %d, want 11155111", cfg.Chain.ChainID)
	}
	// Defaults survive for sections the file does not mention.
	if cfg.Chain.GasMarginPercent != 120 {
		t.Errorf("gas_margin_percent = %d, want default 120", cfg.Chain.GasMarginPercent)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("postgres port = %d, want default 5432", cfg.Postgres.Port)
	}
	if cfg.Mode != "serve" {
		t.Errorf("mode = %q, want default serve", cfg.Mode)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[wallet]
private_key = "from-file"
`)

	t.Setenv("MARKETD_WALLET_PRIVATE_KEY", "from-env")
	t.Setenv("MARKETD_CHAIN_GAS_MARGIN_PERCENT", "150")
	t.Setenv("MARKETD_MODE", "reconcile")
	t.Setenv("MARKETD_SERVER_API_KEY", "env-api-key")
	t.Setenv("MARKETD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Wallet.PrivateKey != "from-env" {
		t.Errorf("private key = %q, want env override", cfg.Wallet.PrivateKey)
	}
	if cfg.Chain.GasMarginPercent != 150 {
		t.Errorf("gas margin = %d, want 150", cfg.Chain.GasMarginPercent)
	}
	if cfg.Mode != "reconcile" {
		t.Errorf("mode = %q, want reconcile", cfg.Mode)
	}
	if cfg.Server.APIKey != "env-api-key" {
		t.Errorf("api key = %q, want env override", cfg.Server.APIKey)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Chain.RPCURL = ""
	cfg.Chain.GasMarginPercent = 50
	// No wallet credentials at all.

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate: want error, got nil")
	}
	for _, frag := range []string{"unknown mode", "rpc_url", "gas_margin_percent", "wallet"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error missing %q: %v", frag, err)
		}
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "abc"
	cfg.Chain.NFTAddress = "0x01"
	cfg.Chain.MarketplaceAddress = "0x02"
	cfg.Chain.AuctionHouseAddress = "0x03"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "secret"
	cfg.Postgres.Password = "secret"
	cfg.S3.SecretKey = "secret"
	cfg.Server.APIKey = "secret"

	red := RedactedConfig(&cfg)

	if red.Wallet.PrivateKey != "***" || red.Postgres.Password != "***" || red.S3.SecretKey != "***" || red.Server.APIKey != "***" {
		t.Errorf("secrets not redacted: %+v", red)
	}
	if cfg.Wallet.PrivateKey != "secret" {
		t.Error("original mutated by redaction")
	}
}
