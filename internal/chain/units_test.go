package chain

import (
	"math/big"
	"testing"
)

func TestEtherWeiRoundTrip(t *testing.T) {
	cases := []string{"0", "0.002", "1234.5678", "1", "0.000000000000000001", "999999999"}

	for _, dec := range cases {
		wei, err := EtherToWei(dec)
		if err != nil {
			t.Fatalf("EtherToWei(%q): %v", dec, err)
		}
		if got := WeiToEther(wei); got != dec {
			t.Errorf("round trip %q: got %q", dec, got)
		}
	}
}

func TestEtherToWeiValues(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000"},
		{"0.002", "2000000000000000"},
		{"0", "0"},
		{"2.5", "2500000000000000000"},
	}
	for _, tc := range cases {
		wei, err := EtherToWei(tc.in)
		if err != nil {
			t.Fatalf("EtherToWei(%q): %v", tc.in, err)
		}
		if wei.String() != tc.want {
			t.Errorf("EtherToWei(%q) = %s, want %s", tc.in, wei.String(), tc.want)
		}
	}
}

func TestEtherToWeiRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "-1", "1.2.3", "abc", "0.0000000000000000001"} {
		if _, err := EtherToWei(in); err == nil {
			t.Errorf("EtherToWei(%q): expected error", in)
		}
	}
}

func TestWeiToEtherTrimsZeros(t *testing.T) {
	wei, _ := new(big.Int).SetString("2500000000000000000", 10)
	if got := WeiToEther(wei); got != "2.5" {
		t.Fatalf("WeiToEther = %q, want 2.5", got)
	}
}

func TestPercentToBasisPoints(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{2.5, 250},
		{0, 0},
		{10, 1000},
		{2.519, 251},
	}
	for _, tc := range cases {
		if got := PercentToBasisPoints(tc.in); got != tc.want {
			t.Errorf("PercentToBasisPoints(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestPadGas(t *testing.T) {
	if got := PadGas(100_000, 120); got != 120_000 {
		t.Fatalf("PadGas(100000, 120) = %d, want 120000", got)
	}
	if got := PadGas(100_000, 80); got != 100_000 {
		t.Fatalf("margins below 100 must clamp, got %d", got)
	}
}
