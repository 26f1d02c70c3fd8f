package chain

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// etherDecimals is the number of base-unit digits in one ether (wei).
const etherDecimals = 18

// DefaultGasMargin is the gas-limit padding applied when a caller does not
// configure one: submit with 120% of the estimate.
const DefaultGasMargin uint64 = 120

// weiPerEther is 10^18.
var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

// EtherToWei converts a decimal ETH string such as "1234.5678" into base
// units. Fractions beyond 18 digits are rejected rather than silently
// rounded.
func EtherToWei(dec string) (*big.Int, error) {
	s := strings.TrimSpace(dec)
	if s == "" {
		return nil, fmt.Errorf("chain: empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("chain: negative amount %q", dec)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("chain: amount %q exceeds wei precision", dec)
	}

	digits := whole + frac + strings.Repeat("0", etherDecimals-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("chain: invalid amount %q", dec)
	}
	return wei, nil
}

// WeiToEther converts base units into a decimal ETH string with trailing
// zeros trimmed, so EtherToWei(WeiToEther(x)) == x for any non-negative x.
func WeiToEther(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}

	quo, rem := new(big.Int).QuoRem(wei, weiPerEther, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}

	frac := fmt.Sprintf("%0*s", etherDecimals, rem.String())
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

// PercentToBasisPoints converts a percentage such as 2.5 into basis points
// (250), flooring fractional results.
func PercentToBasisPoints(percent float64) int64 {
	return int64(math.Floor(percent * 100))
}

// PadGas scales a gas estimate by marginPercent. Margins below 100 would
// shrink the estimate, so they are clamped to 100.
func PadGas(gas uint64, marginPercent uint64) uint64 {
	if marginPercent < 100 {
		marginPercent = 100
	}
	return gas * marginPercent / 100
}
