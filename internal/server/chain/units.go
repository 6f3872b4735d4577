package chain

import (
	"fmt"
	"math/big"
	"strings"
)

// TokenDecimals is the precision of STRK and ETH on Starknet.
const TokenDecimals = 18

// ParseAmount converts a decimal string such as "0.5" into base units.
func ParseAmount(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}

	v, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", decimals-len(frac)), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// FormatAmount renders base units as a decimal string without trailing zeros.
func FormatAmount(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}

	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, unit, new(big.Int))

	if frac.Sign() == 0 {
		return whole.String()
	}

	fs := frac.String()
	fs = strings.Repeat("0", decimals-len(fs)) + fs
	return whole.String() + "." + strings.TrimRight(fs, "0")
}
