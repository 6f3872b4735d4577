package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateRandByteArray returns size bytes read from crypto/rand.
// It panics if the system random source is unavailable.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failure: %v", err))
	}
	return b
}

// RandomNumericCode returns a decimal code of exactly digits characters,
// drawn uniformly from [10^(digits-1), 10^digits). The leading digit is
// therefore never zero.
func RandomNumericCode(digits int) (string, error) {
	if digits < 1 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}

	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}

	return n.Add(n, low).String(), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// This is useful for removing sensitive data such as passwords or cryptographic
// keys from memory after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
