// Package starknet implements the Starknet primitives needed to provision
// and deploy an account: field element codec, Stark curve keys, Pedersen
// hashing, contract address and transaction hash computation, and ECDSA.
package starknet

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// FeltHexLen is the length of a rendered felt: "0x" plus 64 hex digits.
const FeltHexLen = 66

// ErrInvalidFelt is returned when a string is not a valid field element.
var ErrInvalidFelt = errors.New("invalid felt")

var (
	fieldPrime = fp.Modulus()

	// 2^251, the bound for ECDSA r, s^-1 and signed message hashes.
	felt251 = new(big.Int).Lsh(big.NewInt(1), 251)
)

// FieldPrime returns a copy of the Starknet field modulus.
func FieldPrime() *big.Int {
	return new(big.Int).Set(fieldPrime)
}

// FormatFelt renders v as 0x followed by 64 lowercase hex digits.
func FormatFelt(v *big.Int) string {
	return fmt.Sprintf("0x%064x", v)
}

// ParseFelt parses a 0x-prefixed (or bare) hex string into a field element.
func ParseFelt(s string) (*big.Int, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if h == "" || len(h) > 64 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFelt, s)
	}

	v, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFelt, s)
	}
	if v.Cmp(fieldPrime) >= 0 {
		return nil, fmt.Errorf("%w: %q exceeds field prime", ErrInvalidFelt, s)
	}

	return v, nil
}

// MustParseFelt is ParseFelt for compile-time constants. It panics on error.
func MustParseFelt(s string) *big.Int {
	v, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ShortString encodes an ASCII string of at most 31 chars as a felt.
func ShortString(s string) *big.Int {
	return new(big.Int).SetBytes([]byte(s))
}

func toElement(v *big.Int) *fp.Element {
	var e fp.Element
	e.SetBigInt(v)
	return &e
}

func fromElement(e *fp.Element) *big.Int {
	return e.BigInt(new(big.Int))
}
