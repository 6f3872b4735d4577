package starknet

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
)

// Pedersen hashes two field elements.
func Pedersen(a, b *big.Int) *big.Int {
	h := pedersenhash.Pedersen(toElement(a), toElement(b))
	return fromElement(&h)
}

// PedersenArray is the Starknet "hash on elements": a left fold of Pedersen
// starting at zero, finished with the element count.
func PedersenArray(elems ...*big.Int) *big.Int {
	in := make([]*fp.Element, len(elems))
	for i, e := range elems {
		in[i] = toElement(e)
	}
	h := pedersenhash.PedersenArray(in...)
	return fromElement(&h)
}
