package starknet

import (
	"math/big"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fr"
)

var (
	curveOrder = fr.Modulus()

	genJac, genAff = starkcurve.Generators()

	// curve: y^2 = x^3 + alpha*x + beta, alpha = 1
	curveBeta = toElement(MustParseFelt("0x06f21413efbe40de150e596d72f7a8c5609ad26c15c915c1f4cdfcb99cee9e89"))
)

// CurveOrder returns a copy of the order of the Stark curve generator.
func CurveOrder() *big.Int {
	return new(big.Int).Set(curveOrder)
}

// ValidPrivateKey reports whether k lies in [1, order).
func ValidPrivateKey(k *big.Int) bool {
	return k != nil && k.Sign() > 0 && k.Cmp(curveOrder) < 0
}

// StarkKey returns the x-coordinate of k·G, the Starknet public key.
func StarkKey(k *big.Int) *big.Int {
	var p starkcurve.G1Affine
	p.ScalarMultiplication(&genAff, k)
	return fromElement(&p.X)
}

// pointFromX lifts a public key back onto the curve. Either of the two
// points sharing x is returned; ECDSA verification accepts both.
func pointFromX(x *big.Int) (starkcurve.G1Affine, bool) {
	var p starkcurve.G1Affine
	if x.Cmp(fieldPrime) >= 0 {
		return p, false
	}

	var xe, rhs fp.Element
	xe.SetBigInt(x)
	rhs.Square(&xe).Mul(&rhs, &xe).Add(&rhs, &xe).Add(&rhs, curveBeta)

	var y fp.Element
	if y.Sqrt(&rhs) == nil {
		return p, false
	}

	p.X, p.Y = xe, y
	return p, true
}
