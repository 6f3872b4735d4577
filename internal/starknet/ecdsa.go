package starknet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	starkcurve "github.com/consensys/gnark-crypto/ecc/stark-curve"
)

// ErrInvalidMessage is returned by Sign for hashes outside [0, 2^251).
var ErrInvalidMessage = errors.New("message hash out of range")

// Signature is a Stark ECDSA signature.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Sign produces a signature over msgHash with the private key k using a
// random nonce.
func Sign(k, msgHash *big.Int) (*Signature, error) {
	if !ValidPrivateKey(k) {
		return nil, fmt.Errorf("sign: private key out of range")
	}
	if msgHash.Sign() < 0 || msgHash.Cmp(felt251) >= 0 {
		return nil, ErrInvalidMessage
	}

	bound := new(big.Int).Sub(curveOrder, big.NewInt(1))
	for {
		nonce, err := rand.Int(rand.Reader, bound)
		if err != nil {
			return nil, err
		}
		nonce.Add(nonce, big.NewInt(1))

		var rp starkcurve.G1Affine
		rp.ScalarMultiplication(&genAff, nonce)
		r := fromElement(&rp.X)
		if r.Sign() == 0 || r.Cmp(felt251) >= 0 {
			continue
		}

		// s = (z + r*k) / nonce mod n
		s := new(big.Int).Mul(r, k)
		s.Add(s, msgHash)
		s.Mul(s, new(big.Int).ModInverse(nonce, curveOrder))
		s.Mod(s, curveOrder)
		if s.Sign() == 0 {
			continue
		}

		w := new(big.Int).ModInverse(s, curveOrder)
		if w == nil || w.Cmp(felt251) >= 0 {
			continue
		}

		return &Signature{R: r, S: s}, nil
	}
}

// Verify checks sig against msgHash and the public key (an x-coordinate).
func Verify(publicKey, msgHash *big.Int, sig *Signature) bool {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false
	}
	if msgHash.Sign() < 0 || msgHash.Cmp(felt251) >= 0 {
		return false
	}
	if sig.R.Sign() <= 0 || sig.R.Cmp(felt251) >= 0 {
		return false
	}
	if sig.S.Sign() <= 0 || sig.S.Cmp(curveOrder) >= 0 {
		return false
	}

	w := new(big.Int).ModInverse(sig.S, curveOrder)
	if w == nil || w.Cmp(felt251) >= 0 {
		return false
	}

	q, ok := pointFromX(publicKey)
	if !ok {
		return false
	}

	u1 := new(big.Int).Mul(msgHash, w)
	u1.Mod(u1, curveOrder)
	u2 := new(big.Int).Mul(sig.R, w)
	u2.Mod(u2, curveOrder)

	var a, b, qJac starkcurve.G1Jac
	a.ScalarMultiplication(&genJac, u1)
	qJac.FromAffine(&q)
	b.ScalarMultiplication(&qJac, u2)

	var sum, diff starkcurve.G1Jac
	sum.Set(&a).AddAssign(&b)
	diff.Set(&a).SubAssign(&b)

	for _, j := range []*starkcurve.G1Jac{&sum, &diff} {
		var p starkcurve.G1Affine
		p.FromJacobian(j)
		if fromElement(&p.X).Cmp(sig.R) == 0 {
			return true
		}
	}
	return false
}
