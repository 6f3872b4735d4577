package starknet

import (
	"crypto/sha256"
	"math/big"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Hades permutation over a width 3 state: 4 full rounds, 83 partial rounds
// applying the S-box to the last cell only, then 4 full rounds.
const (
	hadesHalfFullRounds = 4
	hadesPartialRounds  = 83
	hadesRounds         = 2*hadesHalfFullRounds + hadesPartialRounds
)

// round constant i is sha256("Hades" || decimal(i)) reduced mod p
var hadesConstants = func() [hadesRounds][3]fp.Element {
	var rc [hadesRounds][3]fp.Element
	for r := range rc {
		for j := range rc[r] {
			sum := sha256.Sum256([]byte("Hades" + strconv.Itoa(3*r+j)))
			rc[r][j].SetBigInt(new(big.Int).SetBytes(sum[:]))
		}
	}
	return rc
}()

func cube(x *fp.Element) {
	var sq fp.Element
	sq.Square(x)
	x.Mul(x, &sq)
}

func hadesPermutation(s *[3]fp.Element) {
	var t, d fp.Element

	for r := 0; r < hadesRounds; r++ {
		s[0].Add(&s[0], &hadesConstants[r][0])
		s[1].Add(&s[1], &hadesConstants[r][1])
		s[2].Add(&s[2], &hadesConstants[r][2])

		if r < hadesHalfFullRounds || r >= hadesHalfFullRounds+hadesPartialRounds {
			cube(&s[0])
			cube(&s[1])
		}
		cube(&s[2])

		// MDS: [3a+b+c, a-b+c, a+b-2c]
		t.Add(&s[0], &s[1])
		t.Add(&t, &s[2])
		d.Double(&s[0])
		s[0].Add(&t, &d)
		d.Double(&s[1])
		s[1].Sub(&t, &d)
		d.Double(&s[2])
		d.Add(&d, &s[2])
		s[2].Sub(&t, &d)
	}
}

// Poseidon hashes two field elements.
func Poseidon(a, b *big.Int) *big.Int {
	var s [3]fp.Element
	s[0].SetBigInt(a)
	s[1].SetBigInt(b)
	s[2].SetUint64(2)
	hadesPermutation(&s)
	return fromElement(&s[0])
}

// PoseidonArray is the Starknet sponge over any number of elements: the
// input is padded with 1 and then zeros to an even length and absorbed two
// elements at a time.
func PoseidonArray(elems ...*big.Int) *big.Int {
	in := make([]fp.Element, len(elems), len(elems)+2)
	for i, e := range elems {
		in[i].SetBigInt(e)
	}
	in = append(in, fp.One())
	if len(in)%2 == 1 {
		in = append(in, fp.Element{})
	}

	var s [3]fp.Element
	for i := 0; i < len(in); i += 2 {
		s[0].Add(&s[0], &in[i])
		s[1].Add(&s[1], &in[i+1])
		hadesPermutation(&s)
	}
	return fromElement(&s[0])
}
