// Package keyderivation turns a (subject, server secret) pair into a
// Starknet keypair and counterfactual account address.
//
// The derivation is a pure function of its inputs:
//
//	salt     = sha256(subject ":" secret)
//	material = subject ":" secret
//	key      = argon2id(material, salt, t=4, m=64MiB, p=1, 32 bytes)
//
// The key is read as a big-endian integer and normalized into [1, order)
// of the Stark curve. Changing any step yields different wallets for every
// existing user.
package keyderivation

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/cryptox"
	"github.com/okhaimie-dev/PallyApp/internal/starknet"
)

// DefaultAccountClassHash is the OpenZeppelin account class used for the
// counterfactual address.
const DefaultAccountClassHash = "0x540d7f5ec7ecf317e68d48564934cb99259781b1ee3cedbbc37ec5337f8e688"

// Keys is a derived keypair with its account address, all rendered as
// 0x-prefixed 64-digit hex.
type Keys struct {
	PrivateKey     string
	PublicKey      string
	AccountAddress string
}

// Engine derives keys for one account class.
type Engine struct {
	classHash *big.Int
}

// NewEngine builds an Engine; an empty classHash selects DefaultAccountClassHash.
func NewEngine(classHash string) (*Engine, error) {
	if classHash == "" {
		classHash = DefaultAccountClassHash
	}

	ch, err := starknet.ParseFelt(classHash)
	if err != nil {
		return nil, fmt.Errorf("account class hash: %w", err)
	}

	return &Engine{classHash: ch}, nil
}

// ClassHash returns the configured account class hash.
func (e *Engine) ClassHash() string {
	return starknet.FormatFelt(e.classHash)
}

// Derive computes the keypair and address for subject under serverSecret.
func (e *Engine) Derive(subject, serverSecret string) (*Keys, error) {
	if subject == "" || serverSecret == "" {
		return nil, fmt.Errorf("%w: empty derivation input", common.ErrDerivationFailed)
	}

	material := []byte(subject + ":" + serverSecret)
	defer common.WipeByteArray(material)

	salt := sha256.Sum256(material)
	stretched := cryptox.Stretch(material, salt[:])
	defer common.WipeByteArray(stretched)

	k := Reduce(stretched)
	if !starknet.ValidPrivateKey(k) {
		return nil, fmt.Errorf("%w: scalar out of range after reduction", common.ErrDerivationFailed)
	}

	return e.keysFor(k), nil
}

// KeysFor recomputes the public key and address for a stored private key.
func (e *Engine) KeysFor(privateKey string) (*Keys, error) {
	k, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return e.keysFor(k), nil
}

// Validate checks that privateKey is well formed, lies in [1, order) and
// yields a public key.
func (e *Engine) Validate(privateKey string) error {
	k, err := parsePrivateKey(privateKey)
	if err != nil {
		return err
	}
	if starknet.StarkKey(k).Sign() == 0 {
		return fmt.Errorf("%w: no public key", common.ErrInvalidPrivateKey)
	}
	return nil
}

func (e *Engine) keysFor(k *big.Int) *Keys {
	pub := starknet.StarkKey(k)
	addr := starknet.AccountAddress(pub, e.classHash)

	return &Keys{
		PrivateKey:     starknet.FormatFelt(k),
		PublicKey:      starknet.FormatFelt(pub),
		AccountAddress: starknet.FormatFelt(addr),
	}
}

// Reduce maps arbitrary bytes onto a valid Stark private key: the
// big-endian value modulo the curve order, with zero replaced by one.
func Reduce(b []byte) *big.Int {
	k := new(big.Int).SetBytes(b)
	order := starknet.CurveOrder()
	if k.Cmp(order) >= 0 {
		k.Mod(k, order)
	}
	if k.Sign() == 0 {
		k.SetInt64(1)
	}
	return k
}

func parsePrivateKey(s string) (*big.Int, error) {
	if len(s) != starknet.FeltHexLen || s[:2] != "0x" {
		return nil, fmt.Errorf("%w: expected 0x-prefixed 64 hex digits", common.ErrInvalidPrivateKey)
	}

	k, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		return nil, fmt.Errorf("%w: not hex", common.ErrInvalidPrivateKey)
	}
	if !starknet.ValidPrivateKey(k) {
		return nil, fmt.Errorf("%w: out of range", common.ErrInvalidPrivateKey)
	}

	return k, nil
}
