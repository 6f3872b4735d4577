// Package cryptox holds the symmetric primitives used for credential
// storage: the AES-256-GCM blob sealer and the argon2id key stretcher.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// BlobVersion prefixes every blob written by Seal.
	BlobVersion = "v1"

	nonceSize       = 12
	legacyNonceSize = 16
	tagSize         = 16
)

// Argon2id parameters used for wallet key stretching.
const (
	ArgonTime    uint32 = 4
	ArgonMemory  uint32 = 64 * 1024 // KiB
	ArgonThreads uint8  = 1
	ArgonKeyLen  uint32 = 32
)

// ErrMalformedBlob is returned by Open when the blob does not match any known layout.
var ErrMalformedBlob = errors.New("malformed encrypted blob")

// KeyFromSecret turns an operator-supplied secret of arbitrary length into
// a 32-byte AES-256 key.
func KeyFromSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Stretch runs argon2id over material with the wallet parameters.
func Stretch(material, salt []byte) []byte {
	return argon2.IDKey(material, salt, ArgonTime, ArgonMemory, ArgonThreads, ArgonKeyLen)
}

// Sealer encrypts and decrypts short secrets into self-describing text blobs.
//
// Written blobs have the form
//
//	v1:<hex nonce>:<hex tag>:<hex ciphertext>
//
// with a 12-byte nonce. Unversioned three-part blobs with a 16-byte IV are
// still accepted by Open.
type Sealer struct {
	aead   cipher.AEAD
	legacy cipher.AEAD
}

// NewSealer builds a Sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("sealer key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	legacy, err := cipher.NewGCMWithNonceSize(block, legacyNonceSize)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aead, legacy: legacy}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	nonce := common.GenerateRandByteArray(nonceSize)

	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		BlobVersion,
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ct),
	}, ":"), nil
}

// Open decrypts a blob produced by Seal or by the legacy writer.
// Any authentication failure is reported as common.ErrDecryptionFailed and
// no plaintext is returned.
func (s *Sealer) Open(blob string) ([]byte, error) {
	parts := strings.Split(blob, ":")

	var (
		aead      cipher.AEAD
		nonceHex  string
		tagHex    string
		ctHex     string
		wantNonce int
	)

	switch {
	case len(parts) == 4 && parts[0] == BlobVersion:
		aead, wantNonce = s.aead, nonceSize
		nonceHex, tagHex, ctHex = parts[1], parts[2], parts[3]
	case len(parts) == 3:
		aead, wantNonce = s.legacy, legacyNonceSize
		nonceHex, tagHex, ctHex = parts[0], parts[1], parts[2]
	default:
		return nil, fmt.Errorf("%w: %w", common.ErrDecryptionFailed, ErrMalformedBlob)
	}

	nonce, err1 := hex.DecodeString(nonceHex)
	tag, err2 := hex.DecodeString(tagHex)
	ct, err3 := hex.DecodeString(ctHex)
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDecryptionFailed, ErrMalformedBlob)
	}
	if len(nonce) != wantNonce || len(tag) != tagSize {
		return nil, fmt.Errorf("%w: %w", common.ErrDecryptionFailed, ErrMalformedBlob)
	}

	plaintext, err := aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDecryptionFailed, err)
	}

	return plaintext, nil
}
