package models

import "time"

// Credential is a stored wallet. EncryptedPrivateKey holds a sealed blob,
// never the plaintext key.
type Credential struct {
	Email               string
	EncryptedPrivateKey string
	PublicKey           string
	AccountAddress      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
