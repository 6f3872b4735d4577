package models

import "time"

// Wallet is the get-or-create result handed back to an authenticated caller.
type Wallet struct {
	Email          string
	AccountAddress string
	PublicKey      string
	PrivateKey     string
	IsNew          bool
}

// WalletInfo carries public fields only.
type WalletInfo struct {
	Email          string
	AccountAddress string
	PublicKey      string
	CreatedAt      time.Time
}

// WalletStats is the operator summary of the credential table.
type WalletStats struct {
	TotalWallets int64
	Recent       []WalletInfo
}

// IntegrityReport is the outcome of re-deriving a stored credential.
type IntegrityReport struct {
	Email    string
	Valid    bool
	Problems []string
}
