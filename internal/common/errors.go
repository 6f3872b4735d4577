// Package common defines shared constants and sentinel errors used across
// the server, the client and the core services. Callers should use errors.Is
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Challenge errors. All of them are recoverable by the caller.
	ErrChallengeActive    = errors.New("challenge already active")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeExpired   = errors.New("challenge expired")
	ErrAttemptsExhausted  = errors.New("challenge attempts exhausted")
	ErrInvalidCode        = errors.New("invalid code")
	ErrSubjectMismatch    = errors.New("subject mismatch")
	ErrChallengeMalformed = errors.New("malformed challenge record")

	// Derivation and credential errors.
	ErrDerivationFailed         = errors.New("key derivation failed")
	ErrInvalidPrivateKey        = errors.New("invalid private key")
	ErrDecryptionFailed         = errors.New("decryption failed")
	ErrCredentialCreationFailed = errors.New("credential creation failed")

	// Deployment errors.
	ErrAlreadyDeployed    = errors.New("account already deployed")
	ErrInsufficientFunds  = errors.New("insufficient funds for deployment")
	ErrFeeTooHigh         = errors.New("deployment fee exceeds budget")
	ErrChainSubmission    = errors.New("chain submission failed")
	ErrTransactionTimeout = errors.New("transaction not confirmed in time")
)

// InvalidCodeError reports a wrong OTP together with the attempts the caller
// has left. It matches ErrInvalidCode under errors.Is.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidCode, e.Remaining)
}

func (e *InvalidCodeError) Unwrap() error {
	return ErrInvalidCode
}
