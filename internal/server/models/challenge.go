package models

import "time"

// Challenge is a live OTP challenge bound to an email and a subject.
type Challenge struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Subject      string    `json:"subject"`
	Code         string    `json:"code"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	AttemptsUsed int       `json:"attempts_used"`
	AttemptsMax  int       `json:"attempts_max"`
}

// Expired reports whether the challenge is past its expiry at now.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Remaining returns how many verification attempts are left.
func (c *Challenge) Remaining() int {
	if r := c.AttemptsMax - c.AttemptsUsed; r > 0 {
		return r
	}
	return 0
}

// ChallengeStatus is the operator view of a challenge. It never carries
// the code or the subject.
type ChallengeStatus struct {
	Email             string
	ExpiresAt         time.Time
	AttemptsRemaining int
}
