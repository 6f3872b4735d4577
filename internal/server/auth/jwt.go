// Package auth issues and checks the short-lived session tokens handed out
// after a successful OTP verification.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/okhaimie-dev/PallyApp/internal/common"
)

const issuer = "pally-wallet"

// Claims binds a session to the verified email and to a digest of the
// identity subject proven with the challenge. The subject itself is not
// embedded.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	SubjectHash string `json:"sub_hash"`
}

// SubjectDigest is the value stored in Claims.SubjectHash.
func SubjectDigest(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

// MatchesSubject reports whether subject is the one the session was issued for.
func (c *Claims) MatchesSubject(subject string) bool {
	return subtle.ConstantTimeCompare([]byte(c.SubjectHash), []byte(SubjectDigest(subject))) == 1
}

// GenerateToken signs an HS256 session token.
func GenerateToken(email, subject string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email:       email,
		SubjectHash: SubjectDigest(subject),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates the signature and expiry and returns the claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Email == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
