// Package services contains the server-side business logic: the OTP
// challenge state machine, the encrypted credential store, wallet
// get-or-create, and deployment advice.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/metrics"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/okhaimie-dev/PallyApp/internal/server/notify"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/challenges"
)

const (
	CodeDigits          = 6
	DefaultChallengeTTL = 10 * time.Minute
	DefaultMaxAttempts  = 3
)

// ChallengeService issues and verifies OTP challenges. It is the only
// component that binds an email to an identity subject.
type ChallengeService struct {
	store       challenges.Store
	sender      notify.Sender
	logger      logging.Logger
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewChallengeService wires a ChallengeService. Non-positive ttl or
// maxAttempts select the defaults.
func NewChallengeService(store challenges.Store, sender notify.Sender, ttl time.Duration, maxAttempts int, logger logging.Logger) *ChallengeService {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ChallengeService{
		store:       store,
		sender:      sender,
		logger:      logger.With("module", "challenge"),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Issue creates a challenge for email bound to subject and hands the code
// to the OTP sender. A delivery failure is logged and does not fail the call.
func (s *ChallengeService) Issue(ctx context.Context, email, subject string) (string, error) {
	now := s.now()

	if n, err := s.store.Purge(ctx, now); err != nil {
		s.logger.Warn(ctx, "purging expired challenges failed", "error", err)
	} else if n > 0 {
		s.logger.Debug(ctx, "purged expired challenges", "count", n)
	}

	code, err := common.RandomNumericCode(CodeDigits)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	c := &models.Challenge{
		ID:          uuid.NewString(),
		Email:       email,
		Subject:     subject,
		Code:        code,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
		AttemptsMax: s.maxAttempts,
	}

	if err := s.store.Create(ctx, c, now); err != nil {
		if errors.Is(err, common.ErrChallengeActive) {
			metrics.ChallengesIssued.WithLabelValues("active").Inc()
			return "", err
		}
		return "", fmt.Errorf("store challenge: %w", err)
	}
	metrics.ChallengesIssued.WithLabelValues("issued").Inc()

	s.logger.Info(ctx, "challenge issued", "challenge_id", c.ID, "email", email, "expires_at", c.ExpiresAt)

	if err := s.sender.SendOTP(ctx, email, code, c.ExpiresAt); err != nil {
		s.logger.Error(ctx, "otp delivery failed", "challenge_id", c.ID, "email", email, "error", err)
	}

	return code, nil
}

// Verify consumes the challenge for email if code matches and returns the
// bound subject.
func (s *ChallengeService) Verify(ctx context.Context, email, code string) (string, error) {
	return s.verify(ctx, email, code, nil)
}

// VerifyFor is Verify followed by a check that subject is the one bound at
// issue time. A mismatch still consumes the challenge.
func (s *ChallengeService) VerifyFor(ctx context.Context, email, code, subject string) error {
	_, err := s.verify(ctx, email, code, func(bound string) error {
		if subtle.ConstantTimeCompare([]byte(bound), []byte(subject)) != 1 {
			return common.ErrSubjectMismatch
		}
		return nil
	})
	return err
}

// Status reports the attempts left and the expiry of a live challenge.
func (s *ChallengeService) Status(ctx context.Context, email string) (*models.ChallengeStatus, error) {
	c, err := s.store.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if c.Expired(s.now()) {
		return nil, common.ErrChallengeExpired
	}
	return &models.ChallengeStatus{
		Email:             c.Email,
		ExpiresAt:         c.ExpiresAt,
		AttemptsRemaining: c.Remaining(),
	}, nil
}

func (s *ChallengeService) verify(ctx context.Context, email, code string, check func(bound string) error) (string, error) {
	now := s.now()
	var subject string

	err := s.store.Update(ctx, email, func(c *models.Challenge) (bool, error) {
		if c.Expired(now) {
			return false, common.ErrChallengeExpired
		}
		if c.AttemptsUsed >= c.AttemptsMax {
			return false, common.ErrAttemptsExhausted
		}

		c.AttemptsUsed++

		if subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) != 1 {
			if c.AttemptsUsed >= c.AttemptsMax {
				return false, common.ErrAttemptsExhausted
			}
			return true, &common.InvalidCodeError{Remaining: c.Remaining()}
		}

		if check != nil {
			if err := check(c.Subject); err != nil {
				return false, err
			}
		}

		subject = c.Subject
		return false, nil
	})

	metrics.ChallengeVerifications.WithLabelValues(verifyOutcome(err)).Inc()

	if err != nil {
		if errors.Is(err, common.ErrSubjectMismatch) {
			s.logger.Warn(ctx, "challenge subject mismatch", "email", email)
		}
		return "", err
	}

	s.logger.Info(ctx, "challenge verified", "email", email)
	return subject, nil
}

func verifyOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, common.ErrAttemptsExhausted):
		return "exhausted"
	case errors.Is(err, common.ErrChallengeExpired):
		return "expired"
	case errors.Is(err, common.ErrChallengeNotFound):
		return "not_found"
	case errors.Is(err, common.ErrSubjectMismatch):
		return "subject_mismatch"
	default:
		return "error"
	}
}
