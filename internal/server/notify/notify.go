// Package notify hands freshly issued OTP codes to whatever delivers them
// to the user. Mail transport itself lives outside this service.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/logging"
)

// Sender names accepted by the otp-sender setting.
const (
	SenderLog  = "log"
	SenderNATS = "nats"
)

// Sender delivers an OTP code out of band.
type Sender interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
}

// OTPMessage is the payload handed to delivery workers.
type OTPMessage struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LogSender writes the code to the structured log. Development only.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "notify")}
}

func (s *LogSender) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.logger.Info(ctx, "otp issued", "email", email, "code", code, "expires_at", expiresAt.UTC().Format(time.RFC3339))
	return nil
}

// New builds the configured sender.
func New(kind, natsURL, natsSubject string, logger logging.Logger) (Sender, error) {
	switch kind {
	case SenderLog, "":
		return NewLogSender(logger), nil
	case SenderNATS:
		return NewNATSSender(natsURL, natsSubject, logger)
	default:
		return nil, fmt.Errorf("unsupported otp sender %q", kind)
	}
}
