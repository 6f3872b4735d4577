package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
)

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSSender publishes OTPMessage JSON on a subject consumed by the mail worker.
type NATSSender struct {
	conn    publisher
	subject string
}

var natsConnect = func(url string, opts ...nats.Option) (publisher, error) {
	return nats.Connect(url, opts...)
}

func NewNATSSender(url, subject string, logger logging.Logger) (*NATSSender, error) {
	if url == "" {
		return nil, errors.New("nats sender needs a url")
	}
	if subject == "" {
		return nil, errors.New("nats sender needs a subject")
	}

	log := logger.With("module", "notify")
	ctx := context.Background()

	conn, err := natsConnect(url,
		nats.Name("pally-wallet"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn(ctx, "nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(ctx, "nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSSender{conn: conn, subject: subject}, nil
}

func (s *NATSSender) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	data, err := json.Marshal(OTPMessage{Email: email, Code: code, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return err
	}

	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}

	return s.conn.FlushWithContext(ctx)
}

func (s *NATSSender) Close() {
	s.conn.Close()
}
