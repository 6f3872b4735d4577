// Package services contains application services for the Pally CLI.
// This file defines the session service: the two-step OTP login, restoring
// a cached session on start, logout and the server liveness check.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okhaimie-dev/PallyApp/internal/client/client"
	"github.com/okhaimie-dev/PallyApp/internal/client/repositories/metadata"
	"github.com/okhaimie-dev/PallyApp/internal/dbx"
)

// Metadata keys holding the cached session.
const (
	keyEmail     = "email"
	keySubject   = "subject"
	keyToken     = "session_token"
	keyExpiresAt = "expires_at"
)

// Session is a verified login cached in the local database.
type Session struct {
	Email     string
	Subject   string
	Token     string
	ExpiresAt time.Time
}

// PendingLogin is an issued challenge waiting for its code. Code is only
// filled when the server runs with OTP echo enabled.
type PendingLogin struct {
	Email   string
	Subject string
	Code    string
}

// SessionService defines the login operations for the CLI.
//
// Contract:
//   - RequestCode: issue a challenge for email under a fresh login subject.
//   - CompleteLogin: verify the code, persist the session and start sending
//     its token.
//   - Restore: load a cached, unexpired session.
//   - Logout: forget the cached session.
//
// All methods must honor context cancellation/timeouts.
type SessionService interface {
	RequestCode(ctx context.Context, email string) (*PendingLogin, error)
	CompleteLogin(ctx context.Context, p *PendingLogin, code string) (*Session, error)
	Restore(ctx context.Context) (*Session, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type sessionService struct {
	client client.Client
	db     *sql.DB
	now    func() time.Time
}

// NewSessionService constructs a SessionService bound to the given API client and DB.
func NewSessionService(client client.Client, db *sql.DB) SessionService {
	return &sessionService{client: client, db: db, now: time.Now}
}

func (s *sessionService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

// RequestCode asks the server to send a code to email. Every login gets its
// own subject so a code cannot be redeemed by another login attempt.
func (s *sessionService) RequestCode(ctx context.Context, email string) (*PendingLogin, error) {
	p := &PendingLogin{Email: email, Subject: uuid.NewString()}

	resp, err := s.client.IssueChallenge(ctx, p.Email, p.Subject)
	if err != nil {
		return nil, fmt.Errorf("issue challenge error: %w", err)
	}
	p.Code = resp.Code

	return p, nil
}

// CompleteLogin verifies code against the pending challenge and saves the
// resulting session.
func (s *sessionService) CompleteLogin(ctx context.Context, p *PendingLogin, code string) (*Session, error) {
	resp, err := s.client.VerifyChallenge(ctx, p.Email, code, p.Subject)
	if err != nil {
		return nil, fmt.Errorf("verify error: %w", err)
	}
	if !resp.OK || resp.SessionToken == "" {
		return nil, client.ErrUnauthorized
	}

	sess := &Session{Email: p.Email, Subject: p.Subject, Token: resp.SessionToken, ExpiresAt: resp.ExpiresAt}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}

	s.client.SetSessionToken(sess.Token)
	return sess, nil
}

func (s *sessionService) saveSession(ctx context.Context, sess *Session) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, map[string][]byte{
			keyEmail:     []byte(sess.Email),
			keySubject:   []byte(sess.Subject),
			keyToken:     []byte(sess.Token),
			keyExpiresAt: []byte(sess.ExpiresAt.UTC().Format(time.RFC3339)),
		})
	})
}

// Restore returns the cached session. It returns client.ErrLocalDataNotAvailable
// when nothing is cached or the cached token has expired; an expired session
// is wiped.
func (s *sessionService) Restore(ctx context.Context) (*Session, error) {
	values, err := s.getMetadataRepo().List(ctx)
	if err != nil {
		return nil, err
	}

	email, token := string(values[keyEmail]), string(values[keyToken])
	if email == "" || token == "" {
		return nil, client.ErrLocalDataNotAvailable
	}

	expiresAt, err := time.Parse(time.RFC3339, string(values[keyExpiresAt]))
	if err != nil {
		return nil, fmt.Errorf("%w: bad session expiry", client.ErrLocalDataNotAvailable)
	}
	if !s.now().Before(expiresAt) {
		if err := s.Logout(ctx); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: session expired", client.ErrLocalDataNotAvailable)
	}

	sess := &Session{Email: email, Subject: string(values[keySubject]), Token: token, ExpiresAt: expiresAt}
	s.client.SetSessionToken(sess.Token)
	return sess, nil
}

// Logout wipes the cached session and stops sending its token.
func (s *sessionService) Logout(ctx context.Context) error {
	s.client.SetSessionToken("")
	return s.getMetadataRepo().Clear(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (s *sessionService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (s *sessionService) Close(ctx context.Context) error {
	return s.client.Close()
}
