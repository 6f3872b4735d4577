package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/cryptox"
	"github.com/okhaimie-dev/PallyApp/internal/dbx"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/metrics"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/repomanager"
)

// CredentialStore persists wallets with the private key sealed under the
// storage key. Public columns are readable without touching the cipher.
type CredentialStore struct {
	db          *sql.DB
	tx          dbx.Runner
	repomanager repomanager.RepositoryManager
	sealer      *cryptox.Sealer
	logger      logging.Logger
	now         func() time.Time
}

func NewCredentialStore(db *sql.DB, rm repomanager.RepositoryManager, sealer *cryptox.Sealer, logger logging.Logger) *CredentialStore {
	return &CredentialStore{
		db:          db,
		tx:          dbx.NewRunner(db, nil),
		repomanager: rm,
		sealer:      sealer,
		logger:      logger.With("module", "credentials"),
		now:         time.Now,
	}
}

// Save writes the credential, replacing any existing record for email.
func (s *CredentialStore) Save(ctx context.Context, email, privateKey, publicKey, accountAddress string) error {
	c, err := s.seal(email, privateKey, publicKey, accountAddress)
	if err != nil {
		return err
	}

	if err := s.repomanager.Credentials(s.db).Upsert(ctx, c); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// SaveNew writes the credential only if none exists for email and reports
// whether it did. An existing record is left untouched.
func (s *CredentialStore) SaveNew(ctx context.Context, email, privateKey, publicKey, accountAddress string) (bool, error) {
	c, err := s.seal(email, privateKey, publicKey, accountAddress)
	if err != nil {
		return false, err
	}

	created, err := s.repomanager.Credentials(s.db).Insert(ctx, c)
	if err != nil {
		return false, fmt.Errorf("insert credential: %w", err)
	}
	return created, nil
}

// CreateOrLoad inserts the credential unless one exists for email, then
// returns the stored record with its private key. created reports whether
// this call wrote it. The insert and the read share one transaction.
func (s *CredentialStore) CreateOrLoad(ctx context.Context, email, privateKey, publicKey, accountAddress string) (*models.Credential, string, bool, error) {
	c, err := s.seal(email, privateKey, publicKey, accountAddress)
	if err != nil {
		return nil, "", false, err
	}

	var (
		stored  *models.Credential
		created bool
	)
	err = s.tx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Credentials(tx)

		var err error
		if created, err = repo.Insert(ctx, c); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}
		if created {
			stored = c
			return nil
		}

		stored, err = repo.GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		return nil, "", false, err
	}

	if created {
		return stored, privateKey, true, nil
	}

	pk, err := s.open(ctx, stored)
	if err != nil {
		return nil, "", false, err
	}
	return stored, pk, false, nil
}

// LoadWithSecret returns the record and its decrypted private key.
func (s *CredentialStore) LoadWithSecret(ctx context.Context, email string) (*models.Credential, string, error) {
	c, err := s.repomanager.Credentials(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}

	pk, err := s.open(ctx, c)
	if err != nil {
		return nil, "", err
	}
	return c, pk, nil
}

// LoadPublic returns the record without its encrypted column.
func (s *CredentialStore) LoadPublic(ctx context.Context, email string) (*models.Credential, error) {
	return s.repomanager.Credentials(s.db).GetPublic(ctx, email)
}

func (s *CredentialStore) Exists(ctx context.Context, email string) (bool, error) {
	return s.repomanager.Credentials(s.db).Exists(ctx, email)
}

func (s *CredentialStore) List(ctx context.Context, limit int) ([]models.Credential, error) {
	return s.repomanager.Credentials(s.db).List(ctx, limit)
}

func (s *CredentialStore) Count(ctx context.Context) (int64, error) {
	return s.repomanager.Credentials(s.db).Count(ctx)
}

func (s *CredentialStore) seal(email, privateKey, publicKey, accountAddress string) (*models.Credential, error) {
	if email == "" || privateKey == "" {
		return nil, errors.New("email and private key are required")
	}

	blob, err := s.sealer.Seal([]byte(privateKey))
	if err != nil {
		return nil, fmt.Errorf("seal private key: %w", err)
	}

	now := s.now().UTC()
	return &models.Credential{
		Email:               email,
		EncryptedPrivateKey: blob,
		PublicKey:           publicKey,
		AccountAddress:      accountAddress,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (s *CredentialStore) open(ctx context.Context, c *models.Credential) (string, error) {
	pk, err := s.sealer.Open(c.EncryptedPrivateKey)
	if err != nil {
		metrics.DecryptionFailures.Inc()
		s.logger.Error(ctx, "stored private key cannot be decrypted",
			"email", c.Email, "security", true, "error", err)
		return "", err
	}
	defer common.WipeByteArray(pk)

	return string(pk), nil
}
