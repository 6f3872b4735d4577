package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/keyderivation"
	"github.com/okhaimie-dev/PallyApp/internal/server/metrics"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultDerivationWorkers = 2
	DefaultStatsLimit        = 10
)

// KeyDeriver is the part of keyderivation.Engine the wallet service uses.
type KeyDeriver interface {
	Derive(subject, serverSecret string) (*keyderivation.Keys, error)
	KeysFor(privateKey string) (*keyderivation.Keys, error)
	Validate(privateKey string) error
}

// WalletService returns the wallet for an email, deriving and storing it on
// first use.
type WalletService struct {
	store        *CredentialStore
	engine       KeyDeriver
	serverSecret string
	logger       logging.Logger

	flights singleflight.Group
	workers *semaphore.Weighted
}

func NewWalletService(store *CredentialStore, engine KeyDeriver, serverSecret string, workers int, logger logging.Logger) *WalletService {
	if workers <= 0 {
		workers = DefaultDerivationWorkers
	}
	return &WalletService{
		store:        store,
		engine:       engine,
		serverSecret: serverSecret,
		logger:       logger.With("module", "wallet"),
		workers:      semaphore.NewWeighted(int64(workers)),
	}
}

// GetOrCreate returns the stored wallet for email or creates one from
// subject. Concurrent calls for one email share a single creation, which
// runs to completion even if the caller goes away.
func (s *WalletService) GetOrCreate(ctx context.Context, email, subject string) (*models.Wallet, error) {
	w, err := s.load(ctx, email)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: %w", common.ErrCredentialCreationFailed, err)
	}

	ch := s.flights.DoChan(email, func() (any, error) {
		return s.create(context.WithoutCancel(ctx), email, subject)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		w := *res.Val.(*models.Wallet)
		return &w, nil
	}
}

// LoadSecret returns the stored wallet including its private key.
func (s *WalletService) LoadSecret(ctx context.Context, email string) (*models.Wallet, error) {
	return s.load(ctx, email)
}

func (s *WalletService) GetPublicInfo(ctx context.Context, email string) (*models.WalletInfo, error) {
	c, err := s.store.LoadPublic(ctx, email)
	if err != nil {
		return nil, err
	}
	return walletInfo(c), nil
}

func (s *WalletService) Exists(ctx context.Context, email string) (bool, error) {
	return s.store.Exists(ctx, email)
}

// Stats returns the wallet count and the n most recently created wallets.
func (s *WalletService) Stats(ctx context.Context, n int) (*models.WalletStats, error) {
	if n <= 0 {
		n = DefaultStatsLimit
	}

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.store.List(ctx, n)
	if err != nil {
		return nil, err
	}

	stats := &models.WalletStats{TotalWallets: total, Recent: make([]models.WalletInfo, 0, len(recent))}
	for i := range recent {
		stats.Recent = append(stats.Recent, *walletInfo(&recent[i]))
	}
	return stats, nil
}

// VerifyIntegrity decrypts the stored key for email and checks that the
// public columns still match it.
func (s *WalletService) VerifyIntegrity(ctx context.Context, email string) (*models.IntegrityReport, error) {
	report := &models.IntegrityReport{Email: email}

	c, pk, err := s.store.LoadWithSecret(ctx, email)
	switch {
	case errors.Is(err, common.ErrDecryptionFailed):
		report.Problems = append(report.Problems, "private key cannot be decrypted")
		return report, nil
	case err != nil:
		return nil, err
	}

	if err := s.engine.Validate(pk); err != nil {
		report.Problems = append(report.Problems, "private key is invalid")
		return report, nil
	}

	keys, err := s.engine.KeysFor(pk)
	if err != nil {
		return nil, err
	}

	if keys.PublicKey != c.PublicKey {
		report.Problems = append(report.Problems, "public key does not match private key")
	}
	if keys.AccountAddress != c.AccountAddress {
		report.Problems = append(report.Problems, "account address does not match private key")
	}

	report.Valid = len(report.Problems) == 0
	return report, nil
}

func (s *WalletService) create(ctx context.Context, email, subject string) (*models.Wallet, error) {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCredentialCreationFailed, err)
	}
	defer s.workers.Release(1)

	if w, err := s.load(ctx, email); err == nil {
		return w, nil
	}

	start := time.Now()
	keys, err := s.engine.Derive(subject, s.serverSecret)
	metrics.DerivationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Error(ctx, "key derivation failed", "email", email, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrCredentialCreationFailed, err)
	}

	if err := s.engine.Validate(keys.PrivateKey); err != nil {
		s.logger.Error(ctx, "derived key rejected", "email", email, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrCredentialCreationFailed, err)
	}

	c, pk, created, err := s.store.CreateOrLoad(ctx, email, keys.PrivateKey, keys.PublicKey, keys.AccountAddress)
	if err != nil {
		s.logger.Error(ctx, "saving credential failed", "email", email, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrCredentialCreationFailed, err)
	}

	if !created {
		s.logger.Info(ctx, "credential created concurrently, using stored record", "email", email)
		return &models.Wallet{
			Email:          c.Email,
			AccountAddress: c.AccountAddress,
			PublicKey:      c.PublicKey,
			PrivateKey:     pk,
		}, nil
	}

	metrics.WalletsCreated.Inc()
	s.logger.Info(ctx, "wallet created", "email", email, "account_address", keys.AccountAddress)

	return &models.Wallet{
		Email:          email,
		AccountAddress: keys.AccountAddress,
		PublicKey:      keys.PublicKey,
		PrivateKey:     keys.PrivateKey,
		IsNew:          true,
	}, nil
}

func (s *WalletService) load(ctx context.Context, email string) (*models.Wallet, error) {
	c, pk, err := s.store.LoadWithSecret(ctx, email)
	if err != nil {
		return nil, err
	}
	return &models.Wallet{
		Email:          c.Email,
		AccountAddress: c.AccountAddress,
		PublicKey:      c.PublicKey,
		PrivateKey:     pk,
	}, nil
}

func walletInfo(c *models.Credential) *models.WalletInfo {
	return &models.WalletInfo{
		Email:          c.Email,
		AccountAddress: c.AccountAddress,
		PublicKey:      c.PublicKey,
		CreatedAt:      c.CreatedAt,
	}
}
