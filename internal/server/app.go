// Package server assembles the wallet server: storage, the challenge
// backend, key derivation, the chain client, the gRPC API and the metrics
// endpoint. It also runs one-shot table backups.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/okhaimie-dev/PallyApp/internal/cryptox"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/backup"
	"github.com/okhaimie-dev/PallyApp/internal/server/chain"
	"github.com/okhaimie-dev/PallyApp/internal/server/config"
	"github.com/okhaimie-dev/PallyApp/internal/server/keyderivation"
	"github.com/okhaimie-dev/PallyApp/internal/server/metrics"
	"github.com/okhaimie-dev/PallyApp/internal/server/notify"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/challenges"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/repomanager"
	"github.com/okhaimie-dev/PallyApp/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/okhaimie-dev/PallyApp/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	challenges  challenges.Store
	sender      notify.Sender
	chain       *chain.Client
	credentials *services.CredentialStore
	otp         *services.ChallengeService
	wallets     *services.WalletService
	deployments *services.DeploymentService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	app := &App{config: c, logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	db, rm, err := repomanager.Open(ctx, c.DBDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	sealer, err := cryptox.NewSealer(cryptox.KeyFromSecret(c.WalletEncryptionKey))
	if err != nil {
		return nil, fmt.Errorf("sealer init error: %w", err)
	}

	engine, err := keyderivation.NewEngine(c.AccountClassHash)
	if err != nil {
		return nil, fmt.Errorf("key derivation init error: %w", err)
	}

	app.challenges, err = challenges.Open(ctx, c.ChallengeStore, c.RedisURL, c.BoltPath)
	if err != nil {
		return nil, fmt.Errorf("challenge store init error: %w", err)
	}

	app.sender, err = notify.New(c.OTPSender, c.NATSURL, c.NATSSubject, logger)
	if err != nil {
		return nil, fmt.Errorf("otp sender init error: %w", err)
	}

	app.chain, err = chain.Dial(ctx, c.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain client init error: %w", err)
	}

	minBalance, err := chain.ParseAmount(c.MinDeployBalance, chain.TokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("min deploy balance: %w", err)
	}
	maxFee, err := chain.ParseAmount(c.DeployMaxFee, chain.TokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("deploy max fee: %w", err)
	}

	app.credentials = services.NewCredentialStore(db, rm, sealer, logger)
	app.otp = services.NewChallengeService(app.challenges, app.sender, c.OTPTTL, c.OTPAttempts, logger)
	app.wallets = services.NewWalletService(app.credentials, engine, c.ServerSecret, c.DerivationWorkers, logger)
	app.deployments, err = services.NewDeploymentService(app.chain, app.wallets, services.DeploymentConfig{
		ClassHash:   c.AccountClassHash,
		FeeToken:    c.FeeTokenAddress,
		FeeUnit:     c.FeeUnit,
		MinBalance:  minBalance,
		MaxFee:      maxFee,
		WaitTimeout: c.DeployWaitTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("deployment service init error: %w", err)
	}

	ok = true
	return app, nil
}

// Close releases every backend opened by NewApp.
func (app *App) Close() {
	if app.chain != nil {
		app.chain.Close()
	}
	if closer, ok := app.sender.(interface{ Close() }); ok {
		closer.Close()
	}
	if app.challenges != nil {
		_ = app.challenges.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	serverMetrics := grpcprom.NewServerMetrics(grpcprom.WithServerHandlingTimeHistogram())
	if err := prometheus.DefaultRegisterer.Register(serverMetrics); err != nil {
		app.logger.Warn(ctx, "grpc metrics not registered", "error", err)
	}

	s, err := gs.NewGRPCServer(gs.Config{
		Address:     app.config.GRPCAddr,
		TokenSecret: app.config.TokenSecret,
		SessionTTL:  app.config.SessionTTL,
		AdminToken:  app.config.AdminToken,
		ExposeOTP:   app.config.ExposeOTP,
	}, app.logger, app.otp, app.wallets, app.deployments, serverMetrics)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if app.config.ExposeOTP {
		app.logger.Warn(ctx, "OTP codes are echoed to callers, do not use in production")
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.MetricsAddr == "" {
		return
	}
	if err := metrics.Serve(ctx, app.config.MetricsAddr, app.logger); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or a listener fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}

// Backup uploads one snapshot of the wallets table and returns its key.
func (app *App) Backup(ctx context.Context) (string, error) {
	svc := backup.NewService(backup.Config{
		Bucket:    app.config.S3Bucket,
		Region:    app.config.S3Region,
		Endpoint:  app.config.S3Endpoint,
		AccessKey: app.config.S3AccessKey,
		SecretKey: app.config.S3SecretKey,
	}, app.credentials, app.logger)

	key, err := svc.Run(ctx)
	if errors.Is(err, backup.ErrNotConfigured) {
		return "", fmt.Errorf("backup: set s3-bucket first: %w", err)
	}
	return key, err
}
