// Package grpc exposes the wallet services over gRPC. Messages travel with
// the walletv1 JSON codec; the standard health service is registered next to
// WalletService.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/common"
	applog "github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Challenges is the OTP surface used by the transport.
type Challenges interface {
	Issue(ctx context.Context, email, subject string) (string, error)
	VerifyFor(ctx context.Context, email, code, subject string) error
}

// Wallets is the credential lifecycle surface used by the transport.
type Wallets interface {
	GetOrCreate(ctx context.Context, email, subject string) (*models.Wallet, error)
	GetPublicInfo(ctx context.Context, email string) (*models.WalletInfo, error)
	Stats(ctx context.Context, n int) (*models.WalletStats, error)
	VerifyIntegrity(ctx context.Context, email string) (*models.IntegrityReport, error)
}

// Deployments is the deployment advisory surface used by the transport.
type Deployments interface {
	CheckStatus(ctx context.Context, address string) *models.DeploymentStatus
	CheckRequirements(ctx context.Context, address string) *models.DeploymentRequirements
	EstimateCost() *models.DeploymentCost
	DeployForEmail(ctx context.Context, email string) (*models.DeploymentResult, error)
}

type Config struct {
	Address     string
	TokenSecret string
	SessionTTL  time.Duration
	// AdminToken enables the operator RPCs when non-empty.
	AdminToken string
	// ExposeOTP echoes issued codes back in IssueChallenge. Development only.
	ExposeOTP bool
}

type GRPCServer struct {
	address     string
	challenges  Challenges
	wallets     Wallets
	deployments Deployments
	logger      applog.Logger
	tokenSecret []byte
	sessionTTL  time.Duration
	adminToken  string
	exposeOTP   bool
	metrics     *grpcprom.ServerMetrics
	health      *health.Server
}

// NewGRPCServer wires the services behind the WalletService API. metrics may
// be nil.
func NewGRPCServer(cfg Config, l applog.Logger, ch Challenges, w Wallets, d Deployments, metrics *grpcprom.ServerMetrics) (*GRPCServer, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}

	return &GRPCServer{
		address:     cfg.Address,
		challenges:  ch,
		wallets:     w,
		deployments: d,
		logger:      l.With("module", "grpc_server"),
		tokenSecret: []byte(cfg.TokenSecret),
		sessionTTL:  cfg.SessionTTL,
		adminToken:  cfg.AdminToken,
		exposeOTP:   cfg.ExposeOTP,
		metrics:     metrics,
		health:      health.NewServer(),
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	var unary []grpc.UnaryServerInterceptor
	if s.metrics != nil {
		unary = append(unary, s.metrics.UnaryServerInterceptor())
	}
	unary = append(unary,
		requestIDInterceptor,
		logging.UnaryServerInterceptor(interceptorLogger(s.logger),
			logging.WithLogOnEvents(logging.FinishCall),
			logging.WithFieldsFromContext(requestIDFields),
		),
		recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(s.recoverPanic)),
		s.authInterceptor,
	)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unary...))

	walletv1.RegisterWalletServiceServer(srv, s)
	healthv1.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(walletv1.ServiceName, healthv1.HealthCheckResponse_SERVING)

	if s.metrics != nil {
		s.metrics.InitializeMetrics(srv)
	}

	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

func (s *GRPCServer) recoverPanic(ctx context.Context, p any) error {
	s.logger.Error(ctx, "panic in handler", "panic", p, "request_id", requestIDFrom(ctx))
	return toStatus(common.ErrorInternal)
}
