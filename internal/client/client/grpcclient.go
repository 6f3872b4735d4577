package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/timeout"
	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// walletAPI is the subset of *walletv1.Client used here.
type walletAPI interface {
	IssueChallenge(ctx context.Context, in *walletv1.IssueChallengeRequest, opts ...grpc.CallOption) (*walletv1.IssueChallengeResponse, error)
	VerifyChallenge(ctx context.Context, in *walletv1.VerifyChallengeRequest, opts ...grpc.CallOption) (*walletv1.VerifyChallengeResponse, error)
	GetOrCreateWallet(ctx context.Context, in *walletv1.GetOrCreateWalletRequest, opts ...grpc.CallOption) (*walletv1.GetOrCreateWalletResponse, error)
	GetWalletInfo(ctx context.Context, in *walletv1.GetWalletInfoRequest, opts ...grpc.CallOption) (*walletv1.GetWalletInfoResponse, error)
	CheckDeploymentStatus(ctx context.Context, in *walletv1.CheckDeploymentStatusRequest, opts ...grpc.CallOption) (*walletv1.CheckDeploymentStatusResponse, error)
	CheckDeploymentRequirements(ctx context.Context, in *walletv1.CheckDeploymentRequirementsRequest, opts ...grpc.CallOption) (*walletv1.CheckDeploymentRequirementsResponse, error)
	GetDeploymentCost(ctx context.Context, in *walletv1.GetDeploymentCostRequest, opts ...grpc.CallOption) (*walletv1.GetDeploymentCostResponse, error)
	DeployAccount(ctx context.Context, in *walletv1.DeployAccountRequest, opts ...grpc.CallOption) (*walletv1.DeployAccountResponse, error)
	GetWalletStats(ctx context.Context, in *walletv1.GetWalletStatsRequest, opts ...grpc.CallOption) (*walletv1.GetWalletStatsResponse, error)
	VerifyWalletIntegrity(ctx context.Context, in *walletv1.VerifyWalletIntegrityRequest, opts ...grpc.CallOption) (*walletv1.VerifyWalletIntegrityResponse, error)
}

// Options configures a GRPCClient.
type Options struct {
	RequestTimeout time.Duration
	DeployTimeout  time.Duration
	AdminToken     string
}

type GRPCClient struct {
	endpointURL    string
	requestTimeout time.Duration
	deployTimeout  time.Duration
	conn           *grpc.ClientConn
	client         walletAPI
	health         healthpb.HealthClient

	mu           sync.RWMutex
	sessionToken string
	adminToken   string
}

func NewWalletClient(endpointURL string, opts Options) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL:    endpointURL,
		requestTimeout: opts.RequestTimeout,
		deployTimeout:  opts.DeployTimeout,
		adminToken:     opts.AdminToken,
	}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {

	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(s.timeoutInterceptor, s.tokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = walletv1.NewClient(conn)
	s.health = healthpb.NewHealthClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// timeoutInterceptor bounds every call by the request timeout, except
// DeployAccount which waits for the chain and gets the deploy timeout.
func (s *GRPCClient) timeoutInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	d := s.requestTimeout
	if method == walletv1.MethodDeployAccount {
		d = s.deployTimeout
	}
	if d <= 0 {
		return invoker(ctx, method, req, reply, cc, opts...)
	}
	return timeout.UnaryClientInterceptor(d)(ctx, method, req, reply, cc, invoker, opts...)
}

func withToken(ctx context.Context, key, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(key)
	md.Set(key, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	s.mu.RLock()
	session, admin := s.sessionToken, s.adminToken
	s.mu.RUnlock()

	if session != "" {
		ctx = withToken(ctx, common.SessionTokenHeaderName, session)
	}
	if admin != "" {
		ctx = withToken(ctx, common.AdminTokenHeaderName, admin)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

// SetSessionToken replaces the token sent with session-bound calls. An empty
// token stops sending it.
func (s *GRPCClient) SetSessionToken(token string) {
	s.mu.Lock()
	s.sessionToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) SetAdminToken(token string) {
	s.mu.Lock()
	s.adminToken = token
	s.mu.Unlock()
}

// Ping asks the standard health service whether the wallet service is up.
func (s *GRPCClient) Ping(ctx context.Context) error {

	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: walletv1.ServiceName})
	if err != nil {
		return s.mapError(err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) IssueChallenge(ctx context.Context, email, subject string) (*walletv1.IssueChallengeResponse, error) {
	resp, err := s.client.IssueChallenge(ctx, &walletv1.IssueChallengeRequest{Email: email, Subject: subject})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) VerifyChallenge(ctx context.Context, email, code, subject string) (*walletv1.VerifyChallengeResponse, error) {
	resp, err := s.client.VerifyChallenge(ctx, &walletv1.VerifyChallengeRequest{Email: email, Code: code, Subject: subject})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetOrCreateWallet(ctx context.Context, email, subject string) (*walletv1.GetOrCreateWalletResponse, error) {
	resp, err := s.client.GetOrCreateWallet(ctx, &walletv1.GetOrCreateWalletRequest{Email: email, Subject: subject})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetWalletInfo(ctx context.Context, email string) (*walletv1.WalletInfo, error) {
	resp, err := s.client.GetWalletInfo(ctx, &walletv1.GetWalletInfoRequest{Email: email})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Wallet, nil
}

func (s *GRPCClient) CheckDeploymentStatus(ctx context.Context, address string) (*walletv1.CheckDeploymentStatusResponse, error) {
	resp, err := s.client.CheckDeploymentStatus(ctx, &walletv1.CheckDeploymentStatusRequest{Address: address})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) CheckDeploymentRequirements(ctx context.Context, address string) (*walletv1.CheckDeploymentRequirementsResponse, error) {
	resp, err := s.client.CheckDeploymentRequirements(ctx, &walletv1.CheckDeploymentRequirementsRequest{Address: address})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetDeploymentCost(ctx context.Context) (*walletv1.GetDeploymentCostResponse, error) {
	resp, err := s.client.GetDeploymentCost(ctx, &walletv1.GetDeploymentCostRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) DeployAccount(ctx context.Context, email string) (*walletv1.DeployAccountResponse, error) {
	resp, err := s.client.DeployAccount(ctx, &walletv1.DeployAccountRequest{Email: email})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetWalletStats(ctx context.Context, limit int) (*walletv1.GetWalletStatsResponse, error) {
	resp, err := s.client.GetWalletStats(ctx, &walletv1.GetWalletStatsRequest{Limit: limit})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) VerifyWalletIntegrity(ctx context.Context, email string) (*walletv1.VerifyWalletIntegrityResponse, error) {
	resp, err := s.client.VerifyWalletIntegrity(ctx, &walletv1.VerifyWalletIntegrityRequest{Email: email})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if n, ok := walletv1.RemainingAttempts(err); ok {
		return &common.InvalidCodeError{Remaining: n}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrUnavailable
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, st.Message())
	case codes.InvalidArgument, codes.AlreadyExists, codes.FailedPrecondition, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
