package grpc

import (
	"context"
	"crypto/subtle"
	"math/big"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/server/auth"
	"github.com/okhaimie-dev/PallyApp/internal/server/chain"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ walletv1.WalletServiceServer = (*GRPCServer)(nil)

func (s *GRPCServer) IssueChallenge(ctx context.Context, req *walletv1.IssueChallengeRequest) (*walletv1.IssueChallengeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	code, err := s.challenges.Issue(ctx, req.Email, req.Subject)
	if err != nil {
		return nil, s.fail(ctx, "issue challenge", err)
	}

	resp := &walletv1.IssueChallengeResponse{Issued: true}
	if s.exposeOTP {
		resp.Code = code
	}
	return resp, nil
}

func (s *GRPCServer) VerifyChallenge(ctx context.Context, req *walletv1.VerifyChallengeRequest) (*walletv1.VerifyChallengeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	if err := s.challenges.VerifyFor(ctx, req.Email, req.Code, req.Subject); err != nil {
		return nil, s.fail(ctx, "verify challenge", err)
	}

	expiresAt := time.Now().Add(s.sessionTTL)
	token, err := auth.GenerateToken(req.Email, req.Subject, s.tokenSecret, s.sessionTTL)
	if err != nil {
		return nil, s.fail(ctx, "issue session token", err)
	}

	s.logger.Info(ctx, "Challenge verified", "email", req.Email)
	return &walletv1.VerifyChallengeResponse{OK: true, SessionToken: token, ExpiresAt: expiresAt}, nil
}

func (s *GRPCServer) GetOrCreateWallet(ctx context.Context, req *walletv1.GetOrCreateWalletRequest) (*walletv1.GetOrCreateWalletResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	claims, err := s.authorize(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !claims.MatchesSubject(req.Subject) {
		return nil, status.Error(codes.PermissionDenied, "session was issued for another identity")
	}

	w, err := s.wallets.GetOrCreate(ctx, req.Email, req.Subject)
	if err != nil {
		return nil, s.fail(ctx, "get or create wallet", err)
	}

	return &walletv1.GetOrCreateWalletResponse{
		Email:          w.Email,
		AccountAddress: w.AccountAddress,
		PublicKey:      w.PublicKey,
		PrivateKey:     w.PrivateKey,
		IsNew:          w.IsNew,
	}, nil
}

func (s *GRPCServer) GetWalletInfo(ctx context.Context, req *walletv1.GetWalletInfoRequest) (*walletv1.GetWalletInfoResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}
	if _, err := s.authorize(ctx, req.Email); err != nil {
		return nil, err
	}

	info, err := s.wallets.GetPublicInfo(ctx, req.Email)
	if err != nil {
		return nil, s.fail(ctx, "get wallet info", err)
	}

	return &walletv1.GetWalletInfoResponse{Wallet: toWalletInfo(info)}, nil
}

func (s *GRPCServer) CheckDeploymentStatus(ctx context.Context, req *walletv1.CheckDeploymentStatusRequest) (*walletv1.CheckDeploymentStatusResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	st := s.deployments.CheckStatus(ctx, req.Address)
	return &walletv1.CheckDeploymentStatusResponse{AccountAddress: st.AccountAddress, IsDeployed: st.IsDeployed}, nil
}

func (s *GRPCServer) CheckDeploymentRequirements(ctx context.Context, req *walletv1.CheckDeploymentRequirementsRequest) (*walletv1.CheckDeploymentRequirementsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	r := s.deployments.CheckRequirements(ctx, req.Address)
	return &walletv1.CheckDeploymentRequirementsResponse{
		AccountAddress:  r.AccountAddress,
		Unit:            r.Unit,
		CurrentBalance:  amount(r.CurrentBalance),
		MinimumRequired: amount(r.MinimumRequired),
		CanDeploy:       r.CanDeploy,
	}, nil
}

func (s *GRPCServer) GetDeploymentCost(ctx context.Context, req *walletv1.GetDeploymentCostRequest) (*walletv1.GetDeploymentCostResponse, error) {
	c := s.deployments.EstimateCost()
	return &walletv1.GetDeploymentCostResponse{MaxFee: amount(c.MaxFee), Unit: c.Unit}, nil
}

func (s *GRPCServer) DeployAccount(ctx context.Context, req *walletv1.DeployAccountRequest) (*walletv1.DeployAccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}
	if _, err := s.authorize(ctx, req.Email); err != nil {
		return nil, err
	}

	res, err := s.deployments.DeployForEmail(ctx, req.Email)
	if err != nil {
		return nil, s.fail(ctx, "deploy account", err)
	}

	if !res.Success {
		s.logger.Warn(ctx, "Deployment not confirmed", "email", req.Email, "tx", res.TransactionHash, "error", res.Error)
	}

	return &walletv1.DeployAccountResponse{
		Success:         res.Success,
		TransactionHash: res.TransactionHash,
		AccountAddress:  res.AccountAddress,
		Error:           res.Error,
	}, nil
}

func (s *GRPCServer) GetWalletStats(ctx context.Context, req *walletv1.GetWalletStatsRequest) (*walletv1.GetWalletStatsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	stats, err := s.wallets.Stats(ctx, req.Limit)
	if err != nil {
		return nil, s.fail(ctx, "wallet stats", err)
	}

	resp := &walletv1.GetWalletStatsResponse{TotalWallets: stats.TotalWallets}
	for i := range stats.Recent {
		resp.Recent = append(resp.Recent, toWalletInfo(&stats.Recent[i]))
	}
	return resp, nil
}

func (s *GRPCServer) VerifyWalletIntegrity(ctx context.Context, req *walletv1.VerifyWalletIntegrityRequest) (*walletv1.VerifyWalletIntegrityResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, toStatus(err)
	}

	rep, err := s.wallets.VerifyIntegrity(ctx, req.Email)
	if err != nil {
		return nil, s.fail(ctx, "verify wallet integrity", err)
	}

	return &walletv1.VerifyWalletIntegrityResponse{Email: rep.Email, Valid: rep.Valid, Problems: rep.Problems}, nil
}

// authorize checks that the session in ctx was issued for email.
func (s *GRPCServer) authorize(ctx context.Context, email string) (*auth.Claims, error) {
	claims, ok := claimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}
	if subtle.ConstantTimeCompare([]byte(claims.Email), []byte(email)) != 1 {
		return nil, status.Error(codes.PermissionDenied, "session does not belong to this email")
	}
	return claims, nil
}

// fail logs err with full detail and returns the caller-safe status.
func (s *GRPCServer) fail(ctx context.Context, op string, err error) error {
	if isServerFault(err) {
		s.logger.Error(ctx, op+" failed", "error", err, "request_id", requestIDFrom(ctx))
	} else {
		s.logger.Debug(ctx, op+" rejected", "error", err, "request_id", requestIDFrom(ctx))
	}
	return toStatus(err)
}

func toWalletInfo(w *models.WalletInfo) walletv1.WalletInfo {
	return walletv1.WalletInfo{
		Email:          w.Email,
		AccountAddress: w.AccountAddress,
		PublicKey:      w.PublicKey,
		CreatedAt:      w.CreatedAt,
	}
}

// amount renders base units as whole tokens.
func amount(v *big.Int) string {
	return chain.FormatAmount(v, chain.TokenDecimals)
}
