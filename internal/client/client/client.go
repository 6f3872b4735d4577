package client

import (
	"context"

	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error

	SetSessionToken(token string)
	SetAdminToken(token string)

	IssueChallenge(ctx context.Context, email, subject string) (*walletv1.IssueChallengeResponse, error)
	VerifyChallenge(ctx context.Context, email, code, subject string) (*walletv1.VerifyChallengeResponse, error)

	GetOrCreateWallet(ctx context.Context, email, subject string) (*walletv1.GetOrCreateWalletResponse, error)
	GetWalletInfo(ctx context.Context, email string) (*walletv1.WalletInfo, error)

	CheckDeploymentStatus(ctx context.Context, address string) (*walletv1.CheckDeploymentStatusResponse, error)
	CheckDeploymentRequirements(ctx context.Context, address string) (*walletv1.CheckDeploymentRequirementsResponse, error)
	GetDeploymentCost(ctx context.Context) (*walletv1.GetDeploymentCostResponse, error)
	DeployAccount(ctx context.Context, email string) (*walletv1.DeployAccountResponse, error)

	GetWalletStats(ctx context.Context, limit int) (*walletv1.GetWalletStatsResponse, error)
	VerifyWalletIntegrity(ctx context.Context, email string) (*walletv1.VerifyWalletIntegrityResponse, error)
}
