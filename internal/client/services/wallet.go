package services

import (
	"context"
	"fmt"

	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/client/client"
)

// WalletService wraps the wallet and deployment calls for a signed-in user.
// Status and Requirements accept an empty address and then resolve the
// user's own account.
type WalletService interface {
	Open(ctx context.Context, sess *Session) (*walletv1.GetOrCreateWalletResponse, error)
	Info(ctx context.Context, email string) (*walletv1.WalletInfo, error)
	Status(ctx context.Context, email, address string) (*walletv1.CheckDeploymentStatusResponse, error)
	Requirements(ctx context.Context, email, address string) (*walletv1.CheckDeploymentRequirementsResponse, error)
	Cost(ctx context.Context) (*walletv1.GetDeploymentCostResponse, error)
	Deploy(ctx context.Context, email string) (*walletv1.DeployAccountResponse, error)
	Stats(ctx context.Context, limit int) (*walletv1.GetWalletStatsResponse, error)
	Integrity(ctx context.Context, email string) (*walletv1.VerifyWalletIntegrityResponse, error)
}

type walletService struct {
	client client.Client
}

func NewWalletService(client client.Client) WalletService {
	return &walletService{client: client}
}

// Open fetches the session owner's wallet, creating it on first use.
func (w *walletService) Open(ctx context.Context, sess *Session) (*walletv1.GetOrCreateWalletResponse, error) {
	if sess == nil {
		return nil, client.ErrUnauthorized
	}
	return w.client.GetOrCreateWallet(ctx, sess.Email, sess.Subject)
}

func (w *walletService) Info(ctx context.Context, email string) (*walletv1.WalletInfo, error) {
	return w.client.GetWalletInfo(ctx, email)
}

func (w *walletService) resolveAddress(ctx context.Context, email, address string) (string, error) {
	if address != "" {
		return address, nil
	}
	if email == "" {
		return "", fmt.Errorf("%w: address required", client.ErrLocalDataNotAvailable)
	}
	info, err := w.client.GetWalletInfo(ctx, email)
	if err != nil {
		return "", err
	}
	return info.AccountAddress, nil
}

func (w *walletService) Status(ctx context.Context, email, address string) (*walletv1.CheckDeploymentStatusResponse, error) {
	addr, err := w.resolveAddress(ctx, email, address)
	if err != nil {
		return nil, err
	}
	return w.client.CheckDeploymentStatus(ctx, addr)
}

func (w *walletService) Requirements(ctx context.Context, email, address string) (*walletv1.CheckDeploymentRequirementsResponse, error) {
	addr, err := w.resolveAddress(ctx, email, address)
	if err != nil {
		return nil, err
	}
	return w.client.CheckDeploymentRequirements(ctx, addr)
}

func (w *walletService) Cost(ctx context.Context) (*walletv1.GetDeploymentCostResponse, error) {
	return w.client.GetDeploymentCost(ctx)
}

func (w *walletService) Deploy(ctx context.Context, email string) (*walletv1.DeployAccountResponse, error) {
	return w.client.DeployAccount(ctx, email)
}

func (w *walletService) Stats(ctx context.Context, limit int) (*walletv1.GetWalletStatsResponse, error) {
	return w.client.GetWalletStats(ctx, limit)
}

func (w *walletService) Integrity(ctx context.Context, email string) (*walletv1.VerifyWalletIntegrityResponse, error) {
	return w.client.VerifyWalletIntegrity(ctx, email)
}
