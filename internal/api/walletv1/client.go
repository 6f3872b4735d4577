package walletv1

import (
	"context"
	"errors"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Error details attached to InvalidArgument replies for a wrong code.
const (
	ErrorDomain          = "wallet.pally.app"
	ReasonInvalidCode    = "INVALID_CODE"
	RemainingAttemptsKey = "remaining_attempts"
)

// Client is a typed WalletService client. Every call is sent with the JSON
// content-subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) IssueChallenge(ctx context.Context, in *IssueChallengeRequest, opts ...grpc.CallOption) (*IssueChallengeResponse, error) {
	return invoke[IssueChallengeResponse](ctx, c.cc, MethodIssueChallenge, in, opts)
}

func (c *Client) VerifyChallenge(ctx context.Context, in *VerifyChallengeRequest, opts ...grpc.CallOption) (*VerifyChallengeResponse, error) {
	return invoke[VerifyChallengeResponse](ctx, c.cc, MethodVerifyChallenge, in, opts)
}

func (c *Client) GetOrCreateWallet(ctx context.Context, in *GetOrCreateWalletRequest, opts ...grpc.CallOption) (*GetOrCreateWalletResponse, error) {
	return invoke[GetOrCreateWalletResponse](ctx, c.cc, MethodGetOrCreateWallet, in, opts)
}

func (c *Client) GetWalletInfo(ctx context.Context, in *GetWalletInfoRequest, opts ...grpc.CallOption) (*GetWalletInfoResponse, error) {
	return invoke[GetWalletInfoResponse](ctx, c.cc, MethodGetWalletInfo, in, opts)
}

func (c *Client) CheckDeploymentStatus(ctx context.Context, in *CheckDeploymentStatusRequest, opts ...grpc.CallOption) (*CheckDeploymentStatusResponse, error) {
	return invoke[CheckDeploymentStatusResponse](ctx, c.cc, MethodCheckDeploymentStatus, in, opts)
}

func (c *Client) CheckDeploymentRequirements(ctx context.Context, in *CheckDeploymentRequirementsRequest, opts ...grpc.CallOption) (*CheckDeploymentRequirementsResponse, error) {
	return invoke[CheckDeploymentRequirementsResponse](ctx, c.cc, MethodCheckDeploymentRequirements, in, opts)
}

func (c *Client) GetDeploymentCost(ctx context.Context, in *GetDeploymentCostRequest, opts ...grpc.CallOption) (*GetDeploymentCostResponse, error) {
	return invoke[GetDeploymentCostResponse](ctx, c.cc, MethodGetDeploymentCost, in, opts)
}

func (c *Client) DeployAccount(ctx context.Context, in *DeployAccountRequest, opts ...grpc.CallOption) (*DeployAccountResponse, error) {
	return invoke[DeployAccountResponse](ctx, c.cc, MethodDeployAccount, in, opts)
}

func (c *Client) GetWalletStats(ctx context.Context, in *GetWalletStatsRequest, opts ...grpc.CallOption) (*GetWalletStatsResponse, error) {
	return invoke[GetWalletStatsResponse](ctx, c.cc, MethodGetWalletStats, in, opts)
}

func (c *Client) VerifyWalletIntegrity(ctx context.Context, in *VerifyWalletIntegrityRequest, opts ...grpc.CallOption) (*VerifyWalletIntegrityResponse, error) {
	return invoke[VerifyWalletIntegrityResponse](ctx, c.cc, MethodVerifyWalletIntegrity, in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RemainingAttempts extracts the attempts left from a wrong-code error.
func RemainingAttempts(err error) (int, bool) {
	var se interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &se) {
		return 0, false
	}
	for _, d := range se.GRPCStatus().Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetReason() != ReasonInvalidCode {
			continue
		}
		n, err := strconv.Atoi(info.GetMetadata()[RemainingAttemptsKey])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
