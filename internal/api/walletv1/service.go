package walletv1

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "pally.wallet.v1.WalletService"

// Full method names as seen by interceptors.
const (
	MethodIssueChallenge              = "/" + ServiceName + "/IssueChallenge"
	MethodVerifyChallenge             = "/" + ServiceName + "/VerifyChallenge"
	MethodGetOrCreateWallet           = "/" + ServiceName + "/GetOrCreateWallet"
	MethodGetWalletInfo               = "/" + ServiceName + "/GetWalletInfo"
	MethodCheckDeploymentStatus       = "/" + ServiceName + "/CheckDeploymentStatus"
	MethodCheckDeploymentRequirements = "/" + ServiceName + "/CheckDeploymentRequirements"
	MethodGetDeploymentCost           = "/" + ServiceName + "/GetDeploymentCost"
	MethodDeployAccount               = "/" + ServiceName + "/DeployAccount"
	MethodGetWalletStats              = "/" + ServiceName + "/GetWalletStats"
	MethodVerifyWalletIntegrity       = "/" + ServiceName + "/VerifyWalletIntegrity"
)

// WalletServiceServer is implemented by the gRPC transport.
type WalletServiceServer interface {
	IssueChallenge(context.Context, *IssueChallengeRequest) (*IssueChallengeResponse, error)
	VerifyChallenge(context.Context, *VerifyChallengeRequest) (*VerifyChallengeResponse, error)
	GetOrCreateWallet(context.Context, *GetOrCreateWalletRequest) (*GetOrCreateWalletResponse, error)
	GetWalletInfo(context.Context, *GetWalletInfoRequest) (*GetWalletInfoResponse, error)
	CheckDeploymentStatus(context.Context, *CheckDeploymentStatusRequest) (*CheckDeploymentStatusResponse, error)
	CheckDeploymentRequirements(context.Context, *CheckDeploymentRequirementsRequest) (*CheckDeploymentRequirementsResponse, error)
	GetDeploymentCost(context.Context, *GetDeploymentCostRequest) (*GetDeploymentCostResponse, error)
	DeployAccount(context.Context, *DeployAccountRequest) (*DeployAccountResponse, error)
	GetWalletStats(context.Context, *GetWalletStatsRequest) (*GetWalletStatsResponse, error)
	VerifyWalletIntegrity(context.Context, *VerifyWalletIntegrityRequest) (*VerifyWalletIntegrityResponse, error)
}

// ServiceDesc describes WalletService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*WalletServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IssueChallenge", Handler: unary(MethodIssueChallenge, WalletServiceServer.IssueChallenge)},
		{MethodName: "VerifyChallenge", Handler: unary(MethodVerifyChallenge, WalletServiceServer.VerifyChallenge)},
		{MethodName: "GetOrCreateWallet", Handler: unary(MethodGetOrCreateWallet, WalletServiceServer.GetOrCreateWallet)},
		{MethodName: "GetWalletInfo", Handler: unary(MethodGetWalletInfo, WalletServiceServer.GetWalletInfo)},
		{MethodName: "CheckDeploymentStatus", Handler: unary(MethodCheckDeploymentStatus, WalletServiceServer.CheckDeploymentStatus)},
		{MethodName: "CheckDeploymentRequirements", Handler: unary(MethodCheckDeploymentRequirements, WalletServiceServer.CheckDeploymentRequirements)},
		{MethodName: "GetDeploymentCost", Handler: unary(MethodGetDeploymentCost, WalletServiceServer.GetDeploymentCost)},
		{MethodName: "DeployAccount", Handler: unary(MethodDeployAccount, WalletServiceServer.DeployAccount)},
		{MethodName: "GetWalletStats", Handler: unary(MethodGetWalletStats, WalletServiceServer.GetWalletStats)},
		{MethodName: "VerifyWalletIntegrity", Handler: unary(MethodVerifyWalletIntegrity, WalletServiceServer.VerifyWalletIntegrity)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pally/wallet/v1",
}

// RegisterWalletServiceServer registers srv on s.
func RegisterWalletServiceServer(s grpc.ServiceRegistrar, srv WalletServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(WalletServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(WalletServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(WalletServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
