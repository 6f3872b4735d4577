package grpc

import (
	"context"
	"crypto/subtle"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/common"
	applog "github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	claimsKey    ctxKey = "claims"
	requestIDKey ctxKey = "requestID"
)

// sessionMethods require a session token issued by VerifyChallenge.
var sessionMethods = map[string]bool{
	walletv1.MethodGetOrCreateWallet: true,
	walletv1.MethodGetWalletInfo:     true,
	walletv1.MethodDeployAccount:     true,
}

// adminMethods require the operator token.
var adminMethods = map[string]bool{
	walletv1.MethodGetWalletStats:        true,
	walletv1.MethodVerifyWalletIntegrity: true,
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) authInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	switch {
	case sessionMethods[info.FullMethod]:
		token := metadataValue(ctx, common.SessionTokenHeaderName)
		if len(token) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing session token")
		}

		claims, err := auth.ParseToken(token, s.tokenSecret)
		if err != nil {
			return nil, toStatus(err)
		}

		ctx = context.WithValue(ctx, claimsKey, claims)

	case adminMethods[info.FullMethod]:
		if s.adminToken == "" {
			return nil, status.Error(codes.PermissionDenied, "admin API disabled")
		}

		token := metadataValue(ctx, common.AdminTokenHeaderName)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid admin token")
		}
	}

	return handler(ctx, req)
}

func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// requestIDInterceptor propagates the caller's request id or assigns one and
// echoes it in the response header.
func requestIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	id := metadataValue(ctx, common.RequestIDHeaderName)
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}

	ctx = context.WithValue(ctx, requestIDKey, id)
	// no transport stream when invoked outside a server
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, id))

	return handler(ctx, req)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestIDFields(ctx context.Context) logging.Fields {
	if id := requestIDFrom(ctx); id != "" {
		return logging.Fields{"request_id", id}
	}
	return nil
}

// interceptorLogger adapts the application logger to the middleware logger.
func interceptorLogger(l applog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		switch lvl {
		case logging.LevelDebug:
			l.Debug(ctx, msg, fields...)
		case logging.LevelInfo:
			l.Info(ctx, msg, fields...)
		case logging.LevelWarn:
			l.Warn(ctx, msg, fields...)
		default:
			l.Error(ctx, msg, fields...)
		}
	})
}
