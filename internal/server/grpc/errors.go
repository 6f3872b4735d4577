package grpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorMapping lists domain errors in match order. Messages are fixed so that
// nothing from storage or the chain leaks to callers.
var errorMapping = []struct {
	target error
	code   codes.Code
	msg    string
}{
	{common.ErrorValidation, codes.InvalidArgument, ""},
	{common.ErrChallengeActive, codes.AlreadyExists, "a challenge is already active for this email"},
	{common.ErrChallengeNotFound, codes.NotFound, "no active challenge"},
	{common.ErrChallengeExpired, codes.FailedPrecondition, "challenge expired"},
	{common.ErrAttemptsExhausted, codes.ResourceExhausted, "too many attempts"},
	{common.ErrInvalidCode, codes.InvalidArgument, "invalid code"},
	{common.ErrSubjectMismatch, codes.PermissionDenied, "challenge was issued for another identity"},
	{common.ErrInvalidToken, codes.Unauthenticated, "invalid session"},
	{common.ErrTokenExpired, codes.Unauthenticated, "session expired"},
	{common.ErrorUnauthorized, codes.PermissionDenied, "permission denied"},
	{common.ErrDecryptionFailed, codes.Internal, "internal error"},
	{common.ErrDerivationFailed, codes.Internal, "wallet could not be created"},
	{common.ErrCredentialCreationFailed, codes.Internal, "wallet could not be created"},
	{common.ErrorNotFound, codes.NotFound, "wallet not found"},
	{common.ErrAlreadyDeployed, codes.AlreadyExists, "account already deployed"},
	{common.ErrInsufficientFunds, codes.FailedPrecondition, "insufficient balance for deployment"},
	{common.ErrFeeTooHigh, codes.FailedPrecondition, "network fee above the deployment budget, retry later"},
	{common.ErrChainSubmission, codes.Unavailable, "chain unavailable, retry later"},
	{context.DeadlineExceeded, codes.DeadlineExceeded, "deadline exceeded"},
	{context.Canceled, codes.Canceled, "canceled"},
}

// toStatus converts a service error into a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var invalid *common.InvalidCodeError
	if errors.As(err, &invalid) {
		return invalidCodeStatus(invalid.Remaining)
	}

	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			msg := m.msg
			if msg == "" {
				msg = err.Error()
			}
			return status.Error(m.code, msg)
		}
	}

	return status.Error(codes.Internal, "internal error")
}

func invalidCodeStatus(remaining int) error {
	st := status.New(codes.InvalidArgument, "invalid code")
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   walletv1.ReasonInvalidCode,
		Domain:   walletv1.ErrorDomain,
		Metadata: map[string]string{walletv1.RemainingAttemptsKey: strconv.Itoa(remaining)},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// isServerFault reports whether err should be logged at error level.
func isServerFault(err error) bool {
	switch status.Code(toStatus(err)) {
	case codes.Internal, codes.Unavailable, codes.Unknown:
		return true
	}
	return false
}
