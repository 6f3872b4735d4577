package walletv1

import (
	"testing"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIssueChallengeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     IssueChallengeRequest
		wantErr bool
		want    string
	}{
		{"ok", IssueChallengeRequest{Email: "alice@example.com", Subject: "sub-1"}, false, "alice@example.com"},
		{"normalizes", IssueChallengeRequest{Email: "  Alice@Example.COM ", Subject: "sub-1"}, false, "alice@example.com"},
		{"empty email", IssueChallengeRequest{Email: " ", Subject: "sub-1"}, true, ""},
		{"no at", IssueChallengeRequest{Email: "alice.example.com", Subject: "sub-1"}, true, ""},
		{"display name", IssueChallengeRequest{Email: "Alice <alice@example.com>", Subject: "sub-1"}, true, ""},
		{"empty subject", IssueChallengeRequest{Email: "alice@example.com", Subject: "  "}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrorValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Email)
		})
	}
}

func TestVerifyChallengeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"six digits", "123456", false},
		{"trimmed", " 123456 ", false},
		{"five digits", "12345", true},
		{"seven digits", "1234567", true},
		{"letters", "12a456", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := VerifyChallengeRequest{Email: "bob@example.com", Code: tt.code, Subject: "s"}
			err := req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrorValidation)
				return
			}
			require.NoError(t, err)
			assert.Len(t, req.Code, 6)
		})
	}
}

func TestAddressRequests_Validate(t *testing.T) {
	tests := []struct {
		name    string
		address string
		wantErr bool
	}{
		{"short", "0x1", false},
		{"full", "0x039d80f2ac249bcafe7f683feaf8323972fbbe85aee3bbcd0dd5887b3177f8d2", false},
		{"no prefix", "039d80f2", true},
		{"too long", "0x1039d80f2ac249bcafe7f683feaf8323972fbbe85aee3bbcd0dd5887b3177f8d2", true},
		{"not hex", "0xzz", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := CheckDeploymentStatusRequest{Address: tt.address}
			rq := CheckDeploymentRequirementsRequest{Address: tt.address}
			if tt.wantErr {
				assert.ErrorIs(t, st.Validate(), common.ErrorValidation)
				assert.ErrorIs(t, rq.Validate(), common.ErrorValidation)
				return
			}
			assert.NoError(t, st.Validate())
			assert.NoError(t, rq.Validate())
		})
	}
}

func TestGetWalletStatsRequest_Validate(t *testing.T) {
	assert.NoError(t, (&GetWalletStatsRequest{}).Validate())
	assert.NoError(t, (&GetWalletStatsRequest{Limit: MaxStatsLimit}).Validate())
	assert.ErrorIs(t, (&GetWalletStatsRequest{Limit: -1}).Validate(), common.ErrorValidation)
	assert.ErrorIs(t, (&GetWalletStatsRequest{Limit: MaxStatsLimit + 1}).Validate(), common.ErrorValidation)
}

func TestCodec(t *testing.T) {
	c := jsonCodec{}
	assert.Equal(t, "json", c.Name())

	b, err := c.Marshal(&VerifyChallengeResponse{OK: true, SessionToken: "tok"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"session_token":"tok"`)

	var out VerifyChallengeResponse
	require.NoError(t, c.Unmarshal(b, &out))
	assert.True(t, out.OK)

	var empty GetDeploymentCostRequest
	assert.NoError(t, c.Unmarshal(nil, &empty))
	assert.Error(t, c.Unmarshal([]byte("{"), &out))
}

func TestRemainingAttempts(t *testing.T) {
	st, err := status.New(codes.InvalidArgument, "invalid code").WithDetails(&errdetails.ErrorInfo{
		Reason:   ReasonInvalidCode,
		Domain:   ErrorDomain,
		Metadata: map[string]string{RemainingAttemptsKey: "2"},
	})
	require.NoError(t, err)

	n, ok := RemainingAttempts(st.Err())
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = RemainingAttempts(status.Error(codes.InvalidArgument, "bad"))
	assert.False(t, ok)

	_, ok = RemainingAttempts(assert.AnError)
	assert.False(t, ok)
}
