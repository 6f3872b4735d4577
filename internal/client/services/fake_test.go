package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/client/client"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "pally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertMeta(t *testing.T, db *sql.DB, k string, v []byte) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO metadata(key,value) VALUES(?,?)`, k, v)
	require.NoError(t, err)
}

func getMeta(t *testing.T, db *sql.DB, k string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return v
}

func countMeta(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	return n
}

// ---- fake client ----

// fakeClient implements client.Client for the service tests.
type fakeClient struct {
	CloseErr error
	PingErr  error

	IssueCode string
	IssueErr  error

	VerifyResp *walletv1.VerifyChallengeResponse
	VerifyErr  error

	Info    *walletv1.WalletInfo
	InfoErr error

	CallErr error

	// for argument checks
	SessionToken  string
	LastIssue     [2]string
	LastVerify    [3]string
	LastWallet    [2]string
	LastAddress   string
	LastEmail     string
	LastLimit     int
	InfoCalls     int
	SetTokenCalls int
}

func (f *fakeClient) Close() error                   { return f.CloseErr }
func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) SetSessionToken(token string) {
	f.SetTokenCalls++
	f.SessionToken = token
}

func (f *fakeClient) SetAdminToken(token string) {}

func (f *fakeClient) IssueChallenge(ctx context.Context, email, subject string) (*walletv1.IssueChallengeResponse, error) {
	f.LastIssue = [2]string{email, subject}
	if f.IssueErr != nil {
		return nil, f.IssueErr
	}
	return &walletv1.IssueChallengeResponse{Issued: true, Code: f.IssueCode}, nil
}

func (f *fakeClient) VerifyChallenge(ctx context.Context, email, code, subject string) (*walletv1.VerifyChallengeResponse, error) {
	f.LastVerify = [3]string{email, code, subject}
	if f.VerifyErr != nil {
		return nil, f.VerifyErr
	}
	return f.VerifyResp, nil
}

func (f *fakeClient) GetOrCreateWallet(ctx context.Context, email, subject string) (*walletv1.GetOrCreateWalletResponse, error) {
	f.LastWallet = [2]string{email, subject}
	if f.CallErr != nil {
		return nil, f.CallErr
	}
	return &walletv1.GetOrCreateWalletResponse{Email: email, AccountAddress: "0xabc", IsNew: true}, nil
}

func (f *fakeClient) GetWalletInfo(ctx context.Context, email string) (*walletv1.WalletInfo, error) {
	f.InfoCalls++
	f.LastEmail = email
	return f.Info, f.InfoErr
}

func (f *fakeClient) CheckDeploymentStatus(ctx context.Context, address string) (*walletv1.CheckDeploymentStatusResponse, error) {
	f.LastAddress = address
	return &walletv1.CheckDeploymentStatusResponse{AccountAddress: address}, f.CallErr
}

func (f *fakeClient) CheckDeploymentRequirements(ctx context.Context, address string) (*walletv1.CheckDeploymentRequirementsResponse, error) {
	f.LastAddress = address
	return &walletv1.CheckDeploymentRequirementsResponse{AccountAddress: address}, f.CallErr
}

func (f *fakeClient) GetDeploymentCost(ctx context.Context) (*walletv1.GetDeploymentCostResponse, error) {
	return &walletv1.GetDeploymentCostResponse{MaxFee: "1", Unit: "STRK"}, f.CallErr
}

func (f *fakeClient) DeployAccount(ctx context.Context, email string) (*walletv1.DeployAccountResponse, error) {
	f.LastEmail = email
	return &walletv1.DeployAccountResponse{Success: true}, f.CallErr
}

func (f *fakeClient) GetWalletStats(ctx context.Context, limit int) (*walletv1.GetWalletStatsResponse, error) {
	f.LastLimit = limit
	return &walletv1.GetWalletStatsResponse{TotalWallets: 1}, f.CallErr
}

func (f *fakeClient) VerifyWalletIntegrity(ctx context.Context, email string) (*walletv1.VerifyWalletIntegrityResponse, error) {
	f.LastEmail = email
	return &walletv1.VerifyWalletIntegrityResponse{Email: email, Valid: true}, f.CallErr
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
