package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/okhaimie-dev/PallyApp/internal/api/walletv1"
	"github.com/okhaimie-dev/PallyApp/internal/client/services"
)

type fakeSessions struct {
	pending     *services.PendingLogin
	requestErr  error
	completeErr []error
	codes       []string
	restored    *services.Session
	restoreErr  error
	logoutErr   error
	logoutCalls int
	pingErr     error
}

func (f *fakeSessions) RequestCode(_ context.Context, email string) (*services.PendingLogin, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	if f.pending == nil {
		f.pending = &services.PendingLogin{Email: email, Subject: "sub"}
	}
	return f.pending, nil
}

func (f *fakeSessions) CompleteLogin(_ context.Context, p *services.PendingLogin, code string) (*services.Session, error) {
	f.codes = append(f.codes, code)
	if len(f.completeErr) > 0 {
		err := f.completeErr[0]
		f.completeErr = f.completeErr[1:]
		if err != nil {
			return nil, err
		}
	}
	return &services.Session{Email: p.Email, Subject: p.Subject, Token: "tok"}, nil
}

func (f *fakeSessions) Restore(context.Context) (*services.Session, error) {
	return f.restored, f.restoreErr
}

func (f *fakeSessions) Logout(context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeSessions) Ping(context.Context) error  { return f.pingErr }
func (f *fakeSessions) Close(context.Context) error { return nil }

type fakeWallets struct {
	wallet  *walletv1.GetOrCreateWalletResponse
	status  *walletv1.CheckDeploymentStatusResponse
	reqs    *walletv1.CheckDeploymentRequirementsResponse
	deploy  *walletv1.DeployAccountResponse
	stats   *walletv1.GetWalletStatsResponse
	report  *walletv1.VerifyWalletIntegrityResponse
	err     error
	calls   []string
	lastArg string
	limit   int
}

func (f *fakeWallets) Open(_ context.Context, sess *services.Session) (*walletv1.GetOrCreateWalletResponse, error) {
	f.calls = append(f.calls, "open")
	if f.err != nil {
		return nil, f.err
	}
	return f.wallet, nil
}

func (f *fakeWallets) Info(_ context.Context, email string) (*walletv1.WalletInfo, error) {
	f.calls = append(f.calls, "info")
	f.lastArg = email
	if f.err != nil {
		return nil, f.err
	}
	return &walletv1.WalletInfo{Email: email, AccountAddress: "0xabc", PublicKey: "0xpub"}, nil
}

func (f *fakeWallets) Status(_ context.Context, email, address string) (*walletv1.CheckDeploymentStatusResponse, error) {
	f.calls = append(f.calls, "status")
	f.lastArg = email + "|" + address
	return f.status, f.err
}

func (f *fakeWallets) Requirements(_ context.Context, email, address string) (*walletv1.CheckDeploymentRequirementsResponse, error) {
	f.calls = append(f.calls, "requirements")
	f.lastArg = email + "|" + address
	return f.reqs, f.err
}

func (f *fakeWallets) Cost(context.Context) (*walletv1.GetDeploymentCostResponse, error) {
	f.calls = append(f.calls, "cost")
	return &walletv1.GetDeploymentCostResponse{MaxFee: "1000", Unit: "STRK"}, f.err
}

func (f *fakeWallets) Deploy(_ context.Context, email string) (*walletv1.DeployAccountResponse, error) {
	f.calls = append(f.calls, "deploy")
	f.lastArg = email
	return f.deploy, f.err
}

func (f *fakeWallets) Stats(_ context.Context, limit int) (*walletv1.GetWalletStatsResponse, error) {
	f.calls = append(f.calls, "stats")
	f.limit = limit
	return f.stats, f.err
}

func (f *fakeWallets) Integrity(_ context.Context, email string) (*walletv1.VerifyWalletIntegrityResponse, error) {
	f.calls = append(f.calls, "integrity")
	f.lastArg = email
	return f.report, f.err
}

// newTestApp returns an App reading input from the given text and writing
// to the returned buffer.
func newTestApp(ss *fakeSessions, ws *fakeWallets, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		sessionService: ss,
		walletService:  ws,
		reader:         bufio.NewReader(bytes.NewBufferString(input)),
		out:            &out,
	}, &out
}

func stubSecrets(t *testing.T, values ...string) {
	t.Helper()
	orig := getSecret
	getSecret = func(_ io.Writer, _ string) (string, error) {
		if len(values) == 0 {
			return "", io.EOF
		}
		v := values[0]
		values = values[1:]
		return v, nil
	}
	t.Cleanup(func() { getSecret = orig })
}
