package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerSecret = "server-secret"

func newWalletService(t *testing.T) (*WalletService, *fakeCredentialsRepo, *countingDeriver) {
	t.Helper()
	repo := newFakeCredentialsRepo()
	d := newCountingDeriver(t)
	return NewWalletService(newTestCredentialStore(t, repo), d, testServerSecret, 0, nopLogger{}), repo, d
}

func TestWallet_GetOrCreateIsIdempotent(t *testing.T) {
	svc, _, d := newWalletService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "a@example.com", "google-oauth2|123")
	require.NoError(t, err)
	assert.True(t, first.IsNew)

	want, err := d.Engine.Derive("google-oauth2|123", testServerSecret)
	require.NoError(t, err)
	assert.Equal(t, want.PrivateKey, first.PrivateKey)
	assert.Equal(t, want.PublicKey, first.PublicKey)
	assert.Equal(t, want.AccountAddress, first.AccountAddress)

	second, err := svc.GetOrCreate(ctx, "a@example.com", "google-oauth2|123")
	require.NoError(t, err)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.AccountAddress, second.AccountAddress)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)

	assert.EqualValues(t, 1, d.calls.Load())
}

func TestWallet_ConcurrentGetOrCreateDerivesOnce(t *testing.T) {
	svc, repo, d := newWalletService(t)
	ctx := context.Background()

	const n = 8
	results := make([]*models.Wallet, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetOrCreate(ctx, "a@example.com", "sub-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].AccountAddress, results[i].AccountAddress)
	}
	assert.EqualValues(t, 1, d.calls.Load())

	cnt, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)
}

func TestWallet_CallerCancellationDoesNotAbortWrite(t *testing.T) {
	svc, repo, d := newWalletService(t)
	d.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.GetOrCreate(ctx, "a@example.com", "sub-1")
		done <- err
	}()

	require.Eventually(t, func() bool { return d.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(d.gate)
	require.Eventually(t, func() bool {
		_, ok := repo.row("a@example.com")
		return ok
	}, 10*time.Second, 10*time.Millisecond)
}

func TestWallet_DerivationFailure(t *testing.T) {
	svc, repo, d := newWalletService(t)
	d.err = common.ErrDerivationFailed

	_, err := svc.GetOrCreate(context.Background(), "a@example.com", "sub-1")
	assert.ErrorIs(t, err, common.ErrCredentialCreationFailed)
	assert.ErrorIs(t, err, common.ErrDerivationFailed)

	_, ok := repo.row("a@example.com")
	assert.False(t, ok)
}

func TestWallet_SaveFailure(t *testing.T) {
	svc, repo, _ := newWalletService(t)
	repo.insertErr = errors.New("disk full")

	_, err := svc.GetOrCreate(context.Background(), "a@example.com", "sub-1")
	assert.ErrorIs(t, err, common.ErrCredentialCreationFailed)
}

func TestWallet_LostInsertReturnsStoredRecord(t *testing.T) {
	svc, _, d := newWalletService(t)
	ctx := context.Background()

	// another instance stores a wallet while this one is deriving
	d.hook = func() {
		assert.NoError(t, svc.store.Save(ctx, "a@example.com", testPriv, testPub, testAddr))
	}

	w, err := svc.GetOrCreate(ctx, "a@example.com", "sub-1")
	require.NoError(t, err)
	assert.False(t, w.IsNew)
	assert.Equal(t, testAddr, w.AccountAddress)
	assert.Equal(t, testPriv, w.PrivateKey)
}

func TestWallet_UnreadableRecordIsNotReplaced(t *testing.T) {
	svc, repo, d := newWalletService(t)
	ctx := context.Background()

	repo.set(models.Credential{Email: "a@example.com", EncryptedPrivateKey: "v1:00:00:00", PublicKey: testPub, AccountAddress: testAddr})

	_, err := svc.GetOrCreate(ctx, "a@example.com", "sub-1")
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
	assert.ErrorIs(t, err, common.ErrCredentialCreationFailed)
	assert.EqualValues(t, 0, d.calls.Load())

	row, _ := repo.row("a@example.com")
	assert.Equal(t, "v1:00:00:00", row.EncryptedPrivateKey)
}

func TestWallet_ReadOnlyQueries(t *testing.T) {
	svc, _, _ := newWalletService(t)
	ctx := context.Background()

	_, err := svc.GetPublicInfo(ctx, "a@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	ok, err := svc.Exists(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.store.Save(ctx, "a@example.com", testPriv, testPub, testAddr))

	info, err := svc.GetPublicInfo(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, testAddr, info.AccountAddress)
	assert.Equal(t, testPub, info.PublicKey)

	ok, err = svc.Exists(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWallet_Stats(t *testing.T) {
	svc, _, _ := newWalletService(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		svc.store.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
		email := string(rune('a'+i)) + "@example.com"
		require.NoError(t, svc.store.Save(ctx, email, testPriv, testPub, testAddr))
	}

	stats, err := svc.Stats(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 12, stats.TotalWallets)
	require.Len(t, stats.Recent, DefaultStatsLimit)
	assert.Equal(t, "l@example.com", stats.Recent[0].Email)

	stats, err = svc.Stats(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, stats.Recent, 3)
}

func TestWallet_VerifyIntegrity(t *testing.T) {
	svc, repo, _ := newWalletService(t)
	ctx := context.Background()

	require.NoError(t, svc.store.Save(ctx, "good@example.com", testPriv, testPub, testAddr))
	report, err := svc.VerifyIntegrity(ctx, "good@example.com")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Problems)

	require.NoError(t, svc.store.Save(ctx, "bad@example.com", testPriv, testPub, testPub))
	report, err = svc.VerifyIntegrity(ctx, "bad@example.com")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"account address does not match private key"}, report.Problems)

	repo.set(models.Credential{Email: "broken@example.com", EncryptedPrivateKey: "garbage", PublicKey: testPub, AccountAddress: testAddr})
	report, err = svc.VerifyIntegrity(ctx, "broken@example.com")
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{"private key cannot be decrypted"}, report.Problems)

	_, err = svc.VerifyIntegrity(ctx, "missing@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
