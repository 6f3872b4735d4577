package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLiteStore(t *testing.T) *CredentialStore {
	t.Helper()
	db, rm, err := repomanager.Open(context.Background(), repomanager.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "wallets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCredentialStore(db, rm, newTestSealer(t, "storage-key"), nopLogger{})
}

func TestCredentialStore_SQLiteConcurrentWrites(t *testing.T) {
	store := openSQLiteStore(t)
	ctx := context.Background()

	const n = 64
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("user%d@example.com", i)
			if _, err := store.SaveNew(ctx, email, testPriv, testPub, testAddr); err != nil {
				errs[i] = err
				return
			}
			_, _, errs[i] = store.LoadWithSecret(ctx, email)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "goroutine %d", i)
	}

	cnt, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, n, cnt)
}

func TestWallet_SQLiteConcurrentGetOrCreate(t *testing.T) {
	store := openSQLiteStore(t)
	d := newCountingDeriver(t)
	svc := NewWalletService(store, d, testServerSecret, 0, nopLogger{})
	ctx := context.Background()

	const (
		emails   = 8
		perEmail = 3
	)
	results := make([]*models.Wallet, emails*perEmail)
	errs := make([]error, emails*perEmail)

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := i % emails
			results[i], errs[i] = svc.GetOrCreate(ctx, fmt.Sprintf("user%d@example.com", e), fmt.Sprintf("sub-%d", e))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i], "call %d", i)
		assert.Equal(t, results[i%emails].AccountAddress, results[i].AccountAddress)
	}
	assert.EqualValues(t, emails, d.calls.Load())

	cnt, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, emails, cnt)

	// a later call reads the stored wallet
	w, err := svc.GetOrCreate(ctx, "user0@example.com", "sub-0")
	require.NoError(t, err)
	assert.False(t, w.IsNew)
	assert.Equal(t, results[0].PrivateKey, w.PrivateKey)
}

func TestCredentialStore_CreateOrLoadOnSQLite(t *testing.T) {
	store := openSQLiteStore(t)
	ctx := context.Background()

	c, pk, created, err := store.CreateOrLoad(ctx, "a@example.com", testPriv, testPub, testAddr)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, testPriv, pk)
	assert.Equal(t, testAddr, c.AccountAddress)

	c, pk, created, err = store.CreateOrLoad(ctx, "a@example.com", "0x01", "0x02", "0x03")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, testPriv, pk)
	assert.Equal(t, testAddr, c.AccountAddress)
}
