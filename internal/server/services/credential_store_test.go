package services

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/cryptox"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPriv = "0x0000000000000000000000000000000000000000000000000000000000001234"
	testPub  = "0x026da8d11938b76025862be14fdb8b28438827f73e75e86f7bfa38b196951fa7"
	testAddr = "0x039d80f2ac249bcafe7f683feaf8323972fbbe85aee3bbcd0dd5887b3177f8d2"
)

func TestCredentialStore_SaveAndLoad(t *testing.T) {
	repo := newFakeCredentialsRepo()
	store := newTestCredentialStore(t, repo)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a@example.com", testPriv, testPub, testAddr))

	row, ok := repo.row("a@example.com")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(row.EncryptedPrivateKey, cryptox.BlobVersion+":"))
	assert.NotContains(t, row.EncryptedPrivateKey, strings.TrimPrefix(testPriv, "0x"))

	c, pk, err := store.LoadWithSecret(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, testPriv, pk)
	assert.Equal(t, testPub, c.PublicKey)
	assert.Equal(t, testAddr, c.AccountAddress)

	pub, err := store.LoadPublic(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, pub.EncryptedPrivateKey)
	assert.Equal(t, testAddr, pub.AccountAddress)
}

func TestCredentialStore_SaveOverwrites(t *testing.T) {
	repo := newFakeCredentialsRepo()
	store := newTestCredentialStore(t, repo)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = fixedClock(created)
	require.NoError(t, store.Save(ctx, "a@example.com", testPriv, testPub, testAddr))

	store.now = fixedClock(created.Add(time.Hour))
	require.NoError(t, store.Save(ctx, "a@example.com", "0x01", "0x02", "0x03"))

	c, pk, err := store.LoadWithSecret(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "0x01", pk)
	assert.True(t, c.CreatedAt.Equal(created))
	assert.True(t, c.UpdatedAt.Equal(created.Add(time.Hour)))
}

func TestCredentialStore_SaveNewKeepsExisting(t *testing.T) {
	repo := newFakeCredentialsRepo()
	store := newTestCredentialStore(t, repo)
	ctx := context.Background()

	ok, err := store.SaveNew(ctx, "a@example.com", testPriv, testPub, testAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SaveNew(ctx, "a@example.com", "0x01", "0x02", "0x03")
	require.NoError(t, err)
	assert.False(t, ok)

	_, pk, err := store.LoadWithSecret(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, testPriv, pk)
}

func TestCredentialStore_LoadNotFound(t *testing.T) {
	store := newTestCredentialStore(t, newFakeCredentialsRepo())

	_, _, err := store.LoadWithSecret(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	ok, err := store.Exists(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialStore_TamperedBlob(t *testing.T) {
	repo := newFakeCredentialsRepo()
	store := newTestCredentialStore(t, repo)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a@example.com", testPriv, testPub, testAddr))

	row, _ := repo.row("a@example.com")
	last := row.EncryptedPrivateKey[len(row.EncryptedPrivateKey)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	row.EncryptedPrivateKey = row.EncryptedPrivateKey[:len(row.EncryptedPrivateKey)-1] + string(flipped)
	repo.set(row)

	_, pk, err := store.LoadWithSecret(ctx, "a@example.com")
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
	assert.Empty(t, pk)
}

func TestCredentialStore_TamperedTag(t *testing.T) {
	repo := newFakeCredentialsRepo()
	store := newTestCredentialStore(t, repo)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a@example.com", testPriv, testPub, testAddr))

	row, _ := repo.row("a@example.com")
	parts := strings.Split(row.EncryptedPrivateKey, ":")
	require.Len(t, parts, 4)
	tag, err := hex.DecodeString(parts[2])
	require.NoError(t, err)
	tag[len(tag)-1] ^= 0x01
	parts[2] = hex.EncodeToString(tag)
	row.EncryptedPrivateKey = strings.Join(parts, ":")
	repo.set(row)

	_, pk, err := store.LoadWithSecret(ctx, "a@example.com")
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
	assert.Empty(t, pk)

	_, err = store.LoadPublic(ctx, "a@example.com")
	assert.NoError(t, err)
}

func TestCredentialStore_WrongStorageKey(t *testing.T) {
	repo := newFakeCredentialsRepo()
	ctx := context.Background()

	require.NoError(t, newTestCredentialStore(t, repo).Save(ctx, "a@example.com", testPriv, testPub, testAddr))

	other := NewCredentialStore(nil, &fakeRM{repo: repo}, newTestSealer(t, "another-key"), nopLogger{})
	_, _, err := other.LoadWithSecret(ctx, "a@example.com")
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)

	// public columns stay readable
	c, err := other.LoadPublic(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, testPub, c.PublicKey)
}

func TestCredentialStore_SQLite(t *testing.T) {
	ctx := context.Background()
	db, rm, err := repomanager.Open(ctx, repomanager.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "data", "wallets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewCredentialStore(db, rm, newTestSealer(t, "storage-key"), nopLogger{})

	ok, err := store.SaveNew(ctx, "a@example.com", testPriv, testPub, testAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	_, pk, err := store.LoadWithSecret(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, testPriv, pk)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@example.com", list[0].Email)
}
