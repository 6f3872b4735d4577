package credentials

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/server/migrations"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+t.TempDir()+"/wallets.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "."))

	return NewSQLiteRepository(db)
}

func TestSQLite_InsertOnlyOnce(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	first := &models.Credential{Email: "a@example.com", EncryptedPrivateKey: "v1:1:2:3", PublicKey: "0x1", AccountAddress: "0x2", CreatedAt: now, UpdatedAt: now}
	second := &models.Credential{Email: "a@example.com", EncryptedPrivateKey: "v1:4:5:6", PublicKey: "0x3", AccountAddress: "0x4", CreatedAt: now, UpdatedAt: now}

	ok, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Insert(ctx, second)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "0x2", got.AccountAddress)
	assert.True(t, got.CreatedAt.Equal(now))
}

func TestSQLite_UpsertKeepsCreatedAt(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	require.NoError(t, repo.Upsert(ctx, &models.Credential{Email: "a@example.com", EncryptedPrivateKey: "x", PublicKey: "0x1", AccountAddress: "0x2", CreatedAt: t0, UpdatedAt: t0}))
	require.NoError(t, repo.Upsert(ctx, &models.Credential{Email: "a@example.com", EncryptedPrivateKey: "y", PublicKey: "0x3", AccountAddress: "0x4", CreatedAt: t1, UpdatedAt: t1}))

	got, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "y", got.EncryptedPrivateKey)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.True(t, got.UpdatedAt.Equal(t1))
}

func TestSQLite_ListCountExists(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		_, err := repo.Insert(ctx, &models.Credential{Email: email, EncryptedPrivateKey: "x", PublicKey: "0x1", AccountAddress: "0x2", CreatedAt: ts, UpdatedAt: ts})
		require.NoError(t, err)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	recent, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c@example.com", recent[0].Email)
	assert.Equal(t, "b@example.com", recent[1].Email)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	ok, err := repo.Exists(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "z@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	pub, err := repo.GetPublic(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, pub.EncryptedPrivateKey)
}
