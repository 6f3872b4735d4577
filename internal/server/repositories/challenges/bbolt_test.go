package challenges

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newBolt(t *testing.T) Store {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "data", "challenges.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStore(t *testing.T) {
	conformance(t, newBolt)
}

func TestBoltStore_Purge(t *testing.T) {
	s := newBolt(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Create(ctx, &models.Challenge{Email: "old@example.com", ExpiresAt: now.Add(-time.Second)}, now))
	require.NoError(t, s.Create(ctx, &models.Challenge{Email: "new@example.com", ExpiresAt: now.Add(time.Minute)}, now))

	n, err := s.Purge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, "old@example.com")
	assert.ErrorIs(t, err, common.ErrChallengeNotFound)
}

func TestBoltStore_MalformedRecordIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "challenges.db")
	s, err := NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.bdb.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(challengeBucket).Put([]byte("bad@example.com"), []byte("{not json"))
	}))

	_, err = s.Get(context.Background(), "bad@example.com")
	assert.ErrorIs(t, err, common.ErrChallengeMalformed)

	err = s.Update(context.Background(), "bad@example.com", func(c *models.Challenge) (bool, error) {
		t.Fatal("fn must not be called for malformed records")
		return true, nil
	})
	assert.ErrorIs(t, err, common.ErrChallengeMalformed)

	_, err = s.Get(context.Background(), "bad@example.com")
	assert.ErrorIs(t, err, common.ErrChallengeNotFound)
}

func TestBoltStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "challenges.db")
	now := time.Now()

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), &models.Challenge{Email: "a@example.com", Code: "123456", ExpiresAt: now.Add(time.Minute)}, now))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", got.Code)
}
