package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/cryptox"
	"github.com/okhaimie-dev/PallyApp/internal/dbx"
	"github.com/okhaimie-dev/PallyApp/internal/logging"
	"github.com/okhaimie-dev/PallyApp/internal/server/keyderivation"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/credentials"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// fakeCredentialsRepo is an in-memory credentials.Repository.
type fakeCredentialsRepo struct {
	mu   sync.Mutex
	rows map[string]models.Credential

	insertErr error
	getErr    error
}

func newFakeCredentialsRepo() *fakeCredentialsRepo {
	return &fakeCredentialsRepo{rows: make(map[string]models.Credential)}
}

func (f *fakeCredentialsRepo) Upsert(_ context.Context, c *models.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.rows[c.Email]; ok {
		row := *c
		row.CreatedAt = cur.CreatedAt
		f.rows[c.Email] = row
		return nil
	}
	f.rows[c.Email] = *c
	return nil
}

func (f *fakeCredentialsRepo) Insert(_ context.Context, c *models.Credential) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, ok := f.rows[c.Email]; ok {
		return false, nil
	}
	f.rows[c.Email] = *c
	return true, nil
}

func (f *fakeCredentialsRepo) GetByEmail(_ context.Context, email string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.rows[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (f *fakeCredentialsRepo) GetPublic(ctx context.Context, email string) (*models.Credential, error) {
	c, err := f.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	c.EncryptedPrivateKey = ""
	return c, nil
}

func (f *fakeCredentialsRepo) Exists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[email]
	return ok, nil
}

func (f *fakeCredentialsRepo) List(_ context.Context, limit int) ([]models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Credential, 0, len(f.rows))
	for _, c := range f.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCredentialsRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *fakeCredentialsRepo) row(email string) (models.Credential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[email]
	return c, ok
}

func (f *fakeCredentialsRepo) set(c models.Credential) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[c.Email] = c
}

type fakeRM struct {
	repo credentials.Repository
}

func (f *fakeRM) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRM) Credentials(dbx.DBTX) credentials.Repository  { return f.repo }

func newTestSealer(t *testing.T, secret string) *cryptox.Sealer {
	t.Helper()
	s, err := cryptox.NewSealer(cryptox.KeyFromSecret(secret))
	require.NoError(t, err)
	return s
}

func newTestCredentialStore(t *testing.T, repo *fakeCredentialsRepo) *CredentialStore {
	t.Helper()
	s := NewCredentialStore(nil, &fakeRM{repo: repo}, newTestSealer(t, "storage-key"), nopLogger{})
	s.tx = func(ctx context.Context, fn dbx.TxFunc) error { return fn(ctx, nil) }
	return s
}

// countingDeriver wraps the real engine, counting derivations and
// optionally blocking or failing them.
type countingDeriver struct {
	*keyderivation.Engine

	calls atomic.Int32
	gate  chan struct{}
	hook  func()
	err   error
}

func newCountingDeriver(t *testing.T) *countingDeriver {
	t.Helper()
	e, err := keyderivation.NewEngine("")
	require.NoError(t, err)
	return &countingDeriver{Engine: e}
}

func (d *countingDeriver) Derive(subject, serverSecret string) (*keyderivation.Keys, error) {
	d.calls.Add(1)
	if d.hook != nil {
		d.hook()
	}
	if d.gate != nil {
		<-d.gate
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.Engine.Derive(subject, serverSecret)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
