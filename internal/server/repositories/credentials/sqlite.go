package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/dbx"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
)

// SQLiteRepository implements Repository on SQLite (modernc.org/sqlite).
// Timestamps are stored in TIMESTAMP columns and parsed back by the driver.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Credential) error {
	query :=
		`INSERT INTO wallets (email, encrypted_private_key, public_key, account_address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
		 encrypted_private_key = EXCLUDED.encrypted_private_key,
		 public_key = EXCLUDED.public_key,
		 account_address = EXCLUDED.account_address,
		 updated_at = EXCLUDED.updated_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		c.Email, c.EncryptedPrivateKey, c.PublicKey, c.AccountAddress, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Credential) (bool, error) {
	query :=
		`INSERT INTO wallets (email, encrypted_private_key, public_key, account_address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		c.Email, c.EncryptedPrivateKey, c.PublicKey, c.AccountAddress, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query :=
		`SELECT email, encrypted_private_key, public_key, account_address, created_at, updated_at
		 FROM wallets WHERE email = ?
		 `

	c, err := scanFull(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *SQLiteRepository) GetPublic(ctx context.Context, email string) (*models.Credential, error) {
	query :=
		`SELECT email, public_key, account_address, created_at, updated_at
		 FROM wallets WHERE email = ?
		 `

	c, err := scanPublic(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM wallets WHERE email = ?)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return ok, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]models.Credential, error) {
	query :=
		`SELECT email, encrypted_private_key, public_key, account_address, created_at, updated_at
		 FROM wallets ORDER BY created_at DESC, email
		 `
	args := []any{}
	if limit > 0 {
		query += `LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Credential
	for rows.Next() {
		c, err := scanFull(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
