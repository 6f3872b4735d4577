// Package credentials persists encrypted wallet records keyed by email.
package credentials

import (
	"context"

	"github.com/okhaimie-dev/PallyApp/internal/server/models"
)

type Repository interface {
	// Upsert writes the record, replacing any existing row for the email.
	// created_at of an existing row is preserved.
	Upsert(ctx context.Context, c *models.Credential) error
	// Insert writes the record only if no row exists for the email and
	// reports whether it did.
	Insert(ctx context.Context, c *models.Credential) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	// GetPublic returns the record without the encrypted column.
	GetPublic(ctx context.Context, email string) (*models.Credential, error)
	Exists(ctx context.Context, email string) (bool, error)
	// List returns records newest first; limit <= 0 returns all of them.
	List(ctx context.Context, limit int) ([]models.Credential, error)
	Count(ctx context.Context) (int64, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFull(row rowScanner) (*models.Credential, error) {
	c := &models.Credential{}
	err := row.Scan(&c.Email, &c.EncryptedPrivateKey, &c.PublicKey, &c.AccountAddress, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanPublic(row rowScanner) (*models.Credential, error) {
	c := &models.Credential{}
	err := row.Scan(&c.Email, &c.PublicKey, &c.AccountAddress, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
