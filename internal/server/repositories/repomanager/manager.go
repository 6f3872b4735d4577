package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okhaimie-dev/PallyApp/internal/dbx"
	"github.com/okhaimie-dev/PallyApp/internal/filex"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/credentials"
)

// Supported values of the db-driver setting.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
}

var sqlOpen = sql.Open

// Open connects to the configured database, runs migrations and returns the
// handle together with the matching RepositoryManager.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	var (
		m          RepositoryManager
		driverName string
	)

	switch driver {
	case DriverPostgres:
		m, driverName = NewPostgresRepositoryManager(), "pgx"
	case DriverSQLite, "":
		if err := filex.EnsureParentDir(sqliteFilePath(dsn)); err != nil {
			return nil, nil, err
		}
		m, driverName = NewSQLiteRepositoryManager(), "sqlite"
		dsn = sqliteDSN(dsn)
	default:
		return nil, nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driverName == "sqlite" {
		// one writer at a time; concurrent requests queue in the pool
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	return db, m, nil
}
