package repomanager

import (
	"context"
	"database/sql"
	"strings"

	"github.com/okhaimie-dev/PallyApp/internal/dbx"
	"github.com/okhaimie-dev/PallyApp/internal/server/repositories/credentials"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager is the single-node backend.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Credentials(db dbx.DBTX) credentials.Repository {
	return credentials.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3")
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}

// sqliteFilePath extracts the file path from a DSN such as
// "file:data/wallets.db?_pragma=busy_timeout(5000)". In-memory DSNs yield "".
func sqliteFilePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return p
}

// sqliteDSN adds the pragmas the server relies on unless the DSN already
// sets them: a busy timeout, and WAL journaling for file databases.
func sqliteDSN(dsn string) string {
	pragmas := []string{"busy_timeout(5000)"}
	if sqliteFilePath(dsn) != "" {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	var add []string
	for _, p := range pragmas {
		name, _, _ := strings.Cut(p, "(")
		if !strings.Contains(dsn, "_pragma="+name) {
			add = append(add, "_pragma="+p)
		}
	}
	if len(add) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(add, "&")
}
