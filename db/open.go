package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Open connects to the configured backend and applies migrations.
// dsn is a file path for SQLite or a postgres:// URL for Postgres.
func Open(dialect Dialect, dsn string) (*CompatDB, error) {
	driver := "sqlite"
	if dialect == DialectPostgres {
		driver = "pgx"
	}

	raw, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect == DialectSQLite {
		// Single connection: prevents concurrent write conflicts.
		raw.SetMaxOpenConns(1)
		raw.SetMaxIdleConns(1)
		raw.SetConnMaxLifetime(0)

		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := raw.Exec(pragma); err != nil {
				raw.Close()
				return nil, fmt.Errorf("pragma failed (%s): %w", pragma, err)
			}
		}
	}

	if err := RunMigrations(raw, dialect); err != nil {
		raw.Close()
		return nil, err
	}

	return NewCompatDB(raw, dialect), nil
}
