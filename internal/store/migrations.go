package store

import (
	"fmt"
	"strings"
)

// dialect captures the per-database differences the store cares about:
// which database/sql driver to load and which DDL creates the schema.
// Query placeholders are rewritten by sqlx.Rebind from the driver name.
type dialect struct {
	name       string
	sqlDriver  string
	migrations []string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "", DriverSQLite:
		return dialect{name: DriverSQLite, sqlDriver: "sqlite", migrations: sqliteMigrations}, nil
	case DriverPostgres, "pgx":
		return dialect{name: DriverPostgres, sqlDriver: "pgx", migrations: postgresMigrations}, nil
	case DriverMySQL:
		return dialect{name: DriverMySQL, sqlDriver: "mysql", migrations: mysqlMigrations}, nil
	case DriverSQLServer, "mssql":
		return dialect{name: DriverSQLServer, sqlDriver: "sqlserver", migrations: sqlserverMigrations}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		secret TEXT UNIQUE NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		key_type TEXT NOT NULL DEFAULT 'dev',
		monthly_limit INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_created_at ON api_keys(created_at)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		secret TEXT UNIQUE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		key_type TEXT NOT NULL DEFAULT 'dev',
		monthly_limit BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_created_at ON api_keys(created_at)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// The MySQL DSN must carry parseTime=true so DATETIME columns scan into
// time.Time.
var mysqlMigrations = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		secret VARCHAR(191) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		key_type VARCHAR(16) NOT NULL DEFAULT 'dev',
		monthly_limit BIGINT NULL,
		created_at DATETIME(6) NOT NULL,
		last_used_at DATETIME(6) NULL,
		UNIQUE KEY uq_api_keys_secret (secret),
		KEY idx_api_keys_created_at (created_at)
	)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		id VARCHAR(191) PRIMARY KEY,
		email VARCHAR(320) NOT NULL,
		full_name VARCHAR(255) NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
}

var sqlserverMigrations = []string{
	`IF OBJECT_ID(N'api_keys', N'U') IS NULL
	CREATE TABLE api_keys (
		id NVARCHAR(36) PRIMARY KEY,
		name NVARCHAR(255) NOT NULL,
		secret NVARCHAR(255) NOT NULL CONSTRAINT uq_api_keys_secret UNIQUE,
		is_active BIT NOT NULL DEFAULT 1,
		key_type NVARCHAR(16) NOT NULL DEFAULT 'dev',
		monthly_limit BIGINT NULL,
		created_at DATETIME2 NOT NULL,
		last_used_at DATETIME2 NULL
	)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'idx_api_keys_created_at')
	CREATE INDEX idx_api_keys_created_at ON api_keys(created_at)`,

	`IF OBJECT_ID(N'user_profiles', N'U') IS NULL
	CREATE TABLE user_profiles (
		id NVARCHAR(255) PRIMARY KEY,
		email NVARCHAR(320) NOT NULL,
		full_name NVARCHAR(255) NOT NULL DEFAULT '',
		avatar_url NVARCHAR(MAX) NOT NULL DEFAULT '',
		created_at DATETIME2 NOT NULL,
		updated_at DATETIME2 NOT NULL
	)`,
}

func (s *Store) migrate() error {
	for _, m := range s.dialect.migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Treat "already exists" from engines without IF NOT EXISTS
			// support as a no-op so migrations stay idempotent.
			msg := strings.ToLower(err.Error())
			if strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
