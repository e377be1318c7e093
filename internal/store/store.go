package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Supported values for Config.Driver.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSQLServer = "sqlserver"
)

// Config selects the relational database holding API keys and profiles.
type Config struct {
	Driver string
	DSN    string
	Pool   PoolConfig
}

// PoolConfig controls the database connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultPoolConfig returns sensible defaults for a hosted database.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// Store persists API keys and user profiles. Every method is safe for
// concurrent use; multi-statement operations run inside a single
// transaction that touches exactly one row.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// NewSQLite opens a SQLite-backed store in dataDir. Pass empty string for an
// in-memory database (used by tests and the CLI's --ephemeral mode).
func NewSQLite(dataDir string) (*Store, error) {
	dsn := ":memory:"
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "dandi.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return Open(Config{Driver: DriverSQLite, DSN: dsn})
}

// Open connects to the configured database and applies migrations.
func Open(cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	if d.name == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	} else {
		if cfg.Pool.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
		}
		if cfg.Pool.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
		}
		if cfg.Pool.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
		}
		if cfg.Pool.ConnMaxIdleTime > 0 {
			db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s database: %w", d.name, err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the configured driver name (sqlite, postgres, ...).
func (s *Store) Driver() string {
	return s.dialect.name
}

// now returns the current UTC time truncated to microseconds, the finest
// precision every supported database round-trips.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
