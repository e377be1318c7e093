package store

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert violates a unique constraint.
var ErrConflict = errors.New("conflict")

// Driver error codes for unique and primary key violations.
const (
	pgUniqueViolation     = "23505"
	mysqlDuplicateEntry   = 1062
	mssqlUniqueIndex      = 2601
	mssqlUniqueConstraint = 2627
)

// isUniqueViolation recognises unique (and primary key) constraint errors.
// Typed driver errors are checked first; the message match covers wrapped
// errors that lost their type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == mssqlUniqueIndex || msErr.Number == mssqlUniqueConstraint
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry") ||
		strings.Contains(lower, "violation of unique") ||
		strings.Contains(lower, "primary key")
}
