package sql

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect"
)

// IsConstraintError returns true if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return kiwiq.IsConstraintError(err) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// PostgreSQL SQLSTATE codes (Class 23 and 55).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgObjectNotInState    = "55000"
)

// MySQL error numbers for constraint violations.
const (
	mysqlColumnCannotBeNull     = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// sqlStateError is implemented by drivers reporting SQLSTATE codes, like pgx.
type sqlStateError interface {
	SQLState() string
}

func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState()
	}
	return ""
}

func mysqlNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if sqlState(err) == pgUniqueViolation || mysqlNumber(err) == mysqlDuplicateEntry {
		return true
	}
	// Fallback to string matching for drivers without typed errors.
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
		"PRIMARY KEY constraint failed",
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if sqlState(err) == pgForeignKeyViolation {
		return true
	}
	if n := mysqlNumber(err); n == mysqlForeignKeyParent || n == mysqlForeignKeyChild {
		return true
	}
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL (Cannot delete or update a parent row)
		"Error 1452",                      // MySQL (Cannot add or update a child row)
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if sqlState(err) == pgCheckViolation || mysqlNumber(err) == mysqlCheckConstraintViolate {
		return true
	}
	return containsAny(err.Error(),
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// IsNotNullConstraintError reports if the error resulted from writing NULL
// into a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if sqlState(err) == pgNotNullViolation || mysqlNumber(err) == mysqlColumnCannotBeNull {
		return true
	}
	return containsAny(err.Error(),
		"Error 1048",                   // MySQL
		"violates not-null constraint", // Postgres
		"NOT NULL constraint failed",   // SQLite
	)
}

// isNoLastID reports if the last-id query failed because the session never
// generated an id (Postgres lastval).
func isNoLastID(err error) bool {
	return err != nil && (sqlState(err) == pgObjectNotInState ||
		strings.Contains(err.Error(), "lastval is not yet defined"))
}

// wrapExecError wraps constraint violations into kiwiq.ConstraintError.
func wrapExecError(err error) error {
	if err == nil || kiwiq.IsConstraintError(err) {
		return err
	}
	if IsConstraintError(err) {
		return kiwiq.NewConstraintError(err.Error(), err)
	}
	return err
}

func execAffected(ctx context.Context, conn dialect.ExecQuerier, query string, args []any) (int64, error) {
	var res Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return 0, wrapExecError(err)
	}
	if res == nil {
		return 0, nil
	}
	return res.RowsAffected()
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
