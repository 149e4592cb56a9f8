package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/louisdevie/kiwiq/dialect"
)

// Driver is a dialect.Driver implementation for database/sql databases.
type Driver struct {
	Conn
	dialect *dialect.Dialect
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(d *dialect.Dialect, c Conn) *Driver {
	return &Driver{dialect: d, Conn: c}
}

// Open wraps the database/sql.Open method and returns a Driver rendering
// for the dialect d.
func Open(d *dialect.Dialect, driverName, source string) (*Driver, error) {
	if _, err := StyleOf(d); err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(d, Conn{db}), nil
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(d *dialect.Dialect, db *sql.DB) *Driver {
	return NewDriver(d, Conn{db})
}

// DB returns the underlying *sql.DB instance, or nil if the driver wraps
// something else.
func (d *Driver) DB() *sql.DB {
	db, _ := d.ExecQuerier.(*sql.DB)
	return db
}

// Dialect implements the dialect.Driver method.
func (d *Driver) Dialect() *dialect.Dialect { return d.dialect }

// Close closes the underlying connection.
func (d *Driver) Close() error {
	if db := d.DB(); db != nil {
		return db.Close()
	}
	return nil
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

// Pin returns an ExecQuerier bound to a single connection, and the function
// releasing it. Commands that read session state, like the last generated
// id, run on a pinned connection.
func (c Conn) Pin(ctx context.Context) (dialect.ExecQuerier, func() error, error) {
	db, ok := c.ExecQuerier.(*sql.DB)
	if !ok {
		// *sql.Conn and *sql.Tx are already bound to one connection.
		return c, func() error { return nil }, nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("dialect/sql: pin connection: %w", err)
	}
	return Conn{conn}, conn.Close, nil
}

// Pinner is implemented by drivers that can bind a sequence of commands to
// one connection.
type Pinner interface {
	Pin(ctx context.Context) (dialect.ExecQuerier, func() error, error)
}

// pin binds q to one connection if it can, and returns q itself otherwise.
func pin(ctx context.Context, q dialect.ExecQuerier) (dialect.ExecQuerier, func() error, error) {
	if p, ok := q.(Pinner); ok {
		return p.Pin(ctx)
	}
	return q, func() error { return nil }, nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// Builder returns a command builder bound to the driver.
func (d *Driver) Builder() Builder { return Using(d) }
