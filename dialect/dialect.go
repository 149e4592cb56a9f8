package dialect

import (
	"context"
)

// Dialect identifies a SQL rendering variant. Dialects are compared by
// identity: two tokens created with the same name are different dialects,
// and a custom dialect is looked up purely by its token.
type Dialect struct {
	name string
}

// New returns a new dialect token with the given display name.
func New(name string) *Dialect {
	return &Dialect{name: name}
}

// Name returns the display name of the dialect.
func (d *Dialect) Name() string {
	if d == nil {
		return "<nil>"
	}
	return d.name
}

// String implements fmt.Stringer.
func (d *Dialect) String() string { return d.Name() }

// Built-in dialects.
var (
	MySQL    = New("mysql")
	SQLite   = New("sqlite")
	Postgres = New("postgres")
)

// ExecQuerier wraps the two database operations every command needs.
// The args and v conventions are owned by the driver implementation; the
// dialect/sql driver expects args to be []any, and v to be a *sql.Result
// (or nil) for Exec and a *sql.Rows for Query.
type ExecQuerier interface {
	// Exec executes a query that does not return records.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for
// executing commands against one database.
type Driver interface {
	ExecQuerier
	// Dialect returns the dialect of the connected database.
	Dialect() *Dialect
	// Close closes the underlying connection.
	Close() error
}
