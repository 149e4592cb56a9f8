package sql

import (
	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect"
)

// Builder creates commands for one dialect, optionally bound to a
// connection. Commands built without a connection can only be rendered.
type Builder struct {
	dialect *dialect.Dialect
	conn    dialect.ExecQuerier
}

// Dialect returns a render-only builder for d.
func Dialect(d *dialect.Dialect) Builder { return Builder{dialect: d} }

// Using returns a builder whose commands run on drv.
func Using(drv dialect.Driver) Builder {
	return Builder{dialect: drv.Dialect(), conn: drv}
}

// Select returns a SELECT of the given columns.
func (b Builder) Select(columns ...Value) *Selector {
	return &Selector{command: b.command(), columns: columns}
}

// InsertInto returns an INSERT into table.
func (b Builder) InsertInto(table *Table) *InsertBuilder {
	return &InsertBuilder{command: b.command(), table: table}
}

// Update returns an UPDATE of table.
func (b Builder) Update(table *Table) *UpdateBuilder {
	return &UpdateBuilder{command: b.command(), table: table}
}

// DeleteFrom returns a DELETE from table.
func (b Builder) DeleteFrom(table *Table) *DeleteBuilder {
	return &DeleteBuilder{command: b.command(), table: table}
}

func (b Builder) command() command {
	return command{dialect: b.dialect, conn: b.conn}
}

// command is the state shared by all commands.
type command struct {
	dialect *dialect.Dialect
	conn    dialect.ExecQuerier
	err     error
}

// AddError records the first usage error of the command.
func (c *command) AddError(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

// Err returns the first usage error of the command.
func (c *command) Err() error { return c.err }

// Dialect returns the dialect the command renders for.
func (c *command) Dialect() *dialect.Dialect { return c.dialect }

// render runs fn on a fresh writer and finalizes the query.
func (c *command) render(fn func(*Writer)) (string, []any, error) {
	if c.err != nil {
		return "", nil, c.err
	}
	w, err := NewWriter(c.dialect)
	if err != nil {
		return "", nil, err
	}
	fn(w)
	return w.Query()
}

func (c *command) connection(op string) (dialect.ExecQuerier, error) {
	if c.conn == nil {
		return nil, kiwiq.NewUsageError(op, "command is not bound to a connection")
	}
	return c.conn, nil
}
