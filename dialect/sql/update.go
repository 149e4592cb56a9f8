package sql

import (
	"context"

	"github.com/louisdevie/kiwiq"
)

// UpdateBuilder is an UPDATE command.
type UpdateBuilder struct {
	command
	table *Table
	assignments
	where WhereClause
}

// Set sets the new value of a column.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.set(column, v)
	return u
}

// Where sets the condition of the update. Setting it twice is a usage
// error reported by Query.
func (u *UpdateBuilder) Where(p Predicate) *UpdateBuilder {
	u.AddError(u.where.Set(p))
	return u
}

// Columns returns the updated columns in order.
func (u *UpdateBuilder) Columns() []string { return u.columns }

// Query returns the query text and its arguments.
func (u *UpdateBuilder) Query() (string, []any, error) {
	return u.render(func(w *Writer) {
		if len(u.columns) == 0 {
			w.AddError(kiwiq.NewStructureError("update: no column to set"))
			return
		}
		w.PushContext(Canonical)
		w.Keyword("UPDATE").Render(u.table).Keyword("SET")
		for n, c := range u.columns {
			if n > 0 {
				w.Comma()
			}
			w.Ident(c).Op("=").Render(u.values[n])
		}
		w.Render(&u.where)
		w.PopContext()
	})
}

// Apply runs the update and returns the number of affected rows.
func (u *UpdateBuilder) Apply(ctx context.Context) (int64, error) {
	conn, err := u.connection("update")
	if err != nil {
		return 0, err
	}
	query, args, err := u.Query()
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, conn, query, args)
}
