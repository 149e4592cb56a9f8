package sql

import "context"

// DeleteBuilder is a DELETE command.
type DeleteBuilder struct {
	command
	table *Table
	where WhereClause
}

// Where sets the condition of the delete. Setting it twice is a usage
// error reported by Query.
func (d *DeleteBuilder) Where(p Predicate) *DeleteBuilder {
	d.AddError(d.where.Set(p))
	return d
}

// Query returns the query text and its arguments.
func (d *DeleteBuilder) Query() (string, []any, error) {
	return d.render(func(w *Writer) {
		w.PushContext(Canonical)
		w.Keyword("DELETE FROM").Render(d.table)
		w.Render(&d.where)
		w.PopContext()
	})
}

// Apply runs the delete and returns the number of affected rows.
func (d *DeleteBuilder) Apply(ctx context.Context) (int64, error) {
	conn, err := d.connection("delete")
	if err != nil {
		return 0, err
	}
	query, args, err := d.Query()
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, conn, query, args)
}
