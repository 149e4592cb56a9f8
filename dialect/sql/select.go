package sql

import (
	"context"

	"github.com/louisdevie/kiwiq"
)

// Selector is a SELECT command.
//
//	sel := sql.Dialect(dialect.SQLite).
//		Select(fruits.C("NAME")).
//		From(fruits).
//		Where(sql.EQ(fruits.C("COLOR"), "red"))
//	query, args, err := sel.Query()
type Selector struct {
	command
	distinct bool
	columns  []Value
	from     []*Table
	joins    JoinClause
	where    WhereClause
	order    OrderClause
	limit    LimitClause
}

// Distinct makes the selection DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// Columns appends projection items.
func (s *Selector) Columns(columns ...Value) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// From appends tables to the FROM clause.
func (s *Selector) From(tables ...*Table) *Selector {
	s.from = append(s.from, tables...)
	return s
}

// Join appends an INNER JOIN of t on left = right.
func (s *Selector) Join(t *Table, left, right *Column) *Selector {
	s.joins.Add(InnerJoin, t, left, right)
	return s
}

// LeftJoin appends a LEFT JOIN of t on left = right.
func (s *Selector) LeftJoin(t *Table, left, right *Column) *Selector {
	s.joins.Add(LeftJoin, t, left, right)
	return s
}

// Where sets the condition of the selection. Setting it twice is a usage
// error reported by Query.
func (s *Selector) Where(p Predicate) *Selector {
	s.AddError(s.where.Set(p))
	return s
}

// OrderBy appends ordering items.
func (s *Selector) OrderBy(orders ...Order) *Selector {
	s.order.Add(orders...)
	return s
}

// Limit sets the maximum number of rows.
func (s *Selector) Limit(n int) *Selector {
	s.AddError(s.limit.SetLimit(n))
	return s
}

// Offset sets the number of rows to skip. Limit must be called first.
func (s *Selector) Offset(n int) *Selector {
	s.AddError(s.limit.SetOffset(n))
	return s
}

// Page selects the given page of size rows, starting at 1.
func (s *Selector) Page(page, size int) *Selector {
	s.AddError(s.limit.Page(page, size))
	return s
}

// Tables returns the FROM tables.
func (s *Selector) Tables() []*Table { return s.from }

// Projection returns the projection items.
func (s *Selector) Projection() []Value { return s.columns }

// Joins returns the join clause.
func (s *Selector) Joins() *JoinClause { return &s.joins }

// Limits returns the LIMIT/OFFSET clause.
func (s *Selector) Limits() *LimitClause { return &s.limit }

// Query returns the query text and its arguments.
func (s *Selector) Query() (string, []any, error) {
	return s.render(s.appendSQL)
}

// appendSQL renders the selection, possibly inside an enclosing command.
func (s *Selector) appendSQL(w *Writer) {
	if s.err != nil {
		w.AddError(s.err)
		return
	}
	if len(s.from) == 0 {
		w.AddError(kiwiq.NewStructureError("select: no FROM table"))
		return
	}
	w.Keyword("SELECT")
	if s.distinct {
		w.Keyword("DISTINCT")
	}
	w.PushContext(Aliased)
	if len(s.columns) == 0 {
		w.Raw("*")
	}
	for i, c := range s.columns {
		if i > 0 {
			w.Comma()
		}
		projection(w, c)
	}
	w.PopContext()

	w.PushContext(Declaration)
	w.Keyword("FROM")
	for i, t := range s.from {
		if i > 0 {
			w.Comma()
		}
		w.Render(t)
	}
	w.PopContext()
	w.Render(&s.joins)

	w.PushContext(Aliased)
	w.Render(&s.where)
	w.Render(&s.order)
	w.Render(&s.limit)
	w.PopContext()
}

// Fetch runs the selection and returns a forward-only reader over the
// resulting rows. The caller must close the reader.
func (s *Selector) Fetch(ctx context.Context) (*Reader, error) {
	conn, err := s.connection("select")
	if err != nil {
		return nil, err
	}
	query, args, err := s.Query()
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := conn.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return NewReader(rows)
}

// Scalar runs the selection and returns the first column of the first row,
// or nil if there is no row.
func (s *Selector) Scalar(ctx context.Context) (any, error) {
	r, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if !r.Next() {
		return nil, r.Err()
	}
	return r.Record().Value(0)
}
