package sql

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/louisdevie/kiwiq"
)

// NoAutoID is the id returned by an insert when the database reports no
// generated integer id.
const NoAutoID int64 = -1

// assignments is an ordered list of column values where setting a column
// again replaces its value.
type assignments struct {
	columns []string
	values  []Value
}

func (a *assignments) set(column string, v any) {
	for i, c := range a.columns {
		if c == column {
			a.values[i] = valueOf(v)
			return
		}
	}
	a.columns = append(a.columns, column)
	a.values = append(a.values, valueOf(v))
}

// InsertBuilder is an INSERT command of a single row.
type InsertBuilder struct {
	command
	table *Table
	assignments
}

// Set sets the value of a column. Setting a column again replaces the
// previous value.
func (i *InsertBuilder) Set(column string, v any) *InsertBuilder {
	i.set(column, v)
	return i
}

// Columns returns the inserted columns in order.
func (i *InsertBuilder) Columns() []string { return i.columns }

// Query returns the query text and its arguments.
func (i *InsertBuilder) Query() (string, []any, error) {
	return i.render(func(w *Writer) {
		if len(i.columns) == 0 {
			w.AddError(kiwiq.NewStructureError("insert: no column to insert"))
			return
		}
		w.PushContext(Canonical)
		w.Keyword("INSERT INTO").Render(i.table).Open()
		for n, c := range i.columns {
			if n > 0 {
				w.Comma()
			}
			w.Ident(c)
		}
		w.Close().Keyword("VALUES").Open()
		for n, v := range i.values {
			if n > 0 {
				w.Comma()
			}
			w.Render(v)
		}
		w.Close()
		w.PopContext()
	})
}

// Apply runs the insert and returns the id generated by the database, or
// NoAutoID. The insert and the id query share one connection.
func (i *InsertBuilder) Apply(ctx context.Context) (id int64, rerr error) {
	conn, err := i.connection("insert")
	if err != nil {
		return NoAutoID, err
	}
	query, args, err := i.Query()
	if err != nil {
		return NoAutoID, err
	}
	style, err := StyleOf(i.dialect)
	if err != nil {
		return NoAutoID, err
	}
	ex, release, err := pin(ctx, conn)
	if err != nil {
		return NoAutoID, err
	}
	defer func() { rerr = errors.Join(rerr, release()) }()

	var res Result
	if err := ex.Exec(ctx, query, args, &res); err != nil {
		return NoAutoID, wrapExecError(err)
	}
	idQuery := style.LastInsertIDQuery()
	if idQuery == "" {
		return NoAutoID, nil
	}
	rows := &Rows{}
	if err := ex.Query(ctx, idQuery, []any{}, rows); err != nil {
		if isNoLastID(err) {
			return NoAutoID, nil
		}
		return NoAutoID, err
	}
	r, err := NewReader(rows)
	if err != nil {
		return NoAutoID, err
	}
	defer r.Close()
	if !r.Next() {
		return NoAutoID, r.Err()
	}
	v, err := r.Record().Value(0)
	if err != nil {
		return NoAutoID, err
	}
	return normalizeID(v), nil
}

// normalizeID converts a driver value to an int64 id, or NoAutoID if the
// value is not integral.
func normalizeID(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return NoAutoID
		}
		return int64(v)
	case uint32:
		return int64(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return NoAutoID
		}
		return int64(v)
	case []byte:
		return parseID(string(v))
	case string:
		return parseID(v)
	default:
		return NoAutoID
	}
}

func parseID(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NoAutoID
	}
	return n
}
