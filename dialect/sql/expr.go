package sql

// Value is a node of the expression tree that renders itself into a writer.
type Value interface {
	AppendSQL(w *Writer)
}

// Table is a table reference with an optional alias.
type Table struct {
	name  string
	alias string
}

// T returns a table reference.
func T(name string) *Table { return &Table{name: name} }

// As sets the alias of the table and returns it.
func (t *Table) As(alias string) *Table {
	t.alias = alias
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Alias returns the table alias, or "" if it has none.
func (t *Table) Alias() string { return t.alias }

// C returns a column qualified by the table.
func (t *Table) C(name string) *Column { return &Column{name: name, table: t} }

// All returns the t.* projection.
func (t *Table) All() Value { return allColumns{table: t} }

// AppendSQL renders the table according to the writer's name context.
func (t *Table) AppendSQL(w *Writer) {
	switch w.Context() {
	case Declaration:
		w.Ident(t.name)
		if t.alias != "" {
			w.Keyword("AS").Ident(t.alias)
		}
	case Aliased:
		w.Ident(t.ref())
	default:
		w.Ident(t.name)
	}
}

// qualifier renders the table as the prefix of one of its columns.
func (t *Table) qualifier(w *Writer) {
	if w.Context() == Canonical {
		w.Ident(t.name)
	} else {
		w.Ident(t.ref())
	}
}

func (t *Table) ref() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// Column is a column reference, optionally qualified by a table and
// aliased in the projection.
type Column struct {
	name  string
	table *Table
	alias string
}

// C returns an unqualified column reference.
func C(name string) *Column { return &Column{name: name} }

// As sets the projection alias of the column and returns it.
func (c *Column) As(alias string) *Column {
	c.alias = alias
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Table returns the qualifying table, or nil.
func (c *Column) Table() *Table { return c.table }

// Alias returns the projection alias, or "".
func (c *Column) Alias() string { return c.alias }

// AppendSQL renders the column. The alias is written by the projection only.
func (c *Column) AppendSQL(w *Writer) {
	if c.table != nil {
		c.table.qualifier(w)
		w.Dot()
	}
	w.Ident(c.name)
}

type allColumns struct{ table *Table }

func (a allColumns) AppendSQL(w *Writer) {
	if a.table != nil {
		a.table.qualifier(w)
		w.Dot()
	}
	w.Raw("*")
}

// All is the * projection.
var All Value = allColumns{}

// Null is the NULL literal.
var Null Value = nullValue{}

type nullValue struct{}

func (nullValue) AppendSQL(w *Writer) { w.Keyword("NULL") }

// Param is a bound parameter value.
type Param struct {
	value any
}

// P returns a bound parameter for v.
func P(v any) *Param { return &Param{value: v} }

// AppendSQL registers the value on the writer and renders its placeholder.
func (p *Param) AppendSQL(w *Writer) { w.Value(p.value) }

// Raw returns a value rendered verbatim.
func Raw(s string) Value { return rawValue(s) }

type rawValue string

func (r rawValue) AppendSQL(w *Writer) { w.Raw(string(r)) }

// FuncCall is a function applied to arguments.
type FuncCall struct {
	name string
	args []Value
}

// Func returns a function call.
func Func(name string, args ...Value) *FuncCall {
	return &FuncCall{name: name, args: args}
}

// AppendSQL implements Value.
func (f *FuncCall) AppendSQL(w *Writer) {
	w.Call(f.name)
	for i, a := range f.args {
		if i > 0 {
			w.Comma()
		}
		w.Render(a)
	}
	w.Close()
}

// Count returns COUNT(v), or COUNT(*) when v is nil.
func Count(v Value) *FuncCall {
	if v == nil {
		v = All
	}
	return Func("COUNT", v)
}

// Max returns MAX(v).
func Max(v Value) *FuncCall { return Func("MAX", v) }

// Min returns MIN(v).
func Min(v Value) *FuncCall { return Func("MIN", v) }

// Sum returns SUM(v).
func Sum(v Value) *FuncCall { return Func("SUM", v) }

// Avg returns AVG(v).
func Avg(v Value) *FuncCall { return Func("AVG", v) }

// Lower returns LOWER(v).
func Lower(v Value) *FuncCall { return Func("LOWER", v) }

// Upper returns UPPER(v).
func Upper(v Value) *FuncCall { return Func("UPPER", v) }

// Coalesce returns COALESCE(vs...).
func Coalesce(vs ...Value) *FuncCall { return Func("COALESCE", vs...) }

// Arithmetic is a binary arithmetic expression. It renders bracketed.
type Arithmetic struct {
	op       string
	lhs, rhs Value
}

// Add returns (lhs + rhs).
func Add(lhs Value, rhs any) *Arithmetic { return &Arithmetic{"+", lhs, valueOf(rhs)} }

// Sub returns (lhs - rhs).
func Sub(lhs Value, rhs any) *Arithmetic { return &Arithmetic{"-", lhs, valueOf(rhs)} }

// Mul returns (lhs * rhs).
func Mul(lhs Value, rhs any) *Arithmetic { return &Arithmetic{"*", lhs, valueOf(rhs)} }

// Div returns (lhs / rhs).
func Div(lhs Value, rhs any) *Arithmetic { return &Arithmetic{"/", lhs, valueOf(rhs)} }

// Mod returns (lhs % rhs).
func Mod(lhs Value, rhs any) *Arithmetic { return &Arithmetic{"%", lhs, valueOf(rhs)} }

// AppendSQL implements Value.
func (a *Arithmetic) AppendSQL(w *Writer) {
	w.Open().Render(a.lhs).Op(a.op).Render(a.rhs).Close()
}

// SubQuery is a bracketed SELECT used as a value.
type SubQuery struct {
	sel *Selector
}

// SubSelect returns s as a value.
func SubSelect(s *Selector) *SubQuery { return &SubQuery{sel: s} }

// AppendSQL implements Value.
func (q *SubQuery) AppendSQL(w *Writer) {
	w.Open()
	q.sel.appendSQL(w)
	w.Close()
}

// aliasedValue renders a value followed by its alias.
type aliasedValue struct {
	v     Value
	alias string
}

// As returns v aliased in the projection.
func As(v Value, alias string) Value { return aliasedValue{v: v, alias: alias} }

func (a aliasedValue) AppendSQL(w *Writer) {
	w.Render(a.v)
	if a.alias != "" {
		w.Keyword("AS").Ident(a.alias)
	}
}

// projection renders one item of a SELECT list.
func projection(w *Writer, v Value) {
	w.Render(v)
	if c, ok := v.(*Column); ok && c.alias != "" {
		w.Keyword("AS").Ident(c.alias)
	}
}

// valueOf wraps plain Go values as bound parameters.
func valueOf(v any) Value {
	switch v := v.(type) {
	case nil:
		return Null
	case Value:
		return v
	default:
		return P(v)
	}
}

// list renders comma-separated values inside brackets.
type list []Value

func (l list) AppendSQL(w *Writer) {
	w.Open()
	for i, v := range l {
		if i > 0 {
			w.Comma()
		}
		w.Render(v)
	}
	w.Close()
}
