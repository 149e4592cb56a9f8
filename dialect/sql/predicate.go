package sql

// LogicalOp is the operator of an n-ary logical predicate.
type LogicalOp int

const (
	// OpAnd is the conjunction operator.
	OpAnd LogicalOp = iota
	// OpOr is the disjunction operator.
	OpOr
)

// String returns the SQL keyword of the operator.
func (op LogicalOp) String() string {
	if op == OpOr {
		return "OR"
	}
	return "AND"
}

// Predicate is a boolean-valued expression.
type Predicate interface {
	Value
	// RelativeTo returns the operands the predicate contributes when it is
	// combined with op. A logical predicate with the same operator
	// contributes its own operands, everything else contributes itself.
	RelativeTo(op LogicalOp) []Predicate
}

// Comparison is a binary comparison.
type Comparison struct {
	op       string
	lhs, rhs Value
}

// AppendSQL implements Value.
func (c *Comparison) AppendSQL(w *Writer) {
	w.Render(c.lhs).Op(c.op).Render(c.rhs)
}

// RelativeTo implements Predicate. A nil comparison contributes nothing.
func (c *Comparison) RelativeTo(LogicalOp) []Predicate {
	if c == nil {
		return nil
	}
	return []Predicate{c}
}

func compare(op string, lhs Value, rhs any) *Comparison {
	return &Comparison{op: op, lhs: lhs, rhs: valueOf(rhs)}
}

// EQ returns lhs = rhs. A nil rhs yields lhs IS NULL.
func EQ(lhs Value, rhs any) Predicate {
	if rhs == nil {
		return IsNull(lhs)
	}
	return compare("=", lhs, rhs)
}

// NEQ returns lhs <> rhs. A nil rhs yields lhs IS NOT NULL.
func NEQ(lhs Value, rhs any) Predicate {
	if rhs == nil {
		return NotNull(lhs)
	}
	return compare("<>", lhs, rhs)
}

// LT returns lhs < rhs.
func LT(lhs Value, rhs any) Predicate { return compare("<", lhs, rhs) }

// LTE returns lhs <= rhs.
func LTE(lhs Value, rhs any) Predicate { return compare("<=", lhs, rhs) }

// GT returns lhs > rhs.
func GT(lhs Value, rhs any) Predicate { return compare(">", lhs, rhs) }

// GTE returns lhs >= rhs.
func GTE(lhs Value, rhs any) Predicate { return compare(">=", lhs, rhs) }

// Like returns lhs LIKE pattern.
func Like(lhs Value, pattern any) Predicate { return compare("LIKE", lhs, pattern) }

// NotLike returns lhs NOT LIKE pattern.
func NotLike(lhs Value, pattern any) Predicate { return compare("NOT LIKE", lhs, pattern) }

// IsNull returns v IS NULL.
func IsNull(v Value) Predicate { return &Comparison{op: "IS", lhs: v, rhs: Null} }

// NotNull returns v IS NOT NULL.
func NotNull(v Value) Predicate { return &Comparison{op: "IS NOT", lhs: v, rhs: Null} }

// In returns v IN (values...). An empty list yields the false constant.
func In(v Value, values ...any) Predicate {
	if len(values) == 0 {
		return False()
	}
	return &Comparison{op: "IN", lhs: v, rhs: listOf(values)}
}

// NotIn returns v NOT IN (values...). An empty list yields the true constant.
func NotIn(v Value, values ...any) Predicate {
	if len(values) == 0 {
		return True()
	}
	return &Comparison{op: "NOT IN", lhs: v, rhs: listOf(values)}
}

// InQuery returns v IN (SELECT ...).
func InQuery(v Value, s *Selector) Predicate {
	return &Comparison{op: "IN", lhs: v, rhs: SubSelect(s)}
}

func listOf(values []any) list {
	l := make(list, len(values))
	for i, v := range values {
		l[i] = valueOf(v)
	}
	return l
}

// Logical is an n-ary AND or OR. Nested logical predicates with the same
// operator are flattened when the predicate is built.
type Logical struct {
	op       LogicalOp
	operands []Predicate
}

// nilPredicate reports whether p is nil or a nil pointer predicate.
func nilPredicate(p Predicate) bool {
	switch p := p.(type) {
	case nil:
		return true
	case *Logical:
		return p == nil
	case *Comparison:
		return p == nil
	}
	return false
}

func logical(op LogicalOp, preds []Predicate) *Logical {
	l := &Logical{op: op}
	for _, p := range preds {
		if nilPredicate(p) {
			continue
		}
		l.operands = append(l.operands, p.RelativeTo(op)...)
	}
	return l
}

// And returns the conjunction of preds. Nil operands, typed nils included,
// are ignored.
func And(preds ...Predicate) *Logical { return logical(OpAnd, preds) }

// Or returns the disjunction of preds. Nil operands, typed nils included,
// are ignored.
func Or(preds ...Predicate) *Logical { return logical(OpOr, preds) }

// Op returns the operator of the predicate.
func (l *Logical) Op() LogicalOp { return l.op }

// Operands returns the flattened operands.
func (l *Logical) Operands() []Predicate { return l.operands }

// RelativeTo implements Predicate. A nil logical predicate contributes
// nothing.
func (l *Logical) RelativeTo(op LogicalOp) []Predicate {
	if l == nil {
		return nil
	}
	if l.op == op {
		return l.operands
	}
	return []Predicate{l}
}

// AppendSQL renders the identity constant for no operand, the bare operand
// for one, and bracketed operands otherwise.
func (l *Logical) AppendSQL(w *Writer) {
	switch len(l.operands) {
	case 0:
		if l.op == OpAnd {
			w.True()
		} else {
			w.False()
		}
	case 1:
		w.Render(l.operands[0])
	default:
		for i, p := range l.operands {
			if i > 0 {
				w.Keyword(l.op.String())
			}
			w.Open().Render(p).Close()
		}
	}
}

type notPredicate struct{ p Predicate }

// Not returns NOT (p).
func Not(p Predicate) Predicate { return notPredicate{p: p} }

func (n notPredicate) AppendSQL(w *Writer) {
	w.Keyword("NOT").Open().Render(n.p).Close()
}

func (n notPredicate) RelativeTo(LogicalOp) []Predicate { return []Predicate{n} }

type boolPredicate bool

// Bool returns the constant predicate b.
func Bool(b bool) Predicate { return boolPredicate(b) }

// True returns the always-true predicate.
func True() Predicate { return boolPredicate(true) }

// False returns the always-false predicate.
func False() Predicate { return boolPredicate(false) }

func (b boolPredicate) AppendSQL(w *Writer) {
	if b {
		w.True()
	} else {
		w.False()
	}
}

func (b boolPredicate) RelativeTo(LogicalOp) []Predicate { return []Predicate{b} }

type rawPredicate string

// Expr returns a predicate rendered verbatim.
func Expr(sql string) Predicate { return rawPredicate(sql) }

func (r rawPredicate) AppendSQL(w *Writer) { w.Raw(string(r)) }

func (r rawPredicate) RelativeTo(LogicalOp) []Predicate { return []Predicate{r} }

// TypedColumn is a column whose comparison methods only accept values of V.
//
// Usage:
//
//	var Name = sql.Typed[string](fruits.C("NAME"))
//	sel.Where(Name.EQ("apple"))
type TypedColumn[V any] struct {
	*Column
}

// Typed returns c as a typed column.
func Typed[V any](c *Column) TypedColumn[V] { return TypedColumn[V]{Column: c} }

// EQ returns a predicate that checks if the column equals v.
func (c TypedColumn[V]) EQ(v V) Predicate { return EQ(c.Column, v) }

// NEQ returns a predicate that checks if the column does not equal v.
func (c TypedColumn[V]) NEQ(v V) Predicate { return NEQ(c.Column, v) }

// LT returns a predicate that checks if the column is less than v.
func (c TypedColumn[V]) LT(v V) Predicate { return LT(c.Column, v) }

// LTE returns a predicate that checks if the column is at most v.
func (c TypedColumn[V]) LTE(v V) Predicate { return LTE(c.Column, v) }

// GT returns a predicate that checks if the column is greater than v.
func (c TypedColumn[V]) GT(v V) Predicate { return GT(c.Column, v) }

// GTE returns a predicate that checks if the column is at least v.
func (c TypedColumn[V]) GTE(v V) Predicate { return GTE(c.Column, v) }

// In returns a predicate that checks if the column value is in vs.
func (c TypedColumn[V]) In(vs ...V) Predicate { return In(c.Column, anySlice(vs)...) }

// NotIn returns a predicate that checks if the column value is not in vs.
func (c TypedColumn[V]) NotIn(vs ...V) Predicate { return NotIn(c.Column, anySlice(vs)...) }

// IsNull returns a predicate that checks if the column is NULL.
func (c TypedColumn[V]) IsNull() Predicate { return IsNull(c.Column) }

// NotNull returns a predicate that checks if the column is not NULL.
func (c TypedColumn[V]) NotNull() Predicate { return NotNull(c.Column) }

func anySlice[V any](vs []V) []any {
	v := make([]any, len(vs))
	for i := range vs {
		v[i] = vs[i]
	}
	return v
}
