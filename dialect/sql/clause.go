package sql

import (
	"strconv"

	"github.com/louisdevie/kiwiq"
)

// WhereClause holds the condition of a command. It can be set only once.
type WhereClause struct {
	pred Predicate
}

// Set sets the condition. It fails without side effects if a condition is
// already set.
func (c *WhereClause) Set(p Predicate) error {
	if c.pred != nil {
		return kiwiq.NewUsageError("where", "condition already set")
	}
	if nilPredicate(p) {
		return kiwiq.NewUsageError("where", "nil condition")
	}
	c.pred = p
	return nil
}

// Predicate returns the condition, or nil.
func (c *WhereClause) Predicate() Predicate { return c.pred }

// AppendSQL implements Value.
func (c *WhereClause) AppendSQL(w *Writer) {
	if c.pred != nil {
		w.Keyword("WHERE").Render(c.pred)
	}
}

// JoinKind is the kind of a join.
type JoinKind int

const (
	// InnerJoin keeps only matching rows.
	InnerJoin JoinKind = iota
	// LeftJoin keeps unmatched rows of the left side.
	LeftJoin
)

// String returns the SQL keywords of the join kind.
func (k JoinKind) String() string {
	if k == LeftJoin {
		return "LEFT JOIN"
	}
	return "INNER JOIN"
}

// Join is one join of a JoinClause.
type Join struct {
	Kind        JoinKind
	Table       *Table
	Left, Right *Column
}

// JoinClause holds the joins of a SELECT. Joins can only be appended.
type JoinClause struct {
	joins []Join
}

// Add appends a join of table on left = right.
func (c *JoinClause) Add(kind JoinKind, table *Table, left, right *Column) {
	c.joins = append(c.joins, Join{Kind: kind, Table: table, Left: left, Right: right})
}

// Len returns the number of joins.
func (c *JoinClause) Len() int { return len(c.joins) }

// Joins returns the joins in insertion order.
func (c *JoinClause) Joins() []Join { return c.joins }

// AppendSQL renders the joined tables as declarations and the conditions
// with aliases.
func (c *JoinClause) AppendSQL(w *Writer) {
	for _, j := range c.joins {
		w.Keyword(j.Kind.String())
		w.PushContext(Declaration).Render(j.Table).PopContext()
		w.Keyword("ON")
		w.PushContext(Aliased)
		w.Render(j.Left).Op("=").Render(j.Right)
		w.PopContext()
	}
}

// LimitClause holds the LIMIT and OFFSET of a SELECT. An offset requires a
// limit, and once both are set the pair cannot change.
type LimitClause struct {
	limit, offset int
	hasLimit      bool
	hasOffset     bool
}

// SetLimit sets the limit.
func (c *LimitClause) SetLimit(n int) error {
	switch {
	case c.hasOffset:
		return kiwiq.NewUsageError("limit", "limit and offset already set")
	case n < 0:
		return kiwiq.NewUsageError("limit", "negative limit")
	}
	c.limit, c.hasLimit = n, true
	return nil
}

// SetOffset sets the offset. The limit must be set first.
func (c *LimitClause) SetOffset(n int) error {
	switch {
	case c.hasOffset:
		return kiwiq.NewUsageError("offset", "limit and offset already set")
	case !c.hasLimit:
		return kiwiq.NewUsageError("offset", "offset requires a limit")
	case n < 0:
		return kiwiq.NewUsageError("offset", "negative offset")
	}
	c.offset, c.hasOffset = n, true
	return nil
}

// Set sets the limit and the offset together.
func (c *LimitClause) Set(limit, offset int) error {
	if c.hasLimit || c.hasOffset {
		return kiwiq.NewUsageError("limit", "limit already set")
	}
	if limit < 0 || offset < 0 {
		return kiwiq.NewUsageError("limit", "negative limit or offset")
	}
	c.limit, c.offset = limit, offset
	c.hasLimit, c.hasOffset = true, true
	return nil
}

// Page sets the limit and offset to select the given page, starting at 1.
func (c *LimitClause) Page(page, size int) error {
	if page < 1 || size < 1 {
		return kiwiq.NewUsageError("page", "page and size must be positive")
	}
	return c.Set(size, (page-1)*size)
}

// Limit returns the limit and whether it is set.
func (c *LimitClause) Limit() (int, bool) { return c.limit, c.hasLimit }

// Offset returns the offset and whether it is set.
func (c *LimitClause) Offset() (int, bool) { return c.offset, c.hasOffset }

// AppendSQL renders the clause with integer literals.
func (c *LimitClause) AppendSQL(w *Writer) {
	if c.hasLimit {
		w.Keyword("LIMIT").Raw(strconv.Itoa(c.limit))
	}
	if c.hasOffset {
		w.Keyword("OFFSET").Raw(strconv.Itoa(c.offset))
	}
}

// Order is one item of an ORDER BY.
type Order struct {
	Value Value
	Desc  bool
}

// Asc returns v in ascending order.
func Asc(v Value) Order { return Order{Value: v} }

// Desc returns v in descending order.
func Desc(v Value) Order { return Order{Value: v, Desc: true} }

// OrderClause holds the ORDER BY of a SELECT.
type OrderClause struct {
	items []Order
}

// Add appends ordering items.
func (c *OrderClause) Add(items ...Order) { c.items = append(c.items, items...) }

// Len returns the number of items.
func (c *OrderClause) Len() int { return len(c.items) }

// AppendSQL implements Value.
func (c *OrderClause) AppendSQL(w *Writer) {
	if len(c.items) == 0 {
		return
	}
	w.Keyword("ORDER BY")
	for i, o := range c.items {
		if i > 0 {
			w.Comma()
		}
		w.Render(o.Value)
		if o.Desc {
			w.Keyword("DESC")
		} else {
			w.Keyword("ASC")
		}
	}
}
