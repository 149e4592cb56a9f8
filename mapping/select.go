package mapping

import (
	"context"
	"reflect"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect/sql"
)

// SelectCommand selects entities of type T.
type SelectCommand[T any] struct {
	schema *Schema
	mapper *EntityMapper
	sel    *sql.Selector
	err    error
}

// Select returns a command selecting every entity of type T. The
// projection covers the fields of T and of its eager references.
func Select[T any](s *Schema) *SelectCommand[T] {
	c := &SelectCommand[T]{schema: s}
	c.mapper, c.err = MapperOf[T](s)
	if c.err == nil {
		c.sel = c.mapper.selector(s.builder())
	}
	return c
}

// Where sets the condition of the selection.
func (c *SelectCommand[T]) Where(p sql.Predicate) *SelectCommand[T] {
	if c.sel != nil {
		c.sel.Where(p)
	}
	return c
}

// OrderBy appends ordering items.
func (c *SelectCommand[T]) OrderBy(orders ...sql.Order) *SelectCommand[T] {
	if c.sel != nil {
		c.sel.OrderBy(orders...)
	}
	return c
}

// Limit sets the maximum number of entities.
func (c *SelectCommand[T]) Limit(n int) *SelectCommand[T] {
	if c.sel != nil {
		c.sel.Limit(n)
	}
	return c
}

// Offset sets the number of entities to skip. Limit must be called first.
func (c *SelectCommand[T]) Offset(n int) *SelectCommand[T] {
	if c.sel != nil {
		c.sel.Offset(n)
	}
	return c
}

// Table returns the aliased table of T.
func (c *SelectCommand[T]) Table() *sql.Table {
	if c.mapper == nil {
		return nil
	}
	return c.mapper.table
}

// Column returns the column of the field with the given Go or column name.
func (c *SelectCommand[T]) Column(name string) *sql.Column {
	if c.mapper == nil {
		return sql.C(name)
	}
	return c.mapper.Column(name)
}

// Query returns the query text and its arguments.
func (c *SelectCommand[T]) Query() (string, []any, error) {
	if c.err != nil {
		return "", nil, c.err
	}
	return c.sel.Query()
}

func (c *SelectCommand[T]) entity() string { return kiwiq.TypeName(reflect.TypeFor[T]()) }

// Fetch runs the selection and returns a cursor materializing one entity
// per row. The caller must close the cursor.
func (c *SelectCommand[T]) Fetch(ctx context.Context) (*Cursor[T], error) {
	if c.err != nil {
		return nil, c.err
	}
	r, err := c.sel.Fetch(ctx)
	if err != nil {
		return nil, kiwiq.NewQueryError(c.entity(), "select", err)
	}
	return &Cursor[T]{reader: r, mapper: c.mapper, schema: c.schema}, nil
}

// FetchList runs the selection and returns every entity.
func (c *SelectCommand[T]) FetchList(ctx context.Context) ([]*T, error) {
	cur, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	var list []*T
	for cur.Next() {
		list = append(list, cur.Entity())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// FetchFirst runs the selection and returns its first entity. It returns a
// NotFoundError when there is none. A selection without a limit is limited
// to one row.
func (c *SelectCommand[T]) FetchFirst(ctx context.Context) (*T, error) {
	if c.sel != nil {
		if _, ok := c.sel.Limits().Limit(); !ok {
			c.sel.Limit(1)
		}
	}
	cur, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	if !cur.Next() {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, kiwiq.NewNotFoundError(c.entity(), nil)
	}
	return cur.Entity(), nil
}

// Get returns the entity of type T with the given key. It returns a
// NotFoundError carrying the key when there is none.
func Get[T any](ctx context.Context, s *Schema, key any) (*T, error) {
	m, err := MapperOf[T](s)
	if err != nil {
		return nil, err
	}
	v, err := s.get(ctx, m, key)
	if err != nil {
		return nil, err
	}
	return v.Interface().(*T), nil
}

// Cursor is a forward-only cursor over selected entities.
type Cursor[T any] struct {
	reader  *sql.Reader
	mapper  *EntityMapper
	schema  *Schema
	current *T
	err     error
}

// Next materializes the next entity. It returns false at the end of the
// rows or on error.
func (c *Cursor[T]) Next() bool {
	if c.err != nil || !c.reader.Next() {
		return false
	}
	v, err := c.mapper.read(c.reader.Record(), 0, c.schema.loader)
	if err != nil {
		c.err = kiwiq.NewQueryError(kiwiq.TypeName(c.mapper.typ), "select", err)
		c.reader.Close()
		return false
	}
	c.current = v.Interface().(*T)
	return true
}

// Entity returns the current entity.
func (c *Cursor[T]) Entity() *T { return c.current }

// Err returns the error that stopped the iteration, if any.
func (c *Cursor[T]) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.reader.Err(); err != nil {
		return kiwiq.NewQueryError(kiwiq.TypeName(c.mapper.typ), "select", err)
	}
	return nil
}

// Reset always fails: cursors cannot be rewound.
func (c *Cursor[T]) Reset() error {
	return kiwiq.NewUsageError("cursor", "cursors are forward-only and cannot be reset")
}

// Close closes the cursor.
func (c *Cursor[T]) Close() error { return c.reader.Close() }
