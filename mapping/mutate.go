package mapping

import (
	"context"
	"reflect"
	"slices"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect/sql"
)

// override is an explicit column value.
type override struct {
	column string
	value  any
}

// mutation is the state shared by mapped INSERT, UPDATE and DELETE commands.
type mutation[T any] struct {
	schema    *Schema
	mapper    *EntityMapper
	overrides []override
	err       error
}

func newMutation[T any](s *Schema) mutation[T] {
	m := mutation[T]{schema: s}
	m.mapper, m.err = MapperOf[T](s)
	return m
}

func (m *mutation[T]) addError(err error) {
	if err != nil && m.err == nil {
		m.err = err
	}
}

func (m *mutation[T]) set(column string, v any) {
	m.overrides = append(m.overrides, override{column: column, value: v})
}

// table returns the unaliased table of T.
func (m *mutation[T]) table() *sql.Table { return sql.T(m.mapper.table.Name()) }

func (m *mutation[T]) entity() string { return kiwiq.TypeName(reflect.TypeFor[T]()) }

func (m *mutation[T]) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return kiwiq.NewMutationError(m.entity(), op, err)
}

// InsertCommand inserts one entity of type T.
type InsertCommand[T any] struct {
	mutation[T]
	value *T
}

// Insert returns a command inserting an entity of type T.
//
//	fruit := &Fruit{Name: "Lemon", Color: "Yellow"}
//	_, err := mapping.Insert[Fruit](s).Entity(fruit).Apply(ctx)
//	// fruit.ID holds the generated key.
func Insert[T any](s *Schema) *InsertCommand[T] {
	return &InsertCommand[T]{mutation: newMutation[T](s)}
}

// Entity sets the entity whose insertable fields are inserted. It can only
// be called once.
func (c *InsertCommand[T]) Entity(v *T) *InsertCommand[T] {
	if c.value != nil {
		c.addError(kiwiq.NewUsageError("insert", "entity already set"))
		return c
	}
	c.value = v
	return c
}

// Set sets the value of a column, overriding the value taken from the
// entity.
func (c *InsertCommand[T]) Set(column string, v any) *InsertCommand[T] {
	c.set(column, v)
	return c
}

func (c *InsertCommand[T]) builder() (*sql.InsertBuilder, error) {
	if c.err != nil {
		return nil, c.err
	}
	b := c.schema.builder().InsertInto(c.table())
	if c.value != nil {
		columns, values, err := c.mapper.values(reflect.ValueOf(c.value).Elem(), func(f *Field) bool {
			return f.Insertable
		})
		if err != nil {
			return nil, err
		}
		for i, col := range columns {
			b.Set(col, values[i])
		}
	}
	for _, o := range c.overrides {
		b.Set(o.column, o.value)
	}
	return b, nil
}

// Query returns the query text and its arguments.
func (c *InsertCommand[T]) Query() (string, []any, error) {
	b, err := c.builder()
	if err != nil {
		return "", nil, err
	}
	return b.Query()
}

// Apply runs the insert and returns the generated id, or sql.NoAutoID. The
// id is written back into a generated integer key of the entity.
func (c *InsertCommand[T]) Apply(ctx context.Context) (int64, error) {
	b, err := c.builder()
	if err != nil {
		return sql.NoAutoID, c.wrap("insert", err)
	}
	id, err := b.Apply(ctx)
	if err != nil {
		return sql.NoAutoID, c.wrap("insert", err)
	}
	if c.value != nil {
		c.mapper.key.writeBack(reflect.ValueOf(c.value).Elem(), id)
	}
	return id, nil
}

// UpdateCommand updates entities of type T.
type UpdateCommand[T any] struct {
	mutation[T]
	value *T
	keep  func(*Field) bool
	where sql.WhereClause
}

// Update returns a command updating entities of type T. Values come from
// one entity source (All, Insertable, Only or Except) and from Set.
//
//	n, err := mapping.Update[Fruit](s).Only(fruit, "Color").ByKey().Apply(ctx)
func Update[T any](s *Schema) *UpdateCommand[T] {
	return &UpdateCommand[T]{mutation: newMutation[T](s)}
}

func (c *UpdateCommand[T]) source(v *T, keep func(*Field) bool) *UpdateCommand[T] {
	if c.value != nil {
		c.addError(kiwiq.NewUsageError("update source", "entity source already selected"))
		return c
	}
	if v == nil {
		c.addError(kiwiq.NewUsageError("update source", "nil entity"))
		return c
	}
	c.value, c.keep = v, keep
	return c
}

// All sets every field of v.
func (c *UpdateCommand[T]) All(v *T) *UpdateCommand[T] {
	return c.source(v, func(*Field) bool { return true })
}

// Insertable sets the fields of v not tagged readonly.
func (c *UpdateCommand[T]) Insertable(v *T) *UpdateCommand[T] {
	return c.source(v, func(f *Field) bool { return f.Insertable })
}

// Only sets the fields of v with the given Go or column names.
func (c *UpdateCommand[T]) Only(v *T, fields ...string) *UpdateCommand[T] {
	if !c.known(fields) {
		return c
	}
	return c.source(v, func(f *Field) bool { return named(f, fields) })
}

// Except sets the fields of v except the ones with the given Go or column
// names.
func (c *UpdateCommand[T]) Except(v *T, fields ...string) *UpdateCommand[T] {
	if !c.known(fields) {
		return c
	}
	return c.source(v, func(f *Field) bool { return !named(f, fields) })
}

func (c *UpdateCommand[T]) known(fields []string) bool {
	if c.mapper == nil {
		return false
	}
	for _, name := range fields {
		if _, ok := c.mapper.Field(name); !ok {
			c.addError(kiwiq.NewUsageError("update source", "unknown field "+name))
			return false
		}
	}
	return true
}

func named(f *Field, names []string) bool {
	return slices.Contains(names, f.Name) || slices.Contains(names, f.Column)
}

// Set sets the value of a column, overriding the value taken from the
// entity.
func (c *UpdateCommand[T]) Set(column string, v any) *UpdateCommand[T] {
	c.set(column, v)
	return c
}

// Where sets the condition of the update.
func (c *UpdateCommand[T]) Where(p sql.Predicate) *UpdateCommand[T] {
	c.addError(c.where.Set(p))
	return c
}

// ByKey restricts the update to the source entity, matched by its primary
// key.
func (c *UpdateCommand[T]) ByKey() *UpdateCommand[T] {
	if c.err != nil {
		return c
	}
	if c.value == nil {
		c.addError(kiwiq.NewUsageError("update", "ByKey requires an entity source"))
		return c
	}
	p, err := c.mapper.key.matchEntity(reflect.ValueOf(c.value).Elem())
	if err != nil {
		c.addError(err)
		return c
	}
	return c.Where(p)
}

func (c *UpdateCommand[T]) builder() (*sql.UpdateBuilder, error) {
	if c.err != nil {
		return nil, c.err
	}
	b := c.schema.builder().Update(c.table())
	if c.value != nil {
		columns, values, err := c.mapper.values(reflect.ValueOf(c.value).Elem(), c.keep)
		if err != nil {
			return nil, err
		}
		for i, col := range columns {
			b.Set(col, values[i])
		}
	}
	for _, o := range c.overrides {
		b.Set(o.column, o.value)
	}
	if p := c.where.Predicate(); p != nil {
		b.Where(p)
	}
	return b, nil
}

// Query returns the query text and its arguments.
func (c *UpdateCommand[T]) Query() (string, []any, error) {
	b, err := c.builder()
	if err != nil {
		return "", nil, err
	}
	return b.Query()
}

// Apply runs the update and returns the number of affected rows.
func (c *UpdateCommand[T]) Apply(ctx context.Context) (int64, error) {
	b, err := c.builder()
	if err != nil {
		return 0, c.wrap("update", err)
	}
	n, err := b.Apply(ctx)
	return n, c.wrap("update", err)
}

// DeleteCommand deletes entities of type T.
type DeleteCommand[T any] struct {
	mutation[T]
	where sql.WhereClause
}

// Delete returns a command deleting entities of type T.
func Delete[T any](s *Schema) *DeleteCommand[T] {
	return &DeleteCommand[T]{mutation: newMutation[T](s)}
}

// Where sets the condition of the delete.
func (c *DeleteCommand[T]) Where(p sql.Predicate) *DeleteCommand[T] {
	c.addError(c.where.Set(p))
	return c
}

// Entity restricts the delete to v, matched by its primary key.
func (c *DeleteCommand[T]) Entity(v *T) *DeleteCommand[T] {
	if c.err != nil {
		return c
	}
	if v == nil {
		c.addError(kiwiq.NewUsageError("delete", "nil entity"))
		return c
	}
	p, err := c.mapper.key.matchEntity(reflect.ValueOf(v).Elem())
	if err != nil {
		c.addError(err)
		return c
	}
	return c.Where(p)
}

func (c *DeleteCommand[T]) builder() (*sql.DeleteBuilder, error) {
	if c.err != nil {
		return nil, c.err
	}
	b := c.schema.builder().DeleteFrom(c.table())
	if p := c.where.Predicate(); p != nil {
		b.Where(p)
	}
	return b, nil
}

// Query returns the query text and its arguments.
func (c *DeleteCommand[T]) Query() (string, []any, error) {
	b, err := c.builder()
	if err != nil {
		return "", nil, err
	}
	return b.Query()
}

// Apply runs the delete and returns the number of affected rows.
func (c *DeleteCommand[T]) Apply(ctx context.Context) (int64, error) {
	b, err := c.builder()
	if err != nil {
		return 0, c.wrap("delete", err)
	}
	n, err := b.Apply(ctx)
	return n, c.wrap("delete", err)
}
