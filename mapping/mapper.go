package mapping

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"sync/atomic"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect/sql"
	"github.com/louisdevie/kiwiq/mapping/field"
)

// FieldKind is the kind of a mapped field.
type FieldKind int

// Field kinds.
const (
	// ValueField is stored in one column plus its meta-columns.
	ValueField FieldKind = iota
	// ReferenceField is an eagerly joined one-to-one reference.
	ReferenceField
	// LazyReferenceField is a Ref loaded on first access.
	LazyReferenceField
)

// String returns the field kind name.
func (k FieldKind) String() string {
	switch k {
	case ValueField:
		return "value"
	case ReferenceField:
		return "reference"
	case LazyReferenceField:
		return "lazy reference"
	}
	return "FieldKind(" + strconv.Itoa(int(k)) + ")"
}

// Field is one persisted struct field of an entity.
type Field struct {
	// Name is the Go field name.
	Name string
	// Column is the value column, or the local foreign key column of a
	// reference.
	Column string
	Kind   FieldKind
	// Insertable is false for fields tagged readonly.
	Insertable bool
	// Key is true for primary key fields.
	Key bool
	// Offset is the position of the first column of the field in the
	// projection of its entity.
	Offset int
	// Width is the number of projected columns of the field.
	Width int

	index []int
	typ   reflect.Type
	conv  field.Converter
	// Eager references.
	nested *EntityMapper
	// Lazy references.
	target    reflect.Type
	targetKey []int
	keyType   reflect.Type
}

// Type returns the Go type of the field.
func (f *Field) Type() reflect.Type { return f.typ }

// Nested returns the mapper of an eagerly joined reference.
func (f *Field) Nested() *EntityMapper { return f.nested }

// EntityMapper maps one entity type to its table. It is immutable once
// compiled and safe for concurrent use.
type EntityMapper struct {
	typ     reflect.Type
	table   *sql.Table
	fields  []*Field
	columns []*sql.Column
	joins   []sql.Join
	key     PrimaryKey
	ctor    func() reflect.Value
}

// Type returns the entity type.
func (m *EntityMapper) Type() reflect.Type { return m.typ }

// Table returns the aliased table of the entity.
func (m *EntityMapper) Table() *sql.Table { return m.table }

// Fields returns the mapped fields in declaration order.
func (m *EntityMapper) Fields() []*Field { return m.fields }

// Projection returns the columns a SELECT of the entity fetches, including
// the columns of eagerly joined references.
func (m *EntityMapper) Projection() []*sql.Column { return m.columns }

// ColumnNames returns the names of the projected columns.
func (m *EntityMapper) ColumnNames() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name()
	}
	return names
}

// Joins returns the joins contributed by eager references.
func (m *EntityMapper) Joins() []sql.Join { return m.joins }

// Key returns the primary key strategy of the entity.
func (m *EntityMapper) Key() PrimaryKey { return m.key }

// Field returns the field with the given Go name or column name.
func (m *EntityMapper) Field(name string) (*Field, bool) {
	for _, f := range m.fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range m.fields {
		if f.Column == name {
			return f, true
		}
	}
	return nil, false
}

// Column returns the column of the field with the given Go or column name,
// qualified by the entity table. Unknown names are used as column names.
func (m *EntityMapper) Column(name string) *sql.Column {
	if f, ok := m.Field(name); ok {
		return m.table.C(f.Column)
	}
	return m.table.C(name)
}

// New returns a pointer to a new entity, created by its constructor.
func (m *EntityMapper) New() any { return m.ctor().Interface() }

// selector returns a SELECT of the projection of the entity.
func (m *EntityMapper) selector(b sql.Builder) *sql.Selector {
	cols := make([]sql.Value, len(m.columns))
	for i, c := range m.columns {
		cols[i] = c
	}
	sel := b.Select(cols...).From(m.table)
	for _, j := range m.joins {
		sel.Joins().Add(j.Kind, j.Table, j.Left, j.Right)
	}
	return sel
}

var aliases atomic.Uint64

// nextAlias returns a process-unique table alias.
func nextAlias() string {
	return "e" + strconv.FormatUint(aliases.Add(1), 10)
}

// Compile builds an independent mapper for the struct type t. Schema caches
// the mappers it compiles, Compile does not.
func Compile(t reflect.Type, opts ...Option) (*EntityMapper, error) {
	return newOptions(opts).compile(t)
}

func (o *options) compile(t reflect.Type) (*EntityMapper, error) {
	c := &compiler{options: o}
	return c.compile(t)
}

// compiler holds the state of one compilation, including nested ones.
type compiler struct {
	*options
	stack []reflect.Type
}

// member is a struct field selected for mapping.
type member struct {
	sf    reflect.StructField
	index []int
	tag   tag
}

func (c *compiler) compile(t reflect.Type) (*EntityMapper, error) {
	if t.Kind() != reflect.Struct {
		return nil, kiwiq.NewConfigError(t, "", fmt.Errorf("%w: %s is not a struct", kiwiq.ErrNoConstructor, kiwiq.TypeName(t)))
	}
	if slices.Contains(c.stack, t) {
		return nil, kiwiq.NewConfigError(t, "", kiwiq.ErrCyclicReference)
	}
	c.stack = append(c.stack, t)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	ctor, err := c.constructorFor(t)
	if err != nil {
		return nil, err
	}
	m := &EntityMapper{
		typ:   t,
		table: sql.T(tableName(t, c.naming)).As(nextAlias()),
		ctor:  ctor,
	}
	ms, err := members(t, nil)
	if err != nil {
		return nil, kiwiq.NewConfigError(t, "", err)
	}

	// Value fields first, so references can rely on the primary key.
	m.fields = make([]*Field, len(ms))
	for i := range ms {
		mb := &ms[i]
		if mb.tag.ref || isLazyRef(mb.sf.Type) {
			continue
		}
		f, err := c.valueField(t, mb)
		if err != nil {
			return nil, err
		}
		m.fields[i] = f
	}
	if m.key, err = newPrimaryKey(m); err != nil {
		return nil, err
	}
	for i := range ms {
		mb := &ms[i]
		if m.fields[i] != nil {
			continue
		}
		if mb.tag.key {
			return nil, kiwiq.NewConfigError(t, mb.sf.Name, fmt.Errorf("%w: a reference cannot be a key", kiwiq.ErrKeyMismatch))
		}
		var f *Field
		if isLazyRef(mb.sf.Type) {
			f, err = c.lazyField(t, mb)
		} else {
			f, err = c.refField(m, mb)
		}
		if err != nil {
			return nil, err
		}
		m.fields[i] = f
	}

	// Flatten the projection in declaration order.
	for _, f := range m.fields {
		f.Offset = len(m.columns)
		switch f.Kind {
		case ReferenceField:
			m.columns = append(m.columns, f.nested.columns...)
		default:
			m.columns = append(m.columns, m.table.C(f.Column))
			for _, meta := range f.conv.MetaColumns(f.Column) {
				m.columns = append(m.columns, m.table.C(meta))
			}
		}
		f.Width = len(m.columns) - f.Offset
	}
	c.logger.Debug("compiled entity mapper",
		"type", kiwiq.TypeName(t),
		"table", m.table.Name(),
		"alias", m.table.Alias(),
		"columns", len(m.columns),
		"joins", len(m.joins),
	)
	return m, nil
}

// members returns the exported, non-transient fields of t in declaration
// order. Untagged embedded structs are flattened.
func members(t reflect.Type, prefix []int) ([]member, error) {
	var ms []member
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(slices.Clone(prefix), i)
		tg, err := parseTag(sf)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		if tg.skip {
			continue
		}
		_, tagged := sf.Tag.Lookup(TagName)
		if sf.Anonymous && !tagged && sf.Type.Kind() == reflect.Struct && !isLazyRef(sf.Type) {
			nested, err := members(sf.Type, index)
			if err != nil {
				return nil, err
			}
			ms = append(ms, nested...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		ms = append(ms, member{sf: sf, index: index, tag: tg})
	}
	return ms, nil
}

func (c *compiler) column(mb *member) string {
	if mb.tag.column != "" {
		return mb.tag.column
	}
	return c.naming(mb.sf.Name)
}

func (c *compiler) valueField(t reflect.Type, mb *member) (*Field, error) {
	conv, err := c.registry.Resolve(mb.sf.Type, field.Options{Format: mb.tag.format, SizeColumn: mb.tag.size})
	if err != nil {
		return nil, kiwiq.NewConfigError(t, mb.sf.Name, err)
	}
	return &Field{
		Name:       mb.sf.Name,
		Column:     c.column(mb),
		Kind:       ValueField,
		Insertable: !mb.tag.readonly,
		Key:        mb.tag.key,
		index:      mb.index,
		typ:        mb.sf.Type,
		conv:       conv,
	}, nil
}

// lazyField compiles the foreign key column of a Ref. The referenced type
// is only inspected for its primary key. The column defaults to the key
// column of the referenced type.
func (c *compiler) lazyField(t reflect.Type, mb *member) (*Field, error) {
	target := reflect.New(mb.sf.Type).Interface().(lazyRef).target()
	key, err := peekKey(target)
	if err != nil {
		return nil, kiwiq.NewConfigError(t, mb.sf.Name, err)
	}
	conv, err := c.registry.Resolve(key.sf.Type, field.Options{Format: key.tag.format})
	if err != nil {
		return nil, kiwiq.NewConfigError(t, mb.sf.Name, err)
	}
	col := mb.tag.column
	if col == "" {
		col = c.column(key)
	}
	return &Field{
		Name:       mb.sf.Name,
		Column:     col,
		Kind:       LazyReferenceField,
		Insertable: !mb.tag.readonly,
		index:      mb.index,
		typ:        mb.sf.Type,
		conv:       conv,
		target:     target,
		targetKey:  key.index,
		keyType:    key.sf.Type,
	}, nil
}

// refField compiles an eager reference with a fresh alias and joins it on
// local column = nested key. The local column defaults to the nested key
// column.
func (c *compiler) refField(m *EntityMapper, mb *member) (*Field, error) {
	t := mb.sf.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, kiwiq.NewConfigError(m.typ, mb.sf.Name, fmt.Errorf("%w: %s is not an entity", kiwiq.ErrRelationColumn, kiwiq.TypeName(mb.sf.Type)))
	}
	nested, err := c.compile(t)
	if err != nil {
		return nil, err
	}
	nk, ok := nested.key.(*simpleKey)
	if !ok {
		return nil, kiwiq.NewConfigError(m.typ, mb.sf.Name, fmt.Errorf("%w: %s has no single primary key", kiwiq.ErrRelationColumn, kiwiq.TypeName(t)))
	}
	col := mb.tag.column
	if col == "" {
		col = nk.field.Column
	}
	m.joins = append(m.joins, sql.Join{
		Kind:  sql.LeftJoin,
		Table: nested.table,
		Left:  m.table.C(col),
		Right: nested.table.C(nk.field.Column),
	})
	m.joins = append(m.joins, nested.joins...)
	return &Field{
		Name:       mb.sf.Name,
		Column:     col,
		Kind:       ReferenceField,
		Insertable: !mb.tag.readonly,
		index:      mb.index,
		typ:        mb.sf.Type,
		nested:     nested,
	}, nil
}

// peekKey returns the single key field of t without compiling it.
func peekKey(t reflect.Type) (*member, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not an entity", kiwiq.ErrRelationColumn, kiwiq.TypeName(t))
	}
	ms, err := members(t, nil)
	if err != nil {
		return nil, err
	}
	var key *member
	for i := range ms {
		if !ms[i].tag.key {
			continue
		}
		if key != nil {
			return nil, fmt.Errorf("%w: %s has a compound primary key", kiwiq.ErrRelationColumn, kiwiq.TypeName(t))
		}
		key = &ms[i]
	}
	if key == nil {
		return nil, fmt.Errorf("%w: %s has no primary key", kiwiq.ErrRelationColumn, kiwiq.TypeName(t))
	}
	return key, nil
}
