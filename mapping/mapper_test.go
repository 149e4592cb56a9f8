package mapping

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect"
	"github.com/louisdevie/kiwiq/dialect/sql"
)

type Fruit struct {
	ID    int64  `db:"FRUIT_ID,key,readonly"`
	Name  string `db:"NAME"`
	Color string `db:"COLOR"`
	Notes string `db:"-"`
}

func (Fruit) TableName() string { return "fruit" }

type Color struct {
	ID   int64  `db:"COLOR_ID,key,readonly"`
	Name string `db:"NAME"`
}

func (Color) TableName() string { return "color" }

// Tagged references its color lazily.
type Tagged struct {
	ID    int64      `db:"FRUIT_ID,key,readonly"`
	Name  string     `db:"NAME"`
	Color Ref[Color] `db:"COLOR_ID"`
}

func (Tagged) TableName() string { return "fruit" }

type City struct {
	ID   int64  `db:"CITY_ID,key"`
	Name string `db:"NAME"`
}

func (City) TableName() string { return "city" }

type Owner struct {
	ID   int64  `db:"OWNER_ID,key"`
	Name string `db:"NAME"`
	City *City  `db:",ref"`
}

func (Owner) TableName() string { return "owner" }

type Crate struct {
	ID    int64  `db:"CRATE_ID,key,readonly"`
	Owner *Owner `db:"OWNER_ID,ref"`
	Label string `db:"LABEL"`
}

func (Crate) TableName() string { return "crate" }

type Grade string

type Sample struct {
	ID     int64     `db:"ID,key"`
	Flag   bool      `db:"FLAG"`
	Count  int32     `db:"COUNT"`
	Ratio  float64   `db:"RATIO"`
	Label  string    `db:"LABEL"`
	Grade  Grade     `db:"GRADE"`
	Seen   time.Time `db:"SEEN"`
	Data   []byte    `db:"DATA,size=DATA_SIZE"`
	Note   *string   `db:"NOTE"`
	UID    uuid.UUID `db:"UID"`
	hidden int
}

func (Sample) TableName() string { return "sample" }

type Audit struct {
	Created time.Time `db:"CREATED,readonly"`
}

type Line struct {
	Audit
	Order  int64 `db:"ORDER_ID,key"`
	Number int   `db:"NUMBER,key"`
}

type Loose struct {
	Name string `db:"NAME"`
}

type Node struct {
	ID   int64 `db:"ID,key"`
	Next *Node `db:"NEXT_ID,ref"`
}

type Holder struct {
	ID    int64      `db:"ID,key"`
	Loose Ref[Loose] `db:"LOOSE_ID"`
}

type Bad struct {
	ID   int64    `db:"ID,key"`
	Feed chan int `db:"FEED"`
}

type OrderLine struct {
	Number    int64 `db:",key"`
	UnitPrice float64
}

func fieldNames(m *EntityMapper) []string {
	var names []string
	for _, f := range m.Fields() {
		names = append(names, f.Name)
	}
	return names
}

func TestCompileFruit(t *testing.T) {
	m, err := Compile(reflect.TypeFor[Fruit]())
	require.NoError(t, err)
	assert.Equal(t, "fruit", m.Table().Name())
	assert.True(t, strings.HasPrefix(m.Table().Alias(), "e"))
	assert.Equal(t, []string{"FRUIT_ID", "NAME", "COLOR"}, m.ColumnNames())
	assert.Equal(t, []string{"ID", "Name", "Color"}, fieldNames(m))
	assert.Empty(t, m.Joins())

	id, ok := m.Field("FRUIT_ID")
	require.True(t, ok)
	assert.Equal(t, "ID", id.Name)
	assert.True(t, id.Key)
	assert.False(t, id.Insertable)
	assert.Equal(t, ValueField, id.Kind)
	_, ok = m.Field("Notes")
	assert.False(t, ok)

	require.Equal(t, KeySimple, m.Key().Kind())
	assert.Equal(t, []*Field{id}, m.Key().Fields())

	query, args, err := m.selector(sql.Dialect(dialect.SQLite)).Query()
	require.NoError(t, err)
	a := m.Table().Alias()
	assert.Equal(t, `SELECT "`+a+`"."FRUIT_ID", "`+a+`"."NAME", "`+a+`"."COLOR" FROM "fruit" AS "`+a+`"`, query)
	assert.Empty(t, args)
}

func TestCompileDeterministicOffsets(t *testing.T) {
	m1, err := Compile(reflect.TypeFor[Sample]())
	require.NoError(t, err)
	m2, err := Compile(reflect.TypeFor[Sample]())
	require.NoError(t, err)

	assert.NotEqual(t, m1.Table().Alias(), m2.Table().Alias())
	assert.Equal(t, m1.ColumnNames(), m2.ColumnNames())
	for i, f := range m1.Fields() {
		assert.Equal(t, f.Offset, m2.Fields()[i].Offset, f.Name)
		assert.Equal(t, f.Width, m2.Fields()[i].Width, f.Name)
	}
	assert.Equal(t, []string{"ID", "FLAG", "COUNT", "RATIO", "LABEL", "GRADE", "SEEN", "DATA", "DATA_SIZE", "NOTE", "UID"}, m1.ColumnNames())

	data, ok := m1.Field("Data")
	require.True(t, ok)
	assert.Equal(t, 7, data.Offset)
	assert.Equal(t, 2, data.Width)
	note, _ := m1.Field("Note")
	assert.Equal(t, 9, note.Offset)
}

func TestCompileEmbeddedAndCompoundKey(t *testing.T) {
	m, err := Compile(reflect.TypeFor[Line]())
	require.NoError(t, err)
	assert.Equal(t, "Line", m.Table().Name())
	assert.Equal(t, []string{"CREATED", "ORDER_ID", "NUMBER"}, m.ColumnNames())
	assert.Equal(t, KeyCompound, m.Key().Kind())
	assert.Len(t, m.Key().Fields(), 2)

	_, err = m.Key().Match(1)
	assert.ErrorIs(t, err, kiwiq.ErrCompoundKey)
	assert.True(t, kiwiq.IsConfigError(err))
}

func TestCompileNaming(t *testing.T) {
	m, err := Compile(reflect.TypeFor[OrderLine](), WithNaming(Snake))
	require.NoError(t, err)
	assert.Equal(t, "order_line", m.Table().Name())
	assert.Equal(t, []string{"number", "unit_price"}, m.ColumnNames())

	m, err = Compile(reflect.TypeFor[OrderLine]())
	require.NoError(t, err)
	assert.Equal(t, "OrderLine", m.Table().Name())
	assert.Equal(t, []string{"Number", "UnitPrice"}, m.ColumnNames())
}

func TestPrimaryKeyStrategies(t *testing.T) {
	t.Run("undefined", func(t *testing.T) {
		m, err := Compile(reflect.TypeFor[Loose]())
		require.NoError(t, err)
		assert.Equal(t, KeyUndefined, m.Key().Kind())
		assert.Empty(t, m.Key().Fields())
		_, err = m.Key().Match(1)
		assert.ErrorIs(t, err, kiwiq.ErrKeyUndefined)
		assert.Contains(t, err.Error(), "primary key not defined")
	})
	t.Run("simple", func(t *testing.T) {
		m, err := Compile(reflect.TypeFor[Fruit]())
		require.NoError(t, err)
		a := m.Table().Alias()
		for _, key := range []any{int64(3), 3, uint8(3)} {
			p, err := m.Key().Match(key)
			require.NoError(t, err)
			query, args, err := sql.Dialect(dialect.Postgres).Select().From(m.Table()).Where(p).Query()
			require.NoError(t, err)
			assert.Equal(t, `SELECT * FROM "fruit" AS "`+a+`" WHERE "`+a+`"."FRUIT_ID" = $1`, query)
			assert.Equal(t, []any{int64(3)}, args)
		}
		_, err = m.Key().Match("3")
		assert.ErrorIs(t, err, kiwiq.ErrKeyMismatch)
		_, err = m.Key().Match(nil)
		assert.ErrorIs(t, err, kiwiq.ErrKeyMismatch)
	})
	t.Run("write_back", func(t *testing.T) {
		m, err := Compile(reflect.TypeFor[Fruit]())
		require.NoError(t, err)
		f := &Fruit{}
		assert.False(t, m.Key().writeBack(reflect.ValueOf(f).Elem(), sql.NoAutoID))
		assert.Zero(t, f.ID)
		assert.True(t, m.Key().writeBack(reflect.ValueOf(f).Elem(), 9))
		assert.Equal(t, int64(9), f.ID)

		// Inserted keys are never overwritten.
		m, err = Compile(reflect.TypeFor[City]())
		require.NoError(t, err)
		c := &City{ID: 4}
		assert.False(t, m.Key().writeBack(reflect.ValueOf(c).Elem(), 9))
		assert.Equal(t, int64(4), c.ID)
	})
}

func TestCompileEagerReferences(t *testing.T) {
	m, err := Compile(reflect.TypeFor[Crate]())
	require.NoError(t, err)
	owner, ok := m.Field("Owner")
	require.True(t, ok)
	assert.Equal(t, ReferenceField, owner.Kind)
	assert.Equal(t, "OWNER_ID", owner.Column)
	assert.Equal(t, 1, owner.Offset)
	assert.Equal(t, 4, owner.Width)
	label, _ := m.Field("Label")
	assert.Equal(t, 5, label.Offset)

	om := owner.Nested()
	city, _ := om.Field("City")
	assert.Equal(t, "CITY_ID", city.Column, "defaults to the nested key column")
	cm := city.Nested()

	a, b, c := m.Table().Alias(), om.Table().Alias(), cm.Table().Alias()
	assert.Len(t, map[string]bool{a: true, b: true, c: true}, 3)
	assert.Equal(t, []string{"CRATE_ID", "OWNER_ID", "NAME", "CITY_ID", "NAME", "LABEL"}, m.ColumnNames())
	require.Len(t, m.Joins(), 2)
	assert.Equal(t, sql.LeftJoin, m.Joins()[0].Kind)

	query, _, err := m.selector(sql.Dialect(dialect.SQLite)).Query()
	require.NoError(t, err)
	q := func(s string) string {
		return strings.NewReplacer("$a", a, "$b", b, "$c", c).Replace(s)
	}
	assert.Equal(t, q(`SELECT "$a"."CRATE_ID", "$b"."OWNER_ID", "$b"."NAME", "$c"."CITY_ID", "$c"."NAME", "$a"."LABEL" `+
		`FROM "crate" AS "$a" `+
		`LEFT JOIN "owner" AS "$b" ON "$a"."OWNER_ID" = "$b"."OWNER_ID" `+
		`LEFT JOIN "city" AS "$c" ON "$b"."CITY_ID" = "$c"."CITY_ID"`), query)
}

func TestCompileLazyReference(t *testing.T) {
	m, err := Compile(reflect.TypeFor[Tagged]())
	require.NoError(t, err)
	color, ok := m.Field("Color")
	require.True(t, ok)
	assert.Equal(t, LazyReferenceField, color.Kind)
	assert.Equal(t, "COLOR_ID", color.Column)
	assert.Nil(t, color.Nested())
	assert.Empty(t, m.Joins())
	assert.Equal(t, []string{"FRUIT_ID", "NAME", "COLOR_ID"}, m.ColumnNames())
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		opts []Option
		want error
	}{
		{name: "not_struct", typ: reflect.TypeFor[int](), want: kiwiq.ErrNoConstructor},
		{name: "unmappable", typ: reflect.TypeFor[Bad](), want: kiwiq.ErrUnmappableField},
		{name: "cycle", typ: reflect.TypeFor[Node](), want: kiwiq.ErrCyclicReference},
		{name: "lazy_without_key", typ: reflect.TypeFor[Holder](), want: kiwiq.ErrRelationColumn},
		{
			name: "two_persistence_constructors",
			typ:  reflect.TypeFor[Fruit](),
			opts: []Option{
				WithPersistenceConstructor(func() *Fruit { return &Fruit{} }),
				WithPersistenceConstructor(func() *Fruit { return &Fruit{} }),
			},
			want: kiwiq.ErrNoConstructor,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.typ, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, kiwiq.IsConfigError(err))
		})
	}

	_, err := Compile(reflect.TypeFor[Bad]())
	var ce *kiwiq.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "mapping.Bad", ce.Type)
	assert.Equal(t, "Feed", ce.Field)
}

func TestConstructors(t *testing.T) {
	plain := func() *Fruit { return &Fruit{Notes: "plain"} }
	persisted := func() *Fruit { return &Fruit{Notes: "persisted"} }
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{name: "zero_value", want: ""},
		{name: "single", opts: []Option{WithConstructor(plain)}, want: "plain"},
		{name: "several", opts: []Option{WithConstructor(plain), WithConstructor(plain)}, want: ""},
		{name: "persistence", opts: []Option{WithConstructor(plain), WithPersistenceConstructor(persisted)}, want: "persisted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(reflect.TypeFor[Fruit](), tt.opts...)
			require.NoError(t, err)
			f, ok := m.New().(*Fruit)
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Notes)
		})
	}
}

func TestParseTag(t *testing.T) {
	st := reflect.TypeFor[struct {
		A int `db:"COL,key,readonly,format=2006-01-02,size=COL_SIZE"`
		B int `db:"-"`
		C int `db:"C,unknown"`
		D int
		E int `db:"E,ref"`
	}]()
	tg, err := parseTag(st.Field(0))
	require.NoError(t, err)
	assert.Equal(t, tag{column: "COL", key: true, readonly: true, format: "2006-01-02", size: "COL_SIZE"}, tg)

	tg, err = parseTag(st.Field(1))
	require.NoError(t, err)
	assert.True(t, tg.skip)

	_, err = parseTag(st.Field(2))
	assert.Error(t, err)

	tg, err = parseTag(st.Field(3))
	require.NoError(t, err)
	assert.Equal(t, tag{}, tg)

	tg, err = parseTag(st.Field(4))
	require.NoError(t, err)
	assert.Equal(t, tag{column: "E", ref: true}, tg)
}
