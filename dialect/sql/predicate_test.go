package sql

import (
	"testing"

	"github.com/louisdevie/kiwiq/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	a, b := C("a"), C("b")
	tests := []struct {
		name  string
		pred  Predicate
		query string
		args  []any
	}{
		{"eq", EQ(a, 1), `"a" = ?`, []any{1}},
		{"eq_column", EQ(a, b), `"a" = "b"`, []any{}},
		{"eq_nil", EQ(a, nil), `"a" IS NULL`, []any{}},
		{"neq", NEQ(a, "x"), `"a" <> ?`, []any{"x"}},
		{"neq_nil", NEQ(a, nil), `"a" IS NOT NULL`, []any{}},
		{"lt", LT(a, 1), `"a" < ?`, []any{1}},
		{"lte", LTE(a, 1), `"a" <= ?`, []any{1}},
		{"gt", GT(a, 1), `"a" > ?`, []any{1}},
		{"gte", GTE(a, 1), `"a" >= ?`, []any{1}},
		{"like", Like(a, "ap%"), `"a" LIKE ?`, []any{"ap%"}},
		{"not_like", NotLike(a, "ap%"), `"a" NOT LIKE ?`, []any{"ap%"}},
		{"is_null", IsNull(a), `"a" IS NULL`, []any{}},
		{"not_null", NotNull(a), `"a" IS NOT NULL`, []any{}},
		{"in", In(a, 1, 2, 3), `"a" IN (?, ?, ?)`, []any{1, 2, 3}},
		{"in_empty", In(a), `0`, []any{}},
		{"not_in", NotIn(a, 1), `"a" NOT IN (?)`, []any{1}},
		{"not_in_empty", NotIn(a), `1`, []any{}},
		{"not", Not(EQ(a, 1)), `NOT ("a" = ?)`, []any{1}},
		{"bool", Bool(true), `1`, []any{}},
		{"expr", Expr("a > b"), `a > b`, []any{}},
		{"arithmetic", EQ(Add(a, 1), Mul(b, Sub(a, 2))), `("a" + ?) = ("b" * ("a" - ?))`, []any{1, 2}},
		{"func", GT(Coalesce(a, P(0)), Count(nil)), `COALESCE("a", ?) > COUNT(*)`, []any{0}},
		{"lower", EQ(Lower(a), "x"), `LOWER("a") = ?`, []any{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := render(t, dialect.SQLite, tt.pred)
			assert.Equal(t, tt.query, query)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestLogicalFlattening(t *testing.T) {
	a, b, c, d, e := EQ(C("a"), 1), EQ(C("b"), 2), EQ(C("c"), 3), EQ(C("d"), 4), EQ(C("e"), 5)

	t.Run("and_of_and", func(t *testing.T) {
		p := And(a, And(b, c))
		assert.Len(t, p.Operands(), 3)
		query, args := render(t, dialect.SQLite, p)
		assert.Equal(t, `("a" = ?) AND ("b" = ?) AND ("c" = ?)`, query)
		assert.Equal(t, []any{1, 2, 3}, args)
	})

	t.Run("mixed", func(t *testing.T) {
		p := Or(a, And(b, c), Or(d, e))
		require.Len(t, p.Operands(), 4)
		query, _ := render(t, dialect.SQLite, p)
		assert.Equal(t, `("a" = ?) OR (("b" = ?) AND ("c" = ?)) OR ("d" = ?) OR ("e" = ?)`, query)
	})

	t.Run("deep", func(t *testing.T) {
		p := And(And(And(a), b), And(c, And(d, e)))
		assert.Len(t, p.Operands(), 5)
	})

	t.Run("nil_operands", func(t *testing.T) {
		p := And(nil, a, nil)
		require.Len(t, p.Operands(), 1)
		query, _ := render(t, dialect.SQLite, p)
		assert.Equal(t, `"a" = ?`, query)
	})

	t.Run("typed_nil_operands", func(t *testing.T) {
		var (
			none *Logical
			cmp  *Comparison
		)
		tests := []struct {
			name string
			p    *Logical
			want string
		}{
			{name: "and", p: And(none, a, cmp), want: `"a" = ?`},
			{name: "or", p: Or(a, none, b), want: `("a" = ?) OR ("b" = ?)`},
			{name: "nested", p: And(cmp, And(none, b), Or(none, a)), want: `("b" = ?) AND ("a" = ?)`},
			{name: "only_nils", p: Or(none, cmp), want: `0`},
		}
		assert.Empty(t, none.RelativeTo(OpAnd))
		assert.Empty(t, cmp.RelativeTo(OpOr))
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.NotPanics(t, func() {
					query, _ := render(t, dialect.SQLite, tt.p)
					assert.Equal(t, tt.want, query)
				})
			})
		}
	})

	t.Run("single_operand_nested", func(t *testing.T) {
		query, _ := render(t, dialect.SQLite, And(Or(a), b))
		assert.Equal(t, `("a" = ?) AND ("b" = ?)`, query)
	})
}

func TestLogicalEmpty(t *testing.T) {
	tests := []struct {
		dialect *dialect.Dialect
		and, or string
	}{
		{dialect.SQLite, "1", "0"},
		{dialect.MySQL, "1 = 1", "1 = 0"},
		{dialect.Postgres, "TRUE", "FALSE"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			query, _ := render(t, tt.dialect, And())
			assert.Equal(t, tt.and, query)
			query, _ = render(t, tt.dialect, Or())
			assert.Equal(t, tt.or, query)
			query, _ = render(t, tt.dialect, And(Or(), EQ(C("x"), 1)))
			assert.Equal(t, "("+tt.or+`) AND ("x" = `+placeholder(t, tt.dialect)+")", query)
		})
	}
}

func placeholder(t *testing.T, d *dialect.Dialect) string {
	s, err := StyleOf(d)
	require.NoError(t, err)
	return s.Placeholder(1)
}

func TestInQuery(t *testing.T) {
	owners := T("owner").As("o")
	sub := Dialect(dialect.SQLite).Select(owners.C("ID")).From(owners).Where(EQ(owners.C("CITY"), "Paris"))
	query, args := render(t, dialect.SQLite, InQuery(C("OWNER_ID"), sub))
	assert.Equal(t, `"OWNER_ID" IN (SELECT "o"."ID" FROM "owner" AS "o" WHERE "o"."CITY" = ?)`, query)
	assert.Equal(t, []any{"Paris"}, args)
}

func TestTypedColumn(t *testing.T) {
	name := Typed[string](T("fruit").As("f").C("NAME"))
	w := newTestWriter(t, dialect.Postgres).PushContext(Aliased)
	query, args, err := w.Render(And(name.EQ("apple"), name.In("pear", "plum"), name.NotNull())).Query()
	require.NoError(t, err)
	assert.Equal(t, `("f"."NAME" = $1) AND ("f"."NAME" IN ($2, $3)) AND ("f"."NAME" IS NOT NULL)`, query)
	assert.Equal(t, []any{"apple", "pear", "plum"}, args)
}
