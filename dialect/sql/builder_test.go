package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect"
)

func TestSelector(t *testing.T) {
	fruits := T("fruit").As("f")
	owners := T("owner").As("o")
	tests := []struct {
		name    string
		input   *Selector
		wantSQL string
		args    []any
	}{
		{
			name:    "star",
			input:   Dialect(dialect.SQLite).Select().From(fruits),
			wantSQL: `SELECT * FROM "fruit" AS "f"`,
		},
		{
			name: "full",
			input: Dialect(dialect.SQLite).
				Select(fruits.C("NAME"), fruits.C("COLOR").As("c")).
				From(fruits).
				Where(EQ(fruits.C("COLOR"), "red")).
				OrderBy(Desc(fruits.C("NAME")), Asc(fruits.C("ID"))).
				Limit(10).
				Offset(5),
			wantSQL: `SELECT "f"."NAME", "f"."COLOR" AS "c" FROM "fruit" AS "f" WHERE "f"."COLOR" = ? ORDER BY "f"."NAME" DESC, "f"."ID" ASC LIMIT 10 OFFSET 5`,
			args:    []any{"red"},
		},
		{
			name: "postgres",
			input: Dialect(dialect.Postgres).
				Select(fruits.C("NAME")).
				From(fruits).
				Where(And(EQ(fruits.C("COLOR"), "red"), NEQ(fruits.C("NAME"), "apple"))),
			wantSQL: `SELECT "f"."NAME" FROM "fruit" AS "f" WHERE ("f"."COLOR" = $1) AND ("f"."NAME" <> $2)`,
			args:    []any{"red", "apple"},
		},
		{
			name: "mysql",
			input: Dialect(dialect.MySQL).
				Select(fruits.C("NAME")).
				From(fruits).
				Where(Or()),
			wantSQL: "SELECT `f`.`NAME` FROM `fruit` AS `f` WHERE 1 = 0",
		},
		{
			name: "joins",
			input: Dialect(dialect.SQLite).
				Select(fruits.C("NAME"), owners.C("NAME")).
				From(fruits).
				LeftJoin(owners, fruits.C("OWNER_ID"), owners.C("ID")).
				Join(T("city"), owners.C("CITY_ID"), T("city").C("ID")),
			wantSQL: `SELECT "f"."NAME", "o"."NAME" FROM "fruit" AS "f" LEFT JOIN "owner" AS "o" ON "f"."OWNER_ID" = "o"."ID" INNER JOIN "city" ON "o"."CITY_ID" = "city"."ID"`,
		},
		{
			name:    "distinct",
			input:   Dialect(dialect.SQLite).Select(fruits.C("COLOR")).Distinct().From(fruits),
			wantSQL: `SELECT DISTINCT "f"."COLOR" FROM "fruit" AS "f"`,
		},
		{
			name:    "page",
			input:   Dialect(dialect.SQLite).Select(Count(nil)).From(fruits).Page(3, 10),
			wantSQL: `SELECT COUNT(*) FROM "fruit" AS "f" LIMIT 10 OFFSET 20`,
		},
		{
			name:    "aliased_value",
			input:   Dialect(dialect.SQLite).Select(As(Max(fruits.C("ID")), "top")).From(fruits),
			wantSQL: `SELECT MAX("f"."ID") AS "top" FROM "fruit" AS "f"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := tt.input.Query()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			if tt.args == nil {
				tt.args = []any{}
			}
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestSelectorErrors(t *testing.T) {
	fruits := T("fruit")

	t.Run("no_from", func(t *testing.T) {
		_, _, err := Dialect(dialect.SQLite).Select(C("a")).Query()
		assert.True(t, kiwiq.IsStructureError(err))
	})

	t.Run("where_twice", func(t *testing.T) {
		first := EQ(fruits.C("A"), 1)
		s := Dialect(dialect.SQLite).Select().From(fruits).Where(first).Where(EQ(fruits.C("B"), 2))
		_, _, err := s.Query()
		assert.True(t, kiwiq.IsUsageError(err))
		assert.Same(t, first, s.where.Predicate())
	})

	t.Run("offset_before_limit", func(t *testing.T) {
		_, _, err := Dialect(dialect.SQLite).Select().From(fruits).Offset(5).Query()
		assert.True(t, kiwiq.IsUsageError(err))
	})

	t.Run("limit_after_offset", func(t *testing.T) {
		_, _, err := Dialect(dialect.SQLite).Select().From(fruits).Limit(1).Offset(5).Limit(2).Query()
		assert.True(t, kiwiq.IsUsageError(err))
	})

	t.Run("limit_after_page", func(t *testing.T) {
		_, _, err := Dialect(dialect.SQLite).Select().From(fruits).Page(1, 10).Limit(2).Query()
		assert.True(t, kiwiq.IsUsageError(err))
	})

	t.Run("unknown_dialect", func(t *testing.T) {
		_, _, err := Dialect(dialect.New("nope")).Select().From(fruits).Query()
		var unknown *UnknownDialectError
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("not_bound", func(t *testing.T) {
		_, err := Dialect(dialect.SQLite).Select().From(fruits).Fetch(context.Background())
		assert.True(t, kiwiq.IsUsageError(err))
	})
}

func TestClauses(t *testing.T) {
	t.Run("where", func(t *testing.T) {
		var c WhereClause
		p := EQ(C("a"), 1)
		require.NoError(t, c.Set(p))
		assert.True(t, kiwiq.IsUsageError(c.Set(EQ(C("b"), 2))))
		assert.Same(t, p, c.Predicate())
		var empty WhereClause
		assert.True(t, kiwiq.IsUsageError(empty.Set(nil)))
		assert.True(t, kiwiq.IsUsageError(empty.Set((*Logical)(nil))))
		assert.True(t, kiwiq.IsUsageError(empty.Set((*Comparison)(nil))))
		assert.Nil(t, empty.Predicate())
	})

	t.Run("limit", func(t *testing.T) {
		var c LimitClause
		require.NoError(t, c.SetLimit(1))
		require.NoError(t, c.SetLimit(2))
		require.NoError(t, c.SetOffset(3))
		assert.Error(t, c.SetOffset(4))
		assert.Error(t, c.SetLimit(5))
		limit, _ := c.Limit()
		offset, _ := c.Offset()
		assert.Equal(t, 2, limit)
		assert.Equal(t, 3, offset)
	})

	t.Run("join", func(t *testing.T) {
		var c JoinClause
		c.Add(InnerJoin, T("a"), C("x"), C("y"))
		c.Add(LeftJoin, T("b"), C("x"), C("z"))
		require.Equal(t, 2, c.Len())
		assert.Equal(t, LeftJoin, c.Joins()[1].Kind)
	})
}

func TestInsertBuilder(t *testing.T) {
	fruits := T("fruit").As("f")
	tests := []struct {
		dialect *dialect.Dialect
		wantSQL string
	}{
		{dialect.SQLite, `INSERT INTO "fruit" ("NAME", "COLOR") VALUES (?, ?)`},
		{dialect.MySQL, "INSERT INTO `fruit` (`NAME`, `COLOR`) VALUES (?, ?)"},
		{dialect.Postgres, `INSERT INTO "fruit" ("NAME", "COLOR") VALUES ($1, $2)`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			query, args, err := Dialect(tt.dialect).InsertInto(fruits).
				Set("NAME", "apple").
				Set("COLOR", "red").
				Set("NAME", "pear").
				Query()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, query)
			assert.Equal(t, []any{"pear", "red"}, args)
		})
	}

	_, _, err := Dialect(dialect.SQLite).InsertInto(fruits).Query()
	assert.True(t, kiwiq.IsStructureError(err))
}

func TestUpdateDeleteBuilder(t *testing.T) {
	fruits := T("fruit").As("f")

	query, args, err := Dialect(dialect.SQLite).Update(fruits).
		Set("COLOR", "green").
		Set("NAME", nil).
		Where(EQ(fruits.C("ID"), 1)).
		Query()
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "fruit" SET "COLOR" = ?, "NAME" = NULL WHERE "fruit"."ID" = ?`, query)
	assert.Equal(t, []any{"green", 1}, args)

	query, args, err = Dialect(dialect.Postgres).DeleteFrom(fruits).
		Where(In(fruits.C("ID"), 1, 2)).
		Query()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "fruit" WHERE "fruit"."ID" IN ($1, $2)`, query)
	assert.Equal(t, []any{1, 2}, args)

	query, _, err = Dialect(dialect.SQLite).DeleteFrom(fruits).Query()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "fruit"`, query)

	_, _, err = Dialect(dialect.SQLite).Update(fruits).Query()
	assert.True(t, kiwiq.IsStructureError(err))

	_, _, err = Dialect(dialect.SQLite).Update(fruits).Set("A", 1).Where(True()).Where(True()).Query()
	assert.True(t, kiwiq.IsUsageError(err))
}

func newMock(t *testing.T, d *dialect.Dialect) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(d, db), mock
}

func TestInsertApply(t *testing.T) {
	fruits := T("fruit")

	t.Run("sqlite", func(t *testing.T) {
		drv, mock := newMock(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "fruit" ("NAME") VALUES (?)`).
			WithArgs("apple").
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectQuery(`SELECT last_insert_rowid()`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

		id, err := Using(drv).InsertInto(fruits).Set("NAME", "apple").Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql_text_id", func(t *testing.T) {
		drv, mock := newMock(t, dialect.MySQL)
		mock.ExpectExec("INSERT INTO `fruit` (`NAME`) VALUES (?)").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT LAST_INSERT_ID()`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow([]byte("12")))

		id, err := Using(drv).InsertInto(fruits).Set("NAME", "apple").Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(12), id)
	})

	t.Run("not_integral", func(t *testing.T) {
		drv, mock := newMock(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "fruit" ("NAME") VALUES (?)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT last_insert_rowid()`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("abc"))

		id, err := Using(drv).InsertInto(fruits).Set("NAME", "apple").Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, NoAutoID, id)
	})

	t.Run("postgres_no_sequence", func(t *testing.T) {
		drv, mock := newMock(t, dialect.Postgres)
		mock.ExpectExec(`INSERT INTO "fruit" ("NAME") VALUES ($1)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT lastval()`).
			WillReturnError(&pq.Error{Code: "55000", Message: "lastval is not yet defined in this session"})

		id, err := Using(drv).InsertInto(fruits).Set("NAME", "apple").Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, NoAutoID, id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("constraint", func(t *testing.T) {
		drv, mock := newMock(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "fruit" ("NAME") VALUES (?)`).
			WillReturnError(errors.New("UNIQUE constraint failed: fruit.NAME"))

		_, err := Using(drv).InsertInto(fruits).Set("NAME", "apple").Apply(context.Background())
		require.Error(t, err)
		assert.True(t, kiwiq.IsConstraintError(err))
	})

	t.Run("not_bound", func(t *testing.T) {
		_, err := Dialect(dialect.SQLite).InsertInto(fruits).Set("NAME", "apple").Apply(context.Background())
		assert.True(t, kiwiq.IsUsageError(err))
	})
}

func TestUpdateDeleteApply(t *testing.T) {
	fruits := T("fruit")
	drv, mock := newMock(t, dialect.SQLite)
	mock.ExpectExec(`UPDATE "fruit" SET "COLOR" = ? WHERE "fruit"."COLOR" = ?`).
		WithArgs("green", "red").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM "fruit" WHERE "fruit"."ID" = ?`).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := Using(drv).Update(fruits).Set("COLOR", "green").Where(EQ(fruits.C("COLOR"), "red")).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = Using(drv).DeleteFrom(fruits).Where(EQ(fruits.C("ID"), int64(9))).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectorFetch(t *testing.T) {
	fruits := T("fruit").As("f")
	drv, mock := newMock(t, dialect.SQLite)
	mock.ExpectQuery(`SELECT "f"."NAME", "f"."WEIGHT" FROM "fruit" AS "f" WHERE "f"."COLOR" = ?`).
		WithArgs("red").
		WillReturnRows(sqlmock.NewRows([]string{"NAME", "WEIGHT"}).
			AddRow("apple", 150).
			AddRow("cherry", 5))
	mock.ExpectQuery(`SELECT COUNT(*) FROM "fruit" AS "f"`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(2)))

	r, err := Using(drv).Select(fruits.C("NAME"), fruits.C("WEIGHT")).
		From(fruits).
		Where(EQ(fruits.C("COLOR"), "red")).
		Fetch(context.Background())
	require.NoError(t, err)
	var names []string
	var total int64
	for r.Next() {
		name, err := r.Record().String(0)
		require.NoError(t, err)
		weight, err := r.Record().Int64(1)
		require.NoError(t, err)
		names = append(names, name)
		total += weight
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []string{"apple", "cherry"}, names)
	assert.Equal(t, int64(155), total)
	assert.True(t, kiwiq.IsUsageError(r.Reset()))

	n, err := Using(drv).Select(Count(nil)).From(fruits).Scalar(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
