// Package sql provides SQL command building primitives and the database/sql
// driver used by the mapping layer.
//
// Commands are trees of values and predicates rendered by a Writer. The
// writer owns spacing, bracket balance, parameter registration and the name
// context that decides how a table is named at each position.
//
// # Builder Types
//
//   - Writer: token writer with identifier quoting and parameter binding
//   - Selector: SELECT with joins, a single WHERE, ordering and limits
//   - InsertBuilder: single-row INSERT reporting the generated id
//   - UpdateBuilder: UPDATE with SET assignments and a WHERE
//   - DeleteBuilder: DELETE with a WHERE
//
// # Dialect Support
//
// Rendering adapts to the dialect token the builder was created with:
//
//	import "github.com/louisdevie/kiwiq/dialect"
//
//	fruits := sql.T("fruit").As("f")
//	b := sql.Dialect(dialect.Postgres)
//	b.Select(fruits.C("NAME")).From(fruits).Where(sql.EQ(fruits.C("COLOR"), "red"))
//	// SELECT "f"."NAME" FROM "fruit" AS "f" WHERE "f"."COLOR" = $1
//
// # Predicates
//
// AND and OR flatten nested operands of the same operator when they are
// built, so And(a, And(b, c)) renders like And(a, b, c):
//
//	sql.EQ(c, "john")          // c = ?
//	sql.NEQ(c, nil)            // c IS NOT NULL
//	sql.In(c, 1, 2)            // c IN (?, ?)
//	sql.Or(a, sql.And(b, d))   // (a) OR ((b) AND (d))
//	sql.And()                  // the dialect's true constant
//
// # Pagination
//
// An offset requires a limit, and once both are set they cannot change:
//
//	sel.Limit(10).Offset(20)
//	sel.Page(3, 10) // same
//
// # Execution
//
// Builders created with Using are bound to a driver:
//
//	drv, _ := sql.Open(dialect.SQLite, "sqlite", "file:app.db")
//	r, err := sql.Using(drv).Select().From(fruits).Fetch(ctx)
//	for r.Next() {
//	    name, _ := r.Record().String(0)
//	}
package sql
