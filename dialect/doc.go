// Package dialect defines dialect identity and the opaque driver contract
// used by the SQL builder and the mapping layer.
//
// # Dialects
//
// A Dialect is an identity token, not a string:
//
//	dialect.MySQL
//	dialect.SQLite
//	dialect.Postgres
//
// Custom dialects are created with New and registered with a rendering style
// in dialect/sql:
//
//	var Oracle = dialect.New("oracle")
//
//	func init() {
//	    sql.RegisterDialect(Oracle, func() sql.Style { return oracleStyle{} })
//	}
//
// # Driver Interface
//
// The core only needs to execute parameterized commands:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
//	type Driver interface {
//	    ExecQuerier
//	    Dialect() *Dialect
//	    Close() error
//	}
//
// Transactions, pooling and retries belong to the driver, not to this module.
//
// # Sub-packages
//
//   - dialect/sql: SQL writer, expression AST, commands and a database/sql driver
package dialect
