package sql

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/louisdevie/kiwiq/dialect"
)

// Style holds the per-dialect rendering rules.
type Style interface {
	// QuoteIdentifier returns name quoted as an identifier.
	QuoteIdentifier(name string) string
	// Placeholder returns the placeholder of the n-th bound argument,
	// starting at 1.
	Placeholder(n int) string
	// Bool returns the always-true or always-false constant.
	Bool(v bool) string
	// LastInsertIDQuery returns the query that reads the id generated by the
	// last INSERT on the same connection, or "" if the dialect has none.
	LastInsertIDQuery() string
}

// UnknownDialectError is returned when rendering for a dialect token that
// was never registered.
type UnknownDialectError struct {
	Dialect   *dialect.Dialect
	Available []string
}

// Error implements the error interface.
func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("kiwiq: unknown dialect %q (available: %s)",
		e.Dialect.Name(), strings.Join(e.Available, ", "))
}

var registry = struct {
	sync.RWMutex
	styles map[*dialect.Dialect]func() Style
}{styles: make(map[*dialect.Dialect]func() Style)}

// RegisterDialect associates a style constructor with a dialect token.
// Registering the same token twice replaces the previous constructor.
func RegisterDialect(d *dialect.Dialect, ctor func() Style) {
	if d == nil || ctor == nil {
		panic("kiwiq: RegisterDialect with nil dialect or constructor")
	}
	registry.Lock()
	defer registry.Unlock()
	registry.styles[d] = ctor
}

// LookupDialect returns the registered dialect token with the given name.
// The match is case-insensitive.
func LookupDialect(name string) (*dialect.Dialect, bool) {
	registry.RLock()
	defer registry.RUnlock()
	for d := range registry.styles {
		if strings.EqualFold(d.Name(), name) {
			return d, true
		}
	}
	return nil, false
}

// Dialects returns the sorted names of all registered dialects.
func Dialects() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.styles))
	for d := range registry.styles {
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names
}

// StyleOf returns a style for the dialect token.
func StyleOf(d *dialect.Dialect) (Style, error) {
	registry.RLock()
	ctor, ok := registry.styles[d]
	registry.RUnlock()
	if !ok {
		return nil, &UnknownDialectError{Dialect: d, Available: Dialects()}
	}
	return ctor(), nil
}

// NewWriter returns an empty writer for the dialect token.
func NewWriter(d *dialect.Dialect) (*Writer, error) {
	s, err := StyleOf(d)
	if err != nil {
		return nil, err
	}
	return newWriter(d, s), nil
}

func init() {
	RegisterDialect(dialect.MySQL, func() Style { return mysqlStyle{} })
	RegisterDialect(dialect.SQLite, func() Style { return sqliteStyle{} })
	RegisterDialect(dialect.Postgres, func() Style { return postgresStyle{} })
}

type mysqlStyle struct{}

func (mysqlStyle) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlStyle) Placeholder(int) string { return "?" }

func (mysqlStyle) Bool(v bool) string {
	if v {
		return "1 = 1"
	}
	return "1 = 0"
}

func (mysqlStyle) LastInsertIDQuery() string { return "SELECT LAST_INSERT_ID()" }

type sqliteStyle struct{}

func (sqliteStyle) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteStyle) Placeholder(int) string { return "?" }

func (sqliteStyle) Bool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (sqliteStyle) LastInsertIDQuery() string { return "SELECT last_insert_rowid()" }

type postgresStyle struct{}

func (postgresStyle) QuoteIdentifier(name string) string { return pq.QuoteIdentifier(name) }

func (postgresStyle) Placeholder(n int) string { return "$" + fmt.Sprint(n) }

func (postgresStyle) Bool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// lastval fails when no sequence was used in the session; the failure is
// reported as NoAutoID by the insert command.
func (postgresStyle) LastInsertIDQuery() string { return "SELECT lastval()" }
