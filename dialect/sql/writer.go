package sql

import (
	"fmt"
	"strings"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect"
)

// NameContext controls how a table, and the columns that reference it, are
// named at the current render position.
type NameContext int

const (
	// Canonical renders the bare table name. Used where aliases do not
	// apply (INSERT, UPDATE, DELETE).
	Canonical NameContext = iota
	// Declaration renders "name AS alias". Used once per table, at the
	// FROM or JOIN site.
	Declaration
	// Aliased renders the alias only. Used everywhere else in a SELECT.
	Aliased
)

// String implements fmt.Stringer.
func (c NameContext) String() string {
	switch c {
	case Canonical:
		return "canonical"
	case Declaration:
		return "declaration"
	case Aliased:
		return "aliased"
	default:
		return fmt.Sprintf("NameContext(%d)", int(c))
	}
}

// Parameter is a bound value registered on a writer. Its value may be
// assigned after registration; values are collected when the query is
// finalized.
type Parameter struct {
	Name  string
	Value any
}

// Writer turns a sequence of SQL tokens into a single string and collects
// the bound parameters. Every append method returns the writer, and
// whitespace between tokens is managed by a word-boundary flag.
//
// A Writer renders exactly one command; parameter names restart at p1 for
// every new writer.
type Writer struct {
	dialect *dialect.Dialect
	style   Style
	sb      strings.Builder
	space   bool // a space is due before the next word
	depth   int  // open brackets
	params  []*Parameter
	uses    []*Parameter // parameters in placeholder order
	ctx     []NameContext
	err     error
}

func newWriter(d *dialect.Dialect, s Style) *Writer {
	return &Writer{dialect: d, style: s}
}

// Dialect returns the dialect the writer renders for.
func (w *Writer) Dialect() *dialect.Dialect { return w.dialect }

// Style returns the dialect style of the writer.
func (w *Writer) Style() Style { return w.style }

// word appends s, preceded by a space if a word boundary is pending.
func (w *Writer) word(s string) *Writer {
	if w.space && w.sb.Len() > 0 {
		w.sb.WriteByte(' ')
	}
	w.sb.WriteString(s)
	w.space = true
	return w
}

// Keyword appends a SQL keyword, like SELECT or WHERE.
func (w *Writer) Keyword(kw string) *Writer { return w.word(kw) }

// Op appends an operator, like = or +.
func (w *Writer) Op(op string) *Writer { return w.word(op) }

// Raw appends s as-is, as a single word.
func (w *Writer) Raw(s string) *Writer { return w.word(s) }

// Ident appends a quoted identifier.
func (w *Writer) Ident(name string) *Writer {
	return w.word(w.style.QuoteIdentifier(name))
}

// Comma appends a list separator.
func (w *Writer) Comma() *Writer {
	w.sb.WriteByte(',')
	w.space = true
	return w
}

// Dot appends a qualifier separator, with no space on either side.
func (w *Writer) Dot() *Writer {
	w.sb.WriteByte('.')
	w.space = false
	return w
}

// Open appends an opening bracket.
func (w *Writer) Open() *Writer {
	w.word("(")
	w.space = false
	w.depth++
	return w
}

// Call appends a function name directly followed by an opening bracket.
func (w *Writer) Call(name string) *Writer {
	w.word(name)
	w.sb.WriteByte('(')
	w.space = false
	w.depth++
	return w
}

// Close appends a closing bracket.
func (w *Writer) Close() *Writer {
	w.depth--
	if w.depth < 0 {
		w.AddError(kiwiq.NewStructureError("unbalanced brackets: closing bracket without opening one"))
	}
	w.sb.WriteByte(')')
	w.space = true
	return w
}

// True appends the dialect's always-true constant.
func (w *Writer) True() *Writer { return w.word(w.style.Bool(true)) }

// False appends the dialect's always-false constant.
func (w *Writer) False() *Writer { return w.word(w.style.Bool(false)) }

// RegisterParameter registers a new parameter with no value yet. Assign
// Value before the query is finalized.
func (w *Writer) RegisterParameter() *Parameter {
	p := &Parameter{Name: fmt.Sprintf("p%d", len(w.params)+1)}
	w.params = append(w.params, p)
	return p
}

// RegisterParameterWithValue registers a new parameter bound to v.
func (w *Writer) RegisterParameterWithValue(v any) *Parameter {
	p := w.RegisterParameter()
	p.Value = v
	return p
}

// Parameter appends a placeholder referencing p.
func (w *Writer) Parameter(p *Parameter) *Writer {
	w.uses = append(w.uses, p)
	return w.word(w.style.Placeholder(len(w.uses)))
}

// Value registers v as a new parameter and appends its placeholder.
func (w *Writer) Value(v any) *Writer {
	return w.Parameter(w.RegisterParameterWithValue(v))
}

// Parameters returns the parameters registered so far.
func (w *Writer) Parameters() []*Parameter { return w.params }

// Render appends a value node. A nil value renders as NULL.
func (w *Writer) Render(v Value) *Writer {
	if v == nil {
		return w.Keyword("NULL")
	}
	v.AppendSQL(w)
	return w
}

// PushContext makes c the current name context.
func (w *Writer) PushContext(c NameContext) *Writer {
	w.ctx = append(w.ctx, c)
	return w
}

// PopContext restores the previous name context.
func (w *Writer) PopContext() *Writer {
	if len(w.ctx) == 0 {
		w.AddError(kiwiq.NewStructureError("name context stack is empty"))
		return w
	}
	w.ctx = w.ctx[:len(w.ctx)-1]
	return w
}

// Context returns the current name context. It is Canonical when nothing
// was pushed.
func (w *Writer) Context() NameContext {
	if len(w.ctx) == 0 {
		return Canonical
	}
	return w.ctx[len(w.ctx)-1]
}

// AddError records the first rendering error.
func (w *Writer) AddError(err error) *Writer {
	if err != nil && w.err == nil {
		w.err = err
	}
	return w
}

// Err returns the first rendering error.
func (w *Writer) Err() error { return w.err }

// String returns the text written so far.
func (w *Writer) String() string { return w.sb.String() }

// Query finalizes the command and returns its text and arguments.
func (w *Writer) Query() (string, []any, error) {
	if w.err != nil {
		return "", nil, w.err
	}
	if w.depth != 0 {
		return "", nil, kiwiq.NewStructureError("unbalanced brackets: %d left open", w.depth)
	}
	args := make([]any, len(w.uses))
	for i, p := range w.uses {
		args[i] = p.Value
	}
	return w.sb.String(), args, nil
}
