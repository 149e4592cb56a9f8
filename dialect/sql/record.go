package sql

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/louisdevie/kiwiq"
)

// Record is a read-only view of the current row of a result.
type Record interface {
	// FieldCount returns the number of columns.
	FieldCount() int
	// Ordinal returns the index of the named column. Exact matches win over
	// case-insensitive ones.
	Ordinal(name string) (int, error)
	IsNull(i int) (bool, error)
	Value(i int) (any, error)
	Bool(i int) (bool, error)
	Int32(i int) (int32, error)
	Int64(i int) (int64, error)
	Float64(i int) (float64, error)
	String(i int) (string, error)
	Time(i int) (time.Time, error)
	Bytes(i int) ([]byte, error)
	// ReadBytes copies the bytes of column i starting at offset into buf and
	// returns the number of bytes copied.
	ReadBytes(i int, offset int64, buf []byte) (int, error)
	// ReadChars copies the characters of column i starting at offset into
	// buf and returns the number of characters copied.
	ReadChars(i int, offset int64, buf []rune) (int, error)
}

// NewRecord returns a record holding the given row.
func NewRecord(columns []string, values ...any) Record {
	return &record{columns: columns, values: values}
}

type record struct {
	columns []string
	values  []any
}

func (r *record) FieldCount() int { return len(r.values) }

func (r *record) Ordinal(name string) (int, error) {
	for i, c := range r.columns {
		if c == name {
			return i, nil
		}
	}
	for i, c := range r.columns {
		if strings.EqualFold(c, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("dialect/sql: no column named %q", name)
}

func (r *record) at(i int) (any, error) {
	if i < 0 || i >= len(r.values) {
		return nil, fmt.Errorf("dialect/sql: column index %d out of range [0,%d)", i, len(r.values))
	}
	return r.values[i], nil
}

// notNull returns the value of column i, failing on NULL.
func (r *record) notNull(i int) (any, error) {
	v, err := r.at(i)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("dialect/sql: column %s is NULL", r.name(i))
	}
	return v, nil
}

func (r *record) name(i int) string {
	if i < len(r.columns) {
		return strconv.Quote(r.columns[i])
	}
	return strconv.Itoa(i)
}

func (r *record) convErr(i int, v any, to string) error {
	return fmt.Errorf("dialect/sql: cannot convert column %s (%T) to %s", r.name(i), v, to)
}

func (r *record) IsNull(i int) (bool, error) {
	v, err := r.at(i)
	return v == nil, err
}

func (r *record) Value(i int) (any, error) { return r.at(i) }

func (r *record) Bool(i int) (bool, error) {
	v, err := r.notNull(i)
	if err != nil {
		return false, err
	}
	switch v := v.(type) {
	case bool:
		return v, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	}
	if n, ok := asInt64(v); ok {
		return n != 0, nil
	}
	return false, r.convErr(i, v, "bool")
}

func (r *record) Int64(i int) (int64, error) {
	v, err := r.notNull(i)
	if err != nil {
		return 0, err
	}
	if n, ok := asInt64(v); ok {
		return n, nil
	}
	switch v := v.(type) {
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, r.convErr(i, v, "int64")
}

func (r *record) Int32(i int) (int32, error) {
	n, err := r.Int64(i)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("dialect/sql: column %s value %d overflows int32", r.name(i), n)
	}
	return int32(n), nil
}

func (r *record) Float64(i int) (float64, error) {
	v, err := r.notNull(i)
	if err != nil {
		return 0, err
	}
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}
	if n, ok := asInt64(v); ok {
		return float64(n), nil
	}
	return 0, r.convErr(i, v, "float64")
}

func (r *record) String(i int) (string, error) {
	v, err := r.notNull(i)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	if n, ok := asInt64(v); ok {
		return strconv.FormatInt(n, 10), nil
	}
	switch v := v.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", r.convErr(i, v, "string")
}

// timeLayouts are tried in order when a time is stored as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

func (r *record) Time(i int) (time.Time, error) {
	v, err := r.notNull(i)
	if err != nil {
		return time.Time{}, err
	}
	var s string
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		if n, ok := asInt64(v); ok {
			return time.Unix(n, 0).UTC(), nil
		}
		return time.Time{}, r.convErr(i, v, "time.Time")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("dialect/sql: column %s: cannot parse %q as time", r.name(i), s)
}

func (r *record) raw(i int) ([]byte, error) {
	v, err := r.notNull(i)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, r.convErr(i, v, "[]byte")
}

func (r *record) Bytes(i int) ([]byte, error) {
	b, err := r.raw(i)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (r *record) ReadBytes(i int, offset int64, buf []byte) (int, error) {
	b, err := r.raw(i)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, errors.New("dialect/sql: negative read offset")
	}
	if offset >= int64(len(b)) {
		return 0, nil
	}
	return copy(buf, b[offset:]), nil
}

func (r *record) ReadChars(i int, offset int64, buf []rune) (int, error) {
	s, err := r.String(i)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, errors.New("dialect/sql: negative read offset")
	}
	runes := []rune(s)
	if offset >= int64(len(runes)) {
		return 0, nil
	}
	return copy(buf, runes[offset:]), nil
}

func asInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v <= math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}

// Reader is a forward-only cursor over the rows of a result. It cannot be
// rewound.
type Reader struct {
	rows    ColumnScanner
	current record
	dest    []any
	err     error
	closed  bool
}

// NewReader returns a reader over rows.
func NewReader(rows ColumnScanner) (*Reader, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("dialect/sql: read columns: %w", err)
	}
	r := &Reader{
		rows:    rows,
		current: record{columns: columns, values: make([]any, len(columns))},
		dest:    make([]any, len(columns)),
	}
	for i := range r.dest {
		r.dest[i] = &r.current.values[i]
	}
	return r, nil
}

// Columns returns the column names of the result.
func (r *Reader) Columns() []string { return r.current.columns }

// Next advances to the next row. It returns false when the rows are
// exhausted or an error occurred; the reader is then closed.
func (r *Reader) Next() bool {
	if r.closed {
		return false
	}
	if !r.rows.Next() {
		r.err = r.rows.Err()
		r.err = errors.Join(r.err, r.Close())
		return false
	}
	if err := r.rows.Scan(r.dest...); err != nil {
		r.err = errors.Join(fmt.Errorf("dialect/sql: scan row: %w", err), r.Close())
		return false
	}
	return true
}

// Record returns the current row. It is only valid until the next call to
// Next.
func (r *Reader) Record() Record { return &r.current }

// Err returns the error that stopped the iteration, if any.
func (r *Reader) Err() error { return r.err }

// Reset always fails: readers are forward-only.
func (r *Reader) Reset() error {
	return kiwiq.NewUsageError("reader", "reset is not supported on forward-only readers")
}

// Close releases the underlying rows. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}
