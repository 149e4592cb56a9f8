package field

import (
	"reflect"

	"github.com/louisdevie/kiwiq/dialect/sql"
)

// Nullable maps *T for any mappable T. A NULL value column reads as a nil
// pointer and a nil pointer writes NULL to every column.
type Nullable struct{}

// CanHandle implements Mapper.
func (Nullable) CanHandle(t reflect.Type) bool { return t.Kind() == reflect.Pointer }

// SpecializeFor implements Mapper.
func (Nullable) SpecializeFor(t reflect.Type, opts Options, r *Registry) (Converter, error) {
	inner, err := r.resolveInner(t, t.Elem(), opts)
	if err != nil {
		return nil, err
	}
	return &nullable{typ: t, inner: inner, width: Width(inner)}, nil
}

type nullable struct {
	typ   reflect.Type
	inner Converter
	width int
}

func (c *nullable) Read(rec sql.Record, offset int) (reflect.Value, error) {
	null, err := rec.IsNull(offset)
	if err != nil {
		return reflect.Value{}, err
	}
	if null {
		return reflect.Zero(c.typ), nil
	}
	v, err := c.inner.Read(rec, offset)
	if err != nil {
		return reflect.Value{}, err
	}
	p := reflect.New(c.typ.Elem())
	p.Elem().Set(v)
	return p, nil
}

func (c *nullable) Write(v reflect.Value) ([]any, error) {
	if v.IsNil() {
		return make([]any, c.width), nil
	}
	return c.inner.Write(v.Elem())
}

func (c *nullable) MetaColumns(column string) []string { return c.inner.MetaColumns(column) }
