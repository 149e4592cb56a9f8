package field

import (
	"fmt"
	"reflect"

	"github.com/louisdevie/kiwiq/dialect/sql"
)

// basic maps each scalar kind to its predeclared type.
var basic = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
	reflect.String:  reflect.TypeFor[string](),
}

// Scalar maps the predeclared boolean, numeric and string types.
type Scalar struct{}

// CanHandle implements Mapper.
func (Scalar) CanHandle(t reflect.Type) bool {
	b, ok := basic[t.Kind()]
	return ok && b == t
}

// SpecializeFor implements Mapper.
func (Scalar) SpecializeFor(t reflect.Type, _ Options, _ *Registry) (Converter, error) {
	return Simple(scalarReader(t), func(v reflect.Value) (any, error) {
		return v.Interface(), nil
	}), nil
}

func scalarReader(t reflect.Type) func(sql.Record, int) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Bool:
		return func(rec sql.Record, i int) (reflect.Value, error) {
			b, err := rec.Bool(i)
			return reflect.ValueOf(b), err
		}
	case reflect.String:
		return func(rec sql.Record, i int) (reflect.Value, error) {
			s, err := rec.String(i)
			return reflect.ValueOf(s), err
		}
	case reflect.Float32, reflect.Float64:
		return func(rec sql.Record, i int) (reflect.Value, error) {
			f, err := rec.Float64(i)
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			if v.OverflowFloat(f) {
				return reflect.Value{}, fmt.Errorf("field: %v overflows %s", f, t)
			}
			v.SetFloat(f)
			return v, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(rec sql.Record, i int) (reflect.Value, error) {
			n, err := rec.Int64(i)
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			if n < 0 || v.OverflowUint(uint64(n)) {
				return reflect.Value{}, fmt.Errorf("field: %d overflows %s", n, t)
			}
			v.SetUint(uint64(n))
			return v, nil
		}
	default:
		return func(rec sql.Record, i int) (reflect.Value, error) {
			n, err := rec.Int64(i)
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			if v.OverflowInt(n) {
				return reflect.Value{}, fmt.Errorf("field: %d overflows %s", n, t)
			}
			v.SetInt(n)
			return v, nil
		}
	}
}

// Enum maps named types whose underlying type is a scalar, like
//
//	type Color string
//
// by converting to and from the predeclared type, which is itself resolved
// through the registry.
type Enum struct{}

// CanHandle implements Mapper.
func (Enum) CanHandle(t reflect.Type) bool {
	b, ok := basic[t.Kind()]
	return ok && b != t
}

// SpecializeFor implements Mapper.
func (Enum) SpecializeFor(t reflect.Type, opts Options, r *Registry) (Converter, error) {
	under := basic[t.Kind()]
	inner, err := r.resolveInner(t, under, opts)
	if err != nil {
		return nil, err
	}
	return &enum{typ: t, under: under, inner: inner}, nil
}

type enum struct {
	typ, under reflect.Type
	inner      Converter
}

func (c *enum) Read(rec sql.Record, offset int) (reflect.Value, error) {
	v, err := c.inner.Read(rec, offset)
	if err != nil {
		return reflect.Value{}, err
	}
	return v.Convert(c.typ), nil
}

func (c *enum) Write(v reflect.Value) ([]any, error) {
	return c.inner.Write(v.Convert(c.under))
}

func (c *enum) MetaColumns(column string) []string { return c.inner.MetaColumns(column) }
