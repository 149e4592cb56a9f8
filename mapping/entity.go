package mapping

import (
	"context"
	"fmt"
	"reflect"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect/sql"
)

// loaderFunc loads the entity of type t with the given key.
type loaderFunc func(t reflect.Type) func(ctx context.Context, key any) (any, error)

// read materializes an entity from the row columns starting at base and
// returns a pointer to it. Lazy references are bound to load.
func (m *EntityMapper) read(rec sql.Record, base int, load loaderFunc) (reflect.Value, error) {
	p := m.ctor()
	v := p.Elem()
	for _, f := range m.fields {
		dst := v.FieldByIndex(f.index)
		offset := base + f.Offset
		switch f.Kind {
		case ValueField:
			x, err := f.conv.Read(rec, offset)
			if err != nil {
				return reflect.Value{}, m.readErr(f, err)
			}
			dst.Set(x)
		case LazyReferenceField:
			null, err := rec.IsNull(offset)
			if err != nil {
				return reflect.Value{}, m.readErr(f, err)
			}
			if null {
				dst.Set(reflect.Zero(f.typ))
				continue
			}
			key, err := f.conv.Read(rec, offset)
			if err != nil {
				return reflect.Value{}, m.readErr(f, err)
			}
			var fn func(context.Context, any) (any, error)
			if load != nil {
				fn = load(f.target)
			}
			dst.Addr().Interface().(lazyRef).pend(key.Interface(), fn)
		case ReferenceField:
			nk := f.nested.key.(*simpleKey).field
			null, err := rec.IsNull(offset + nk.Offset)
			if err != nil {
				return reflect.Value{}, m.readErr(f, err)
			}
			if null {
				dst.Set(reflect.Zero(f.typ))
				continue
			}
			x, err := f.nested.read(rec, offset, load)
			if err != nil {
				return reflect.Value{}, err
			}
			if f.typ.Kind() == reflect.Pointer {
				dst.Set(x)
			} else {
				dst.Set(x.Elem())
			}
		}
	}
	return p, nil
}

func (m *EntityMapper) readErr(f *Field, err error) error {
	return fmt.Errorf("mapping: read %s.%s: %w", kiwiq.TypeName(m.typ), f.Name, err)
}

// values returns the columns and storage values of the fields of the
// entity v accepted by keep, in declaration order.
func (m *EntityMapper) values(v reflect.Value, keep func(*Field) bool) ([]string, []any, error) {
	var (
		columns []string
		values  []any
	)
	for _, f := range m.fields {
		if keep != nil && !keep(f) {
			continue
		}
		fv := v.FieldByIndex(f.index)
		switch f.Kind {
		case ValueField:
			vals, err := f.conv.Write(fv)
			if err != nil {
				return nil, nil, m.writeErr(f, err)
			}
			columns = append(columns, f.Column)
			columns = append(columns, f.conv.MetaColumns(f.Column)...)
			values = append(values, vals...)
		case LazyReferenceField:
			x, err := m.refKey(f, fv.Addr().Interface().(lazyRef))
			if err != nil {
				return nil, nil, m.writeErr(f, err)
			}
			columns = append(columns, f.Column)
			values = append(values, x)
		case ReferenceField:
			x, err := m.nestedKey(f, fv)
			if err != nil {
				return nil, nil, m.writeErr(f, err)
			}
			columns = append(columns, f.Column)
			values = append(values, x)
		}
	}
	return columns, values, nil
}

// refKey returns the foreign key stored for a lazy reference.
func (m *EntityMapper) refKey(f *Field, ref lazyRef) (any, error) {
	var kv reflect.Value
	if key, ok := ref.Key(); ok {
		if key == nil {
			return nil, nil
		}
		var err error
		if kv, err = keyValue(f.keyType, key); err != nil {
			return nil, err
		}
	} else {
		e, ok := ref.entity()
		if !ok {
			return nil, nil
		}
		kv = e.Elem().FieldByIndex(f.targetKey)
	}
	vals, err := f.conv.Write(kv)
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

// nestedKey returns the foreign key stored for an eager reference.
func (m *EntityMapper) nestedKey(f *Field, fv reflect.Value) (any, error) {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return nil, nil
		}
		fv = fv.Elem()
	}
	nk := f.nested.key.(*simpleKey).field
	vals, err := nk.conv.Write(fv.FieldByIndex(nk.index))
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

func (m *EntityMapper) writeErr(f *Field, err error) error {
	return fmt.Errorf("mapping: write %s.%s: %w", kiwiq.TypeName(m.typ), f.Name, err)
}
