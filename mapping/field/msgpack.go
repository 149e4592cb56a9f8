package field

import (
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/louisdevie/kiwiq/dialect/sql"
)

// Msgpack maps structs, maps, slices and arrays as MessagePack-encoded
// blobs. It is the registry fallback and catches composite types no
// registered mapper handles.
type Msgpack struct{}

// CanHandle implements Mapper.
func (Msgpack) CanHandle(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		return true
	}
	return false
}

// SpecializeFor implements Mapper.
func (Msgpack) SpecializeFor(t reflect.Type, _ Options, _ *Registry) (Converter, error) {
	return Simple(
		func(rec sql.Record, i int) (reflect.Value, error) {
			p := reflect.New(t)
			null, err := rec.IsNull(i)
			if err != nil || null {
				return p.Elem(), err
			}
			b, err := rec.Bytes(i)
			if err != nil {
				return reflect.Value{}, err
			}
			if err := msgpack.Unmarshal(b, p.Interface()); err != nil {
				return reflect.Value{}, fmt.Errorf("field: decode %s: %w", t, err)
			}
			return p.Elem(), nil
		},
		func(v reflect.Value) (any, error) {
			b, err := msgpack.Marshal(v.Interface())
			if err != nil {
				return nil, fmt.Errorf("field: encode %s: %w", t, err)
			}
			return b, nil
		},
	), nil
}
