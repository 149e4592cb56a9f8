package mapping

import (
	"fmt"
	"reflect"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect/sql"
)

// KeyKind is the kind of primary key of an entity.
type KeyKind int

// Primary key kinds.
const (
	KeyUndefined KeyKind = iota
	KeySimple
	KeyCompound
)

// PrimaryKey is the primary key strategy of an entity. Only simple keys
// support key-based operations.
type PrimaryKey interface {
	// Kind returns the kind of key.
	Kind() KeyKind
	// Fields returns the key fields.
	Fields() []*Field
	// Match returns a predicate selecting the entity with the given key.
	Match(key any) (sql.Predicate, error)

	// matchEntity returns a predicate selecting the entity v.
	matchEntity(v reflect.Value) (sql.Predicate, error)
	// writeBack stores a generated id into v. It reports whether v changed.
	writeBack(v reflect.Value, id int64) bool
}

func newPrimaryKey(m *EntityMapper) (PrimaryKey, error) {
	var keys []*Field
	for _, f := range m.fields {
		if f != nil && f.Key {
			keys = append(keys, f)
		}
	}
	switch len(keys) {
	case 0:
		return undefinedKey{typ: m.typ}, nil
	case 1:
		return &simpleKey{table: m.table, field: keys[0]}, nil
	}
	return compoundKey{typ: m.typ, fields: keys}, nil
}

type undefinedKey struct {
	typ reflect.Type
}

func (undefinedKey) Kind() KeyKind    { return KeyUndefined }
func (undefinedKey) Fields() []*Field { return nil }

func (k undefinedKey) Match(any) (sql.Predicate, error) { return nil, k.err() }

func (k undefinedKey) matchEntity(reflect.Value) (sql.Predicate, error) { return nil, k.err() }

func (undefinedKey) writeBack(reflect.Value, int64) bool { return false }

func (k undefinedKey) err() error {
	return kiwiq.NewConfigError(k.typ, "", kiwiq.ErrKeyUndefined)
}

type compoundKey struct {
	typ    reflect.Type
	fields []*Field
}

func (compoundKey) Kind() KeyKind      { return KeyCompound }
func (k compoundKey) Fields() []*Field { return k.fields }

func (k compoundKey) Match(any) (sql.Predicate, error) { return nil, k.err() }

func (k compoundKey) matchEntity(reflect.Value) (sql.Predicate, error) { return nil, k.err() }

func (compoundKey) writeBack(reflect.Value, int64) bool { return false }

func (k compoundKey) err() error {
	return kiwiq.NewConfigError(k.typ, "", kiwiq.ErrCompoundKey)
}

type simpleKey struct {
	table *sql.Table
	field *Field
}

func (*simpleKey) Kind() KeyKind      { return KeySimple }
func (k *simpleKey) Fields() []*Field { return []*Field{k.field} }

func (k *simpleKey) Match(key any) (sql.Predicate, error) {
	v, err := keyValue(k.field.typ, key)
	if err != nil {
		return nil, err
	}
	return k.equal(v)
}

func (k *simpleKey) matchEntity(v reflect.Value) (sql.Predicate, error) {
	return k.equal(v.FieldByIndex(k.field.index))
}

func (k *simpleKey) equal(v reflect.Value) (sql.Predicate, error) {
	vals, err := k.field.conv.Write(v)
	if err != nil {
		return nil, err
	}
	return sql.EQ(k.table.C(k.field.Column), vals[0]), nil
}

// writeBack stores id into a generated integer key.
func (k *simpleKey) writeBack(v reflect.Value, id int64) bool {
	if id == sql.NoAutoID || k.field.Insertable {
		return false
	}
	fv := v.FieldByIndex(k.field.index)
	if fv.Kind() == reflect.Pointer {
		if !isInteger(fv.Type().Elem().Kind()) {
			return false
		}
		p := reflect.New(fv.Type().Elem())
		if !setInteger(p.Elem(), id) {
			return false
		}
		fv.Set(p)
		return true
	}
	return setInteger(fv, id)
}

// keyValue converts key to the key type t. Keys of the same class (integers,
// floats or strings) are converted, other types are a mismatch.
func keyValue(t reflect.Type, key any) (reflect.Value, error) {
	v := reflect.ValueOf(key)
	switch {
	case !v.IsValid():
	case v.Type() == t:
		return v, nil
	case class(v.Kind()) != 0 && class(v.Kind()) == class(t.Kind()) && v.Type().ConvertibleTo(t):
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: key of type %s given %T", kiwiq.ErrKeyMismatch, kiwiq.TypeName(t), key)
}

func class(k reflect.Kind) int {
	switch {
	case isInteger(k):
		return 1
	case k == reflect.Float32 || k == reflect.Float64:
		return 2
	case k == reflect.String:
		return 3
	}
	return 0
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func setInteger(v reflect.Value, id int64) bool {
	switch {
	case v.CanInt():
		if v.OverflowInt(id) {
			return false
		}
		v.SetInt(id)
	case v.CanUint():
		if id < 0 || v.OverflowUint(uint64(id)) {
			return false
		}
		v.SetUint(uint64(id))
	default:
		return false
	}
	return true
}
