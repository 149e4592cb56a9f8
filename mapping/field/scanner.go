package field

import (
	stdsql "database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/louisdevie/kiwiq/dialect/sql"
)

var (
	scannerType = reflect.TypeFor[stdsql.Scanner]()
	valuerType  = reflect.TypeFor[driver.Valuer]()
	uuidType    = reflect.TypeFor[uuid.UUID]()
	timeType    = reflect.TypeFor[time.Time]()
)

// Scanner maps non-pointer types T where *T implements sql.Scanner. Values
// are written through driver.Valuer when T or *T implements it, and as is
// otherwise.
type Scanner struct{}

// CanHandle implements Mapper.
func (Scanner) CanHandle(t reflect.Type) bool {
	return t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(scannerType)
}

// SpecializeFor implements Mapper.
func (Scanner) SpecializeFor(t reflect.Type, _ Options, _ *Registry) (Converter, error) {
	return Simple(
		func(rec sql.Record, i int) (reflect.Value, error) {
			src, err := rec.Value(i)
			if err != nil {
				return reflect.Value{}, err
			}
			p := reflect.New(t)
			if err := p.Interface().(stdsql.Scanner).Scan(src); err != nil {
				return reflect.Value{}, fmt.Errorf("field: scan %s: %w", t, err)
			}
			return p.Elem(), nil
		},
		func(v reflect.Value) (any, error) {
			p := reflect.New(t)
			p.Elem().Set(v)
			if p.Type().Implements(valuerType) {
				return p.Interface().(driver.Valuer).Value()
			}
			return v.Interface(), nil
		},
	), nil
}

// UUID maps uuid.UUID. It is stored as its canonical text form, or as 16
// raw bytes with format "binary".
type UUID struct{}

// CanHandle implements Mapper.
func (UUID) CanHandle(t reflect.Type) bool { return t == uuidType }

// SpecializeFor implements Mapper.
func (UUID) SpecializeFor(t reflect.Type, opts Options, _ *Registry) (Converter, error) {
	switch opts.Format {
	case "", "text":
		return Simple(readUUID, func(v reflect.Value) (any, error) {
			return v.Interface().(uuid.UUID).String(), nil
		}), nil
	case "binary":
		return Simple(readUUID, func(v reflect.Value) (any, error) {
			id := v.Interface().(uuid.UUID)
			return id[:], nil
		}), nil
	}
	return nil, fmt.Errorf("field: unknown uuid format %q", opts.Format)
}

func readUUID(rec sql.Record, i int) (reflect.Value, error) {
	src, err := rec.Value(i)
	if err != nil {
		return reflect.Value{}, err
	}
	var id uuid.UUID
	if err := id.Scan(src); err != nil {
		return reflect.Value{}, fmt.Errorf("field: %w", err)
	}
	return reflect.ValueOf(id), nil
}

// Time maps time.Time. Without a format the driver's native value is used.
// With a format the value is stored as text in that layout.
type Time struct{}

// CanHandle implements Mapper.
func (Time) CanHandle(t reflect.Type) bool { return t == timeType }

// SpecializeFor implements Mapper.
func (Time) SpecializeFor(t reflect.Type, opts Options, _ *Registry) (Converter, error) {
	layout := opts.Format
	if layout == "" {
		return Simple(
			func(rec sql.Record, i int) (reflect.Value, error) {
				tm, err := rec.Time(i)
				return reflect.ValueOf(tm), err
			},
			func(v reflect.Value) (any, error) { return v.Interface(), nil },
		), nil
	}
	return Simple(
		func(rec sql.Record, i int) (reflect.Value, error) {
			s, err := rec.String(i)
			if err != nil {
				return reflect.Value{}, err
			}
			tm, err := time.Parse(layout, s)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field: %w", err)
			}
			return reflect.ValueOf(tm), nil
		},
		func(v reflect.Value) (any, error) {
			return v.Interface().(time.Time).Format(layout), nil
		},
	), nil
}
