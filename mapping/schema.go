package mapping

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/dialect"
	"github.com/louisdevie/kiwiq/dialect/sql"
	"github.com/louisdevie/kiwiq/mapping/field"
)

// Schema runs mapped commands on one driver and caches the entity mappers
// it compiles. It is safe for concurrent use.
//
//	s := mapping.NewSchema(drv, mapping.WithNaming(mapping.Snake))
//	fruits, err := mapping.Select[Fruit](s).
//		Where(sql.EQ(mapping.Column[Fruit](s, "Color"), "Red")).
//		FetchList(ctx)
type Schema struct {
	drv     dialect.Driver
	opts    *options
	mappers sync.Map // reflect.Type => *entry
	group   singleflight.Group
}

// entry is a compiled mapper, or its permanent compile error, for one
// registry version.
type entry struct {
	version uint64
	mapper  *EntityMapper
	err     error
}

// NewSchema returns a schema running commands on drv.
func NewSchema(drv dialect.Driver, opts ...Option) *Schema {
	return &Schema{drv: drv, opts: newOptions(opts)}
}

// Driver returns the driver of the schema.
func (s *Schema) Driver() dialect.Driver { return s.drv }

// Registry returns the field mapper registry of the schema.
func (s *Schema) Registry() *field.Registry { return s.opts.registry }

// Mapper returns the mapper of the struct type t, compiling it on first
// use. Mappers are compiled again after the registry changes.
func (s *Schema) Mapper(t reflect.Type) (*EntityMapper, error) {
	version := s.opts.registry.Version()
	if e, ok := s.load(t, version); ok {
		return e.mapper, e.err
	}
	v, _, _ := s.group.Do(fmt.Sprintf("%p", t), func() (any, error) {
		if e, ok := s.load(t, version); ok {
			return e, nil
		}
		if _, stale := s.mappers.Load(t); stale {
			s.opts.logger.Info("rebuilding entity mapper",
				"type", kiwiq.TypeName(t),
				"registry_version", version,
			)
		}
		m, err := s.opts.compile(t)
		if err != nil {
			s.opts.logger.Debug("cannot map entity", "type", kiwiq.TypeName(t), "error", err)
		}
		e := &entry{version: version, mapper: m, err: err}
		s.mappers.Store(t, e)
		return e, nil
	})
	e := v.(*entry)
	return e.mapper, e.err
}

func (s *Schema) load(t reflect.Type, version uint64) (*entry, bool) {
	v, ok := s.mappers.Load(t)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	return e, e.version == version
}

// MapperOf returns the mapper of T.
func MapperOf[T any](s *Schema) (*EntityMapper, error) {
	return s.Mapper(reflect.TypeFor[T]())
}

// Column returns the column of the field of T with the given Go or column
// name, qualified by the table alias used by Select[T].
func Column[T any](s *Schema, name string) *sql.Column {
	m, err := MapperOf[T](s)
	if err != nil {
		return sql.C(name)
	}
	return m.Column(name)
}

func (s *Schema) builder() sql.Builder { return sql.Using(s.drv) }

// loader binds lazy references to the schema.
func (s *Schema) loader(t reflect.Type) func(ctx context.Context, key any) (any, error) {
	return func(ctx context.Context, key any) (any, error) {
		m, err := s.Mapper(t)
		if err != nil {
			return nil, err
		}
		v, err := s.get(ctx, m, key)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
}

// get loads the entity of m with the given key.
func (s *Schema) get(ctx context.Context, m *EntityMapper, key any) (reflect.Value, error) {
	name := kiwiq.TypeName(m.typ)
	pred, err := m.key.Match(key)
	if err != nil {
		return reflect.Value{}, kiwiq.NewQueryError(name, "get", err)
	}
	r, err := m.selector(s.builder()).Where(pred).Fetch(ctx)
	if err != nil {
		return reflect.Value{}, kiwiq.NewQueryError(name, "get", err)
	}
	defer r.Close()
	if !r.Next() {
		if err := r.Err(); err != nil {
			return reflect.Value{}, kiwiq.NewQueryError(name, "get", err)
		}
		return reflect.Value{}, kiwiq.NewNotFoundError(name, key)
	}
	v, err := m.read(r.Record(), 0, s.loader)
	if err != nil {
		return reflect.Value{}, kiwiq.NewQueryError(name, "get", err)
	}
	return v, nil
}
