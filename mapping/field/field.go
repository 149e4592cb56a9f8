// Package field converts between Go struct field values and database
// columns.
//
// A Mapper is a generic rule that accepts a family of Go types. Given one
// concrete type and the column options of a field, it produces a Converter
// bound to that exact type. Wrapper mappers (nullable pointers, named
// scalar types) resolve their inner type through the same Registry, so a
// small set of mappers covers an open set of field types.
//
// Mappers are tried in registration order and the first one accepting a
// type wins.
package field

import (
	"reflect"

	"github.com/louisdevie/kiwiq/dialect/sql"
)

// Options are the column options of a field.
type Options struct {
	// Format is a mapper-specific format, like a time layout or "binary"
	// for UUIDs.
	Format string
	// SizeColumn names a companion integer column holding the length of a
	// variable-length value.
	SizeColumn string
}

// Mapper is a generic field mapping rule.
type Mapper interface {
	// CanHandle reports whether the mapper accepts values of type t.
	CanHandle(t reflect.Type) bool
	// SpecializeFor returns a converter bound to t and opts. Wrapper mappers
	// resolve their inner type through r.
	SpecializeFor(t reflect.Type, opts Options, r *Registry) (Converter, error)
}

// Converter reads and writes values of one concrete type.
type Converter interface {
	// Read reads the value starting at column offset of rec.
	Read(rec sql.Record, offset int) (reflect.Value, error)
	// Write returns the storage values of v: the value column first, then
	// one value per meta-column.
	Write(v reflect.Value) ([]any, error)
	// MetaColumns returns the companion columns read and written after
	// column.
	MetaColumns(column string) []string
}

// Width returns the number of consecutive columns c reads.
func Width(c Converter) int {
	return 1 + len(c.MetaColumns(""))
}

// MapperFunc adapts a pair of functions to the Mapper interface.
type MapperFunc struct {
	Handles    func(t reflect.Type) bool
	Specialize func(t reflect.Type, opts Options, r *Registry) (Converter, error)
}

// CanHandle implements Mapper.
func (f MapperFunc) CanHandle(t reflect.Type) bool { return f.Handles(t) }

// SpecializeFor implements Mapper.
func (f MapperFunc) SpecializeFor(t reflect.Type, opts Options, r *Registry) (Converter, error) {
	return f.Specialize(t, opts, r)
}

// simple is a single-column converter built from two functions.
type simple struct {
	read  func(rec sql.Record, offset int) (reflect.Value, error)
	write func(v reflect.Value) (any, error)
}

func (c simple) Read(rec sql.Record, offset int) (reflect.Value, error) { return c.read(rec, offset) }

func (c simple) Write(v reflect.Value) ([]any, error) {
	x, err := c.write(v)
	if err != nil {
		return nil, err
	}
	return []any{x}, nil
}

func (simple) MetaColumns(string) []string { return nil }

// Simple returns a single-column converter.
func Simple(read func(rec sql.Record, offset int) (reflect.Value, error), write func(v reflect.Value) (any, error)) Converter {
	return simple{read: read, write: write}
}
