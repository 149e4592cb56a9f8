package field

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/louisdevie/kiwiq"
)

// Registry is an ordered list of mappers. Earlier mappers take precedence.
// Fallback mappers are tried after every registered mapper, including the
// ones appended by Register. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	mappers   []Mapper
	fallbacks []Mapper
	version   atomic.Uint64
}

// NewRegistry returns a registry holding the given mappers in order, backed
// by the Fallbacks.
//
//	r := field.NewRegistry(myMapper)                      // myMapper, then msgpack
//	r := field.NewRegistry(append([]field.Mapper{myMapper}, field.Builtins()...)...)
func NewRegistry(mappers ...Mapper) *Registry {
	r := &Registry{fallbacks: Fallbacks()}
	r.mappers = append(r.mappers, mappers...)
	return r
}

var defaultRegistry = NewRegistry(Builtins()...)

// Default returns the process-wide registry, pre-populated with the built-in
// mappers.
func Default() *Registry { return defaultRegistry }

// Builtins returns the built-in mappers in their priority order.
func Builtins() []Mapper {
	return []Mapper{
		UUID{},
		Scanner{},
		Time{},
		Bytes{},
		Runes{},
		Nullable{},
		Scalar{},
		Enum{},
	}
}

// Fallbacks returns the mappers tried when no registered mapper handles a
// type: composites are stored as msgpack blobs.
func Fallbacks() []Mapper {
	return []Mapper{Msgpack{}}
}

// SetFallbacks replaces the fallback mappers and bumps the registry
// version. Calling it with no mapper disables the fallback.
func (r *Registry) SetFallbacks(ms ...Mapper) {
	r.mu.Lock()
	r.fallbacks = append([]Mapper(nil), ms...)
	r.mu.Unlock()
	r.version.Add(1)
}

// Register appends m at the lowest priority and bumps the registry version.
func (r *Registry) Register(m Mapper) {
	r.mu.Lock()
	r.mappers = append(r.mappers, m)
	r.mu.Unlock()
	r.version.Add(1)
}

// Version returns a counter incremented by every change of the mappers.
func (r *Registry) Version() uint64 { return r.version.Load() }

// Len returns the number of registered mappers, fallbacks excluded.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mappers)
}

// Resolve returns a converter for t built by the first mapper that handles
// it, trying the fallbacks last.
func (r *Registry) Resolve(t reflect.Type, opts Options) (Converter, error) {
	r.mu.RLock()
	mappers, fallbacks := r.mappers, r.fallbacks
	r.mu.RUnlock()
	for _, list := range [][]Mapper{mappers, fallbacks} {
		for _, m := range list {
			if m.CanHandle(t) {
				return m.SpecializeFor(t, opts, r)
			}
		}
	}
	return nil, kiwiq.NewUnmappableFieldError(t, nil)
}

// resolveInner resolves the inner type of the wrapper type outer.
func (r *Registry) resolveInner(outer, inner reflect.Type, opts Options) (Converter, error) {
	c, err := r.Resolve(inner, opts)
	if err != nil {
		if errors.Is(err, kiwiq.ErrUnmappableField) {
			return nil, kiwiq.NewUnmappableFieldError(outer, err)
		}
		return nil, err
	}
	return c, nil
}
