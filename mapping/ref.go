package mapping

import (
	"context"
	"errors"
	"reflect"
)

// Ref is a lazily loaded one-to-one reference to an entity of type T.
//
// A Ref read from the database holds the key of the referenced entity and
// loads it on the first call to Get. The result is memoized. Ref is not safe
// for concurrent first access.
//
//	type Fruit struct {
//		ID    int64            `db:"FRUIT_ID,key,readonly"`
//		Color mapping.Ref[Color] `db:"COLOR_ID"`
//	}
type Ref[T any] struct {
	loaded bool
	value  *T
	key    any
	load   func(ctx context.Context, key any) (any, error)
}

// Loaded returns a reference to an entity already in memory.
func Loaded[T any](v *T) Ref[T] {
	return Ref[T]{loaded: true, value: v}
}

// RefTo returns a reference to the entity with the given key. It can be
// stored but not loaded.
func RefTo[T any](key any) Ref[T] {
	return Ref[T]{key: key}
}

// Get returns the referenced entity, loading it on first use. The zero Ref
// references no entity and returns nil.
func (r *Ref[T]) Get(ctx context.Context) (*T, error) {
	if r.loaded || r.key == nil {
		return r.value, nil
	}
	if r.load == nil {
		return nil, errors.New("mapping: reference is not bound to a schema")
	}
	v, err := r.load(ctx, r.key)
	if err != nil {
		return nil, err
	}
	r.value, r.loaded, r.load = v.(*T), true, nil
	return r.value, nil
}

// IsLoaded reports whether Get would return without querying.
func (r *Ref[T]) IsLoaded() bool { return r.loaded }

// Key returns the key of a reference that is not loaded yet.
func (r *Ref[T]) Key() (any, bool) {
	if r.loaded {
		return nil, false
	}
	return r.key, true
}

func (r *Ref[T]) target() reflect.Type { return reflect.TypeFor[T]() }

func (r *Ref[T]) pend(key any, load func(context.Context, any) (any, error)) {
	*r = Ref[T]{key: key, load: load}
}

// entity returns the loaded entity as a pointer value, if any.
func (r *Ref[T]) entity() (reflect.Value, bool) {
	if !r.loaded || r.value == nil {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(r.value), true
}

// lazyRef is implemented by *Ref[T] for every T.
type lazyRef interface {
	target() reflect.Type
	pend(key any, load func(context.Context, any) (any, error))
	entity() (reflect.Value, bool)
	Key() (any, bool)
}

var lazyRefType = reflect.TypeFor[lazyRef]()

func isLazyRef(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && reflect.PointerTo(t).Implements(lazyRefType)
}
