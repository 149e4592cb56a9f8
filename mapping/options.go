package mapping

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/louisdevie/kiwiq"
	"github.com/louisdevie/kiwiq/mapping/field"
)

// Option configures a Schema or a single Compile call.
type Option func(*options)

type options struct {
	registry *field.Registry
	naming   Naming
	logger   *slog.Logger
	ctors    map[reflect.Type][]constructor
}

// constructor creates a new entity and returns a pointer to it.
type constructor struct {
	fn          func() reflect.Value
	persistence bool
}

func newOptions(opts []Option) *options {
	o := &options{
		registry: field.Default(),
		naming:   Exact,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctors:    make(map[reflect.Type][]constructor),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRegistry sets the field mapper registry. It defaults to
// field.Default().
func WithRegistry(r *field.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithNaming sets the strategy deriving table and column names that are not
// given explicitly. It defaults to Exact.
func WithNaming(n Naming) Option {
	return func(o *options) {
		o.naming = n
	}
}

// WithLogger sets the logger used to report mapper compilation.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConstructor registers a factory for entities of type T. When several
// factories are registered for one type and none is marked as the
// persistence constructor, entities are created as zero values.
func WithConstructor[T any](fn func() *T) Option {
	return withConstructor(fn, false)
}

// WithPersistenceConstructor registers the factory used to create entities
// of type T read from the database.
func WithPersistenceConstructor[T any](fn func() *T) Option {
	return withConstructor(fn, true)
}

func withConstructor[T any](fn func() *T, persistence bool) Option {
	return func(o *options) {
		t := reflect.TypeFor[T]()
		o.ctors[t] = append(o.ctors[t], constructor{
			fn:          func() reflect.Value { return reflect.ValueOf(fn()) },
			persistence: persistence,
		})
	}
}

// constructorFor selects the constructor of t.
func (o *options) constructorFor(t reflect.Type) (func() reflect.Value, error) {
	zero := func() reflect.Value { return reflect.New(t) }
	ctors := o.ctors[t]
	switch len(ctors) {
	case 0:
		return zero, nil
	case 1:
		return ctors[0].fn, nil
	}
	var chosen func() reflect.Value
	for _, c := range ctors {
		if !c.persistence {
			continue
		}
		if chosen != nil {
			return nil, kiwiq.NewConfigError(t, "", fmt.Errorf("%w: several persistence constructors", kiwiq.ErrNoConstructor))
		}
		chosen = c.fn
	}
	if chosen == nil {
		return zero, nil
	}
	return chosen, nil
}
