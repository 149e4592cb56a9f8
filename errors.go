package kiwiq

import (
	"errors"
	"fmt"
	"reflect"
)

// Standard sentinel errors. Every typed error below matches one of them
// through errors.Is.
var (
	// ErrNotFound is returned when a key-based query yields no row.
	ErrNotFound = errors.New("kiwiq: entity not found")

	// ErrUsage is returned when a builder method is called out of order or
	// more often than allowed.
	ErrUsage = errors.New("kiwiq: invalid usage")

	// ErrStructure is returned when a command cannot be rendered.
	ErrStructure = errors.New("kiwiq: malformed command")

	// ErrConfig is returned when an entity type cannot be mapped.
	ErrConfig = errors.New("kiwiq: invalid mapping configuration")

	// ErrUnmappableField is returned when no field mapper handles a type.
	ErrUnmappableField = errors.New("kiwiq: unmappable field")

	// ErrNoConstructor is returned when no usable constructor exists for a type.
	ErrNoConstructor = errors.New("kiwiq: no usable constructor")

	// ErrKeyMismatch is returned when a key value does not fit the primary key.
	ErrKeyMismatch = errors.New("kiwiq: primary key type mismatch")

	// ErrRelationColumn is returned when a reference column cannot be inferred.
	ErrRelationColumn = errors.New("kiwiq: relationship column cannot be inferred")

	// ErrKeyUndefined is returned by key-based operations on types without a key.
	ErrKeyUndefined = errors.New("kiwiq: primary key not defined")

	// ErrCompoundKey is returned by key-based operations on compound keys.
	ErrCompoundKey = errors.New("kiwiq: compound primary keys are not supported")

	// ErrCyclicReference is returned when eager references form a cycle.
	ErrCyclicReference = errors.New("kiwiq: cyclic eager reference")
)

// NotFoundError is returned when a key-based query yields no row.
type NotFoundError struct {
	Entity string
	Key    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("kiwiq: %s not found (key=%v)", e.Entity, e.Key)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// NewNotFoundError returns a new NotFoundError for the given entity and key.
func NewNotFoundError(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// UsageError reports a builder method called a second time, or out of order.
type UsageError struct {
	Op  string // Builder operation (e.g. "where", "limit", "update source")
	Msg string
}

// Error returns the error string.
func (e *UsageError) Error() string {
	return fmt.Sprintf("kiwiq: %s: %s", e.Op, e.Msg)
}

// Is reports whether the target error matches UsageError.
func (e *UsageError) Is(err error) bool {
	return err == ErrUsage
}

// NewUsageError returns a new UsageError.
func NewUsageError(op, msg string) *UsageError {
	return &UsageError{Op: op, Msg: msg}
}

// IsUsageError returns true if the error is a UsageError.
func IsUsageError(err error) bool {
	return err != nil && errors.Is(err, ErrUsage)
}

// StructureError reports a command that cannot be rendered, like unbalanced
// brackets or a SELECT without a FROM table.
type StructureError struct {
	Msg string
}

// Error returns the error string.
func (e *StructureError) Error() string {
	return "kiwiq: " + e.Msg
}

// Is reports whether the target error matches StructureError.
func (e *StructureError) Is(err error) bool {
	return err == ErrStructure
}

// NewStructureError returns a new StructureError.
func NewStructureError(format string, args ...any) *StructureError {
	return &StructureError{Msg: fmt.Sprintf(format, args...)}
}

// IsStructureError returns true if the error is a StructureError.
func IsStructureError(err error) bool {
	return err != nil && errors.Is(err, ErrStructure)
}

// ConfigError is a permanent mapping failure for an entity type. The reason
// is one of the sentinel errors above, or an UnmappableFieldError.
type ConfigError struct {
	Type  string // Entity type
	Field string // Optional: the offending struct field
	Err   error
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("kiwiq: mapping %s.%s: %v", e.Type, e.Field, e.Err)
	}
	return fmt.Sprintf("kiwiq: mapping %s: %v", e.Type, e.Err)
}

// Is reports whether the target error matches ConfigError.
func (e *ConfigError) Is(err error) bool {
	return err == ErrConfig
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError returns a new ConfigError for the given type.
func NewConfigError(t reflect.Type, field string, err error) *ConfigError {
	return &ConfigError{Type: TypeName(t), Field: field, Err: err}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	return err != nil && errors.Is(err, ErrConfig)
}

// UnmappableFieldError is returned when no field mapper accepts a type.
// Wrapper mappers (nullable, enum) nest the inner failure as Cause.
type UnmappableFieldError struct {
	Type  reflect.Type
	Cause *UnmappableFieldError
}

// Error returns the error string.
func (e *UnmappableFieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("kiwiq: cannot map %s: %s", TypeName(e.Type), e.Cause.reason())
	}
	return fmt.Sprintf("kiwiq: cannot map %s: no field mapper handles it", TypeName(e.Type))
}

func (e *UnmappableFieldError) reason() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot map %s: %s", TypeName(e.Type), e.Cause.reason())
	}
	return fmt.Sprintf("no field mapper handles %s", TypeName(e.Type))
}

// Root returns the innermost type that could not be mapped.
func (e *UnmappableFieldError) Root() reflect.Type {
	for e.Cause != nil {
		e = e.Cause
	}
	return e.Type
}

// Is reports whether the target error matches UnmappableFieldError.
func (e *UnmappableFieldError) Is(err error) bool {
	return err == ErrUnmappableField
}

// NewUnmappableFieldError returns a new UnmappableFieldError. The cause is
// kept when err is itself an UnmappableFieldError.
func NewUnmappableFieldError(t reflect.Type, err error) *UnmappableFieldError {
	e := &UnmappableFieldError{Type: t}
	errors.As(err, &e.Cause)
	return e
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("kiwiq: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select", "get", "load")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("kiwiq: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("kiwiq: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "insert", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("kiwiq: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// TypeName returns the printable name of t.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
