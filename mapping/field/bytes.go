package field

import (
	"fmt"
	"reflect"

	"github.com/louisdevie/kiwiq/dialect/sql"
)

// Dynamic reads start with a chunk of InitialChunk elements. The chunk
// doubles once the data read reaches GrowthFactor chunks.
const (
	InitialChunk = 256
	GrowthFactor = 4
)

var (
	bytesType = reflect.TypeFor[[]byte]()
	runesType = reflect.TypeFor[[]rune]()
)

// Bytes maps []byte. With a size column the exact length is read from it
// and written to it. Otherwise the value is read in growing chunks until a
// short read.
type Bytes struct{}

// CanHandle implements Mapper.
func (Bytes) CanHandle(t reflect.Type) bool { return t == bytesType }

// SpecializeFor implements Mapper.
func (Bytes) SpecializeFor(_ reflect.Type, opts Options, _ *Registry) (Converter, error) {
	return &chunked[byte]{size: opts.SizeColumn, read: sql.Record.ReadBytes}, nil
}

// Runes maps []rune the same way Bytes maps []byte, counting characters.
type Runes struct{}

// CanHandle implements Mapper.
func (Runes) CanHandle(t reflect.Type) bool { return t == runesType }

// SpecializeFor implements Mapper.
func (Runes) SpecializeFor(_ reflect.Type, opts Options, _ *Registry) (Converter, error) {
	return &chunked[rune]{size: opts.SizeColumn, read: sql.Record.ReadChars}, nil
}

type chunked[E byte | rune] struct {
	size string
	read func(rec sql.Record, i int, offset int64, buf []E) (int, error)
}

func (c *chunked[E]) Read(rec sql.Record, offset int) (reflect.Value, error) {
	null, err := rec.IsNull(offset)
	if err != nil || null {
		return reflect.ValueOf([]E(nil)), err
	}
	var data []E
	if c.size != "" {
		data, err = c.readSized(rec, offset)
	} else {
		data, err = c.readDynamic(rec, offset)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(data), nil
}

func (c *chunked[E]) readSized(rec sql.Record, offset int) ([]E, error) {
	n, err := rec.Int64(offset + 1)
	if err != nil {
		return nil, fmt.Errorf("field: size column %q: %w", c.size, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("field: size column %q holds negative length %d", c.size, n)
	}
	data := make([]E, n)
	for read := 0; read < len(data); {
		m, err := c.read(rec, offset, int64(read), data[read:])
		if err != nil {
			return nil, err
		}
		if m == 0 {
			return nil, fmt.Errorf("field: value is shorter than its size %d", n)
		}
		read += m
	}
	return data, nil
}

func (c *chunked[E]) readDynamic(rec sql.Record, offset int) ([]E, error) {
	chunk := InitialChunk
	data := make([]E, 0, chunk)
	for {
		if len(data) >= GrowthFactor*chunk {
			chunk *= 2
		}
		buf := make([]E, chunk)
		m, err := c.read(rec, offset, int64(len(data)), buf)
		if err != nil {
			return nil, err
		}
		data = append(data, buf[:m]...)
		if m < chunk {
			return data, nil
		}
	}
}

func (c *chunked[E]) Write(v reflect.Value) ([]any, error) {
	var data []E
	if !v.IsNil() {
		data = v.Interface().([]E)
	}
	if c.size == "" {
		if data == nil {
			return []any{nil}, nil
		}
		return []any{encode(data)}, nil
	}
	if data == nil {
		return []any{nil, nil}, nil
	}
	return []any{encode(data), len(data)}, nil
}

func (c *chunked[E]) MetaColumns(string) []string {
	if c.size == "" {
		return nil
	}
	return []string{c.size}
}

// encode returns the driver value of data: bytes as is, runes as a string.
func encode[E byte | rune](data []E) any {
	switch d := any(data).(type) {
	case []rune:
		return string(d)
	}
	return data
}
