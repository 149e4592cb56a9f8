package mapping

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"
)

// TagName is the struct tag read by the compiler.
//
//	type Fruit struct {
//		ID    int64  `db:"FRUIT_ID,key,readonly"`
//		Name  string `db:"NAME"`
//		Color string `db:"COLOR"`
//		Notes string `db:"-"`
//	}
const TagName = "db"

// tag holds the column metadata of one struct field.
type tag struct {
	column   string
	key      bool
	readonly bool
	ref      bool
	format   string
	size     string
	skip     bool
}

func parseTag(f reflect.StructField) (tag, error) {
	raw, ok := f.Tag.Lookup(TagName)
	if !ok {
		return tag{}, nil
	}
	if raw == "-" {
		return tag{skip: true}, nil
	}
	parts := strings.Split(raw, ",")
	t := tag{column: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		name, value, _ := strings.Cut(p, "=")
		switch name {
		case "key":
			t.key = true
		case "readonly":
			t.readonly = true
		case "ref":
			t.ref = true
		case "format":
			t.format = value
		case "size":
			t.size = value
		case "":
		default:
			return tag{}, fmt.Errorf("unknown tag option %q", p)
		}
	}
	return t, nil
}

// Naming derives default table and column names from Go identifiers.
type Naming func(goName string) string

var (
	// Exact uses Go identifiers as they are.
	Exact Naming = func(s string) string { return s }
	// Snake converts Go identifiers to snake case: UnitPrice becomes unit_price.
	Snake Naming = inflect.Underscore
)

// tableNamer is implemented by entities overriding their table name.
type tableNamer interface {
	TableName() string
}

var tableNamerType = reflect.TypeFor[tableNamer]()

func tableName(t reflect.Type, naming Naming) string {
	if t.Implements(tableNamerType) {
		return reflect.Zero(t).Interface().(tableNamer).TableName()
	}
	if reflect.PointerTo(t).Implements(tableNamerType) {
		return reflect.New(t).Interface().(tableNamer).TableName()
	}
	return naming(t.Name())
}
