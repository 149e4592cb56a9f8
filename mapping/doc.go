// Package mapping maps Go structs to tables and runs typed commands on them.
//
// # Entities
//
// An entity is a struct type. Its exported fields are mapped to columns,
// configured with the db struct tag:
//
//	type Fruit struct {
//		ID    int64  `db:"FRUIT_ID,key,readonly"`
//		Name  string `db:"NAME"`
//		Color string `db:"COLOR"`
//		Notes string `db:"-"`
//	}
//
// Tag options:
//
//   - key: the field is (part of) the primary key.
//   - readonly: the field is never inserted, like a generated key.
//   - ref: the field is an eagerly joined reference to another entity.
//   - format=FMT: a field mapper format, like a time layout.
//   - size=COL: a companion column holding the length of the value.
//
// The table name is the type name, or the result of a TableName method.
// Names that are not given explicitly are derived with a Naming strategy.
//
// # Mappers
//
// An EntityMapper is compiled once per type. It holds the projection of the
// entity, the column offset of every field, the joins of its eager
// references and its primary key strategy. A Schema caches mappers and
// compiles them again when its field registry changes.
//
// # References
//
// A field tagged ref, of type *T or T, is joined with a LEFT JOIN and
// materialized with its parent. A NULL reference reads as a nil pointer or
// a zero struct. A field of type Ref[T] stores only the foreign key; the
// referenced entity is loaded on the first call to Get.
//
// # Commands
//
//	s := mapping.NewSchema(drv)
//	fruits, err := mapping.Select[Fruit](s).FetchList(ctx)
//	lemon, err := mapping.Get[Fruit](ctx, s, 1)
//	_, err = mapping.Insert[Fruit](s).Entity(&Fruit{Name: "Lime"}).Apply(ctx)
//	_, err = mapping.Update[Fruit](s).Only(lemon, "Color").ByKey().Apply(ctx)
//	_, err = mapping.Delete[Fruit](s).Entity(lemon).Apply(ctx)
package mapping
