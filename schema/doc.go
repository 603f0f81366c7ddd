// Package schema provides the record-schema collaborators the template
// compiler treats as external: the SchemaIntrospector capability (PK, FK,
// column, and table-name discovery on record types), the Model/Column
// shape it produces for INSERT/UPDATE column lists, and the Ref[T]
// deferred-reference type.
//
// The compiler never reflects over a record type directly; it only calls
// through SchemaIntrospector. ReflectIntrospector is a reference
// implementation driven by struct tags, provided so the rest of this
// module is exercisable without a caller-supplied introspector:
//
//	type User struct {
//		ID   int64  `sqltmpl:"pk"`
//		Name string `sqltmpl:"column=name"`
//	}
//
//	type Post struct {
//		ID     int64 `sqltmpl:"pk"`
//		UserID int64 `sqltmpl:"fk=User"`
//	}
package schema
