package schema

import "reflect"

// TableNameResolver maps a record type to a table name, overriding the
// SchemaIntrospector's default naming policy.
type TableNameResolver interface {
	TableName(t reflect.Type) (string, bool)
}

// ColumnNameResolver maps a struct field to a column name, overriding the
// SchemaIntrospector's default naming policy.
type ColumnNameResolver interface {
	ColumnName(f reflect.StructField) (string, bool)
}

// ForeignKeyResolver decides which field of `referring`, if any, is a
// foreign key pointing at `target`, overriding the SchemaIntrospector's
// default discovery policy.
type ForeignKeyResolver interface {
	ForeignKeyField(referring, target reflect.Type) (reflect.StructField, bool)
}

// SchemaIntrospector is the external collaborator (§6) the compiler
// consults for record-type reflection: table names, column lists, primary
// and foreign keys. The core never reflects over a record type itself —
// every fact about a record type's shape flows through this interface, so
// a caller can back it with struct tags, a fluent schema DSL, database
// introspection, or anything else.
type SchemaIntrospector interface {
	// TableName returns the table name for t, consulting resolver first
	// if non-nil.
	TableName(t reflect.Type, resolver TableNameResolver) (string, error)

	// Columns returns every column of t, in declaration order, including
	// primary keys.
	Columns(t reflect.Type, resolver ColumnNameResolver) ([]Column, error)

	// PrimaryKeys returns the primary-key columns of t, in declaration
	// order.
	PrimaryKeys(t reflect.Type, resolver ColumnNameResolver) ([]Column, error)

	// ForeignKeys returns the foreign-key columns declared directly on t
	// (not transitively; §9 "the join deriver never traverses
	// transitively").
	ForeignKeys(t reflect.Type, resolver ColumnNameResolver) ([]Column, error)

	// FindForeignKey reports the foreign-key column on `referring` that
	// targets `target`, if one is declared (§4.7 steps 1–3).
	FindForeignKey(referring, target reflect.Type, fk ForeignKeyResolver, col ColumnNameResolver) (Column, bool, error)

	// IsRecord reports whether t is a record type the introspector knows
	// how to describe (as opposed to a scalar or unrelated Go type).
	IsRecord(t reflect.Type) bool

	// RefElem unwraps a Ref[T] type to T, reporting whether t was such a
	// reference.
	RefElem(t reflect.Type) (reflect.Type, bool)

	// RecordField resolves a dotted metamodel path (e.g. "Author.Name")
	// against root, returning the terminal struct field.
	RecordField(root reflect.Type, dotPath string) (reflect.StructField, error)
}
