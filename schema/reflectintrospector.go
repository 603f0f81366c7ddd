package schema

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/syssam/sqltmpl"
)

// tagKey is the struct tag ReflectIntrospector reads field metadata from.
const tagKey = "sqltmpl"

// ReflectIntrospector is a reference SchemaIntrospector implementation
// driven by struct tags, so the engine is exercisable end-to-end without a
// caller-supplied introspector (SPEC_FULL §5). Field names follow Go
// convention (PascalCase); column and table names default to snake_case
// unless overridden by a tag or resolver.
//
// Recognized tag syntax on a field, comma-separated:
//
//	`sqltmpl:"-"`                     // skip this field entirely
//	`sqltmpl:"pk"`                    // primary key, caller-assigned
//	`sqltmpl:"pk,identity"`           // primary key, DB-assigned identity
//	`sqltmpl:"pk,sequence=seq_name"`  // primary key, assigned via sequence
//	`sqltmpl:"fk=Other"`              // foreign key referencing record Other
//	`sqltmpl:"column=custom_name"`    // override the column name
//	`sqltmpl:"readonly"`              // not updatable
type ReflectIntrospector struct{}

// NewReflectIntrospector returns the reference struct-tag-driven
// SchemaIntrospector.
func NewReflectIntrospector() *ReflectIntrospector {
	return &ReflectIntrospector{}
}

func (ReflectIntrospector) TableName(t reflect.Type, resolver TableNameResolver) (string, error) {
	t = derefType(t)
	if resolver != nil {
		if name, ok := resolver.TableName(t); ok {
			return name, nil
		}
	}
	if t.Kind() != reflect.Struct {
		return "", sqltmpl.NewSchemaError(t.String(), "not a record type")
	}
	return toSnakeCase(t.Name()), nil
}

func (r ReflectIntrospector) Columns(t reflect.Type, resolver ColumnNameResolver) ([]Column, error) {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return nil, sqltmpl.NewSchemaError(t.String(), "not a record type")
	}
	var cols []Column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := parseTag(f)
		if tag.skip {
			continue
		}
		name := tag.column
		if name == "" && resolver != nil {
			if n, ok := resolver.ColumnName(f); ok {
				name = n
			}
		}
		if name == "" {
			name = toSnakeCase(f.Name)
		}
		cols = append(cols, Column{
			Name:       name,
			Field:      f,
			PrimaryKey: tag.pk,
			Generation: tag.generation,
			Sequence:   tag.sequence,
			Insertable: true,
			Updatable:  !tag.pk && !tag.readonly,
		})
	}
	if len(cols) == 0 {
		return nil, sqltmpl.NewSchemaError(t.String(), "no columns discovered")
	}
	return cols, nil
}

func (r ReflectIntrospector) PrimaryKeys(t reflect.Type, resolver ColumnNameResolver) ([]Column, error) {
	cols, err := r.Columns(t, resolver)
	if err != nil {
		return nil, err
	}
	var pk []Column
	for _, c := range cols {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	if len(pk) == 0 {
		return nil, sqltmpl.NewSchemaError(t.String(), "missing primary key")
	}
	return pk, nil
}

func (r ReflectIntrospector) ForeignKeys(t reflect.Type, resolver ColumnNameResolver) ([]Column, error) {
	t = derefType(t)
	if t.Kind() != reflect.Struct {
		return nil, sqltmpl.NewSchemaError(t.String(), "not a record type")
	}
	var fks []Column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := parseTag(f)
		if tag.skip || tag.fk == "" {
			continue
		}
		name := tag.column
		if name == "" && resolver != nil {
			if n, ok := resolver.ColumnName(f); ok {
				name = n
			}
		}
		if name == "" {
			name = toSnakeCase(f.Name)
		}
		fks = append(fks, Column{Name: name, Field: f})
	}
	return fks, nil
}

func (r ReflectIntrospector) FindForeignKey(referring, target reflect.Type, fk ForeignKeyResolver, col ColumnNameResolver) (Column, bool, error) {
	referring, target = derefType(referring), derefType(target)
	if fk != nil {
		if f, ok := fk.ForeignKeyField(referring, target); ok {
			tag := parseTag(f)
			name := tag.column
			if name == "" {
				name = toSnakeCase(f.Name)
			}
			return Column{Name: name, Field: f}, true, nil
		}
	}
	for i := 0; i < referring.NumField(); i++ {
		f := referring.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := parseTag(f)
		if tag.skip || tag.fk == "" {
			continue
		}
		if tag.fk != target.Name() {
			continue
		}
		name := tag.column
		if name == "" && col != nil {
			if n, ok := col.ColumnName(f); ok {
				name = n
			}
		}
		if name == "" {
			name = toSnakeCase(f.Name)
		}
		return Column{Name: name, Field: f}, true, nil
	}
	return Column{}, false, nil
}

func (ReflectIntrospector) IsRecord(t reflect.Type) bool {
	t = derefType(t)
	return t.Kind() == reflect.Struct
}

// RefElem always reports false: reflect cannot recover a generic Ref[T]'s
// type parameter T from its instantiated reflect.Type alone. Callers that
// need to detect a Ref value at runtime should use schema.IsRef, which
// works via the refType interface instead of reflection. RefElem exists to
// satisfy the SchemaIntrospector contract for introspectors that do carry
// that information (e.g. one generated alongside a schema DSL).
func (ReflectIntrospector) RefElem(reflect.Type) (reflect.Type, bool) {
	return nil, false
}

func (ReflectIntrospector) RecordField(root reflect.Type, dotPath string) (reflect.StructField, error) {
	t := derefType(root)
	parts := strings.Split(dotPath, ".")
	var field reflect.StructField
	for i, part := range parts {
		if t.Kind() != reflect.Struct {
			return reflect.StructField{}, sqltmpl.NewSchemaError(root.String(), fmt.Sprintf("path %q: %q is not a struct", dotPath, part))
		}
		f, ok := t.FieldByName(part)
		if !ok {
			return reflect.StructField{}, sqltmpl.NewSchemaError(root.String(), fmt.Sprintf("path %q: no field %q", dotPath, part))
		}
		field = f
		if i < len(parts)-1 {
			t = derefType(f.Type)
		}
	}
	return field, nil
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

type fieldTag struct {
	skip       bool
	pk         bool
	fk         string
	column     string
	generation Generation
	sequence   string
	readonly   bool
}

func parseTag(f reflect.StructField) fieldTag {
	raw, ok := f.Tag.Lookup(tagKey)
	if !ok {
		return fieldTag{}
	}
	if raw == "-" {
		return fieldTag{skip: true}
	}
	var tag fieldTag
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "pk":
			tag.pk = true
		case part == "identity":
			tag.generation = GenerationIdentity
		case part == "readonly":
			tag.readonly = true
		case strings.HasPrefix(part, "sequence="):
			tag.generation = GenerationSequence
			tag.sequence = strings.TrimPrefix(part, "sequence=")
		case strings.HasPrefix(part, "fk="):
			tag.fk = strings.TrimPrefix(part, "fk=")
		case strings.HasPrefix(part, "column="):
			tag.column = strings.TrimPrefix(part, "column=")
		}
	}
	return tag
}

// toSnakeCase converts a PascalCase/camelCase Go identifier to
// snake_case, the default column-naming convention when no "column="
// tag override is present.
func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "_")
}
