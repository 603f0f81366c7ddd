package template_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqltmpl/dialect"
	"github.com/syssam/sqltmpl/template"
)

func TestAliasMapperExplicitThenImplicit(t *testing.T) {
	m := template.NewAliasMapper(dialect.NewPostgres())

	a := m.Alias(reflect.TypeOf(User{}), "u", template.Inner)
	assert.Equal(t, "u", a)

	again := m.Alias(reflect.TypeOf(User{}), "", template.Inner)
	assert.Equal(t, "u", again, "a type already registered keeps its alias even when asked without an explicit one")
}

func TestAliasMapperAutoAllocatesMonotoneAlias(t *testing.T) {
	m := template.NewAliasMapper(dialect.NewPostgres())

	a1 := m.Alias(reflect.TypeOf(User{}), "", template.Inner)
	a2 := m.Alias(reflect.TypeOf(Role{}), "", template.Inner)
	assert.NotEqual(t, a1, a2)
	assert.Equal(t, "user", a1)
	assert.Equal(t, "role", a2)
}

func TestAliasMapperNestedFallsBackToOuter(t *testing.T) {
	outer := template.NewAliasMapper(dialect.NewPostgres())
	outer.Alias(reflect.TypeOf(User{}), "u", template.Inner)

	inner := outer.Nested()
	a := inner.Alias(reflect.TypeOf(User{}), "", template.Outer)
	assert.Equal(t, "u", a, "a correlated subquery resolves an outer-scope alias without reallocating")
}
