package template_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqltmpl/template"
)

func TestTableUseUnmarkedTypeIsNotUsed(t *testing.T) {
	u := template.NewTableUse()
	assert.False(t, u.Used(reflect.TypeOf(User{})))
}

func TestTableUseMarkThenUsed(t *testing.T) {
	u := template.NewTableUse()
	u.Mark(reflect.TypeOf(User{}))

	assert.True(t, u.Used(reflect.TypeOf(User{})))
	assert.False(t, u.Used(reflect.TypeOf(Role{})), "marking one type does not mark others")
}

func TestTableUseMarkIsIdempotent(t *testing.T) {
	u := template.NewTableUse()
	u.Mark(reflect.TypeOf(User{}))
	u.Mark(reflect.TypeOf(User{}))
	assert.True(t, u.Used(reflect.TypeOf(User{})))
}
