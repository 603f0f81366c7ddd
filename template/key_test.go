package template_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqltmpl/template"
)

func TestKeyNullKeyIsNotCacheable(t *testing.T) {
	assert.False(t, template.NullKey.IsCacheable())
	assert.False(t, template.Key{}.IsCacheable())
}

func TestKeyColumnKeyIgnoresAlias(t *testing.T) {
	k1 := template.ColumnKey(reflect.TypeOf(User{}), "Name")
	k2 := template.ColumnKey(reflect.TypeOf(User{}), "Name")
	assert.Equal(t, k1, k2)
	assert.True(t, k1.IsCacheable())
}

func TestKeyColumnKeyDistinguishesFieldsAndTypes(t *testing.T) {
	name := template.ColumnKey(reflect.TypeOf(User{}), "Name")
	id := template.ColumnKey(reflect.TypeOf(User{}), "ID")
	role := template.ColumnKey(reflect.TypeOf(Role{}), "ID")
	assert.NotEqual(t, name, id)
	assert.NotEqual(t, id, role)
}

func TestKeyCollectionKeyArityCutoffProducesNullKey(t *testing.T) {
	values := make([]any, template.MaxArity)
	for i := range values {
		values[i] = i
	}
	within := template.CollectionKey(reflect.TypeOf(User{}), "ID", "IN", values)
	assert.True(t, within.IsCacheable())

	over := template.CollectionKey(reflect.TypeOf(User{}), "ID", "IN", append(values, template.MaxArity))
	assert.Equal(t, template.NullKey, over)
	assert.False(t, over.IsCacheable())
}

func TestKeyCollectionKeyEmptyCollectionsShareOneKey(t *testing.T) {
	a := template.CollectionKey(reflect.TypeOf(User{}), "ID", "IN", nil)
	b := template.CollectionKey(reflect.TypeOf(User{}), "ID", "NOT IN", nil)
	c := template.CollectionKey(reflect.TypeOf(User{}), "ID", "IN", nil)
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b, "different operators still produce distinct keys even both at length 0")
}

func TestKeyCombineKeysNullTaintsWhole(t *testing.T) {
	valid := template.ColumnKey(reflect.TypeOf(User{}), "Name")
	combined := template.CombineKeys(valid, template.NullKey, valid)
	assert.Equal(t, template.NullKey, combined)
}

func TestKeyCombineKeysDeterministicAndOrderSensitive(t *testing.T) {
	a := template.ColumnKey(reflect.TypeOf(User{}), "Name")
	b := template.TableKey(reflect.TypeOf(User{}), "u")

	ab1 := template.CombineKeys(a, b)
	ab2 := template.CombineKeys(a, b)
	ba := template.CombineKeys(b, a)

	assert.Equal(t, ab1, ab2)
	assert.NotEqual(t, ab1, ba)
}

func TestKeyHashSatisfiesCacheHashable(t *testing.T) {
	k := template.ColumnKey(reflect.TypeOf(User{}), "Name")
	same := template.ColumnKey(reflect.TypeOf(User{}), "Name")
	assert.Equal(t, k.Hash(), same.Hash())

	different := template.ColumnKey(reflect.TypeOf(Role{}), "ID")
	assert.NotEqual(t, k.Hash(), different.Hash())
}
