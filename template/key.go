package template

import (
	"hash/fnv"
	"reflect"
	"strconv"

	"github.com/syssam/sqltmpl/schema"
)

// MaxArity is the cutoff above which a Cacheable collection element's
// compilation key degenerates to the non-cacheable Key (§4.3, §8
// "Collection arity cutoff").
const MaxArity = 2

// Key is an immutable, comparable compilation key identifying an
// element's contribution to emitted SQL text (§4.3, Glossary). The zero
// Key is the "null" key: it taints the whole template non-cacheable
// (§3, §8 "Non-cacheable taint").
type Key struct {
	valid bool
	kind  string
	s1    string
	s2    string
	n1    int
	t1    reflect.Type
}

// NullKey is the non-cacheable compilation key. Any element that reports
// NullKey forces its enclosing template to recompile on every invocation.
var NullKey = Key{}

// IsCacheable reports whether k is a real (non-null) key.
func (k Key) IsCacheable() bool {
	return k.valid
}

// ColumnKey is the compilation key for a column reference: identical
// (type, field) pairs always compile to the same SQL fragment regardless
// of the table alias, since that alias is resolved through the
// per-compilation AliasMapper, not baked into the key. ColumnElement.Key
// adds the element's output column alias ("AS ...") on top of this key.
func ColumnKey(t reflect.Type, field string) Key {
	return Key{valid: true, kind: "column", t1: t, s1: field}
}

// TableKey is the compilation key for a table/source reference.
func TableKey(t reflect.Type, explicitAlias string) Key {
	return Key{valid: true, kind: "table", t1: t, s1: explicitAlias}
}

// ParamKey is the compilation key for a bound parameter placeholder: the
// placeholder text is identical regardless of the bound value, so only
// the value's type shape (for diagnostics / §4.3's ObjectExpression
// typeShape rule) distinguishes keys.
func ParamKey(shape reflect.Type) Key {
	return Key{valid: true, kind: "param", t1: shape}
}

// BindVarKey is the compilation key for a named bind-variable
// placeholder.
func BindVarKey(name string) Key {
	return Key{valid: true, kind: "bindvar", s1: name}
}

// UnsafeKey is the compilation key for a literal ·Unsafe fragment: equal
// text always compiles identically.
func UnsafeKey(sql string) Key {
	return Key{valid: true, kind: "unsafe", s1: sql}
}

// CollectionKey is the compilation key for Cacheable(ObjectExpression(
// metamodel, op, values)) (§4.3). When len(values) exceeds MaxArity the
// element is not cacheable and CollectionKey returns NullKey (§8
// "Collection arity cutoff"). Distinct empty collections against the same
// metamodel/op share one key, (metamodel, op, [0, Any]) (§8
// "Empty-collection key stability"): shape is typeShape(values[0]) when
// present, or the Any sentinel otherwise. metamodel may be nil when the
// expression has no associated column.
func CollectionKey(metamodel reflect.Type, field, op string, values []any) Key {
	if len(values) > MaxArity {
		return NullKey
	}
	shape := "Any"
	if len(values) > 0 {
		if t := typeShape(values[0]); t != nil {
			shape = t.String()
		}
	}
	return Key{valid: true, kind: "collection", t1: metamodel, s1: field, s2: op + "\x00" + shape, n1: len(values)}
}

// typeShape derives the compile-time shape of a Cacheable value for key
// comparison (§4.3): a Ref[T] contributes T ("Ref<T>.type() -> T"),
// anything else contributes its own concrete reflect.Type. A nil value
// never reaches here from a valid compile (§4.3: "a null value inside an
// expression is a compile-time error — users must use the IS_NULL operator
// explicitly").
func typeShape(v any) reflect.Type {
	if ref, ok := schema.IsRef(v); ok {
		return ref.Type()
	}
	return reflect.TypeOf(v)
}

// CombineKeys folds a sequence of element keys into one key for an
// enclosing construct (e.g. the whole Template, or a Select's item
// list). If any input key is non-cacheable the combined key is NullKey
// (§3: "a null/nil key taints the whole template non-cacheable").
func CombineKeys(keys ...Key) Key {
	combined := Key{valid: true, kind: "combine", n1: len(keys)}
	h := fnv.New64a()
	for _, k := range keys {
		if !k.valid {
			return NullKey
		}
		h.Write(k.bytes())
	}
	combined.s1 = strconv.FormatUint(h.Sum64(), 36)
	return combined
}

func (k Key) bytes() []byte {
	s := k.kind + "|" + k.s1 + "|" + k.s2 + "|" + strconv.Itoa(k.n1)
	if k.t1 != nil {
		s += "|" + k.t1.String()
	}
	return []byte(s)
}

// Hash implements cache.Hashable so a Key can key a cache.Cache directly.
func (k Key) Hash() uint64 {
	h := fnv.New64a()
	h.Write(k.bytes())
	return h.Sum64()
}
