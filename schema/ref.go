package schema

import "reflect"

// Ref is a deferred reference to a record of type T, identified by its
// primary-key value (Glossary: "Ref<T>"). Element processors that bind a
// relationship (e.g. a foreign-key Param) accept a Ref instead of a fully
// loaded record.
type Ref[T any] struct {
	pk any
}

// NewRef returns a Ref[T] identifying the record of type T whose primary
// key equals pk.
func NewRef[T any](pk any) Ref[T] {
	return Ref[T]{pk: pk}
}

// PK returns the referenced primary-key value.
func (r Ref[T]) PK() any {
	return r.pk
}

// Type returns the reflect.Type of T, used by Cacheable(ObjectExpression)
// key derivation's typeShape rule (§4.3: "Ref<T>.type() -> T").
func (r Ref[T]) Type() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

// refType is satisfied by any Ref[T] regardless of T, so generic code can
// detect a Ref value without knowing T.
type refType interface {
	PK() any
	Type() reflect.Type
}

var _ refType = Ref[struct{}]{}

// IsRef reports whether v is a Ref[T] for some T, returning it as the
// refType interface so callers can read PK()/Type() without generics.
func IsRef(v any) (refType, bool) {
	r, ok := v.(refType)
	return r, ok
}
