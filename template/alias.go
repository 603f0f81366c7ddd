package template

import (
	"fmt"
	"reflect"

	"github.com/syssam/sqltmpl/dialect"
)

// Scope distinguishes the inner (current subquery) alias namespace from
// the outer (enclosing query) namespace an AliasMapper may fall back to
// when resolving a correlated reference (§4.10, Glossary).
type Scope int

const (
	// Inner is the current compilation's own alias namespace.
	Inner Scope = iota
	// Outer is the enclosing compilation's namespace, consulted for
	// correlated subqueries.
	Outer
)

// AliasMapper resolves a record type to a table alias within one
// compilation, allocating a fresh alias on first use (§4.10): the type's
// short name, with a numeric suffix from a monotone counter only when that
// name is already taken in this scope.
// It is built fresh per compilation/subquery and is not safe for
// concurrent use (§5).
type AliasMapper struct {
	dialect dialect.Dialect
	outer   *AliasMapper
	inner   map[reflect.Type]string
	seq     int
}

// NewAliasMapper returns an AliasMapper with no outer scope.
func NewAliasMapper(d dialect.Dialect) *AliasMapper {
	return &AliasMapper{dialect: d, inner: make(map[reflect.Type]string)}
}

// Nested returns an AliasMapper for a subquery's own Inner scope, whose
// Outer scope falls back to m.
func (m *AliasMapper) Nested() *AliasMapper {
	return &AliasMapper{dialect: m.dialect, outer: m, inner: make(map[reflect.Type]string)}
}

// Alias returns the alias for t, registering explicit if it is non-empty
// and t has not yet been registered. If t is unregistered and explicit
// is empty, a fresh alias is allocated and registered in scope (§4.10).
func (m *AliasMapper) Alias(t reflect.Type, explicit string, scope Scope) string {
	if explicit != "" {
		if scope == Outer && m.outer != nil {
			return m.outer.Alias(t, explicit, Inner)
		}
		if existing, ok := m.inner[t]; ok {
			return existing
		}
		m.inner[t] = explicit
		return explicit
	}
	if a, ok := m.inner[t]; ok {
		return a
	}
	if scope == Outer && m.outer != nil {
		if a, ok := m.outer.lookup(t); ok {
			return a
		}
	}
	alias := m.allocate(t)
	m.inner[t] = alias
	return alias
}

func (m *AliasMapper) lookup(t reflect.Type) (string, bool) {
	a, ok := m.inner[t]
	return a, ok
}

func (m *AliasMapper) allocate(t reflect.Type) string {
	base := shortName(t)
	m.seq++
	alias := base
	for n := m.seq; m.taken(alias); n++ {
		alias = fmt.Sprintf("%s_%d", base, n)
	}
	return alias
}

func (m *AliasMapper) taken(alias string) bool {
	for _, a := range m.inner {
		if a == alias {
			return true
		}
	}
	return false
}

func shortName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return "t"
	}
	lower := make([]rune, 0, len(name))
	for i, r := range name {
		if i == 0 {
			lower = append(lower, toLowerRune(r))
			continue
		}
		lower = append(lower, r)
	}
	return string(lower)
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// Quoted returns alias quoted through the dialect's safe-identifier
// policy.
func (m *AliasMapper) Quoted(alias string) string {
	return m.dialect.SafeIdentifier(alias)
}
