package schema

import (
	"reflect"
	"sync"
)

// Generation describes how a primary-key column's value is produced.
type Generation int

const (
	// GenerationNone means the caller supplies the value.
	GenerationNone Generation = iota
	// GenerationIdentity means the database assigns the value (e.g. an
	// auto-increment or IDENTITY column); it is omitted from INSERT
	// column lists and reported via generatedKeys (§4.8).
	GenerationIdentity
	// GenerationSequence means the value comes from a named sequence.
	GenerationSequence
)

// String returns a human-readable name for g.
func (g Generation) String() string {
	switch g {
	case GenerationIdentity:
		return "IDENTITY"
	case GenerationSequence:
		return "SEQUENCE"
	default:
		return "NONE"
	}
}

// Column describes one column of a record type's Model (§3 spec Model<T>).
type Column struct {
	Name       string
	Field      reflect.StructField
	PrimaryKey bool
	Generation Generation
	Sequence   string // sequence name, only meaningful when Generation == GenerationSequence
	Insertable bool
	Updatable  bool
}

// Model is the per-record-type column schema the INSERT/UPDATE/VALUES
// element processors consult (§3, §4.8).
type Model struct {
	Type    reflect.Type
	Table   string
	Columns []Column
}

// PrimaryKey returns the columns flagged PrimaryKey, in declaration order.
func (m *Model) PrimaryKey() []Column {
	var pk []Column
	for _, c := range m.Columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// Column looks up a column by name, reporting whether it was found.
func (m *Model) Column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ModelBuilder builds and caches Models by record type. Per §3's lifecycle
// rule, Models are lazily built and cached indefinitely (process
// lifetime); unlike AliasMapper/TableUse, a ModelBuilder is safe to share
// across compilations and goroutines.
type ModelBuilder struct {
	introspector SchemaIntrospector
	columns      ColumnNameResolver
	tables       TableNameResolver

	mu    sync.RWMutex
	cache map[reflect.Type]*Model
}

// NewModelBuilder returns a ModelBuilder backed by introspector, using the
// given resolvers (nil resolvers fall back to the introspector's own
// defaults).
func NewModelBuilder(introspector SchemaIntrospector, tables TableNameResolver, columns ColumnNameResolver) *ModelBuilder {
	return &ModelBuilder{
		introspector: introspector,
		tables:       tables,
		columns:      columns,
		cache:        make(map[reflect.Type]*Model),
	}
}

// Build returns the cached Model for t, building and storing it on first
// use.
func (b *ModelBuilder) Build(t reflect.Type) (*Model, error) {
	b.mu.RLock()
	m, ok := b.cache[t]
	b.mu.RUnlock()
	if ok {
		return m, nil
	}

	table, err := b.introspector.TableName(t, b.tables)
	if err != nil {
		return nil, err
	}
	cols, err := b.introspector.Columns(t, b.columns)
	if err != nil {
		return nil, err
	}
	m = &Model{Type: t, Table: table, Columns: cols}

	b.mu.Lock()
	if existing, ok := b.cache[t]; ok {
		// Another goroutine built it first; keep the first winner so all
		// callers observe the same *Model (mirrors §4.4's insert-if-absent
		// publication for the compiled-template cache).
		b.mu.Unlock()
		return existing, nil
	}
	b.cache[t] = m
	b.mu.Unlock()
	return m, nil
}
