package dialect

import (
	"fmt"
	"strings"

	// Registered for its Dialect-name detection and error-shape grounding;
	// this package never opens a connection (§1 Non-goals).
	_ "modernc.org/sqlite"
)

// sqliteDialect implements Dialect for SQLite. SQLite has no row-level
// lock hints, so ForShareLockHint/ForUpdateLockHint return the empty
// string, and the SELECT-assembly step in the template package omits them
// when empty.
type sqliteDialect struct{}

// NewSQLite returns the SQLite Dialect.
func NewSQLite() Dialect { return sqliteDialect{} }

func (sqliteDialect) Name() string { return SQLite }

func (sqliteDialect) Escape(name string) string {
	return strings.ReplaceAll(name, `"`, `""`)
}

func (sqliteDialect) SafeIdentifier(name string) string {
	return quoteIdentifier(name, '"')
}

func (sqliteDialect) ApplyLimitAfterSelect() bool  { return false }
func (sqliteDialect) ApplyLockHintAfterFrom() bool { return false }

func (sqliteDialect) Limit(n int) string { return limitClause(n) }

func (sqliteDialect) LimitOffset(offset, n int) string {
	return fmt.Sprintf("%s %s", limitClause(n), offsetClause(offset))
}

func (sqliteDialect) Offset(n int) string { return offsetClause(n) }

func (sqliteDialect) ForShareLockHint() string  { return "" }
func (sqliteDialect) ForUpdateLockHint() string { return "" }
