package dialect

import (
	"fmt"
	"strings"

	// Registered for its Dialect-name detection and error-shape grounding;
	// this package never opens a connection (§1 Non-goals).
	_ "github.com/lib/pq"
)

// postgres implements Dialect for PostgreSQL: double-quoted identifiers,
// trailing LIMIT/OFFSET, trailing lock hints.
type postgres struct{}

// NewPostgres returns the PostgreSQL Dialect.
func NewPostgres() Dialect { return postgres{} }

func (postgres) Name() string { return Postgres }

func (postgres) Escape(name string) string {
	return strings.ReplaceAll(name, `"`, `""`)
}

func (p postgres) SafeIdentifier(name string) string {
	return quoteIdentifier(name, '"')
}

func (postgres) ApplyLimitAfterSelect() bool { return false }
func (postgres) ApplyLockHintAfterFrom() bool { return false }

func (postgres) Limit(n int) string { return limitClause(n) }

func (postgres) LimitOffset(offset, n int) string {
	return fmt.Sprintf("%s %s", limitClause(n), offsetClause(offset))
}

func (postgres) Offset(n int) string { return offsetClause(n) }

func (postgres) ForShareLockHint() string  { return "FOR SHARE" }
func (postgres) ForUpdateLockHint() string { return "FOR UPDATE" }
