package dialect

import (
	"fmt"
	"strings"

	// Registered for its Dialect-name detection and error-shape grounding;
	// this package never opens a connection (§1 Non-goals).
	_ "github.com/go-sql-driver/mysql"
)

// mysqlDialect implements Dialect for MySQL/MariaDB: backtick-quoted
// identifiers, trailing LIMIT/OFFSET, and a shared-lock hint rendered as
// LOCK IN SHARE MODE by ForShareLockHint.
type mysqlDialect struct{}

// NewMySQL returns the MySQL Dialect.
func NewMySQL() Dialect { return mysqlDialect{} }

func (mysqlDialect) Name() string { return MySQL }

func (mysqlDialect) Escape(name string) string {
	return strings.ReplaceAll(name, "`", "``")
}

func (mysqlDialect) SafeIdentifier(name string) string {
	return quoteIdentifier(name, '`')
}

func (mysqlDialect) ApplyLimitAfterSelect() bool  { return false }
func (mysqlDialect) ApplyLockHintAfterFrom() bool { return false }

func (mysqlDialect) Limit(n int) string { return limitClause(n) }

func (mysqlDialect) LimitOffset(offset, n int) string {
	return fmt.Sprintf("%s %s", limitClause(n), offsetClause(offset))
}

func (mysqlDialect) Offset(n int) string { return offsetClause(n) }

func (mysqlDialect) ForShareLockHint() string  { return "LOCK IN SHARE MODE" }
func (mysqlDialect) ForUpdateLockHint() string { return "FOR UPDATE" }
