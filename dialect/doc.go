// Package dialect provides the SQL-syntax capability the template compiler
// treats as opaque: identifier quoting, limit/offset grammar, and lock-hint
// placement. It does not open database connections or execute queries —
// those concerns belong to the driver layer this package's consumers sit
// on top of.
//
// # Supported dialects
//
//   - Postgres: PostgreSQL
//   - MySQL: MySQL/MariaDB
//   - SQLite: SQLite
//
// Each is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Dialect interface
//
// The compiler consumes dialect-specific behavior entirely through the
// Dialect interface:
//
//	type Dialect interface {
//	    Name() string
//	    Escape(name string) string
//	    SafeIdentifier(name string) string
//	    ApplyLimitAfterSelect() bool
//	    ApplyLockHintAfterFrom() bool
//	    Limit(n int) string
//	    LimitOffset(offset, n int) string
//	    Offset(n int) string
//	    ForShareLockHint() string
//	    ForUpdateLockHint() string
//	}
//
// # Constraint classification
//
// IsUniqueConstraintError, IsForeignKeyConstraintError, and
// IsCheckConstraintError classify a driver error by SQLSTATE, dialect error
// number, or message fallback, so a persistence layer built on top of this
// package can tell a constraint violation from any other driver error.
package dialect
