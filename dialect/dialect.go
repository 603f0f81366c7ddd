// Package dialect provides database dialect abstraction for the compiler.
package dialect

import (
	"regexp"
	"strconv"
	"strings"
)

// Dialect name constants, kept stable so callers can select a concrete
// implementation (or compare against dialect.Dialect.Name()) by string.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// Dialect is the capability the template compiler consumes for every
// syntax decision that varies by database: identifier quoting, limit and
// offset grammar, and lock-hint placement (§6).
type Dialect interface {
	// Name returns the dialect constant (Postgres, MySQL, or SQLite).
	Name() string

	// Escape returns name with dialect-specific escaping applied to any
	// characters that would otherwise terminate a quoted identifier.
	Escape(name string) string

	// SafeIdentifier returns name quoted for safe use as a table, column,
	// or alias identifier.
	SafeIdentifier(name string) string

	// ApplyLimitAfterSelect reports whether LIMIT is written directly
	// after SELECT (e.g. "SELECT TOP 10") rather than at the end of the
	// query.
	ApplyLimitAfterSelect() bool

	// ApplyLockHintAfterFrom reports whether a lock hint is written
	// immediately after the FROM clause rather than trailing the query.
	ApplyLockHintAfterFrom() bool

	// Limit renders a LIMIT clause for n rows.
	Limit(n int) string

	// LimitOffset renders a combined LIMIT/OFFSET clause.
	LimitOffset(offset, n int) string

	// Offset renders an OFFSET clause.
	Offset(n int) string

	// ForShareLockHint renders a shared-lock hint (e.g. "FOR SHARE").
	ForShareLockHint() string

	// ForUpdateLockHint renders an exclusive-lock hint (e.g. "FOR UPDATE").
	ForUpdateLockHint() string
}

// Name is an identifier value with an escape policy (§3 spec Name).
// Escape controls whether Identifier(d) quotes the name at all; unescaped
// names are emitted verbatim, e.g. for a caller-supplied raw fragment.
type Name struct {
	Value  string
	Escape bool
}

// Identifier qualifies n through d, honoring n.Escape.
func (n Name) Identifier(d Dialect) string {
	if !n.Escape {
		return n.Value
	}
	return d.SafeIdentifier(n.Value)
}

// validIdentifierRe matches plain alphanumeric/underscore identifiers,
// optionally dotted for schema-qualified names.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// IsValidIdentifier reports whether s is safe to treat as a bare SQL
// identifier (used by dialects before quoting, and by callers validating
// caller-supplied table/column names before they reach Unsafe fragments).
func IsValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// EscapeStringValue escapes a string literal for safe inclusion inside a
// single-quoted SQL literal: backslashes are doubled first (for
// MySQL-style backslash escapes), then single quotes are doubled.
func EscapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// quoteIdentifier quotes name with the given quote character, doubling any
// embedded occurrence of that character, and splits on '.' so schema
// qualifiers are quoted independently (e.g. "schema"."table").
func quoteIdentifier(name string, quote byte) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = strings.ReplaceAll(p, string(quote), string(quote)+string(quote))
		parts[i] = string(quote) + p + string(quote)
	}
	return strings.Join(parts, ".")
}

func limitClause(n int) string {
	return "LIMIT " + strconv.Itoa(n)
}

func offsetClause(n int) string {
	return "OFFSET " + strconv.Itoa(n)
}
