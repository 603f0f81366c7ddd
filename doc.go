// Package sqltmpl implements a typed SQL template compiler with a sharded
// LRU cache.
//
// A template is a sequence of literal SQL text fragments interleaved with
// elements (SELECT, FROM, JOIN, WHERE, INSERT, UPDATE, DELETE, SET, VALUES,
// PARAM, BINDVAR, SUBQUERY, UNSAFE, CACHEABLE). Templates are parameterized
// over a record schema: declared primary keys, foreign keys, and columns
// drive table names, join predicates, column lists, and parameter shape.
//
// # Pipeline
//
// Compilation and binding are strictly separated so that a compiled shape
// can be reused across different runtime values:
//
//	Template --Expand--> Dispatch --Compile--> Assemble --(cache)--> CompiledTemplate
//	CompiledTemplate --Bind--> (SQL text, positional parameters)
//
// # Sub-packages
//
//   - [github.com/syssam/sqltmpl/dialect]: SQL-syntax capability (quoting,
//     limit/offset, lock hints) plus constraint-error classification.
//   - [github.com/syssam/sqltmpl/schema]: record-type reflection (PK, FK,
//     column, generation) consumed by the compiler.
//   - [github.com/syssam/sqltmpl/template]: the element dispatch/compile/bind
//     pipeline itself.
//   - [github.com/syssam/sqltmpl/cache]: the segmented LRU cache of compiled
//     templates.
//   - [github.com/syssam/sqltmpl/metrics]: request counters and periodic
//     reporting.
//
// # Usage
//
//	c := cache.New[template.Key, *template.CompiledTemplate](cache.MaxSize(4096))
//	compiler := template.NewCompiler(dialectImpl, introspector, template.WithCache(c))
//	compiled, err := compiler.Compile(ctx, tmpl)
//	sql, params, generatedKeys, err := template.NewTemplateBinder(compiled).Bind(record)
package sqltmpl
