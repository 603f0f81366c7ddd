package template_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqltmpl/dialect"
	"github.com/syssam/sqltmpl/metrics"
	"github.com/syssam/sqltmpl/schema"
	"github.com/syssam/sqltmpl/template"
)

type User struct {
	ID     int64  `sqltmpl:"pk,identity"`
	Name   string `sqltmpl:"column=name"`
	RoleID int64  `sqltmpl:"fk=Role,column=role_id"`
}

type Role struct {
	ID int64 `sqltmpl:"pk"`
}

func newCompiler() *template.TemplateCompiler {
	intro := schema.NewReflectIntrospector()
	return template.NewCompiler(dialect.NewPostgres(), intro)
}

// Scenario 1: trivial select.
func TestCompileTrivialSelect(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."name" FROM "user" "u"`, compiled.SQL)
	assert.Empty(t, compiled.Hints)
}

// Scenario 2: parameter.
func TestCompileParameter(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "ID"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
			template.Where(
				template.Column(reflect.TypeOf(User{}), "ID"),
				template.Text("="),
				template.Param(42),
			),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."id" FROM "user" "u" WHERE "u"."id" = ?`, compiled.SQL)
	require.Len(t, compiled.Hints, 1)

	binder := template.NewTemplateBinder(compiled)
	sql, params, _, err := binder.Bind(User{})
	require.NoError(t, err)
	assert.Equal(t, compiled.SQL, sql)
	require.Len(t, params, 1)
	assert.Equal(t, 1, params[0].Index)
	assert.Equal(t, 42, params[0].Value)
}

// Scenario 3: auto-join prune.
func TestCompileAutoJoinPrune(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
			template.Join(template.Table(reflect.TypeOf(Role{}), "r"), template.InnerJoin, true),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.NotContains(t, compiled.SQL, "JOIN")
	assert.Equal(t, `SELECT "u"."name" FROM "user" "u"`, compiled.SQL)
}

// A join referencing the joined-in type's column is not pruned, and its
// predicate is derived from the FK declared on the source side (§4.7
// step 3: fkInSource fallback).
func TestCompileAutoJoinKeptWhenReferenced(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.Column(reflect.TypeOf(Role{}), "ID"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
			template.Join(template.Table(reflect.TypeOf(Role{}), "r"), template.InnerJoin, true),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Contains(t, compiled.SQL, "JOIN")
	assert.Contains(t, compiled.SQL, `"u"."role_id" = "r"."id"`)
}

// Scenario 4: identity PK insert omission.
func TestCompileInsertOmitsIdentityColumn(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Insert(reflect.TypeOf(User{})),
		template.Values(reflect.TypeOf(User{})),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Contains(t, compiled.SQL, `INSERT INTO "user"`)
	assert.NotContains(t, compiled.SQL, `"id"`)
	assert.Contains(t, compiled.SQL, `"name"`)
	assert.Equal(t, []string{"id"}, compiled.GeneratedKeys)
}

// Scenario 5: collection arity cutoff.
func TestCompileCollectionArityCutoff(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
			template.Where(template.Cacheable(reflect.TypeOf(User{}), "ID", "IN", 1, 2, 3)),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."name" FROM "user" "u" WHERE "u"."id" IN (?, ?, ?)`, compiled.SQL)
	assert.False(t, compiled.Cacheable)

	again, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.NotSame(t, compiled, again, "a non-cacheable template must recompile, not hit the cache")
	assert.Equal(t, compiled.SQL, again.SQL)
}

// A Cacheable collection within arity is cacheable and reuses a column
// reference derived from its metamodel/field, producing valid, executable
// SQL rather than a bare operator fragment.
func TestCompileCollectionWithinArityIsCacheable(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
			template.Where(template.Cacheable(reflect.TypeOf(User{}), "ID", "IN", 1, 2)),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."name" FROM "user" "u" WHERE "u"."id" IN (?, ?)`, compiled.SQL)
	assert.True(t, compiled.Cacheable)

	again, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Same(t, compiled, again, "a within-arity Cacheable template must hit the cache")
}

func TestCompileCacheHitReusesCompiledTemplate(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
		),
	}

	first, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Same(t, first, second, "identical cacheable templates must hit the cache")
}

func TestCompileEmptyCollectionKeyStability(t *testing.T) {
	k1 := template.CollectionKey(reflect.TypeOf(User{}), "ID", "IN", nil)
	k2 := template.CollectionKey(reflect.TypeOf(User{}), "ID", "IN", nil)
	assert.Equal(t, k1, k2)
	assert.True(t, k1.IsCacheable())
}

func TestCompileNilParamIsError(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Where(template.Param(nil)),
	}
	_, err := c.Compile(context.Background(), tmpl)
	require.Error(t, err)
}

func TestCompileUpdateWithSet(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Update(reflect.TypeOf(User{})),
		template.Set(
			template.Text(`"name" =`),
			template.BindVar("Name"),
		),
		template.Where(
			template.Column(reflect.TypeOf(User{}), "ID"),
			template.Text("="),
			template.Param(7),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "user" "user" SET "name" = ? WHERE "user"."id" = ?`, compiled.SQL)
	require.Len(t, compiled.Hints, 2)
}

func TestCompileDelete(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Delete(reflect.TypeOf(User{})),
		template.Where(
			template.Column(reflect.TypeOf(User{}), "ID"),
			template.Text("="),
			template.Param(7),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "user" "user" WHERE "user"."id" = ?`, compiled.SQL)
}

func TestCompileUnsafeFragmentEmittedVerbatim(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
		),
		template.Unsafe("LIMIT 10"),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."name" FROM "user" "u" LIMIT 10`, compiled.SQL)
}

// A correlated subquery resolves a reference to the outer FROM alias
// through its own nested AliasMapper scope (§4.9).
func TestCompileSubqueryCorrelatesOuterAlias(t *testing.T) {
	c := newCompiler()
	sub := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(Role{}), "ID"),
			template.From(template.Table(reflect.TypeOf(Role{}), "r")),
			template.Where(
				template.Column(reflect.TypeOf(Role{}), "ID"),
				template.Text("="),
				template.Column(reflect.TypeOf(User{}), "RoleID"),
			),
		),
	}
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
			template.Where(
				template.Subquery(sub, ""),
			),
		),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Contains(t, compiled.SQL, `WHERE (SELECT "r"."id" FROM "role" "r" WHERE "r"."id" = "u"."role_id")`)
}

// §4.9 SELECT assembly: DISTINCT, dialect-trailing LIMIT/OFFSET, and a
// trailing lock hint on a dialect that places both at the tail of the
// query (postgres: ApplyLimitAfterSelect/ApplyLockHintAfterFrom are
// both false).
func TestCompileSelectDistinctLimitOffsetForUpdate(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
		).Distinct().WithLimit(10).WithOffset(5).ForUpdate(),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "u"."name" FROM "user" "u" LIMIT 10 OFFSET 5 FOR UPDATE`, compiled.SQL)
}

// An Offset with no Limit renders a bare OFFSET clause.
func TestCompileSelectOffsetWithoutLimit(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
		).WithOffset(5),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."name" FROM "user" "u" OFFSET 5`, compiled.SQL)
}

// mssqlStyleDialect exercises the limit-after-select and
// lock-hint-after-from assembly branches that no shipped dialect takes
// (§4.9 steps 1-2), by wrapping postgres and flipping both capability
// flags.
type mssqlStyleDialect struct {
	dialect.Dialect
}

func (mssqlStyleDialect) ApplyLimitAfterSelect() bool  { return true }
func (mssqlStyleDialect) ApplyLockHintAfterFrom() bool { return true }

func TestCompileSelectLimitAfterSelectAndLockHintAfterFrom(t *testing.T) {
	intro := schema.NewReflectIntrospector()
	c := template.NewCompiler(mssqlStyleDialect{Dialect: dialect.NewPostgres()}, intro)

	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
			template.Where(
				template.Column(reflect.TypeOf(User{}), "ID"),
				template.Text("="),
				template.Param(7),
			),
		).WithLimit(10).ForShare(),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, `SELECT LIMIT 10 "u"."name" FROM "user" "u" FOR SHARE WHERE "u"."id" = ?`, compiled.SQL)
}

// §4.8: IgnoreAutoGenerate=true includes the IDENTITY column in the
// column/placeholder list instead of omitting it into GeneratedKeys.
func TestCompileInsertIgnoreAutoGenerateIncludesIdentityColumn(t *testing.T) {
	c := newCompiler()
	tmpl := template.Template{
		template.Insert(reflect.TypeOf(User{}), true),
		template.Values(reflect.TypeOf(User{})),
	}

	compiled, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	assert.Contains(t, compiled.SQL, `INSERT INTO "user"`)
	assert.Contains(t, compiled.SQL, `"id"`)
	assert.Contains(t, compiled.SQL, `"name"`)
	assert.Empty(t, compiled.GeneratedKeys)
}

// An explicit Update/Delete alias is honored instead of an
// auto-allocated one, matching From's explicit-alias support.
func TestCompileUpdateAndDeleteWithExplicitAlias(t *testing.T) {
	c := newCompiler()

	updateTmpl := template.Template{
		template.Update(reflect.TypeOf(User{}), "u"),
		template.Set(
			template.Text(`"name" =`),
			template.BindVar("Name"),
		),
		template.Where(
			template.Column(reflect.TypeOf(User{}), "ID"),
			template.Text("="),
			template.Param(7),
		),
	}
	compiled, err := c.Compile(context.Background(), updateTmpl)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "user" "u" SET "name" = ? WHERE "u"."id" = ?`, compiled.SQL)

	deleteTmpl := template.Template{
		template.Delete(reflect.TypeOf(User{}), "u"),
		template.Where(
			template.Column(reflect.TypeOf(User{}), "ID"),
			template.Text("="),
			template.Param(7),
		),
	}
	compiled, err = c.Compile(context.Background(), deleteTmpl)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "user" "u" WHERE "u"."id" = ?`, compiled.SQL)
}

// WithMetrics wires a TemplateMetrics into the compiler; the first compile
// of a cacheable template is a miss and the second a hit.
func TestCompileRecordsMetricsHitsAndMisses(t *testing.T) {
	m := metrics.New()
	intro := schema.NewReflectIntrospector()
	c := template.NewCompiler(dialect.NewPostgres(), intro, template.WithMetrics(m))

	tmpl := template.Template{
		template.Select(
			template.Column(reflect.TypeOf(User{}), "Name"),
			template.From(template.Table(reflect.TypeOf(User{}), "u")),
		),
	}

	_, err := c.Compile(context.Background(), tmpl)
	require.NoError(t, err)
	_, err = c.Compile(context.Background(), tmpl)
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.Misses)
	assert.Equal(t, int64(1), snap.Hits)
}
