package template

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/sqltmpl"
	"github.com/syssam/sqltmpl/cache"
	"github.com/syssam/sqltmpl/dialect"
	"github.com/syssam/sqltmpl/metrics"
	"github.com/syssam/sqltmpl/schema"
)

// CompiledTemplate is the cache-reusable product of compiling a Template:
// finalized SQL text with positional placeholders plus the ordered
// BindHints a TemplateBinder resolves against a runtime record (§4.1,
// §4.5).
type CompiledTemplate struct {
	SQL           string
	Hints         []BindHint
	GeneratedKeys []string
	Cacheable     bool
}

// CompilerOption configures a TemplateCompiler at construction time.
type CompilerOption func(*TemplateCompiler)

// WithCache overrides the compiled-template cache. Defaults to
// cache.New[Key, *CompiledTemplate]() with its own defaults.
func WithCache(c *cache.Cache[Key, *CompiledTemplate]) CompilerOption {
	return func(tc *TemplateCompiler) { tc.cache = c }
}

// WithMetrics attaches a metrics.TemplateMetrics to record per-compile
// timings and hit/miss counts (§4.12).
func WithMetrics(m *metrics.TemplateMetrics) CompilerOption {
	return func(tc *TemplateCompiler) { tc.metrics = m }
}

// WithModelBuilder overrides the schema.ModelBuilder used for INSERT/
// UPDATE/VALUES column discovery. Defaults to a fresh one over the same
// introspector.
func WithModelBuilder(b *schema.ModelBuilder) CompilerOption {
	return func(tc *TemplateCompiler) { tc.models = b }
}

// TemplateCompiler turns a Template into a CompiledTemplate, transparently
// reusing the SegmentedLruCache when the template's compilation key is
// cacheable (§4.1, §4.4).
type TemplateCompiler struct {
	dialect      dialect.Dialect
	introspector schema.SchemaIntrospector
	models       *schema.ModelBuilder
	joins        *JoinDeriver
	cache        *cache.Cache[Key, *CompiledTemplate]
	metrics      *metrics.TemplateMetrics
}

// NewCompiler returns a TemplateCompiler for d and introspector.
func NewCompiler(d dialect.Dialect, introspector schema.SchemaIntrospector, opts ...CompilerOption) *TemplateCompiler {
	tc := &TemplateCompiler{
		dialect:      d,
		introspector: introspector,
		models:       schema.NewModelBuilder(introspector, nil, nil),
		joins:        NewJoinDeriver(introspector),
		cache:        cache.New[Key, *CompiledTemplate](),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Compile compiles tmpl, serving a cached CompiledTemplate when tmpl's
// aggregate compilation key is cacheable and already present (§4.1, §8
// "Key determinism"). A non-cacheable template recompiles on every call
// (§8 "Non-cacheable taint") and is never stored.
func (c *TemplateCompiler) Compile(ctx context.Context, tmpl Template) (*CompiledTemplate, error) {
	var timer *metrics.Timer
	if c.metrics != nil {
		timer = c.metrics.Start()
	}

	key := templateKey(tmpl)
	if !key.IsCacheable() {
		compiled, err := c.compileFresh(ctx, tmpl)
		if timer != nil {
			timer.Close(false)
		}
		return compiled, err
	}

	hit := true
	compiled, err := c.cache.GetOrCompute(key, func() (*CompiledTemplate, error) {
		hit = false
		return c.compileFresh(ctx, tmpl)
	})
	if timer != nil {
		timer.Close(hit)
	}
	return compiled, err
}

type compileCtx struct {
	ctx           context.Context
	dialect       dialect.Dialect
	introspector  schema.SchemaIntrospector
	models        *schema.ModelBuilder
	joins         *JoinDeriver
	aliases       *AliasMapper
	tableUse      *TableUse
	hints         []BindHint
	generatedKeys []string

	fromType  reflect.Type
	fromAlias string

	// ignoreAutoGenerate carries the preceding InsertElement's
	// IgnoreAutoGenerate flag to the ValuesElement that follows it in the
	// same Template (§3, §4.8).
	ignoreAutoGenerate bool
}

func (c *TemplateCompiler) compileFresh(ctx context.Context, tmpl Template) (*CompiledTemplate, error) {
	cc := &compileCtx{
		ctx:          ctx,
		dialect:      c.dialect,
		introspector: c.introspector,
		models:       c.models,
		joins:        c.joins,
		aliases:      NewAliasMapper(c.dialect),
		tableUse:     NewTableUse(),
	}
	cc.markUsage([]Element(tmpl))
	cc.registerAliases([]Element(tmpl))

	parts := make([]string, 0, len(tmpl))
	for _, el := range tmpl {
		text, err := cc.emit(el)
		if err != nil {
			return nil, err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	key := templateKey(tmpl)
	return &CompiledTemplate{
		SQL:           strings.TrimSpace(strings.Join(parts, " ")),
		Hints:         cc.hints,
		GeneratedKeys: cc.generatedKeys,
		Cacheable:     key.IsCacheable(),
	}, nil
}

// markUsage walks items (and their nested bodies) recording every record
// type a ColumnElement, a From table, or a Cacheable column references, so
// join pruning can be decided
// regardless of whether the referencing element appears before or after
// the JoinElement in source order (§4.7 step 7).
func (cc *compileCtx) markUsage(items []Element) {
	for _, el := range items {
		switch e := el.(type) {
		case ColumnElement:
			cc.tableUse.Mark(derefRecordType(e.Record))
		case FromElement:
			if ts, ok := e.Source.(TableSource); ok {
				cc.tableUse.Mark(derefRecordType(ts.Record))
			}
		case CacheableElement:
			if e.Record != nil {
				cc.tableUse.Mark(derefRecordType(e.Record))
			}
		case SelectElement:
			cc.markUsage(e.Items)
		case WhereElement:
			cc.markUsage(e.Items)
		case SetElement:
			cc.markUsage(e.Assignments)
		case Wrapped:
			cc.markUsage(e.Inner)
		}
	}
}

// registerAliases pre-registers every explicit table alias declared by a
// From or Join element before anything is emitted, so a ColumnElement
// appearing earlier in source order than its owning From/Join still
// resolves to the alias the author actually wrote (§4.10: "returns
// explicit if given"). Inside a subquery it also allocates the alias of an
// unaliased From table up front, so that table shadows an outer alias of
// the same record type for every column of the subquery.
func (cc *compileCtx) registerAliases(items []Element) {
	for _, el := range items {
		switch e := el.(type) {
		case FromElement:
			if ts, ok := e.Source.(TableSource); ok {
				if ts.Alias != "" {
					cc.aliases.Alias(derefRecordType(ts.Record), ts.Alias, Inner)
				} else if cc.aliases.outer != nil {
					cc.aliases.Alias(derefRecordType(ts.Record), "", Inner)
				}
			}
		case JoinElement:
			if ts, ok := e.Target.(TableSource); ok && ts.Alias != "" {
				cc.aliases.Alias(derefRecordType(ts.Record), ts.Alias, Inner)
			}
		case SelectElement:
			cc.registerAliases(e.Items)
		case WhereElement:
			cc.registerAliases(e.Items)
		case SetElement:
			cc.registerAliases(e.Assignments)
		case Wrapped:
			cc.registerAliases(e.Inner)
		}
	}
}

func derefRecordType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// emit dispatches a single element to its clause text, appending any
// BindHints/generatedKeys it contributes to cc. A Wrapped element's Inner
// items are emitted in place, as if flattened into the parent sequence.
// An unrecognized element variant is a FatalProgrammerError (§7): the
// router is exhaustive over the element package's closed set, so reaching
// default means a variant was added without a case here.
func (cc *compileCtx) emit(el Element) (string, error) {
	switch e := el.(type) {
	case Literal:
		return e.Text, nil
	case Wrapped:
		return cc.emitSequence(e.Inner)
	case ColumnElement:
		return cc.emitColumn(e)
	case FromElement:
		return cc.emitFrom(e)
	case JoinElement:
		return cc.emitJoin(e)
	case SelectElement:
		return cc.emitSelect(e)
	case WhereElement:
		return cc.emitWhere(e)
	case SetElement:
		return cc.emitSet(e)
	case ValuesElement:
		return cc.emitValues(e)
	case InsertElement:
		return cc.emitInsert(e)
	case UpdateElement:
		return cc.emitUpdate(e)
	case DeleteElement:
		return cc.emitDelete(e)
	case ParamElement:
		return cc.emitParam(e)
	case BindVarElement:
		return cc.emitBindVar(e)
	case SubqueryElement:
		return cc.emitSubquery(e)
	case UnsafeElement:
		return e.SQL, nil
	case CacheableElement:
		return cc.emitCacheable(e)
	default:
		panic(sqltmpl.ErrUnsupportedElement)
	}
}

func (cc *compileCtx) emitSequence(items []Element) (string, error) {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		text, err := cc.emit(it)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (cc *compileCtx) emitColumn(e ColumnElement) (string, error) {
	t := derefRecordType(e.Record)
	alias := cc.aliases.Alias(t, "", Outer)
	f, err := cc.introspector.RecordField(t, e.Field)
	if err != nil {
		return "", err
	}
	col, ok, err := cc.columnFor(t, f.Name)
	if err != nil {
		return "", err
	}
	name := f.Name
	if ok {
		name = col
	}
	text := fmt.Sprintf("%s.%s", cc.dialect.SafeIdentifier(alias), cc.dialect.SafeIdentifier(name))
	if e.Alias != "" {
		text += " AS " + cc.dialect.SafeIdentifier(e.Alias)
	}
	return text, nil
}

func (cc *compileCtx) columnFor(t reflect.Type, fieldName string) (string, bool, error) {
	model, err := cc.models.Build(t)
	if err != nil {
		return "", false, err
	}
	for _, col := range model.Columns {
		if col.Field.Name == fieldName {
			return col.Name, true, nil
		}
	}
	return "", false, nil
}

func (cc *compileCtx) emitFrom(e FromElement) (string, error) {
	switch s := e.Source.(type) {
	case TableSource:
		t := derefRecordType(s.Record)
		model, err := cc.models.Build(t)
		if err != nil {
			return "", err
		}
		alias := cc.aliases.Alias(t, s.Alias, Inner)
		cc.fromType, cc.fromAlias = t, alias
		return fmt.Sprintf("FROM %s %s", cc.dialect.SafeIdentifier(model.Table), cc.dialect.SafeIdentifier(alias)), nil
	case TemplateSource:
		sub, err := NewTemplateCompilerSubquery(cc, s.Sub)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("FROM (%s) %s", sub, cc.dialect.SafeIdentifier(s.Alias)), nil
	default:
		panic(sqltmpl.ErrUnsupportedElement)
	}
}

func (cc *compileCtx) emitJoin(e JoinElement) (string, error) {
	ts, ok := e.Target.(TableSource)
	if !ok {
		return "", sqltmpl.NewTemplateError("join", "JoinElement target must be a TableSource")
	}
	targetType := derefRecordType(ts.Record)

	if e.AutoJoin && !cc.tableUse.Used(targetType) {
		return "", nil
	}
	if cc.fromType == nil {
		return "", sqltmpl.NewTemplateError("join", "join has no established FROM source")
	}

	derived, err := cc.joins.Derive(cc.fromType, targetType)
	if err != nil {
		return "", err
	}

	targetAlias := ts.Alias
	if targetAlias == "" {
		targetAlias = cc.aliases.Alias(targetType, "", Inner)
	} else {
		targetAlias = cc.aliases.Alias(targetType, targetAlias, Inner)
	}
	if targetAlias == "" {
		return "", sqltmpl.NewTemplateErrorWrap("join", "missing alias for join target", sqltmpl.ErrMissingAlias)
	}

	targetModel, err := cc.models.Build(targetType)
	if err != nil {
		return "", err
	}

	var preds []string
	for _, p := range derived.Predicates {
		var left, right string
		if derived.FKOnTarget {
			left = fmt.Sprintf("%s.%s", cc.dialect.SafeIdentifier(targetAlias), cc.dialect.SafeIdentifier(p.LeftColumn))
			right = fmt.Sprintf("%s.%s", cc.dialect.SafeIdentifier(cc.fromAlias), cc.dialect.SafeIdentifier(p.RightColumn))
		} else {
			left = fmt.Sprintf("%s.%s", cc.dialect.SafeIdentifier(cc.fromAlias), cc.dialect.SafeIdentifier(p.LeftColumn))
			right = fmt.Sprintf("%s.%s", cc.dialect.SafeIdentifier(targetAlias), cc.dialect.SafeIdentifier(p.RightColumn))
		}
		preds = append(preds, left+" = "+right)
	}

	return fmt.Sprintf("%s %s %s ON %s", e.Kind.String(), cc.dialect.SafeIdentifier(targetModel.Table), cc.dialect.SafeIdentifier(targetAlias), strings.Join(preds, " AND ")), nil
}

// emitSelect assembles a SELECT statement in the dialect-governed order
// §4.9 specifies: SELECT [DISTINCT] + dialect limit-after-select +
// select-list, then FROM (with the dialect's lock hint immediately after it
// when the dialect places it there) and the remaining clauses (joins,
// WHERE, trailing user templates) in source order, then the dialect's
// post-query LIMIT/OFFSET, then a trailing lock hint when the dialect
// doesn't place it after FROM.
func (cc *compileCtx) emitSelect(e SelectElement) (string, error) {
	var cols []string
	var clauses []string
	for _, it := range e.Items {
		switch it.(type) {
		case ColumnElement:
			text, err := cc.emit(it)
			if err != nil {
				return "", err
			}
			cols = append(cols, text)
		default:
			text, err := cc.emit(it)
			if err != nil {
				return "", err
			}
			if text != "" {
				clauses = append(clauses, text)
			}
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if e.Mode == SelectDistinct {
		b.WriteString("DISTINCT ")
	}
	if e.Limit > 0 && cc.dialect.ApplyLimitAfterSelect() {
		b.WriteString(cc.selectLimitOffset(e) + " ")
	}
	b.WriteString(strings.Join(cols, ", "))

	lockAfterFrom := cc.dialect.ApplyLockHintAfterFrom()
	for i, clause := range clauses {
		b.WriteString(" " + clause)
		if i == 0 && lockAfterFrom {
			if hint := cc.lockHintText(e.Lock); hint != "" {
				b.WriteString(" " + hint)
			}
		}
	}

	if e.Limit > 0 && !cc.dialect.ApplyLimitAfterSelect() {
		b.WriteString(" " + cc.selectLimitOffset(e))
	} else if e.Limit == 0 && e.Offset > 0 {
		b.WriteString(" " + cc.dialect.Offset(e.Offset))
	}

	if !lockAfterFrom {
		if hint := cc.lockHintText(e.Lock); hint != "" {
			b.WriteString(" " + hint)
		}
	}

	return b.String(), nil
}

func (cc *compileCtx) selectLimitOffset(e SelectElement) string {
	if e.Offset > 0 {
		return cc.dialect.LimitOffset(e.Offset, e.Limit)
	}
	return cc.dialect.Limit(e.Limit)
}

func (cc *compileCtx) lockHintText(lock LockHint) string {
	switch lock {
	case LockForShare:
		return cc.dialect.ForShareLockHint()
	case LockForUpdate:
		return cc.dialect.ForUpdateLockHint()
	default:
		return ""
	}
}

func (cc *compileCtx) emitWhere(e WhereElement) (string, error) {
	body, err := cc.emitSequence(e.Items)
	if err != nil {
		return "", err
	}
	if body == "" {
		return "", nil
	}
	return "WHERE " + body, nil
}

func (cc *compileCtx) emitSet(e SetElement) (string, error) {
	body, err := cc.emitSequence(e.Assignments)
	if err != nil {
		return "", err
	}
	return "SET " + body, nil
}

// emitValues renders the column and placeholder lists for an INSERT. When
// the preceding InsertElement set IgnoreAutoGenerate, every column is
// included verbatim; otherwise an IDENTITY or default-SEQUENCE column is
// omitted and recorded in generatedKeys instead (§4.8, §8 "Insert
// omission").
func (cc *compileCtx) emitValues(e ValuesElement) (string, error) {
	t := derefRecordType(e.Record)
	model, err := cc.models.Build(t)
	if err != nil {
		return "", err
	}

	var names []string
	var placeholders []string
	for _, col := range model.Columns {
		if !cc.ignoreAutoGenerate {
			if col.Generation == schema.GenerationIdentity {
				cc.generatedKeys = append(cc.generatedKeys, col.Name)
				continue
			}
			if col.Generation == schema.GenerationSequence && col.Sequence == "" {
				cc.generatedKeys = append(cc.generatedKeys, col.Name)
				continue
			}
		}
		names = append(names, cc.dialect.SafeIdentifier(col.Name))
		placeholders = append(placeholders, "?")
		cc.hints = append(cc.hints, bindVarHint(col.Field.Name))
	}
	return fmt.Sprintf("(%s) VALUES (%s)", strings.Join(names, ", "), strings.Join(placeholders, ", ")), nil
}

func (cc *compileCtx) emitInsert(e InsertElement) (string, error) {
	t := derefRecordType(e.Record)
	model, err := cc.models.Build(t)
	if err != nil {
		return "", err
	}
	cc.ignoreAutoGenerate = e.IgnoreAutoGenerate
	return fmt.Sprintf("INSERT INTO %s", cc.dialect.SafeIdentifier(model.Table)), nil
}

func (cc *compileCtx) emitUpdate(e UpdateElement) (string, error) {
	t := derefRecordType(e.Record)
	model, err := cc.models.Build(t)
	if err != nil {
		return "", err
	}
	alias := cc.aliases.Alias(t, e.Alias, Inner)
	cc.fromType, cc.fromAlias = t, alias
	return fmt.Sprintf("UPDATE %s %s", cc.dialect.SafeIdentifier(model.Table), cc.dialect.SafeIdentifier(alias)), nil
}

func (cc *compileCtx) emitDelete(e DeleteElement) (string, error) {
	t := derefRecordType(e.Record)
	model, err := cc.models.Build(t)
	if err != nil {
		return "", err
	}
	alias := cc.aliases.Alias(t, e.Alias, Inner)
	cc.fromType, cc.fromAlias = t, alias
	return fmt.Sprintf("DELETE FROM %s %s", cc.dialect.SafeIdentifier(model.Table), cc.dialect.SafeIdentifier(alias)), nil
}

func (cc *compileCtx) emitParam(e ParamElement) (string, error) {
	if e.Value == nil {
		return "", sqltmpl.NewTemplateErrorWrap("param", "nil parameter value", sqltmpl.ErrNilInExpression)
	}
	cc.hints = append(cc.hints, literalHint(e.Value))
	return "?", nil
}

func (cc *compileCtx) emitBindVar(e BindVarElement) (string, error) {
	cc.hints = append(cc.hints, bindVarHint(e.Name))
	return "?", nil
}

func (cc *compileCtx) emitSubquery(e SubqueryElement) (string, error) {
	sql, err := NewTemplateCompilerSubquery(cc, e.Sub)
	if err != nil {
		return "", err
	}
	if e.Alias != "" {
		return fmt.Sprintf("(%s) %s", sql, cc.dialect.SafeIdentifier(e.Alias)), nil
	}
	return fmt.Sprintf("(%s)", sql), nil
}

// NewTemplateCompilerSubquery compiles sub in a fresh AliasMapper/TableUse
// scope whose outer scope falls back to parent's, per §4.9's rule that a
// subquery gets its own inner alias namespace but may still correlate
// outward.
func NewTemplateCompilerSubquery(parent *compileCtx, sub Template) (string, error) {
	child := &compileCtx{
		ctx:          parent.ctx,
		dialect:      parent.dialect,
		introspector: parent.introspector,
		models:       parent.models,
		joins:        parent.joins,
		aliases:      parent.aliases.Nested(),
		tableUse:     NewTableUse(),
	}
	child.markUsage([]Element(sub))
	child.registerAliases([]Element(sub))

	parts := make([]string, 0, len(sub))
	for _, el := range sub {
		text, err := child.emit(el)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	parent.hints = append(parent.hints, child.hints...)
	parent.generatedKeys = append(parent.generatedKeys, child.generatedKeys...)
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func (cc *compileCtx) emitCacheable(e CacheableElement) (string, error) {
	for _, v := range e.Values {
		if v == nil {
			return "", sqltmpl.NewTemplateErrorWrap("cacheable", "nil value in expression", sqltmpl.ErrNilInExpression)
		}
	}
	placeholders := make([]string, len(e.Values))
	for i, v := range e.Values {
		cc.hints = append(cc.hints, literalHint(v))
		placeholders[i] = "?"
	}
	rhs := fmt.Sprintf("%s (%s)", e.Op, strings.Join(placeholders, ", "))
	if e.Record == nil {
		return rhs, nil
	}
	lhs, err := cc.emitColumn(ColumnElement{Record: e.Record, Field: e.Field})
	if err != nil {
		return "", err
	}
	return lhs + " " + rhs, nil
}
