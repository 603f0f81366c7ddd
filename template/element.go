package template

import (
	"reflect"
	"strconv"
)

// Element is the closed tagged union of structured template content
// (§3, §9 "Tagged variants over class hierarchies"). The unexported
// marker method keeps the set closed to this package: callers assemble
// Templates from the constructor functions below rather than
// implementing Element themselves.
type Element interface {
	isElement()
	// Key returns this element's compilation key. A non-cacheable
	// sub-element (NullKey) taints the whole enclosing Template.
	Key() Key
}

// Template is an ordered sequence of Elements: literal SQL fragments
// interleaved with typed elements (§1).
type Template []Element

// Literal is a raw, already-safe SQL fragment copied into the output
// verbatim (whitespace, keywords, punctuation between elements).
type Literal struct {
	Text string
}

func (Literal) isElement()   {}
func (l Literal) Key() Key   { return UnsafeKey("lit:" + l.Text) }

// Text constructs a Literal element.
func Text(s string) Literal { return Literal{Text: s} }

// ColumnElement references a single column of a record type
// (·Column(Type.field)). Alias, if set, overrides the output column
// alias (e.g. "AS foo"); it does not affect the table alias used to
// qualify the column.
type ColumnElement struct {
	Record reflect.Type
	Field  string
	Alias  string
}

func (ColumnElement) isElement() {}
func (c ColumnElement) Key() Key {
	k := ColumnKey(c.Record, c.Field)
	k.s2 = c.Alias
	return k
}

// Column constructs a ColumnElement referencing field on record type t.
func Column(t reflect.Type, field string) ColumnElement {
	return ColumnElement{Record: t, Field: field}
}

// Source is the closed sub-union for what a From/Join element names: a
// record type's table, or a nested Template (§6 "Source"/"Target").
type Source interface {
	isSource()
	sourceKey() Key
}

// TableSource names a record type's table, optionally with an explicit
// alias.
type TableSource struct {
	Record reflect.Type
	Alias  string
}

func (TableSource) isSource()    {}
func (t TableSource) sourceKey() Key { return TableKey(t.Record, t.Alias) }

// Table constructs a TableSource, optionally with an explicit alias.
func Table(t reflect.Type, alias ...string) TableSource {
	ts := TableSource{Record: t}
	if len(alias) > 0 {
		ts.Alias = alias[0]
	}
	return ts
}

// TemplateSource names a nested sub-template as a join/from target, used
// for derived tables.
type TemplateSource struct {
	Sub   Template
	Alias string
}

func (TemplateSource) isSource() {}
func (t TemplateSource) sourceKey() Key {
	return CombineKeys(templateKey(t.Sub), Key{valid: true, kind: "alias", s1: t.Alias})
}

// FromElement introduces the primary table of a SELECT/UPDATE/DELETE.
type FromElement struct {
	Source Source
}

func (FromElement) isElement() {}
func (f FromElement) Key() Key { return f.Source.sourceKey() }

// From constructs a FromElement.
func From(s Source) FromElement { return FromElement{Source: s} }

// JoinKind enumerates SQL join types.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

func (k JoinKind) String() string {
	if k == LeftJoin {
		return "LEFT JOIN"
	}
	return "JOIN"
}

// JoinElement joins Target onto whatever the enclosing Template already
// established as its FROM source. The actual join predicate is derived
// by JoinDeriver from the two record types' FK/PK relationship (§4.7);
// when AutoJoin is true and nothing in the template references Target's
// record type, the join is pruned entirely (§8 "Join pruning").
type JoinElement struct {
	Target   Source
	Kind     JoinKind
	AutoJoin bool
}

func (JoinElement) isElement() {}
func (j JoinElement) Key() Key {
	return CombineKeys(j.Target.sourceKey(), Key{valid: true, kind: "join", n1: int(j.Kind), s1: strconv.FormatBool(j.AutoJoin)})
}

// Join constructs a JoinElement. autoJoin, if true, prunes the join from
// the emitted SQL when nothing in the template references target's
// record type.
func Join(target Source, kind JoinKind, autoJoin bool) JoinElement {
	return JoinElement{Target: target, Kind: kind, AutoJoin: autoJoin}
}

// SelectMode distinguishes a plain SELECT from SELECT DISTINCT (§4.9 step
// 1).
type SelectMode int

const (
	SelectAll SelectMode = iota
	SelectDistinct
)

// LockHint names the row-level locking clause a SELECT may trail with
// (§4.9 steps 2 and 7, §6 Dialect.ForShareLockHint/ForUpdateLockHint).
type LockHint int

const (
	NoLock LockHint = iota
	LockForShare
	LockForUpdate
)

// SelectElement assembles a SELECT statement body from its Items, which
// typically include one FromElement, zero or more JoinElements, column
// references, and a trailing WhereElement. Mode, Limit, Offset, and Lock
// feed the dialect-governed assembly order §4.9 specifies: SELECT
// [DISTINCT] + dialect limit-after-select + the column references, then
// the other items in source order (the dialect lock-hint-after-from
// follows the first of them, normally the FROM), dialect LIMIT/OFFSET,
// trailing lock hint.
type SelectElement struct {
	Items  []Element
	Mode   SelectMode
	Limit  int // 0 means unset
	Offset int // 0 means unset
	Lock   LockHint
}

func (SelectElement) isElement() {}
func (s SelectElement) Key() Key {
	shape := strconv.Itoa(int(s.Mode)) + "|" + strconv.Itoa(int(s.Lock))
	return CombineKeys(combineElementKeys(s.Items), Key{valid: true, kind: "select", n1: s.Limit, s1: strconv.Itoa(s.Offset), s2: shape})
}

// Select constructs a SelectElement from its body items.
func Select(items ...Element) SelectElement { return SelectElement{Items: items} }

// Distinct returns s rendering SELECT DISTINCT.
func (s SelectElement) Distinct() SelectElement {
	s.Mode = SelectDistinct
	return s
}

// WithLimit returns s bounded to n rows, rendered through the dialect's
// Limit/LimitOffset grammar at the position its ApplyLimitAfterSelect
// reports (§4.9 steps 1, 6).
func (s SelectElement) WithLimit(n int) SelectElement {
	s.Limit = n
	return s
}

// WithOffset returns s starting after the first n rows.
func (s SelectElement) WithOffset(n int) SelectElement {
	s.Offset = n
	return s
}

// ForShare returns s trailed with the dialect's shared-lock hint, placed
// per ApplyLockHintAfterFrom (§4.9 steps 2, 7).
func (s SelectElement) ForShare() SelectElement {
	s.Lock = LockForShare
	return s
}

// ForUpdate returns s trailed with the dialect's exclusive-lock hint,
// placed per ApplyLockHintAfterFrom (§4.9 steps 2, 7).
func (s SelectElement) ForUpdate() SelectElement {
	s.Lock = LockForUpdate
	return s
}

// WhereElement wraps its Items as the predicate body of a WHERE clause.
type WhereElement struct {
	Items []Element
}

func (WhereElement) isElement() {}
func (w WhereElement) Key() Key { return combineElementKeys(w.Items) }

// Where constructs a WhereElement.
func Where(items ...Element) WhereElement { return WhereElement{Items: items} }

// SetElement wraps its Assignments as the SET clause body of an UPDATE.
type SetElement struct {
	Assignments []Element
}

func (SetElement) isElement() {}
func (s SetElement) Key() Key { return combineElementKeys(s.Assignments) }

// Set constructs a SetElement.
func Set(assignments ...Element) SetElement { return SetElement{Assignments: assignments} }

// ValuesElement expands to the column list and placeholder list for an
// INSERT against Record, honoring each column's Generation (§4.8
// "Insert omission").
type ValuesElement struct {
	Record reflect.Type
}

func (ValuesElement) isElement() {}
func (v ValuesElement) Key() Key { return TableKey(v.Record, "") }

// Values constructs a ValuesElement for the record type of t.
func Values(t reflect.Type) ValuesElement { return ValuesElement{Record: t} }

// InsertElement introduces an INSERT INTO statement against Record. When
// IgnoreAutoGenerate is true, an IDENTITY/default-SEQUENCE primary-key
// column is included in the following ValuesElement's column list instead
// of being omitted into generatedKeys (§3 "Insert{type,
// ignoreAutoGenerate}", §4.8).
type InsertElement struct {
	Record             reflect.Type
	IgnoreAutoGenerate bool
}

func (InsertElement) isElement() {}
func (i InsertElement) Key() Key {
	k := TableKey(i.Record, "")
	k.s2 = strconv.FormatBool(i.IgnoreAutoGenerate)
	return k
}

// Insert constructs an InsertElement. ignoreAutoGenerate, if given true,
// includes IDENTITY/default-SEQUENCE primary-key columns in the INSERT
// column list rather than omitting them into generatedKeys (§4.8).
func Insert(t reflect.Type, ignoreAutoGenerate ...bool) InsertElement {
	ie := InsertElement{Record: t}
	if len(ignoreAutoGenerate) > 0 {
		ie.IgnoreAutoGenerate = ignoreAutoGenerate[0]
	}
	return ie
}

// UpdateElement introduces an UPDATE statement against Record, optionally
// pinned to an explicit alias (§3 "Update{type, alias}"), matching
// From{source, alias, autoJoin}'s explicit-alias support.
type UpdateElement struct {
	Record reflect.Type
	Alias  string
}

func (UpdateElement) isElement() {}
func (u UpdateElement) Key() Key { return TableKey(u.Record, u.Alias) }

// Update constructs an UpdateElement, optionally pinning it to an explicit
// alias instead of letting the compiler auto-allocate one.
func Update(t reflect.Type, alias ...string) UpdateElement {
	ue := UpdateElement{Record: t}
	if len(alias) > 0 {
		ue.Alias = alias[0]
	}
	return ue
}

// DeleteElement introduces a DELETE FROM statement against Record,
// optionally pinned to an explicit alias (§3 "Delete{type, alias}").
type DeleteElement struct {
	Record reflect.Type
	Alias  string
}

func (DeleteElement) isElement() {}
func (d DeleteElement) Key() Key { return TableKey(d.Record, d.Alias) }

// Delete constructs a DeleteElement, optionally pinning it to an explicit
// alias instead of letting the compiler auto-allocate one.
func Delete(t reflect.Type, alias ...string) DeleteElement {
	de := DeleteElement{Record: t}
	if len(alias) > 0 {
		de.Alias = alias[0]
	}
	return de
}

// ParamElement marks a bind position whose value is fixed at template
// construction time (a literal bound value, as opposed to a per-record
// BindVar).
type ParamElement struct {
	Value any
}

func (ParamElement) isElement() {}
func (p ParamElement) Key() Key {
	if p.Value == nil {
		return NullKey
	}
	return ParamKey(reflect.TypeOf(p.Value))
}

// Param constructs a ParamElement bound to a fixed value.
func Param(v any) ParamElement { return ParamElement{Value: v} }

// BindVarElement marks a bind position whose value is supplied per
// record at bind time via the record's named field/accessor.
type BindVarElement struct {
	Name string
}

func (BindVarElement) isElement() {}
func (b BindVarElement) Key() Key { return BindVarKey(b.Name) }

// BindVar constructs a BindVarElement.
func BindVar(name string) BindVarElement { return BindVarElement{Name: name} }

// SubqueryElement embeds a nested Template, compiled in a fresh
// AliasMapper/TableUse scope (§4.9).
type SubqueryElement struct {
	Sub   Template
	Alias string
}

func (SubqueryElement) isElement() {}
func (s SubqueryElement) Key() Key {
	return CombineKeys(templateKey(s.Sub), Key{valid: true, kind: "alias", s1: s.Alias})
}

// Subquery constructs a SubqueryElement.
func Subquery(sub Template, alias string) SubqueryElement {
	return SubqueryElement{Sub: sub, Alias: alias}
}

// UnsafeElement injects a literal SQL fragment verbatim, bypassing
// escaping. Callers are responsible for its safety (§3).
type UnsafeElement struct {
	SQL string
}

func (UnsafeElement) isElement() {}
func (u UnsafeElement) Key() Key { return UnsafeKey(u.SQL) }

// Unsafe constructs an UnsafeElement.
func Unsafe(sql string) UnsafeElement { return UnsafeElement{SQL: sql} }

// CacheableElement wraps an ObjectExpression: operator Op applied to
// Values against the metamodel column Record.Field (e.g. ·Cacheable(User{},
// "ID", "IN", 1, 2, 3) for `"u"."id" IN (?, ?, ?)`). Record may be the zero
// reflect.Type when the expression has no associated column. Its
// compilation key folds in the metamodel and the typeShape of the first
// value, collapsing collections up to MaxArity in size and degenerating to
// NullKey beyond that (§4.3, §8).
type CacheableElement struct {
	Record reflect.Type
	Field  string
	Op     string
	Values []any
}

func (CacheableElement) isElement() {}
func (c CacheableElement) Key() Key {
	return CollectionKey(derefRecordType(c.Record), c.Field, c.Op, c.Values)
}

// Cacheable constructs a CacheableElement applying op to values against the
// metamodel column field of t's record type. t may be the nil reflect.Type
// when the expression has no associated column.
func Cacheable(t reflect.Type, field, op string, values ...any) CacheableElement {
	return CacheableElement{Record: t, Field: field, Op: op, Values: values}
}

// Wrapped groups Inner elements for template-expansion purposes (e.g. a
// macro substitution); the compiler's router emits its Inner elements in
// place, as if they had been flattened into the parent sequence (§4.1,
// §4.9).
type Wrapped struct {
	Inner []Element
}

func (Wrapped) isElement() {}
func (w Wrapped) Key() Key { return combineElementKeys(w.Inner) }

func combineElementKeys(items []Element) Key {
	keys := make([]Key, len(items))
	for i, it := range items {
		keys[i] = it.Key()
	}
	return CombineKeys(keys...)
}

func templateKey(t Template) Key {
	return combineElementKeys([]Element(t))
}
