package template

import (
	"fmt"
	"reflect"

	"github.com/syssam/sqltmpl"
)

// bindHintKind distinguishes a BindHint whose value was fixed at compile
// time from one resolved from a runtime record at bind time.
type bindHintKind int

const (
	hintLiteral bindHintKind = iota
	hintBindVar
)

// BindHint is a compile-time-only descriptor of how to produce one
// PositionalParameter's value at bind time (§4.1 Bind hint, Glossary).
// BindHints never capture runtime values themselves, which is what makes
// a CompiledTemplate safe to reuse across many binds.
type BindHint struct {
	kind      bindHintKind
	literal   any
	fieldName string
}

func literalHint(v any) BindHint       { return BindHint{kind: hintLiteral, literal: v} }
func bindVarHint(name string) BindHint { return BindHint{kind: hintBindVar, fieldName: name} }

func (h BindHint) resolve(root any) (any, error) {
	switch h.kind {
	case hintLiteral:
		return h.literal, nil
	case hintBindVar:
		return extractField(root, h.fieldName)
	default:
		panic(sqltmpl.ErrUnsupportedElement)
	}
}

func extractField(root any, name string) (any, error) {
	v := reflect.ValueOf(root)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, sqltmpl.NewTemplateErrorWrap("bind", fmt.Sprintf("bindvar %q: nil record", name), sqltmpl.ErrNilInExpression)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, sqltmpl.NewTemplateError("bind", fmt.Sprintf("bindvar %q: root is not a struct (%T)", name, root))
	}
	f := v.FieldByName(name)
	if !f.IsValid() {
		return nil, sqltmpl.NewTemplateError("bind", fmt.Sprintf("bindvar %q: no such field on %T", name, root))
	}
	return f.Interface(), nil
}

// PositionalParameter is one ordered, 1-based bound parameter matching
// the i-th placeholder in CompiledTemplate.SQL (§4.6, §8 "Parameter
// ordering").
type PositionalParameter struct {
	Index int
	Value any
}

// TemplateBinder turns a CompiledTemplate plus one root record into final
// SQL text and its ordered PositionalParameters (§4.6). A TemplateBinder
// is built per bind call and is not shared across goroutines (§5).
type TemplateBinder struct {
	compiled *CompiledTemplate
}

// NewTemplateBinder returns a TemplateBinder over compiled.
func NewTemplateBinder(compiled *CompiledTemplate) *TemplateBinder {
	return &TemplateBinder{compiled: compiled}
}

// Bind resolves every BindHint in the compiled template against root,
// returning the SQL text (unchanged from compile time), the ordered
// parameters, and the generated-key column names an INSERT caller should
// read back after execution.
func (b *TemplateBinder) Bind(root any) (string, []PositionalParameter, []string, error) {
	params := make([]PositionalParameter, 0, len(b.compiled.Hints))
	for i, h := range b.compiled.Hints {
		v, err := h.resolve(root)
		if err != nil {
			return "", nil, nil, err
		}
		params = append(params, PositionalParameter{Index: i + 1, Value: v})
	}
	return b.compiled.SQL, params, b.compiled.GeneratedKeys, nil
}
