package sqltmpl

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions that carry no useful parameterization.
var (
	// ErrUnsupportedElement is the fatal-programmer-error sentinel raised
	// when the dispatch router is handed an element variant it does not
	// recognize (§4.2, §7).
	ErrUnsupportedElement = errors.New("sqltmpl: unsupported element variant")

	// ErrNilInExpression is returned when a Cacheable(ObjectExpression)
	// carries a literal nil value; callers must use the IS_NULL operator
	// explicitly instead (§4.3).
	ErrNilInExpression = errors.New("sqltmpl: nil value in expression; use IS_NULL explicitly")

	// ErrMissingAlias is returned when a Join's target alias cannot be
	// resolved from the AliasMapper (§4.7 step 6).
	ErrMissingAlias = errors.New("sqltmpl: missing alias for join target")

	// ErrNoMatchingForeignKey names the condition where neither side of a
	// Join declares a foreign key referencing the other (§4.7 step 4).
	// JoinDeriver.Derive reports that condition as a *SchemaError, which
	// does not wrap this sentinel.
	ErrNoMatchingForeignKey = errors.New("sqltmpl: no matching foreign key")

	// ErrArityMismatch is returned when two joined record types' primary
	// and foreign key component counts differ (§4.7 step 5).
	ErrArityMismatch = errors.New("sqltmpl: primary key and foreign key component counts differ")

	// ErrListenerAlreadySet is returned when a BindVars RecordListener or
	// BatchListener is set a second time (§4.11, §7 StateError).
	ErrListenerAlreadySet = errors.New("sqltmpl: listener already set")

	// ErrNoBatchListener is returned when a BindVars handle is invoked
	// before a BatchListener has been registered (§4.11, §7 StateError).
	ErrNoBatchListener = errors.New("sqltmpl: handle invoked with no batch listener")
)

// TemplateError reports a malformed template: an unsupported element, a
// mismatched PK/FK arity discovered while composing a fragment, composing
// on the wrong element type, or any other shape problem the compiler
// detects before it ever reaches the schema layer (§7).
type TemplateError struct {
	Op  string // the component that detected the problem, e.g. "compile", "join"
	Msg string
	Err error // optional wrapped cause
}

// Error returns the error string.
func (e *TemplateError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("sqltmpl: %s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("sqltmpl: %s", e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// NewTemplateError returns a new TemplateError.
func NewTemplateError(op, msg string) *TemplateError {
	return &TemplateError{Op: op, Msg: msg}
}

// NewTemplateErrorWrap returns a new TemplateError wrapping a cause.
func NewTemplateErrorWrap(op, msg string, err error) *TemplateError {
	return &TemplateError{Op: op, Msg: msg, Err: err}
}

// IsTemplateError returns true if err is (or wraps) a *TemplateError.
func IsTemplateError(err error) bool {
	if err == nil {
		return false
	}
	var e *TemplateError
	return errors.As(err, &e)
}

// SchemaError reports a problem discovered while consulting the
// SchemaIntrospector: a missing primary key, or no matching foreign key
// between two record types a Join was asked to relate (§7).
type SchemaError struct {
	RecordType string
	Msg        string
}

// Error returns the error string.
func (e *SchemaError) Error() string {
	if e.RecordType != "" {
		return fmt.Sprintf("sqltmpl: schema: %s: %s", e.RecordType, e.Msg)
	}
	return fmt.Sprintf("sqltmpl: schema: %s", e.Msg)
}

// NewSchemaError returns a new SchemaError.
func NewSchemaError(recordType, msg string) *SchemaError {
	return &SchemaError{RecordType: recordType, Msg: msg}
}

// IsSchemaError returns true if err is (or wraps) a *SchemaError.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaError
	return errors.As(err, &e)
}

// StateError reports misuse of a stateful collaborator: a BindVars
// listener set twice, or a handle invoked with nothing registered to
// receive its output (§4.11, §7).
type StateError struct {
	Msg string
}

// Error returns the error string.
func (e *StateError) Error() string {
	return fmt.Sprintf("sqltmpl: %s", e.Msg)
}

// Is reports whether target is one of the package's StateError sentinels,
// so errors.Is(stateErr, ErrListenerAlreadySet) works for values
// constructed via NewStateError with a matching sentinel.
func (e *StateError) Is(target error) bool {
	return target != nil && e.Msg == stateErrorMessage(target)
}

func stateErrorMessage(err error) string {
	const prefix = "sqltmpl: "
	s := err.Error()
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

// NewStateError returns a new StateError wrapping one of the package's
// StateError sentinels (ErrListenerAlreadySet, ErrNoBatchListener) or any
// other error.
func NewStateError(sentinel error) *StateError {
	return &StateError{Msg: stateErrorMessage(sentinel)}
}

// IsStateError returns true if err is (or wraps) a *StateError.
func IsStateError(err error) bool {
	if err == nil {
		return false
	}
	var e *StateError
	return errors.As(err, &e)
}

// ExtractorPanic is the unchecked wrapper §7/§9 describes: a BindVars
// extractor panics with a compile-time error value, and the handle that
// invoked it recovers, captures the value here, and re-raises it as an
// ordinary error across the functional-callback boundary. Go has no
// checked exceptions, so unlike the source language this wrapper never
// needs to suppress anything — it exists purely to carry a recovered panic
// value back through a call stack that only returns errors.
type ExtractorPanic struct {
	Record any   // the record being extracted when the panic occurred
	Err    error // the recovered value, coerced to an error
}

// Error returns the error string.
func (e *ExtractorPanic) Error() string {
	return fmt.Sprintf("sqltmpl: extractor panicked while binding %T: %v", e.Record, e.Err)
}

// Unwrap returns the recovered cause.
func (e *ExtractorPanic) Unwrap() error {
	return e.Err
}

// NewExtractorPanic wraps a recovered panic value as an ExtractorPanic.
// recovered may be an error, a string, or any other value; non-error
// values are rendered with fmt.Errorf("%v").
func NewExtractorPanic(record any, recovered any) *ExtractorPanic {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("%v", recovered)
	}
	return &ExtractorPanic{Record: record, Err: err}
}

// IsExtractorPanic returns true if err is (or wraps) an *ExtractorPanic.
func IsExtractorPanic(err error) bool {
	if err == nil {
		return false
	}
	var e *ExtractorPanic
	return errors.As(err, &e)
}

// PersistenceError is the user-facing error a BindVars handle raises once
// it has unwrapped an ExtractorPanic (§4.11: "the handle converts it to a
// user-facing persistence error").
type PersistenceError struct {
	Err error
}

// Error returns the error string.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("sqltmpl: persistence error: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err (typically an *ExtractorPanic) as a
// PersistenceError.
func NewPersistenceError(err error) *PersistenceError {
	return &PersistenceError{Err: err}
}

// IsPersistenceError returns true if err is (or wraps) a *PersistenceError.
func IsPersistenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *PersistenceError
	return errors.As(err, &e)
}
