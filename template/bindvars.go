package template

import (
	"sync"

	"github.com/syssam/sqltmpl"
)

// RecordListener observes each record before its extractors run.
type RecordListener func(record any)

// BatchListener receives the concatenated PositionalParameters extracted
// for one record.
type BatchListener func(record any, params []PositionalParameter) error

// Extractor produces a record's contribution to a batch bind. Processors
// register one per compiled template during bind setup (§4.11).
type Extractor func(record any) ([]PositionalParameter, error)

// BindVars is the batch-binding collaborator (§4.11): it carries the
// extractors a compiled template's processors registered plus a single
// BatchListener, and its Handle is the one-argument function callers
// invoke per record.
type BindVars struct {
	mu         sync.Mutex
	extractors []Extractor
	record     RecordListener
	batch      BatchListener
}

// NewBindVars returns an empty BindVars.
func NewBindVars() *BindVars {
	return &BindVars{}
}

// Register adds an extractor invoked on every Handle call.
func (b *BindVars) Register(e Extractor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.extractors = append(b.extractors, e)
}

// SetRecordListener installs r. Calling this twice is a StateError
// (§4.11, §7).
func (b *BindVars) SetRecordListener(r RecordListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.record != nil {
		return sqltmpl.NewStateError(sqltmpl.ErrListenerAlreadySet)
	}
	b.record = r
	return nil
}

// SetBatchListener installs l. Calling this twice is a StateError (§4.11,
// §7).
func (b *BindVars) SetBatchListener(l BatchListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.batch != nil {
		return sqltmpl.NewStateError(sqltmpl.ErrListenerAlreadySet)
	}
	b.batch = l
	return nil
}

// Handle returns the one-argument function a caller invokes per record:
// it notifies the RecordListener (if any), runs every registered
// extractor, concatenates their output, and delivers it to the
// BatchListener. Handle requires a BatchListener to already be set
// (§4.11, §7 StateError). If an extractor panics with the unchecked
// template-error wrapper (or anything else), Handle recovers it, wraps it
// as an ExtractorPanic, and re-raises it as a user-facing
// PersistenceError — the one place in this package a panic crosses back
// into ordinary error returns (§7 RuntimeWrap, §9).
func (b *BindVars) Handle() (func(record any) error, error) {
	b.mu.Lock()
	batch := b.batch
	b.mu.Unlock()
	if batch == nil {
		return nil, sqltmpl.NewStateError(sqltmpl.ErrNoBatchListener)
	}

	return func(record any) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = sqltmpl.NewPersistenceError(sqltmpl.NewExtractorPanic(record, r))
			}
		}()

		if b.record != nil {
			b.record(record)
		}

		var params []PositionalParameter
		for _, extract := range b.extractors {
			p, extractErr := extract(record)
			if extractErr != nil {
				return sqltmpl.NewPersistenceError(extractErr)
			}
			params = append(params, p...)
		}
		return batch(record, params)
	}, nil
}
