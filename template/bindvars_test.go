package template_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqltmpl"
	"github.com/syssam/sqltmpl/template"
)

func TestBindVarsHandleRequiresBatchListener(t *testing.T) {
	b := template.NewBindVars()
	_, err := b.Handle()
	require.Error(t, err)
	assert.True(t, sqltmpl.IsStateError(err))
	assert.ErrorIs(t, err, sqltmpl.ErrNoBatchListener)
}

func TestBindVarsSetListenerTwiceIsError(t *testing.T) {
	b := template.NewBindVars()
	require.NoError(t, b.SetBatchListener(func(any, []template.PositionalParameter) error { return nil }))
	err := b.SetBatchListener(func(any, []template.PositionalParameter) error { return nil })
	require.Error(t, err)
	assert.True(t, sqltmpl.IsStateError(err))
}

func TestBindVarsHandleDeliversExtractedParams(t *testing.T) {
	b := template.NewBindVars()
	b.Register(func(record any) ([]template.PositionalParameter, error) {
		return []template.PositionalParameter{{Index: 1, Value: record}}, nil
	})

	var seenBatch []template.PositionalParameter
	var seenRecord any
	require.NoError(t, b.SetRecordListener(func(r any) { seenRecord = r }))
	require.NoError(t, b.SetBatchListener(func(record any, params []template.PositionalParameter) error {
		seenBatch = params
		return nil
	}))

	handle, err := b.Handle()
	require.NoError(t, err)

	require.NoError(t, handle(42))
	assert.Equal(t, 42, seenRecord)
	require.Len(t, seenBatch, 1)
	assert.Equal(t, 42, seenBatch[0].Value)
}

func TestBindVarsHandleRecoversExtractorPanic(t *testing.T) {
	b := template.NewBindVars()
	b.Register(func(record any) ([]template.PositionalParameter, error) {
		panic("boom")
	})
	require.NoError(t, b.SetBatchListener(func(any, []template.PositionalParameter) error { return nil }))

	handle, err := b.Handle()
	require.NoError(t, err)

	err = handle("rec")
	require.Error(t, err)
	assert.True(t, sqltmpl.IsPersistenceError(err))

	var extractorPanic *sqltmpl.ExtractorPanic
	require.True(t, errors.As(err, &extractorPanic))
	assert.Equal(t, "rec", extractorPanic.Record)
}

func TestBindVarsHandleWrapsExtractorError(t *testing.T) {
	b := template.NewBindVars()
	wantErr := errors.New("extraction failed")
	b.Register(func(record any) ([]template.PositionalParameter, error) {
		return nil, wantErr
	})
	require.NoError(t, b.SetBatchListener(func(any, []template.PositionalParameter) error { return nil }))

	handle, err := b.Handle()
	require.NoError(t, err)

	err = handle("rec")
	require.Error(t, err)
	assert.True(t, sqltmpl.IsPersistenceError(err))
	assert.ErrorIs(t, err, wantErr)
}
