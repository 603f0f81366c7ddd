package schema_test

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqltmpl/schema"
)

// Account is keyed by a caller-assigned UUID rather than a DB-generated
// identity column, the common shape for records whose PK must be known
// before the row is inserted (e.g. to reference it from a related record
// in the same batch).
type Account struct {
	ID   uuid.UUID `sqltmpl:"pk"`
	Name string
}

func TestRefTypeReportsUnderlyingRecordType(t *testing.T) {
	ref := schema.NewRef[Account](uuid.New())
	assert.Equal(t, reflect.TypeOf(Account{}), ref.Type())
}

func TestRefPKRoundTrips(t *testing.T) {
	id := uuid.New()
	ref := schema.NewRef[Account](id)
	assert.Equal(t, id, ref.PK())
}

func TestIsRefDetectsRefValueRegardlessOfTypeParam(t *testing.T) {
	ref := schema.NewRef[Account](uuid.New())
	detected, ok := schema.IsRef(ref)
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(Account{}), detected.Type())

	_, ok = schema.IsRef(42)
	assert.False(t, ok)
}

func TestReflectIntrospectorHandlesUUIDPrimaryKey(t *testing.T) {
	intro := schema.NewReflectIntrospector()
	pk, err := intro.PrimaryKeys(reflect.TypeOf(Account{}), nil)
	require.NoError(t, err)
	require.Len(t, pk, 1)
	assert.Equal(t, "id", pk[0].Name)
	assert.Equal(t, reflect.TypeOf(uuid.UUID{}), pk[0].Field.Type)
	assert.Equal(t, schema.GenerationNone, pk[0].Generation, "a UUID primary key is caller-assigned, not DB-generated")
}
