package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_ExistsTopLevel(t *testing.T) {
	// Given a record with a top-level field
	rec := NewObject()
	require.NoError(t, rec.SetField("message", NewString("hi")))

	// Then the message path exists, and an absent path does not
	assert.True(t, MessageKey.Exists(rec))
	assert.False(t, FieldPath("missing").Exists(rec))
}

func TestPath_ExistsRequiresEveryPrefix(t *testing.T) {
	// Given a record missing an intermediate object
	rec := NewObject()

	// Then a nested path does not exist
	assert.False(t, FieldPath("http", "status").Exists(rec))

	// And it exists once the intermediate object is populated
	require.NoError(t, rec.SetField("http", NewObject()))
	http, _ := rec.Field("http")
	require.NoError(t, http.SetField("status", NewNumber(200)))
	require.NoError(t, rec.SetField("http", http))

	assert.True(t, FieldPath("http", "status").Exists(rec))
}

func TestPath_GetArrayIndex(t *testing.T) {
	// Given a record with an array field
	rec := NewObject()
	require.NoError(t, rec.SetField("items", NewArray(NewString("a"), NewString("b"))))

	// When getting the second element by index
	v, ok := NewPath(Field("items"), Index(1)).Get(rec)

	// Then it resolves to "b"
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "b", s)
}

func TestPath_SetCreatesIntermediateObjects(t *testing.T) {
	// Given an empty record
	rec := NewObject()

	// When setting a nested path that doesn't exist yet
	err := FieldPath("http", "status").Set(&rec, NewNumber(404))
	require.NoError(t, err)

	// Then the intermediate object was created and the leaf set
	v, ok := FieldPath("http", "status").Get(rec)
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, float64(404), n)
}

func TestPath_RemoveField(t *testing.T) {
	// Given a record with a field
	rec := NewObject()
	require.NoError(t, rec.SetField("error", NewNumber(42)))

	// When removing it
	removed := FieldPath("error").Remove(&rec)

	// Then it reports removal and the field is gone
	assert.True(t, removed)
	assert.False(t, FieldPath("error").Exists(rec))
}

func TestPath_RemoveAbsentFieldReportsFalse(t *testing.T) {
	// Given a record without the field
	rec := NewObject()

	// Then removing it is a no-op reporting false
	assert.False(t, FieldPath("missing").Remove(&rec))
}

func TestPath_EndOfStreamIsNeverEqualToARealPath(t *testing.T) {
	// Given the end-of-stream sentinel and a real record
	rec := NewObject()
	require.NoError(t, rec.SetField("message", NewString("x")))

	// Then EndOfStream never exists in any record
	assert.False(t, EndOfStream.Exists(rec))
}
