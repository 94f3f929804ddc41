package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_FieldOrderPreserved(t *testing.T) {
	// Given an object with fields set out of alphabetical order
	obj := NewObject()
	require.NoError(t, obj.SetField("zeta", NewString("z")))
	require.NoError(t, obj.SetField("alpha", NewString("a")))

	// When reading field names back
	names := obj.FieldNames()

	// Then insertion order is preserved, not sorted
	assert.Equal(t, []string{"zeta", "alpha"}, names)
}

func TestValue_SetFieldOverwritesInPlace(t *testing.T) {
	// Given an object with a field already set
	obj := NewObject()
	require.NoError(t, obj.SetField("count", NewNumber(1)))

	// When the same field is set again
	require.NoError(t, obj.SetField("count", NewNumber(2)))

	// Then the value is updated without changing field order
	v, ok := obj.Field("count")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, float64(2), n)
	assert.Equal(t, []string{"count"}, obj.FieldNames())
}

func TestValue_Equal(t *testing.T) {
	// Given two structurally identical objects built in different order
	a := NewObject()
	require.NoError(t, a.SetField("x", NewNumber(1)))
	require.NoError(t, a.SetField("y", NewString("hi")))

	b := NewObject()
	require.NoError(t, b.SetField("y", NewString("hi")))
	require.NoError(t, b.SetField("x", NewNumber(1)))

	// Then Equal reports them equal regardless of field order
	assert.True(t, a.Equal(b))

	// And changing a value breaks equality
	require.NoError(t, b.SetField("x", NewNumber(2)))
	assert.False(t, a.Equal(b))
}

func TestValue_EqualWithNull(t *testing.T) {
	// Given a null value and a non-null value
	null := NewNull()
	str := NewString("")

	// Then null is only equal to null
	assert.True(t, null.Equal(NewNull()))
	assert.False(t, null.Equal(str))
}

func TestValue_Append(t *testing.T) {
	// Given an array value
	arr := NewArray(NewNumber(1))

	// When appending an element
	require.NoError(t, arr.Append(NewNumber(2)))

	// Then the array grows in order
	items, ok := arr.AsArray()
	require.True(t, ok)
	require.Len(t, items, 2)
	n0, _ := items[0].AsNumber()
	n1, _ := items[1].AsNumber()
	assert.Equal(t, float64(1), n0)
	assert.Equal(t, float64(2), n1)
}

func TestValue_AppendOnNonArrayErrors(t *testing.T) {
	// Given a non-array value
	v := NewString("x")

	// When appending to it
	err := v.Append(NewNumber(1))

	// Then it reports an error instead of panicking
	assert.Error(t, err)
}

func TestValue_StringRendersCanonicalJSON(t *testing.T) {
	// Given a simple record
	rec := NewObject()
	require.NoError(t, rec.SetField("message", NewString("hello")))

	// Then String() renders it as JSON
	assert.Equal(t, `{"message":"hello"}`, rec.String())
}

func TestValue_FromJSONPreservesArraysAndNesting(t *testing.T) {
	// Given JSON text with nested structures
	v, err := FromJSON([]byte(`{"a":1,"b":[1,2,3],"c":{"d":true}}`))
	require.NoError(t, err)

	// Then it round-trips through accessors
	a, ok := v.Field("a")
	require.True(t, ok)
	n, _ := a.AsNumber()
	assert.Equal(t, float64(1), n)

	b, ok := v.Field("b")
	require.True(t, ok)
	items, _ := b.AsArray()
	assert.Len(t, items, 3)

	c, ok := v.Field("c")
	require.True(t, ok)
	d, ok := c.Field("d")
	require.True(t, ok)
	bv, _ := d.AsBool()
	assert.True(t, bv)
}

func TestValue_FromJSONInvalidErrors(t *testing.T) {
	// Given malformed JSON
	_, err := FromJSON([]byte(`{not json`))

	// Then FromJSON reports an error
	assert.Error(t, err)
}
