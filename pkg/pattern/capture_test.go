package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/cloudlens/pkg/value"
)

func TestApplyCaptures_NoMatchLeavesRecordUntouched(t *testing.T) {
	// Given a pattern that does not match
	c, err := Compile(`status=(?<code:Number>\d+)`, false)
	require.NoError(t, err)
	rec := value.NewObject()

	// When applying captures against a non-matching string
	matched, err := ApplyCaptures(c, "no status here", &rec)

	// Then it reports no match and leaves the record empty
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Empty(t, rec.FieldNames())
}

func TestApplyCaptures_StringCaptureWritesField(t *testing.T) {
	// Given a pattern with a String capture
	c, err := Compile(`user=(?<name>\w+)`, false)
	require.NoError(t, err)
	rec := value.NewObject()

	// When it matches
	matched, err := ApplyCaptures(c, "user=alice", &rec)
	require.NoError(t, err)
	require.True(t, matched)

	// Then the field is written
	v, ok := rec.Field("name")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "alice", s)
}

func TestApplyCaptures_NumberCaptureParsesToNumber(t *testing.T) {
	// Given a pattern with a Number capture
	c, err := Compile(`status=(?<code:Number>\d+)`, false)
	require.NoError(t, err)
	rec := value.NewObject()

	// When it matches
	matched, err := ApplyCaptures(c, "status=404", &rec)
	require.NoError(t, err)
	require.True(t, matched)

	// Then the field is written as a Number, not a String
	v, ok := rec.Field("code")
	require.True(t, ok)
	n, ok := v.AsNumber()
	require.True(t, ok)
	assert.Equal(t, float64(404), n)
}

func TestApplyCaptures_NonParticipatingGroupRemovesField(t *testing.T) {
	// Given a pattern with an alternation where one branch never captures
	c, err := Compile(`(?:ok=(?<success>\w+)|fail=(?<failure>\w+))`, false)
	require.NoError(t, err)
	rec := value.NewObject()
	require.NoError(t, rec.SetField("success", value.NewString("stale")))

	// When the "fail" branch matches, "success" never participates
	matched, err := ApplyCaptures(c, "fail=timeout", &rec)
	require.NoError(t, err)
	require.True(t, matched)

	// Then the non-participating capture's field is removed, not left stale
	assert.False(t, value.FieldPath("success").Exists(rec))
	v, ok := rec.Field("failure")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "timeout", s)
}

func TestApplyCaptures_NumberParseFailureLeavesPriorValueUntouched(t *testing.T) {
	// Given a record with a pre-existing value at the capture's field
	c, err := Compile(`code=(?<n:Number>\w+)`, false)
	require.NoError(t, err)
	rec := value.NewObject()
	require.NoError(t, rec.SetField("n", value.NewNumber(7)))

	// When the captured text cannot parse as a number
	matched, err := ApplyCaptures(c, "code=NaNish", &rec)
	require.NoError(t, err)
	require.True(t, matched)

	// Then the field keeps its prior value rather than being half-written
	v, ok := rec.Field("n")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, float64(7), n)
}

func TestApplyCaptures_DateCaptureNormalizesToEpochSeconds(t *testing.T) {
	// Given a pattern with a Date capture
	c, err := Compile(`at (?<when:Date[yyyy-MM-dd]>\d{4}-\d{2}-\d{2})`, false)
	require.NoError(t, err)
	rec := value.NewObject()

	// When it matches
	matched, err := ApplyCaptures(c, "at 2026-03-05", &rec)
	require.NoError(t, err)
	require.True(t, matched)

	// Then the field holds the match's time as Unix-epoch seconds
	v, ok := rec.Field("when")
	require.True(t, ok)
	n, ok := v.AsNumber()
	require.True(t, ok)

	expected, err := time.Parse("2006-01-02", "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, float64(expected.Unix()), n)
}

func TestApplyCaptures_DateParseFailureLeavesPriorValueUntouched(t *testing.T) {
	// Given a record with a pre-existing value and a Date capture that
	// matches the regex but not the date format
	c, err := Compile(`at (?<when:Date[yyyy-MM-dd]>\S+)`, false)
	require.NoError(t, err)
	rec := value.NewObject()
	require.NoError(t, rec.SetField("when", value.NewString("unchanged")))

	matched, err := ApplyCaptures(c, "at not-a-date", &rec)
	require.NoError(t, err)
	require.True(t, matched)

	v, ok := rec.Field("when")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "unchanged", s)
}
