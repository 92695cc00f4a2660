package exec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueEqualsCrossTypeNumeric(t *testing.T) {
	require.True(t, IntValue(3).Equals(FloatValue(3.0)))
	require.False(t, IntValue(3).Equals(FloatValue(3.5)))
}

func TestValueEqualsStringRequiresBothStrings(t *testing.T) {
	require.True(t, StringValue("a").Equals(StringValue("a")))
	require.False(t, StringValue("a").Equals(IntValue(0)))
}

func TestValueEqualsNullOnlyMatchesNull(t *testing.T) {
	require.True(t, NullValue().Equals(NullValue()))
	require.False(t, NullValue().Equals(IntValue(0)))
	require.False(t, IntValue(0).Equals(NullValue()))
}

func TestValueAsFloatCoercesBoolean(t *testing.T) {
	f, ok := BoolValue(true).AsFloat()
	require.True(t, ok)
	require.Equal(t, 1.0, f)

	_, ok = StringValue("x").AsFloat()
	require.False(t, ok)
}

func TestValueAsIntTruncatesFloat(t *testing.T) {
	i, ok := FloatValue(3.9).AsInt()
	require.True(t, ok)
	require.Equal(t, int64(3), i)
}

func TestValueIsNull(t *testing.T) {
	require.True(t, NullValue().IsNull())
	require.False(t, IntValue(1).IsNull())
}
