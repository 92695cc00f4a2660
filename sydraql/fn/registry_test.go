package fn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasAndLookupKnownFunction(t *testing.T) {
	r := NewRegistry()
	require.True(t, r.Has("AVG"))
	sig, ok := r.Lookup("avg")
	require.True(t, ok)
	require.Equal(t, KindAggregate, sig.Kind)
}

func TestResolveUnknownFunction(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("nope", nil)
	require.Error(t, err)
}

func TestResolveArityMismatch(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("abs", []Type{{Tag: TypeFloat}, {Tag: TypeFloat}})
	require.Error(t, err)
}

func TestResolveTypeMismatch(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("abs", []Type{{Tag: TypeString}})
	require.Error(t, err)
}

func TestResolveSumReturnsNonNullableFloat(t *testing.T) {
	r := NewRegistry()
	typ, err := r.Resolve("sum", []Type{{Tag: TypeInteger}})
	require.NoError(t, err)
	require.Equal(t, TypeFloat, typ.Tag)
	require.False(t, typ.Nullable)
}

func TestResolveMinPropagatesArgTypeNullable(t *testing.T) {
	r := NewRegistry()
	typ, err := r.Resolve("min", []Type{{Tag: TypeFloat}})
	require.NoError(t, err)
	require.Equal(t, TypeFloat, typ.Tag)
	require.False(t, typ.Nullable)
}

func TestResolveCountAcceptsZeroArgs(t *testing.T) {
	r := NewRegistry()
	typ, err := r.Resolve("count", nil)
	require.NoError(t, err)
	require.Equal(t, TypeInteger, typ.Tag)
}

func TestResolveCoalesceAcceptsVariadicArgs(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("coalesce", []Type{{Tag: TypeInteger}, {Tag: TypeFloat}, {Tag: TypeInteger}})
	require.NoError(t, err)
}

func TestNumericAcceptsValueTag(t *testing.T) {
	require.True(t, expectationMatches(Type{Tag: TypeNumeric}, Type{Tag: TypeValue}))
	require.True(t, expectationMatches(Type{Tag: TypeValue}, Type{Tag: TypeNumeric}))
	require.True(t, expectationMatches(Type{Tag: TypeTimestamp}, Type{Tag: TypeValue}))
	require.False(t, expectationMatches(Type{Tag: TypeNumeric}, Type{Tag: TypeString}))
}

func TestDefaultRegistryIncludesMandatedFunctions(t *testing.T) {
	mandated := []string{
		"avg", "sum", "min", "max", "count", "first", "last", "percentile",
		"abs", "ceil", "floor", "round", "pow", "ln", "sqrt", "now", "time_bucket",
		"lag", "lead", "rate", "irate", "delta", "integral", "moving_avg", "ema",
		"coalesce", "fill_forward",
	}
	for _, name := range mandated {
		require.True(t, Default.Has(name), "expected registry to include %q", name)
	}
}
