package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		v    Value
		want Kind
	}{
		{Null{}, KindNull},
		{String("x"), KindString},
		{Int(1), KindInt},
		{Bool(false), KindBool},
		{Array{}, KindArray},
		{Object{}, KindObject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.Kind())
	}
	assert.Equal(t, KindInvalid, KindOf(nil))
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"string", "int", "bool", "array", "object"} {
		k, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, k.String())
	}

	_, err := ParseKind("null")
	assert.Error(t, err, "null is not a slot kind")
	_, err = ParseKind("float")
	assert.Error(t, err)
}

func TestObjectSortedKeysUTF16Order(t *testing.T) {
	obj := Object{
		"a":  Int(1),
		"A":  Int(2),
		"aa": Int(3),
		"aA": Int(4),
		"Aa": Int(5),
		"AA": Int(6),
	}
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestObjectSortedKeysSurrogates(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FF61
	// in UTF-16 but after it in UTF-8.
	obj := Object{"\U0001F600": Int(1), "\uFF61": Int(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFF61"}, obj.SortedKeys())
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(5), Int(5)))
	assert.False(t, Equal(Int(5), Int(6)))
	assert.False(t, Equal(Int(1), String("1")))
	assert.True(t, Equal(Null{}, Null{}))
	assert.True(t, Equal(
		Object{"a": Array{Int(1), Bool(true)}},
		Object{"a": Array{Int(1), Bool(true)}},
	))
	assert.False(t, Equal(
		Object{"a": Array{Int(1)}},
		Object{"a": Array{Int(1), Int(2)}},
	))
	assert.False(t, Equal(Object{"a": Int(1)}, Object{"b": Int(1)}))
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"name":  "cart",
		"count": 3,
		"tags":  []any{"x", true},
		"none":  nil,
	})
	require.NoError(t, err)

	want := Object{
		"name":  String("cart"),
		"count": Int(3),
		"tags":  Array{String("x"), Bool(true)},
		"none":  Null{},
	}
	assert.True(t, Equal(want, v), "got %#v", v)
}

func TestFromAnyRejectsFloats(t *testing.T) {
	_, err := FromAny(1.5)
	assert.ErrorContains(t, err, "floats")

	_, err = FromAny([]any{1, 2.5})
	assert.ErrorContains(t, err, "array[1]")
}

func TestToAnyInvertsFromAny(t *testing.T) {
	in := Object{"n": Int(7), "s": String("x"), "l": Array{Bool(false), Null{}}}
	back, err := FromAny(ToAny(in))
	require.NoError(t, err)
	assert.True(t, Equal(in, back))
}

func TestParse(t *testing.T) {
	v, err := Parse([]byte(`{"a":[1,"b",null]}`))
	require.NoError(t, err)
	assert.True(t, Equal(Object{"a": Array{Int(1), String("b"), Null{}}}, v))

	_, err = Parse([]byte(`1.0`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}
