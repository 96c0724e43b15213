package args

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	in := map[string]any{"name": "worker", "count": 3}

	value, err := String(in, "name")
	require.NoError(t, err)
	assert.Equal(t, "worker", value)

	_, err = String(in, "missing")
	assert.Error(t, err)

	_, err = String(in, "count")
	assert.Error(t, err)
}

func TestStringOr(t *testing.T) {
	in := map[string]any{"name": "worker"}
	assert.Equal(t, "worker", StringOr(in, "name", "fallback"))
	assert.Equal(t, "fallback", StringOr(in, "missing", "fallback"))
}

func TestNumberAndInt(t *testing.T) {
	// JSON decoding produces float64; handlers may also be fed Go ints
	// directly in tests.
	in := map[string]any{"f": float64(2.5), "i": 7, "s": "nope"}

	f, err := Number(in, "f")
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	i, err := Int(in, "i")
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	_, err = Number(in, "s")
	assert.Error(t, err)
	_, err = Number(in, "missing")
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	in := map[string]any{"flag": true, "s": "true"}

	value, err := Bool(in, "flag")
	require.NoError(t, err)
	assert.True(t, value)

	_, err = Bool(in, "s")
	assert.Error(t, err)
}

func TestObjectAndSlice(t *testing.T) {
	in := map[string]any{
		"obj":  map[string]any{"k": "v"},
		"list": []any{"a", "b"},
	}

	obj, err := Object(in, "obj")
	require.NoError(t, err)
	assert.Equal(t, "v", obj["k"])

	list, err := Slice(in, "list")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = Object(in, "list")
	assert.Error(t, err)
	_, err = Slice(in, "obj")
	assert.Error(t, err)
}
