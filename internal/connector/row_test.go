package connector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowMarshalPreservesColumnOrder(t *testing.T) {
	r := NewRow(
		[]string{"z_last", "a_first", "middle"},
		[]any{int64(1), "x", nil},
	)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z_last":1,"a_first":"x","middle":null}`, string(data))
	// Column order must survive marshaling, not just the key set.
	assert.Equal(t, `{"z_last":1,"a_first":"x","middle":null}`, string(data))
}

func TestNewRowNormalizesValues(t *testing.T) {
	r := NewRow(
		[]string{"s", "i", "f", "b", "bytes", "null"},
		[]any{"text", int64(7), 3.5, true, []byte("binary"), nil},
	)

	v, ok := r.Value("bytes")
	require.True(t, ok)
	assert.Equal(t, "binary", v, "byte slices become strings")

	v, ok = r.Value("null")
	require.True(t, ok)
	assert.Nil(t, v)

	_, ok = r.Value("missing")
	assert.False(t, ok)
}

func TestRowMarshalOpaqueValue(t *testing.T) {
	type opaque struct{ A int }
	r := NewRow([]string{"v"}, []any{opaque{A: 1}})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	_, isString := decoded["v"].(string)
	assert.True(t, isString, "values without a native JSON form are rendered as strings")
}
