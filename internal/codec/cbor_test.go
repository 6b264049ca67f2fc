package codec

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID   uint32            `cbor:"1,keyasint"`
	Name string            `cbor:"2,keyasint,omitempty"`
	Tags map[string]string `cbor:"3,keyasint,omitempty"`
}

func TestMarshalIsDeterministic(t *testing.T) {
	v := sample{ID: 7, Tags: map[string]string{"b": "2", "a": "1", "c": "3"}}

	first, err := Marshal(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[int]any{1: 3, 2: "x", 9: "future"})
	require.NoError(t, err)

	var got sample
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, sample{ID: 3, Name: "x"}, got)
}

func TestStreamSequence(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := uint32(1); i <= 3; i++ {
		require.NoError(t, enc.Encode(sample{ID: i}))
	}

	dec := NewDecoder(&buf)
	var ids []uint32
	for {
		var s sample
		err := dec.Decode(&s)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []uint32{1, 2, 3}, ids)
}

func TestAnyMapsDecodeWithStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"k": map[string]any{"n": 1}})
	require.NoError(t, err)

	var got any
	require.NoError(t, Unmarshal(data, &got))
	outer, ok := got.(map[string]any)
	require.True(t, ok)
	_, ok = outer["k"].(map[string]any)
	assert.True(t, ok)
}
