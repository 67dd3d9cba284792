package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := sample{Name: "temperature", Value: 21.5}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalIntoInterfaceHeldPointer(t *testing.T) {
	data, err := Marshal(sample{Name: "rain", Value: 80})
	require.NoError(t, err)

	var out sample
	var target interface{} = &out

	require.NoError(t, UnmarshalInto(data, target))
	assert.Equal(t, sample{Name: "rain", Value: 80}, out)
}

func TestUnmarshalIntoRejectsGarbage(t *testing.T) {
	var out sample
	assert.Error(t, UnmarshalInto([]byte("{broken"), &out))
}
