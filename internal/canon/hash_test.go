package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_KnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{
			name:  "counter zero",
			value: map[string]any{"counter": int64(0)},
			want:  "34523b02e1f7f87c56aaeb17b7046a1ed587c73550b8b19fa363af61bc2bc3f4",
		},
		{
			name:  "counter three",
			value: map[string]any{"counter": int64(3)},
			want:  "222397d2df8b447b31abb15b8f9d9d165d1a04bff75e6328ea96957ca098c447",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := Digest("app-universe/state/v1", tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, digest)
		})
	}
}

func TestDigest_DomainSeparation(t *testing.T) {
	value := map[string]any{"counter": int64(0)}

	a, err := Digest("app-universe/state/v1", value)
	require.NoError(t, err)
	b, err := Digest("app-universe/trace/v1", value)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDigest_TracksValue(t *testing.T) {
	zero, err := Digest("app-universe/state/v1", map[string]any{"counter": int64(0)})
	require.NoError(t, err)
	one, err := Digest("app-universe/state/v1", map[string]any{"counter": int64(1)})
	require.NoError(t, err)

	assert.NotEqual(t, zero, one)
}

func TestDigest_RejectsUncanonicalValues(t *testing.T) {
	_, err := Digest("app-universe/state/v1", map[string]any{"ratio": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "computing digest")
	assert.Contains(t, err.Error(), "float values are not allowed")
}
