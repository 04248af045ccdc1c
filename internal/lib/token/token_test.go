package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	raw, hash, err := New()
	require.NoError(t, err)

	assert.Len(t, raw, Size*2)
	assert.Len(t, hash, 64)
	assert.Equal(t, Hash(raw), hash)
	assert.NotEqual(t, raw, hash)
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		raw, _, err := New()
		require.NoError(t, err)
		_, dup := seen[raw]
		require.False(t, dup)
		seen[raw] = struct{}{}
	}
}
