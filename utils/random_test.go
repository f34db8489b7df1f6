package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	a, hashA, err := RandomToken()
	require.NoError(t, err)
	b, _, err := RandomToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, HashToken(a), hashA)
	assert.NotEqual(t, a, hashA)
}
