package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckinTokenShape(t *testing.T) {
	tok, err := NewCheckinToken(41, 9)
	require.NoError(t, err)
	assert.Len(t, tok, CheckinTokenLen)
	_, err = hex.DecodeString(tok)
	assert.NoError(t, err, "token must be lowercase hex")
}

func TestNewCheckinTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewCheckinToken(41, 9)
		require.NoError(t, err)
		assert.False(t, seen[tok], "token repeated for identical inputs")
		seen[tok] = true
	}
}
