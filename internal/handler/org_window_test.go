package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockNormalizes(t *testing.T) {
	got, err := parseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:30:00", got)
}

func TestParseClockRejectsBadInput(t *testing.T) {
	for _, s := range []string{"9:30pm", "25:00", "09:61", "", "morning"} {
		_, err := parseClock(s)
		assert.Error(t, err, "input %q", s)
	}
}
