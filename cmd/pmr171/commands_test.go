package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannels(t *testing.T) {
	got, err := parseChannels("0-3, 10,2,999")
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 1, 2, 3, 10, 999}, got)
}

func TestParseChannels_Errors(t *testing.T) {
	for _, in := range []string{"", ",", "abc", "5-2", "1000", "-1", "3-1000"} {
		_, err := parseChannels(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestLabelOr(t *testing.T) {
	assert.Equal(t, "read", labelOr("", "read"))
	assert.Equal(t, "field day", labelOr("field day", "read"))
}
