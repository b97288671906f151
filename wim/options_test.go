package wim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDecodeTableUsesConfiguredRootBits(t *testing.T) {
	opts := NewOptions(WithRootBits(2))

	table, err := opts.DecodeTable([]uint8{1, 2, 3, 3}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, table.RootBits)
	assert.NotEmpty(t, table.Subtable)
}

func TestOptionsDecodeTableDefaultsWithNilOptions(t *testing.T) {
	var opts *Options

	table, err := opts.DecodeTable([]uint8{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, table.RootBits)
}

func TestOptionsDecodeTableClampsRootBitsToMaxCodewordLen(t *testing.T) {
	opts := NewOptions(WithRootBits(9))

	table, err := opts.DecodeTable([]uint8{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, table.RootBits)
}
