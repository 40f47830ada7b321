package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		// The three spellings of the same rate must agree.
		{"54%", 0.54},
		{"0.54", 0.54},
		{"54", 0.54},
		{"1", 1},
		{"0.5", 0.5},
		{"1.5", 0.015},
		{"100%", 1},
		{"0%", 0},
		{" 54 % ", 0.54},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePercentage(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	t.Run("rejects non-numbers", func(t *testing.T) {
		_, err := ParsePercentage("half")
		assert.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParsePercentage("  ")
		assert.Error(t, err)
	})
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"-3", -3},
		{"1,200", 1200},
		{" 7 ", 7},
	}
	for _, tt := range tests {
		got, err := ParseInteger(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseInteger("3.5")
	assert.Error(t, err)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"3.14", 3.14},
		{"-7.5", -7.5},
		{"1,200.25", 1200.25},
		{"42", 42},
	}
	for _, tt := range tests {
		got, err := ParseDecimal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDecimal("n/a")
	assert.Error(t, err)
}
