package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"0.01", "10000000000000000"},
		{"1000000", "1000000000000000000000000"},
		{"0.000000000000000001", "1"},
		{"1.5", "1500000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := ParseUnits(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.String())
		})
	}
}

func TestParseUnitsRejects(t *testing.T) {
	for _, bad := range []string{"", "-1", "abc", "0.0000000000000000001"} {
		_, err := ParseUnits(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", bad)
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0", FormatUnits(ZeroAmount()))
	assert.Equal(t, "1000", FormatUnits(Units(1000)))
	assert.Equal(t, "0.01", FormatUnits(MustParseUnits("0.01")))
	assert.Equal(t, "0.000000000000000001", FormatUnits(NewAmount(1)))
}
