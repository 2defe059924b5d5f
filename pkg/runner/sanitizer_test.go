package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		limit   int
		wantErr bool
	}{
		{"under default", DefaultMaxInputSize - 1, 0, false},
		{"exact default", DefaultMaxInputSize, 0, false},
		{"over default", DefaultMaxInputSize + 1, 0, true},
		{"custom limit", 11, 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInput(strings.Repeat("a", tt.size), tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeInput_Cleaning(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2", "2"},
		{"  hint \n", "hint"},
		{"\x1b[31mreview", "[31mreview"},
		{"con\x00tinue", "continue"},
		{"a\tb", "a\tb"},
	}
	for _, tt := range tests {
		got, err := SanitizeInput(tt.in, 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("\xff\xfe", 0)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
