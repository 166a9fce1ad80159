package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateStorageKey(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		shouldErr bool
	}{
		{"Zero length", 0, false},
		{"Short key", 16, false},
		{"AEAD sized key", 32, false},
		{"Long key", 64, false},
		{"Negative length", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := GenerateStorageKey(tt.length)
			if tt.shouldErr {
				assert.ErrorIs(t, err, ErrInvalidLength)
				return
			}
			assert.NoError(t, err)
			assert.Len(t, first, tt.length)

			second, err := GenerateStorageKey(tt.length)
			assert.NoError(t, err)
			assert.Len(t, second, tt.length)

			if tt.length >= 16 {
				assert.NotEqual(t, first, second, "two storage keys should differ")
			}
		})
	}
}
