package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFits(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"0", true},
		{"1000", true},
		{"1000.5", true},
		{"1000.50", true},
		{"1000.500", true},
		{"-25.10", true},
		{"9999999999999.99", true},
		{"1000.005", false},
		{"0.001", false},
		{"10000000000000", false},
		{"1e20", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Fits(decimal.RequireFromString(tt.value)))
		})
	}
}
