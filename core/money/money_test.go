package money

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorConversion(t *testing.T) {
	assert.True(t, ToMinor(decimal.RequireFromString("10.99")).Equal(decimal.NewFromInt(1099)))
	assert.True(t, ToMinor(decimal.RequireFromString("0.005")).Equal(decimal.RequireFromString("0.5")))
	assert.True(t, FromMinor(1099).Equal(decimal.RequireFromString("10.99")))
}

func TestFee(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		rate  string
		fee   int64
	}{
		{name: "exact", total: 2000, rate: "0.1", fee: 200},
		{name: "floored", total: 999, rate: "0.1", fee: 99},
		{name: "zero rate", total: 1500, rate: "0", fee: 0},
		{name: "small total", total: 9, rate: "0.1", fee: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fee, Fee(tt.total, decimal.RequireFromString(tt.rate)))
		})
	}
}

func TestParseRate(t *testing.T) {
	r, err := ParseRate("0.1")
	require.NoError(t, err)
	assert.Equal(t, "0.1", r.String())

	_, err = ParseRate("1")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = ParseRate("-0.2")
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = ParseRate("ten percent")
	assert.Error(t, err)
}

func TestFormatPrice(t *testing.T) {
	got := FormatPrice(decimal.RequireFromString("1234.5"), "USD")
	assert.True(t, strings.HasPrefix(got, "$"), got)
	assert.Contains(t, got, "1,234.50")

	got = FormatPrice(decimal.NewFromInt(3), "not-a-currency")
	assert.Contains(t, got, "3.00")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
}
