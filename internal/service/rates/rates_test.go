package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	converter := New(map[string]map[string]float64{
		"UZS":      {"QIWI RUB": 0.0075},
		"QIWI RUB": {"UZS": 1 / 0.0075},
	})

	tests := []struct {
		name      string
		amount    float64
		from      string
		to        string
		expected  float64
		expectErr bool
	}{
		{
			name:     "Same currency is identity",
			amount:   1234.5,
			from:     "UZS",
			to:       "UZS",
			expected: 1234.5,
		},
		{
			name:     "Direct rate",
			amount:   100000,
			from:     "UZS",
			to:       "QIWI RUB",
			expected: 750,
		},
		{
			name:      "Missing forward rate",
			amount:    10,
			from:      "UZS",
			to:        "BTC",
			expectErr: true,
		},
		{
			name:      "Missing reverse rate",
			amount:    10,
			from:      "BTC",
			to:        "UZS",
			expectErr: true,
		},
		{
			name:      "Unknown source currency",
			amount:    10,
			from:      "EUR",
			to:        "UZS",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := converter.Convert(tt.amount, tt.from, tt.to)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrRateNotFound)
				assert.Zero(t, got)
			} else {
				assert.NoError(t, err)
				assert.InDelta(t, tt.expected, got, 1e-9)
			}
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	// mutually consistent table: rate back is the exact reciprocal
	converter := New(map[string]map[string]float64{
		"UZS":  {"USDT": 0.00008},
		"USDT": {"UZS": 1 / 0.00008},
	})

	forward, err := converter.Convert(250000, "UZS", "USDT")
	assert.NoError(t, err)

	back, err := converter.Convert(forward, "USDT", "UZS")
	assert.NoError(t, err)
	assert.InDelta(t, 250000, back, 1e-6)
}
