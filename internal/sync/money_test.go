package sync

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatTotal(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		currency string
		want     string
	}{
		{"dollar grouping", "1234.56", "USD", "$1,234.56"},
		{"whole amount keeps cents", "100", "USD", "$100.00"},
		{"euro symbol", "50", "EUR", "€50.00"},
		{"pound symbol", "9.9", "GBP", "£9.90"},
		{"unknown code prefixes code", "10", "SEK", "SEK 10.00"},
		{"empty currency defaults to dollars", "7", "", "$7.00"},
		{"lowercase code normalized", "7", "usd", "$7.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			assert.Equal(t, tt.want, formatTotal(total, tt.currency))
		})
	}
}
