package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoivisto/bankdash/internal/obp"
)

func TestTransactions_Transform(t *testing.T) {
	raw := []obp.RawTransaction{
		{
			ID: "t1",
			Details: obp.RawTxDetails{
				Description: "Coffee Shop",
				Completed:   "2026-03-15T09:30:00Z",
				Value:       obp.RawAmount{Amount: "-25.00", Currency: "USD"},
			},
		},
	}

	got := Transactions(raw)
	require.Len(t, got, 1)

	tx := got[0]
	assert.Equal(t, "t1", tx.ID)
	assert.Equal(t, "25.00", tx.Amount)
	assert.Equal(t, Outgoing, tx.Direction)
	assert.Equal(t, "food", tx.Category)
	assert.Equal(t, "Coffee Shop", tx.Description)
	assert.Equal(t, time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, "Mar 15, 2026 9:30 AM", tx.DisplayTime)
}

func TestTransactions_Direction(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   Direction
	}{
		{"negative is outgoing", "-10.00", Outgoing},
		{"positive is incoming", "2500.00", Incoming},
		{"zero is incoming", "0", Incoming},
		{"unparsable defaults to incoming zero", "??", Incoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transactions([]obp.RawTransaction{
				{ID: "t", Details: obp.RawTxDetails{Value: obp.RawAmount{Amount: tt.amount}}},
			})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Direction)
		})
	}
}

func TestTransactions_DescriptionFallbacks(t *testing.T) {
	tests := []struct {
		name string
		raw  obp.RawTransaction
		want string
	}{
		{
			"details description wins",
			obp.RawTransaction{Details: obp.RawTxDetails{Description: "Grocery Store"},
				OtherAccount: obp.RawOtherAccount{Holder: obp.RawHolder{Name: "ACME"}}},
			"Grocery Store",
		},
		{
			"holder name second",
			obp.RawTransaction{OtherAccount: obp.RawOtherAccount{Holder: obp.RawHolder{Name: "ACME Corp"}}},
			"ACME Corp",
		},
		{
			"placeholder last",
			obp.RawTransaction{},
			"Unknown Transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transactions([]obp.RawTransaction{tt.raw})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Description)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		wantOK     bool
		want       time.Time
	}{
		{"rfc3339", []string{"2026-01-02T15:04:05Z"}, true,
			time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"millisecond zulu", []string{"2026-01-02T15:04:05.000Z"}, true,
			time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"space separated", []string{"2026-01-02 15:04:05"}, true,
			time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"date only", []string{"2026-01-02"}, true,
			time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"first candidate empty", []string{"", "2026-01-02"}, true,
			time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"all unusable", []string{"", "soon"}, false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimestamp(tt.candidates...)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestTransactions_MissingTimestampLeavesZeroDate(t *testing.T) {
	got := Transactions([]obp.RawTransaction{
		{ID: "t", Details: obp.RawTxDetails{Value: obp.RawAmount{Amount: "5"}}},
	})

	require.Len(t, got, 1)
	assert.True(t, got[0].Date.IsZero())
	assert.Empty(t, got[0].DisplayTime)
}
