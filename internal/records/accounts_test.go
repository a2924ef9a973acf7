package records

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mkoivisto/bankdash/internal/obp"
)

func TestAccounts_Transform(t *testing.T) {
	raw := []obp.RawAccount{
		{
			ID:    "a1",
			Label: "Main Savings",
			Type:  "SAVINGS",
			Balance: obp.RawAmount{
				Amount:   "1234.5",
				Currency: "USD",
			},
			ViewsAvailable: []obp.RawView{{ID: "owner-view"}},
		},
	}

	got := Accounts(raw)
	assert.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "Main Savings", got[0].Label)
	assert.Equal(t, "1234.50", got[0].Balance)
	assert.Equal(t, "USD", got[0].Currency)
	assert.Equal(t, TypeSavings, got[0].Type)
	assert.Equal(t, "owner-view", got[0].ViewID)
}

func TestAccounts_MalformedBalanceDegradesToZero(t *testing.T) {
	got := Accounts([]obp.RawAccount{
		{ID: "a2", Label: "Broken", Balance: obp.RawAmount{Amount: "not-a-number", Currency: "USD"}},
	})

	assert.Len(t, got, 1)
	assert.Equal(t, "0.00", got[0].Balance)
}

func TestAccounts_EmptyLabelFallsBackToID(t *testing.T) {
	got := Accounts([]obp.RawAccount{
		{ID: "a3", Balance: obp.RawAmount{Amount: "1.00"}},
	})

	assert.Equal(t, "Account a3", got[0].Label)
}

func TestAccountType(t *testing.T) {
	tests := []struct {
		name    string
		rawType string
		label   string
		want    AccountType
	}{
		{"savings by type", "SAVINGS", "Main", TypeSavings},
		{"deposit counts as savings", "", "Fixed Deposit", TypeSavings},
		{"loan is debt", "LOAN", "Car", TypeDebt},
		{"credit card is debt", "", "Credit Card", TypeDebt},
		{"mortgage is debt", "", "Home Mortgage", TypeDebt},
		{"brokerage is investment", "", "Brokerage Account", TypeInvestment},
		{"pension is investment", "PENSION", "", TypeInvestment},
		{"plain current account", "CURRENT", "Everyday", TypeChecking},
		{"unknown defaults to checking", "", "Mystery", TypeChecking},
		// Ordered rules: savings keywords win over debt keywords.
		{"savings before credit", "", "Savings Credit Builder", TypeSavings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accountType(tt.rawType, tt.label))
		})
	}
}

func TestViewID(t *testing.T) {
	tests := []struct {
		name  string
		views []obp.RawView
		want  string
	}{
		{"no views", nil, "owner"},
		{"owner view present", []obp.RawView{{ID: "public"}, {ID: "owner"}}, "owner"},
		{"owner substring match", []obp.RawView{{ID: "Owner-2024"}}, "Owner-2024"},
		{"no owner view", []obp.RawView{{ID: "public"}, {ID: "auditor"}}, "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, viewID(tt.views))
		})
	}
}

func TestParseAmount(t *testing.T) {
	assert.True(t, ParseAmount("10.5").Equal(decimal.RequireFromString("10.5")))
	assert.True(t, ParseAmount(" -25.00 ").IsNegative())
	assert.True(t, ParseAmount("garbage").IsZero())
	assert.True(t, ParseAmount("").IsZero())
}
