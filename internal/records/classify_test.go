package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"Coffee Shop", "food"},
		{"TESCO SUPERMARKET", "food"},
		{"Uber Trip", "transport"},
		{"Shell Petrol Station", "transport"},
		{"Electric Company", "bills"},
		{"Netflix Subscription", "bills"},
		{"Amazon Marketplace", "shopping"},
		{"Odeon Cinema", "entertainment"},
		{"City Gym Membership", "health"},
		{"ACME Payroll", "income"},
		{"Monthly Salary", "income"},
		{"Wire Transfer Ref 9912", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.description))
		})
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	// "Airport Cafe" matches both food and transport; food is listed first.
	assert.Equal(t, "food", Classify("Airport Cafe"))

	// "Hospital Pharmacy" matches shopping before health in rule order.
	assert.Equal(t, "shopping", Classify("Hospital Pharmacy"))
}

func TestClassify_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Classify("uber"), Classify("UBER"))
	assert.Equal(t, "food", Classify("cOfFeE hOuSe"))
}
