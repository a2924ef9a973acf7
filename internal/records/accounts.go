// Package records transforms raw upstream banking records into display
// records. Transformation never fails: any malformed element is downgraded
// to a best-effort default record rather than aborting the batch.
package records

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mkoivisto/bankdash/internal/obp"
)

// AccountType classifies an account for display and goal heuristics.
type AccountType string

const (
	TypeSavings    AccountType = "savings"
	TypeChecking   AccountType = "checking"
	TypeInvestment AccountType = "investment"
	TypeDebt       AccountType = "debt"
)

// defaultViewID is the view used to read transactions when no owner view is
// advertised on the account.
const defaultViewID = "owner"

// Account is the display record for one account.
type Account struct {
	ID       string
	Label    string
	Balance  string // decimal string, two fraction digits
	Currency string
	Type     AccountType
	ViewID   string
}

// Accounts transforms raw accounts into display records.
func Accounts(raw []obp.RawAccount) []Account {
	out := make([]Account, 0, len(raw))
	for i := range raw {
		out = append(out, transformAccount(raw[i]))
	}

	return out
}

func transformAccount(raw obp.RawAccount) Account {
	label := strings.TrimSpace(raw.Label)
	if label == "" {
		label = "Account " + raw.ID
	}

	return Account{
		ID:       raw.ID,
		Label:    label,
		Balance:  safeAmount(raw.Balance.Amount),
		Currency: raw.Balance.Currency,
		Type:     accountType(raw.Type, label),
		ViewID:   viewID(raw.ViewsAvailable),
	}
}

// safeAmount parses a decimal string, degrading to "0.00" on anything
// unparsable. A bad balance must never abort a sync.
func safeAmount(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "0.00"
	}

	return d.StringFixed(2)
}

// ParseAmount returns the decimal value of an upstream amount string,
// treating unparsable input as zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}

	return d
}

// accountType derives the classification from the upstream type field and
// the display label. Ordered checks: the first match wins.
func accountType(rawType, label string) AccountType {
	probe := strings.ToLower(rawType + " " + label)

	switch {
	case containsAny(probe, "savings", "saving", "deposit"):
		return TypeSavings
	case containsAny(probe, "loan", "debt", "credit", "mortgage", "overdraft"):
		return TypeDebt
	case containsAny(probe, "invest", "brokerage", "securities", "pension", "isa", "401k"):
		return TypeInvestment
	default:
		return TypeChecking
	}
}

// viewID picks the view used to authorize transaction reads: prefer a view
// whose ID contains "owner", else fall back to the default owner view.
func viewID(views []obp.RawView) string {
	for _, v := range views {
		if strings.Contains(strings.ToLower(v.ID), "owner") {
			return v.ID
		}
	}

	return defaultViewID
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// String implements fmt.Stringer for log output.
func (a Account) String() string {
	return fmt.Sprintf("%s (%s %s %s)", a.Label, a.Type, a.Balance, a.Currency)
}
