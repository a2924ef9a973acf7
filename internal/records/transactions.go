package records

import (
	"strings"
	"time"

	"github.com/mkoivisto/bankdash/internal/obp"
)

// Direction is the money flow of a transaction relative to the account.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// unknownDescription is the placeholder for transactions with no usable
// description or counterparty name.
const unknownDescription = "Unknown Transaction"

// displayTimeLayout renders the human timestamp shown next to a transaction.
const displayTimeLayout = "Jan 2, 2006 3:04 PM"

// Transaction is the display record for one transaction. Amount is the
// absolute value; Direction carries the sign.
type Transaction struct {
	ID          string
	Amount      string
	Direction   Direction
	Category    string
	Description string
	Date        time.Time
	DisplayTime string
}

// Transactions transforms raw transactions into display records.
func Transactions(raw []obp.RawTransaction) []Transaction {
	out := make([]Transaction, 0, len(raw))
	for i := range raw {
		out = append(out, transformTransaction(raw[i]))
	}

	return out
}

func transformTransaction(raw obp.RawTransaction) Transaction {
	desc := description(raw)
	amount := ParseAmount(raw.Details.Value.Amount)

	dir := Incoming
	if amount.IsNegative() {
		dir = Outgoing
	}

	t := Transaction{
		ID:          raw.ID,
		Amount:      amount.Abs().StringFixed(2),
		Direction:   dir,
		Category:    Classify(desc),
		Description: desc,
	}

	if ts, ok := parseTimestamp(raw.Details.Completed, raw.Details.Posted); ok {
		t.Date = ts
		t.DisplayTime = ts.Format(displayTimeLayout)
	}

	return t
}

// description picks the free text the classifier runs on: the upstream
// description, else the counterparty holder name, else a placeholder.
func description(raw obp.RawTransaction) string {
	if d := strings.TrimSpace(raw.Details.Description); d != "" {
		return d
	}

	if n := strings.TrimSpace(raw.OtherAccount.Holder.Name); n != "" {
		return n
	}

	return unknownDescription
}

// timestampLayouts are tried in order against the upstream timestamp fields.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses the first usable timestamp among the candidates.
func parseTimestamp(candidates ...string) (time.Time, bool) {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}

		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, c); err == nil {
				return ts, true
			}
		}
	}

	return time.Time{}, false
}
