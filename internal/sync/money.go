package sync

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// currencySymbols maps the ISO codes the upstream is known to serve to their
// display symbols. Unknown codes fall back to "CODE amount".
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// moneyPrinter renders grouped decimal numbers ("1,234.56").
var moneyPrinter = message.NewPrinter(language.English)

// formatTotal renders a total balance for display, e.g. "$1,234.56".
func formatTotal(total decimal.Decimal, currency string) string {
	f, _ := total.Float64()
	amount := moneyPrinter.Sprint(number.Decimal(f,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))

	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "USD"
	}

	if sym, ok := currencySymbols[code]; ok {
		return sym + amount
	}

	return code + " " + amount
}
