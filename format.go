package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mkoivisto/bankdash/internal/records"
	bdsync "github.com/mkoivisto/bankdash/internal/sync"
)

// recentTransactionLimit caps the transactions shown in the text overview.
// The full list is always available via --json.
const recentTransactionLimit = 10

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// syncOutput is the JSON schema for `sync --json`.
type syncOutput struct {
	SelectedBank   string              `json:"selected_bank"`
	TotalBalance   string              `json:"total_balance"`
	FormattedTotal string              `json:"formatted_total"`
	Currency       string              `json:"currency"`
	Accounts       []accountOutput     `json:"accounts"`
	Goals          []goalOutput        `json:"goals"`
	Transactions   []transactionOutput `json:"transactions"`
}

type accountOutput struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

type goalOutput struct {
	Name    string `json:"name"`
	Current string `json:"current"`
	Target  string `json:"target"`
}

type transactionOutput struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

func printResultJSON(res *bdsync.Result) error {
	out := syncOutput{
		SelectedBank:   res.SelectedBank,
		TotalBalance:   res.TotalBalance,
		FormattedTotal: res.FormattedTotal,
		Currency:       res.Currency,
		Accounts:       make([]accountOutput, 0, len(res.Accounts)),
		Goals:          make([]goalOutput, 0, len(res.Goals)),
		Transactions:   make([]transactionOutput, 0, len(res.Transactions)),
	}

	for _, a := range res.Accounts {
		out.Accounts = append(out.Accounts, accountOutput{
			ID:       a.ID,
			Label:    a.Label,
			Type:     string(a.Type),
			Balance:  a.Balance,
			Currency: a.Currency,
		})
	}

	for _, g := range res.Goals {
		out.Goals = append(out.Goals, goalOutput{Name: g.Name, Current: g.Current, Target: g.Target})
	}

	for _, t := range res.Transactions {
		out.Transactions = append(out.Transactions, transactionOutput{
			ID:          t.ID,
			Description: t.Description,
			Category:    t.Category,
			Direction:   string(t.Direction),
			Amount:      t.Amount,
			Date:        t.DisplayTime,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printResultText(res *bdsync.Result) {
	fmt.Printf("Bank: %s\n\n", res.SelectedBank)

	rows := make([][]string, 0, len(res.Accounts))
	for _, a := range res.Accounts {
		rows = append(rows, []string{a.Label, string(a.Type), a.Balance + " " + a.Currency})
	}

	printTable(os.Stdout, []string{"ACCOUNT", "TYPE", "BALANCE"}, rows)
	fmt.Printf("\nTotal: %s\n", res.FormattedTotal)

	if len(res.Goals) > 0 {
		fmt.Println("\nGoals:")

		for _, g := range res.Goals {
			fmt.Printf("  %s: %s / %s\n", g.Name, g.Current, g.Target)
		}
	}

	if len(res.Transactions) > 0 {
		fmt.Println("\nRecent transactions:")
		printTransactions(os.Stdout, res.Transactions)
	}
}

func printTransactions(w io.Writer, txs []records.Transaction) {
	if len(txs) > recentTransactionLimit {
		txs = txs[:recentTransactionLimit]
	}

	rows := make([][]string, 0, len(txs))

	for _, t := range txs {
		amount := t.Amount
		if t.Direction == records.Outgoing {
			amount = "-" + amount
		}

		rows = append(rows, []string{t.DisplayTime, t.Description, t.Category, amount})
	}

	printTable(w, []string{"DATE", "DESCRIPTION", "CATEGORY", "AMOUNT"}, rows)
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}
