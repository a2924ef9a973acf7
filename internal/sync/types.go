// Package sync implements the data-synchronization orchestrator: a linear
// pipeline over banks, accounts, and transactions with progress reporting,
// partial-failure tolerance, and a single-flight guard against overlapping
// invocations.
package sync

import (
	"errors"

	"github.com/mkoivisto/bankdash/internal/records"
)

// Stage identifies a pipeline stage. Stages execute strictly in order:
// banks, accounts, transactions.
type Stage string

const (
	StageBanks        Stage = "banks"
	StageAccounts     Stage = "accounts"
	StageTransactions Stage = "transactions"
)

// Phase is the position within a stage a progress event reports.
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseProgress Phase = "progress"
	PhaseComplete Phase = "complete"
)

// Progress is an ephemeral event broadcast to the presentation layer.
// Within a stage, CompletedUnits is monotonically increasing.
type Progress struct {
	Stage          Stage
	Phase          Phase
	TotalUnits     int
	CompletedUnits int
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(Progress)

// Goal is a financial-goal suggestion derived heuristically from the account
// types present.
type Goal struct {
	Name    string
	Current string
	Target  string
}

// Result is the aggregate of one sync cycle. Replaced wholesale on every
// refresh; there is no incremental merge.
type Result struct {
	SelectedBank   string
	Accounts       []records.Account
	Transactions   []records.Transaction
	Goals          []Goal
	TotalBalance   string
	FormattedTotal string
	Currency       string
}

// Pipeline failure sentinels.
var (
	ErrNoBanks         = errors.New("sync: no banks available")
	ErrInvalidAccounts = errors.New("sync: invalid account data")
)
