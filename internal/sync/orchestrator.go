package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	gosync "sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/mkoivisto/bankdash/internal/cache"
	"github.com/mkoivisto/bankdash/internal/obp"
	"github.com/mkoivisto/bankdash/internal/records"
)

// accountsPlaceholderUnits is the a-priori unit count reported at the start
// of the accounts stage, before the true count is known.
const accountsPlaceholderUnits = 1

// defaultMinRefreshInterval bounds how often a forced refresh may invalidate
// the cache. Repeated manual retries inside the window serve cached data.
const defaultMinRefreshInterval = 30 * time.Second

// savingsGoalRatio scales a savings account's balance into its growth goal.
var savingsGoalRatio = decimal.NewFromFloat(1.5)

// Gateway is the authenticated request surface the orchestrator fetches
// through. Implemented by *obp.Client; stubs are used in tests.
type Gateway interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Endpoints() obp.Endpoints
}

// Config holds the collaborators an Orchestrator needs.
type Config struct {
	Gateway    Gateway
	Cache      cache.Store
	State      obp.SessionState
	Logger     *slog.Logger
	OnProgress ProgressFunc

	// MinRefreshInterval overrides the forced-refresh rate limit.
	// Zero uses the default.
	MinRefreshInterval time.Duration
}

// Orchestrator runs the banks → accounts → transactions pipeline. Concurrent
// Sync calls are collapsed into one in-flight cycle whose result all callers
// share.
type Orchestrator struct {
	gw         Gateway
	cache      cache.Store
	state      obp.SessionState
	logger     *slog.Logger
	onProgress ProgressFunc
	group      singleflight.Group
	minRefresh time.Duration

	mu            gosync.Mutex
	last          *Result
	selectedBank  string
	authenticated bool
	lastRefresh   time.Time

	// nowFunc returns the current time. Tests override this.
	nowFunc func() time.Time
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	minRefresh := cfg.MinRefreshInterval
	if minRefresh <= 0 {
		minRefresh = defaultMinRefreshInterval
	}

	return &Orchestrator{
		gw:         cfg.Gateway,
		cache:      cfg.Cache,
		state:      cfg.State,
		logger:     logger,
		onProgress: cfg.OnProgress,
		minRefresh: minRefresh,
		nowFunc:    time.Now,
	}
}

// Sync runs one pipeline cycle. bankHint selects the active bank; empty
// falls back to the previously selected bank, then the first in the list.
// Overlapping calls share a single in-flight cycle (single-flight on "sync").
//
// An authentication failure clears the session store and surfaces
// obp.ErrNotAuthenticated so the caller can redirect to login. Any other
// failure leaves the previous result available via Last.
func (o *Orchestrator) Sync(ctx context.Context, bankHint string) (*Result, error) {
	v, err, _ := o.group.Do("sync", func() (any, error) {
		return o.syncOnce(ctx, bankHint)
	})
	if err != nil {
		return nil, err
	}

	return v.(*Result), nil
}

// Last returns the most recent successful result, or nil.
func (o *Orchestrator) Last() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.last
}

// Authenticated reports whether the last cycle completed against a valid
// session.
func (o *Orchestrator) Authenticated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.authenticated
}

// Reset drops all loaded data. Called on logout before credentials are
// cleared so consumers stop seeing authenticated data immediately.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.last = nil
	o.selectedBank = ""
	o.authenticated = false
}

// ForceRefresh invalidates the cache and re-syncs. Invalidation is
// rate-limited: within the refresh interval the cycle still runs but serves
// cached data.
func (o *Orchestrator) ForceRefresh(ctx context.Context, bankHint string) (*Result, error) {
	o.mu.Lock()
	now := o.nowFunc()
	allowed := now.Sub(o.lastRefresh) >= o.minRefresh

	if allowed {
		o.lastRefresh = now
	}
	o.mu.Unlock()

	if allowed {
		if err := o.cache.InvalidateAll(); err != nil {
			o.logger.Warn("cache invalidation failed, continuing with stale entries",
				slog.String("error", err.Error()),
			)
		}
	} else {
		o.logger.Debug("refresh rate-limited, serving cached data")
	}

	return o.Sync(ctx, bankHint)
}

// syncOnce executes one full cycle and updates the held state.
func (o *Orchestrator) syncOnce(ctx context.Context, bankHint string) (*Result, error) {
	res, err := o.run(ctx, bankHint)
	if err != nil {
		if errors.Is(err, obp.ErrNotAuthenticated) {
			o.logger.Warn("sync failed: session no longer authenticated")
			o.state.Clear()

			o.mu.Lock()
			o.authenticated = false
			o.mu.Unlock()

			return nil, err
		}

		// Non-auth failures keep previously loaded data in place so the
		// caller can show stale-but-available results.
		return nil, err
	}

	o.mu.Lock()
	o.last = res
	o.selectedBank = res.SelectedBank
	o.authenticated = true
	o.mu.Unlock()

	return res, nil
}

// run walks the three stages in order.
func (o *Orchestrator) run(ctx context.Context, bankHint string) (*Result, error) {
	selected, err := o.banksStage(ctx, bankHint)
	if err != nil {
		return nil, err
	}

	accounts, goals, total, currency, err := o.accountsStage(ctx, selected)
	if err != nil {
		return nil, err
	}

	transactions, err := o.transactionsStage(ctx, selected, accounts)
	if err != nil {
		return nil, err
	}

	return &Result{
		SelectedBank:   selected,
		Accounts:       accounts,
		Transactions:   transactions,
		Goals:          goals,
		TotalBalance:   total.StringFixed(2),
		FormattedTotal: formatTotal(total, currency),
		Currency:       currency,
	}, nil
}

// banksStage fetches the bank list and chooses the active bank.
func (o *Orchestrator) banksStage(ctx context.Context, bankHint string) (string, error) {
	o.emit(Progress{Stage: StageBanks, Phase: PhaseStart, TotalUnits: 1})

	payload, err := o.cache.GetOrFetch(ctx, cache.BanksKey(), func(ctx context.Context) ([]byte, error) {
		return o.gw.Get(ctx, o.gw.Endpoints().Banks)
	})
	if err != nil {
		return "", fmt.Errorf("sync: fetching banks: %w", err)
	}

	banks := obp.DecodeList[obp.Bank](payload, "banks", o.logger)
	if len(banks) == 0 {
		return "", ErrNoBanks
	}

	o.emit(Progress{Stage: StageBanks, Phase: PhaseComplete, TotalUnits: 1, CompletedUnits: 1})

	o.mu.Lock()
	previous := o.selectedBank
	o.mu.Unlock()

	return chooseBank(banks, bankHint, previous), nil
}

// chooseBank applies the selection precedence: hint, previously selected,
// first in list. A hint or previous selection no longer present falls
// through to the next rule.
func chooseBank(banks []obp.Bank, hint, previous string) string {
	for _, candidate := range []string{hint, previous} {
		if candidate == "" {
			continue
		}

		for _, b := range banks {
			if b.ID == candidate {
				return candidate
			}
		}
	}

	return banks[0].ID
}

// accountsStage fetches and transforms the active bank's accounts, computes
// the total balance, and derives goal suggestions.
func (o *Orchestrator) accountsStage(ctx context.Context, bankID string) (
	[]records.Account, []Goal, decimal.Decimal, string, error,
) {
	o.emit(Progress{Stage: StageAccounts, Phase: PhaseStart, TotalUnits: accountsPlaceholderUnits})

	fetch := func() ([]byte, error) {
		return o.cache.GetOrFetch(ctx, cache.AccountsKey(bankID), func(ctx context.Context) ([]byte, error) {
			return o.gw.Get(ctx, o.gw.Endpoints().Accounts(bankID))
		})
	}

	payload, err := fetch()
	if err != nil && errors.Is(err, obp.ErrNotAuthenticated) {
		// Application-level retry beyond the gateway's own recovery:
		// drop stale session markers and try the fetch once more.
		o.logger.Warn("account fetch unauthorized, retrying after clearing session state")
		o.state.Clear()

		payload, err = fetch()
	}

	if err != nil {
		return nil, nil, decimal.Zero, "", fmt.Errorf("sync: fetching accounts: %w", err)
	}

	rawAccounts := obp.DecodeList[obp.RawAccount](payload, "accounts", o.logger)
	if len(rawAccounts) == 0 {
		return nil, nil, decimal.Zero, "", ErrInvalidAccounts
	}

	accounts := records.Accounts(rawAccounts)

	total := decimal.Zero
	currency := ""

	for _, a := range accounts {
		total = total.Add(records.ParseAmount(a.Balance))

		if currency == "" && a.Currency != "" {
			currency = a.Currency
		}
	}

	o.emit(Progress{
		Stage:          StageAccounts,
		Phase:          PhaseComplete,
		TotalUnits:     len(accounts),
		CompletedUnits: len(accounts),
	})

	return accounts, deriveGoals(accounts), total, currency, nil
}

// deriveGoals suggests financial goals from the account types present:
// savings accounts get a growth goal at 1.5x the current balance, debt
// accounts a payoff goal at the current balance.
func deriveGoals(accounts []records.Account) []Goal {
	var goals []Goal

	for _, a := range accounts {
		bal := records.ParseAmount(a.Balance)

		switch a.Type {
		case records.TypeSavings:
			goals = append(goals, Goal{
				Name:    "Grow " + a.Label,
				Current: bal.StringFixed(2),
				Target:  bal.Mul(savingsGoalRatio).StringFixed(2),
			})
		case records.TypeDebt:
			goals = append(goals, Goal{
				Name:    "Pay off " + a.Label,
				Current: bal.StringFixed(2),
				Target:  bal.StringFixed(2),
			})
		}
	}

	return goals
}

// transactionsStage fetches every account's transactions sequentially so
// per-account progress ordering stays deterministic. A per-account failure
// is logged and treated as an empty result; it never aborts the cycle.
// Authentication failures are the exception: those bubble up and force a
// session reset.
func (o *Orchestrator) transactionsStage(ctx context.Context, bankID string, accounts []records.Account) ([]records.Transaction, error) {
	totalUnits := len(accounts)
	o.emit(Progress{Stage: StageTransactions, Phase: PhaseStart, TotalUnits: totalUnits})

	var all []records.Transaction

	for i, acct := range accounts {
		key := cache.TransactionsKey(bankID, acct.ID, acct.ViewID)

		path := o.gw.Endpoints().Transactions(bankID, acct.ID, acct.ViewID)

		payload, err := o.cache.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, error) {
			return o.gw.Get(ctx, path)
		})
		if err != nil {
			if errors.Is(err, obp.ErrNotAuthenticated) {
				return nil, fmt.Errorf("sync: fetching transactions for %s: %w", acct.ID, err)
			}

			o.logger.Warn("fetching transactions failed, continuing with empty result",
				slog.String("account", acct.ID),
				slog.String("error", err.Error()),
			)
		} else {
			raws := obp.DecodeList[obp.RawTransaction](payload, "transactions", o.logger)
			all = append(all, records.Transactions(raws)...)
		}

		o.emit(Progress{
			Stage:          StageTransactions,
			Phase:          PhaseProgress,
			TotalUnits:     totalUnits,
			CompletedUnits: i + 1,
		})
	}

	// Final aggregate is sorted by date descending regardless of fetch order.
	slices.SortStableFunc(all, func(a, b records.Transaction) int {
		return b.Date.Compare(a.Date)
	})

	o.emit(Progress{
		Stage:          StageTransactions,
		Phase:          PhaseComplete,
		TotalUnits:     totalUnits,
		CompletedUnits: totalUnits,
	})

	return all, nil
}

func (o *Orchestrator) emit(p Progress) {
	if o.onProgress != nil {
		o.onProgress(p)
	}
}
