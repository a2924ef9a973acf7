package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkoivisto/bankdash/internal/session"
	bdsync "github.com/mkoivisto/bankdash/internal/sync"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch banks, accounts, and transactions and print an overview",
		RunE:  runSync,
	}

	cmd.Flags().StringP("bank", "b", "", "bank ID to select (default: previous or first)")
	cmd.Flags().BoolP("refresh", "r", false, "invalidate the cache and refetch everything")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	bank, _ := cmd.Flags().GetString("bank")
	if bank == "" {
		bank = resolvedCfg.Config.Sync.DefaultBank
	}

	refresh, _ := cmd.Flags().GetBool("refresh")

	var onProgress bdsync.ProgressFunc
	if !flagJSON && !flagQuiet {
		onProgress = printProgress
	}

	a, err := buildApp(ctx, logger, onProgress)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := runSyncCycle(ctx, a, bank, refresh)
	if err != nil {
		return err
	}

	if flagJSON {
		return printResultJSON(res)
	}

	printResultText(res)

	return nil
}

// runSyncCycle establishes the session and runs the pipeline. Initialize
// performs the first cycle; a bank hint or forced refresh runs a second one,
// which is cheap because the first cycle primed the cache.
func runSyncCycle(ctx context.Context, a *app, bank string, refresh bool) (*bdsync.Result, error) {
	res, err := a.controller.Initialize(ctx)
	if err != nil {
		if errors.Is(err, session.ErrLoginRequired) {
			return nil, fmt.Errorf("not logged in — run 'bankdash login' first")
		}

		return nil, err
	}

	switch {
	case refresh:
		res, err = a.orch.ForceRefresh(ctx, bank)
	case bank != "" && bank != res.SelectedBank:
		res, err = a.orch.Sync(ctx, bank)
	}

	if err != nil {
		return nil, fmt.Errorf("sync failed: %w", err)
	}

	return res, nil
}

// printProgress renders pipeline progress to stderr.
func printProgress(p bdsync.Progress) {
	switch p.Phase {
	case bdsync.PhaseStart:
		statusf("Syncing %s...\n", p.Stage)
	case bdsync.PhaseProgress:
		statusf("  %s %d/%d\n", p.Stage, p.CompletedUnits, p.TotalUnits)
	case bdsync.PhaseComplete:
		statusf("Synced %s.\n", p.Stage)
	}
}
