package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/mkoivisto/bankdash/internal/obp"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously re-sync at an interval",
		Long: "Runs sync cycles until interrupted. The config file is watched;\n" +
			"edits are picked up without restarting.",
		RunE: runWatch,
	}

	cmd.Flags().StringP("bank", "b", "", "bank ID to select (default: previous or first)")
	cmd.Flags().Int("interval", 0, "seconds between sync cycles (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bank, _ := cmd.Flags().GetString("bank")
	if bank == "" {
		bank = resolvedCfg.Config.Sync.DefaultBank
	}

	interval := watchInterval(cmd)

	a, err := buildApp(ctx, logger, nil)
	if err != nil {
		return err
	}
	// a is swapped on config reload; close whichever instance is current.
	defer func() { a.Close() }()

	res, err := runSyncCycle(ctx, a, bank, false)
	if err != nil {
		return err
	}

	printResultText(res)

	watcher := watchConfigFile(logger)
	if watcher != nil {
		defer watcher.Close()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statusf("\nWatching; syncing every %s. Ctrl-C to stop.\n", interval)

	for {
		select {
		case <-ctx.Done():
			statusf("Stopped.\n")
			return nil

		case <-ticker.C:
			res, err := a.orch.Sync(ctx, bank)
			if err != nil {
				if errors.Is(err, obp.ErrNotAuthenticated) {
					return fmt.Errorf("session expired — run 'bankdash login' again")
				}

				logger.Warn("sync cycle failed, keeping previous data",
					"error", err.Error(),
				)

				continue
			}

			statusf("[%s] %s: %d accounts, %d transactions, total %s\n",
				time.Now().Format("15:04:05"), res.SelectedBank,
				len(res.Accounts), len(res.Transactions), res.FormattedTotal)

		case ev, ok := <-watcher.EventsChan():
			if !ok {
				continue
			}

			if ev.Name != resolvedCfg.ConfigPath || (!ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create)) {
				continue
			}

			newApp, newInterval, err := reloadApp(ctx, cmd)
			if err != nil {
				logger.Warn("config reload failed, keeping previous configuration",
					"error", err.Error(),
				)

				continue
			}

			a.Close()
			a = newApp

			if newInterval != interval {
				interval = newInterval
				ticker.Reset(interval)
			}

			logger.Info("configuration reloaded", "path", resolvedCfg.ConfigPath)

		case werr, ok := <-watcher.ErrorsChan():
			if ok && werr != nil {
				logger.Warn("config watcher error", "error", werr.Error())
			}
		}
	}
}

// watchInterval resolves the sync interval from the flag or config,
// clamped to at least one second.
func watchInterval(cmd *cobra.Command) time.Duration {
	seconds, _ := cmd.Flags().GetInt("interval")
	if seconds <= 0 {
		seconds = resolvedCfg.Config.Sync.IntervalSeconds
	}

	if seconds <= 0 {
		seconds = 1
	}

	return time.Duration(seconds) * time.Second
}

// configWatcher wraps fsnotify so a failed watcher setup degrades to nil
// channels, which block forever in the select loop instead of panicking.
type configWatcher struct {
	w *fsnotify.Watcher
}

func (cw *configWatcher) EventsChan() chan fsnotify.Event {
	if cw == nil {
		return nil
	}

	return cw.w.Events
}

func (cw *configWatcher) ErrorsChan() chan error {
	if cw == nil {
		return nil
	}

	return cw.w.Errors
}

func (cw *configWatcher) Close() error {
	if cw == nil {
		return nil
	}

	return cw.w.Close()
}

// watchConfigFile watches the directory containing the config file. Editors
// replace files atomically, so watching the file itself would lose the watch
// on the first save.
func watchConfigFile(logger *slog.Logger) *configWatcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("creating config watcher failed, live reload disabled",
			"error", err.Error(),
		)

		return nil
	}

	if err := w.Add(filepath.Dir(resolvedCfg.ConfigPath)); err != nil {
		logger.Warn("watching config directory failed, live reload disabled",
			"path", filepath.Dir(resolvedCfg.ConfigPath),
			"error", err.Error(),
		)

		_ = w.Close()

		return nil
	}

	return &configWatcher{w: w}
}

// reloadApp re-resolves configuration and rebuilds the object graph with a
// logger reflecting the new log level.
func reloadApp(ctx context.Context, cmd *cobra.Command) (*app, time.Duration, error) {
	if err := loadConfig(); err != nil {
		return nil, 0, err
	}

	a, err := buildApp(ctx, buildLogger(), nil)
	if err != nil {
		return nil, 0, err
	}

	return a, watchInterval(cmd), nil
}
