package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stratalog/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Re-solve programs whenever they change",
	Long: `Watch solves each program, then watches the files and re-solves a
program from scratch on every write. Solving is never incremental; the
previous model is simply replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watchFiles(cmd.Context(), args)
	},
}

func watchFiles(ctx context.Context, files []string) error {
	log := logging.Get(logging.CategoryWatch)
	debounce, err := cfg.Watch.DebounceDuration()
	if err != nil {
		return err
	}
	timeout, err := cfg.Solver.SolveTimeoutDuration()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, file := range files {
		if err := watcher.Add(file); err != nil {
			return fmt.Errorf("watch %s: %w", file, err)
		}
	}

	solve := func(file string) {
		report, err := solveFile(ctx, file, timeout)
		if err != nil {
			fmt.Printf("# %s: error: %v\n", file, err)
			return
		}
		fmt.Print(report)
	}

	for _, file := range files {
		solve(file)
	}

	// Editors fire bursts of writes; coalesce them per file before
	// re-solving.
	pending := make(map[string]*time.Timer)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			log.Debug("file changed", zap.String("file", ev.Name))
			file := ev.Name
			if t, ok := pending[file]; ok {
				t.Stop()
			}
			pending[file] = time.AfterFunc(debounce, func() {
				solve(file)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
