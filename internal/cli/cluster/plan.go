package cluster

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/env"
	"ekscd/internal/logging"
	"ekscd/internal/manifest"
	"ekscd/internal/provision"
)

var planParams struct {
	Watch    bool
	Debounce time.Duration
	Verbose  bool
}

var planCmd = &cobra.Command{
	Use:   "plan [flags]",
	Short: "Show what apply would create, update or delete",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !planParams.Watch {
			return runPlan(cmd.Context())
		}
		return watchPlan(cmd.Context())
	},
}

func runPlan(ctx context.Context) error {
	ws, err := workspace.Load()
	if err != nil {
		logging.UserFailure("Plan failed!")
		return err
	}
	plan, err := provision.Plan(ctx, ws.Stack, ws.Environment.Parallelism)
	if err != nil {
		logging.UserFailure("Plan failed!")
		return err
	}
	workspace.PrintPlan(plan, planParams.Verbose)
	return nil
}

// watchPlan re-plans whenever the manifest file is written, until ctx is done.
func watchPlan(ctx context.Context) error {
	path := env.Config.Manifest
	if path == "" {
		path = manifest.DefaultPath
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer func() {
		_ = watcher.Close()
	}()
	// editors replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watching %s", filepath.Dir(path))
	}

	if err := runPlan(ctx); err != nil {
		logging.UserWarning("%s", err)
	}
	logging.UserProgress("Watching %s for changes (Ctrl+C to stop)", path)

	var debounce *time.Timer
	replan := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(planParams.Debounce, func() {
				select {
				case replan <- struct{}{}:
				default:
				}
			})
		case <-replan:
			logging.UserProgress("\n[%s] %s changed, planning ...", time.Now().Format("15:04:05"), filepath.Base(path))
			if err := runPlan(ctx); err != nil {
				logging.UserWarning("%s", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watch error")
		case <-ctx.Done():
			return nil
		}
	}
}

func init() {
	planCmd.Flags().BoolVarP(&planParams.Watch, "watch", "w", false, "Plan again every time the manifest changes")
	planCmd.Flags().DurationVar(&planParams.Debounce, "debounce", 500*time.Millisecond, "Wait this long after the last change before planning")
	planCmd.Flags().BoolVarP(&planParams.Verbose, "verbose", "v", false, "Also list resources without changes")
}
