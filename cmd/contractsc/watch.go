package main

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/x52dev/contracts/internal/rewrite"
)

// debounceWindow collapses editor save bursts into a single regeneration.
const debounceWindow = 300 * time.Millisecond

func newWatchCmd(root *rootFlags) *cobra.Command {
	genFlags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the overlay whenever project sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, genFlags)
		},
	}

	cmd.Flags().StringVar(&genFlags.config, "config", "", "config file (default <module root>/"+configName+")")
	cmd.Flags().BoolVar(&genFlags.disableAll, "disable-all", false, "disable every contract except test-mode ones")
	cmd.Flags().BoolVar(&genFlags.forceDebug, "force-debug", false, "demote always-checked contracts to debug mode")
	cmd.Flags().BoolVar(&genFlags.forceLogOnly, "force-log-only", false, "turn contract violations into error logs")

	return cmd
}

func runWatch(cmd *cobra.Command, root *rootFlags, genFlags *generateFlags) error {
	dir, _, err := moduleRoot(root.root)
	if err != nil {
		return err
	}

	if _, err := runGenerate(root, genFlags); err != nil {
		// An annotation error should not kill the watch loop; the user is
		// likely already mid-edit fixing it.
		slog.Error("initial generation failed", "err", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs, err := rewrite.ProjectDirs(dir)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return err
		}
	}
	slog.Info("watching for changes", "dirs", len(dirs))

	var debounce *time.Timer
	regen := make(chan struct{}, 1)

	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !rewrite.IsSourceFile(filepath.Base(ev.Name)) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("source changed", "file", ev.Name, "op", ev.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case regen <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch error", "err", err)

		case <-regen:
			if _, err := runGenerate(root, genFlags); err != nil {
				slog.Error("regeneration failed", "err", err)
			}
		}
	}
}
