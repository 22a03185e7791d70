package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/mod/modfile"
)

// configName is the default per-project config file, looked up relative to
// the module root when --config is not given.
const configName = "contracts.yaml"

type rootFlags struct {
	root    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "contractsc",
		Short:         "Compile-time contracts for Go",
		Long:          "contractsc rewrites functions annotated with //@pre, //@post and //@invariant directives into checked shadow files, wired into the build via go build -overlay.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flags.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&flags.root, "root", ".", "project directory to operate on")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newGenerateCmd(flags),
		newCleanCmd(flags),
		newWatchCmd(flags),
	)

	return cmd
}

// moduleRoot resolves the starting directory to the enclosing Go module:
// it walks upward until it finds a go.mod and returns its directory along
// with the declared module path.
func moduleRoot(start string) (dir, module string, err error) {
	dir, err = filepath.Abs(start)
	if err != nil {
		return "", "", err
	}
	for {
		gomod := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(gomod)
		if err == nil {
			mf, err := modfile.ParseLax(gomod, data, nil)
			if err != nil {
				return "", "", fmt.Errorf("parse %s: %w", gomod, err)
			}
			if mf.Module == nil {
				return "", "", fmt.Errorf("%s has no module directive", gomod)
			}
			return dir, mf.Module.Mod.Path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", fmt.Errorf("no go.mod found in %s or any parent directory", start)
		}
		dir = parent
	}
}
