package main

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/x52dev/contracts/internal/rewrite"
)

type generateFlags struct {
	config       string
	disableAll   bool
	forceDebug   bool
	forceLogOnly bool
}

func newGenerateCmd(root *rootFlags) *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Rewrite annotated declarations and emit the build overlay",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runGenerate(root, flags)
			return err
		},
	}

	cmd.Flags().StringVar(&flags.config, "config", "", "config file (default <module root>/"+configName+")")
	cmd.Flags().BoolVar(&flags.disableAll, "disable-all", false, "disable every contract except test-mode ones")
	cmd.Flags().BoolVar(&flags.forceDebug, "force-debug", false, "demote always-checked contracts to debug mode")
	cmd.Flags().BoolVar(&flags.forceLogOnly, "force-log-only", false, "turn contract violations into error logs")

	return cmd
}

// runGenerate resolves the module, merges config-file and flag overrides
// and runs the engine. It returns the engine so the watch command can
// rebuild on changes with identical settings.
func runGenerate(root *rootFlags, flags *generateFlags) (*rewrite.Engine, error) {
	dir, module, err := moduleRoot(root.root)
	if err != nil {
		return nil, err
	}
	slog.Info("generating contracts", "module", module, "dir", dir)

	cfgPath := flags.config
	if cfgPath == "" {
		cfgPath = filepath.Join(dir, configName)
	}
	opts, err := rewrite.LoadOptions(cfgPath)
	if err != nil {
		return nil, err
	}

	// Flags override the config file.
	override := rewrite.Options{
		DisableAll:   flags.disableAll,
		ForceDebug:   flags.forceDebug,
		ForceLogOnly: flags.forceLogOnly,
	}
	if err := override.Validate(); err != nil {
		return nil, err
	}
	if override != (rewrite.Options{}) {
		opts = override
	}

	eng := rewrite.NewEngine(dir, opts)
	if err := eng.Run(); err != nil {
		return eng, err
	}

	if len(eng.Overlay.Replace) == 0 {
		slog.Info("no contract directives found, nothing generated")
	} else {
		slog.Info("done", "rewritten", len(eng.Overlay.Replace),
			"overlay", filepath.Join(eng.CacheDir, rewrite.OverlayName))
	}
	return eng, nil
}
