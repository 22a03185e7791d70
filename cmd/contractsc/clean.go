package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/x52dev/contracts/internal/rewrite"
)

func newCleanCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove generated shadow files and the overlay",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _, err := moduleRoot(root.root)
			if err != nil {
				return err
			}
			cacheDir := filepath.Join(dir, rewrite.CacheDirName)
			if err := os.RemoveAll(cacheDir); err != nil {
				return fmt.Errorf("remove %s: %w", cacheDir, err)
			}
			slog.Info("cache removed", "dir", cacheDir)
			return nil
		},
	}
}
