package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cardaudit/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the LLM response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached Stage A and Stage B result",
	Long: `Clear empties the configured cache backend. Prefer bumping a stage's
prompt_version when only one stage's results should be recomputed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cfg.Cache.Enabled {
			return fmt.Errorf("cache is disabled")
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		c, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer func() { _ = c.Close() }()

		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Printf("✓ Cleared %s cache\n", cacheLabel(true, cfg.Cache.Backend))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
