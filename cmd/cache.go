package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mariusznazar/airdevs3-app/internal/mediacache"
	"github.com/mariusznazar/airdevs3-app/internal/observability"
)

// newCacheCmd groups cache maintenance commands.
func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manages the cached media analyses",
	}
	cacheCmd.AddCommand(newCacheClearCmd())
	return cacheCmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Removes all cached media analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			store, cleanup, err := newAnalysisStore(ctx, appConfig, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			// Only the store and the media directory are touched here, so no
			// fetcher or AI client is needed.
			cache := mediacache.New(store, nil, nil, appConfig.Cache.TTL, appConfig.Cache.Dir, logger)
			if err := cache.Clear(ctx); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared successfully")
			return nil
		},
	}
}
