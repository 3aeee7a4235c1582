package cmd

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
	"github.com/mariusznazar/airdevs3-app/internal/centrala"
	"github.com/mariusznazar/airdevs3-app/internal/config"
	"github.com/mariusznazar/airdevs3-app/internal/graph"
	"github.com/mariusznazar/airdevs3-app/internal/observability"
)

// newConnectionsCmd builds the `connections` command: sync the social graph
// from the remote database, find the shortest path between two users and
// report it.
func newConnectionsCmd() *cobra.Command {
	connectionsCmd := &cobra.Command{
		Use:   "connections",
		Short: "Syncs the social graph and reports the shortest path between two users",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appConfig

			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			syncOnly, _ := cmd.Flags().GetBool("sync-only")

			client := centrala.New(cfg.Centrala, logger)
			backend, err := newGraphBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("Failed to close graph backend", zap.Error(err))
				}
			}()

			syncResult := graph.NewIndexer(client, backend, logger).Sync(ctx)
			if err := printJSON(cmd, syncResult); err != nil {
				return err
			}
			if syncResult.Status != schemas.SyncSuccess {
				return fmt.Errorf("graph sync failed: %s", syncResult.Message)
			}
			if syncOnly {
				return nil
			}

			pathResult := graph.NewPathFinder(backend, client, logger).Locate(ctx, from, to)
			if err := printJSON(cmd, pathResult); err != nil {
				return err
			}
			if pathResult.Status != schemas.SyncSuccess {
				return fmt.Errorf("path lookup failed: %s", pathResult.Message)
			}
			return nil
		},
	}

	connectionsCmd.Flags().String("from", "Rafał", "start user name")
	connectionsCmd.Flags().String("to", "Barbara", "end user name")
	connectionsCmd.Flags().Bool("sync-only", false, "rebuild the graph without a path lookup")
	return connectionsCmd
}

// newGraphBackend selects the configured graph backend.
func newGraphBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.SocialGraph, error) {
	switch cfg.Graph.Backend {
	case "memory":
		return graph.NewMemoryGraph(logger), nil
	default:
		return graph.NewNeo4jGraph(ctx, cfg.Graph.Neo4j, logger)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
