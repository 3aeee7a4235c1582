package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
	"github.com/mariusznazar/airdevs3-app/internal/centrala"
	"github.com/mariusznazar/airdevs3-app/internal/config"
	"github.com/mariusznazar/airdevs3-app/internal/conversation"
	"github.com/mariusznazar/airdevs3-app/internal/llm"
	"github.com/mariusznazar/airdevs3-app/internal/mediacache"
	"github.com/mariusznazar/airdevs3-app/internal/observability"
)

// newPhotosCmd builds the `photos` command: run the multi-turn photo-repair
// conversation until the final description has been submitted or the round
// budget runs out.
func newPhotosCmd() *cobra.Command {
	photosCmd := &cobra.Command{
		Use:   "photos",
		Short: "Runs the photo-repair conversation and submits the final description",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appConfig

			maxRounds, _ := cmd.Flags().GetInt("max-rounds")
			clearFirst, _ := cmd.Flags().GetBool("clear-cache")

			orch, cleanup, err := newOrchestrator(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			return runPhotosLoop(ctx, cmd, orch, cfg.Conversation, maxRounds, clearFirst)
		},
	}

	photosCmd.Flags().Int("max-rounds", 10, "maximum conversation rounds before giving up")
	photosCmd.Flags().Bool("clear-cache", false, "clear cached analyses before starting")
	return photosCmd
}

// runPhotosLoop drives the conversation: process each remote message, execute
// the suggested commands and stop once the description has been submitted.
func runPhotosLoop(
	ctx context.Context,
	cmd *cobra.Command,
	orch *conversation.Orchestrator,
	cfg config.ConversationConfig,
	maxRounds int,
	clearFirst bool,
) error {
	logger := observability.GetLogger()

	if clearFirst {
		// Sweep the stored analyses before any session exists, so only one
		// opening answer reaches the remote party.
		if resp := orch.ClearCache(ctx, ""); resp.Status != schemas.StatusSuccess {
			return fmt.Errorf("clearing cache: %s", resp.Message)
		}
	}

	sessionID, start := orch.StartConversation(ctx)
	if start.Status != schemas.StatusSuccess {
		return fmt.Errorf("starting conversation: %s", start.Message)
	}

	message := start.Message
	for round := 1; round <= maxRounds; round++ {
		logger.Info("Conversation round", zap.Int("round", round))

		if err := pause(ctx, cfg.ProcessDelay); err != nil {
			return err
		}

		processed := orch.ProcessMessage(ctx, sessionID, message)
		if processed.Status != schemas.StatusSuccess {
			return fmt.Errorf("processing message: %s", processed.Message)
		}

		var nextMessage string
		for _, action := range processed.SuggestedActions {
			if action == "SUBMIT_DESCRIPTION" {
				return submitDescription(ctx, cmd, orch, sessionID, processed.Analysis)
			}

			resp := orch.SendCommand(ctx, sessionID, action)
			if resp.Status != schemas.StatusSuccess {
				logger.Warn("Command failed", zap.String("command", action), zap.String("message", resp.Message))
				continue
			}
			if resp.Message != "" {
				nextMessage = resp.Message
			}
		}

		if nextMessage == "" {
			// Nothing came back from the remote party; force a reanalysis
			// round so the conversation converges on a description.
			resp := orch.SendCommand(ctx, sessionID, "ANALYZE_ALL")
			if resp.Status != schemas.StatusSuccess {
				return fmt.Errorf("reanalysis failed: %s", resp.Message)
			}
			for _, action := range resp.SuggestedActions {
				if action == "SUBMIT_DESCRIPTION" {
					return submitDescription(ctx, cmd, orch, sessionID, resp.Analysis)
				}
			}
			nextMessage = strings.Join(resp.SuggestedActions, "\n")
		}
		message = nextMessage
	}

	return fmt.Errorf("conversation did not converge after %d rounds", maxRounds)
}

func submitDescription(ctx context.Context, cmd *cobra.Command, orch *conversation.Orchestrator, sessionID, description string) error {
	resp := orch.SendDescription(ctx, sessionID, description)
	if resp.Status != schemas.StatusSuccess {
		return fmt.Errorf("submitting description: %s", resp.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), description)
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}

// pause waits for the configured delay, aborting early when the context is
// canceled.
func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newOrchestrator wires the conversation stack from the configuration. The
// returned cleanup closes whatever the chosen backends opened.
func newOrchestrator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*conversation.Orchestrator, func(), error) {
	client := centrala.New(cfg.Centrala, logger)

	ai, err := llm.NewClient(cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}

	store, cleanup, err := newAnalysisStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cache := mediacache.New(store, client, ai, cfg.Cache.TTL, cfg.Cache.Dir, logger)
	orch := conversation.NewOrchestrator(
		client, ai, cache, client,
		conversation.NewMemorySessionStore(),
		cfg.Conversation, logger,
	)
	return orch, cleanup, nil
}

// newAnalysisStore selects the configured analysis store backend.
func newAnalysisStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (schemas.AnalysisStore, func(), error) {
	switch cfg.Cache.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to cache database: %w", err)
		}
		store, err := mediacache.NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return mediacache.NewMemoryStore(), func() {}, nil
	}
}
