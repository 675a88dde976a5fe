// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nvyx0/drifter-cli/internal/browser"
	"github.com/nvyx0/drifter-cli/internal/config"
	"github.com/nvyx0/drifter-cli/internal/identity"
	"github.com/nvyx0/drifter-cli/internal/llmclient"
	"github.com/nvyx0/drifter-cli/internal/netrotate"
	"github.com/nvyx0/drifter-cli/internal/observability"
	"github.com/nvyx0/drifter-cli/internal/orchestrator"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs one browsing session per stored account",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line flags override
			// values from the config file and environment.
			if err := viper.BindPFlag("simulation.max_actions", cmd.Flags().Lookup("max-actions")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("vpn.enabled", cmd.Flags().Lookup("rotate-vpn")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from Execute (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			orch, err := initializeRunComponents(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}

			if err := orch.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Run aborted by user signal.")
					return fmt.Errorf("run aborted by user signal")
				}
				return err
			}

			fmt.Println("\nRun complete.")
			return nil
		},
	}

	runCmd.Flags().Int("max-actions", 0, "Maximum interactions per account session. (Overrides config/env)")
	runCmd.Flags().Bool("headless", false, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().Bool("rotate-vpn", false, "Rotate egress via the NordVPN CLI between sessions. (Overrides config/env)")

	return runCmd
}

// initializeRunComponents handles dependency injection for the run command.
func initializeRunComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	source, err := identity.NewSource(cfg.Identity.TokensFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth tokens: %w", err)
	}

	store, err := identity.NewStore(cfg.Identity.StoreFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	client, err := llmclient.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}
	prompts := llmclient.NewPromptBuilder(cfg.LLM.PromptFile, logger)
	composer := llmclient.NewReplyComposer(client, prompts, logger)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rotator := netrotate.NewRotator(cfg.VPN, nil, logger)
	browsers := browser.NewManager(cfg.Browser, rng, logger)

	return orchestrator.New(cfg, source, store, rotator, browsers, composer, rng, logger), nil
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
