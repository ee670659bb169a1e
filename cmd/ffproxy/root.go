package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	infra_config "github.com/spounge-ai/ffproxy/internal/infra/config"
	"github.com/spounge-ai/ffproxy/internal/wiring"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ffproxy",
	Short: "Player-account lookup proxy",
	Long: `ffproxy resolves player accounts against the regional game servers.
It keeps one bearer token per region, encrypts each lookup with the protocol
cipher and walks a fallback list of regions when no region is pinned.

Running without a subcommand starts the HTTP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("FFPROXY_CONFIG_PATH"),
		"path to the YAML config file (env FFPROXY_CONFIG_PATH)")
}

// bootstrap loads configuration and builds the dependency graph shared by
// every subcommand.
func bootstrap(ctx context.Context) (*wiring.Dependencies, error) {
	cfg, err := infra_config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := wiring.NewLogger(cfg.Log.Level)
	deps, err := wiring.ProvideDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build dependencies", "error", err)
		return nil, err
	}
	return deps, nil
}
