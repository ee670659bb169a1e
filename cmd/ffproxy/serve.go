package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	appgrpc "github.com/spounge-ai/ffproxy/internal/app/grpc"
	apphttp "github.com/spounge-ai/ffproxy/internal/app/http"
	"github.com/spounge-ai/ffproxy/pkg/patterns/lifecycle"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the token refresher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	deps, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg, logger := deps.Config, deps.Logger

	router := apphttp.NewRouter(cfg.Server, deps.Service, deps.Classifier, logger)
	httpSrv, port, err := apphttp.New(cfg.Server, router, logger)
	if err != nil {
		return err
	}

	// Refresher first so the token cache is warm before traffic arrives.
	resources := []lifecycle.ManagedResource{deps.Refresher, httpSrv}

	if cfg.Server.GRPCHealthPort > 0 {
		healthSrv, healthPort, err := appgrpc.New(cfg.Server.GRPCHealthPort, deps.Refresher, logger)
		if err != nil {
			return err
		}
		resources = append(resources, healthSrv)
		logger.Info("gRPC health endpoint configured", "port", healthPort)
	}

	logger.Info("starting application resources",
		"mode", cfg.Server.Mode,
		"version", cfg.ServiceVersion,
		"commit", cfg.BuildCommit,
	)
	started := 0
	for _, r := range resources {
		if err := r.Start(ctx); err != nil {
			logger.Error("error starting resource", "error", err)
			stopAll(logger, resources[:started])
			return fmt.Errorf("failed to start: %w", err)
		}
		started++
	}
	logger.Info("application started successfully", "port", port)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	var runErr error
	select {
	case s := <-signalChan:
		logger.Info("received shutdown signal", "signal", s.String())
	case err := <-httpSrv.Errors():
		runErr = err
	case <-ctx.Done():
		logger.Info("context cancelled, initiating shutdown")
	}

	stopAll(logger, resources)
	return runErr
}

// stopAll stops resources in reverse start order.
func stopAll(log *slog.Logger, resources []lifecycle.ManagedResource) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("shutting down application resources")
	for i := len(resources) - 1; i >= 0; i-- {
		if err := resources[i].Stop(shutdownCtx); err != nil {
			log.Error("error stopping resource", "error", err)
		}
	}
	log.Info("shutdown complete")
}
