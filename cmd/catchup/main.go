// Command catchup triggers recurring materialization and budget repair on a
// running walletwise API through its pipeline endpoints.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"walletwise/internal/config"
	"walletwise/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(settings{
		APIURL:  cfg.APIURL,
		APIKey:  cfg.PipelineAPIKey,
		Timeout: cfg.RequestTimeout,
	}, os.Stdout)
	if err := executeContext(ctx, root, os.Args[1:]...); err != nil {
		stop()
		logger.Sync()
		os.Exit(1)
	}
}
