// Command worker runs the recurring-transaction scheduler outside the API process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"walletwise/internal/config"
	"walletwise/internal/database"
	"walletwise/internal/logger"
	"walletwise/internal/notify"
	"walletwise/internal/scheduler"
	"walletwise/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Worker error: %v", err)
	}
}

func run() error {
	log := logger.Named("worker")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	sink := notify.Open(cfg.AMQPURL, cfg.AMQPExchange, logger.Named("notify"))
	defer sink.Close()

	materializer := services.NewMaterializer(
		dbManager.DB(),
		services.NewBudgetTracker(),
		sink,
		cfg.RecurringWorkers,
		logger.Named("engine"),
	)
	sched := scheduler.New(materializer, cfg.RecurringInterval, cfg.Location(), log)

	log.Infow("Starting recurring worker",
		"interval", cfg.RecurringInterval,
		"workers", cfg.RecurringWorkers,
		"timezone", cfg.BusinessTimezone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	<-ctx.Done()

	log.Info("Shutting down recurring worker...")
	sched.Stop()
	log.Info("Recurring worker stopped")
	return nil
}
