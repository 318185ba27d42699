package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/events"
)

func main() {
	cfg, logger := cli.Bootstrap()

	logger.Info("Starting fintrack-worker")

	// The sweep writes recurring transactions directly; it needs the
	// durable gateway, not the in-memory one.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		var err error
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP broker, continuing without event fan-out", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
			logger.Info("Connected to AMQP broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	sweeper := newSweeper(repo, publisher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Deliver published notification events. This is where push or email
	// delivery would hang off; for now delivery is the log line.
	if publisher != nil {
		go func() {
			err := publisher.ConsumeNotifications(ctx, func(ev *events.NotificationEvent) error {
				logger.Info("Delivering notification",
					"user_id", ev.UserID,
					"notification_id", ev.NotificationID,
					"type", string(ev.Type),
					"title", ev.Title)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Notification consumer stopped", "error", err)
			}
		}()
	}

	logger.Info("Recurring sweep configured",
		"interval", cfg.SweepInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	runSweep(ctx, sweeper, logger)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSweep(ctx, sweeper, logger)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	logger.Info("fintrack-worker shutdown complete")
}
