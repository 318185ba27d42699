package main

import (
	"context"
	"time"

	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func newSweeper(repo *storage.SQLiteRepository, publisher *events.Publisher, logger *log.Logger) *worker.Sweeper {
	return worker.NewSweeper(repo, publisher, logger.Logger)
}

// runSweep runs one full pass: materialize due recurring templates, then
// raise bill reminders. Errors are logged, never fatal; the next tick
// retries.
func runSweep(ctx context.Context, s *worker.Sweeper, logger *log.Logger) {
	now := time.Now().UTC()

	created, err := s.Run(ctx, now)
	if err != nil {
		logger.Error("Recurring sweep failed", "error", err)
	} else {
		logger.Info("Recurring sweep complete", "transactions_created", created)
	}

	reminded, err := s.RemindBills(ctx, now)
	if err != nil {
		logger.Error("Bill reminder sweep failed", "error", err)
	} else {
		logger.Info("Bill reminder sweep complete", "reminders_raised", reminded)
	}
}
