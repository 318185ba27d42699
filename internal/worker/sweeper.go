package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

// Sweeper materializes due recurring templates into concrete transactions
// and raises bill reminders. It is the only writer of LastProcessed; the
// app server never touches that field.
type Sweeper struct {
	repo      *storage.SQLiteRepository
	publisher *events.Publisher
	logger    *slog.Logger
}

func NewSweeper(repo *storage.SQLiteRepository, publisher *events.Publisher, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{repo: repo, publisher: publisher, logger: logger}
}

// Run processes every due recurring template and returns how many
// transactions were created. A failure on one template does not stop
// the rest of the sweep.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (int, error) {
	templates, err := s.repo.ActiveRecurringTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load recurring templates: %w", err)
	}

	created := 0
	for _, owned := range templates {
		if !due(owned.Template, now) {
			continue
		}

		t := core.Transaction{
			ID:             core.NewID(),
			Type:           owned.Template.Type,
			Category:       owned.Template.Category,
			Amount:         owned.Template.Amount,
			Description:    owned.Template.Description,
			Date:           now,
			IsAutoImported: true,
		}
		if err := s.repo.CreateTransaction(ctx, owned.UserID, t); err != nil {
			s.logger.ErrorContext(ctx, "Failed to create recurring transaction",
				"template_id", owned.Template.ID, "user_id", owned.UserID, "error", err)
			continue
		}
		if err := s.repo.MarkRecurringProcessed(ctx, owned.UserID, owned.Template.ID, now); err != nil {
			s.logger.ErrorContext(ctx, "Failed to mark template processed",
				"template_id", owned.Template.ID, "user_id", owned.UserID, "error", err)
			continue
		}

		s.notify(ctx, owned.UserID, core.Notification{
			ID:        core.NewID(),
			Type:      core.NotifyRecurring,
			Title:     "Recurring transaction added",
			Message:   fmt.Sprintf("%s (%.2f) was added automatically.", owned.Template.Description, owned.Template.Amount),
			CreatedAt: now,
		})

		created++
		s.logger.InfoContext(ctx, "Created recurring transaction",
			"template_id", owned.Template.ID, "user_id", owned.UserID, "transaction_id", t.ID)
	}
	return created, nil
}

// RemindBills raises a reminder for every unpaid bill whose reminder
// window opens today.
func (s *Sweeper) RemindBills(ctx context.Context, now time.Time) (int, error) {
	bills, err := s.repo.BillsEnteringReminder(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load bills entering reminder: %w", err)
	}

	reminded := 0
	for _, owned := range bills {
		s.notify(ctx, owned.UserID, core.Notification{
			ID:    core.NewID(),
			Type:  core.NotifyBillDue,
			Title: fmt.Sprintf("%s due soon", owned.Bill.Name),
			Message: fmt.Sprintf("%s (%.2f) is due on %s.",
				owned.Bill.Name, owned.Bill.Amount, owned.Bill.DueDate.Format("2 Jan 2006")),
			CreatedAt: now,
		})
		reminded++
	}
	return reminded, nil
}

func (s *Sweeper) notify(ctx context.Context, userID string, n core.Notification) {
	if err := s.repo.CreateNotification(ctx, userID, n); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create notification",
			"user_id", userID, "type", string(n.Type), "error", err)
		return
	}
	if err := s.publisher.PublishNotification(ctx, events.NewNotificationEvent(userID, n)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish notification event",
			"user_id", userID, "notification_id", n.ID, "error", err)
	}
}

// due reports whether a template should produce a transaction at now.
// A never-processed template is due as soon as its start date passes.
func due(rt core.RecurringTransaction, now time.Time) bool {
	if !rt.IsActive || rt.StartDate.After(now) {
		return false
	}
	if rt.LastProcessed == nil {
		return true
	}
	return !nextOccurrence(*rt.LastProcessed, rt.Frequency).After(now)
}

func nextOccurrence(after time.Time, freq core.Frequency) time.Time {
	switch freq {
	case core.Daily:
		return after.AddDate(0, 0, 1)
	case core.Weekly:
		return after.AddDate(0, 0, 7)
	case core.Monthly:
		return after.AddDate(0, 1, 0)
	default:
		// Unknown frequencies never come due.
		return after.AddDate(100, 0, 0)
	}
}
