package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newTestSweeper(t *testing.T) (*Sweeper, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "sweep.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewSweeper(repo, nil, nil), repo
}

func seedUser(t *testing.T, repo *storage.SQLiteRepository, id string) {
	t.Helper()
	err := repo.CreateUser(context.Background(), core.User{
		ID:    id,
		Name:  "Test User",
		Email: id + "@example.com",
	}, "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		freq core.Frequency
		want time.Time
	}{
		{core.Daily, base.AddDate(0, 0, 1)},
		{core.Weekly, base.AddDate(0, 0, 7)},
		{core.Monthly, base.AddDate(0, 1, 0)},
	}
	for _, tt := range tests {
		if got := nextOccurrence(base, tt.freq); !got.Equal(tt.want) {
			t.Errorf("nextOccurrence(%s) = %v, want %v", tt.freq, got, tt.want)
		}
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	lastWeek := now.AddDate(0, 0, -7)

	tests := []struct {
		name string
		rt   core.RecurringTransaction
		want bool
	}{
		{
			name: "inactive template never due",
			rt:   core.RecurringTransaction{IsActive: false, StartDate: lastWeek},
			want: false,
		},
		{
			name: "start date in the future",
			rt:   core.RecurringTransaction{IsActive: true, StartDate: now.AddDate(0, 0, 1)},
			want: false,
		},
		{
			name: "never processed and started",
			rt:   core.RecurringTransaction{IsActive: true, StartDate: lastWeek, Frequency: core.Monthly},
			want: true,
		},
		{
			name: "daily processed yesterday",
			rt:   core.RecurringTransaction{IsActive: true, StartDate: lastWeek, Frequency: core.Daily, LastProcessed: &yesterday},
			want: true,
		},
		{
			name: "weekly processed yesterday",
			rt:   core.RecurringTransaction{IsActive: true, StartDate: lastWeek, Frequency: core.Weekly, LastProcessed: &yesterday},
			want: false,
		},
		{
			name: "weekly processed a week ago",
			rt:   core.RecurringTransaction{IsActive: true, StartDate: lastWeek.AddDate(0, -1, 0), Frequency: core.Weekly, LastProcessed: &lastWeek},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := due(tt.rt, now); got != tt.want {
				t.Errorf("due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunCreatesTransactionsOnce(t *testing.T) {
	s, repo := newTestSweeper(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")

	now := time.Now().UTC()
	err := repo.CreateRecurringTransaction(ctx, "u1", core.RecurringTransaction{
		ID:          "rt1",
		Type:        core.Expense,
		Category:    "Housing",
		Amount:      1200,
		Description: "Rent",
		Frequency:   core.Monthly,
		StartDate:   now.AddDate(0, -2, 0),
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("CreateRecurringTransaction: %v", err)
	}

	created, err := s.Run(ctx, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 1 {
		t.Fatalf("Run created = %d, want 1", created)
	}

	snap, err := repo.LoadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snap.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(snap.Transactions))
	}
	got := snap.Transactions[0]
	if !got.IsAutoImported {
		t.Error("generated transaction not marked auto-imported")
	}
	if got.Description != "Rent" || got.Amount != 1200 {
		t.Errorf("generated transaction = %+v", got)
	}
	if len(snap.RecurringTransactions) != 1 || snap.RecurringTransactions[0].LastProcessed == nil {
		t.Fatal("template LastProcessed not recorded")
	}
	if len(snap.Notifications) != 1 || snap.Notifications[0].Type != core.NotifyRecurring {
		t.Errorf("notifications = %+v, want one recurring notification", snap.Notifications)
	}

	// Monthly template was just processed, so an immediate rerun is a no-op.
	created, err = s.Run(ctx, now)
	if err != nil {
		t.Fatalf("Run again: %v", err)
	}
	if created != 0 {
		t.Errorf("second Run created = %d, want 0", created)
	}
}

func TestRunSkipsInactiveTemplates(t *testing.T) {
	s, repo := newTestSweeper(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")

	now := time.Now().UTC()
	err := repo.CreateRecurringTransaction(ctx, "u1", core.RecurringTransaction{
		ID:          "rt1",
		Type:        core.Expense,
		Category:    "Subscriptions",
		Amount:      15,
		Description: "Streaming",
		Frequency:   core.Daily,
		StartDate:   now.AddDate(0, 0, -3),
		IsActive:    false,
	})
	if err != nil {
		t.Fatalf("CreateRecurringTransaction: %v", err)
	}

	created, err := s.Run(ctx, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 0 {
		t.Errorf("Run created = %d, want 0", created)
	}
}

func TestRemindBills(t *testing.T) {
	s, repo := newTestSweeper(t)
	ctx := context.Background()
	seedUser(t, repo, "u1")

	now := time.Now().UTC()
	bills := []core.Bill{
		{ID: "b1", Name: "Electricity", Amount: 120, DueDate: now.AddDate(0, 0, 3), Frequency: core.BillMonthly, Category: "Utilities", ReminderDays: 3},
		{ID: "b2", Name: "Water", Amount: 40, DueDate: now.AddDate(0, 0, 10), Frequency: core.BillMonthly, Category: "Utilities", ReminderDays: 3},
	}
	for _, b := range bills {
		if err := repo.CreateBill(ctx, "u1", b); err != nil {
			t.Fatalf("CreateBill(%s): %v", b.ID, err)
		}
	}

	reminded, err := s.RemindBills(ctx, now)
	if err != nil {
		t.Fatalf("RemindBills: %v", err)
	}
	if reminded != 1 {
		t.Fatalf("reminded = %d, want 1 (only the bill entering its window)", reminded)
	}

	snap, err := repo.LoadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snap.Notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(snap.Notifications))
	}
	n := snap.Notifications[0]
	if n.Type != core.NotifyBillDue {
		t.Errorf("notification type = %s, want %s", n.Type, core.NotifyBillDue)
	}

	// A paid bill in the window raises nothing.
	if err := repo.MarkBillPaid(ctx, "u1", "b1"); err != nil {
		t.Fatalf("MarkBillPaid: %v", err)
	}
	reminded, err = s.RemindBills(ctx, now)
	if err != nil {
		t.Fatalf("RemindBills again: %v", err)
	}
	if reminded != 0 {
		t.Errorf("reminded after payment = %d, want 0", reminded)
	}
}
