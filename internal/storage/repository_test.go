package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository, id, email string) {
	t.Helper()
	u := core.User{ID: id, Name: "Test User", Email: email, Occupation: "engineer", MonthlyIncome: 4000}
	if err := repo.CreateUser(context.Background(), u, "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")

	receipt := "data:image/png;base64,abc"
	tx := core.Transaction{
		ID:           "tx1",
		Type:         core.Expense,
		Category:     "Food",
		Amount:       42.5,
		Description:  "groceries",
		Date:         time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		ReceiptImage: &receipt,
	}
	if err := repo.CreateTransaction(ctx, "u1", tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	snap, err := repo.LoadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snap.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(snap.Transactions))
	}
	if !reflect.DeepEqual(snap.Transactions[0], tx) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", snap.Transactions[0], tx)
	}

	tx.Amount = 50
	tx.Description = "groceries and snacks"
	if err := repo.UpdateTransaction(ctx, "u1", tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	snap, _ = repo.LoadAll(ctx, "u1")
	if snap.Transactions[0].Amount != 50 {
		t.Errorf("amount = %v after update, want 50", snap.Transactions[0].Amount)
	}

	if err := repo.DeleteTransaction(ctx, "u1", "tx1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	snap, _ = repo.LoadAll(ctx, "u1")
	if len(snap.Transactions) != 0 {
		t.Errorf("got %d transactions after delete, want 0", len(snap.Transactions))
	}
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")

	err := repo.UpdateBudget(ctx, "u1", core.Budget{ID: "missing", Category: "Food", Amount: 100, Period: core.PeriodMonthly})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateBudget unknown id: got %v, want ErrNotFound", err)
	}
	if err := repo.DeleteBill(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteBill unknown id: got %v, want ErrNotFound", err)
	}
}

func TestUserScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")
	seedUser(t, repo, "u2", "u2@example.com")

	goal := core.SavingsGoal{
		ID: "g1", Title: "Emergency Fund", TargetAmount: 10000, CurrentAmount: 2500,
		TargetDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Priority: core.PriorityHigh,
	}
	if err := repo.CreateSavingsGoal(ctx, "u1", goal); err != nil {
		t.Fatalf("CreateSavingsGoal: %v", err)
	}

	// u2 must not see, update, or delete u1's rows.
	snap, err := repo.LoadAll(ctx, "u2")
	if err != nil {
		t.Fatalf("LoadAll u2: %v", err)
	}
	if len(snap.SavingsGoals) != 0 {
		t.Errorf("u2 sees %d of u1's goals", len(snap.SavingsGoals))
	}
	if err := repo.DeleteSavingsGoal(ctx, "u2", "g1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user delete: got %v, want ErrNotFound", err)
	}
	goal.CurrentAmount = 9999
	if err := repo.UpdateSavingsGoal(ctx, "u2", goal); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user update: got %v, want ErrNotFound", err)
	}

	snap, _ = repo.LoadAll(ctx, "u1")
	if len(snap.SavingsGoals) != 1 || snap.SavingsGoals[0].CurrentAmount != 2500 {
		t.Errorf("u1's goal was touched by cross-user calls: %+v", snap.SavingsGoals)
	}
}

func TestMarkBillPaid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")

	bill := core.Bill{
		ID: "b1", Name: "Electricity", Amount: 120,
		DueDate: time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC),
		Frequency: core.BillMonthly, Category: "Utilities", IsRecurring: true, ReminderDays: 3,
	}
	if err := repo.CreateBill(ctx, "u1", bill); err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if err := repo.MarkBillPaid(ctx, "u1", "b1"); err != nil {
		t.Fatalf("MarkBillPaid: %v", err)
	}
	snap, _ := repo.LoadAll(ctx, "u1")
	if !snap.Bills[0].IsPaid {
		t.Error("bill not marked paid")
	}
	if err := repo.MarkBillPaid(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkBillPaid unknown id: got %v, want ErrNotFound", err)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")

	for _, n := range []core.Notification{
		{ID: "n1", Type: core.NotifyBillDue, Title: "Bill due", CreatedAt: time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "n2", Type: core.NotifyGeneral, Title: "Welcome", CreatedAt: time.Date(2025, 8, 2, 10, 0, 0, 0, time.UTC)},
	} {
		if err := repo.CreateNotification(ctx, "u1", n); err != nil {
			t.Fatalf("CreateNotification %s: %v", n.ID, err)
		}
	}

	if err := repo.MarkNotificationRead(ctx, "u1", "n1"); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	snap, _ := repo.LoadAll(ctx, "u1")
	// Newest first.
	if snap.Notifications[0].ID != "n2" || snap.Notifications[1].ID != "n1" {
		t.Errorf("notification order: %s, %s", snap.Notifications[0].ID, snap.Notifications[1].ID)
	}
	if !snap.Notifications[1].IsRead || snap.Notifications[0].IsRead {
		t.Error("only n1 should be read")
	}

	if err := repo.MarkAllNotificationsRead(ctx, "u1"); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	snap, _ = repo.LoadAll(ctx, "u1")
	for _, n := range snap.Notifications {
		if !n.IsRead {
			t.Errorf("notification %s still unread", n.ID)
		}
	}
}

func TestSettingsUpsertMergesKeyByKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")

	dark := false
	if err := repo.UpsertSettings(ctx, "u1", core.SettingsPatch{DarkMode: &dark}); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}
	currency := "USD"
	if err := repo.UpsertSettings(ctx, "u1", core.SettingsPatch{Currency: &currency}); err != nil {
		t.Fatalf("UpsertSettings: %v", err)
	}

	snap, err := repo.LoadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	s := snap.Settings
	if s.DarkMode == nil || *s.DarkMode {
		t.Error("dark mode patch lost across upserts")
	}
	if s.Currency == nil || *s.Currency != "USD" {
		t.Errorf("currency = %v, want USD", s.Currency)
	}
	if s.Language == nil || *s.Language != "en" {
		t.Errorf("language default = %v, want en", s.Language)
	}
}

func TestProfileAndMonthlyBudget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")

	income := 5500.0
	name := "Renamed"
	if err := repo.UpdateUserProfile(ctx, "u1", core.UserPatch{Name: &name, MonthlyIncome: &income}); err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	if err := repo.SetMonthlyBudget(ctx, "u1", 4200); err != nil {
		t.Fatalf("SetMonthlyBudget: %v", err)
	}

	snap, err := repo.LoadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if snap.User == nil {
		t.Fatal("snapshot user is nil")
	}
	if snap.User.Name != "Renamed" || snap.User.MonthlyIncome != 5500 {
		t.Errorf("profile = %+v", snap.User)
	}
	if snap.User.Email != "u1@example.com" {
		t.Errorf("email changed by partial patch: %s", snap.User.Email)
	}
	if snap.MonthlyBudget == nil || *snap.MonthlyBudget != 4200 {
		t.Errorf("monthly budget = %v, want 4200", snap.MonthlyBudget)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "dup@example.com")

	err := repo.CreateUser(ctx, core.User{ID: "u2", Name: "Other", Email: "dup@example.com"}, "hash")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: got %v, want ErrEmailTaken", err)
	}

	u, hash, err := repo.UserByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if u.ID != "u1" || hash != "hash" {
		t.Errorf("UserByEmail = %+v hash=%q", u, hash)
	}
	if _, _, err := repo.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown email: got %v, want ErrNotFound", err)
	}
}

func TestLoadAllEmptyUserHasNonNilCollections(t *testing.T) {
	repo := newTestRepo(t)

	snap, err := repo.LoadAll(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if snap.User != nil {
		t.Error("unknown user should have nil profile")
	}
	if snap.Transactions == nil || snap.Bills == nil || snap.Notifications == nil {
		t.Error("collections must be non-nil even when empty")
	}
}

func TestLiabilityOptionalFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "u1@example.com")

	original := 20000.0
	rate := 3.5
	due := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	full := core.Liability{
		ID: "l1", Name: "Car Loan", Type: core.CarLoan, CurrentBalance: 15000,
		OriginalAmount: &original, InterestRate: &rate, DueDate: &due,
	}
	bare := core.Liability{ID: "l2", Name: "Credit Card", Type: core.CreditCard, CurrentBalance: 800}
	if err := repo.CreateLiability(ctx, "u1", full); err != nil {
		t.Fatalf("CreateLiability: %v", err)
	}
	if err := repo.CreateLiability(ctx, "u1", bare); err != nil {
		t.Fatalf("CreateLiability: %v", err)
	}

	snap, err := repo.LoadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	byID := map[string]core.Liability{}
	for _, l := range snap.Liabilities {
		byID[l.ID] = l
	}
	if got := byID["l1"]; !reflect.DeepEqual(got, full) {
		t.Errorf("l1 round trip:\n got %+v\nwant %+v", got, full)
	}
	if got := byID["l2"]; got.OriginalAmount != nil || got.InterestRate != nil || got.DueDate != nil {
		t.Errorf("l2 optional fields should stay nil: %+v", got)
	}
}
