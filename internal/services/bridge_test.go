package services

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/backend/memory"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/flags"
	"fintrack/internal/state"
)

func newTestBridge(t *testing.T) (*Bridge, *memory.Gateway) {
	t.Helper()
	gw := memory.NewGateway()
	provider := auth.NewProvider(gw, []byte("test-secret"), time.Hour, nil)
	flagStore := flags.NewStore(filepath.Join(t.TempDir(), "flags.json"))
	b := NewBridge(state.NewStore(), gw, provider, flagStore, nil, nil)
	return b, gw
}

func signedUp(t *testing.T, b *Bridge) {
	t.Helper()
	if err := b.SignUp(context.Background(), "Aina", "aina@example.com", "hunter22"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
}

func sampleTransaction() core.Transaction {
	return core.Transaction{
		ID:          core.NewID(),
		Type:        core.Expense,
		Category:    "Food",
		Amount:      100,
		Description: "groceries",
		Date:        time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestSignUpBringsSessionToSynced(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)

	if got := b.Phase(); got != PhaseSynced {
		t.Errorf("phase = %s, want synced", got)
	}
	s := b.State()
	if !s.IsAuthenticated || s.User == nil {
		t.Fatalf("state not authenticated: %+v", s)
	}
	if s.User.Email != "aina@example.com" {
		t.Errorf("user = %+v", s.User)
	}
}

func TestMutateThenReloadConverges(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)
	ctx := context.Background()

	tx := sampleTransaction()
	if err := b.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	s := b.State()
	if len(s.Transactions) != 1 || s.Transactions[0].ID != tx.ID {
		t.Fatalf("transactions after add: %+v", s.Transactions)
	}

	if err := b.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if got := len(b.State().Transactions); got != 0 {
		t.Errorf("%d transactions after delete, want 0", got)
	}
	if got := len(b.Pending()); got != 0 {
		t.Errorf("%d pending ops after quiescence, want 0", got)
	}
}

func TestGatewayFailureLeavesCollectionsUntouched(t *testing.T) {
	b, gw := newTestBridge(t)
	signedUp(t, b)
	ctx := context.Background()

	if err := b.AddTransaction(ctx, sampleTransaction()); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	before := b.State()

	gw.FailWith(errors.New("gateway down"))
	err := b.AddTransaction(ctx, sampleTransaction())
	if err == nil {
		t.Fatal("AddTransaction should fail while gateway is down")
	}

	after := b.State()
	if !reflect.DeepEqual(after.Transactions, before.Transactions) {
		t.Errorf("transactions changed despite failed write:\n before %+v\n after %+v",
			before.Transactions, after.Transactions)
	}
	if len(after.Notifications) != len(before.Notifications)+1 {
		t.Fatalf("got %d notifications, want exactly one new one", len(after.Notifications))
	}
	raised := after.Notifications[len(after.Notifications)-1]
	if raised.Title != "Sync failed" || raised.Type != core.NotifyGeneral {
		t.Errorf("failure notification = %+v", raised)
	}
	if got := b.Phase(); got != PhaseError {
		t.Errorf("phase = %s, want error", got)
	}

	// Recovery: once the gateway is back, a refresh converges again.
	gw.FailWith(nil)
	if err := b.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := b.Phase(); got != PhaseSynced {
		t.Errorf("phase after recovery = %s, want synced", got)
	}
}

func TestMutationsRequireAuthentication(t *testing.T) {
	b, _ := newTestBridge(t)
	if err := b.AddTransaction(context.Background(), sampleTransaction()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("got %v, want ErrNotAuthenticated", err)
	}
	if err := b.Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Refresh: got %v, want ErrNotAuthenticated", err)
	}
}

func TestInvalidEntityNeverReachesGateway(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)

	bad := sampleTransaction()
	bad.Amount = -5
	if err := b.AddTransaction(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}
	if got := len(b.State().Transactions); got != 0 {
		t.Errorf("invalid transaction reached the store: %d rows", got)
	}
	if got := len(b.State().Notifications); got != 0 {
		t.Errorf("validation failure should not raise a sync notification, got %d", got)
	}
}

func TestSignOutResetsStateAndFlags(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)
	ctx := context.Background()

	dark := false
	lang := "ms"
	if err := b.UpdateSettings(ctx, core.SettingsPatch{DarkMode: &dark, Language: &lang}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if err := b.MarkOnboardingComplete(); err != nil {
		t.Fatalf("MarkOnboardingComplete: %v", err)
	}
	if err := b.AddTransaction(ctx, sampleTransaction()); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := b.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	s := b.State()
	if s.IsAuthenticated || s.User != nil {
		t.Errorf("still authenticated after sign-out: %+v", s)
	}
	if len(s.Transactions) != 0 {
		t.Errorf("transactions survived sign-out: %d", len(s.Transactions))
	}
	if s.Settings.DarkMode != false || s.Settings.Language != "ms" {
		t.Errorf("dark mode and language must survive sign-out: %+v", s.Settings)
	}
	if s.Settings.Currency != "RM" {
		t.Errorf("currency should reset: %s", s.Settings.Currency)
	}
	if b.OnboardingComplete() {
		t.Error("onboarding flag survived sign-out")
	}
	if got := b.Phase(); got != PhaseUnauthenticated {
		t.Errorf("phase = %s, want unauthenticated", got)
	}
}

func TestChangeCurrencyIsViewLevel(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)
	ctx := context.Background()

	if err := b.AddTransaction(ctx, sampleTransaction()); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := b.ChangeCurrency(ctx, "USD"); err != nil {
		t.Fatalf("ChangeCurrency: %v", err)
	}
	s := b.State()
	if s.Settings.Currency != "USD" {
		t.Errorf("currency = %s, want USD", s.Settings.Currency)
	}
	if math.Abs(s.Transactions[0].Amount-21) > 1e-6 {
		t.Errorf("amount = %v, want 21 (100 RM at 0.21)", s.Transactions[0].Amount)
	}

	// Stored rows keep their original denomination; a reload re-merges
	// them while the persisted currency flag survives.
	if err := b.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	s = b.State()
	if s.Transactions[0].Amount != 100 {
		t.Errorf("stored amount = %v, want 100", s.Transactions[0].Amount)
	}
	if s.Settings.Currency != "USD" {
		t.Errorf("currency after reload = %s, want USD", s.Settings.Currency)
	}
}

func TestChangeCurrencyUnknownCodeRejected(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)
	ctx := context.Background()

	if err := b.AddTransaction(ctx, sampleTransaction()); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	before := b.State()

	err := b.ChangeCurrency(ctx, "DOGE")
	var unknown *currency.UnknownCodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v, want UnknownCodeError", err)
	}
	if !reflect.DeepEqual(b.State(), before) {
		t.Error("state changed despite rejected currency")
	}
}

func TestBillAndNotificationFlows(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)
	ctx := context.Background()

	bill := core.Bill{
		ID: core.NewID(), Name: "Electricity", Amount: 120,
		DueDate: time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC),
		Frequency: core.BillMonthly, Category: "Utilities", ReminderDays: 3,
	}
	if err := b.AddBill(ctx, bill); err != nil {
		t.Fatalf("AddBill: %v", err)
	}
	if err := b.MarkBillPaid(ctx, bill.ID); err != nil {
		t.Fatalf("MarkBillPaid: %v", err)
	}
	if !b.State().Bills[0].IsPaid {
		t.Error("bill not marked paid in state")
	}

	if err := b.RaiseNotification(ctx, core.Notification{Type: core.NotifyBillDue, Title: "Electricity due soon"}); err != nil {
		t.Fatalf("RaiseNotification: %v", err)
	}
	notifications := b.State().Notifications
	if len(notifications) != 1 || notifications[0].ID == "" {
		t.Fatalf("notifications = %+v", notifications)
	}
	if err := b.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if !b.State().Notifications[0].IsRead {
		t.Error("notification still unread")
	}
}

func TestUpdateUserAndMonthlyBudget(t *testing.T) {
	b, _ := newTestBridge(t)
	signedUp(t, b)
	ctx := context.Background()

	income := 4000.0
	occupation := "engineer"
	if err := b.UpdateUser(ctx, core.UserPatch{MonthlyIncome: &income, Occupation: &occupation}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := b.SetMonthlyBudget(ctx, 2500); err != nil {
		t.Fatalf("SetMonthlyBudget: %v", err)
	}
	if err := b.SetMonthlyBudget(ctx, -1); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative budget: got %v, want ErrInvalidAmount", err)
	}

	s := b.State()
	if s.User.MonthlyIncome != 4000 || s.User.Occupation != "engineer" {
		t.Errorf("user = %+v", s.User)
	}
	if s.MonthlyBudget != 2500 {
		t.Errorf("monthly budget = %v, want 2500", s.MonthlyBudget)
	}
}
