package state

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"fintrack/internal/core"
)

func sampleState() AppState {
	s := Initial()
	user := core.User{ID: "u1", Name: "Aina", Email: "aina@example.com", MonthlyIncome: 4000}
	s.User = &user
	s.IsAuthenticated = true
	orig := 20000.0
	s.Transactions = []core.Transaction{
		{ID: "t1", Type: core.Expense, Category: "Food", Amount: 100, Description: "groceries",
			Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "t2", Type: core.Income, Category: "Salary", Amount: 4000, Description: "salary",
			Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}
	s.RecurringTransactions = []core.RecurringTransaction{
		{ID: "r1", Type: core.Expense, Category: "Rent", Amount: 1200, Description: "rent",
			Frequency: core.Monthly, StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true},
	}
	s.SavingsGoals = []core.SavingsGoal{
		{ID: "g1", Title: "Holiday", TargetAmount: 5000, CurrentAmount: 1500,
			TargetDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Priority: core.PriorityMedium},
	}
	s.Budgets = []core.Budget{
		{ID: "b1", Category: "Food", Amount: 600, Period: core.PeriodMonthly},
	}
	s.Bills = []core.Bill{
		{ID: "bill1", Name: "Electricity", Amount: 150, DueDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			Frequency: core.BillMonthly, Category: "Utilities", ReminderDays: 3},
	}
	s.Challenges = []core.Challenge{
		{ID: "c1", Title: "Save 500", Type: core.ChallengeSavings, Target: 500, Progress: 120,
			StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), IsActive: true},
	}
	s.Liabilities = []core.Liability{
		{ID: "l1", Name: "Car loan", Type: core.CarLoan, CurrentBalance: 15000, OriginalAmount: &orig},
	}
	s.Notifications = []core.Notification{
		{ID: "n1", Type: core.NotifyGeneral, Title: "Welcome", Message: "hi",
			CreatedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)},
	}
	s.BankAccounts = []core.BankAccount{
		{ID: "a1", BankName: "Maybank", AccountType: "savings", AccountNumber: "1234",
			Balance: 8000, IsConnected: true, Currency: "RM"},
	}
	return s
}

// clone deep-copies a state tree through JSON so tests can assert the
// original was left untouched.
func clone(t *testing.T, s AppState) AppState {
	t.Helper()
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	var out AppState
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	return out
}

func TestReducePurity(t *testing.T) {
	actions := []Action{
		AddTransaction{Transaction: core.Transaction{ID: "t9", Type: core.Expense, Category: "x", Amount: 1, Description: "d", Date: time.Now().UTC()}},
		UpdateTransaction{Transaction: core.Transaction{ID: "t1", Type: core.Expense, Category: "y", Amount: 2, Description: "e", Date: time.Now().UTC()}},
		DeleteTransaction{ID: "t1"},
		MarkBillPaid{ID: "bill1"},
		MarkAllNotificationsRead{},
		UpdateSettings{Patch: core.SettingsPatch{Language: strPtr("ms")}},
		SetMonthlyBudget{Amount: 2500},
		ChangeCurrency{OldCurrency: "RM", NewCurrency: "USD"},
		Logout{},
	}

	for i, action := range actions {
		s := sampleState()
		before := clone(t, s)

		first, err := Reduce(s, action)
		if err != nil {
			t.Fatalf("action %d: %v", i, err)
		}
		second, err := Reduce(s, action)
		if err != nil {
			t.Fatalf("action %d second call: %v", i, err)
		}

		if !reflect.DeepEqual(first, second) {
			t.Fatalf("action %d: two reductions of the same input disagree", i)
		}
		if !reflect.DeepEqual(clone(t, s), before) {
			t.Fatalf("action %d: input state was mutated", i)
		}
	}
}

func TestAddThenDeleteIsNoop(t *testing.T) {
	s := sampleState()
	tx := core.Transaction{ID: "tmp", Type: core.Expense, Category: "c", Amount: 5,
		Description: "d", Date: time.Now().UTC()}

	added, err := Reduce(s, AddTransaction{Transaction: tx})
	if err != nil {
		t.Fatal(err)
	}
	if len(added.Transactions) != len(s.Transactions)+1 {
		t.Fatalf("expected %d transactions, got %d", len(s.Transactions)+1, len(added.Transactions))
	}

	restored, err := Reduce(added, DeleteTransaction{ID: "tmp"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(restored.Transactions, s.Transactions) {
		t.Fatal("add-then-delete should restore the original collection")
	}
}

func TestUpdateMissingIDIsNoop(t *testing.T) {
	s := sampleState()
	ghost := core.Budget{ID: "nope", Category: "Ghost", Amount: 1, Period: core.PeriodWeekly}
	next, err := Reduce(s, UpdateBudget{Budget: ghost})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(next.Budgets, s.Budgets) {
		t.Fatal("update with unknown id should leave the collection unchanged")
	}
}

func TestDeleteMissingIDIsNoop(t *testing.T) {
	s := sampleState()
	next, err := Reduce(s, DeleteBill{ID: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(next.Bills, s.Bills) {
		t.Fatal("delete with unknown id should leave the collection unchanged")
	}
}

func TestChangeCurrencyTotality(t *testing.T) {
	s := sampleState()
	next, err := Reduce(s, ChangeCurrency{OldCurrency: "RM", NewCurrency: "USD"})
	if err != nil {
		t.Fatal(err)
	}

	const rate = 0.21
	approx := func(got, origAmount float64, what string) {
		t.Helper()
		if math.Abs(got-origAmount*rate) > 1e-6 {
			t.Fatalf("%s: got %v, want %v", what, got, origAmount*rate)
		}
	}

	approx(next.Transactions[0].Amount, 100, "transaction amount")
	approx(next.RecurringTransactions[0].Amount, 1200, "recurring amount")
	approx(next.SavingsGoals[0].TargetAmount, 5000, "goal target")
	approx(next.SavingsGoals[0].CurrentAmount, 1500, "goal current")
	approx(next.Budgets[0].Amount, 600, "budget amount")
	approx(next.Bills[0].Amount, 150, "bill amount")
	approx(next.Challenges[0].Target, 500, "challenge target")
	approx(next.Challenges[0].Progress, 120, "challenge progress")
	approx(next.Liabilities[0].CurrentBalance, 15000, "liability balance")
	approx(*next.Liabilities[0].OriginalAmount, 20000, "liability original")
	approx(next.BankAccounts[0].Balance, 8000, "account balance")
	approx(next.MonthlyBudget, 3000, "monthly budget")
	approx(next.User.MonthlyIncome, 4000, "monthly income")

	if next.Settings.Currency != "USD" {
		t.Fatalf("currency flag not flipped: %q", next.Settings.Currency)
	}

	// Same-code change afterwards is a no-op.
	again, err := Reduce(next, ChangeCurrency{OldCurrency: "USD", NewCurrency: "USD"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(again, next) {
		t.Fatal("same-currency change should be a no-op")
	}
}

func TestChangeCurrencyUnknownCodeLeavesStateUntouched(t *testing.T) {
	s := sampleState()
	before := clone(t, s)
	next, err := Reduce(s, ChangeCurrency{OldCurrency: "RM", NewCurrency: "XYZ"})
	if err == nil {
		t.Fatal("expected unknown-code error")
	}
	if !reflect.DeepEqual(clone(t, next), before) {
		t.Fatal("failed re-denomination must not partially apply")
	}
}

func TestAddAndConvertScenario(t *testing.T) {
	s := Initial()
	s, err := Reduce(s, AddTransaction{Transaction: core.Transaction{
		ID: "t1", Type: core.Expense, Category: "Food", Amount: 100,
		Description: "dinner", Date: time.Now().UTC(),
	}})
	if err != nil {
		t.Fatal(err)
	}
	s, err = Reduce(s, ChangeCurrency{OldCurrency: "RM", NewCurrency: "USD"})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Transactions[0].Amount-21.0) > 1e-6 {
		t.Fatalf("expected 21.00, got %v", s.Transactions[0].Amount)
	}
}

func TestLogoutPreservesOnlyDarkModeAndLanguage(t *testing.T) {
	s := sampleState()
	s.Settings.DarkMode = false
	s.Settings.Language = "ms"
	s.Settings.Currency = "USD"
	s.Settings.BudgetAlerts = false

	next, err := Reduce(s, Logout{})
	if err != nil {
		t.Fatal(err)
	}

	want := Initial()
	want.Settings.DarkMode = false
	want.Settings.Language = "ms"
	if !reflect.DeepEqual(next, want) {
		t.Fatalf("logout should reset to initial state with darkMode/language preserved\n got: %+v\nwant: %+v", next, want)
	}
}

func TestLoadDataSupersedesLocalState(t *testing.T) {
	s := sampleState()
	if len(s.Transactions) != 2 {
		t.Fatalf("fixture expectation changed: %d", len(s.Transactions))
	}
	s, err := Reduce(s, AddTransaction{Transaction: core.Transaction{
		ID: "optimistic", Type: core.Expense, Category: "c", Amount: 1,
		Description: "d", Date: time.Now().UTC(),
	}})
	if err != nil {
		t.Fatal(err)
	}

	remote := []core.Transaction{
		{ID: "x1", Type: core.Expense, Category: "Food", Amount: 10, Description: "a", Date: time.Now().UTC()},
		{ID: "x2", Type: core.Expense, Category: "Food", Amount: 20, Description: "b", Date: time.Now().UTC()},
	}
	next, err := Reduce(s, LoadData{Snapshot: core.Snapshot{Transactions: remote}})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(next.Transactions, remote) {
		t.Fatalf("reload must replace, not merge: got %d transactions", len(next.Transactions))
	}
}

func TestLoadDataMergesSettingsKeyByKey(t *testing.T) {
	s := sampleState()
	s.Settings.Language = "ms"
	dark := false
	next, err := Reduce(s, LoadData{Snapshot: core.Snapshot{
		Settings: core.SettingsPatch{DarkMode: &dark},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if next.Settings.DarkMode {
		t.Fatal("patched settings key should apply")
	}
	if next.Settings.Language != "ms" {
		t.Fatal("unspecified settings keys must survive a partial payload")
	}
}

func TestMarkBillPaid(t *testing.T) {
	s := sampleState()
	next, err := Reduce(s, MarkBillPaid{ID: "bill1"})
	if err != nil {
		t.Fatal(err)
	}
	if !next.Bills[0].IsPaid {
		t.Fatal("bill should be marked paid")
	}
	if s.Bills[0].IsPaid {
		t.Fatal("original state must not be mutated")
	}
}

func TestNotificationActions(t *testing.T) {
	s := sampleState()

	next, err := Reduce(s, MarkNotificationRead{ID: "n1"})
	if err != nil {
		t.Fatal(err)
	}
	if !next.Notifications[0].IsRead {
		t.Fatal("notification should be read")
	}

	next, err = Reduce(next, AddNotification{Notification: core.Notification{
		ID: "n2", Type: core.NotifyBudgetAlert, Title: "Over budget", CreatedAt: time.Now().UTC(),
	}})
	if err != nil {
		t.Fatal(err)
	}
	next, err = Reduce(next, MarkAllNotificationsRead{})
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range next.Notifications {
		if !n.IsRead {
			t.Fatalf("notification %s should be read", n.ID)
		}
	}

	next, err = Reduce(next, DeleteNotification{ID: "n1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(next.Notifications) != 1 || next.Notifications[0].ID != "n2" {
		t.Fatal("delete should remove exactly the matching notification")
	}
}

func TestStoreDispatch(t *testing.T) {
	store := NewStore()
	user := core.User{ID: "u1", Name: "Aina"}
	if err := store.Dispatch(Login{User: user}); err != nil {
		t.Fatal(err)
	}
	got := store.State()
	if !got.IsAuthenticated || got.User == nil || got.User.ID != "u1" {
		t.Fatalf("login not applied: %+v", got)
	}

	// A failing reduction leaves the held state unchanged.
	if err := store.Dispatch(ChangeCurrency{OldCurrency: "RM", NewCurrency: "XYZ"}); err == nil {
		t.Fatal("expected error")
	}
	if store.State().Settings.Currency != "RM" {
		t.Fatal("failed dispatch must not change held state")
	}
}

func strPtr(s string) *string { return &s }
