package core

import (
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          NewID(),
		Type:        Expense,
		Category:    "Food",
		Amount:      12.50,
		Description: "lunch",
		Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "transfer", Category: "c", Amount: 1, Description: "d", Date: good.Date},
		{Type: Expense, Category: " ", Amount: 1, Description: "d", Date: good.Date},
		{Type: Expense, Category: "c", Amount: -1, Description: "d", Date: good.Date},
		{Type: Expense, Category: "c", Amount: 1, Description: "", Date: good.Date},
		{Type: Expense, Category: "c", Amount: 1, Description: "d"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	rt := RecurringTransaction{
		Type:        Income,
		Category:    "Salary",
		Amount:      5000,
		Description: "monthly salary",
		Frequency:   Monthly,
		StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:    true,
	}
	if err := rt.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	rt.Frequency = "fortnightly"
	if err := rt.Validate(); err != ErrInvalidFrequency {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestSavingsGoalValidate(t *testing.T) {
	g := SavingsGoal{
		Title:         "Emergency fund",
		TargetAmount:  10000,
		CurrentAmount: 0,
		TargetDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Priority:      PriorityHigh,
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Over-saving is allowed: current may exceed target.
	g.CurrentAmount = 12000
	if err := g.Validate(); err != nil {
		t.Fatalf("over-saving should be permitted, got %v", err)
	}

	g.CurrentAmount = -1
	if err := g.Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestBillValidate(t *testing.T) {
	b := Bill{
		Name:         "Electricity",
		Amount:       120,
		DueDate:      time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		Frequency:    BillMonthly,
		Category:     "Utilities",
		ReminderDays: 3,
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	b.ReminderDays = -1
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for negative reminder days")
	}
}

func TestChallengeValidate(t *testing.T) {
	c := Challenge{
		Title:     "No-spend week",
		Type:      ChallengeNoSpend,
		Target:    100,
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	c.EndDate = c.StartDate.AddDate(0, 0, -1)
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestSettingsMerge(t *testing.T) {
	s := Settings{DarkMode: true, Currency: "RM", Language: "en", Notifications: true}

	dark := false
	merged := s.Merge(SettingsPatch{DarkMode: &dark})
	if merged.DarkMode {
		t.Fatal("patched field should change")
	}
	if merged.Currency != "RM" || merged.Language != "en" || !merged.Notifications {
		t.Fatal("unpatched fields should survive the merge")
	}
}

func TestUserMerge(t *testing.T) {
	u := User{ID: "u1", Name: "Aina", Email: "aina@example.com", MonthlyIncome: 4000}
	income := 4500.0
	merged := u.Merge(UserPatch{MonthlyIncome: &income})
	if merged.MonthlyIncome != 4500 {
		t.Fatalf("expected income 4500, got %v", merged.MonthlyIncome)
	}
	if merged.Name != "Aina" || merged.ID != "u1" {
		t.Fatal("unpatched fields should survive the merge")
	}
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Fatal("ids should be unique")
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("id should contain timestamp-suffix separator: %q", a)
	}
}
