// Package state implements the local state store: a single immutable state
// tree advanced only through the pure Reduce function.
package state

import (
	"sync"

	"fintrack/internal/core"
)

// AppState is the full client-side state tree. Values handed out by the
// store are snapshots; callers never observe a tree mid-mutation.
type AppState struct {
	User            *core.User
	IsAuthenticated bool

	Transactions          []core.Transaction
	RecurringTransactions []core.RecurringTransaction
	SavingsGoals          []core.SavingsGoal
	Budgets               []core.Budget
	Bills                 []core.Bill
	Challenges            []core.Challenge
	Liabilities           []core.Liability
	Notifications         []core.Notification
	BankAccounts          []core.BankAccount

	MonthlyBudget float64
	Settings      core.Settings
}

const defaultMonthlyBudget = 3000

// Initial returns the empty pre-authentication state tree.
func Initial() AppState {
	return AppState{
		MonthlyBudget: defaultMonthlyBudget,
		Settings: core.Settings{
			DarkMode:        true,
			Notifications:   true,
			Currency:        "RM",
			Language:        "en",
			AutoCategorize:  true,
			BudgetAlerts:    true,
			BillReminders:   true,
			ReceiptScanning: true,
		},
	}
}

// Store guards the current state tree and applies actions through Reduce.
// Dispatch is the only mutation path, so every read is a consistent snapshot.
type Store struct {
	mu    sync.RWMutex
	state AppState
}

func NewStore() *Store {
	return &Store{state: Initial()}
}

// State returns the current state tree.
func (s *Store) State() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch reduces the current state with action and installs the result.
// On a reduction error the held state is left unchanged.
func (s *Store) Dispatch(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Reduce(s.state, action)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}
