// Package memory provides an in-process gateway used as the dev backend and
// by tests. It mirrors the SQLite gateway's scoping semantics: every call is
// constrained to the rows of one user.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
)

// ErrNotFound is returned when an update or delete names an id the user
// does not own.
var ErrNotFound = core.ErrNotFound

// ErrEmailTaken is returned by CreateUser when the email already belongs
// to another account.
var ErrEmailTaken = core.ErrEmailTaken

type userData struct {
	user                  *core.User
	transactions          []core.Transaction
	recurringTransactions []core.RecurringTransaction
	savingsGoals          []core.SavingsGoal
	budgets               []core.Budget
	bills                 []core.Bill
	challenges            []core.Challenge
	liabilities           []core.Liability
	notifications         []core.Notification
	bankAccounts          []core.BankAccount
	settings              core.Settings
	hasSettings           bool
	monthlyBudget         float64
	passwordHash          string
}

type Gateway struct {
	mu    sync.Mutex
	users map[string]*userData

	// failWith, when set, makes every call return that error. Tests use
	// it to simulate a gateway outage.
	failWith error
}

func NewGateway() *Gateway {
	return &Gateway{users: make(map[string]*userData)}
}

// FailWith makes all subsequent calls fail with err; pass nil to recover.
func (g *Gateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWith = err
}

// SeedUser installs a user profile so LoadAll can return it.
func (g *Gateway) SeedUser(u core.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := g.data(u.ID)
	user := u
	d.user = &user
}

func (g *Gateway) data(userID string) *userData {
	d, ok := g.users[userID]
	if !ok {
		d = &userData{monthlyBudget: 3000}
		g.users[userID] = d
	}
	return d
}

func (g *Gateway) CreateTransaction(_ context.Context, userID string, t core.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.transactions = append(d.transactions, t)
	return nil
}

func (g *Gateway) UpdateTransaction(_ context.Context, userID string, t core.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.transactions {
		if d.transactions[i].ID == t.ID {
			d.transactions[i] = t
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteTransaction(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.transactions {
		if d.transactions[i].ID == id {
			d.transactions = append(d.transactions[:i], d.transactions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateRecurringTransaction(_ context.Context, userID string, rt core.RecurringTransaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.recurringTransactions = append(d.recurringTransactions, rt)
	return nil
}

func (g *Gateway) UpdateRecurringTransaction(_ context.Context, userID string, rt core.RecurringTransaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.recurringTransactions {
		if d.recurringTransactions[i].ID == rt.ID {
			d.recurringTransactions[i] = rt
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteRecurringTransaction(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.recurringTransactions {
		if d.recurringTransactions[i].ID == id {
			d.recurringTransactions = append(d.recurringTransactions[:i], d.recurringTransactions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateSavingsGoal(_ context.Context, userID string, goal core.SavingsGoal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.savingsGoals = append(d.savingsGoals, goal)
	return nil
}

func (g *Gateway) UpdateSavingsGoal(_ context.Context, userID string, goal core.SavingsGoal) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.savingsGoals {
		if d.savingsGoals[i].ID == goal.ID {
			d.savingsGoals[i] = goal
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteSavingsGoal(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.savingsGoals {
		if d.savingsGoals[i].ID == id {
			d.savingsGoals = append(d.savingsGoals[:i], d.savingsGoals[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateBudget(_ context.Context, userID string, b core.Budget) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	// Duplicate category+period pairs are deliberately permitted.
	d.budgets = append(d.budgets, b)
	return nil
}

func (g *Gateway) UpdateBudget(_ context.Context, userID string, b core.Budget) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.budgets {
		if d.budgets[i].ID == b.ID {
			d.budgets[i] = b
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteBudget(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.budgets {
		if d.budgets[i].ID == id {
			d.budgets = append(d.budgets[:i], d.budgets[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateBill(_ context.Context, userID string, b core.Bill) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.bills = append(d.bills, b)
	return nil
}

func (g *Gateway) UpdateBill(_ context.Context, userID string, b core.Bill) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.bills {
		if d.bills[i].ID == b.ID {
			d.bills[i] = b
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteBill(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.bills {
		if d.bills[i].ID == id {
			d.bills = append(d.bills[:i], d.bills[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) MarkBillPaid(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.bills {
		if d.bills[i].ID == id {
			d.bills[i].IsPaid = true
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateChallenge(_ context.Context, userID string, c core.Challenge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.challenges = append(d.challenges, c)
	return nil
}

func (g *Gateway) UpdateChallenge(_ context.Context, userID string, c core.Challenge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.challenges {
		if d.challenges[i].ID == c.ID {
			d.challenges[i] = c
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteChallenge(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.challenges {
		if d.challenges[i].ID == id {
			d.challenges = append(d.challenges[:i], d.challenges[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateLiability(_ context.Context, userID string, l core.Liability) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.liabilities = append(d.liabilities, l)
	return nil
}

func (g *Gateway) UpdateLiability(_ context.Context, userID string, l core.Liability) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.liabilities {
		if d.liabilities[i].ID == l.ID {
			d.liabilities[i] = l
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteLiability(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.liabilities {
		if d.liabilities[i].ID == id {
			d.liabilities = append(d.liabilities[:i], d.liabilities[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateBankAccount(_ context.Context, userID string, a core.BankAccount) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.bankAccounts = append(d.bankAccounts, a)
	return nil
}

func (g *Gateway) UpdateBankAccount(_ context.Context, userID string, a core.BankAccount) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.bankAccounts {
		if d.bankAccounts[i].ID == a.ID {
			d.bankAccounts[i] = a
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) DeleteBankAccount(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.bankAccounts {
		if d.bankAccounts[i].ID == id {
			d.bankAccounts = append(d.bankAccounts[:i], d.bankAccounts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) CreateNotification(_ context.Context, userID string, n core.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	d.notifications = append(d.notifications, n)
	return nil
}

func (g *Gateway) MarkNotificationRead(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.notifications {
		if d.notifications[i].ID == id {
			d.notifications[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) MarkAllNotificationsRead(_ context.Context, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.notifications {
		d.notifications[i].IsRead = true
	}
	return nil
}

func (g *Gateway) DeleteNotification(_ context.Context, userID, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	for i := range d.notifications {
		if d.notifications[i].ID == id {
			d.notifications = append(d.notifications[:i], d.notifications[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (g *Gateway) UpdateUserProfile(_ context.Context, userID string, p core.UserPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	if d.user == nil {
		return ErrNotFound
	}
	merged := d.user.Merge(p)
	d.user = &merged
	return nil
}

func (g *Gateway) SetMonthlyBudget(_ context.Context, userID string, amount float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	g.data(userID).monthlyBudget = amount
	return nil
}

// CreateUser registers a new account. Emails are unique across the gateway.
func (g *Gateway) CreateUser(_ context.Context, u core.User, passwordHash string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	for _, d := range g.users {
		if d.user != nil && d.user.Email == u.Email {
			return ErrEmailTaken
		}
	}
	d := g.data(u.ID)
	user := u
	d.user = &user
	d.passwordHash = passwordHash
	return nil
}

// UserByEmail returns the account owning email and its password hash.
func (g *Gateway) UserByEmail(_ context.Context, email string) (core.User, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return core.User{}, "", g.failWith
	}
	for _, d := range g.users {
		if d.user != nil && d.user.Email == email {
			return *d.user, d.passwordHash, nil
		}
	}
	return core.User{}, "", ErrNotFound
}

func (g *Gateway) UpsertSettings(_ context.Context, userID string, p core.SettingsPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	d := g.data(userID)
	if !d.hasSettings {
		d.settings = core.Settings{
			DarkMode:        true,
			Notifications:   true,
			Currency:        "RM",
			Language:        "en",
			AutoCategorize:  true,
			BudgetAlerts:    true,
			BillReminders:   true,
			ReceiptScanning: true,
		}
	}
	d.settings = d.settings.Merge(p)
	d.hasSettings = true
	return nil
}

// LoadAll returns deep copies so callers can never reach back into the
// gateway's held rows.
func (g *Gateway) LoadAll(_ context.Context, userID string) (core.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return core.Snapshot{}, g.failWith
	}
	d := g.data(userID)

	snap := core.Snapshot{
		Transactions:          append([]core.Transaction{}, d.transactions...),
		RecurringTransactions: append([]core.RecurringTransaction{}, d.recurringTransactions...),
		SavingsGoals:          append([]core.SavingsGoal{}, d.savingsGoals...),
		Budgets:               append([]core.Budget{}, d.budgets...),
		Bills:                 append([]core.Bill{}, d.bills...),
		Challenges:            append([]core.Challenge{}, d.challenges...),
		Liabilities:           append([]core.Liability{}, d.liabilities...),
		Notifications:         append([]core.Notification{}, d.notifications...),
		BankAccounts:          append([]core.BankAccount{}, d.bankAccounts...),
	}
	budget := d.monthlyBudget
	snap.MonthlyBudget = &budget
	if d.user != nil {
		user := *d.user
		snap.User = &user
	}
	if d.hasSettings {
		s := d.settings
		snap.Settings = core.SettingsPatch{
			DarkMode:        &s.DarkMode,
			Notifications:   &s.Notifications,
			Currency:        &s.Currency,
			Language:        &s.Language,
			AutoCategorize:  &s.AutoCategorize,
			BudgetAlerts:    &s.BudgetAlerts,
			BillReminders:   &s.BillReminders,
			ReceiptScanning: &s.ReceiptScanning,
		}
	}
	return snap, nil
}
