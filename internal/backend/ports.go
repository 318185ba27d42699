package backend

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the remote data gateway. Every call is scoped to the owning
// user's id; an implementation must never mutate or return another user's
// rows.
type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, userID string, t core.Transaction) error
		UpdateTransaction(ctx context.Context, userID string, t core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	RecurringTransactionStore interface {
		CreateRecurringTransaction(ctx context.Context, userID string, rt core.RecurringTransaction) error
		UpdateRecurringTransaction(ctx context.Context, userID string, rt core.RecurringTransaction) error
		DeleteRecurringTransaction(ctx context.Context, userID, id string) error
	}

	SavingsGoalStore interface {
		CreateSavingsGoal(ctx context.Context, userID string, g core.SavingsGoal) error
		UpdateSavingsGoal(ctx context.Context, userID string, g core.SavingsGoal) error
		DeleteSavingsGoal(ctx context.Context, userID, id string) error
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, userID string, b core.Budget) error
		UpdateBudget(ctx context.Context, userID string, b core.Budget) error
		DeleteBudget(ctx context.Context, userID, id string) error
	}

	BillStore interface {
		CreateBill(ctx context.Context, userID string, b core.Bill) error
		UpdateBill(ctx context.Context, userID string, b core.Bill) error
		DeleteBill(ctx context.Context, userID, id string) error
		MarkBillPaid(ctx context.Context, userID, id string) error
	}

	ChallengeStore interface {
		CreateChallenge(ctx context.Context, userID string, c core.Challenge) error
		UpdateChallenge(ctx context.Context, userID string, c core.Challenge) error
		DeleteChallenge(ctx context.Context, userID, id string) error
	}

	LiabilityStore interface {
		CreateLiability(ctx context.Context, userID string, l core.Liability) error
		UpdateLiability(ctx context.Context, userID string, l core.Liability) error
		DeleteLiability(ctx context.Context, userID, id string) error
	}

	BankAccountStore interface {
		CreateBankAccount(ctx context.Context, userID string, a core.BankAccount) error
		UpdateBankAccount(ctx context.Context, userID string, a core.BankAccount) error
		DeleteBankAccount(ctx context.Context, userID, id string) error
	}

	NotificationStore interface {
		CreateNotification(ctx context.Context, userID string, n core.Notification) error
		MarkNotificationRead(ctx context.Context, userID, id string) error
		MarkAllNotificationsRead(ctx context.Context, userID string) error
		DeleteNotification(ctx context.Context, userID, id string) error
	}

	ProfileStore interface {
		UpdateUserProfile(ctx context.Context, userID string, p core.UserPatch) error
		UpsertSettings(ctx context.Context, userID string, p core.SettingsPatch) error
		SetMonthlyBudget(ctx context.Context, userID string, amount float64) error
	}

	// SnapshotLoader assembles one consistent snapshot of every collection
	// owned by userID. Partial failure of any query aborts the whole load;
	// a torn snapshot is never returned.
	SnapshotLoader interface {
		LoadAll(ctx context.Context, userID string) (core.Snapshot, error)
	}
)

// Directory is the user account surface consumed by authentication.
// Implemented by the same gateways that implement Gateway.
type Directory interface {
	CreateUser(ctx context.Context, u core.User, passwordHash string) error
	UserByEmail(ctx context.Context, email string) (core.User, string, error)
}

// Gateway is the full remote data gateway surface.
type Gateway interface {
	TransactionStore
	RecurringTransactionStore
	SavingsGoalStore
	BudgetStore
	BillStore
	ChallengeStore
	LiabilityStore
	BankAccountStore
	NotificationStore
	ProfileStore
	SnapshotLoader
}
