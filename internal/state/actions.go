package state

import "fintrack/internal/core"

// Action is the closed set of state transitions the reducer understands.
type Action interface {
	isAction()
}

type (
	// Login sets the user and marks the session authenticated.
	Login struct{ User core.User }

	// Logout resets to the initial state, preserving only the dark-mode
	// and language settings.
	Logout struct{}

	// UpdateUser merges a partial profile update into the current user.
	UpdateUser struct{ Patch core.UserPatch }

	AddTransaction    struct{ Transaction core.Transaction }
	UpdateTransaction struct{ Transaction core.Transaction }
	DeleteTransaction struct{ ID string }

	AddRecurringTransaction    struct{ RecurringTransaction core.RecurringTransaction }
	UpdateRecurringTransaction struct{ RecurringTransaction core.RecurringTransaction }
	DeleteRecurringTransaction struct{ ID string }

	AddSavingsGoal    struct{ Goal core.SavingsGoal }
	UpdateSavingsGoal struct{ Goal core.SavingsGoal }
	DeleteSavingsGoal struct{ ID string }

	AddBudget    struct{ Budget core.Budget }
	UpdateBudget struct{ Budget core.Budget }
	DeleteBudget struct{ ID string }

	AddBill      struct{ Bill core.Bill }
	UpdateBill   struct{ Bill core.Bill }
	DeleteBill   struct{ ID string }
	MarkBillPaid struct{ ID string }

	AddChallenge    struct{ Challenge core.Challenge }
	UpdateChallenge struct{ Challenge core.Challenge }
	DeleteChallenge struct{ ID string }

	AddLiability    struct{ Liability core.Liability }
	UpdateLiability struct{ Liability core.Liability }
	DeleteLiability struct{ ID string }

	AddNotification          struct{ Notification core.Notification }
	MarkNotificationRead     struct{ ID string }
	MarkAllNotificationsRead struct{}
	DeleteNotification       struct{ ID string }

	AddBankAccount    struct{ Account core.BankAccount }
	UpdateBankAccount struct{ Account core.BankAccount }
	DeleteBankAccount struct{ ID string }

	// UpdateSettings merges the patch key-by-key into settings.
	UpdateSettings struct{ Patch core.SettingsPatch }

	SetMonthlyBudget struct{ Amount float64 }

	// LoadData replaces collections wholesale with a remote snapshot;
	// settings are merged one level deeper so a partial settings payload
	// never erases unspecified fields.
	LoadData struct{ Snapshot core.Snapshot }

	// ChangeCurrency re-denominates every monetary field in the tree and
	// flips the currency flag, atomically from the caller's perspective.
	ChangeCurrency struct {
		OldCurrency string
		NewCurrency string
	}
)

func (Login) isAction()                      {}
func (Logout) isAction()                     {}
func (UpdateUser) isAction()                 {}
func (AddTransaction) isAction()             {}
func (UpdateTransaction) isAction()          {}
func (DeleteTransaction) isAction()          {}
func (AddRecurringTransaction) isAction()    {}
func (UpdateRecurringTransaction) isAction() {}
func (DeleteRecurringTransaction) isAction() {}
func (AddSavingsGoal) isAction()             {}
func (UpdateSavingsGoal) isAction()          {}
func (DeleteSavingsGoal) isAction()          {}
func (AddBudget) isAction()                  {}
func (UpdateBudget) isAction()               {}
func (DeleteBudget) isAction()               {}
func (AddBill) isAction()                    {}
func (UpdateBill) isAction()                 {}
func (DeleteBill) isAction()                 {}
func (MarkBillPaid) isAction()               {}
func (AddChallenge) isAction()               {}
func (UpdateChallenge) isAction()            {}
func (DeleteChallenge) isAction()            {}
func (AddLiability) isAction()               {}
func (UpdateLiability) isAction()            {}
func (DeleteLiability) isAction()            {}
func (AddNotification) isAction()            {}
func (MarkNotificationRead) isAction()       {}
func (MarkAllNotificationsRead) isAction()   {}
func (DeleteNotification) isAction()         {}
func (AddBankAccount) isAction()             {}
func (UpdateBankAccount) isAction()          {}
func (DeleteBankAccount) isAction()          {}
func (UpdateSettings) isAction()             {}
func (SetMonthlyBudget) isAction()           {}
func (LoadData) isAction()                   {}
func (ChangeCurrency) isAction()             {}
