package state

import (
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// Reduce maps (state, action) to the next state. It is pure: the input state
// is never mutated, no I/O happens, and the same inputs always produce the
// same output. Collection updates are copy-on-write; an update or delete
// whose id matches nothing is a no-op.
func Reduce(s AppState, action Action) (AppState, error) {
	switch a := action.(type) {
	case Login:
		user := a.User
		s.User = &user
		s.IsAuthenticated = true
		return s, nil

	case Logout:
		next := Initial()
		next.Settings.DarkMode = s.Settings.DarkMode
		next.Settings.Language = s.Settings.Language
		return next, nil

	case UpdateUser:
		if s.User != nil {
			merged := s.User.Merge(a.Patch)
			s.User = &merged
		}
		return s, nil

	case AddTransaction:
		s.Transactions = appended(s.Transactions, a.Transaction)
		return s, nil
	case UpdateTransaction:
		s.Transactions = replaced(s.Transactions,
			func(t core.Transaction) bool { return t.ID == a.Transaction.ID }, a.Transaction)
		return s, nil
	case DeleteTransaction:
		s.Transactions = removed(s.Transactions,
			func(t core.Transaction) bool { return t.ID == a.ID })
		return s, nil

	case AddRecurringTransaction:
		s.RecurringTransactions = appended(s.RecurringTransactions, a.RecurringTransaction)
		return s, nil
	case UpdateRecurringTransaction:
		s.RecurringTransactions = replaced(s.RecurringTransactions,
			func(rt core.RecurringTransaction) bool { return rt.ID == a.RecurringTransaction.ID },
			a.RecurringTransaction)
		return s, nil
	case DeleteRecurringTransaction:
		s.RecurringTransactions = removed(s.RecurringTransactions,
			func(rt core.RecurringTransaction) bool { return rt.ID == a.ID })
		return s, nil

	case AddSavingsGoal:
		s.SavingsGoals = appended(s.SavingsGoals, a.Goal)
		return s, nil
	case UpdateSavingsGoal:
		s.SavingsGoals = replaced(s.SavingsGoals,
			func(g core.SavingsGoal) bool { return g.ID == a.Goal.ID }, a.Goal)
		return s, nil
	case DeleteSavingsGoal:
		s.SavingsGoals = removed(s.SavingsGoals,
			func(g core.SavingsGoal) bool { return g.ID == a.ID })
		return s, nil

	case AddBudget:
		s.Budgets = appended(s.Budgets, a.Budget)
		return s, nil
	case UpdateBudget:
		s.Budgets = replaced(s.Budgets,
			func(b core.Budget) bool { return b.ID == a.Budget.ID }, a.Budget)
		return s, nil
	case DeleteBudget:
		s.Budgets = removed(s.Budgets,
			func(b core.Budget) bool { return b.ID == a.ID })
		return s, nil

	case AddBill:
		s.Bills = appended(s.Bills, a.Bill)
		return s, nil
	case UpdateBill:
		s.Bills = replaced(s.Bills,
			func(b core.Bill) bool { return b.ID == a.Bill.ID }, a.Bill)
		return s, nil
	case DeleteBill:
		s.Bills = removed(s.Bills,
			func(b core.Bill) bool { return b.ID == a.ID })
		return s, nil
	case MarkBillPaid:
		s.Bills = mapped(s.Bills, func(b core.Bill) core.Bill {
			if b.ID == a.ID {
				b.IsPaid = true
			}
			return b
		})
		return s, nil

	case AddChallenge:
		s.Challenges = appended(s.Challenges, a.Challenge)
		return s, nil
	case UpdateChallenge:
		s.Challenges = replaced(s.Challenges,
			func(c core.Challenge) bool { return c.ID == a.Challenge.ID }, a.Challenge)
		return s, nil
	case DeleteChallenge:
		s.Challenges = removed(s.Challenges,
			func(c core.Challenge) bool { return c.ID == a.ID })
		return s, nil

	case AddLiability:
		s.Liabilities = appended(s.Liabilities, a.Liability)
		return s, nil
	case UpdateLiability:
		s.Liabilities = replaced(s.Liabilities,
			func(l core.Liability) bool { return l.ID == a.Liability.ID }, a.Liability)
		return s, nil
	case DeleteLiability:
		s.Liabilities = removed(s.Liabilities,
			func(l core.Liability) bool { return l.ID == a.ID })
		return s, nil

	case AddNotification:
		s.Notifications = appended(s.Notifications, a.Notification)
		return s, nil
	case MarkNotificationRead:
		s.Notifications = mapped(s.Notifications, func(n core.Notification) core.Notification {
			if n.ID == a.ID {
				n.IsRead = true
			}
			return n
		})
		return s, nil
	case MarkAllNotificationsRead:
		s.Notifications = mapped(s.Notifications, func(n core.Notification) core.Notification {
			n.IsRead = true
			return n
		})
		return s, nil
	case DeleteNotification:
		s.Notifications = removed(s.Notifications,
			func(n core.Notification) bool { return n.ID == a.ID })
		return s, nil

	case AddBankAccount:
		s.BankAccounts = appended(s.BankAccounts, a.Account)
		return s, nil
	case UpdateBankAccount:
		s.BankAccounts = replaced(s.BankAccounts,
			func(ba core.BankAccount) bool { return ba.ID == a.Account.ID }, a.Account)
		return s, nil
	case DeleteBankAccount:
		s.BankAccounts = removed(s.BankAccounts,
			func(ba core.BankAccount) bool { return ba.ID == a.ID })
		return s, nil

	case UpdateSettings:
		s.Settings = s.Settings.Merge(a.Patch)
		return s, nil

	case SetMonthlyBudget:
		s.MonthlyBudget = a.Amount
		return s, nil

	case LoadData:
		return reduceLoadData(s, a.Snapshot), nil

	case ChangeCurrency:
		return reduceChangeCurrency(s, a)

	default:
		return s, fmt.Errorf("unknown action %T", action)
	}
}

// reduceLoadData replaces each collection wholesale with the snapshot's copy.
// A full reload supersedes whatever the tree held: the result is exactly the
// snapshot, never a union with prior local entries.
func reduceLoadData(s AppState, snap core.Snapshot) AppState {
	if snap.User != nil {
		user := *snap.User
		s.User = &user
		s.IsAuthenticated = true
	}
	if snap.Transactions != nil {
		s.Transactions = snap.Transactions
	}
	if snap.RecurringTransactions != nil {
		s.RecurringTransactions = snap.RecurringTransactions
	}
	if snap.SavingsGoals != nil {
		s.SavingsGoals = snap.SavingsGoals
	}
	if snap.Budgets != nil {
		s.Budgets = snap.Budgets
	}
	if snap.Bills != nil {
		s.Bills = snap.Bills
	}
	if snap.Challenges != nil {
		s.Challenges = snap.Challenges
	}
	if snap.Liabilities != nil {
		s.Liabilities = snap.Liabilities
	}
	if snap.Notifications != nil {
		s.Notifications = snap.Notifications
	}
	if snap.BankAccounts != nil {
		s.BankAccounts = snap.BankAccounts
	}
	if snap.MonthlyBudget != nil {
		s.MonthlyBudget = *snap.MonthlyBudget
	}
	s.Settings = s.Settings.Merge(snap.Settings)
	return s
}

// converter accumulates the first conversion failure so a re-denomination
// either applies to the whole tree or not at all.
type converter struct {
	from, to string
	err      error
}

func (c *converter) conv(v float64) float64 {
	out, err := currency.Convert(v, c.from, c.to)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return v
	}
	return out
}

func (c *converter) convPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := c.conv(*v)
	return &out
}

// reduceChangeCurrency rewrites every monetary field in the tree. The field
// list must stay in lockstep with the entity definitions: a missed field
// leaves stale-currency values mixed into the new denomination.
func reduceChangeCurrency(s AppState, a ChangeCurrency) (AppState, error) {
	if a.OldCurrency == a.NewCurrency {
		return s, nil
	}

	c := &converter{from: a.OldCurrency, to: a.NewCurrency}

	next := s
	next.Transactions = mapped(s.Transactions, func(t core.Transaction) core.Transaction {
		t.Amount = c.conv(t.Amount)
		return t
	})
	next.RecurringTransactions = mapped(s.RecurringTransactions,
		func(rt core.RecurringTransaction) core.RecurringTransaction {
			rt.Amount = c.conv(rt.Amount)
			return rt
		})
	next.SavingsGoals = mapped(s.SavingsGoals, func(g core.SavingsGoal) core.SavingsGoal {
		g.TargetAmount = c.conv(g.TargetAmount)
		g.CurrentAmount = c.conv(g.CurrentAmount)
		return g
	})
	next.Budgets = mapped(s.Budgets, func(b core.Budget) core.Budget {
		b.Amount = c.conv(b.Amount)
		return b
	})
	next.Bills = mapped(s.Bills, func(b core.Bill) core.Bill {
		b.Amount = c.conv(b.Amount)
		return b
	})
	next.Challenges = mapped(s.Challenges, func(ch core.Challenge) core.Challenge {
		ch.Target = c.conv(ch.Target)
		ch.Progress = c.conv(ch.Progress)
		return ch
	})
	next.Liabilities = mapped(s.Liabilities, func(l core.Liability) core.Liability {
		l.CurrentBalance = c.conv(l.CurrentBalance)
		l.OriginalAmount = c.convPtr(l.OriginalAmount)
		return l
	})
	next.BankAccounts = mapped(s.BankAccounts, func(ba core.BankAccount) core.BankAccount {
		ba.Balance = c.conv(ba.Balance)
		return ba
	})
	next.MonthlyBudget = c.conv(s.MonthlyBudget)
	if s.User != nil {
		user := *s.User
		user.MonthlyIncome = c.conv(user.MonthlyIncome)
		next.User = &user
	}
	next.Settings.Currency = a.NewCurrency

	if c.err != nil {
		return s, c.err
	}
	return next, nil
}

func appended[T any](xs []T, item T) []T {
	out := make([]T, len(xs), len(xs)+1)
	copy(out, xs)
	return append(out, item)
}

func replaced[T any](xs []T, match func(T) bool, item T) []T {
	idx := -1
	for i, x := range xs {
		if match(x) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return xs
	}
	out := make([]T, len(xs))
	copy(out, xs)
	out[idx] = item
	return out
}

func removed[T any](xs []T, match func(T) bool) []T {
	idx := -1
	for i, x := range xs {
		if match(x) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return xs
	}
	out := make([]T, 0, len(xs)-1)
	out = append(out, xs[:idx]...)
	return append(out, xs[idx+1:]...)
}

func mapped[T any](xs []T, fn func(T) T) []T {
	if xs == nil {
		return nil
	}
	out := make([]T, len(xs))
	for i, x := range xs {
		out[i] = fn(x)
	}
	return out
}
