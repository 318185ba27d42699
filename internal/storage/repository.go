// Package storage implements the SQLite data gateway. Every query is scoped
// by user_id so one account can never read or mutate another account's rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// ErrNotFound is returned when an update or delete names an id the user
// does not own.
var ErrNotFound = core.ErrNotFound

// ErrEmailTaken is returned by CreateUser when the email already belongs
// to another account.
var ErrEmailTaken = core.ErrEmailTaken

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Timestamps are stored as RFC 3339 UTC text so lexicographic ORDER BY
// matches chronological order.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func (r *SQLiteRepository) exec(ctx context.Context, mustMatch bool, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if !mustMatch {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, t core.Transaction) error {
	err := r.exec(ctx, false, `
		INSERT INTO transactions (id, user_id, type, category, amount, description, date, receipt_image, bank_account_id, is_auto_imported)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, string(t.Type), t.Category, t.Amount, t.Description, fmtTime(t.Date),
		nullStr(t.ReceiptImage), nullStr(t.BankAccountID), t.IsAutoImported)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID string, t core.Transaction) error {
	err := r.exec(ctx, true, `
		UPDATE transactions
		SET type = ?, category = ?, amount = ?, description = ?, date = ?, receipt_image = ?, bank_account_id = ?, is_auto_imported = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Category, t.Amount, t.Description, fmtTime(t.Date),
		nullStr(t.ReceiptImage), nullStr(t.BankAccountID), t.IsAutoImported, fmtTime(time.Now()),
		t.ID, userID)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, category, amount, description, date, receipt_image, bank_account_id, is_auto_imported
		FROM transactions WHERE user_id = ? ORDER BY date DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t           core.Transaction
			typ, date   string
			receipt     sql.NullString
			bankAccount sql.NullString
		)
		if err := rows.Scan(&t.ID, &typ, &t.Category, &t.Amount, &t.Description, &date, &receipt, &bankAccount, &t.IsAutoImported); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		if t.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("scan transaction %s: %w", t.ID, err)
		}
		t.ReceiptImage = strPtr(receipt)
		t.BankAccountID = strPtr(bankAccount)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateRecurringTransaction(ctx context.Context, userID string, rt core.RecurringTransaction) error {
	err := r.exec(ctx, false, `
		INSERT INTO recurring_transactions (id, user_id, type, category, amount, description, frequency, start_date, is_active, last_processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, userID, string(rt.Type), rt.Category, rt.Amount, rt.Description,
		string(rt.Frequency), fmtTime(rt.StartDate), rt.IsActive, fmtTimePtr(rt.LastProcessed))
	if err != nil {
		return fmt.Errorf("create recurring transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateRecurringTransaction(ctx context.Context, userID string, rt core.RecurringTransaction) error {
	err := r.exec(ctx, true, `
		UPDATE recurring_transactions
		SET type = ?, category = ?, amount = ?, description = ?, frequency = ?, start_date = ?, is_active = ?, last_processed = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		string(rt.Type), rt.Category, rt.Amount, rt.Description, string(rt.Frequency),
		fmtTime(rt.StartDate), rt.IsActive, fmtTimePtr(rt.LastProcessed), fmtTime(time.Now()),
		rt.ID, userID)
	if err != nil {
		return fmt.Errorf("update recurring transaction %s: %w", rt.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRecurringTransaction(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete recurring transaction %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listRecurringTransactions(ctx context.Context, userID string) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, category, amount, description, frequency, start_date, is_active, last_processed
		FROM recurring_transactions WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	out := []core.RecurringTransaction{}
	for rows.Next() {
		var (
			rt              core.RecurringTransaction
			typ, freq, date string
			lastProcessed   sql.NullString
		)
		if err := rows.Scan(&rt.ID, &typ, &rt.Category, &rt.Amount, &rt.Description, &freq, &date, &rt.IsActive, &lastProcessed); err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		rt.Type = core.TransactionType(typ)
		rt.Frequency = core.Frequency(freq)
		if rt.StartDate, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("scan recurring transaction %s: %w", rt.ID, err)
		}
		if rt.LastProcessed, err = parseTimePtr(lastProcessed); err != nil {
			return nil, fmt.Errorf("scan recurring transaction %s: %w", rt.ID, err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, userID string, g core.SavingsGoal) error {
	err := r.exec(ctx, false, `
		INSERT INTO savings_goals (id, user_id, title, target_amount, current_amount, target_date, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, userID, g.Title, g.TargetAmount, g.CurrentAmount, fmtTime(g.TargetDate), string(g.Priority))
	if err != nil {
		return fmt.Errorf("create savings goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateSavingsGoal(ctx context.Context, userID string, g core.SavingsGoal) error {
	err := r.exec(ctx, true, `
		UPDATE savings_goals
		SET title = ?, target_amount = ?, current_amount = ?, target_date = ?, priority = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		g.Title, g.TargetAmount, g.CurrentAmount, fmtTime(g.TargetDate), string(g.Priority), fmtTime(time.Now()),
		g.ID, userID)
	if err != nil {
		return fmt.Errorf("update savings goal %s: %w", g.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete savings goal %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listSavingsGoals(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, target_amount, current_amount, target_date, priority
		FROM savings_goals WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	out := []core.SavingsGoal{}
	for rows.Next() {
		var (
			g              core.SavingsGoal
			date, priority string
		)
		if err := rows.Scan(&g.ID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &date, &priority); err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		g.Priority = core.Priority(priority)
		if g.TargetDate, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("scan savings goal %s: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, userID string, b core.Budget) error {
	err := r.exec(ctx, false, `
		INSERT INTO budgets (id, user_id, category, amount, period)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, userID, b.Category, b.Amount, string(b.Period))
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, userID string, b core.Budget) error {
	err := r.exec(ctx, true, `
		UPDATE budgets SET category = ?, amount = ?, period = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Category, b.Amount, string(b.Period), fmtTime(time.Now()), b.ID, userID)
	if err != nil {
		return fmt.Errorf("update budget %s: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, amount, period
		FROM budgets WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var (
			b      core.Budget
			period string
		)
		if err := rows.Scan(&b.ID, &b.Category, &b.Amount, &period); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Period = core.BudgetPeriod(period)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, userID string, b core.Bill) error {
	err := r.exec(ctx, false, `
		INSERT INTO bills (id, user_id, name, amount, due_date, frequency, category, is_recurring, is_paid, reminder_days, bank_account_id, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, userID, b.Name, b.Amount, fmtTime(b.DueDate), string(b.Frequency), b.Category,
		b.IsRecurring, b.IsPaid, b.ReminderDays, nullStr(b.BankAccountID), b.Notes)
	if err != nil {
		return fmt.Errorf("create bill: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, userID string, b core.Bill) error {
	err := r.exec(ctx, true, `
		UPDATE bills
		SET name = ?, amount = ?, due_date = ?, frequency = ?, category = ?, is_recurring = ?, is_paid = ?, reminder_days = ?, bank_account_id = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Name, b.Amount, fmtTime(b.DueDate), string(b.Frequency), b.Category,
		b.IsRecurring, b.IsPaid, b.ReminderDays, nullStr(b.BankAccountID), b.Notes, fmtTime(time.Now()),
		b.ID, userID)
	if err != nil {
		return fmt.Errorf("update bill %s: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM bills WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkBillPaid(ctx context.Context, userID, id string) error {
	err := r.exec(ctx, true, `
		UPDATE bills SET is_paid = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		fmtTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("mark bill %s paid: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listBills(ctx context.Context, userID string) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, amount, due_date, frequency, category, is_recurring, is_paid, reminder_days, bank_account_id, notes
		FROM bills WHERE user_id = ? ORDER BY due_date ASC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	out := []core.Bill{}
	for rows.Next() {
		var (
			b           core.Bill
			date, freq  string
			bankAccount sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Amount, &date, &freq, &b.Category, &b.IsRecurring, &b.IsPaid, &b.ReminderDays, &bankAccount, &b.Notes); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.Frequency = core.BillFrequency(freq)
		if b.DueDate, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("scan bill %s: %w", b.ID, err)
		}
		b.BankAccountID = strPtr(bankAccount)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateChallenge(ctx context.Context, userID string, c core.Challenge) error {
	err := r.exec(ctx, false, `
		INSERT INTO challenges (id, user_id, title, description, type, target, progress, start_date, end_date, is_active, reward)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, userID, c.Title, c.Description, string(c.Type), c.Target, c.Progress,
		fmtTime(c.StartDate), fmtTime(c.EndDate), c.IsActive, nullStr(c.Reward))
	if err != nil {
		return fmt.Errorf("create challenge: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateChallenge(ctx context.Context, userID string, c core.Challenge) error {
	err := r.exec(ctx, true, `
		UPDATE challenges
		SET title = ?, description = ?, type = ?, target = ?, progress = ?, start_date = ?, end_date = ?, is_active = ?, reward = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		c.Title, c.Description, string(c.Type), c.Target, c.Progress,
		fmtTime(c.StartDate), fmtTime(c.EndDate), c.IsActive, nullStr(c.Reward), fmtTime(time.Now()),
		c.ID, userID)
	if err != nil {
		return fmt.Errorf("update challenge %s: %w", c.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteChallenge(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM challenges WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete challenge %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listChallenges(ctx context.Context, userID string) ([]core.Challenge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, type, target, progress, start_date, end_date, is_active, reward
		FROM challenges WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	out := []core.Challenge{}
	for rows.Next() {
		var (
			c               core.Challenge
			typ, start, end string
			reward          sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &typ, &c.Target, &c.Progress, &start, &end, &c.IsActive, &reward); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		c.Type = core.ChallengeType(typ)
		if c.StartDate, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("scan challenge %s: %w", c.ID, err)
		}
		if c.EndDate, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("scan challenge %s: %w", c.ID, err)
		}
		c.Reward = strPtr(reward)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateLiability(ctx context.Context, userID string, l core.Liability) error {
	err := r.exec(ctx, false, `
		INSERT INTO liabilities (id, user_id, name, type, current_balance, original_amount, interest_rate, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, userID, l.Name, string(l.Type), l.CurrentBalance,
		nullFloat(l.OriginalAmount), nullFloat(l.InterestRate), fmtTimePtr(l.DueDate))
	if err != nil {
		return fmt.Errorf("create liability: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateLiability(ctx context.Context, userID string, l core.Liability) error {
	err := r.exec(ctx, true, `
		UPDATE liabilities
		SET name = ?, type = ?, current_balance = ?, original_amount = ?, interest_rate = ?, due_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		l.Name, string(l.Type), l.CurrentBalance,
		nullFloat(l.OriginalAmount), nullFloat(l.InterestRate), fmtTimePtr(l.DueDate), fmtTime(time.Now()),
		l.ID, userID)
	if err != nil {
		return fmt.Errorf("update liability %s: %w", l.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteLiability(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM liabilities WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete liability %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listLiabilities(ctx context.Context, userID string) ([]core.Liability, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, current_balance, original_amount, interest_rate, due_date
		FROM liabilities WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	out := []core.Liability{}
	for rows.Next() {
		var (
			l                      core.Liability
			typ                    string
			original, interestRate sql.NullFloat64
			dueDate                sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &typ, &l.CurrentBalance, &original, &interestRate, &dueDate); err != nil {
			return nil, fmt.Errorf("scan liability: %w", err)
		}
		l.Type = core.LiabilityType(typ)
		l.OriginalAmount = floatPtr(original)
		l.InterestRate = floatPtr(interestRate)
		if l.DueDate, err = parseTimePtr(dueDate); err != nil {
			return nil, fmt.Errorf("scan liability %s: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateBankAccount(ctx context.Context, userID string, a core.BankAccount) error {
	err := r.exec(ctx, false, `
		INSERT INTO bank_accounts (id, user_id, bank_name, account_type, account_number, balance, is_connected, last_sync_date, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, userID, a.BankName, a.AccountType, a.AccountNumber, a.Balance,
		a.IsConnected, fmtTimePtr(a.LastSyncDate), a.Currency)
	if err != nil {
		return fmt.Errorf("create bank account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateBankAccount(ctx context.Context, userID string, a core.BankAccount) error {
	err := r.exec(ctx, true, `
		UPDATE bank_accounts
		SET bank_name = ?, account_type = ?, account_number = ?, balance = ?, is_connected = ?, last_sync_date = ?, currency = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		a.BankName, a.AccountType, a.AccountNumber, a.Balance, a.IsConnected,
		fmtTimePtr(a.LastSyncDate), a.Currency, fmtTime(time.Now()),
		a.ID, userID)
	if err != nil {
		return fmt.Errorf("update bank account %s: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBankAccount(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM bank_accounts WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete bank account %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listBankAccounts(ctx context.Context, userID string) ([]core.BankAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, bank_name, account_type, account_number, balance, is_connected, last_sync_date, currency
		FROM bank_accounts WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	defer rows.Close()

	out := []core.BankAccount{}
	for rows.Next() {
		var (
			a        core.BankAccount
			lastSync sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.BankName, &a.AccountType, &a.AccountNumber, &a.Balance, &a.IsConnected, &lastSync, &a.Currency); err != nil {
			return nil, fmt.Errorf("scan bank account: %w", err)
		}
		if a.LastSyncDate, err = parseTimePtr(lastSync); err != nil {
			return nil, fmt.Errorf("scan bank account %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateNotification(ctx context.Context, userID string, n core.Notification) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	err := r.exec(ctx, false, `
		INSERT INTO notifications (id, user_id, type, title, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, userID, string(n.Type), n.Title, n.Message, n.IsRead, fmtTime(createdAt))
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, userID, id string) error {
	err := r.exec(ctx, true, `
		UPDATE notifications SET is_read = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		fmtTime(time.Now()), id, userID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	err := r.exec(ctx, false, `
		UPDATE notifications SET is_read = 1, updated_at = ? WHERE user_id = ? AND is_read = 0`,
		fmtTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteNotification(ctx context.Context, userID, id string) error {
	if err := r.exec(ctx, true, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete notification %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) listNotifications(ctx context.Context, userID string) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, title, message, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []core.Notification{}
	for rows.Next() {
		var (
			n            core.Notification
			typ, created string
		)
		if err := rows.Scan(&n.ID, &typ, &n.Title, &n.Message, &n.IsRead, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = core.NotificationType(typ)
		if n.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan notification %s: %w", n.ID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CreateUser registers a new account. Emails are unique.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, passwordHash string) error {
	var existing int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, u.Email).Scan(&existing)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if existing > 0 {
		return ErrEmailTaken
	}
	err = r.exec(ctx, false, `
		INSERT INTO users (id, name, email, occupation, monthly_income, password_hash)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Occupation, u.MonthlyIncome, passwordHash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByEmail returns the account owning email and its password hash.
func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, string, error) {
	var (
		u    core.User
		hash string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, occupation, monthly_income, password_hash
		FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Occupation, &u.MonthlyIncome, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", ErrNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("find user by email: %w", err)
	}
	return u, hash, nil
}

func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, userID string, p core.UserPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin profile update: %w", err)
	}
	defer tx.Rollback()

	var u core.User
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, email, occupation, monthly_income FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Occupation, &u.MonthlyIncome)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}

	merged := u.Merge(p)
	_, err = tx.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, occupation = ?, monthly_income = ?, updated_at = ?
		WHERE id = ?`,
		merged.Name, merged.Email, merged.Occupation, merged.MonthlyIncome, fmtTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UpsertSettings(ctx context.Context, userID string, p core.SettingsPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings update: %w", err)
	}
	defer tx.Rollback()

	current := core.Settings{
		DarkMode:        true,
		Notifications:   true,
		Currency:        "RM",
		Language:        "en",
		AutoCategorize:  true,
		BudgetAlerts:    true,
		BillReminders:   true,
		ReceiptScanning: true,
	}
	err = tx.QueryRowContext(ctx, `
		SELECT dark_mode, notifications, currency, language, auto_categorization_enabled, budget_alerts, bill_reminders, receipt_scanning
		FROM user_settings WHERE user_id = ?`, userID).
		Scan(&current.DarkMode, &current.Notifications, &current.Currency, &current.Language,
			&current.AutoCategorize, &current.BudgetAlerts, &current.BillReminders, &current.ReceiptScanning)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read settings: %w", err)
	}

	merged := current.Merge(p)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, dark_mode, notifications, currency, language, auto_categorization_enabled, budget_alerts, bill_reminders, receipt_scanning, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			dark_mode = excluded.dark_mode,
			notifications = excluded.notifications,
			currency = excluded.currency,
			language = excluded.language,
			auto_categorization_enabled = excluded.auto_categorization_enabled,
			budget_alerts = excluded.budget_alerts,
			bill_reminders = excluded.bill_reminders,
			receipt_scanning = excluded.receipt_scanning,
			updated_at = excluded.updated_at`,
		userID, merged.DarkMode, merged.Notifications, merged.Currency, merged.Language,
		merged.AutoCategorize, merged.BudgetAlerts, merged.BillReminders, merged.ReceiptScanning,
		fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) SetMonthlyBudget(ctx context.Context, userID string, amount float64) error {
	err := r.exec(ctx, true, `
		UPDATE users SET monthly_budget = ?, updated_at = ? WHERE id = ?`,
		amount, fmtTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("set monthly budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadProfile(ctx context.Context, userID string, snap *core.Snapshot) error {
	var (
		u      core.User
		budget float64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, occupation, monthly_income, monthly_budget
		FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Occupation, &u.MonthlyIncome, &budget)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	snap.User = &u
	snap.MonthlyBudget = &budget
	return nil
}

func (r *SQLiteRepository) loadSettings(ctx context.Context, userID string, snap *core.Snapshot) error {
	var s core.Settings
	err := r.db.QueryRowContext(ctx, `
		SELECT dark_mode, notifications, currency, language, auto_categorization_enabled, budget_alerts, bill_reminders, receipt_scanning
		FROM user_settings WHERE user_id = ?`, userID).
		Scan(&s.DarkMode, &s.Notifications, &s.Currency, &s.Language,
			&s.AutoCategorize, &s.BudgetAlerts, &s.BillReminders, &s.ReceiptScanning)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
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
	return nil
}

// LoadAll reads every collection concurrently. Each goroutine writes a
// distinct snapshot field, so no synchronization is needed beyond Wait.
// Any failed query aborts the whole load; a torn snapshot is never
// returned.
func (r *SQLiteRepository) LoadAll(ctx context.Context, userID string) (core.Snapshot, error) {
	var snap core.Snapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Transactions, err = r.listTransactions(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.RecurringTransactions, err = r.listRecurringTransactions(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.SavingsGoals, err = r.listSavingsGoals(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Budgets, err = r.listBudgets(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Bills, err = r.listBills(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Challenges, err = r.listChallenges(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Liabilities, err = r.listLiabilities(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Notifications, err = r.listNotifications(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.BankAccounts, err = r.listBankAccounts(ctx, userID)
		return err
	})
	g.Go(func() error { return r.loadProfile(ctx, userID, &snap) })
	g.Go(func() error { return r.loadSettings(ctx, userID, &snap) })

	if err := g.Wait(); err != nil {
		return core.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}
