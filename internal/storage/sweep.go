package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// OwnedRecurring pairs a recurring template with its owning user, for
// cross-user sweeps.
type OwnedRecurring struct {
	UserID   string
	Template core.RecurringTransaction
}

// OwnedBill pairs a bill with its owning user.
type OwnedBill struct {
	UserID string
	Bill   core.Bill
}

// ActiveRecurringTransactions returns every active template across all
// users. Dueness is decided by the caller.
func (r *SQLiteRepository) ActiveRecurringTransactions(ctx context.Context) ([]OwnedRecurring, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, id, type, category, amount, description, frequency, start_date, is_active, last_processed
		FROM recurring_transactions WHERE is_active = 1 ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("list active recurring transactions: %w", err)
	}
	defer rows.Close()

	out := []OwnedRecurring{}
	for rows.Next() {
		var (
			o               OwnedRecurring
			typ, freq, date string
			lastProcessed   sql.NullString
		)
		if err := rows.Scan(&o.UserID, &o.Template.ID, &typ, &o.Template.Category, &o.Template.Amount,
			&o.Template.Description, &freq, &date, &o.Template.IsActive, &lastProcessed); err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		o.Template.Type = core.TransactionType(typ)
		o.Template.Frequency = core.Frequency(freq)
		if o.Template.StartDate, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("parse start date: %w", err)
		}
		if lastProcessed.Valid {
			t, err := parseTime(lastProcessed.String)
			if err != nil {
				return nil, fmt.Errorf("parse last processed: %w", err)
			}
			o.Template.LastProcessed = &t
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MarkRecurringProcessed records the sweep timestamp on a template.
func (r *SQLiteRepository) MarkRecurringProcessed(ctx context.Context, userID, id string, at time.Time) error {
	err := r.exec(ctx, true, `
		UPDATE recurring_transactions SET last_processed = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		fmtTime(at), fmtTime(at), id, userID)
	if err != nil {
		return fmt.Errorf("mark recurring transaction %s processed: %w", id, err)
	}
	return nil
}

// BillsEnteringReminder returns unpaid bills whose reminder window opens
// on the given day. Running the sweep daily fires each reminder once.
func (r *SQLiteRepository) BillsEnteringReminder(ctx context.Context, day time.Time) ([]OwnedBill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, id, name, amount, due_date, frequency, category, is_recurring, is_paid, reminder_days, bank_account_id, notes
		FROM bills
		WHERE is_paid = 0 AND date(due_date, '-' || reminder_days || ' days') = date(?)
		ORDER BY user_id, due_date, id`,
		fmtTime(day))
	if err != nil {
		return nil, fmt.Errorf("list bills entering reminder: %w", err)
	}
	defer rows.Close()

	out := []OwnedBill{}
	for rows.Next() {
		var (
			o           OwnedBill
			freq, due   string
			bankAccount sql.NullString
		)
		if err := rows.Scan(&o.UserID, &o.Bill.ID, &o.Bill.Name, &o.Bill.Amount, &due, &freq,
			&o.Bill.Category, &o.Bill.IsRecurring, &o.Bill.IsPaid, &o.Bill.ReminderDays,
			&bankAccount, &o.Bill.Notes); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		o.Bill.Frequency = core.BillFrequency(freq)
		if o.Bill.DueDate, err = parseTime(due); err != nil {
			return nil, fmt.Errorf("parse due date: %w", err)
		}
		o.Bill.BankAccountID = strPtr(bankAccount)
		out = append(out, o)
	}
	return out, rows.Err()
}
