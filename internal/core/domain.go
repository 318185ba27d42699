package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

const (
	BillMonthly   BillFrequency = "monthly"
	BillQuarterly BillFrequency = "quarterly"
	BillYearly    BillFrequency = "yearly"
	BillOneTime   BillFrequency = "one-time"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodWeekly  BudgetPeriod = "weekly"
)

const (
	Loan        LiabilityType = "loan"
	CreditCard  LiabilityType = "credit_card"
	Mortgage    LiabilityType = "mortgage"
	StudentLoan LiabilityType = "student_loan"
	CarLoan     LiabilityType = "car_loan"
	OtherDebt   LiabilityType = "other"
)

const (
	ChallengeSavings  ChallengeType = "savings"
	ChallengeSpending ChallengeType = "spending"
	ChallengeNoSpend  ChallengeType = "no-spend"
)

const (
	NotifyBillDue             NotificationType = "bill_due"
	NotifyBudgetAlert         NotificationType = "budget_alert"
	NotifyGoalAchieved        NotificationType = "goal_achieved"
	NotifyAchievementUnlocked NotificationType = "achievement_unlocked"
	NotifyRecurring           NotificationType = "recurring_transaction"
	NotifyBankSync            NotificationType = "bank_sync"
	NotifyGeneral             NotificationType = "general"
)

type (
	TransactionType  string
	Frequency        string
	BillFrequency    string
	Priority         string
	BudgetPeriod     string
	LiabilityType    string
	ChallengeType    string
	NotificationType string

	// Transaction is a single income or expense entry.
	Transaction struct {
		ID             string          `json:"id"`
		Type           TransactionType `json:"type"`
		Category       string          `json:"category"`
		Amount         float64         `json:"amount"`
		Description    string          `json:"description"`
		Date           time.Time       `json:"date"`
		ReceiptImage   *string         `json:"receiptImage,omitempty"`
		BankAccountID  *string         `json:"bankAccountId,omitempty"`
		IsAutoImported bool            `json:"isAutoImported"`
	}

	// RecurringTransaction is a template from which the external sweep
	// generates concrete transactions. LastProcessed is written only by
	// that sweep.
	RecurringTransaction struct {
		ID            string          `json:"id"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		Amount        float64         `json:"amount"`
		Description   string          `json:"description"`
		Frequency     Frequency       `json:"frequency"`
		StartDate     time.Time       `json:"startDate"`
		IsActive      bool            `json:"isActive"`
		LastProcessed *time.Time      `json:"lastProcessed,omitempty"`
	}

	SavingsGoal struct {
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		TargetAmount  float64   `json:"targetAmount"`
		CurrentAmount float64   `json:"currentAmount"`
		TargetDate    time.Time `json:"targetDate"`
		Priority      Priority  `json:"priority"`
	}

	Budget struct {
		ID       string       `json:"id"`
		Category string       `json:"category"`
		Amount   float64      `json:"amount"`
		Period   BudgetPeriod `json:"period"`
	}

	Bill struct {
		ID            string        `json:"id"`
		Name          string        `json:"name"`
		Amount        float64       `json:"amount"`
		DueDate       time.Time     `json:"dueDate"`
		Frequency     BillFrequency `json:"frequency"`
		Category      string        `json:"category"`
		IsRecurring   bool          `json:"isRecurring"`
		IsPaid        bool          `json:"isPaid"`
		ReminderDays  int           `json:"reminderDays"`
		BankAccountID *string       `json:"bankAccountId,omitempty"`
		Notes         string        `json:"notes"`
	}

	Challenge struct {
		ID          string        `json:"id"`
		Title       string        `json:"title"`
		Description string        `json:"description"`
		Type        ChallengeType `json:"type"`
		Target      float64       `json:"target"`
		Progress    float64       `json:"progress"`
		StartDate   time.Time     `json:"startDate"`
		EndDate     time.Time     `json:"endDate"`
		IsActive    bool          `json:"isActive"`
		Reward      *string       `json:"reward,omitempty"`
	}

	Liability struct {
		ID             string        `json:"id"`
		Name           string        `json:"name"`
		Type           LiabilityType `json:"type"`
		CurrentBalance float64       `json:"currentBalance"`
		OriginalAmount *float64      `json:"originalAmount,omitempty"`
		InterestRate   *float64      `json:"interestRate,omitempty"`
		DueDate        *time.Time    `json:"dueDate,omitempty"`
	}

	BankAccount struct {
		ID            string     `json:"id"`
		BankName      string     `json:"bankName"`
		AccountType   string     `json:"accountType"`
		AccountNumber string     `json:"accountNumber"`
		Balance       float64    `json:"balance"`
		IsConnected   bool       `json:"isConnected"`
		LastSyncDate  *time.Time `json:"lastSyncDate,omitempty"`
		Currency      string     `json:"currency"`
	}

	Notification struct {
		ID        string           `json:"id"`
		Type      NotificationType `json:"type"`
		Title     string           `json:"title"`
		Message   string           `json:"message"`
		IsRead    bool             `json:"isRead"`
		CreatedAt time.Time        `json:"createdAt"`
	}

	User struct {
		ID            string  `json:"id"`
		Name          string  `json:"name"`
		Email         string  `json:"email"`
		Occupation    string  `json:"occupation"`
		MonthlyIncome float64 `json:"monthlyIncome"`
	}

	Settings struct {
		DarkMode        bool   `json:"darkMode"`
		Notifications   bool   `json:"notifications"`
		Currency        string `json:"currency"`
		Language        string `json:"language"`
		AutoCategorize  bool   `json:"autoCategorization"`
		BudgetAlerts    bool   `json:"budgetAlerts"`
		BillReminders   bool   `json:"billReminders"`
		ReceiptScanning bool   `json:"receiptScanning"`
	}

	// SettingsPatch carries only the settings keys a caller wants to change.
	// Nil fields are left untouched when merged.
	SettingsPatch struct {
		DarkMode        *bool   `json:"darkMode,omitempty"`
		Notifications   *bool   `json:"notifications,omitempty"`
		Currency        *string `json:"currency,omitempty"`
		Language        *string `json:"language,omitempty"`
		AutoCategorize  *bool   `json:"autoCategorization,omitempty"`
		BudgetAlerts    *bool   `json:"budgetAlerts,omitempty"`
		BillReminders   *bool   `json:"billReminders,omitempty"`
		ReceiptScanning *bool   `json:"receiptScanning,omitempty"`
	}

	// UserPatch carries partial profile updates.
	UserPatch struct {
		Name          *string  `json:"name,omitempty"`
		Email         *string  `json:"email,omitempty"`
		Occupation    *string  `json:"occupation,omitempty"`
		MonthlyIncome *float64 `json:"monthlyIncome,omitempty"`
	}

	// Snapshot is the full set of a user's collections as read from the
	// backend in one LoadAll call. Collections are always non-nil.
	Snapshot struct {
		User                  *User
		Transactions          []Transaction
		RecurringTransactions []RecurringTransaction
		SavingsGoals          []SavingsGoal
		Budgets               []Budget
		Bills                 []Bill
		Challenges            []Challenge
		Liabilities           []Liability
		Notifications         []Notification
		BankAccounts          []BankAccount
		Settings              SettingsPatch
		MonthlyBudget         *float64
	}
)

var (
	ErrInvalidAmount    = errors.New("amount must be non-negative")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidType      = errors.New("invalid type")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrZeroDate         = errors.New("date cannot be zero")

	// Gateway-level sentinels shared by every backend implementation.
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly || f == Monthly
}

func (f BillFrequency) Valid() bool {
	switch f {
	case BillMonthly, BillQuarterly, BillYearly, BillOneTime:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func (p BudgetPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodWeekly
}

func (lt LiabilityType) Valid() bool {
	switch lt {
	case Loan, CreditCard, Mortgage, StudentLoan, CarLoan, OtherDebt:
		return true
	}
	return false
}

func (ct ChallengeType) Valid() bool {
	return ct == ChallengeSavings || ct == ChallengeSpending || ct == ChallengeNoSpend
}

func (nt NotificationType) Valid() bool {
	switch nt {
	case NotifyBillDue, NotifyBudgetAlert, NotifyGoalAchieved,
		NotifyAchievementUnlocked, NotifyRecurring, NotifyBankSync, NotifyGeneral:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if !rt.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	if rt.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(rt.Description) == "" {
		return ErrEmptyDescription
	}
	if !rt.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if rt.StartDate.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if g.TargetAmount < 0 || g.CurrentAmount < 0 {
		return ErrInvalidAmount
	}
	if !g.Priority.Valid() {
		return ErrInvalidPriority
	}
	if g.TargetDate.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Amount < 0 {
		return ErrInvalidAmount
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.Amount < 0 {
		return ErrInvalidAmount
	}
	if !b.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.DueDate.IsZero() {
		return ErrZeroDate
	}
	if b.ReminderDays < 0 {
		return errors.New("reminder days must be non-negative")
	}
	return nil
}

func (c Challenge) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	if c.Target < 0 || c.Progress < 0 {
		return ErrInvalidAmount
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return ErrZeroDate
	}
	if c.EndDate.Before(c.StartDate) {
		return errors.New("end date must not precede start date")
	}
	return nil
}

func (l Liability) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	if !l.Type.Valid() {
		return ErrInvalidType
	}
	if l.CurrentBalance < 0 {
		return ErrInvalidAmount
	}
	if l.OriginalAmount != nil && *l.OriginalAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a BankAccount) Validate() error {
	if strings.TrimSpace(a.BankName) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(a.AccountNumber) == "" {
		return errors.New("empty account number")
	}
	return nil
}

func (n Notification) Validate() error {
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Merge applies non-nil patch fields onto s and returns the result.
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.AutoCategorize != nil {
		s.AutoCategorize = *p.AutoCategorize
	}
	if p.BudgetAlerts != nil {
		s.BudgetAlerts = *p.BudgetAlerts
	}
	if p.BillReminders != nil {
		s.BillReminders = *p.BillReminders
	}
	if p.ReceiptScanning != nil {
		s.ReceiptScanning = *p.ReceiptScanning
	}
	return s
}

// Merge applies non-nil patch fields onto u and returns the result.
func (u User) Merge(p UserPatch) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Occupation != nil {
		u.Occupation = *p.Occupation
	}
	if p.MonthlyIncome != nil {
		u.MonthlyIncome = *p.MonthlyIncome
	}
	return u
}
