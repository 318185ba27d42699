// Package services implements the synchronization bridge between the local
// state store and the remote data gateway. Consistency model: every write
// goes to the gateway first, then the full snapshot is reloaded and merged
// into the store, so local state always converges to whatever the backend
// holds. A failed write raises a local notification and leaves the
// collections untouched.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/flags"
	"fintrack/internal/state"
)

// ErrNotAuthenticated is returned by every mutation before sign-in.
var ErrNotAuthenticated = errors.New("not authenticated")

// Phase is the bridge's session lifecycle position.
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseLoading         Phase = "loading"
	PhaseSynced          Phase = "synced"
	PhaseError           Phase = "error"
)

// PendingOp is a write that has been handed to the gateway but whose
// reload has not completed yet.
type PendingOp struct {
	ID        string
	Name      string
	StartedAt time.Time
}

type Bridge struct {
	store     *state.Store
	gateway   backend.Gateway
	provider  *auth.Provider
	flagStore *flags.Store
	publisher *events.Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	phase   Phase
	userID  string
	pending map[string]PendingOp
}

// NewBridge wires the bridge to its collaborators. flagStore and publisher
// may be nil.
func NewBridge(store *state.Store, gateway backend.Gateway, provider *auth.Provider, flagStore *flags.Store, publisher *events.Publisher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		store:     store,
		gateway:   gateway,
		provider:  provider,
		flagStore: flagStore,
		publisher: publisher,
		logger:    logger,
		phase:     PhaseUnauthenticated,
		pending:   make(map[string]PendingOp),
	}
}

// State returns the current state tree snapshot.
func (b *Bridge) State() state.AppState {
	return b.store.State()
}

// Phase returns the current session phase.
func (b *Bridge) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Pending returns the writes currently in flight, oldest first not
// guaranteed; callers sort if they care.
func (b *Bridge) Pending() []PendingOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PendingOp, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p)
	}
	return out
}

func (b *Bridge) setPhase(p Phase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
}

// SignUp registers an account and brings the session to synced.
func (b *Bridge) SignUp(ctx context.Context, name, email, password string) error {
	session, err := b.provider.SignUp(ctx, name, email, password)
	if err != nil {
		return err
	}
	return b.begin(ctx, session.User)
}

// SignIn authenticates and brings the session to synced.
func (b *Bridge) SignIn(ctx context.Context, email, password string) error {
	session, err := b.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	return b.begin(ctx, session.User)
}

func (b *Bridge) begin(ctx context.Context, user core.User) error {
	b.mu.Lock()
	b.userID = user.ID
	b.phase = PhaseLoading
	b.mu.Unlock()

	if err := b.store.Dispatch(state.Login{User: user}); err != nil {
		return err
	}
	if err := b.reload(ctx, user.ID); err != nil {
		b.setPhase(PhaseError)
		b.raiseSyncFailure(ctx, "load your data", err)
		return err
	}
	b.setPhase(PhaseSynced)
	b.logger.InfoContext(ctx, "Session synced", "user_id", user.ID)
	return nil
}

// SignOut ends the session, wipes local flags, and resets the state tree.
// Dark mode and language survive the reset.
func (b *Bridge) SignOut(ctx context.Context) error {
	b.provider.SignOut(ctx)
	if b.flagStore != nil {
		if err := b.flagStore.Clear(); err != nil {
			b.logger.WarnContext(ctx, "Failed to clear local flags", "error", err)
		}
	}

	b.mu.Lock()
	b.userID = ""
	b.phase = PhaseUnauthenticated
	b.pending = make(map[string]PendingOp)
	b.mu.Unlock()

	return b.store.Dispatch(state.Logout{})
}

// Refresh reloads the full snapshot without writing anything.
func (b *Bridge) Refresh(ctx context.Context) error {
	b.mu.Lock()
	userID := b.userID
	b.mu.Unlock()
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := b.reload(ctx, userID); err != nil {
		b.setPhase(PhaseError)
		return err
	}
	b.setPhase(PhaseSynced)
	return nil
}

func (b *Bridge) reload(ctx context.Context, userID string) error {
	snap, err := b.gateway.LoadAll(ctx, userID)
	if err != nil {
		return fmt.Errorf("reload snapshot: %w", err)
	}
	return b.store.Dispatch(state.LoadData{Snapshot: snap})
}

// mutate runs one gateway write, then converges the store by full reload.
// The store is never touched before the write succeeds, so a gateway
// failure leaves the collections exactly as they were.
func (b *Bridge) mutate(ctx context.Context, name string, op func(ctx context.Context, userID string) error) error {
	b.mu.Lock()
	userID := b.userID
	if userID == "" {
		b.mu.Unlock()
		return ErrNotAuthenticated
	}
	p := PendingOp{ID: core.NewID(), Name: name, StartedAt: time.Now()}
	b.pending[p.ID] = p
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, p.ID)
		b.mu.Unlock()
	}()

	if err := op(ctx, userID); err != nil {
		b.setPhase(PhaseError)
		b.raiseSyncFailure(ctx, name, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := b.reload(ctx, userID); err != nil {
		b.setPhase(PhaseError)
		b.raiseSyncFailure(ctx, name, err)
		return err
	}
	b.setPhase(PhaseSynced)
	return nil
}

// raiseSyncFailure records the failure as a local-only notification. It is
// deliberately not written to the gateway: the gateway is what just failed.
func (b *Bridge) raiseSyncFailure(ctx context.Context, name string, cause error) {
	b.logger.ErrorContext(ctx, "Sync failed", "operation", name, "error", cause)
	n := core.Notification{
		ID:        core.NewID(),
		Type:      core.NotifyGeneral,
		Title:     "Sync failed",
		Message:   fmt.Sprintf("Could not %s. Your change was not saved.", name),
		CreatedAt: time.Now(),
	}
	if err := b.store.Dispatch(state.AddNotification{Notification: n}); err != nil {
		b.logger.ErrorContext(ctx, "Failed to record sync failure", "error", err)
	}
}

func (b *Bridge) AddTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the transaction", func(ctx context.Context, userID string) error {
		return b.gateway.CreateTransaction(ctx, userID, t)
	})
}

func (b *Bridge) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the transaction", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateTransaction(ctx, userID, t)
	})
}

func (b *Bridge) DeleteTransaction(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the transaction", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteTransaction(ctx, userID, id)
	})
}

func (b *Bridge) AddRecurringTransaction(ctx context.Context, rt core.RecurringTransaction) error {
	if err := rt.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the recurring transaction", func(ctx context.Context, userID string) error {
		return b.gateway.CreateRecurringTransaction(ctx, userID, rt)
	})
}

func (b *Bridge) UpdateRecurringTransaction(ctx context.Context, rt core.RecurringTransaction) error {
	if err := rt.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the recurring transaction", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateRecurringTransaction(ctx, userID, rt)
	})
}

func (b *Bridge) DeleteRecurringTransaction(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the recurring transaction", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteRecurringTransaction(ctx, userID, id)
	})
}

func (b *Bridge) AddSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the savings goal", func(ctx context.Context, userID string) error {
		return b.gateway.CreateSavingsGoal(ctx, userID, g)
	})
}

func (b *Bridge) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the savings goal", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateSavingsGoal(ctx, userID, g)
	})
}

func (b *Bridge) DeleteSavingsGoal(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the savings goal", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteSavingsGoal(ctx, userID, id)
	})
}

func (b *Bridge) AddBudget(ctx context.Context, budget core.Budget) error {
	if err := budget.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the budget", func(ctx context.Context, userID string) error {
		return b.gateway.CreateBudget(ctx, userID, budget)
	})
}

func (b *Bridge) UpdateBudget(ctx context.Context, budget core.Budget) error {
	if err := budget.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the budget", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateBudget(ctx, userID, budget)
	})
}

func (b *Bridge) DeleteBudget(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the budget", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteBudget(ctx, userID, id)
	})
}

func (b *Bridge) AddBill(ctx context.Context, bill core.Bill) error {
	if err := bill.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the bill", func(ctx context.Context, userID string) error {
		return b.gateway.CreateBill(ctx, userID, bill)
	})
}

func (b *Bridge) UpdateBill(ctx context.Context, bill core.Bill) error {
	if err := bill.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the bill", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateBill(ctx, userID, bill)
	})
}

func (b *Bridge) DeleteBill(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the bill", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteBill(ctx, userID, id)
	})
}

func (b *Bridge) MarkBillPaid(ctx context.Context, id string) error {
	return b.mutate(ctx, "mark the bill paid", func(ctx context.Context, userID string) error {
		return b.gateway.MarkBillPaid(ctx, userID, id)
	})
}

func (b *Bridge) AddChallenge(ctx context.Context, c core.Challenge) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the challenge", func(ctx context.Context, userID string) error {
		return b.gateway.CreateChallenge(ctx, userID, c)
	})
}

func (b *Bridge) UpdateChallenge(ctx context.Context, c core.Challenge) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the challenge", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateChallenge(ctx, userID, c)
	})
}

func (b *Bridge) DeleteChallenge(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the challenge", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteChallenge(ctx, userID, id)
	})
}

func (b *Bridge) AddLiability(ctx context.Context, l core.Liability) error {
	if err := l.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the liability", func(ctx context.Context, userID string) error {
		return b.gateway.CreateLiability(ctx, userID, l)
	})
}

func (b *Bridge) UpdateLiability(ctx context.Context, l core.Liability) error {
	if err := l.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the liability", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateLiability(ctx, userID, l)
	})
}

func (b *Bridge) DeleteLiability(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the liability", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteLiability(ctx, userID, id)
	})
}

func (b *Bridge) AddBankAccount(ctx context.Context, a core.BankAccount) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the bank account", func(ctx context.Context, userID string) error {
		return b.gateway.CreateBankAccount(ctx, userID, a)
	})
}

func (b *Bridge) UpdateBankAccount(ctx context.Context, a core.BankAccount) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "update the bank account", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateBankAccount(ctx, userID, a)
	})
}

func (b *Bridge) DeleteBankAccount(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the bank account", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteBankAccount(ctx, userID, id)
	})
}

// RaiseNotification writes a notification to the gateway, publishes its
// event, and reloads. Publish failures are logged and swallowed: the
// notification itself is already durable.
func (b *Bridge) RaiseNotification(ctx context.Context, n core.Notification) error {
	if n.ID == "" {
		n.ID = core.NewID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := n.Validate(); err != nil {
		return err
	}
	return b.mutate(ctx, "save the notification", func(ctx context.Context, userID string) error {
		if err := b.gateway.CreateNotification(ctx, userID, n); err != nil {
			return err
		}
		if err := b.publisher.PublishNotification(ctx, events.NewNotificationEvent(userID, n)); err != nil {
			b.logger.WarnContext(ctx, "Failed to publish notification event",
				"notification_id", n.ID, "error", err)
		}
		return nil
	})
}

func (b *Bridge) MarkNotificationRead(ctx context.Context, id string) error {
	return b.mutate(ctx, "mark the notification read", func(ctx context.Context, userID string) error {
		return b.gateway.MarkNotificationRead(ctx, userID, id)
	})
}

func (b *Bridge) MarkAllNotificationsRead(ctx context.Context) error {
	return b.mutate(ctx, "mark notifications read", func(ctx context.Context, userID string) error {
		return b.gateway.MarkAllNotificationsRead(ctx, userID)
	})
}

func (b *Bridge) DeleteNotification(ctx context.Context, id string) error {
	return b.mutate(ctx, "delete the notification", func(ctx context.Context, userID string) error {
		return b.gateway.DeleteNotification(ctx, userID, id)
	})
}

func (b *Bridge) UpdateUser(ctx context.Context, patch core.UserPatch) error {
	return b.mutate(ctx, "update your profile", func(ctx context.Context, userID string) error {
		return b.gateway.UpdateUserProfile(ctx, userID, patch)
	})
}

func (b *Bridge) UpdateSettings(ctx context.Context, patch core.SettingsPatch) error {
	return b.mutate(ctx, "update settings", func(ctx context.Context, userID string) error {
		return b.gateway.UpsertSettings(ctx, userID, patch)
	})
}

func (b *Bridge) SetMonthlyBudget(ctx context.Context, amount float64) error {
	if amount < 0 {
		return core.ErrInvalidAmount
	}
	return b.mutate(ctx, "update the monthly budget", func(ctx context.Context, userID string) error {
		return b.gateway.SetMonthlyBudget(ctx, userID, amount)
	})
}

// ChangeCurrency re-denominates the local tree and persists the new
// currency flag. Stored row amounts keep their original denomination; the
// conversion is a view-level operation, so no reload follows (a reload
// would re-merge the un-converted rows).
func (b *Bridge) ChangeCurrency(ctx context.Context, newCurrency string) error {
	b.mu.Lock()
	userID := b.userID
	b.mu.Unlock()
	if userID == "" {
		return ErrNotAuthenticated
	}

	old := b.store.State().Settings.Currency
	if err := b.store.Dispatch(state.ChangeCurrency{OldCurrency: old, NewCurrency: newCurrency}); err != nil {
		return err
	}
	if err := b.gateway.UpsertSettings(ctx, userID, core.SettingsPatch{Currency: &newCurrency}); err != nil {
		b.setPhase(PhaseError)
		b.raiseSyncFailure(ctx, "save the currency choice", err)
		return fmt.Errorf("persist currency: %w", err)
	}
	b.setPhase(PhaseSynced)
	return nil
}

// MarkOnboardingComplete records the local onboarding flag. It is not part
// of the synced tree and is wiped on sign-out.
func (b *Bridge) MarkOnboardingComplete() error {
	if b.flagStore == nil {
		return nil
	}
	return b.flagStore.Set(flags.OnboardingComplete, "true")
}

func (b *Bridge) OnboardingComplete() bool {
	if b.flagStore == nil {
		return false
	}
	v, ok := b.flagStore.Get(flags.OnboardingComplete)
	return ok && v == "true"
}
