package http

import (
	"context"
	"net/http"
	"time"

	"fintrack/internal/core"
)

// createEntity decodes the payload, assigns an id when the client did not
// send one, and writes it through the bridge.
func createEntity[T any](s *Server, w http.ResponseWriter, r *http.Request, setID func(*T), add func(context.Context, T) error) {
	var payload T
	if err := decodeJSON(w, r, &payload); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	setID(&payload)
	if err := add(r.Context(), payload); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusCreated)
}

// updateEntity decodes the payload and forces the id from the URL path,
// so the body can never redirect the write to another row.
func updateEntity[T any](s *Server, w http.ResponseWriter, r *http.Request, setID func(*T), update func(context.Context, T) error) {
	var payload T
	if err := decodeJSON(w, r, &payload); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	setID(&payload)
	if err := update(r.Context(), payload); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) deleteByID(w http.ResponseWriter, r *http.Request, del func(context.Context, string) error) {
	if err := del(r.Context(), r.PathValue("id")); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) actOnID(w http.ResponseWriter, r *http.Request, act func(context.Context, string) error) {
	if err := act(r.Context(), r.PathValue("id")); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func ensureID(id *string) {
	if *id == "" {
		*id = core.NewID()
	}
}

func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(t *core.Transaction) { ensureID(&t.ID) }, s.bridge.AddTransaction)
}

func (s *Server) handleTransactionUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(t *core.Transaction) { t.ID = r.PathValue("id") }, s.bridge.UpdateTransaction)
}

func (s *Server) handleTransactionDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteTransaction)
}

func (s *Server) handleRecurringCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(rt *core.RecurringTransaction) { ensureID(&rt.ID) }, s.bridge.AddRecurringTransaction)
}

func (s *Server) handleRecurringUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(rt *core.RecurringTransaction) { rt.ID = r.PathValue("id") }, s.bridge.UpdateRecurringTransaction)
}

func (s *Server) handleRecurringDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteRecurringTransaction)
}

func (s *Server) handleGoalCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(g *core.SavingsGoal) { ensureID(&g.ID) }, s.bridge.AddSavingsGoal)
}

func (s *Server) handleGoalUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(g *core.SavingsGoal) { g.ID = r.PathValue("id") }, s.bridge.UpdateSavingsGoal)
}

func (s *Server) handleGoalDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteSavingsGoal)
}

func (s *Server) handleBudgetCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(b *core.Budget) { ensureID(&b.ID) }, s.bridge.AddBudget)
}

func (s *Server) handleBudgetUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(b *core.Budget) { b.ID = r.PathValue("id") }, s.bridge.UpdateBudget)
}

func (s *Server) handleBudgetDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteBudget)
}

func (s *Server) handleBillCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(b *core.Bill) { ensureID(&b.ID) }, s.bridge.AddBill)
}

func (s *Server) handleBillUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(b *core.Bill) { b.ID = r.PathValue("id") }, s.bridge.UpdateBill)
}

func (s *Server) handleBillDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteBill)
}

func (s *Server) handleBillPay(w http.ResponseWriter, r *http.Request) {
	s.actOnID(w, r, s.bridge.MarkBillPaid)
}

func (s *Server) handleChallengeCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(c *core.Challenge) { ensureID(&c.ID) }, s.bridge.AddChallenge)
}

func (s *Server) handleChallengeUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(c *core.Challenge) { c.ID = r.PathValue("id") }, s.bridge.UpdateChallenge)
}

func (s *Server) handleChallengeDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteChallenge)
}

func (s *Server) handleLiabilityCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(l *core.Liability) { ensureID(&l.ID) }, s.bridge.AddLiability)
}

func (s *Server) handleLiabilityUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(l *core.Liability) { l.ID = r.PathValue("id") }, s.bridge.UpdateLiability)
}

func (s *Server) handleLiabilityDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteLiability)
}

func (s *Server) handleBankAccountCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(a *core.BankAccount) { ensureID(&a.ID) }, s.bridge.AddBankAccount)
}

func (s *Server) handleBankAccountUpdate(w http.ResponseWriter, r *http.Request) {
	updateEntity(s, w, r, func(a *core.BankAccount) { a.ID = r.PathValue("id") }, s.bridge.UpdateBankAccount)
}

func (s *Server) handleBankAccountDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteBankAccount)
}

func (s *Server) handleNotificationCreate(w http.ResponseWriter, r *http.Request) {
	createEntity(s, w, r, func(n *core.Notification) {
		ensureID(&n.ID)
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
	}, s.bridge.RaiseNotification)
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	s.actOnID(w, r, s.bridge.MarkNotificationRead)
}

func (s *Server) handleNotificationsReadAll(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.MarkAllNotificationsRead(r.Context()); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleNotificationDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteByID(w, r, s.bridge.DeleteNotification)
}
