package http

import (
	"errors"
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/state"
)

type credentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      core.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Phase     string    `json:"phase"`
}

type stateResponse struct {
	User            *core.User `json:"user"`
	IsAuthenticated bool       `json:"isAuthenticated"`
	Phase           string     `json:"phase"`

	Transactions          []core.Transaction          `json:"transactions"`
	RecurringTransactions []core.RecurringTransaction `json:"recurringTransactions"`
	SavingsGoals          []core.SavingsGoal          `json:"savingsGoals"`
	Budgets               []core.Budget               `json:"budgets"`
	Bills                 []core.Bill                 `json:"bills"`
	Challenges            []core.Challenge            `json:"challenges"`
	Liabilities           []core.Liability            `json:"liabilities"`
	Notifications         []core.Notification         `json:"notifications"`
	BankAccounts          []core.BankAccount          `json:"bankAccounts"`

	MonthlyBudget float64       `json:"monthlyBudget"`
	Settings      core.Settings `json:"settings"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.bridge.SignUp(r.Context(), req.Name, req.Email, req.Password); err != nil {
		s.authError(w, r, err)
		return
	}
	s.respondSession(w, http.StatusCreated)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.bridge.SignIn(r.Context(), req.Email, req.Password); err != nil {
		s.authError(w, r, err)
		return
	}
	s.respondSession(w, http.StatusOK)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.SignOut(r.Context()); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, http.StatusOK)
}

func (s *Server) respondSession(w http.ResponseWriter, status int) {
	session, err := s.provider.Current()
	if err != nil {
		s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: auth.FriendlyMessage(err)})
		return
	}
	s.respondJSON(w, status, sessionResponse{
		User:      session.User,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Phase:     string(s.bridge.Phase()),
	})
}

// authError distinguishes credential, conflict, and validation failures.
// Anything else went wrong past authentication and falls through to the
// sync error mapping.
func (s *Server) authError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrNotSignedIn):
		s.respondError(w, r, http.StatusUnauthorized, auth.FriendlyMessage(err))
	case errors.Is(err, core.ErrEmailTaken):
		s.respondError(w, r, http.StatusConflict, auth.FriendlyMessage(err))
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, core.ErrEmptyName):
		s.respondError(w, r, http.StatusUnprocessableEntity, auth.FriendlyMessage(err))
	default:
		s.bridgeError(w, r, err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.Refresh(r.Context()); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) respondState(w http.ResponseWriter, status int) {
	st := s.bridge.State()
	s.respondJSON(w, status, toStateResponse(st, string(s.bridge.Phase())))
}

func toStateResponse(st state.AppState, phase string) stateResponse {
	return stateResponse{
		User:            st.User,
		IsAuthenticated: st.IsAuthenticated,
		Phase:           phase,

		Transactions:          st.Transactions,
		RecurringTransactions: st.RecurringTransactions,
		SavingsGoals:          st.SavingsGoals,
		Budgets:               st.Budgets,
		Bills:                 st.Bills,
		Challenges:            st.Challenges,
		Liabilities:           st.Liabilities,
		Notifications:         st.Notifications,
		BankAccounts:          st.BankAccounts,

		MonthlyBudget: st.MonthlyBudget,
		Settings:      st.Settings,
	}
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var patch core.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.bridge.UpdateUser(r.Context(), patch); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleSettingsUpdate(w http.ResponseWriter, r *http.Request) {
	var patch core.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.bridge.UpdateSettings(r.Context(), patch); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleCurrencyChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency string `json:"currency"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.bridge.ChangeCurrency(r.Context(), req.Currency); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleMonthlyBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.bridge.SetMonthlyBudget(r.Context(), req.Amount); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondState(w, http.StatusOK)
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"complete": s.bridge.OnboardingComplete()})
}

func (s *Server) handleOnboardingComplete(w http.ResponseWriter, r *http.Request) {
	if err := s.bridge.MarkOnboardingComplete(); err != nil {
		s.bridgeError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"complete": true})
}
